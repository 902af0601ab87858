package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ObviusOwl/amc2cached/internal/app"
	"github.com/ObviusOwl/amc2cached/internal/audit"
)

var auditReportFormat string

var auditMappingsCmd = &cobra.Command{
	Use:   "audit-mappings",
	Short: "Check the mapping repository for primary-key violations",
	Long: `Dumps the mapping repository and reports any anidb or tmdb id that
appears in more than one confirmed pair. Never modifies the repository;
violations must be resolved by hand with amc2cached's /match endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, log, err := loadSettings()
		if err != nil {
			return err
		}

		deps, err := app.New(settings, log)
		if err != nil {
			return fmt.Errorf("build dependencies: %w", err)
		}

		svc := audit.NewService(log, deps.MappingRepo)
		report, err := svc.AuditMappings(cmd.Context())
		if err != nil {
			return fmt.Errorf("audit mappings: %w", err)
		}

		if auditReportFormat == "yaml" {
			enc := yaml.NewEncoder(os.Stdout)
			defer enc.Close()
			return enc.Encode(report)
		}

		fmt.Printf("checked %d mappings, %d violations\n", report.Checked, len(report.Violations))
		for _, v := range report.Violations {
			fmt.Printf("  %s %s shared by %d pairs\n", v.Field, v.Value, len(v.Pairs))
		}
		return nil
	},
}

func init() {
	auditMappingsCmd.Flags().StringVar(&auditReportFormat, "format", "text", `report output format: "text" or "yaml"`)
	rootCmd.AddCommand(auditMappingsCmd)
}
