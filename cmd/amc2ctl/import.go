package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ObviusOwl/amc2cached/internal/animelist"
	"github.com/ObviusOwl/amc2cached/internal/app"
)

var importReportFormat string

var importAnimeListCmd = &cobra.Command{
	Use:   "import-anime-list",
	Short: "Import the community anidb<->tmdb mapping dataset",
	Long: `Fetches the Anime-Lists/anime-lists anime-list.xml dataset and stores
every (anidb, tmdb) pair it carries into the mapping repository, without
overwriting any pair that is already confirmed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, log, err := loadSettings()
		if err != nil {
			return err
		}

		deps, err := app.New(settings, log)
		if err != nil {
			return fmt.Errorf("build dependencies: %w", err)
		}

		im := animelist.NewImporter(log)
		report, err := animelist.ImportKnownMappings(cmd.Context(), im, deps.MappingRepo)
		if err != nil {
			return fmt.Errorf("import anime list: %w", err)
		}

		if importReportFormat == "yaml" {
			enc := yaml.NewEncoder(os.Stdout)
			defer enc.Close()
			return enc.Encode(report)
		}

		fmt.Printf("parsed %d entries, mapped %d, skipped %d\n", report.Parsed, report.Mapped, report.Skipped)
		return nil
	},
}

func init() {
	importAnimeListCmd.Flags().StringVar(&importReportFormat, "format", "text", `report output format: "text" or "yaml"`)
	rootCmd.AddCommand(importAnimeListCmd)
}
