package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/ObviusOwl/amc2cached/internal/api"
	"github.com/ObviusOwl/amc2cached/internal/app"
	"github.com/ObviusOwl/amc2cached/internal/config"
	"github.com/ObviusOwl/amc2cached/internal/logger"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
	cfgFile string
)

// rootCmd is the server itself: amc2cached has no subcommands, it just
// serves once its dependencies are built.
var rootCmd = &cobra.Command{
	Use:   "amc2cached",
	Short: "Anime metadata aggregation and caching service",
	Long: `amc2cached fetches anime metadata from AniDB and TMDB, caches it on a
content-addressed object store, and serves the raw and merged documents
over HTTP.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := config.NewViper(cfgFile)
		if err != nil {
			return err
		}
		settings, err := config.Load(v)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		log := logger.NewLogger()

		deps, err := app.New(settings, log)
		if err != nil {
			return fmt.Errorf("build dependencies: %w", err)
		}

		addr := settings.Addr
		if addr == "" {
			addr = ":8080"
		}
		log.Info().Str("addr", addr).Msg("starting amc2cached")

		server := api.NewServer(deps)
		return http.ListenAndServe(addr, server)
	},
}

// Execute runs the root command; called once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional, environment variables take precedence)")
}
