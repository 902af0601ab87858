package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ObviusOwl/amc2cached/internal/config"
	"github.com/ObviusOwl/amc2cached/internal/logger"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
	cfgFile string
)

// rootCmd groups the one-shot admin operations that don't belong in the
// always-serving amc2cached process: bulk-importing the community
// anidb<->tmdb mapping dataset, and auditing the mapping repository for
// primary-key violations.
var rootCmd = &cobra.Command{
	Use:     "amc2ctl",
	Short:   "Administrative commands for amc2cached",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional, environment variables take precedence)")
}

// Execute runs the root command; called once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadSettings is shared by every subcommand: build the viper instance from
// the --config flag and environment, then resolve Settings from it.
func loadSettings() (config.Settings, zerolog.Logger, error) {
	log := logger.NewLogger()

	v, err := config.NewViper(cfgFile)
	if err != nil {
		return config.Settings{}, log, err
	}
	settings, err := config.Load(v)
	if err != nil {
		return config.Settings{}, log, err
	}
	return settings, log, nil
}
