// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the hnscrape CLI.
// scrape walks the Hacker News listing pages and writes one record per
// story; export and runs read back what the SQLite store holds.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/hnscrape/internal/logging"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is built from the persistent log flags before any command runs.
var logger = zap.NewNop()

// rootCmd is the base command for the hnscrape CLI.
var rootCmd = &cobra.Command{
	Use:   "hnscrape",
	Short: "Collect per-story metrics from the Hacker News listing",
	Long: `hnscrape visits consecutive Hacker News listing pages and records, for every
story, its comment count, rank, score, age in hours, and title length.

Records are appended to a CSV file after every page and optionally to a
SQLite store, so an interrupted run keeps everything collected so far.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.New(logging.Config{
			Level: viper.GetString(keyLogLevel),
			JSON:  viper.GetBool(keyLogJSON),
		}, os.Stderr)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./hnscrape.yaml or ~/.config/hnscrape/hnscrape.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("log-json", false, "write structured logs as JSON")

	bindFlag(keyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
	bindFlag(keyLogJSON, rootCmd.PersistentFlags().Lookup("log-json"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("hnscrape")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "hnscrape"))
		}
	}

	// HNSCRAPE_RUN_MAX_PAGES overrides run.max_pages.
	viper.SetEnvPrefix("HNSCRAPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
