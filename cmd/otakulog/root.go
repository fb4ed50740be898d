package cmd

import (
	"database/sql"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kerbaras/otakulog/pkg/config"
	"github.com/kerbaras/otakulog/pkg/data"
	"github.com/kerbaras/otakulog/pkg/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "otakulog",
	Short: "A personal anime, manga and light novel catalog",
	Long:  "Ingest your collection in bulk and let the enrichment pipeline backfill episodes, volumes and chapters from the public catalogs",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "otakulog.yaml", "path to the config file")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(entitiesCmd)
	rootCmd.AddCommand(jobsCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads config and opens the database and logger every command shares.
func setup() (config.Config, *sql.DB, *zap.SugaredLogger) {
	cfg, err := config.Load(configPath)
	cobra.CheckErr(err)

	log, err := logger.New(cfg.LogMode)
	cobra.CheckErr(err)

	db, err := data.Open(cfg.DatabasePath)
	cobra.CheckErr(err)

	return cfg, db, log
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-1]) + "…"
}
