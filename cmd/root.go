// Package cmd defines the CLI commands for the menuscout executable.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sohogrid/menuscout/internal/config"
	"github.com/sohogrid/menuscout/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "menuscout",
	Short: "Incremental restaurant discovery for geographic zones",
	Long: `menuscout scans registered geographic zones for restaurants through
a places search API, enriches each find with cuisine, postcode, and a
menu link crawled from the restaurant's own website, and accumulates
results incrementally so repeat scans only pay for what is new.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"path to configuration file")
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newExportCmd())
}

// loadEnvironment builds the config and logger shared by all commands.
// A .env file in the working directory is honored when present.
func loadEnvironment() (config.Config, *zap.Logger, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: could not read .env: %v\n", err)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Places.APIKey == "" {
		cfg.Places.APIKey = os.Getenv("GOOGLE_API_KEY")
	}

	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// requirePlacesKey fails fast before any network call when the upstream
// credential is missing, with a diagnostic naming both sources.
func requirePlacesKey(cfg config.Config) error {
	if strings.TrimSpace(cfg.Places.APIKey) == "" {
		return fmt.Errorf("places API key is not configured: " +
			"set places.api_key in the config file, MENUSCOUT_PLACES_API_KEY, or GOOGLE_API_KEY")
	}
	return nil
}

func syncLogger(logger *zap.Logger) {
	// Sync on stderr returns EINVAL on some platforms; nothing to act on.
	_ = logger.Sync()
}
