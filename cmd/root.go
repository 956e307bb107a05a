package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shipcerts/internal/config"
	"shipcerts/internal/logger"
)

var version = "1.0.0"

// appConfig is loaded before any subcommand runs.
var appConfig = config.DefaultConfig()

var rootCmd = &cobra.Command{
	Use:   "shipcerts",
	Short: "Ship certificate ingestion and survey planning",
	Long: `shipcerts reads ship certificates, audit certificates, survey reports and
test reports (PDF, text-based or scanned), extracts their fields with an LLM,
normalizes dates, certificate types and issuer names, checks for duplicates
already on file, and plans the next statutory survey for each certificate.

Configuration is read from a YAML file (--config) and environment variables;
a .env file in the working directory is loaded first.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			path = os.Getenv("SHIPCERTS_CONFIG")
		}

		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		appConfig = cfg

		log := logger.WithComponent("root")
		log.Debug().
			Str("command", cmd.Name()).
			Str("config", path).
			Str("llm_provider", cfg.LLM.Provider).
			Str("llm_model", cfg.LLM.Model).
			Str("ocr_engine", cfg.OCR.Engine).
			Str("store", cfg.Store.Driver).
			Msg("Configuration loaded")
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to YAML configuration file (default: $SHIPCERTS_CONFIG)")
}
