package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/datahub-cli/internal/config"
	"github.com/KaramelBytes/datahub-cli/internal/logging"
)

var (
	// Global flags
	cfgFile  string
	debug    bool
	logLevel string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "datahub",
	Short: "DataHub CLI: turn sales, metrics, cost and financial spreadsheets into a dashboard",
	Long: `DataHub ingests CSV/TSV/XLSX exports from four business domains, aggregates them
into executive KPIs and drill-down views, and serves the result over HTTP with
optional live updates.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.datahub/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c
	newLogger()
}

// settings returns the loaded configuration, or loads it on demand when the
// command tree runs without Execute (as in tests).
func settings() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	return cfgpkg.Load(cfgFile)
}

// newLogger configures the global logger from flags and config.
func newLogger() zerolog.Logger {
	level := logLevel
	if level == "" && cfg != nil {
		level = cfg.LogLevel
	}
	if debug {
		level = "debug"
	}
	return logging.Setup(level, os.Stderr)
}
