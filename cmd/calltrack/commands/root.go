package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/calltrack/calltrack/pkg/config"
	"github.com/calltrack/calltrack/pkg/telemetry"
)

var (
	// Global flags
	configPath string
	logLevel   string
	logFormat  string
	jsonOutput bool
)

// appVersion is stamped into the telemetry configuration by Execute.
var appVersion string

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	appVersion = version
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "calltrack",
		Short: "calltrack - Record function calls to rotating SQLite logs",
		Long: `calltrack wraps function calls and records every invocation as one row
in a size-capped SQLite database, rotating to the next numbered file
when the cap is reached.

Each row captures:
  - Timing: timestamp, duration, log level, tag, message
  - Call shape: function name, arguments, keyword arguments, return value
  - Failures: error type, stack trace, degraded fallback return
  - Identity: thread id, process id
  - System state: computer, cpu, memory, gpu, host snapshots

Behavior is tuned per function with doc tags such as "#level:WARN" or
"#gpu:false" at registration time, and globally through a YAML
configuration file.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default: calltrack.yaml in the working directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (trace, debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format override (console, json)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newDemoCommand())
	rootCmd.AddCommand(newQueryCommand())
	rootCmd.AddCommand(newFieldsCommand())
	rootCmd.AddCommand(newSysinfoCommand())
	rootCmd.AddCommand(newTailCommand())

	return rootCmd
}

// loadConfig loads the file configuration and applies the global flag
// overrides on top of it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupTelemetry builds the telemetry stack from the configuration and
// swaps the bootstrap logger for the configured one.
func setupTelemetry(cfg *config.Config) (*telemetry.Telemetry, error) {
	tel, err := telemetry.NewTelemetry(cfg.Telemetry(appVersion))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	log.Logger = tel.Logger.Zerolog()
	return tel, nil
}
