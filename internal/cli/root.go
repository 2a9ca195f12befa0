// Package cli is the respcare command line: the HTTP server plus one-shot
// commands against the same configured store.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"respcare-monitor/internal/config"
	"respcare-monitor/internal/logging"
)

const serviceName = "respcare-monitor"

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "respcare",
	Short: "Respiratory patient vital-sign monitor",
	Long: `respcare records a single patient's vital signs, grades each reading
against clinical thresholds and raises alerts for dangerous values.

Settings come from respcare.yaml (or --config) and RESPCARE_* variables.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "respcare %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (*config.Config, error) {
	return config.Load(config.New(), configPath)
}

// withApp loads config, wires the app, runs fn and closes the app.
func withApp(ctx context.Context, fn func(*app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.NewStderr(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing backends", zap.Error(err))
		}
	}()
	return fn(a)
}
