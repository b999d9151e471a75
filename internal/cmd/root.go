// Package cmd implements the blobstream command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/blobstream/internal/config"
	"github.com/3leaps/blobstream/internal/observability"
)

// versionInfo holds build-time version metadata, injected via
// SetVersionInfo from main.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata for the version command.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var (
	flagLogLevel   string
	flagLogProfile string

	appConfig *config.Config
	logger    *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "blobstream",
	Short: "Chunked streaming downloads from object storage",
	Long: `blobstream downloads large objects from range-capable object stores
as a sequence of bounded range GETs with controlled concurrency.

It can stream a single object to a file or stdout, run a batch of
downloads from a manifest, or serve objects over HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		overrides := map[string]any{}
		if cmd.Flags().Changed("log-level") {
			overrides["logging"] = map[string]any{"level": flagLogLevel}
		}

		cfg, err := config.Load(overrides)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		appConfig = cfg

		profile := cfg.Logging.Profile
		if cmd.Flags().Changed("log-profile") {
			profile = flagLogProfile
		}
		level := cfg.Logging.Level
		if cmd.Flags().Changed("log-level") {
			level = flagLogLevel
		}

		logger, err = observability.NewLogger(level, profile)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogProfile, "log-profile", observability.ProfileStructured, "Log output profile (structured, console)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
