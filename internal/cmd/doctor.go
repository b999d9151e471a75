package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/blobstream/internal/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long: `Run diagnostic checks on the environment and suggest fixes for
common issues.

Examples:
  blobstream doctor           # Environment and config checks
  blobstream doctor --aws     # Also verify AWS credential resolution`,
	RunE: runDoctor,
}

var doctorAWS bool

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorAWS, "aws", false, "Check AWS credential resolution")
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	logger.Info("running diagnostic checks")

	healthy := true

	logger.Info("environment",
		zap.String("go_version", runtime.Version()),
		zap.String("os", runtime.GOOS),
		zap.String("arch", runtime.GOARCH))

	if dir, err := os.UserConfigDir(); err != nil {
		logger.Warn("config directory unavailable", zap.Error(err))
		healthy = false
	} else {
		logger.Info("config directory", zap.String("dir", dir))
	}

	if cfg := config.GetConfig(); cfg != nil {
		logger.Info("configuration loaded",
			zap.String("log_level", cfg.Logging.Level),
			zap.Int("download_concurrency", cfg.Download.Concurrency),
			zap.Int64("chunk_size", cfg.Download.MaxChunkGetSize))
	} else {
		logger.Warn("configuration not loaded")
		healthy = false
	}

	if doctorAWS {
		if !checkAWSCredentials(cmd.Context()) {
			healthy = false
		}
	}

	if !healthy {
		return fmt.Errorf("some checks failed; review the output above")
	}
	logger.Info("all checks passed")
	return nil
}

func checkAWSCredentials(ctx context.Context) bool {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Warn("cannot load AWS config", zap.Error(err))
		printAWSCredentialsHelp()
		return false
	}

	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		logger.Warn("cannot retrieve AWS credentials", zap.Error(err))
		printAWSCredentialsHelp()
		return false
	}

	logger.Info("AWS credentials found",
		zap.String("access_key", maskAccessKey(creds.AccessKeyID)),
		zap.String("source", creds.Source))
	return true
}

// maskAccessKey masks all but the last 4 characters of an access key.
func maskAccessKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

func printAWSCredentialsHelp() {
	logger.Info("to configure AWS credentials: set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY, run 'aws configure', or use an IAM role")
	logger.Info("for S3-compatible storage (MinIO, Wasabi, etc.) also set an endpoint via --endpoint or s3.endpoint in config")
}
