package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/blobstream/internal/server"
	"github.com/3leaps/blobstream/pkg/download"
	"github.com/3leaps/blobstream/pkg/source"
	s3client "github.com/3leaps/blobstream/pkg/source/s3"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve objects over HTTP",
	Long: `Serve objects over HTTP as GET /v1/objects/{bucket}/{key}, streaming
each response through the chunked download engine. Single-range requests
("Range: bytes=a-b") are honored with 206 responses.`,
	RunE: runServe,
}

var (
	serveHost string
	servePort int
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (default: config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (default: config)")
	serveCmd.Flags().StringVarP(&getRegion, "region", "r", "", "AWS region")
	serveCmd.Flags().StringVarP(&getProfile, "profile", "p", "", "AWS profile")
	serveCmd.Flags().StringVar(&getEndpoint, "endpoint", "", "Custom S3 endpoint")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := appConfig

	host := cfg.Server.Host
	if serveHost != "" {
		host = serveHost
	}
	port := cfg.Server.Port
	if servePort != 0 {
		port = servePort
	}

	engineOpts := download.DefaultOptions()
	engineOpts.MaxSingleGetSize = cfg.Download.MaxSingleGetSize
	engineOpts.MaxChunkGetSize = cfg.Download.MaxChunkGetSize
	engineOpts.ValidateContent = cfg.Download.ValidateContent

	srv := server.New(server.Options{
		Host:     host,
		Port:     port,
		Version:  versionInfo.Version,
		Download: engineOpts,
		Clients: func(ctx context.Context, bucket, key string) (source.RangeClient, error) {
			return s3client.New(ctx, s3client.Config{
				Bucket:         bucket,
				Key:            key,
				Region:         firstNonEmpty(getRegion, cfg.S3.Region),
				Endpoint:       firstNonEmpty(getEndpoint, cfg.S3.Endpoint),
				Profile:        firstNonEmpty(getProfile, cfg.S3.Profile),
				ForcePathStyle: cfg.S3.ForcePathStyle || getEndpoint != "",
			})
		},
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		Logger:       logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting server", zap.String("host", host), zap.Int("port", port))
	return srv.Start(ctx, cfg.Server.ShutdownTimeout)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
