package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/3leaps/blobstream/pkg/download"
	"github.com/3leaps/blobstream/pkg/manifest"
	"github.com/3leaps/blobstream/pkg/output"
	"github.com/3leaps/blobstream/pkg/source"
	s3client "github.com/3leaps/blobstream/pkg/source/s3"
)

var getCmd = &cobra.Command{
	Use:   "get [s3://bucket/key]",
	Short: "Download one object, or a batch from a manifest",
	Long: `Download an object as a sequence of bounded range GETs.

Without --output the object bytes stream to stdout. With --output the
download lands in a file and chunks may be fetched in parallel (files
support random-access writes; pipes do not).

With --manifest, jobs from a YAML or JSON manifest are downloaded in
order and per-job results are emitted as JSONL records on stdout.

Examples:
  blobstream get s3://archive/data/big.bin -o big.bin
  blobstream get s3://archive/logs/app.log --offset 1048576 --count 65536
  blobstream get s3://archive/notes.txt --encoding utf-8
  blobstream get --manifest jobs.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGet,
}

var (
	getOutput      string
	getManifest    string
	getOffset      int64
	getCount       int64
	getConcurrency int
	getChunkSize   int64
	getSingleSize  int64
	getValidate    bool
	getEncoding    string
	getLimitRate   int64
	getRegion      string
	getProfile     string
	getEndpoint    string
	getJSONL       bool
)

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().StringVarP(&getOutput, "output", "o", "", "Destination file (default: stdout)")
	getCmd.Flags().StringVar(&getManifest, "manifest", "", "Batch manifest file (YAML or JSON)")
	getCmd.Flags().Int64Var(&getOffset, "offset", 0, "Byte offset to start from")
	getCmd.Flags().Int64Var(&getCount, "count", 0, "Number of bytes to download (0 = to end)")
	getCmd.Flags().IntVar(&getConcurrency, "concurrency", 0, "Max parallel chunk fetches (0 = config default)")
	getCmd.Flags().Int64Var(&getChunkSize, "chunk-size", 0, "Chunk request size in bytes (0 = config default)")
	getCmd.Flags().Int64Var(&getSingleSize, "single-size", 0, "Initial request size in bytes (0 = config default)")
	getCmd.Flags().BoolVar(&getValidate, "validate", false, "Request transactional content checksums")
	getCmd.Flags().StringVar(&getEncoding, "encoding", "", "Decode the object as text in this encoding (e.g. utf-8)")
	getCmd.Flags().Int64Var(&getLimitRate, "limit-rate", 0, "Cap write throughput in bytes/sec (forces sequential fetch)")
	getCmd.Flags().StringVarP(&getRegion, "region", "r", "", "AWS region")
	getCmd.Flags().StringVarP(&getProfile, "profile", "p", "", "AWS profile")
	getCmd.Flags().StringVar(&getEndpoint, "endpoint", "", "Custom S3 endpoint")
	getCmd.Flags().BoolVar(&getJSONL, "jsonl", false, "Emit JSONL progress records to stdout (requires --output)")
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if getManifest != "" {
		if len(args) > 0 {
			return fmt.Errorf("--manifest and a URI argument are mutually exclusive")
		}
		return runManifestBatch(ctx, cmd)
	}

	if len(args) != 1 {
		return fmt.Errorf("expected an object URI (s3://bucket/key) or --manifest")
	}
	parsed, err := ParseURI(args[0])
	if err != nil {
		return err
	}
	if getJSONL && getOutput == "" {
		return fmt.Errorf("--jsonl requires --output (stdout carries object bytes otherwise)")
	}

	job := manifest.Job{
		Bucket:   parsed.Bucket,
		Key:      parsed.Key,
		Dest:     getOutput,
		Offset:   getOffset,
		Count:    getCount,
		Encoding: getEncoding,
	}

	var recorder output.Writer
	if getJSONL {
		jw := output.NewJSONLWriter(cmd.OutOrStdout(), uuid.New().String())
		defer func() { _ = jw.Close() }()
		recorder = jw
	}

	return downloadJob(ctx, cmd, job, recorder)
}

func runManifestBatch(ctx context.Context, cmd *cobra.Command) error {
	m, err := manifest.Load(getManifest)
	if err != nil {
		return err
	}

	jw := output.NewJSONLWriter(cmd.OutOrStdout(), uuid.New().String())
	defer func() { _ = jw.Close() }()

	var failed int
	for _, job := range m.Jobs {
		if job.Dest == "" {
			// Batch output multiplexes JSONL on stdout, so every job needs
			// its own destination file.
			failed++
			_ = jw.WriteError(ctx, &output.ErrorRecord{
				Code:    output.ErrCodeInternal,
				Message: "manifest job has no dest; batch jobs must write to files",
				Key:     job.Key,
			})
			continue
		}
		if err := downloadJob(ctx, cmd, job, jw); err != nil {
			failed++
			_ = jw.WriteError(ctx, &output.ErrorRecord{
				Code:    errorCode(err),
				Message: err.Error(),
				Key:     job.Key,
			})
			logger.Warn("job failed", zap.String("key", job.Key), zap.Error(err))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(m.Jobs))
	}
	return nil
}

// downloadJob runs one download end to end and emits JSONL records when a
// recorder is set.
func downloadJob(ctx context.Context, cmd *cobra.Command, job manifest.Job, recorder output.Writer) error {
	client, err := s3client.New(ctx, s3client.Config{
		Bucket:         job.Bucket,
		Key:            job.Key,
		Region:         getRegion,
		Endpoint:       getEndpoint,
		Profile:        getProfile,
		ForcePathStyle: getEndpoint != "",
	})
	if err != nil {
		return fmt.Errorf("connect to store: %w", err)
	}

	opts := engineOptions(job)
	if recorder != nil {
		opts.Progress = func(done, total int64) {
			_ = recorder.WriteProgress(ctx, &output.ProgressRecord{BytesDone: done, BytesTotal: total})
		}
	}

	start := time.Now()
	d, err := download.New(ctx, client, opts)
	if err != nil {
		return err
	}

	props := d.Properties()
	logger.Debug("download session open",
		zap.String("bucket", job.Bucket),
		zap.String("key", job.Key),
		zap.Int64("size", d.Size()),
		zap.String("etag", props.ETag))
	if recorder != nil {
		_ = recorder.WriteStart(ctx, &output.StartRecord{
			Bucket:       job.Bucket,
			Key:          job.Key,
			Size:         d.Size(),
			FileSize:     d.FileSize(),
			ETag:         props.ETag,
			ContentRange: props.ContentRange,
			ContentType:  props.ContentType,
		})
	}

	written, err := writeJobOutput(ctx, cmd, d, job)
	if err != nil {
		return err
	}

	elapsed := time.Since(start)
	logger.Info("download complete",
		zap.String("key", job.Key),
		zap.Int64("bytes", written),
		zap.Duration("elapsed", elapsed))
	if recorder != nil {
		_ = recorder.WriteResult(ctx, &output.ResultRecord{
			Bucket:        job.Bucket,
			Key:           job.Key,
			Dest:          job.Dest,
			Bytes:         written,
			Duration:      elapsed,
			DurationHuman: elapsed.Round(time.Millisecond).String(),
		})
	}
	return nil
}

func writeJobOutput(ctx context.Context, cmd *cobra.Command, d *download.Downloader, job manifest.Job) (int64, error) {
	if job.Encoding != "" {
		text, err := d.ReadAllText(ctx)
		if err != nil {
			return 0, err
		}
		return writeText(cmd, job.Dest, text)
	}

	if job.Dest == "" {
		dst := newRateLimitedWriter(cmd.OutOrStdout(), getLimitRate)
		return d.ReadInto(ctx, dst)
	}

	f, err := os.Create(job.Dest)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", job.Dest, err)
	}
	defer func() { _ = f.Close() }()

	var dst io.Writer = f
	if getLimitRate > 0 {
		// The limiter serializes writes, so parallel chunk landing is off.
		dst = newRateLimitedWriter(f, getLimitRate)
	}
	n, err := d.ReadInto(ctx, dst)
	if err != nil {
		return n, err
	}
	return n, f.Sync()
}

func writeText(cmd *cobra.Command, dest, text string) (int64, error) {
	if dest == "" {
		n, err := io.WriteString(cmd.OutOrStdout(), text)
		return int64(n), err
	}
	if err := os.WriteFile(dest, []byte(text), 0o644); err != nil {
		return 0, fmt.Errorf("write %s: %w", dest, err)
	}
	return int64(len(text)), nil
}

func engineOptions(job manifest.Job) download.Options {
	opts := download.DefaultOptions()
	opts.Name = job.Key
	opts.Container = job.Bucket
	opts.Offset = job.Offset
	opts.Count = job.Count
	opts.Encoding = job.Encoding
	opts.Logger = logger

	if appConfig != nil {
		opts.MaxSingleGetSize = appConfig.Download.MaxSingleGetSize
		opts.MaxChunkGetSize = appConfig.Download.MaxChunkGetSize
		opts.MaxConcurrency = appConfig.Download.Concurrency
		opts.ValidateContent = appConfig.Download.ValidateContent
	}
	if getSingleSize > 0 {
		opts.MaxSingleGetSize = getSingleSize
	}
	if getChunkSize > 0 {
		opts.MaxChunkGetSize = getChunkSize
	}
	if getConcurrency > 0 {
		opts.MaxConcurrency = getConcurrency
	}
	if getValidate {
		opts.ValidateContent = true
	}
	if getLimitRate > 0 {
		opts.MaxConcurrency = 1
	}
	if job.Dest == "" {
		// Stdout is not random access; chunks must arrive in order.
		opts.MaxConcurrency = 1
	}
	return opts
}

func errorCode(err error) string {
	switch {
	case source.IsNotFound(err):
		return output.ErrCodeNotFound
	case source.IsAccessDenied(err):
		return output.ErrCodeAccessDenied
	case source.IsPreconditionFailed(err):
		return output.ErrCodePreconditionFailed
	case source.IsRangeNotSatisfiable(err):
		return output.ErrCodeRangeNotSatisfiable
	case source.IsThrottled(err):
		return output.ErrCodeThrottled
	default:
		return output.ErrCodeInternal
	}
}

// rateLimitedWriter caps sustained write throughput with a token bucket.
type rateLimitedWriter struct {
	w       io.Writer
	limiter *rate.Limiter
}

// newRateLimitedWriter wraps w; bytesPerSec <= 0 returns w unchanged.
func newRateLimitedWriter(w io.Writer, bytesPerSec int64) io.Writer {
	if bytesPerSec <= 0 {
		return w
	}
	burst := int(bytesPerSec)
	if burst < 64*1024 {
		burst = 64 * 1024
	}
	return &rateLimitedWriter{
		w:       w,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst),
	}
}

func (rw *rateLimitedWriter) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n := len(p) - written
		if n > rw.limiter.Burst() {
			n = rw.limiter.Burst()
		}
		if err := rw.limiter.WaitN(context.Background(), n); err != nil {
			return written, err
		}
		m, err := rw.w.Write(p[written : written+n])
		written += m
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
