package s3

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/3leaps/blobstream/pkg/source"
)

// Client implements source.RangeClient for one S3 object.
type Client struct {
	api    *s3.Client
	bucket string
	key    string
}

// Ensure Client implements the interfaces.
var (
	_ source.RangeClient    = (*Client)(nil)
	_ source.PropertyGetter = (*Client)(nil)
)

// New creates a new S3 range client with the given configuration.
//
// The client uses AWS SDK v2's default credential chain unless explicit
// credentials are provided in the config.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, &source.SourceError{
			Op:     "New",
			Bucket: cfg.Bucket,
			Key:    cfg.Key,
			Err:    err,
		}
	}

	// Build S3 client options
	s3Opts := []func(*s3.Options){
		func(o *s3.Options) {
			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}
		},
	}

	// Custom endpoint for S3-compatible stores
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	return &Client{
		api:    s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		key:    cfg.Key,
	}, nil
}

// loadAWSConfig builds the AWS configuration with appropriate credentials.
func loadAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error

	// Only apply explicit region if user set one in config.
	// Let SDK resolve from env/profile first.
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	// Set profile if specified
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	// Use explicit credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		staticCreds := credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"", // session token (empty for long-term credentials)
		)
		opts = append(opts, config.WithCredentialsProvider(staticCreds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}

	// Apply region defaulting logic
	awsCfg.Region = resolveRegion(cfg.Region, cfg.Endpoint, awsCfg.Region)

	return awsCfg, nil
}

// Fetch issues one range GET against the object.
func (c *Client) Fetch(ctx context.Context, req source.FetchRequest) (*source.FetchResponse, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key),
	}

	if req.Range != nil {
		input.Range = aws.String(req.Range.String())
	}
	if req.IfMatch != "" {
		input.IfMatch = aws.String(req.IfMatch)
	}
	if req.ValidateContent {
		input.ChecksumMode = types.ChecksumModeEnabled
	}

	output, err := c.api.GetObject(ctx, input)
	if err != nil {
		return nil, c.wrapError("Fetch", err)
	}

	header := make(http.Header)
	for k, v := range output.Metadata {
		header.Set("x-amz-meta-"+k, v)
	}

	return &source.FetchResponse{
		ContentLength: aws.ToInt64(output.ContentLength),
		ContentRange:  aws.ToString(output.ContentRange),
		ETag:          cleanETag(aws.ToString(output.ETag)),
		Kind:          source.ObjectKindBasic,
		ContentType:   aws.ToString(output.ContentType),
		LastModified:  aws.ToTime(output.LastModified),
		Metadata:      output.Metadata,
		Header:        header,
		Body:          output.Body,
	}, nil
}

// Properties returns object metadata without a body.
func (c *Client) Properties(ctx context.Context) (*source.FetchResponse, error) {
	output, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key),
	})
	if err != nil {
		return nil, c.wrapError("Properties", err)
	}

	return &source.FetchResponse{
		ContentLength: aws.ToInt64(output.ContentLength),
		ETag:          cleanETag(aws.ToString(output.ETag)),
		Kind:          source.ObjectKindBasic,
		ContentType:   aws.ToString(output.ContentType),
		LastModified:  aws.ToTime(output.LastModified),
		Metadata:      output.Metadata,
	}, nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string { return c.bucket }

// Key returns the configured object key.
func (c *Client) Key() string { return c.key }

// wrapError converts S3 errors to source errors with appropriate sentinel errors.
func (c *Client) wrapError(op string, err error) error {
	wrapped := &source.SourceError{
		Op:     op,
		Bucket: c.bucket,
		Key:    c.key,
		Err:    err,
	}

	// Check for specific S3 error types first
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var invalidRange *types.InvalidObjectState

	switch {
	case errors.As(err, &notFound), errors.As(err, &noSuchKey):
		wrapped.Err = source.ErrNotFound
		return wrapped
	case errors.As(err, &invalidRange):
		wrapped.Err = source.ErrUnavailable
		return wrapped
	}

	// Check smithy API errors for error codes
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			wrapped.Err = source.ErrNotFound
		case "InvalidRange", "RequestedRangeNotSatisfiable":
			wrapped.Err = source.ErrRangeNotSatisfiable
		case "PreconditionFailed":
			wrapped.Err = source.ErrPreconditionFailed
		case "AccessDenied", "Forbidden":
			wrapped.Err = source.ErrAccessDenied
		case "InvalidAccessKeyId", "SignatureDoesNotMatch":
			wrapped.Err = source.ErrInvalidCredentials
		case "SlowDown", "Throttling", "RequestLimitExceeded":
			wrapped.Err = source.ErrThrottled
		case "ServiceUnavailable", "InternalError":
			wrapped.Err = source.ErrUnavailable
		}
		return wrapped
	}

	// Fallback: check error message for common cases
	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "InvalidRange") || strings.Contains(errMsg, "416"):
		wrapped.Err = source.ErrRangeNotSatisfiable
	case strings.Contains(errMsg, "PreconditionFailed") || strings.Contains(errMsg, "412"):
		wrapped.Err = source.ErrPreconditionFailed
	case strings.Contains(errMsg, "NoSuchKey") || strings.Contains(errMsg, "NotFound") || strings.Contains(errMsg, "404"):
		wrapped.Err = source.ErrNotFound
	case strings.Contains(errMsg, "AccessDenied") || strings.Contains(errMsg, "Forbidden") || strings.Contains(errMsg, "403"):
		wrapped.Err = source.ErrAccessDenied
	case strings.Contains(errMsg, "InvalidAccessKeyId") || strings.Contains(errMsg, "SignatureDoesNotMatch"):
		wrapped.Err = source.ErrInvalidCredentials
	case strings.Contains(errMsg, "SlowDown") || strings.Contains(errMsg, "Throttling") || strings.Contains(errMsg, "429"):
		wrapped.Err = source.ErrThrottled
	case strings.Contains(errMsg, "ServiceUnavailable") || strings.Contains(errMsg, "503"):
		wrapped.Err = source.ErrUnavailable
	}

	return wrapped
}

// cleanETag removes surrounding quotes from an ETag value.
// S3 returns ETags with quotes, e.g., "d41d8cd98f00b204e9800998ecf8427e".
func cleanETag(etag string) string {
	return strings.Trim(etag, "\"")
}

// resolveRegion determines the final region to use after SDK config loading.
//
// The sdkRegion parameter is the region after SDK loading, which already
// incorporates explicit cfgRegion (if set) or env/profile resolution.
//
// This function only applies the fallback default:
//   - If sdkRegion is still empty AND no custom endpoint, default to us-east-1
//   - For S3-compatible stores (endpoint set), no defaulting occurs
func resolveRegion(cfgRegion, endpoint, sdkRegion string) string {
	// SDK already resolved region (from explicit config, env, or profile)
	if sdkRegion != "" {
		return sdkRegion
	}

	// Only default for AWS S3 (no custom endpoint)
	if endpoint == "" {
		return DefaultAWSRegion
	}

	// S3-compatible: no default, client may not need region
	return ""
}
