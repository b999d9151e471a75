// Package download implements the chunked streaming download engine: it
// turns one logical "download this object, maybe a byte range, maybe
// decrypt, maybe decode as text" request into a sequence of bounded range
// GETs executed with controlled concurrency, exposed to the caller as a
// pull-based stream.
package download

import (
	"go.uber.org/zap"

	"github.com/3leaps/blobstream/pkg/blobcrypt"
)

const (
	// DefaultMaxSingleGetSize is the largest first request issued before
	// falling back to chunked fetching for the remainder.
	DefaultMaxSingleGetSize = 32 * 1024 * 1024

	// DefaultMaxChunkGetSize bounds every chunk request after the first.
	// The store only provides transactional checksums for ranges at or
	// below this size, so it also caps the first request when
	// ValidateContent is set.
	DefaultMaxChunkGetSize = 4 * 1024 * 1024
)

// ProgressFunc receives cumulative progress after each completed chunk:
// logical bytes done so far and the fixed total size of the download
// window. Values are never decreasing.
type ProgressFunc func(bytesDone, totalBytes int64)

// Options configures one download session.
type Options struct {
	// Name and Container identify the object for reporting purposes.
	Name      string
	Container string

	// Offset and Count select a logical byte window. The zero value
	// downloads the whole object; Count == 0 with Offset > 0 reads from
	// Offset to the end.
	Offset int64
	Count  int64

	// MaxSingleGetSize bounds the initial request; MaxChunkGetSize bounds
	// every subsequent chunk. Zero uses the defaults.
	MaxSingleGetSize int64
	MaxChunkGetSize  int64

	// MaxConcurrency bounds in-flight chunk fetches. Zero or one is fully
	// sequential.
	MaxConcurrency int

	// ValidateContent requests transactional content checksums, which also
	// caps the initial request at MaxChunkGetSize.
	ValidateContent bool

	// Encoding names the text encoding (IANA name, e.g. "utf-8") used by
	// ReadChars and ReadAllText. Required before any character read.
	Encoding string

	// Decrypter enables transparent decryption. The client must implement
	// source.PropertyGetter so encryption metadata can be resolved before
	// the first range is computed.
	Decrypter blobcrypt.Decrypter

	// IfMatch conditions every request on the object's ETag. After the
	// first successful response the engine pins this to the observed ETag
	// so a mid-download mutation fails fast instead of stitching together
	// inconsistent chunks.
	IfMatch string

	// Progress, when set, is invoked after each completed chunk.
	Progress ProgressFunc

	// Logger receives debug-level download events. Nil disables logging.
	Logger *zap.Logger
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		MaxSingleGetSize: DefaultMaxSingleGetSize,
		MaxChunkGetSize:  DefaultMaxChunkGetSize,
		MaxConcurrency:   1,
	}
}

func (o *Options) applyDefaults() {
	if o.MaxSingleGetSize <= 0 {
		o.MaxSingleGetSize = DefaultMaxSingleGetSize
	}
	if o.MaxChunkGetSize <= 0 {
		o.MaxChunkGetSize = DefaultMaxChunkGetSize
	}
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = 1
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

func (o *Options) validate() error {
	if o.Offset < 0 || o.Count < 0 {
		return ErrNegativeRange
	}
	return nil
}

// rangeRequested reports whether the caller restricted the download to a
// sub-range of the object. The empty-object fallback only applies to
// unrestricted downloads.
func (o *Options) rangeRequested() bool {
	return o.Offset > 0 || o.Count > 0
}
