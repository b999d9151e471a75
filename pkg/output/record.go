// Package output provides JSONL output for download jobs.
//
// Each line is a self-contained JSON envelope with a typed payload, so
// downstream consumers can follow a long-running download without
// scraping logs.
package output

import (
	"encoding/json"
	"errors"
	"time"
)

// Record type constants follow the pattern blobstream.<type>.v<version>.
const (
	// TypeStart identifies the record emitted once a download session is
	// open and sized.
	TypeStart = "blobstream.start.v1"

	// TypeProgress identifies periodic progress updates.
	TypeProgress = "blobstream.progress.v1"

	// TypeResult identifies the final per-job result.
	TypeResult = "blobstream.result.v1"

	// TypeError identifies error records.
	TypeError = "blobstream.error.v1"
)

// Record is the envelope for all JSONL output.
type Record struct {
	// Type identifies the record type (e.g. "blobstream.start.v1").
	Type string `json:"type"`

	// TS is when the record was created (RFC3339Nano, UTC).
	TS time.Time `json:"ts"`

	// JobID correlates all records of one download job.
	JobID string `json:"job_id"`

	// Data is the type-specific payload.
	Data json.RawMessage `json:"data"`
}

// StartRecord is emitted after the initial request resolves the object.
type StartRecord struct {
	Bucket       string `json:"bucket"`
	Key          string `json:"key"`
	Size         int64  `json:"size"`
	FileSize     int64  `json:"file_size"`
	ETag         string `json:"etag,omitempty"`
	ContentRange string `json:"content_range,omitempty"`
	ContentType  string `json:"content_type,omitempty"`
}

// ProgressRecord reports cumulative download progress.
type ProgressRecord struct {
	BytesDone  int64 `json:"bytes_done"`
	BytesTotal int64 `json:"bytes_total"`
}

// ResultRecord is the final payload for a completed job.
type ResultRecord struct {
	Bucket        string        `json:"bucket"`
	Key           string        `json:"key"`
	Dest          string        `json:"dest,omitempty"`
	Bytes         int64         `json:"bytes"`
	Duration      time.Duration `json:"duration_ns"`
	DurationHuman string        `json:"duration"`
}

// ErrorRecord reports a failed job without aborting the whole batch.
type ErrorRecord struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Key is the object key the error relates to, if applicable.
	Key string `json:"key,omitempty"`
}

// Error codes for ErrorRecord.
const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeAccessDenied        = "ACCESS_DENIED"
	ErrCodePreconditionFailed  = "PRECONDITION_FAILED"
	ErrCodeRangeNotSatisfiable = "RANGE_NOT_SATISFIABLE"
	ErrCodeThrottled           = "THROTTLED"
	ErrCodeInternal            = "INTERNAL"
)

// ErrWriterClosed is returned when writing to a closed writer.
var ErrWriterClosed = errors.New("writer is closed")

// WriteError wraps errors raised while emitting a record.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
