package output

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Writer emits JSONL records for a download job.
//
// Implementations must be safe for concurrent use; each Write* method
// emits one complete line.
type Writer interface {
	WriteStart(ctx context.Context, start *StartRecord) error
	WriteProgress(ctx context.Context, prog *ProgressRecord) error
	WriteResult(ctx context.Context, res *ResultRecord) error
	WriteError(ctx context.Context, rec *ErrorRecord) error

	// Close marks the writer closed. The underlying io.Writer is not
	// closed; the caller owns it.
	Close() error
}

// JSONLWriter writes records as newline-delimited JSON. Writes are
// serialized with a mutex so lines never interleave.
type JSONLWriter struct {
	w     io.Writer
	jobID string

	mu     sync.Mutex
	closed bool
}

// NewJSONLWriter creates a writer that stamps every record with jobID.
func NewJSONLWriter(w io.Writer, jobID string) *JSONLWriter {
	return &JSONLWriter{w: w, jobID: jobID}
}

func (jw *JSONLWriter) WriteStart(ctx context.Context, start *StartRecord) error {
	return jw.writeRecord(ctx, TypeStart, start)
}

func (jw *JSONLWriter) WriteProgress(ctx context.Context, prog *ProgressRecord) error {
	return jw.writeRecord(ctx, TypeProgress, prog)
}

func (jw *JSONLWriter) WriteResult(ctx context.Context, res *ResultRecord) error {
	return jw.writeRecord(ctx, TypeResult, res)
}

func (jw *JSONLWriter) WriteError(ctx context.Context, rec *ErrorRecord) error {
	return jw.writeRecord(ctx, TypeError, rec)
}

func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	jw.closed = true
	return nil
}

func (jw *JSONLWriter) writeRecord(ctx context.Context, recordType string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dataBytes, err := json.Marshal(data)
	if err != nil {
		return &WriteError{Op: "marshal_data", Err: err}
	}

	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.closed {
		return ErrWriterClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	record := Record{
		Type:  recordType,
		TS:    time.Now().UTC(),
		JobID: jw.jobID,
		Data:  dataBytes,
	}
	recordBytes, err := json.Marshal(record)
	if err != nil {
		return &WriteError{Op: "marshal_record", Err: err}
	}

	// io.Writer may return a short write with nil error; loop so complete
	// lines always reach the sink.
	recordBytes = append(recordBytes, '\n')
	if err := writeAll(jw.w, recordBytes); err != nil {
		return &WriteError{Op: "write", Err: err}
	}
	return nil
}

func writeAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}

var _ Writer = (*JSONLWriter)(nil)
