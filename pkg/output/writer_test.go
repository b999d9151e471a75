package output

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []Record {
	t.Helper()
	var records []Record
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var r Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		records = append(records, r)
	}
	require.NoError(t, sc.Err())
	return records
}

func TestJSONLWriterRecords(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-1")
	ctx := context.Background()

	require.NoError(t, w.WriteStart(ctx, &StartRecord{
		Bucket: "b", Key: "k", Size: 100, FileSize: 100, ETag: "e",
	}))
	require.NoError(t, w.WriteProgress(ctx, &ProgressRecord{BytesDone: 50, BytesTotal: 100}))
	require.NoError(t, w.WriteResult(ctx, &ResultRecord{Bucket: "b", Key: "k", Bytes: 100}))
	require.NoError(t, w.WriteError(ctx, &ErrorRecord{Code: ErrCodeNotFound, Message: "gone", Key: "k"}))

	records := decodeLines(t, &buf)
	require.Len(t, records, 4)

	assert.Equal(t, TypeStart, records[0].Type)
	assert.Equal(t, TypeProgress, records[1].Type)
	assert.Equal(t, TypeResult, records[2].Type)
	assert.Equal(t, TypeError, records[3].Type)

	for _, r := range records {
		assert.Equal(t, "job-1", r.JobID)
		assert.False(t, r.TS.IsZero())
	}

	var start StartRecord
	require.NoError(t, json.Unmarshal(records[0].Data, &start))
	assert.Equal(t, "b", start.Bucket)
	assert.Equal(t, int64(100), start.Size)

	var er ErrorRecord
	require.NoError(t, json.Unmarshal(records[3].Data, &er))
	assert.Equal(t, ErrCodeNotFound, er.Code)
}

func TestJSONLWriterClosed(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-1")
	require.NoError(t, w.Close())

	err := w.WriteProgress(context.Background(), &ProgressRecord{})
	assert.ErrorIs(t, err, ErrWriterClosed)
}

func TestJSONLWriterCancelledContext(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.WriteProgress(ctx, &ProgressRecord{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, buf.Len())
}

func TestJSONLWriterConcurrentLinesIntact(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "job-1")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			_ = w.WriteProgress(ctx, &ProgressRecord{BytesDone: n, BytesTotal: 10})
		}(int64(i))
	}
	wg.Wait()

	records := decodeLines(t, &buf)
	assert.Len(t, records, 10)
}
