package download

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectChunks(t *testing.T, it *ChunkIterator) [][]byte {
	t.Helper()
	var out [][]byte
	for {
		chunk, err := it.Next(context.Background())
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, chunk)
	}
}

func TestChunksIteration(t *testing.T) {
	data := patternBytes(5000)
	client := &fakeClient{data: data, etag: "etag-1"}

	d, err := New(context.Background(), client, Options{
		MaxSingleGetSize: 2000,
		MaxChunkGetSize:  1500,
	})
	require.NoError(t, err)

	it, err := d.Chunks()
	require.NoError(t, err)
	assert.Equal(t, int64(5000), it.Size())

	chunks := collectChunks(t, it)
	require.Len(t, chunks, 4)
	assert.Len(t, chunks[0], 1500)
	assert.Len(t, chunks[1], 1500)
	assert.Len(t, chunks[2], 1500)
	assert.Len(t, chunks[3], 500)

	var joined []byte
	for _, c := range chunks {
		joined = append(joined, c...)
	}
	assert.Equal(t, data, joined)

	// Exhausted iterator stays exhausted.
	_, err = it.Next(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestChunksSmallObjectServedFromBuffer(t *testing.T) {
	data := patternBytes(1200)
	client := &fakeClient{data: data, etag: "etag-1"}

	d, err := New(context.Background(), client, Options{
		MaxSingleGetSize: 4000,
		MaxChunkGetSize:  500,
	})
	require.NoError(t, err)
	require.Equal(t, 1, client.fetchCount())

	it, err := d.Chunks()
	require.NoError(t, err)

	chunks := collectChunks(t, it)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 500)
	assert.Len(t, chunks[1], 500)
	assert.Len(t, chunks[2], 200)

	// Everything came from the initial request's buffer.
	assert.Equal(t, 1, client.fetchCount())
}

func TestChunksEmptyObject(t *testing.T) {
	client := &fakeClient{etag: "etag-1"}

	d, err := New(context.Background(), client, Options{})
	require.NoError(t, err)

	it, err := d.Chunks()
	require.NoError(t, err)
	assert.Equal(t, int64(0), it.Size())

	_, err = it.Next(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestChunksIndependentOfReadCursor(t *testing.T) {
	data := patternBytes(3000)
	client := &fakeClient{data: data, etag: "etag-1"}

	d, err := New(context.Background(), client, Options{
		MaxSingleGetSize: 1000,
		MaxChunkGetSize:  1000,
	})
	require.NoError(t, err)

	// Consume the whole stream via Read first; the iterator still serves
	// the full window from the beginning.
	got, err := d.ReadAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, data, got)

	it, err := d.Chunks()
	require.NoError(t, err)

	chunks := collectChunks(t, it)
	require.Len(t, chunks, 3)

	var joined []byte
	for _, c := range chunks {
		joined = append(joined, c...)
	}
	assert.Equal(t, data, joined)
}
