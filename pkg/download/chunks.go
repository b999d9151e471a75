package download

import (
	"context"
	"io"

	"github.com/3leaps/blobstream/pkg/blobrange"
)

// Chunks returns an iterator over the window's chunks in offset order.
// The iterator has its own cursor: it re-serves content already buffered by
// the initial request but is otherwise independent of Read's position.
// Disallowed once the stream is in text mode.
func (d *Downloader) Chunks() (*ChunkIterator, error) {
	if d.mode == modeText {
		return nil, ErrTextModeActive
	}

	it := &ChunkIterator{
		size:      d.size,
		chunkSize: d.opts.MaxChunkGetSize,
		complete:  d.size == 0,
	}

	if !d.firstChunk || !d.complete() {
		start := d.downloadStart
		var progress int64
		if d.firstChunk {
			// The initial request's content is handed to the iterator, so
			// the plan picks up after it.
			start += int64(len(d.currentContent))
			progress = int64(len(d.currentContent))
		}
		plan := &blobrange.Plan{
			TotalSize: d.size,
			ChunkSize: d.opts.MaxChunkGetSize,
			Start:     start,
			End:       d.downloadStart + d.size,
			NonEmpty:  d.nonEmpty,
		}
		it.dl = d.newChunkDownloader(plan, progress, false)
	}
	if d.firstChunk {
		it.current = append([]byte(nil), d.currentContent...)
	}
	return it, nil
}

// ChunkIterator yields the raw chunks of a download window one at a time.
// Every chunk except possibly the last has exactly chunkSize bytes.
type ChunkIterator struct {
	size      int64
	chunkSize int64
	current   []byte
	dl        *chunkDownloader
	offsets   *blobrange.OffsetIter
	complete  bool
}

// Size returns the total logical size being iterated.
func (it *ChunkIterator) Size() int64 { return it.size }

// Next returns the next chunk, or io.EOF once the window is exhausted.
func (it *ChunkIterator) Next(ctx context.Context) ([]byte, error) {
	if it.complete {
		return nil, io.EOF
	}

	// Everything was buffered up front; slice it out chunk by chunk.
	if it.dl == nil {
		if int64(len(it.current)) > it.chunkSize {
			return it.cut(), nil
		}
		it.complete = true
		if len(it.current) == 0 {
			return nil, io.EOF
		}
		out := it.current
		it.current = nil
		return out, nil
	}

	if it.offsets == nil {
		it.offsets = it.dl.plan.Offsets()
	}
	if int64(len(it.current)) >= it.chunkSize {
		return it.cut(), nil
	}

	off, ok := it.offsets.Next()
	if !ok {
		it.complete = true
		if len(it.current) > 0 {
			out := it.current
			it.current = nil
			return out, nil
		}
		return nil, io.EOF
	}

	data, _, err := it.dl.yieldChunk(ctx, off)
	if err != nil {
		return nil, err
	}
	it.current = append(it.current, data...)
	return it.cut(), nil
}

func (it *ChunkIterator) cut() []byte {
	n := it.chunkSize
	if int64(len(it.current)) < n {
		n = int64(len(it.current))
	}
	out := it.current[:n:n]
	it.current = it.current[n:]
	return out
}
