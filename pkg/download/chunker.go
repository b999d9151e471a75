package download

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/3leaps/blobstream/pkg/blobcrypt"
	"github.com/3leaps/blobstream/pkg/blobrange"
	"github.com/3leaps/blobstream/pkg/source"
)

// chunkDownloader fetches the chunks of one download plan. Instances are
// transient: the facade creates one per consuming operation and never
// reuses it.
//
// Results land either in a caller sink (writer/writerAt) at the chunk's
// own offset, or are handed back via yieldChunk for sequential pulls.
type chunkDownloader struct {
	client    source.RangeClient
	plan      *blobrange.Plan
	validate  bool
	encMeta   *blobcrypt.Metadata
	decrypter blobcrypt.Decrypter

	// condition reads the current if-match pin, pin updates it to the ETag
	// observed on a successful chunk. Both are owned by the facade.
	condition func() string
	pin       func(etag string)
	location  string

	// Exactly one of writer/writerAt is set for sink-mode downloads;
	// neither for yield-mode. writerAt implementations must accept
	// concurrent WriteAt calls at disjoint offsets (the io.WriterAt
	// contract), so only progress needs a lock when parallel.
	writer   io.Writer
	writerAt io.WriterAt
	sinkBase int64

	progress      ProgressFunc
	totalSize     int64
	parallel      bool
	mu            sync.Mutex
	progressTotal int64

	log *zap.Logger
}

// processChunk fetches one chunk and writes it into the sink at its offset.
func (c *chunkDownloader) processChunk(ctx context.Context, chunkStart int64) error {
	logical := c.plan.ChunkRange(chunkStart)
	data, _, err := c.fetchChunk(ctx, logical)
	if err != nil {
		return err
	}

	length := logical.Length()
	if length <= 0 {
		return nil
	}
	if err := c.writeChunk(data, chunkStart); err != nil {
		return fmt.Errorf("write chunk at %d: %w", chunkStart, err)
	}
	c.updateProgress(length)
	return nil
}

// yieldChunk fetches one chunk and returns its plaintext plus the wire
// content length, for sequential consumption.
func (c *chunkDownloader) yieldChunk(ctx context.Context, chunkStart int64) ([]byte, int64, error) {
	return c.fetchChunk(ctx, c.plan.ChunkRange(chunkStart))
}

func (c *chunkDownloader) fetchChunk(ctx context.Context, logical blobrange.Range) ([]byte, int64, error) {
	wire, off := blobcrypt.AdjustRange(logical, c.encMeta)

	// Known-empty region: synthesize zeros locally instead of fetching.
	if blobrange.OutsideNonEmpty(c.plan.NonEmpty, wire) {
		n := wire.Length()
		c.log.Debug("chunk in empty region, zero-filling",
			zap.Int64("start", wire.Start),
			zap.Int64("length", n))
		return make([]byte, n), n, nil
	}

	resp, err := c.client.Fetch(ctx, source.FetchRequest{
		Range:           &wire,
		ValidateContent: c.validate,
		IfMatch:         c.condition(),
		Location:        c.location,
		TotalHint:       c.totalSize,
		ProgressHint:    c.progressSnapshot(),
	})
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read chunk body: %w", err)
	}

	data := raw
	if c.decrypter != nil {
		data, err = c.decrypter.Decrypt(raw, off, c.encMeta, resp.Header)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrDecrypt, err)
		}
	}

	// Pin the observed ETag so later chunks fail fast if the object is
	// mutated mid-download.
	c.pin(resp.ETag)

	return data, resp.ContentLength, nil
}

func (c *chunkDownloader) writeChunk(data []byte, chunkStart int64) error {
	if c.writerAt != nil {
		_, err := c.writerAt.WriteAt(data, c.sinkBase+(chunkStart-c.plan.Start))
		return err
	}
	_, err := c.writer.Write(data)
	return err
}

func (c *chunkDownloader) updateProgress(n int64) {
	var total int64
	if c.parallel {
		c.mu.Lock()
		c.progressTotal += n
		total = c.progressTotal
		c.mu.Unlock()
	} else {
		c.progressTotal += n
		total = c.progressTotal
	}
	if c.progress != nil {
		c.progress(total, c.totalSize)
	}
}

func (c *chunkDownloader) progressSnapshot() int64 {
	if c.parallel {
		c.mu.Lock()
		defer c.mu.Unlock()
	}
	return c.progressTotal
}

// run executes the whole plan with at most maxConcurrency chunk fetches in
// flight. The first failure stops further dispatch; chunks already in
// flight are awaited, not cancelled, and the first error is returned.
// Chunks that succeeded remain written to the sink.
func (c *chunkDownloader) run(ctx context.Context, maxConcurrency int) error {
	offsets := c.plan.Offsets()

	if maxConcurrency <= 1 {
		for {
			off, ok := offsets.Next()
			if !ok {
				return nil
			}
			if err := c.processChunk(ctx, off); err != nil {
				return err
			}
		}
	}

	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup
	var failed atomic.Bool
	var once sync.Once
	var firstErr error

	for {
		off, ok := offsets.Next()
		if !ok || failed.Load() {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(start int64) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := c.processChunk(ctx, start); err != nil {
				once.Do(func() { firstErr = err })
				failed.Store(true)
			}
		}(off)
	}

	wg.Wait()
	return firstErr
}
