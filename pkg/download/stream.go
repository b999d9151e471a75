package download

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/3leaps/blobstream/pkg/blobcrypt"
	"github.com/3leaps/blobstream/pkg/blobrange"
	"github.com/3leaps/blobstream/pkg/source"
)

type readMode int

const (
	modeUnset readMode = iota
	modeBytes
	modeText
)

// Properties describes the downloaded object. When only a range of the
// object is being downloaded, Size and ContentRange reflect the window,
// not the whole object.
type Properties struct {
	Name         string
	Container    string
	Size         int64
	FileSize     int64
	ETag         string
	ContentRange string
	ContentType  string
	LastModified time.Time
	Kind         source.ObjectKind
	Metadata     map[string]string
}

// Downloader is a pull-based stream over one object download session.
//
// A Downloader is created by New, which performs the mandatory initial
// request. It is not safe for concurrent use: one consumer drives it via
// Read/ReadChars/ReadAll/ReadInto/Chunks, and the engine parallelizes
// fetches internally.
type Downloader struct {
	client source.RangeClient
	opts   Options
	log    *zap.Logger

	name      string
	container string
	props     *Properties

	// size is the logical byte count of the requested window; fileSize the
	// logical size of the whole object. Both fixed once setup completes.
	size     int64
	fileSize int64

	// downloadStart is the logical offset of the window within the object;
	// endRange the inclusive requested end, nil for "to the end".
	downloadStart int64
	endRange      *int64

	encMeta  *blobcrypt.Metadata
	nonEmpty []blobrange.Range
	location string

	// condMu guards the if-match pin, which concurrent chunk fetches
	// refresh to the last observed ETag.
	condMu  sync.Mutex
	ifMatch string

	// currentContent holds the most recently downloaded (and decrypted,
	// and in text mode decoded) chunk not yet fully consumed.
	currentContent       []byte
	currentContentOffset int64

	// downloadOffset counts logical bytes produced; rawDownloadOffset wire
	// bytes consumed; readOffset logical bytes delivered to the consumer.
	downloadOffset    int64
	rawDownloadOffset int64
	readOffset        int64

	firstChunk bool
	mode       readMode
	decoder    *textDecoder
}

// New opens a download session: it resolves encryption metadata when
// decryption is configured, issues the initial request, discovers the total
// object size, and buffers the first chunk.
func New(ctx context.Context, client source.RangeClient, opts Options) (*Downloader, error) {
	opts.applyDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	d := &Downloader{
		client:        client,
		opts:          opts,
		log:           opts.Logger,
		name:          opts.Name,
		container:     opts.Container,
		downloadStart: opts.Offset,
		ifMatch:       opts.IfMatch,
		firstChunk:    true,
	}
	if opts.Count > 0 {
		end := opts.Offset + opts.Count - 1
		d.endRange = &end
	}

	if opts.Decrypter != nil {
		pg, ok := client.(source.PropertyGetter)
		if !ok {
			return nil, ErrPropertiesUnsupported
		}
		resp, err := pg.Properties(ctx)
		if err != nil {
			return nil, err
		}
		// Nil on absent or unparseable metadata; a corrupt envelope fails
		// at decrypt time instead.
		d.encMeta = blobcrypt.ParseMetadata(resp.Metadata)
	}

	if err := d.setup(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Name returns the object name.
func (d *Downloader) Name() string { return d.name }

// Container returns the container or bucket name.
func (d *Downloader) Container() string { return d.container }

// Size returns the logical size of the download window.
func (d *Downloader) Size() int64 { return d.size }

// FileSize returns the logical size of the whole object.
func (d *Downloader) FileSize() int64 { return d.fileSize }

// Properties returns the object properties captured by the initial request.
func (d *Downloader) Properties() *Properties { return d.props }

func (d *Downloader) setup(ctx context.Context) error {
	firstGetSize := d.opts.MaxSingleGetSize
	if d.opts.ValidateContent {
		// Transactional checksums are only served for chunk-sized ranges.
		firstGetSize = d.opts.MaxChunkGetSize
	}

	initialStart := d.downloadStart
	initialEnd := initialStart + firstGetSize - 1
	if d.endRange != nil && *d.endRange-initialStart < firstGetSize {
		initialEnd = *d.endRange
	}

	wire, off := blobcrypt.AdjustRange(blobrange.New(initialStart, initialEnd), d.encMeta)

	resp, err := d.client.Fetch(ctx, source.FetchRequest{
		Range:           &wire,
		ValidateContent: d.opts.ValidateContent,
		IfMatch:         d.currentCondition(),
	})
	if err != nil {
		if source.IsRangeNotSatisfiable(err) && !d.opts.rangeRequested() {
			// A range GET fails against an empty object. The caller did not
			// restrict the range, so retry without one to pick up the
			// object's properties.
			return d.setupEmpty(ctx)
		}
		return err
	}

	total, err := blobrange.ParseContentRange(resp.ContentRange)
	if err != nil {
		_ = resp.Body.Close()
		return err
	}
	d.fileSize = blobcrypt.AdjustSize(total, d.encMeta)

	if d.endRange != nil {
		d.size = min64(d.fileSize-d.downloadStart, *d.endRange-d.downloadStart+1)
	} else {
		d.size = d.fileSize - d.downloadStart
	}

	raw, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return fmt.Errorf("read initial body: %w", err)
	}

	data := raw
	if d.opts.Decrypter != nil {
		data, err = d.opts.Decrypter.Decrypt(raw, off, d.encMeta, resp.Header)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDecrypt, err)
		}
	}
	d.currentContent = data
	d.downloadOffset += int64(len(data))
	d.rawDownloadOffset += resp.ContentLength

	// Sparse objects report their non-empty regions; best effort, losing
	// the map only disables the zero-fill optimization.
	if resp.Kind == source.ObjectKindSparse {
		if lister, ok := d.client.(source.SparseRangeLister); ok {
			ranges, rerr := lister.NonEmptyRanges(ctx)
			if rerr != nil {
				d.log.Debug("sparse range map unavailable", zap.Error(rerr))
			} else {
				d.nonEmpty = ranges
			}
		}
	}

	d.captureProperties(resp)
	if !d.complete() {
		d.setPin(resp.ETag)
	}

	d.log.Debug("download session initialized",
		zap.Int64("size", d.size),
		zap.Int64("file_size", d.fileSize),
		zap.Int64("buffered", int64(len(d.currentContent))))
	return nil
}

func (d *Downloader) setupEmpty(ctx context.Context) error {
	resp, err := d.client.Fetch(ctx, source.FetchRequest{
		ValidateContent: d.opts.ValidateContent,
	})
	if err != nil {
		return err
	}
	if resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}
	d.size = 0
	d.fileSize = 0
	d.currentContent = nil
	d.captureProperties(resp)
	return nil
}

func (d *Downloader) captureProperties(resp *source.FetchResponse) {
	props := &Properties{
		Name:         d.name,
		Container:    d.container,
		Size:         d.size,
		FileSize:     d.fileSize,
		ETag:         resp.ETag,
		ContentType:  resp.ContentType,
		LastModified: resp.LastModified,
		Kind:         resp.Kind,
		Metadata:     resp.Metadata,
	}
	if d.fileSize > 0 {
		end := d.fileSize - 1
		if d.endRange != nil {
			end = *d.endRange
		}
		// The response's content-range covers the initial request only;
		// report the whole window instead.
		props.ContentRange = fmt.Sprintf("bytes %d-%d/%d", d.downloadStart, end, d.fileSize)
	}
	d.props = props
	d.location = resp.Location
}

// complete reports whether every byte of the window has been downloaded.
// v1-style encryption pads the wire size, so completion tracks the raw
// offset there; otherwise the logical offset is authoritative.
func (d *Downloader) complete() bool {
	if d.encMeta.LogicalCompletion() {
		return d.downloadOffset >= d.size
	}
	return d.rawDownloadOffset >= d.size
}

func (d *Downloader) currentCondition() string {
	d.condMu.Lock()
	defer d.condMu.Unlock()
	return d.ifMatch
}

func (d *Downloader) setPin(etag string) {
	if etag == "" {
		return
	}
	d.condMu.Lock()
	d.ifMatch = etag
	d.condMu.Unlock()
}

// remainderPlan covers everything downloaded so far to the window end.
func (d *Downloader) remainderPlan() *blobrange.Plan {
	return &blobrange.Plan{
		TotalSize: d.size,
		ChunkSize: d.opts.MaxChunkGetSize,
		Start:     d.downloadStart + d.downloadOffset,
		End:       d.downloadStart + d.size,
		NonEmpty:  d.nonEmpty,
	}
}

func (d *Downloader) newChunkDownloader(plan *blobrange.Plan, progressStart int64, parallel bool) *chunkDownloader {
	return &chunkDownloader{
		client:        d.client,
		plan:          plan,
		validate:      d.opts.ValidateContent,
		encMeta:       d.encMeta,
		decrypter:     d.opts.Decrypter,
		condition:     d.currentCondition,
		pin:           d.setPin,
		location:      d.location,
		progress:      d.opts.Progress,
		totalSize:     d.size,
		parallel:      parallel,
		progressTotal: progressStart,
		log:           d.log,
	}
}

// reportChunkProgress fires the progress callback once the buffered chunk
// has been fully consumed, so progress is reported per chunk, not per byte.
func (d *Downloader) reportChunkProgress() {
	if d.opts.Progress != nil && d.currentContentOffset == int64(len(d.currentContent)) {
		d.opts.Progress(d.downloadOffset, d.size)
	}
}

// completeRead moves every offset to the end of the window.
func (d *Downloader) completeRead() {
	d.downloadOffset = d.size
	d.rawDownloadOffset = d.size
	d.readOffset = d.size
	d.currentContentOffset = int64(len(d.currentContent))
}

// Read delivers up to n bytes from the stream, downloading more chunks as
// needed. n < 0 reads everything remaining; n == 0 returns empty output
// without advancing any offset. An empty result means the stream is
// exhausted.
//
// The first Read fixes the stream in byte mode; mixing with ReadChars is a
// usage error.
func (d *Downloader) Read(ctx context.Context, n int64) ([]byte, error) {
	if d.mode == modeText {
		return nil, ErrTextModeActive
	}
	d.mode = modeBytes

	if n == 0 || (d.complete() && d.currentContentOffset >= int64(len(d.currentContent))) {
		return nil, nil
	}
	readall := n < 0

	var out []byte

	// Serve from the buffered chunk first.
	avail := int64(len(d.currentContent)) - d.currentContentOffset
	take := avail
	if !readall && n < take {
		take = n
	}
	if take > 0 {
		out = append(out, d.currentContent[d.currentContentOffset:d.currentContentOffset+take]...)
		d.currentContentOffset += take
		d.readOffset += take
		d.reportChunkProgress()
	}

	if d.complete() && d.currentContentOffset >= int64(len(d.currentContent)) {
		return out, nil
	}

	if readall {
		// Fan the rest of the window out through the scheduler into an
		// in-memory sink.
		plan := d.remainderPlan()
		d.firstChunk = false
		buf := make([]byte, d.size-d.downloadOffset)
		cd := d.newChunkDownloader(plan, d.readOffset, d.opts.MaxConcurrency > 1)
		cd.writerAt = newSliceWriterAt(buf)
		if err := cd.run(ctx, d.opts.MaxConcurrency); err != nil {
			return nil, err
		}
		out = append(out, buf...)
		d.completeRead()
		return out, nil
	}

	remaining := n - take
	if remaining <= 0 {
		return out, nil
	}

	// Bounded read: pull one chunk at a time in offset order so partial
	// consumption stays precise.
	plan := d.remainderPlan()
	d.firstChunk = false
	cd := d.newChunkDownloader(plan, d.readOffset, false)
	offsets := plan.Offsets()
	for remaining > 0 {
		off, ok := offsets.Next()
		if !ok {
			break
		}
		data, wireLen, err := cd.yieldChunk(ctx, off)
		if err != nil {
			return nil, err
		}
		d.downloadOffset += int64(len(data))
		d.rawDownloadOffset += wireLen
		d.currentContent = data

		take := int64(len(data))
		if remaining < take {
			take = remaining
		}
		out = append(out, data[:take]...)
		d.currentContentOffset = take
		d.readOffset += take
		remaining -= take
		d.reportChunkProgress()
	}
	return out, nil
}

// ReadChars delivers up to chars decoded characters from the stream.
// chars < 0 reads everything remaining. Requires Options.Encoding; the
// first call fixes the stream in text mode. Offsets advance by the UTF-8
// byte length of the decoded characters.
func (d *Downloader) ReadChars(ctx context.Context, chars int) (string, error) {
	if d.opts.Encoding == "" {
		return "", ErrEncodingRequired
	}
	if d.mode == modeBytes {
		return "", ErrByteModeActive
	}
	if d.mode == modeUnset {
		dec, err := newTextDecoder(d.opts.Encoding)
		if err != nil {
			return "", err
		}
		decoded, err := dec.decode(d.currentContent, d.complete())
		if err != nil {
			return "", err
		}
		d.decoder = dec
		d.currentContent = decoded
		d.mode = modeText
	}

	if chars == 0 || (d.complete() && d.currentContentOffset >= int64(len(d.currentContent))) {
		return "", nil
	}
	readall := chars < 0

	var out []byte
	remaining := chars

	// Serve from the buffered (already decoded) chunk first.
	limit := remaining
	if readall {
		limit = -1
	}
	takeBytes, takeRunesCount := takeRunes(d.currentContent[d.currentContentOffset:], limit)
	if takeBytes > 0 {
		out = append(out, d.currentContent[d.currentContentOffset:d.currentContentOffset+takeBytes]...)
		d.currentContentOffset += takeBytes
		d.readOffset += takeBytes
		d.reportChunkProgress()
	}
	if !readall {
		remaining -= takeRunesCount
	}

	if (readall || remaining > 0) && !d.complete() {
		plan := d.remainderPlan()
		d.firstChunk = false
		cd := d.newChunkDownloader(plan, d.readOffset, false)
		offsets := plan.Offsets()
		for readall || remaining > 0 {
			off, ok := offsets.Next()
			if !ok {
				break
			}
			data, wireLen, err := cd.yieldChunk(ctx, off)
			if err != nil {
				return "", err
			}
			d.downloadOffset += int64(len(data))
			d.rawDownloadOffset += wireLen

			decoded, derr := d.decoder.decode(data, d.complete())
			if derr != nil {
				return "", derr
			}
			d.currentContent = decoded

			limit := remaining
			if readall {
				limit = -1
			}
			takeBytes, takeRunesCount := takeRunes(decoded, limit)
			out = append(out, decoded[:takeBytes]...)
			d.currentContentOffset = takeBytes
			d.readOffset += takeBytes
			if !readall {
				remaining -= takeRunesCount
			}
			d.reportChunkProgress()
		}
	}

	return string(out), nil
}

// ReadAll reads the entire remaining contents of the stream as bytes and
// leaves the session complete.
func (d *Downloader) ReadAll(ctx context.Context) ([]byte, error) {
	return d.Read(ctx, -1)
}

// ReadAllText reads the entire remaining contents of the stream decoded as
// text. Requires Options.Encoding.
func (d *Downloader) ReadAllText(ctx context.Context) (string, error) {
	return d.ReadChars(ctx, -1)
}

// ReadInto writes all remaining bytes into dst and returns the count. When
// MaxConcurrency > 1, dst must also implement io.WriterAt so chunks
// completing out of order can land at their own offsets; chunk positions
// are resolved against dst's current position when it implements
// io.Seeker, otherwise against offset zero. Disallowed once the stream is
// in text mode.
func (d *Downloader) ReadInto(ctx context.Context, dst io.Writer) (int64, error) {
	if d.mode == modeText {
		return 0, ErrTextModeActive
	}

	parallel := d.opts.MaxConcurrency > 1
	var wa io.WriterAt
	if parallel {
		var ok bool
		wa, ok = dst.(io.WriterAt)
		if !ok {
			return 0, ErrSinkNotRandomAccess
		}
	}

	remainingSize := d.size - d.readOffset
	if remainingSize <= 0 {
		return 0, nil
	}

	// Flush the buffered chunk to the sink.
	var written int64
	if cur := d.currentContent[d.currentContentOffset:]; len(cur) > 0 {
		n, err := dst.Write(cur)
		written += int64(n)
		d.currentContentOffset += int64(n)
		d.readOffset += int64(n)
		if err != nil {
			return written, err
		}
	}
	if d.opts.Progress != nil {
		d.opts.Progress(d.readOffset, d.size)
	}

	if d.complete() {
		return remainingSize, nil
	}

	var base int64
	if parallel {
		if sk, ok := dst.(io.Seeker); ok {
			if pos, err := sk.Seek(0, io.SeekCurrent); err == nil {
				base = pos
			}
		}
	}

	plan := &blobrange.Plan{
		TotalSize: d.size,
		ChunkSize: d.opts.MaxChunkGetSize,
		Start:     d.downloadStart + d.readOffset,
		End:       d.downloadStart + d.size,
		NonEmpty:  d.nonEmpty,
	}
	d.firstChunk = false

	cd := d.newChunkDownloader(plan, d.readOffset, parallel)
	if parallel {
		cd.writerAt = wa
		cd.sinkBase = base
	} else {
		cd.writer = dst
	}

	if err := cd.run(ctx, d.opts.MaxConcurrency); err != nil {
		return written, err
	}
	d.completeRead()
	return remainingSize, nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
