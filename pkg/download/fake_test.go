package download

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/3leaps/blobstream/pkg/blobrange"
	"github.com/3leaps/blobstream/pkg/source"
)

type fetchRecord struct {
	rng      *blobrange.Range
	ifMatch  string
	location string
}

// fakeClient serves an in-memory object as a source.RangeClient and records
// every fetch for assertions.
type fakeClient struct {
	mu sync.Mutex

	data     []byte
	etag     string
	kind     source.ObjectKind
	metadata map[string]string
	nonEmpty []blobrange.Range

	// delay stretches each fetch so concurrency can be observed.
	delay time.Duration

	// failStarts fails any fetch whose range begins at the given offset.
	failStarts map[int64]error

	// mutateETagAfter simulates an overwrite: fetches after the Nth serve a
	// different ETag.
	mutateETagAfter int

	fetches     []fetchRecord
	propCalls   int
	rangeCalls  int
	inflight    int
	maxInflight int
}

func (f *fakeClient) Fetch(_ context.Context, req source.FetchRequest) (*source.FetchResponse, error) {
	f.mu.Lock()
	var rng *blobrange.Range
	if req.Range != nil {
		r := *req.Range
		rng = &r
	}
	f.fetches = append(f.fetches, fetchRecord{rng: rng, ifMatch: req.IfMatch, location: req.Location})
	seq := len(f.fetches)
	etag := f.etag
	if f.mutateETagAfter > 0 && seq > f.mutateETagAfter {
		etag = f.etag + "-mutated"
	}
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	defer func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}()

	if req.IfMatch != "" && req.IfMatch != etag {
		return nil, &source.SourceError{Op: "fetch", Err: source.ErrPreconditionFailed}
	}

	if req.Range == nil {
		return f.respond(f.data, "", etag), nil
	}
	if f.failStarts != nil {
		if err, ok := f.failStarts[req.Range.Start]; ok {
			return nil, err
		}
	}
	if len(f.data) == 0 || req.Range.Start >= int64(len(f.data)) {
		return nil, &source.SourceError{Op: "fetch", Err: source.ErrRangeNotSatisfiable}
	}

	start, end := req.Range.Start, req.Range.End
	if end >= int64(len(f.data)) {
		end = int64(len(f.data)) - 1
	}
	body := f.data[start : end+1]
	cr := fmt.Sprintf("bytes %d-%d/%d", start, end, len(f.data))
	return f.respond(body, cr, etag), nil
}

func (f *fakeClient) Properties(context.Context) (*source.FetchResponse, error) {
	f.mu.Lock()
	f.propCalls++
	f.mu.Unlock()
	resp := f.respond(nil, "", f.etag)
	resp.Body = nil
	return resp, nil
}

func (f *fakeClient) NonEmptyRanges(context.Context) ([]blobrange.Range, error) {
	f.mu.Lock()
	f.rangeCalls++
	f.mu.Unlock()
	return f.nonEmpty, nil
}

func (f *fakeClient) respond(body []byte, contentRange, etag string) *source.FetchResponse {
	kind := f.kind
	if kind == "" {
		kind = source.ObjectKindBasic
	}
	return &source.FetchResponse{
		ContentLength: int64(len(body)),
		ContentRange:  contentRange,
		ETag:          etag,
		Kind:          kind,
		ContentType:   "application/octet-stream",
		Metadata:      f.metadata,
		Header:        http.Header{},
		Body:          io.NopCloser(bytes.NewReader(body)),
	}
}

func (f *fakeClient) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetches)
}

func (f *fakeClient) fetchAt(i int) fetchRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[i]
}

// rangeOnlyClient hides the fake's property and sparse capabilities.
type rangeOnlyClient struct {
	inner *fakeClient
}

func (c rangeOnlyClient) Fetch(ctx context.Context, req source.FetchRequest) (*source.FetchResponse, error) {
	return c.inner.Fetch(ctx, req)
}

func patternBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}
