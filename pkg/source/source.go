// Package source defines the narrow interface the download engine consumes
// from an object store: a range-capable fetch operation plus optional
// capabilities for property-only reads and sparse range maps.
//
// Implementations wrap a concrete store SDK (see pkg/source/s3) and are
// responsible for authentication, retries and redirects. The engine never
// retries a fetch itself.
package source

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/3leaps/blobstream/pkg/blobrange"
)

// ObjectKind discriminates object layouts that affect download strategy.
type ObjectKind string

const (
	// ObjectKindBasic is an ordinary contiguous object.
	ObjectKindBasic ObjectKind = "basic"

	// ObjectKindSparse is a page-style object that may contain known-empty
	// regions. Clients serving sparse objects should also implement
	// SparseRangeLister.
	ObjectKindSparse ObjectKind = "sparse"
)

// FetchRequest describes one range GET.
type FetchRequest struct {
	// Range is the wire byte range to fetch. Nil fetches the entire object.
	Range *blobrange.Range

	// ValidateContent asks the store for a transactional content checksum
	// covering the returned range.
	ValidateContent bool

	// IfMatch makes the fetch conditional on the object's current ETag,
	// failing with ErrPreconditionFailed when the object has changed.
	IfMatch string

	// Location is the location affinity hint returned by a previous fetch
	// of the same object; replaying it keeps a multi-location store reading
	// from a consistent replica.
	Location string

	// TotalHint and ProgressHint carry transfer instrumentation: the total
	// expected size of the enclosing download and the bytes completed so
	// far. Clients may forward them to the transport or ignore them.
	TotalHint    int64
	ProgressHint int64
}

// FetchResponse carries the metadata and body of one range GET.
type FetchResponse struct {
	// ContentLength is the wire length of the returned body.
	ContentLength int64

	// ContentRange is the raw Content-Range header ("bytes a-b/total").
	ContentRange string

	ETag         string
	Kind         ObjectKind
	ContentType  string
	LastModified time.Time

	// Metadata holds the store's user-defined object metadata, including
	// persisted encryption parameters when present.
	Metadata map[string]string

	// Header exposes the raw response headers for collaborators that need
	// per-request envelope parameters (e.g. decryption).
	Header http.Header

	// Location is the replica the response was served from, to be replayed
	// as FetchRequest.Location on subsequent fetches.
	Location string

	// Body is the response body. Nil for property-only responses.
	Body io.ReadCloser
}

// RangeClient is the range-fetch interface consumed by the download engine.
//
// Implementations must surface a range request against an empty object as
// ErrRangeNotSatisfiable (distinct from other failures) so the engine can
// fall back to a property-only read.
type RangeClient interface {
	Fetch(ctx context.Context, req FetchRequest) (*FetchResponse, error)
}

// Optional client capability interfaces, detected by type assertion.

// PropertyGetter can read object properties without a body. Required when
// decryption is configured, since encryption metadata must be known before
// the first range is computed.
type PropertyGetter interface {
	Properties(ctx context.Context) (*FetchResponse, error)
}

// SparseRangeLister reports the sub-ranges of a sparse object that contain
// non-zero data, sorted and disjoint, in wire coordinates.
type SparseRangeLister interface {
	NonEmptyRanges(ctx context.Context) ([]blobrange.Range, error)
}
