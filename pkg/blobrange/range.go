// Package blobrange provides the byte-range arithmetic for chunked object
// downloads: inclusive wire ranges, download plans over a logical window,
// and the sparse-region skip rule.
//
// Everything in this package is pure arithmetic. Coordinate spaces matter:
// a logical (plaintext) range must never be compared to a wire (ciphertext)
// range without explicit conversion (see pkg/blobcrypt).
package blobrange

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is an inclusive byte range. Both ends are non-negative and
// Start <= End for any range with at least one byte.
type Range struct {
	Start int64
	End   int64
}

// New returns the inclusive range [start, end].
func New(start, end int64) Range {
	return Range{Start: start, End: end}
}

// Length returns the number of bytes covered by the range.
func (r Range) Length() int64 {
	return r.End - r.Start + 1
}

// String formats the range as an HTTP Range header value, e.g. "bytes=0-1023".
func (r Range) String() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}

// ParseContentRange extracts the total object size from a Content-Range
// response header of the form "bytes 0-1023/146515".
func ParseContentRange(header string) (int64, error) {
	if header == "" {
		return 0, fmt.Errorf("content-range header is missing")
	}
	_, sizePart, ok := strings.Cut(header, "/")
	if !ok {
		return 0, fmt.Errorf("malformed content-range header: %q", header)
	}
	size, err := strconv.ParseInt(strings.TrimSpace(sizePart), 10, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("malformed content-range header: %q", header)
	}
	return size, nil
}
