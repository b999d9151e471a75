package download

import (
	"fmt"
	"io"
)

// sliceWriterAt adapts a preallocated byte slice to io.WriterAt so concurrent
// chunk fetches can land at their own offsets.
type sliceWriterAt struct {
	buf []byte
}

func newSliceWriterAt(buf []byte) *sliceWriterAt {
	return &sliceWriterAt{buf: buf}
}

func (w *sliceWriterAt) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(w.buf)) {
		return 0, fmt.Errorf("write at offset %d outside buffer of %d bytes", off, len(w.buf))
	}
	n := copy(w.buf[off:], p)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

var _ io.WriterAt = (*sliceWriterAt)(nil)
