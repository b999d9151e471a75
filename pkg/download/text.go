package download

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// textDecoder incrementally decodes downloaded bytes into UTF-8 text.
// Chunk boundaries do not align with character boundaries, so bytes that
// end mid-character are carried into the next decode call.
type textDecoder struct {
	tr      transform.Transformer
	pending []byte
}

func newTextDecoder(name string) (*textDecoder, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return &textDecoder{tr: enc.NewDecoder()}, nil
}

// decode converts p to UTF-8, joining it with any bytes held over from the
// previous call. final must be true once no further input will arrive, so
// a trailing partial character is surfaced as an error instead of silently
// retained.
func (d *textDecoder) decode(p []byte, final bool) ([]byte, error) {
	src := p
	if len(d.pending) > 0 {
		src = append(d.pending, p...)
		d.pending = nil
	}

	out := make([]byte, 0, len(src)+16)
	dst := make([]byte, 1024)
	for {
		nDst, nSrc, err := d.tr.Transform(dst, src, final)
		out = append(out, dst[:nDst]...)
		src = src[nSrc:]

		switch err {
		case nil:
			if len(src) == 0 {
				return out, nil
			}
		case transform.ErrShortDst:
			dst = make([]byte, len(dst)*2)
		case transform.ErrShortSrc:
			if final {
				return nil, fmt.Errorf("decode text: truncated input")
			}
			d.pending = append(d.pending, src...)
			return out, nil
		default:
			return nil, fmt.Errorf("decode text: %w", err)
		}
	}
}

// takeRunes returns the byte length of the first n runes of b, along with
// the number of runes actually available. n < 0 takes everything.
func takeRunes(b []byte, n int) (int64, int) {
	if n < 0 {
		return int64(len(b)), utf8.RuneCount(b)
	}
	var bytes int64
	runes := 0
	for runes < n && bytes < int64(len(b)) {
		_, size := utf8.DecodeRune(b[bytes:])
		bytes += int64(size)
		runes++
	}
	return bytes, runes
}
