package blobrange

// Plan describes how a logical window is split into bounded-size chunks.
//
// Start is inclusive and End is exclusive, both in logical coordinates.
// TotalSize is the logical size of the whole requested window (used for
// progress reporting, not for chunk math). NonEmpty, when present, lists
// the wire sub-ranges known to contain non-zero data; chunks wholly
// outside those ranges may be zero-filled without a fetch.
type Plan struct {
	TotalSize int64
	ChunkSize int64
	Start     int64
	End       int64
	NonEmpty  []Range
}

// Offsets returns a lazy sequence of chunk start offsets covering
// [Start, End) in steps of ChunkSize.
func (p *Plan) Offsets() *OffsetIter {
	return &OffsetIter{next: p.Start, end: p.End, step: p.ChunkSize}
}

// ChunkRange returns the inclusive logical range of the chunk beginning at
// start. Every chunk is ChunkSize bytes except the final one, which is
// clamped to the window end.
func (p *Plan) ChunkRange(start int64) Range {
	end := start + p.ChunkSize
	if end > p.End {
		end = p.End
	}
	return Range{Start: start, End: end - 1}
}

// OffsetIter yields successive chunk start offsets. It is not safe for
// concurrent use; the scheduler pulls from it on a single goroutine.
type OffsetIter struct {
	next int64
	end  int64
	step int64
}

// Next returns the next chunk start offset, or false when the plan is
// exhausted.
func (it *OffsetIter) Next() (int64, bool) {
	if it.step <= 0 || it.next >= it.end {
		return 0, false
	}
	off := it.next
	it.next += it.step
	return off, true
}
