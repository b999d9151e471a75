package blobrange

// OutsideNonEmpty reports whether the candidate wire range lies entirely
// outside every known non-empty range. When true, the bytes are known to be
// zero and the fetch can be skipped.
//
// nonEmpty must be sorted by Start and disjoint, as reported by the store.
// A nil slice means the range map is unknown and no skip is possible.
func OutsideNonEmpty(nonEmpty []Range, candidate Range) bool {
	if nonEmpty == nil {
		return false
	}
	for _, ne := range nonEmpty {
		// Ranges are sorted; once the candidate ends before this range
		// starts, no later range can overlap either.
		if candidate.End < ne.Start {
			return true
		}
		if candidate.Start > ne.End {
			continue
		}
		return false
	}
	return true
}
