package blobrange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectOffsets(t *testing.T, p *Plan) []int64 {
	t.Helper()
	var out []int64
	it := p.Offsets()
	for {
		off, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, off)
	}
}

func TestPlan_Offsets(t *testing.T) {
	tests := []struct {
		name string
		plan Plan
		want []int64
	}{
		{"even split", Plan{ChunkSize: 4, Start: 0, End: 12}, []int64{0, 4, 8}},
		{"uneven tail", Plan{ChunkSize: 4, Start: 0, End: 10}, []int64{0, 4, 8}},
		{"single chunk", Plan{ChunkSize: 16, Start: 0, End: 10}, []int64{0}},
		{"offset window", Plan{ChunkSize: 4, Start: 6, End: 14}, []int64{6, 10}},
		{"empty window", Plan{ChunkSize: 4, Start: 10, End: 10}, nil},
		{"zero chunk size", Plan{ChunkSize: 0, Start: 0, End: 10}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, collectOffsets(t, &tt.plan))
		})
	}
}

func TestPlan_ChunkRange(t *testing.T) {
	p := Plan{ChunkSize: 4, Start: 0, End: 10}

	assert.Equal(t, New(0, 3), p.ChunkRange(0))
	assert.Equal(t, New(4, 7), p.ChunkRange(4))
	// Final chunk is clamped to the window end.
	assert.Equal(t, New(8, 9), p.ChunkRange(8))
}

func TestPlan_SplitReassemble(t *testing.T) {
	// Splitting [0, N) into chunks of any size covers every byte exactly once.
	for _, total := range []int64{1, 2, 7, 16, 100, 1023} {
		for _, chunkSize := range []int64{1, 3, 4, 16, 1024} {
			p := Plan{TotalSize: total, ChunkSize: chunkSize, Start: 0, End: total}

			var covered int64
			var prevEnd int64 = -1
			it := p.Offsets()
			for {
				off, ok := it.Next()
				if !ok {
					break
				}
				r := p.ChunkRange(off)
				require.Equal(t, prevEnd+1, r.Start, "total=%d chunk=%d", total, chunkSize)
				covered += r.Length()
				prevEnd = r.End
			}
			require.Equal(t, total, covered, "total=%d chunk=%d", total, chunkSize)
			require.Equal(t, total-1, prevEnd, "total=%d chunk=%d", total, chunkSize)
		}
	}
}
