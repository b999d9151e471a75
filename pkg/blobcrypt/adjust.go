package blobcrypt

import (
	"github.com/3leaps/blobstream/pkg/blobrange"
)

// AdjustRange converts a logical window into the wire range to fetch,
// plus the index pair locating the logical bytes within the decrypted
// response body.
//
// Without encryption (nil metadata) this is the identity mapping. v1
// layouts widen the window to cipher block boundaries and, when the window
// does not start at the object head, fetch one extra leading block to act
// as the IV. v2 layouts widen to whole encrypted regions, each carrying
// its nonce and tag overhead on the wire.
func AdjustRange(logical blobrange.Range, md *Metadata) (blobrange.Range, Offsets) {
	if md == nil {
		return logical, Offsets{Start: 0, End: logical.Length() - 1}
	}

	switch md.Protocol {
	case ProtocolV1:
		bs := md.BlockSize
		wireStart := logical.Start - logical.Start%bs
		if wireStart >= bs {
			// The preceding ciphertext block is the IV for the first
			// block of the window.
			wireStart -= bs
		}
		wireEnd := alignUp(logical.End+1, bs) - 1
		return blobrange.New(wireStart, wireEnd), Offsets{
			Start: logical.Start - wireStart,
			End:   logical.End - wireStart,
		}

	case ProtocolV2:
		dataLen := md.RegionDataLength
		regionLen := dataLen + md.RegionOverhead
		startRegion := logical.Start / dataLen
		endRegion := logical.End / dataLen
		wire := blobrange.New(startRegion*regionLen, (endRegion+1)*regionLen-1)
		return wire, Offsets{
			Start: logical.Start - startRegion*dataLen,
			End:   logical.End - startRegion*dataLen,
		}
	}

	return logical, Offsets{Start: 0, End: logical.Length() - 1}
}

// AdjustSize converts a wire size discovered from a Content-Range header
// back to the logical object size. v2 layouts shed the per-region overhead;
// v1 sizes are reported as-is (block padding is resolved at decrypt time).
func AdjustSize(wireSize int64, md *Metadata) int64 {
	if !md.V2() || wireSize == 0 {
		return wireSize
	}
	regionLen := md.RegionDataLength + md.RegionOverhead
	regions := (wireSize + regionLen - 1) / regionLen
	return wireSize - regions*md.RegionOverhead
}

func alignUp(n, boundary int64) int64 {
	if rem := n % boundary; rem != 0 {
		return n + boundary - rem
	}
	return n
}
