// Package blobcrypt defines the integration points for transparent
// client-side decryption of downloaded objects: persisted encryption
// metadata, the range adjustments it requires, and the Decrypter interface
// implemented by external providers.
//
// The package performs no cryptography itself. It knows how encrypted
// objects are laid out on the wire so that the download engine can fetch
// exactly the ciphertext needed for a logical window.
package blobcrypt

import (
	"encoding/json"
	"net/http"
)

// MetadataKey is the object metadata key under which encryption parameters
// are persisted as JSON.
const MetadataKey = "encryptiondata"

// Protocol versions for the supported envelope layouts.
const (
	// ProtocolV1 is a block-cipher layout: ciphertext is block-aligned and
	// each block's IV is the preceding ciphertext block.
	ProtocolV1 = "1.0"

	// ProtocolV2 is an authenticated-region layout: plaintext is split into
	// fixed-size regions, each stored with a nonce and authentication tag.
	ProtocolV2 = "2.0"
)

// DefaultBlockSize is the cipher block size assumed for v1 metadata that
// does not carry one explicitly.
const DefaultBlockSize = 16

// Metadata holds the per-object encryption parameters parsed from object
// metadata. It is immutable once parsed.
type Metadata struct {
	Protocol  string
	Algorithm string

	// BlockSize is the cipher block size in bytes (v1 layouts).
	BlockSize int64

	// RegionDataLength is the plaintext bytes per encrypted region and
	// RegionOverhead the extra wire bytes (nonce + tag) per region
	// (v2 layouts).
	RegionDataLength int64
	RegionOverhead   int64
}

// wireMetadata is the persisted JSON shape.
type wireMetadata struct {
	Protocol  string `json:"protocol"`
	Algorithm string `json:"algorithm"`
	BlockSize int64  `json:"blockSize,omitempty"`
	Region    *struct {
		DataLength  int64 `json:"dataLength"`
		NonceLength int64 `json:"nonceLength"`
		TagLength   int64 `json:"tagLength"`
	} `json:"region,omitempty"`
}

// ParseMetadata extracts encryption parameters from object metadata.
//
// Returns nil when the object carries no encryption metadata or when the
// metadata cannot be parsed: the definitive error for a corrupt envelope
// surfaces at decrypt time, not here.
func ParseMetadata(objectMeta map[string]string) *Metadata {
	raw, ok := objectMeta[MetadataKey]
	if !ok || raw == "" {
		return nil
	}

	var wm wireMetadata
	if err := json.Unmarshal([]byte(raw), &wm); err != nil {
		return nil
	}

	md := &Metadata{
		Protocol:  wm.Protocol,
		Algorithm: wm.Algorithm,
		BlockSize: wm.BlockSize,
	}

	switch wm.Protocol {
	case ProtocolV1:
		if md.BlockSize <= 0 {
			md.BlockSize = DefaultBlockSize
		}
	case ProtocolV2:
		if wm.Region == nil || wm.Region.DataLength <= 0 {
			return nil
		}
		md.RegionDataLength = wm.Region.DataLength
		md.RegionOverhead = wm.Region.NonceLength + wm.Region.TagLength
	default:
		return nil
	}

	return md
}

// V2 reports whether the metadata describes a v2 (authenticated-region)
// layout.
func (m *Metadata) V2() bool {
	return m != nil && m.Protocol == ProtocolV2
}

// LogicalCompletion reports whether download completion should be judged
// against the logical (post-decryption) offset. v1 layouts pad the wire
// size, so completion there tracks the raw offset instead.
func (m *Metadata) LogicalCompletion() bool {
	return m == nil || m.Protocol == ProtocolV2
}

// Offsets is an inclusive index pair into a decrypted chunk body marking
// the bytes that belong to the caller's logical window. Fetching ciphertext
// aligned to block or region boundaries may pull in extra leading and
// trailing plaintext; Offsets says what to keep.
type Offsets struct {
	Start int64
	End   int64
}

// Decrypter decrypts wire bytes fetched for one chunk. Implementations are
// external to this module; they receive the raw body, the offsets of the
// logical window within the decrypted result, the parsed metadata, and the
// response headers (for envelope parameters carried per-request).
//
// The returned plaintext must be trimmed to the logical window described
// by off.
type Decrypter interface {
	Decrypt(wire []byte, off Offsets, md *Metadata, header http.Header) ([]byte, error)
}

// Trim cuts a decrypted body down to the logical window described by off.
// It is a convenience for Decrypter implementations.
func Trim(plain []byte, off Offsets) []byte {
	if off.Start < 0 || off.Start > int64(len(plain)) {
		return nil
	}
	end := off.End + 1
	if end > int64(len(plain)) {
		end = int64(len(plain))
	}
	if end <= off.Start {
		return nil
	}
	return plain[off.Start:end]
}
