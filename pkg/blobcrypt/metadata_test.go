package blobcrypt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetadata(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		assert.Nil(t, ParseMetadata(nil))
		assert.Nil(t, ParseMetadata(map[string]string{"other": "value"}))
	})

	t.Run("v1", func(t *testing.T) {
		md := ParseMetadata(map[string]string{
			MetadataKey: `{"protocol":"1.0","algorithm":"AES_CBC_256"}`,
		})
		require.NotNil(t, md)
		assert.Equal(t, ProtocolV1, md.Protocol)
		assert.Equal(t, int64(DefaultBlockSize), md.BlockSize)
		assert.False(t, md.V2())
		assert.False(t, md.LogicalCompletion())
	})

	t.Run("v2", func(t *testing.T) {
		md := ParseMetadata(map[string]string{
			MetadataKey: `{"protocol":"2.0","algorithm":"AES_GCM_256",` +
				`"region":{"dataLength":4194304,"nonceLength":12,"tagLength":16}}`,
		})
		require.NotNil(t, md)
		assert.True(t, md.V2())
		assert.True(t, md.LogicalCompletion())
		assert.Equal(t, int64(4194304), md.RegionDataLength)
		assert.Equal(t, int64(28), md.RegionOverhead)
	})

	t.Run("parse failures yield nil", func(t *testing.T) {
		assert.Nil(t, ParseMetadata(map[string]string{MetadataKey: "{not json"}))
		assert.Nil(t, ParseMetadata(map[string]string{MetadataKey: `{"protocol":"3.0"}`}))
		assert.Nil(t, ParseMetadata(map[string]string{MetadataKey: `{"protocol":"2.0"}`}))
	})

	t.Run("nil metadata completion is logical", func(t *testing.T) {
		var md *Metadata
		assert.False(t, md.V2())
		assert.True(t, md.LogicalCompletion())
	})
}

func TestTrim(t *testing.T) {
	plain := []byte("0123456789abcdef")

	assert.Equal(t, []byte("23456789ab"), Trim(plain, Offsets{Start: 2, End: 11}))
	assert.Equal(t, plain, Trim(plain, Offsets{Start: 0, End: 15}))
	// End beyond the body is clamped.
	assert.Equal(t, []byte("cdef"), Trim(plain, Offsets{Start: 12, End: 100}))
	assert.Nil(t, Trim(plain, Offsets{Start: 20, End: 30}))
}
