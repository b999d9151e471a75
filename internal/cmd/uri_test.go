package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		name   string
		uri    string
		bucket string
		key    string
	}{
		{
			name:   "simple key",
			uri:    "s3://archive/data.bin",
			bucket: "archive",
			key:    "data.bin",
		},
		{
			name:   "nested key",
			uri:    "s3://archive/2026/08/data.bin",
			bucket: "archive",
			key:    "2026/08/data.bin",
		},
		{
			name:   "uppercase scheme",
			uri:    "S3://archive/data.bin",
			bucket: "archive",
			key:    "data.bin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseURI(tt.uri)
			require.NoError(t, err)
			assert.Equal(t, "s3", parsed.Scheme)
			assert.Equal(t, tt.bucket, parsed.Bucket)
			assert.Equal(t, tt.key, parsed.Key)
		})
	}
}

func TestParseURIErrors(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		wantErr error
	}{
		{name: "empty", uri: "", wantErr: ErrInvalidURI},
		{name: "no scheme", uri: "bucket/key", wantErr: ErrInvalidURI},
		{name: "wrong scheme", uri: "gs://bucket/key", wantErr: ErrUnsupportedScheme},
		{name: "no bucket", uri: "s3:///key", wantErr: ErrMissingBucket},
		{name: "no key", uri: "s3://bucket", wantErr: ErrMissingKey},
		{name: "prefix not object", uri: "s3://bucket/prefix/", wantErr: ErrMissingKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURI(tt.uri)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestObjectURIString(t *testing.T) {
	u := &ObjectURI{Scheme: "s3", Bucket: "b", Key: "path/to/obj"}
	assert.Equal(t, "s3://b/path/to/obj", u.String())
}
