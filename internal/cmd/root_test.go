package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetVersionInfo(t *testing.T) {
	origVersion := versionInfo.Version
	origCommit := versionInfo.Commit
	origBuildDate := versionInfo.BuildDate
	defer func() {
		versionInfo.Version = origVersion
		versionInfo.Commit = origCommit
		versionInfo.BuildDate = origBuildDate
	}()

	tests := []struct {
		name      string
		version   string
		commit    string
		buildDate string
	}{
		{
			name:      "set all values",
			version:   "1.0.0",
			commit:    "abc123",
			buildDate: "2026-08-15",
		},
		{
			name:      "set dev version",
			version:   "dev",
			commit:    "HEAD",
			buildDate: "unknown",
		},
		{
			name:      "set empty values",
			version:   "",
			commit:    "",
			buildDate: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetVersionInfo(tt.version, tt.commit, tt.buildDate)

			assert.Equal(t, tt.version, versionInfo.Version)
			assert.Equal(t, tt.commit, versionInfo.Commit)
			assert.Equal(t, tt.buildDate, versionInfo.BuildDate)
		})
	}
}

func TestVersionCommandOutput(t *testing.T) {
	origVersion := versionInfo.Version
	defer func() { versionInfo.Version = origVersion }()
	SetVersionInfo("1.2.3", "abc123", "2026-08-15")

	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)

	out := buf.String()
	assert.Contains(t, out, "blobstream 1.2.3")
	assert.Contains(t, out, "abc123")
	assert.Contains(t, out, "2026-08-15")
}

func TestGetCommandArgValidation(t *testing.T) {
	t.Run("rejects URI with manifest", func(t *testing.T) {
		getManifest = "jobs.yaml"
		defer func() { getManifest = "" }()

		err := runGet(getCmd, []string{"s3://b/k"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mutually exclusive")
	})

	t.Run("requires URI without manifest", func(t *testing.T) {
		err := runGet(getCmd, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected an object URI")
	})

	t.Run("rejects jsonl to stdout", func(t *testing.T) {
		getJSONL = true
		defer func() { getJSONL = false }()

		err := runGet(getCmd, []string{"s3://b/k"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--jsonl requires --output")
	})
}

func TestRateLimitedWriterPassthrough(t *testing.T) {
	var buf bytes.Buffer

	// Zero rate returns the writer unchanged.
	w := newRateLimitedWriter(&buf, 0)
	assert.Equal(t, &buf, w)

	// A generous rate passes data through intact.
	w = newRateLimitedWriter(&buf, 1<<30)
	n, err := w.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", buf.String())
}
