// Package manifest defines the batch download manifest: a YAML or JSON
// document naming the objects to fetch, per-job windows, and shared engine
// tuning.
package manifest

import (
	"errors"
	"fmt"
)

// SupportedVersion is the only manifest schema version this build accepts.
const SupportedVersion = 1

// Manifest is a batch of download jobs.
type Manifest struct {
	Version  int      `yaml:"version" json:"version"`
	Defaults Defaults `yaml:"defaults" json:"defaults"`
	Jobs     []Job    `yaml:"jobs" json:"jobs"`
}

// Defaults apply to every job that does not set its own value.
type Defaults struct {
	Bucket          string `yaml:"bucket,omitempty" json:"bucket,omitempty"`
	Concurrency     int    `yaml:"concurrency,omitempty" json:"concurrency,omitempty"`
	ValidateContent bool   `yaml:"validate_content,omitempty" json:"validate_content,omitempty"`
}

// Job names one object to download.
type Job struct {
	Bucket string `yaml:"bucket,omitempty" json:"bucket,omitempty"`
	Key    string `yaml:"key" json:"key"`

	// Dest is the local file path to write. Empty writes to stdout.
	Dest string `yaml:"dest,omitempty" json:"dest,omitempty"`

	// Offset and Count select a byte window; zero values download the
	// whole object.
	Offset int64 `yaml:"offset,omitempty" json:"offset,omitempty"`
	Count  int64 `yaml:"count,omitempty" json:"count,omitempty"`

	// Encoding, when set, downloads the object as text in the named
	// encoding instead of raw bytes.
	Encoding string `yaml:"encoding,omitempty" json:"encoding,omitempty"`
}

// ApplyDefaults copies manifest-level defaults into jobs that left the
// corresponding field empty.
func (m *Manifest) ApplyDefaults() {
	for i := range m.Jobs {
		if m.Jobs[i].Bucket == "" {
			m.Jobs[i].Bucket = m.Defaults.Bucket
		}
	}
}

// Validate checks structural correctness. Call after ApplyDefaults.
func (m *Manifest) Validate() error {
	if m.Version != SupportedVersion {
		return fmt.Errorf("unsupported manifest version %d (want %d)", m.Version, SupportedVersion)
	}
	if len(m.Jobs) == 0 {
		return errors.New("manifest has no jobs")
	}
	for i, job := range m.Jobs {
		if job.Bucket == "" {
			return fmt.Errorf("job %d: bucket is required (set per job or in defaults)", i)
		}
		if job.Key == "" {
			return fmt.Errorf("job %d: key is required", i)
		}
		if job.Offset < 0 || job.Count < 0 {
			return fmt.Errorf("job %d: offset and count must be >= 0", i)
		}
	}
	return nil
}
