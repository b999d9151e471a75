package cmd

import (
	"errors"
	"fmt"
	"strings"
)

// URI parsing errors.
var (
	// ErrInvalidURI indicates the URI could not be parsed.
	ErrInvalidURI = errors.New("invalid URI")

	// ErrUnsupportedScheme indicates the URI scheme is not supported.
	ErrUnsupportedScheme = errors.New("unsupported scheme")

	// ErrMissingBucket indicates the URI has no bucket name.
	ErrMissingBucket = errors.New("missing bucket name")

	// ErrMissingKey indicates the URI has no object key.
	ErrMissingKey = errors.New("missing object key")
)

// ObjectURI is a parsed object store URI of the form s3://bucket/key.
type ObjectURI struct {
	Scheme string
	Bucket string
	Key    string
}

// String returns the URI in canonical form.
func (u *ObjectURI) String() string {
	return fmt.Sprintf("%s://%s/%s", u.Scheme, u.Bucket, u.Key)
}

// ParseURI parses an exact-object URI. Prefixes (trailing slash) and
// empty keys are rejected; downloads address one object.
func ParseURI(uri string) (*ObjectURI, error) {
	if uri == "" {
		return nil, fmt.Errorf("%w: empty URI", ErrInvalidURI)
	}

	schemeEnd := strings.Index(uri, "://")
	if schemeEnd == -1 {
		return nil, fmt.Errorf("%w: missing scheme (expected s3://...)", ErrInvalidURI)
	}

	scheme := strings.ToLower(uri[:schemeEnd])
	if scheme != "s3" {
		return nil, fmt.Errorf("%w: %s (supported: s3)", ErrUnsupportedScheme, scheme)
	}

	remainder := uri[schemeEnd+3:]
	bucket, key, _ := strings.Cut(remainder, "/")
	if bucket == "" {
		return nil, fmt.Errorf("%w: in %s", ErrMissingBucket, uri)
	}
	if key == "" || strings.HasSuffix(key, "/") {
		return nil, fmt.Errorf("%w: provide an exact object key in %s", ErrMissingKey, uri)
	}

	return &ObjectURI{Scheme: scheme, Bucket: bucket, Key: key}, nil
}
