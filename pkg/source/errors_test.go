package source

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceError_Unwrap(t *testing.T) {
	err := &SourceError{Op: "Fetch", Bucket: "b", Key: "k", Err: ErrNotFound}

	assert.True(t, IsNotFound(err))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "b/k")
	assert.Contains(t, err.Error(), "Fetch")
}

func TestSourceError_NoKey(t *testing.T) {
	err := &SourceError{Op: "Properties", Bucket: "b", Err: ErrAccessDenied}

	assert.True(t, IsAccessDenied(err))
	assert.NotContains(t, err.Error(), "b/")
}

func TestIsHelpers(t *testing.T) {
	wrapped := fmt.Errorf("request failed: %w", ErrRangeNotSatisfiable)

	assert.True(t, IsRangeNotSatisfiable(wrapped))
	assert.False(t, IsRangeNotSatisfiable(ErrNotFound))
	assert.True(t, IsPreconditionFailed(fmt.Errorf("chunk 3: %w", ErrPreconditionFailed)))
	assert.True(t, IsThrottled(&SourceError{Op: "Fetch", Err: ErrThrottled}))
}
