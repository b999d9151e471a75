package download

import "errors"

// Usage errors, raised synchronously before any network activity.
var (
	// ErrNegativeRange indicates a negative offset or count.
	ErrNegativeRange = errors.New("offset and count must be >= 0")

	// ErrTextModeActive indicates a byte-oriented operation (Read, ReadInto,
	// Chunks) after the stream was partially read in text mode.
	ErrTextModeActive = errors.New("stream has been partially read in text mode")

	// ErrByteModeActive indicates a character read after the stream was
	// partially read in byte mode.
	ErrByteModeActive = errors.New("stream has been partially read in byte mode")

	// ErrEncodingRequired indicates a character read without a configured
	// text encoding.
	ErrEncodingRequired = errors.New("encoding must be configured to read chars")

	// ErrSinkNotRandomAccess indicates a parallel ReadInto against a sink
	// that does not implement io.WriterAt.
	ErrSinkNotRandomAccess = errors.New("sink must implement io.WriterAt for parallel download")

	// ErrPropertiesUnsupported indicates decryption was configured against a
	// client that cannot read object properties.
	ErrPropertiesUnsupported = errors.New("client does not support property reads required for decryption")
)

// ErrDecrypt marks a failed decryption pass, distinct from transport errors.
var ErrDecrypt = errors.New("decryption failed")

// IsDecryptError returns true if the error came from the decryption pass
// rather than the transport.
func IsDecryptError(err error) bool {
	return errors.Is(err, ErrDecrypt)
}
