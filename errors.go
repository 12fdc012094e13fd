package smartfs

import (
	"errors"
	"fmt"
)

// Error is a type that allows for error constants below
type Error string

// Error returns a string representation of the error
func (e Error) Error() string { return string(e) }

const (
	// ErrInvalidLocation - location string could not be parsed for this scheme
	ErrInvalidLocation = Error("invalid location")

	// ErrUnsupportedScheme - no backend factory is registered for the scheme
	ErrUnsupportedScheme = Error("unsupported scheme")

	// ErrNotExist - File does not exist
	ErrNotExist = Error("file does not exist")

	// ErrNotSupported - the backend does not declare the required capability
	ErrNotSupported = Error("not supported by backend")

	// ErrCancelled - the operation was cancelled before completion
	ErrCancelled = Error("operation cancelled")

	// ErrPermission - the backend denied access
	ErrPermission = Error("permission denied")

	// CopyToNotPossible - CopyTo/MoveTo operations are only possible when seek position is 0,0
	CopyToNotPossible = Error("current cursor offset is not 0 as required for this operation")

	// ErrSeekInvalidOffset - Offset is invalid. Must be greater than or equal to 0
	ErrSeekInvalidOffset = Error("seek: invalid offset")

	// ErrSeekInvalidWhence - Whence is invalid.  Must be one of the following: 0 (io.SeekStart), 1 (io.SeekCurrent), or 2 (io.SeekEnd)
	ErrSeekInvalidWhence = Error("seek: invalid whence")
)

// NotSupported returns an ErrNotSupported wrapper naming the missing
// capability and the backend that lacks it.
func NotSupported(backend, capability string) error {
	return fmt.Errorf("%s: %q %w", backend, capability, ErrNotSupported)
}

// BackendInitError wraps a failure to construct a backend handle. It is never
// cached by the registry; the next resolve retries construction.
type BackendInitError struct {
	Scheme    string
	Authority string
	Err       error
}

func (e *BackendInitError) Error() string {
	return fmt.Sprintf("backend init %s://%s: %v", e.Scheme, e.Authority, e.Err)
}

func (e *BackendInitError) Unwrap() error { return e.Err }

// TransferError is the terminal error of a failed streaming transfer, raised
// only after per-chunk retries are exhausted. When the transfer left a
// partial remote object behind and cleanup of it also failed, CleanupErr
// carries that secondary failure; it is reported, never swallowed.
type TransferError struct {
	Op         string // "read" or "write"
	URI        string
	Err        error
	CleanupErr error
}

func (e *TransferError) Error() string {
	msg := fmt.Sprintf("transfer %s %s: %v", e.Op, e.URI, e.Err)
	if e.CleanupErr != nil {
		msg += fmt.Sprintf(" (cleanup of partial object also failed: %v)", e.CleanupErr)
	}
	return msg
}

func (e *TransferError) Unwrap() error { return e.Err }

// IntegrityError reports a checksum mismatch between transferred bytes and
// the backend-reported digest. It is never retried automatically and the
// partial result is discarded before it surfaces.
type IntegrityError struct {
	URI      string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed for %s: expected %s, got %s", e.URI, e.Expected, e.Actual)
}

// Cancelled wraps a context error so that both errors.Is(err, ErrCancelled)
// and errors.Is(err, ctx.Err()) hold.
func Cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}

// IsNotExist reports whether err indicates a missing file or location on any
// backend.
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}
