package formula

import (
	"errors"
	"fmt"
)

// Common errors returned by formula operations
var (
	// ErrInvalidDescriptor indicates a descriptor that failed validation
	ErrInvalidDescriptor = errors.New("formula: invalid descriptor")

	// ErrChecksumMismatch indicates downloaded bytes that do not match the declared sha256
	ErrChecksumMismatch = errors.New("formula: checksum mismatch")

	// ErrMissingArtifact indicates a declared binary or man page absent from the archive
	ErrMissingArtifact = errors.New("formula: artifact missing from archive")

	// ErrUnsupportedScheme indicates a URL scheme Fetch cannot retrieve
	ErrUnsupportedScheme = errors.New("formula: unsupported url scheme")
)

// Operation names the step of a formula operation that failed
type Operation string

// Operations
const (
	OpLoad    Operation = "load"
	OpFetch   Operation = "fetch"
	OpVerify  Operation = "verify"
	OpExtract Operation = "extract"
	OpInstall Operation = "install"
	OpRender  Operation = "render"
)

// OpError represents an error from a formula operation
type OpError struct {
	// Op is the operation that failed
	Op Operation
	// Path is the file path or URL involved in the operation
	Path string
	// Err is the underlying error
	Err error
}

// Error returns a formatted error message
func (e *OpError) Error() string {
	return fmt.Sprintf("formula %s %q: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *OpError) Unwrap() error {
	return e.Err
}

// ChecksumError details a checksum mismatch
type ChecksumError struct {
	Want string
	Got  string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("sha256 %s, declared %s", e.Got, e.Want)
}

// Is matches ErrChecksumMismatch
func (e *ChecksumError) Is(target error) bool {
	return target == ErrChecksumMismatch
}
