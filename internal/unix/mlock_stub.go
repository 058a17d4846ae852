//go:build !linux && !darwin

// Package unix provides platform-specific memory and signal helpers.
package unix

import (
	"errors"
	"fmt"
	"syscall"
)

// Supported reports whether Lock pins pages on this platform.
const Supported = false

// Lock reports errors.ErrUnsupported where mlock is unavailable.
func Lock(b []byte) error { return errors.ErrUnsupported }

// Unlock is a no-op where mlock is unavailable.
func Unlock(b []byte) error { return nil }

// SignalName returns a numeric signal description.
func SignalName(sig syscall.Signal) string {
	return fmt.Sprintf("signal %d", int(sig))
}
