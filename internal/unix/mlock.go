//go:build linux || darwin

// Package unix provides platform-specific memory and signal helpers.
package unix

import (
	"fmt"
	"syscall"

	xunix "golang.org/x/sys/unix"
)

// Supported reports whether Lock pins pages on this platform.
const Supported = true

// Lock pins the pages backing b in physical memory.
func Lock(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return xunix.Mlock(b)
}

// Unlock releases pages pinned by Lock.
func Unlock(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return xunix.Munlock(b)
}

// SignalName returns the conventional name of a signal, e.g. "SIGUSR1".
func SignalName(sig syscall.Signal) string {
	if name := xunix.SignalName(sig); name != "" {
		return name
	}
	return fmt.Sprintf("signal %d", int(sig))
}
