//go:build unix

package netxlite

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// classifySyscallError converts a syscall error to the
// proper OONI error. Returns the OONI error string
// on success, an empty string otherwise.
func classifySyscallError(err error) string {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return ""
	}
	switch errno {
	case unix.ECONNREFUSED:
		return FailureConnectionRefused
	case unix.ECONNRESET, unix.EPIPE:
		return FailureConnectionReset
	case unix.ECONNABORTED:
		return FailureConnectionAborted
	case unix.EHOSTUNREACH:
		return FailureHostUnreachable
	case unix.ENETUNREACH:
		return FailureNetworkUnreachable
	case unix.ENOTCONN:
		return FailureNotConnected
	case unix.ETIMEDOUT:
		return FailureTimedOut
	case unix.EINTR:
		return FailureInterrupted
	}
	return ""
}
