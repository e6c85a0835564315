package netxlite

import (
	"errors"
	"syscall"

	"golang.org/x/sys/windows"
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
	case windows.WSAECONNREFUSED:
		return FailureConnectionRefused
	case windows.WSAECONNRESET:
		return FailureConnectionReset
	case windows.WSAECONNABORTED:
		return FailureConnectionAborted
	case windows.WSAEHOSTUNREACH:
		return FailureHostUnreachable
	case windows.WSAENETUNREACH:
		return FailureNetworkUnreachable
	case windows.WSAENOTCONN:
		return FailureNotConnected
	case windows.WSAETIMEDOUT:
		return FailureTimedOut
	case windows.WSAEINTR:
		return FailureInterrupted
	}
	return ""
}
