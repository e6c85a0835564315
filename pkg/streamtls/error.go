package streamtls

import (
	"errors"

	"github.com/ooni/streamtls/internal/idnax"
	"github.com/ooni/streamtls/internal/model"
	"github.com/ooni/streamtls/internal/netxlite"
)

// ErrorKind is the kind of an [*Error].
type ErrorKind int

const (
	// KindIO indicates a handshake, record layer, or channel failure.
	KindIO = ErrorKind(iota)

	// KindInvalidHostName indicates that the host name is not valid.
	KindInvalidHostName

	// KindForeignBoundary indicates that a host stream refused to
	// hand out a reader or a writer (e.g., it was already locked).
	KindForeignBoundary

	// KindInvalidPayload indicates that a chunk was neither
	// a string nor a []byte.
	KindInvalidPayload

	// KindInvalidConfig indicates that the [*Config] is not valid.
	KindInvalidConfig
)

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "io_error"
	case KindInvalidHostName:
		return "invalid_host_name"
	case KindForeignBoundary:
		return "foreign_boundary_error"
	case KindInvalidPayload:
		return "invalid_payload"
	case KindInvalidConfig:
		return "invalid_config"
	default:
		return "unknown_error_kind"
	}
}

// Error is the error returned by [Connect] and by the streams
// of a [*Channel]. Its Error method returns the OONI failure string
// (e.g., "ssl_unknown_authority"). Use errors.Is and errors.As to
// reach the underlying error.
type Error struct {
	// Kind is the error kind.
	Kind ErrorKind

	// ErrWrapper contains the classified failure and the operation.
	*netxlite.ErrWrapper
}

// Unwrap returns the underlying [*netxlite.ErrWrapper].
func (e *Error) Unwrap() error {
	return e.ErrWrapper
}

// newError wraps err, which occurred during the given operation.
func newError(operation string, err error) *Error {
	return newErrorFromWrapper(netxlite.NewErrWrapper(netxlite.ClassifyGenericError, operation, err))
}

// newTopLevelError wraps err, keeping the major operation of an already wrapped error.
func newTopLevelError(err error) *Error {
	return newErrorFromWrapper(netxlite.NewTopLevelGenericErrWrapper(err))
}

func newErrorFromWrapper(ew *netxlite.ErrWrapper) *Error {
	return &Error{Kind: errorKind(ew), ErrWrapper: ew}
}

// errorKind maps an error to its kind.
func errorKind(ew *netxlite.ErrWrapper) ErrorKind {
	switch {
	case errors.Is(ew, idnax.ErrInvalidHostName):
		return KindInvalidHostName
	case errors.Is(ew, model.ErrInvalidPayload):
		return KindInvalidPayload
	case errors.Is(ew, netxlite.ErrInvalidTLSVersion):
		return KindInvalidConfig
	case ew.Operation == netxlite.StreamLockOperation:
		return KindForeignBoundary
	default:
		return KindIO
	}
}
