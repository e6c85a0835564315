package netxlite

// This enumeration lists the failures defined at
// https://github.com/ooni/spec/blob/master/data-formats/df-007-errors.md
// that may occur when running TLS over a host stream pair, plus the
// failures that are specific to adapting host streams.
const (
	FailureConnectionAborted       = "connection_aborted"
	FailureConnectionAlreadyClosed = "connection_already_closed"
	FailureConnectionRefused       = "connection_refused"
	FailureConnectionReset         = "connection_reset"
	FailureEOFError                = "eof_error"
	FailureGenericTimeoutError     = "generic_timeout_error"
	FailureHostUnreachable         = "host_unreachable"
	FailureInterrupted             = "interrupted"
	FailureNetworkUnreachable      = "network_unreachable"
	FailureNotConnected            = "not_connected"
	FailureSSLFailedHandshake      = "ssl_failed_handshake"
	FailureSSLInvalidCertificate   = "ssl_invalid_certificate"
	FailureSSLInvalidHostname      = "ssl_invalid_hostname"
	FailureSSLUnknownAuthority     = "ssl_unknown_authority"
	FailureTimedOut                = "timed_out"

	// not in MK
	FailureInvalidHostName = "invalid_host_name"
	FailureInvalidPayload  = "invalid_payload"
	FailureStreamLocked    = "stream_locked"
)

// Operations that may fail. See the documentation of
// [ErrWrapper.Operation] for the meaning of major and minor.
const (
	// ValidateHostNameOperation is the major operation
	// checking the syntax of the TLS server name.
	ValidateHostNameOperation = "validate_host_name"

	// StreamLockOperation is the major operation acquiring
	// a reader or a writer for a host stream.
	StreamLockOperation = "stream_lock"

	// TLSHandshakeOperation is the major TLS handshake operation.
	TLSHandshakeOperation = "tls_handshake"

	// ReadOperation is the minor read operation.
	ReadOperation = "read"

	// WriteOperation is the minor write operation.
	WriteOperation = "write"

	// CloseOperation is the minor close operation.
	CloseOperation = "close"

	// TopLevelOperation is the operation we use when we don't
	// know which operation actually failed.
	TopLevelOperation = "top_level"
)
