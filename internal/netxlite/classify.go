package netxlite

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/ooni/streamtls/internal/idnax"
	"github.com/ooni/streamtls/internal/model"
)

// ClassifyGenericError maps an error occurred during an operation
// to an OONI failure string. This specific classifier is the most
// generic one. You usually use it when mapping I/O errors. You should
// check whether there is a specific classifier for more specific
// operations (e.g., TLS handshake).
//
// If the input error is an *ErrWrapper we don't perform
// the classification again and we return its Failure.
//
// We put inside this classifier:
//
// - system call errors;
//
// - errors caused by adapting host streams;
//
// - generic errors that can occur in multiple places;
//
// - all the errors that depend on strings.
//
// The more specific classifiers will call this classifier if
// they fail to find a mapping for the input error.
//
// If everything else fails, this classifier returns a string
// like "unknown_failure: XXX".
func ClassifyGenericError(err error) string {
	var errwrapper *ErrWrapper
	if errors.As(err, &errwrapper) {
		return errwrapper.Error() // we've already wrapped it
	}

	// Classify system errors first. We could use strings for many
	// of them on Unix, but this would fail on Windows as described
	// by https://github.com/ooni/probe/issues/1526.
	if failure := classifySyscallError(err); failure != "" {
		return failure
	}

	if failure := classifyStreamError(err); failure != "" {
		return failure
	}

	if errors.Is(err, context.Canceled) {
		return FailureInterrupted
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return FailureGenericTimeoutError
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return FailureEOFError
	}

	if failure := classifyWithStringSuffix(err); failure != "" {
		return failure
	}

	return fmt.Sprintf("unknown_failure: %s", err.Error())
}

// classifyStreamError is the subset of ClassifyGenericError dealing
// with the errors we emit when adapting host streams. This function
// will return an empty string if it cannot classify the error.
func classifyStreamError(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidPayload):
		return FailureInvalidPayload
	case errors.Is(err, idnax.ErrInvalidHostName):
		return FailureInvalidHostName
	case errors.Is(err, model.ErrStreamLocked):
		return FailureStreamLocked
	case errors.Is(err, model.ErrAlreadyClosed):
		return FailureConnectionAlreadyClosed
	case errors.Is(err, net.ErrClosed), errors.Is(err, io.ErrClosedPipe):
		return FailureConnectionAlreadyClosed
	default:
		return ""
	}
}

// classifyWithStringSuffix is a subset of ClassifyGenericError that
// performs classification by looking at error suffixes. This function
// will return an empty string if it cannot classify the error.
func classifyWithStringSuffix(err error) string {
	s := err.Error()
	if strings.HasSuffix(s, "operation was canceled") {
		return FailureInterrupted
	}
	if strings.HasSuffix(s, "EOF") {
		return FailureEOFError
	}
	if strings.HasSuffix(s, "context deadline exceeded") {
		return FailureGenericTimeoutError
	}
	if strings.HasSuffix(s, "i/o timeout") {
		return FailureGenericTimeoutError
	}
	if strings.HasSuffix(s, "TLS handshake timeout") {
		return FailureGenericTimeoutError
	}
	if strings.HasSuffix(s, "use of closed network connection") {
		return FailureConnectionAlreadyClosed
	}
	return "" // not found
}

// ClassifyTLSHandshakeError maps an error occurred during the TLS
// handshake to an OONI failure string.
//
// If the input error is an *ErrWrapper we don't perform
// the classification again and we return its Failure.
//
// If this classifier fails, it calls ClassifyGenericError and
// returns to the caller its return value.
func ClassifyTLSHandshakeError(err error) string {
	var errwrapper *ErrWrapper
	if errors.As(err, &errwrapper) {
		return errwrapper.Error() // we've already wrapped it
	}

	var x509HostnameError x509.HostnameError
	if errors.As(err, &x509HostnameError) {
		// Test case: https://wrong.host.badssl.com/
		return FailureSSLInvalidHostname
	}
	var x509UnknownAuthorityError x509.UnknownAuthorityError
	if errors.As(err, &x509UnknownAuthorityError) {
		// Test case: https://self-signed.badssl.com/. This error has
		// never been among the ones returned by MK.
		return FailureSSLUnknownAuthority
	}
	var x509CertificateInvalidError x509.CertificateInvalidError
	if errors.As(err, &x509CertificateInvalidError) {
		// Test case: https://expired.badssl.com/
		return FailureSSLInvalidCertificate
	}
	if failure := classifyTLSAlert(err); failure != "" {
		return failure
	}
	return ClassifyGenericError(err)
}

// classifyTLSAlert maps the alerts sent by the server, which the stdlib
// reports as `remote error: tls: <description>`, to failures.
func classifyTLSAlert(err error) string {
	s := err.Error()
	switch {
	case strings.HasSuffix(s, "tls: unrecognized name"):
		return FailureSSLInvalidHostname
	case strings.HasSuffix(s, "tls: unknown certificate authority"):
		return FailureSSLUnknownAuthority
	case strings.HasSuffix(s, "tls: bad certificate"),
		strings.HasSuffix(s, "tls: unsupported certificate"),
		strings.HasSuffix(s, "tls: revoked certificate"),
		strings.HasSuffix(s, "tls: expired certificate"),
		strings.HasSuffix(s, "tls: unknown certificate"):
		return FailureSSLInvalidCertificate
	case strings.HasSuffix(s, "tls: handshake failure"),
		strings.HasSuffix(s, "tls: error decrypting message"),
		strings.HasSuffix(s, "tls: first record does not look like a TLS handshake"):
		return FailureSSLFailedHandshake
	default:
		return ""
	}
}
