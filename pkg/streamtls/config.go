package streamtls

import (
	"crypto/tls"
	"crypto/x509"
	"time"

	"github.com/ooni/streamtls/internal/bytecounter"
	"github.com/ooni/streamtls/internal/model"
)

// Config contains the [Connect] configuration. A nil config is
// equivalent to the zero value and all the fields are OPTIONAL.
type Config struct {
	// ByteCounter, when not nil, counts the ciphertext bytes
	// read from the source and written to the sink.
	ByteCounter *bytecounter.Counter

	// Certificates contains the client certificates to present
	// when the server asks for them.
	Certificates []tls.Certificate

	// ChunkSize is the maximum size of the chunks produced by the
	// default reader of the returned readable. When zero or negative,
	// we use [streamx.DefaultChunkSize].
	ChunkSize int

	// HandshakeTimeout bounds the duration of the handshake. When
	// zero, only the context passed to [Connect] bounds it.
	HandshakeTimeout time.Duration

	// Handshaker allows to override the TLS handshaker.
	Handshaker model.TLSHandshaker

	// Logger is the logger to use. When nil, we don't log.
	Logger model.DebugLogger

	// RootCAs contains the trust anchors. When nil, we use the
	// compiled-in bundle of trusted certificate authorities.
	RootCAs *x509.CertPool

	// TLSVersion pins the TLS version (e.g., "TLSv1.3"). When empty,
	// we use the versions enabled by default by the standard library.
	TLSVersion string
}
