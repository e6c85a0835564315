package model

//
// TLS extensions
//

import (
	"context"
	"crypto/tls"
	"net"
)

// TLSConn is the type of connection returned by a [TLSHandshaker]. Note
// that the stdlib's [*tls.Conn] implements this interface.
type TLSConn interface {
	// A TLSConn is also a net.Conn.
	net.Conn

	// CloseWrite sends the close-notify alert without closing
	// the underlying connection.
	CloseWrite() error

	// ConnectionState returns the TLS connection state.
	ConnectionState() tls.ConnectionState

	// HandshakeContext runs the handshake.
	HandshakeContext(ctx context.Context) error

	// NetConn returns the underlying net.Conn.
	NetConn() net.Conn
}

// TLSHandshaker is the generic TLS handshaker.
type TLSHandshaker interface {
	// Handshake creates a new TLS connection from the given connection and
	// the given config. This function DOES NOT take ownership of the connection
	// and it's your responsibility to close it on failure.
	Handshake(ctx context.Context, conn net.Conn, config *tls.Config) (
		TLSConn, tls.ConnectionState, error)
}
