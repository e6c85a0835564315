package mocks

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/ooni/streamtls/internal/model"
)

// TLSHandshaker is a mockable TLS handshaker.
type TLSHandshaker struct {
	MockHandshake func(ctx context.Context, conn net.Conn, config *tls.Config) (
		model.TLSConn, tls.ConnectionState, error)
}

var _ model.TLSHandshaker = &TLSHandshaker{}

// Handshake calls MockHandshake.
func (th *TLSHandshaker) Handshake(ctx context.Context, conn net.Conn, config *tls.Config) (
	model.TLSConn, tls.ConnectionState, error) {
	return th.MockHandshake(ctx, conn, config)
}
