// Package streamtls establishes TLS client sessions over a pair of host
// streams and returns the decrypted channel as another pair of streams.
//
// The host provides a [model.ReadableStream] producing ciphertext and a
// [model.WritableStream] consuming ciphertext (e.g., the two halves of a
// socket owned by the host). [Connect] performs the handshake over them
// and returns a [*Channel] through which the caller exchanges plaintext.
package streamtls

import (
	"context"
	"crypto/tls"

	"github.com/ooni/streamtls/internal/bytecounter"
	"github.com/ooni/streamtls/internal/duplex"
	"github.com/ooni/streamtls/internal/model"
	"github.com/ooni/streamtls/internal/netxlite"
	"github.com/ooni/streamtls/internal/streamx"
	"github.com/ooni/streamtls/internal/tlssession"
)

// Channel is the decrypted channel returned by [Connect].
type Channel struct {
	// Readable produces the plaintext sent by the peer. It supports
	// both BYOB readers and default readers producing []byte chunks.
	Readable model.ReadableStream

	// Writable accepts plaintext as string or []byte chunks. Closing
	// its writer sends close-notify followed by the sink finish.
	Writable model.WritableStream

	// ConnectionState is the negotiated TLS state.
	ConnectionState tls.ConnectionState
}

// Connect performs a TLS handshake with host over source and sink and returns
// the decrypted [*Channel]. The config argument MAY be nil.
//
// The host name is validated before touching the streams, so an invalid name
// causes no I/O. On success, the channel owns the source and the sink. On
// failure, we release both streams without cancelling or closing them and
// return an [*Error]. Cancelling ctx interrupts the handshake.
func Connect(ctx context.Context, source model.ReadableStream,
	sink model.WritableStream, host string, config *Config) (*Channel, error) {
	if config == nil {
		config = &Config{}
	}
	logger := model.ValidDebugLoggerOrDefault(config.Logger)

	sess, err := tlssession.New(host, &tlssession.Config{
		Certificates:     config.Certificates,
		HandshakeTimeout: config.HandshakeTimeout,
		Handshaker:       config.Handshaker,
		Logger:           logger,
		RootCAs:          config.RootCAs,
		TLSVersion:       config.TLSVersion,
	})
	if err != nil {
		return nil, newTopLevelError(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, newError(netxlite.TLSHandshakeOperation, err)
	}

	reader, err := streamx.NewReader(source, logger)
	if err != nil {
		return nil, newError(netxlite.StreamLockOperation, err)
	}
	writer, err := streamx.NewWriter(sink)
	if err != nil {
		reader.Release()
		return nil, newError(netxlite.StreamLockOperation, err)
	}
	logger.Debugf("streamtls: source reader mode: %s", reader.State())

	conn := bytecounter.MaybeWrapConn(duplex.New(reader, writer), config.ByteCounter)
	if err := sess.Handshake(ctx, conn); err != nil {
		writer.Release()
		reader.Release()
		return nil, newError(netxlite.TLSHandshakeOperation, err)
	}

	r, w := sess.Split()
	channel := &Channel{
		Readable:        &readableStream{streamx.NewReadableStream(r, config.ChunkSize)},
		Writable:        &writableStream{streamx.NewWritableStream(w)},
		ConnectionState: sess.ConnectionState(),
	}
	return channel, nil
}
