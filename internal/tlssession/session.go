// Package tlssession drives a TLS client session over an existing
// connection and splits the established session into two halves.
package tlssession

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/ooni/streamtls/internal/idnax"
	"github.com/ooni/streamtls/internal/model"
	"github.com/ooni/streamtls/internal/netxlite"
)

// Config contains the session configuration. The zero value is
// ready to use and all the fields are OPTIONAL.
type Config struct {
	// Certificates contains the client certificates to present when
	// the server asks for them.
	Certificates []tls.Certificate

	// HandshakeTimeout bounds the duration of the handshake. When zero,
	// the handshake only ends when the context is done.
	HandshakeTimeout time.Duration

	// Handshaker is the handshaker to use. When nil, we use the
	// handshaker returned by [netxlite.NewTLSHandshakerWithTimeout].
	Handshaker model.TLSHandshaker

	// Logger is the logger to use. When nil, we don't log.
	Logger model.DebugLogger

	// RootCAs contains the trust anchors. When nil, we use
	// the bundle returned by [netxlite.NewDefaultCertPool].
	RootCAs *x509.CertPool

	// TLSVersion pins the TLS version using the strings accepted
	// by [netxlite.ConfigureTLSVersion]. When empty, we use the
	// versions enabled by default by the standard library.
	TLSVersion string
}

// ErrInvalidState indicates that the session is not in the
// state required by the operation you called.
var ErrInvalidState = errors.New("tlssession: invalid state")

// Session is a TLS client session.
type Session struct {
	config      *tls.Config
	conn        net.Conn
	connState   tls.ConnectionState
	err         error
	handshaker  model.TLSHandshaker
	logger      model.DebugLogger
	mu          sync.Mutex
	state       State
	tlsConn     model.TLSConn
	writeClosed bool
}

// New creates a new [*Session] for the given server name. We return an
// error wrapping [idnax.ErrInvalidHostName] when the name is not a valid
// host name and [netxlite.ErrInvalidTLSVersion] when config.TLSVersion is
// invalid. In both cases we have performed no I/O.
func New(serverName string, config *Config) (*Session, error) {
	if config == nil {
		config = &Config{}
	}
	name, err := idnax.ValidateHostName(serverName)
	if err != nil {
		return nil, netxlite.NewErrWrapper(
			netxlite.ClassifyGenericError, netxlite.ValidateHostNameOperation, err)
	}
	tlsConfig := &tls.Config{
		Certificates: config.Certificates,
		RootCAs:      config.RootCAs,
		ServerName:   name,
	}
	if err := netxlite.ConfigureTLSVersion(tlsConfig, config.TLSVersion); err != nil {
		return nil, err
	}
	logger := model.ValidDebugLoggerOrDefault(config.Logger)
	handshaker := config.Handshaker
	if handshaker == nil {
		handshaker = netxlite.NewTLSHandshakerWithTimeout(logger, config.HandshakeTimeout)
	}
	s := &Session{
		config:     tlsConfig,
		handshaker: handshaker,
		logger:     logger,
		state:      StateUninitialized,
	}
	return s, nil
}

// ServerName returns the validated server name.
func (s *Session) ServerName() string {
	return s.config.ServerName
}

// State returns the session state.
func (s *Session) State() State {
	defer s.mu.Unlock()
	s.mu.Lock()
	return s.state
}

// ConnectionState returns the TLS connection state, which is
// only meaningful after a successful handshake.
func (s *Session) ConnectionState() tls.ConnectionState {
	defer s.mu.Unlock()
	s.mu.Lock()
	return s.connState
}

// Handshake performs the TLS handshake over conn. The session takes ownership
// of conn only on success. Closing conn signals the end of our writes, so we
// never close it on failure, including when ctx is done: in such a case we
// interrupt the handshake using conn's deadlines.
//
// The returned error is a [*netxlite.ErrWrapper].
func (s *Session) Handshake(ctx context.Context, conn net.Conn) error {
	s.mu.Lock()
	if s.state != StateUninitialized {
		s.mu.Unlock()
		return netxlite.NewErrWrapper(
			netxlite.ClassifyGenericError, netxlite.TLSHandshakeOperation, ErrInvalidState)
	}
	s.state = StateHandshaking
	s.mu.Unlock()

	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(interrupted)
		_ = conn.SetDeadline(time.Now())
	})
	tlsConn, connState, err := s.handshaker.Handshake(context.WithoutCancel(ctx), conn, s.config)
	if !stop() {
		<-interrupted
		_ = conn.SetDeadline(time.Time{})
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		// report the cause rather than the deadline we used to interrupt the handshake
		err = netxlite.NewErrWrapper(
			netxlite.ClassifyTLSHandshakeError, netxlite.TLSHandshakeOperation, ctxErr)
	}

	defer s.mu.Unlock()
	s.mu.Lock()
	if err != nil {
		s.state, s.err = StateErrored, err
		return err
	}
	s.conn, s.connState, s.state, s.tlsConn = conn, connState, StateEstablished, tlsConn
	return nil
}

// established returns the TLS conn if we can read or write.
func (s *Session) established(operation string, states ...State) (model.TLSConn, error) {
	defer s.mu.Unlock()
	s.mu.Lock()
	if s.err != nil {
		return nil, s.err
	}
	for _, state := range states {
		if s.state == state {
			return s.tlsConn, nil
		}
	}
	if s.state == StateClosed {
		return nil, netxlite.NewErrWrapper(netxlite.ClassifyGenericError, operation, net.ErrClosed)
	}
	return nil, netxlite.NewErrWrapper(netxlite.ClassifyGenericError, operation, ErrInvalidState)
}

// Read reads and decrypts application data. We return [io.EOF] when the peer
// closes its side of the channel. Other errors are wrapped using [*netxlite.ErrWrapper]
// and are sticky, except for errors caused by expired deadlines.
func (s *Session) Read(p []byte) (int, error) {
	tlsConn, err := s.established(netxlite.ReadOperation, StateEstablished, StateClosed)
	if err != nil {
		return 0, err
	}
	count, err := tlsConn.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return count, s.setError(netxlite.ReadOperation, err)
	}
	return count, err
}

// Write encrypts and writes application data. Errors are wrapped using
// [*netxlite.ErrWrapper] and are sticky, except for errors caused by
// expired deadlines.
func (s *Session) Write(p []byte) (int, error) {
	tlsConn, err := s.established(netxlite.WriteOperation, StateEstablished)
	if err != nil {
		return 0, err
	}
	count, err := tlsConn.Write(p)
	if err != nil {
		return count, s.setError(netxlite.WriteOperation, err)
	}
	return count, nil
}

func (s *Session) setError(operation string, err error) error {
	err = netxlite.NewErrWrapper(netxlite.ClassifyGenericError, operation, err)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return err
	}
	defer s.mu.Unlock()
	s.mu.Lock()
	if s.err == nil {
		s.logger.Debugf("tlssession: %s failed: %s", operation, err.Error())
		s.state, s.err = StateErrored, err
	}
	return s.err
}

// CloseWrite sends the close-notify alert and then closes the underlying
// conn, which signals the end of our writes. When the session is errored,
// we only close the underlying conn. The second call fails with an error
// wrapping [model.ErrAlreadyClosed].
func (s *Session) CloseWrite() error {
	s.mu.Lock()
	if s.writeClosed {
		s.mu.Unlock()
		return netxlite.NewErrWrapper(
			netxlite.ClassifyGenericError, netxlite.CloseOperation, model.ErrAlreadyClosed)
	}
	if s.state != StateEstablished && s.state != StateErrored || s.conn == nil {
		s.mu.Unlock()
		return netxlite.NewErrWrapper(
			netxlite.ClassifyGenericError, netxlite.CloseOperation, ErrInvalidState)
	}
	s.writeClosed = true
	sendCloseNotify := s.state == StateEstablished
	if sendCloseNotify {
		s.state = StateClosed
	}
	s.mu.Unlock()

	var errs []error
	if sendCloseNotify {
		errs = append(errs, s.tlsConn.CloseWrite())
		// CloseWrite leaves the write deadline in the past
		_ = s.conn.SetWriteDeadline(time.Time{})
	}
	errs = append(errs, s.conn.Close())
	s.logger.Debugf("tlssession: closed the write side of %s", s.config.ServerName)
	return netxlite.MaybeNewErrWrapper(netxlite.ClassifyGenericError, netxlite.CloseOperation, errors.Join(errs...))
}

// CloseRead releases the source of the underlying conn, which interrupts
// pending reads. It is safe to call this method more than once.
func (s *Session) CloseRead() error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return netxlite.NewErrWrapper(
			netxlite.ClassifyGenericError, netxlite.CloseOperation, ErrInvalidState)
	}
	if closer, good := conn.(interface{ CloseRead() error }); good {
		return netxlite.MaybeNewErrWrapper(
			netxlite.ClassifyGenericError, netxlite.CloseOperation, closer.CloseRead())
	}
	return nil
}

// Close closes both sides of the session.
func (s *Session) Close() error {
	errWrite := s.CloseWrite()
	if errors.Is(errWrite, model.ErrAlreadyClosed) {
		errWrite = nil
	}
	return errors.Join(errWrite, s.CloseRead())
}

// Split returns the read half and the write half of an established session. Closing the
// read half calls CloseRead and closing the write half calls CloseWrite. The halves also
// implement SetReadDeadline and SetWriteDeadline respectively.
func (s *Session) Split() (io.ReadCloser, io.WriteCloser) {
	return &readHalf{s}, &writeHalf{s}
}

type readHalf struct {
	s *Session
}

// Read implements io.Reader.
func (h *readHalf) Read(p []byte) (int, error) {
	return h.s.Read(p)
}

// Close implements io.Closer.
func (h *readHalf) Close() error {
	return h.s.CloseRead()
}

// SetReadDeadline sets the read deadline.
func (h *readHalf) SetReadDeadline(t time.Time) error {
	tlsConn, err := h.s.established(netxlite.ReadOperation, StateEstablished, StateClosed)
	if err != nil {
		return err
	}
	return tlsConn.SetReadDeadline(t)
}

type writeHalf struct {
	s *Session
}

// Write implements io.Writer.
func (h *writeHalf) Write(p []byte) (int, error) {
	return h.s.Write(p)
}

// Close implements io.Closer.
func (h *writeHalf) Close() error {
	return h.s.CloseWrite()
}

// SetWriteDeadline sets the write deadline.
func (h *writeHalf) SetWriteDeadline(t time.Time) error {
	tlsConn, err := h.s.established(netxlite.WriteOperation, StateEstablished)
	if err != nil {
		return err
	}
	return tlsConn.SetWriteDeadline(t)
}
