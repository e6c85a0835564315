package mocks

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/ooni/streamtls/internal/model"
)

func TestConn(t *testing.T) {
	t.Run("Read", func(t *testing.T) {
		expected := errors.New("mocked error")
		c := &Conn{
			MockRead: func(b []byte) (int, error) {
				return 0, expected
			},
		}
		count, err := c.Read(make([]byte, 128))
		if !errors.Is(err, expected) {
			t.Fatal("not the error we expected", err)
		}
		if count != 0 {
			t.Fatal("expected 0 bytes")
		}
	})

	t.Run("Write", func(t *testing.T) {
		expected := errors.New("mocked error")
		c := &Conn{
			MockWrite: func(b []byte) (int, error) {
				return 0, expected
			},
		}
		count, err := c.Write(make([]byte, 128))
		if !errors.Is(err, expected) {
			t.Fatal("not the error we expected", err)
		}
		if count != 0 {
			t.Fatal("expected 0 bytes")
		}
	})

	t.Run("Close", func(t *testing.T) {
		expected := errors.New("mocked error")
		c := &Conn{
			MockClose: func() error {
				return expected
			},
		}
		if err := c.Close(); !errors.Is(err, expected) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("LocalAddr and RemoteAddr", func(t *testing.T) {
		expected := &net.TCPAddr{IP: net.IPv6loopback, Port: 1234}
		c := &Conn{
			MockLocalAddr: func() net.Addr {
				return expected
			},
			MockRemoteAddr: func() net.Addr {
				return expected
			},
		}
		if c.LocalAddr() != expected || c.RemoteAddr() != expected {
			t.Fatal("unexpected address")
		}
	})

	t.Run("deadlines", func(t *testing.T) {
		var calls []string
		c := &Conn{
			MockSetDeadline: func(t time.Time) error {
				calls = append(calls, "both")
				return nil
			},
			MockSetReadDeadline: func(t time.Time) error {
				calls = append(calls, "read")
				return nil
			},
			MockSetWriteDeadline: func(t time.Time) error {
				calls = append(calls, "write")
				return nil
			},
		}
		c.SetDeadline(time.Time{})
		c.SetReadDeadline(time.Time{})
		c.SetWriteDeadline(time.Time{})
		if !reflect.DeepEqual(calls, []string{"both", "read", "write"}) {
			t.Fatal("unexpected calls", calls)
		}
	})
}

func TestTLSConn(t *testing.T) {
	t.Run("ConnectionState", func(t *testing.T) {
		state := tls.ConnectionState{Version: tls.VersionTLS12}
		c := &TLSConn{
			MockConnectionState: func() tls.ConnectionState {
				return state
			},
		}
		out := c.ConnectionState()
		if !reflect.DeepEqual(out, state) {
			t.Fatal("not the result we expected")
		}
	})

	t.Run("HandshakeContext", func(t *testing.T) {
		expected := errors.New("mocked error")
		c := &TLSConn{
			MockHandshakeContext: func(ctx context.Context) error {
				return expected
			},
		}
		err := c.HandshakeContext(context.Background())
		if !errors.Is(err, expected) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("CloseWrite", func(t *testing.T) {
		expected := errors.New("mocked error")
		c := &TLSConn{
			MockCloseWrite: func() error {
				return expected
			},
		}
		if err := c.CloseWrite(); !errors.Is(err, expected) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("NetConn", func(t *testing.T) {
		expected := &Conn{}
		c := &TLSConn{
			MockNetConn: func() net.Conn {
				return expected
			},
		}
		if c.NetConn() != expected {
			t.Fatal("unexpected conn")
		}
	})
}

func TestTLSHandshaker(t *testing.T) {
	expected := errors.New("mocked error")
	th := &TLSHandshaker{
		MockHandshake: func(ctx context.Context, conn net.Conn,
			config *tls.Config) (model.TLSConn, tls.ConnectionState, error) {
			return nil, tls.ConnectionState{}, expected
		},
	}
	tlsConn, connState, err := th.Handshake(context.Background(), &Conn{}, &tls.Config{})
	if !errors.Is(err, expected) {
		t.Fatal("not the error we expected", err)
	}
	if !reflect.ValueOf(connState).IsZero() {
		t.Fatal("expected zero ConnectionState here")
	}
	if tlsConn != nil {
		t.Fatal("expected nil conn here")
	}
}
