package testingx_test

// These tests are in a separate package because we need to import netxlite
// which otherwise creates a circular dependency with netxlite tests

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/google/go-cmp/cmp"
	"github.com/ooni/streamtls/internal/netxlite"
	"github.com/ooni/streamtls/internal/runtimex"
	"github.com/ooni/streamtls/internal/testingx"
)

func TestTLSServer(t *testing.T) {
	// testcase is a test case implemented by this func
	type testcase struct {
		// name is the name of the test case
		name string

		// newHandler is the factory for creating a new handler
		newHandler func(mitm testingx.TLSMITMProvider) testingx.TLSHandler

		// timeout is the TLS handshake timeout
		timeout time.Duration

		// expectErr is the expected TLS handshake error
		expectErr error

		// expectBody is the text we expect to receive otherwise
		expectBody []byte
	}

	greeting := []byte("Hello, world!\n")

	testcases := []testcase{{
		name: "with TLSHandlerTimeout",
		newHandler: func(mitm testingx.TLSMITMProvider) testingx.TLSHandler {
			return testingx.TLSHandlerTimeout()
		},
		timeout:    1 * time.Second,
		expectErr:  errors.New(netxlite.FailureGenericTimeoutError),
		expectBody: []byte{},
	}, {
		name: "with TLSHandlerSendAlert",
		newHandler: func(mitm testingx.TLSMITMProvider) testingx.TLSHandler {
			return testingx.TLSHandlerSendAlert(testingx.TLSAlertUnrecognizedName)
		},
		timeout:    10 * time.Second,
		expectErr:  errors.New(netxlite.FailureSSLInvalidHostname),
		expectBody: []byte{},
	}, {
		name: "with TLSHandlerEOF",
		newHandler: func(mitm testingx.TLSMITMProvider) testingx.TLSHandler {
			return testingx.TLSHandlerEOF()
		},
		timeout:    10 * time.Second,
		expectErr:  errors.New(netxlite.FailureEOFError),
		expectBody: []byte{},
	}, {
		name: "with TLSHandlerReset",
		newHandler: func(mitm testingx.TLSMITMProvider) testingx.TLSHandler {
			return testingx.TLSHandlerReset()
		},
		timeout:    10 * time.Second,
		expectErr:  errors.New(netxlite.FailureConnectionReset),
		expectBody: []byte{},
	}, {
		name: "with TLSHandlerHandshakeAndWriteText",
		newHandler: func(mitm testingx.TLSMITMProvider) testingx.TLSHandler {
			return testingx.TLSHandlerHandshakeAndWriteText(mitm, greeting)
		},
		timeout:    10 * time.Second,
		expectErr:  nil,
		expectBody: greeting,
	}}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			// create the MITM provider and the server running in the background
			mitm := testingx.MustNewTLSMITMProviderNetem()
			server := testingx.MustNewTLSServer(tc.newHandler(mitm))
			defer server.Close()

			// create TLS config with a specific SNI
			tlsConfig := &tls.Config{
				RootCAs:    runtimex.Try1(mitm.DefaultCertPool()),
				ServerName: "www.example.com",
			}

			// create a context with a timeout
			ctx, cancel := context.WithTimeout(context.Background(), tc.timeout)
			defer cancel()

			// establish a TCP connection
			tcpConn, err := (&net.Dialer{}).DialContext(ctx, "tcp", server.Endpoint())
			if err != nil {
				t.Fatal(err)
			}
			defer tcpConn.Close()

			// perform the TLS handshake
			tlsHandshaker := netxlite.NewTLSHandshakerStdlib(log.Log)
			tlsConn, _, err := tlsHandshaker.Handshake(ctx, tcpConn, tlsConfig)

			// check the result of the handshake
			switch {
			case tc.expectErr == nil && err != nil:
				t.Fatal("expected", tc.expectErr, "but got", err)

			case tc.expectErr != nil && err == nil:
				t.Fatal("expected", tc.expectErr, "but got", err)

			case tc.expectErr != nil && err != nil:
				if err.Error() != tc.expectErr.Error() {
					t.Fatal("expected", tc.expectErr, "but got", err)
				}
				return

			default:
				// fallthrough
			}

			// make sure we close the connection
			defer tlsConn.Close()

			// read bytes from the connection
			data, err := io.ReadAll(io.LimitReader(tlsConn, 1<<14))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.expectBody, data); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestTLSHandlerEcho(t *testing.T) {
	mitm := testingx.MustNewTLSMITMProviderNetem()
	server := testingx.MustNewTLSServer(testingx.TLSHandlerEcho(mitm, []byte("hi\n")))
	defer server.Close()

	tcpConn, err := net.Dial("tcp", server.Endpoint())
	if err != nil {
		t.Fatal(err)
	}
	defer tcpConn.Close()

	tlsConn := tls.Client(tcpConn, &tls.Config{
		RootCAs:    runtimex.Try1(mitm.DefaultCertPool()),
		ServerName: "dns.google",
	})
	if _, err := tlsConn.Write([]byte("ping\n")); err != nil {
		t.Fatal(err)
	}
	if err := tlsConn.CloseWrite(); err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(tlsConn)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte("hi\nping\n"), data); diff != "" {
		t.Fatal(diff)
	}
}

func TestTLSHandlerHTTP10(t *testing.T) {
	mitm := testingx.MustNewTLSMITMProviderNetem()
	response := []byte("HTTP/1.0 200 OK\r\n\r\nhello")
	server := testingx.MustNewTLSServer(testingx.TLSHandlerHTTP10(mitm, response))
	defer server.Close()

	tcpConn, err := net.Dial("tcp", server.Endpoint())
	if err != nil {
		t.Fatal(err)
	}
	defer tcpConn.Close()

	tlsConn := tls.Client(tcpConn, &tls.Config{
		RootCAs:    runtimex.Try1(mitm.DefaultCertPool()),
		ServerName: "dns.google",
	})
	request := "GET / HTTP/1.0\r\nHost: dns.google\r\n\r\n"
	if _, err := tlsConn.Write([]byte(request)); err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(tlsConn)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(response, data); diff != "" {
		t.Fatal(diff)
	}
}
