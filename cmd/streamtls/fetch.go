package main

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/apex/log"
	"github.com/ooni/streamtls/internal/bytecounter"
	"github.com/ooni/streamtls/internal/model"
	"github.com/ooni/streamtls/internal/netxlite"
	"github.com/ooni/streamtls/internal/streamx"
	"github.com/ooni/streamtls/pkg/streamtls"
)

// errNoCertificates indicates that the CA file does not contain any certificate.
var errNoCertificates = errors.New("no certificates in CA file")

// loadCAFile returns the cert pool to use or nil to use the default one.
func loadCAFile(path string) (*x509.CertPool, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("%w: %s", errNoCertificates, path)
	}
	return pool, nil
}

// run connects to host, sends an HTTP/1.0 request for the configured path,
// and copies the response to stdout.
func run(ctx context.Context, options *Options, host string, stdout io.Writer) error {
	rootCAs, err := loadCAFile(options.CAFile)
	if err != nil {
		return err
	}

	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	address := options.ConnectTo
	if address == "" {
		address = net.JoinHostPort(host, strconv.Itoa(options.Port))
	}
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	log.Infof("connect %s... %s", address, model.ErrorToStringOrOK(err))
	if err != nil {
		return err
	}
	defer conn.Close()

	source, sink := streamx.NewConnStreams(conn, options.ChunkSize)
	if options.NoBYOB {
		source = streamx.WithoutBYOB(source)
	}
	counter := bytecounter.New()
	config := &streamtls.Config{
		ByteCounter: counter,
		ChunkSize:   options.ChunkSize,
		Logger:      log.Log,
		RootCAs:     rootCAs,
		TLSVersion:  options.TLSVersion,
	}
	channel, err := streamtls.Connect(ctx, source, sink, host, config)
	log.Infof("tls handshake with %s... %s", host, model.ErrorToStringOrOK(err))
	if err != nil {
		return err
	}
	log.Infof(
		"established %s with %s using %s",
		netxlite.TLSVersionString(channel.ConnectionState.Version),
		host,
		netxlite.TLSCipherSuiteString(channel.ConnectionState.CipherSuite),
	)

	writer, err := channel.Writable.GetWriter()
	if err != nil {
		return err
	}
	request := fmt.Sprintf("GET %s HTTP/1.0\r\nHost: %s\r\n\r\n", options.Path, host)
	if err := writer.Write(ctx, request); err != nil {
		return err
	}

	reader, err := streamx.NewReader(channel.Readable, log.Log)
	if err != nil {
		return err
	}
	defer reader.Close()
	stop := context.AfterFunc(ctx, func() {
		_ = reader.Close()
	})
	defer stop()
	if _, err := io.Copy(stdout, reader); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return err
	}

	// the server may have already torn down the connection
	if err := writer.Close(ctx); err != nil {
		log.Debugf("cannot close the writable: %s", err.Error())
	}
	log.Infof("sent %.2f KiB, received %.2f KiB", counter.KibiBytesSent(), counter.KibiBytesReceived())
	return nil
}
