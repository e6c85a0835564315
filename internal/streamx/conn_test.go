package streamx

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ooni/streamtls/internal/mocks"
)

func TestNewConnStreams(t *testing.T) {
	t.Run("with a conn supporting half closes", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		defer listener.Close()
		go func() {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
			_, _ = io.Copy(conn, conn) // echo until the client closes its write side
		}()
		conn, err := net.Dial("tcp", listener.Addr().String())
		if err != nil {
			t.Fatal(err)
		}
		defer conn.Close()

		source, sink := NewConnStreams(conn, 0)
		writer, err := sink.GetWriter()
		if err != nil {
			t.Fatal(err)
		}
		ctx := context.Background()
		if err := writer.Write(ctx, "ping"); err != nil {
			t.Fatal(err)
		}
		if err := writer.Close(ctx); err != nil {
			t.Fatal(err)
		}
		r, err := NewReader(source, nil)
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(r)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff("ping", string(data)); diff != "" {
			t.Fatal(diff)
		}
		if err := r.Close(); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("otherwise closing closes the conn", func(t *testing.T) {
		var closed int
		conn := &mocks.Conn{
			MockClose: func() error {
				closed++
				return nil
			},
		}
		source, sink := NewConnStreams(conn, 0)
		writer, err := sink.GetWriter()
		if err != nil {
			t.Fatal(err)
		}
		if err := writer.Close(context.Background()); err != nil {
			t.Fatal(err)
		}
		reader, err := source.GetReader()
		if err != nil {
			t.Fatal(err)
		}
		if err := reader.Cancel(context.Background(), errors.New("antani")); err != nil {
			t.Fatal(err)
		}
		if closed != 2 {
			t.Fatal("unexpected number of closes", closed)
		}
	})
}
