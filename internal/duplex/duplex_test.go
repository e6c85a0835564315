package duplex

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ooni/streamtls/internal/mocks"
)

// vectoredReadWriter implements ReadVectored and WriteVectored.
type vectoredReadWriter struct {
	readv  func(bufs [][]byte) (int, error)
	writev func(bufs [][]byte) (int, error)
}

func (rw *vectoredReadWriter) Read(p []byte) (int, error) {
	panic("should not be called")
}

func (rw *vectoredReadWriter) ReadVectored(bufs [][]byte) (int, error) {
	return rw.readv(bufs)
}

func (rw *vectoredReadWriter) Write(p []byte) (int, error) {
	panic("should not be called")
}

func (rw *vectoredReadWriter) WriteVectored(bufs [][]byte) (int, error) {
	return rw.writev(bufs)
}

// flushWriter is a writer with a Flush method.
type flushWriter struct {
	bytes.Buffer
	flushed int
	err     error
}

func (w *flushWriter) Flush() error {
	w.flushed++
	return w.err
}

func TestConn(t *testing.T) {
	t.Run("Read only touches the reader", func(t *testing.T) {
		reader := &mocks.Conn{
			MockRead: func(b []byte) (int, error) {
				return copy(b, "abc"), nil
			},
		}
		writer := &mocks.Conn{} // any call would panic
		conn := New(reader, writer)
		buf := make([]byte, 8)
		count, err := conn.Read(buf)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff("abc", string(buf[:count])); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Read propagates errors verbatim", func(t *testing.T) {
		expected := errors.New("mocked error")
		reader := &mocks.Conn{
			MockRead: func(b []byte) (int, error) {
				return 0, expected
			},
		}
		conn := New(reader, &mocks.Conn{})
		if _, err := conn.Read(make([]byte, 8)); err != expected {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("Write only touches the writer", func(t *testing.T) {
		var got []byte
		writer := &mocks.Conn{
			MockWrite: func(b []byte) (int, error) {
				got = append(got, b...)
				return len(b), nil
			},
		}
		conn := New(&mocks.Conn{}, writer)
		count, err := conn.Write([]byte("hello"))
		if err != nil {
			t.Fatal(err)
		}
		if count != 5 {
			t.Fatal("unexpected count", count)
		}
		if diff := cmp.Diff([]byte("hello"), got); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("ReadVectored", func(t *testing.T) {
		t.Run("delegates when the reader supports it", func(t *testing.T) {
			var calls int
			rw := &vectoredReadWriter{
				readv: func(bufs [][]byte) (int, error) {
					calls++
					return 0, io.EOF
				},
			}
			conn := New(rw, &mocks.Conn{})
			if _, err := conn.ReadVectored([][]byte{make([]byte, 4)}); err != io.EOF {
				t.Fatal("not the error we expected", err)
			}
			if calls != 1 {
				t.Fatal("did not delegate")
			}
		})

		t.Run("otherwise reads once into the first non-empty buffer", func(t *testing.T) {
			conn := New(strings.NewReader("abcdef"), &mocks.Conn{})
			first, second := make([]byte, 4), make([]byte, 4)
			count, err := conn.ReadVectored([][]byte{{}, first, second})
			if err != nil {
				t.Fatal(err)
			}
			if count != 4 {
				t.Fatal("unexpected count", count)
			}
			if diff := cmp.Diff("abcd", string(first)); diff != "" {
				t.Fatal(diff)
			}
			if diff := cmp.Diff(make([]byte, 4), second); diff != "" {
				t.Fatal(diff)
			}
		})
	})

	t.Run("WriteVectored", func(t *testing.T) {
		t.Run("delegates when the writer supports it", func(t *testing.T) {
			rw := &vectoredReadWriter{
				writev: func(bufs [][]byte) (int, error) {
					return 17, nil
				},
			}
			conn := New(&mocks.Conn{}, rw)
			count, err := conn.WriteVectored([][]byte{[]byte("x")})
			if err != nil {
				t.Fatal(err)
			}
			if count != 17 {
				t.Fatal("did not delegate")
			}
		})

		t.Run("otherwise writes each buffer in order", func(t *testing.T) {
			writer := &bytes.Buffer{}
			conn := New(&mocks.Conn{}, writer)
			count, err := conn.WriteVectored([][]byte{[]byte("he"), {}, []byte("llo")})
			if err != nil {
				t.Fatal(err)
			}
			if count != 5 {
				t.Fatal("unexpected count", count)
			}
			if diff := cmp.Diff("hello", writer.String()); diff != "" {
				t.Fatal(diff)
			}
		})

		t.Run("and stops at the first error", func(t *testing.T) {
			expected := errors.New("mocked error")
			var calls int
			writer := &mocks.Conn{
				MockWrite: func(b []byte) (int, error) {
					calls++
					if calls == 2 {
						return 1, expected
					}
					return len(b), nil
				},
			}
			conn := New(&mocks.Conn{}, writer)
			count, err := conn.WriteVectored([][]byte{[]byte("ab"), []byte("cd"), []byte("ef")})
			if !errors.Is(err, expected) {
				t.Fatal("not the error we expected", err)
			}
			if count != 3 {
				t.Fatal("unexpected count", count)
			}
			if calls != 2 {
				t.Fatal("unexpected number of calls", calls)
			}
		})
	})

	t.Run("Flush", func(t *testing.T) {
		t.Run("delegates to the writer", func(t *testing.T) {
			expected := errors.New("mocked error")
			writer := &flushWriter{err: expected}
			conn := New(&mocks.Conn{}, writer)
			if err := conn.Flush(); !errors.Is(err, expected) {
				t.Fatal("not the error we expected", err)
			}
			if writer.flushed != 1 {
				t.Fatal("did not flush")
			}
		})

		t.Run("succeeds when the writer cannot flush", func(t *testing.T) {
			conn := New(&mocks.Conn{}, &bytes.Buffer{})
			if err := conn.Flush(); err != nil {
				t.Fatal(err)
			}
		})
	})

	t.Run("Close only closes the writer", func(t *testing.T) {
		var closed int
		writer := &mocks.Conn{
			MockClose: func() error {
				closed++
				return nil
			},
		}
		conn := New(&mocks.Conn{}, writer)
		if err := conn.Close(); err != nil {
			t.Fatal(err)
		}
		if closed != 1 {
			t.Fatal("did not close the writer")
		}
	})

	t.Run("Close succeeds when the writer cannot close", func(t *testing.T) {
		conn := New(&mocks.Conn{}, &bytes.Buffer{})
		if err := conn.Close(); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("CloseRead only closes the reader", func(t *testing.T) {
		var closed int
		reader := &mocks.Conn{
			MockClose: func() error {
				closed++
				return nil
			},
		}
		conn := New(reader, &mocks.Conn{})
		if err := conn.CloseRead(); err != nil {
			t.Fatal(err)
		}
		if closed != 1 {
			t.Fatal("did not close the reader")
		}
	})

	t.Run("deadlines go to the proper half", func(t *testing.T) {
		var calls []string
		reader := &mocks.Conn{
			MockSetReadDeadline: func(t time.Time) error {
				calls = append(calls, "reader")
				return nil
			},
		}
		writer := &mocks.Conn{
			MockSetWriteDeadline: func(t time.Time) error {
				calls = append(calls, "writer")
				return nil
			},
		}
		conn := New(reader, writer)
		if err := conn.SetReadDeadline(time.Now()); err != nil {
			t.Fatal(err)
		}
		if err := conn.SetWriteDeadline(time.Now()); err != nil {
			t.Fatal(err)
		}
		if err := conn.SetDeadline(time.Now()); err != nil {
			t.Fatal(err)
		}
		expect := []string{"reader", "writer", "reader", "writer"}
		if diff := cmp.Diff(expect, calls); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("SetDeadline joins the errors", func(t *testing.T) {
		expected := errors.New("mocked error")
		reader := &mocks.Conn{
			MockSetReadDeadline: func(t time.Time) error {
				return expected
			},
		}
		conn := New(reader, &bytes.Buffer{})
		if err := conn.SetDeadline(time.Now()); !errors.Is(err, expected) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("addresses", func(t *testing.T) {
		conn := New(&mocks.Conn{}, &mocks.Conn{})
		for _, addr := range []interface{ Network() string }{conn.LocalAddr(), conn.RemoteAddr()} {
			if addr.Network() != "stream" {
				t.Fatal("unexpected network")
			}
		}
		if conn.RemoteAddr().String() != "stream" {
			t.Fatal("unexpected address")
		}
	})
}
