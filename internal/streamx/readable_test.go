package streamx

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ooni/streamtls/internal/model"
)

// closeCounter is an io.ReadCloser counting calls to Close.
type closeCounter struct {
	io.Reader
	closed int
}

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

func TestReadableStream(t *testing.T) {
	t.Run("BYOB reader", func(t *testing.T) {
		stream := NewReadableStream(io.NopCloser(strings.NewReader("hello")), 0)
		reader, err := stream.GetBYOBReader()
		if err != nil {
			t.Fatal(err)
		}
		buf := make([]byte, 3)
		var got []string
		for {
			count, err := reader.ReadInto(context.Background(), buf)
			if err != nil {
				t.Fatal(err)
			}
			if count == 0 {
				break
			}
			got = append(got, string(buf[:count]))
		}
		if diff := cmp.Diff([]string{"hel", "lo"}, got); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("default reader uses the default chunk size", func(t *testing.T) {
		data := strings.Repeat("x", 2500)
		stream := NewReadableStream(io.NopCloser(strings.NewReader(data)), 0)
		reader, err := stream.GetReader()
		if err != nil {
			t.Fatal(err)
		}
		var sizes []int
		for {
			chunk, done, err := reader.Read(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if done {
				break
			}
			sizes = append(sizes, len(chunk.([]byte)))
		}
		if diff := cmp.Diff([]int{1024, 1024, 452}, sizes); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("default reader with custom chunk size", func(t *testing.T) {
		stream := NewReadableStream(io.NopCloser(strings.NewReader("abcde")), 2)
		reader, err := stream.GetReader()
		if err != nil {
			t.Fatal(err)
		}
		var chunks []model.Chunk
		for {
			chunk, done, err := reader.Read(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if done {
				break
			}
			chunks = append(chunks, chunk)
		}
		expect := []model.Chunk{[]byte("ab"), []byte("cd"), []byte("e")}
		if diff := cmp.Diff(expect, chunks); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("only one reader at a time", func(t *testing.T) {
		stream := NewReadableStream(io.NopCloser(strings.NewReader("")), 0)
		reader, err := stream.GetReader()
		if err != nil {
			t.Fatal(err)
		}
		if _, err := stream.GetBYOBReader(); !errors.Is(err, model.ErrStreamLocked) {
			t.Fatal("unexpected error", err)
		}
		reader.ReleaseLock()
		if _, err := stream.GetBYOBReader(); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("Cancel closes the underlying reader once", func(t *testing.T) {
		underlying := &closeCounter{Reader: strings.NewReader("abc")}
		stream := NewReadableStream(underlying, 0)
		reader, err := stream.GetReader()
		if err != nil {
			t.Fatal(err)
		}
		if err := reader.Cancel(context.Background(), nil); err != nil {
			t.Fatal(err)
		}
		if err := reader.Cancel(context.Background(), nil); err != nil {
			t.Fatal(err)
		}
		if underlying.closed != 1 {
			t.Fatal("unexpected number of closes", underlying.closed)
		}
		_, done, err := reader.Read(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !done {
			t.Fatal("expected the stream to be done")
		}
	})

	t.Run("BYOB reader rejects an empty buffer", func(t *testing.T) {
		stream := NewReadableStream(io.NopCloser(strings.NewReader("xxxx")), 0)
		reader, err := stream.GetBYOBReader()
		if err != nil {
			t.Fatal(err)
		}
		if _, err := reader.ReadInto(context.Background(), nil); !errors.Is(err, model.ErrEmptyBuffer) {
			t.Fatal("unexpected error", err)
		}
		if !errors.Is(model.ErrEmptyBuffer, model.ErrInvalidPayload) {
			t.Fatal("expected an invalid payload error")
		}
		// the stream is still open
		buf := make([]byte, 4)
		count, err := reader.ReadInto(context.Background(), buf)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff("xxxx", string(buf[:count])); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("propagates errors", func(t *testing.T) {
		expected := errors.New("mocked error")
		stream := NewReadableStream(io.NopCloser(&failingReader{expected}), 0)
		reader, err := stream.GetBYOBReader()
		if err != nil {
			t.Fatal(err)
		}
		if _, err := reader.ReadInto(context.Background(), make([]byte, 4)); !errors.Is(err, expected) {
			t.Fatal("unexpected error", err)
		}
	})

	t.Run("the context interrupts reads from readers with deadlines", func(t *testing.T) {
		left, right := net.Pipe()
		defer left.Close()
		defer right.Close()
		stream := NewReadableStream(left, 0)
		reader, err := stream.GetBYOBReader()
		if err != nil {
			t.Fatal(err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if _, err := reader.ReadInto(ctx, make([]byte, 4)); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatal("unexpected error", err)
		}
		// make sure we can read again after the interruption
		go right.Write([]byte("abc"))
		buf := make([]byte, 4)
		count, err := reader.ReadInto(context.Background(), buf)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff("abc", string(buf[:count])); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("with an already canceled context", func(t *testing.T) {
		stream := NewReadableStream(io.NopCloser(strings.NewReader("abc")), 0)
		reader, err := stream.GetReader()
		if err != nil {
			t.Fatal(err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, _, err := reader.Read(ctx); !errors.Is(err, context.Canceled) {
			t.Fatal("unexpected error", err)
		}
	})
}

type failingReader struct {
	err error
}

func (r *failingReader) Read(p []byte) (int, error) {
	return 0, r.err
}

func TestWithoutBYOB(t *testing.T) {
	stream := WithoutBYOB(NewReadableStream(io.NopCloser(strings.NewReader("abc")), 0))
	if _, err := stream.GetBYOBReader(); !errors.Is(err, model.ErrBYOBUnsupported) {
		t.Fatal("unexpected error", err)
	}
	r, err := NewReader(stream, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.State() != ReaderFallbackActive {
		t.Fatal("unexpected state", r.State())
	}
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("abc", string(data)); diff != "" {
		t.Fatal(diff)
	}
}
