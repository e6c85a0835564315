package streamx

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ooni/streamtls/internal/model"
)

// NewWritableStream presents w as a [model.WritableStream] accepting string
// and []byte chunks. Other chunks fail with [model.ErrInvalidPayload]. Any write
// error is sticky. Closing the stream writer closes w exactly once.
//
// When w implements SetWriteDeadline, writes honour the context passed
// to the stream writer. When w implements Flush, the stream writer
// implements [model.StreamFlusher].
func NewWritableStream(w io.WriteCloser) model.WritableStream {
	return &writableStream{w: w}
}

type writableStream struct {
	closed bool
	err    error
	locked bool
	mu     sync.Mutex
	w      io.WriteCloser
}

// GetWriter implements model.WritableStream.
func (s *writableStream) GetWriter() (model.StreamWriter, error) {
	defer s.mu.Unlock()
	s.mu.Lock()
	if s.locked {
		return nil, model.ErrStreamLocked
	}
	s.locked = true
	return &writableStreamWriter{s}, nil
}

func (s *writableStream) stickyError() error {
	defer s.mu.Unlock()
	s.mu.Lock()
	if s.err == nil && s.closed {
		return net.ErrClosed
	}
	return s.err
}

func (s *writableStream) setError(err error) error {
	defer s.mu.Unlock()
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	return s.err
}

// withDeadline arranges for ctx to interrupt writes when possible.
func (s *writableStream) withDeadline(ctx context.Context) func() {
	if d, good := s.w.(interface{ SetWriteDeadline(t time.Time) error }); good {
		return interruptOnDone(ctx, d.SetWriteDeadline)
	}
	return func() {}
}

type writableStreamWriter struct {
	s *writableStream
}

var _ model.StreamFlusher = &writableStreamWriter{}

// Write implements model.StreamWriter.
func (sw *writableStreamWriter) Write(ctx context.Context, chunk model.Chunk) error {
	if err := sw.s.stickyError(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := decodeChunk(chunk)
	if err != nil {
		return sw.s.setError(err)
	}
	defer sw.s.withDeadline(ctx)()
	if _, err := sw.s.w.Write(data); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return sw.s.setError(err)
	}
	return nil
}

// Flush implements model.StreamFlusher.
func (sw *writableStreamWriter) Flush(ctx context.Context) error {
	if err := sw.s.stickyError(); err != nil {
		return err
	}
	if f, good := sw.s.w.(interface{ Flush() error }); good {
		return f.Flush()
	}
	return nil
}

// Close implements model.StreamWriter.
func (sw *writableStreamWriter) Close(ctx context.Context) error {
	sw.s.mu.Lock()
	if sw.s.closed {
		sw.s.mu.Unlock()
		return model.ErrAlreadyClosed
	}
	sw.s.closed = true
	sw.s.mu.Unlock()
	return sw.s.w.Close()
}

// ReleaseLock implements model.StreamWriter.
func (sw *writableStreamWriter) ReleaseLock() {
	defer sw.s.mu.Unlock()
	sw.s.mu.Lock()
	sw.s.locked = false
}
