package streamx

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/ooni/streamtls/internal/model"
)

// DefaultChunkSize is the default maximum size of the chunks
// produced by the default reader of [NewReadableStream].
const DefaultChunkSize = 1024

// aLongTimeAgo is a non-zero time in the past used to interrupt I/O.
var aLongTimeAgo = time.Unix(1, 0)

// NewReadableStream presents r as a [model.ReadableStream] supporting both BYOB
// readers and default readers. Default readers produce []byte chunks containing
// at most chunkSize bytes; a zero or negative chunkSize means [DefaultChunkSize].
//
// When r implements SetReadDeadline, reads honour the context passed to the
// host reader. Cancelling the stream closes r.
func NewReadableStream(r io.ReadCloser, chunkSize int) model.ReadableStream {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &readableStream{chunkSize: chunkSize, r: r}
}

type readableStream struct {
	cancelOnce sync.Once
	cancelled  bool
	chunkSize  int
	locked     bool
	mu         sync.Mutex
	r          io.ReadCloser
}

// GetBYOBReader implements model.ReadableStream.
func (s *readableStream) GetBYOBReader() (model.BYOBReader, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	return &readableStreamBYOBReader{s}, nil
}

// GetReader implements model.ReadableStream.
func (s *readableStream) GetReader() (model.ChunkReader, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	return &readableStreamReader{s}, nil
}

func (s *readableStream) lock() error {
	defer s.mu.Unlock()
	s.mu.Lock()
	if s.locked {
		return model.ErrStreamLocked
	}
	s.locked = true
	return nil
}

func (s *readableStream) releaseLock() {
	defer s.mu.Unlock()
	s.mu.Lock()
	s.locked = false
}

func (s *readableStream) cancel() (err error) {
	s.cancelOnce.Do(func() {
		s.mu.Lock()
		s.cancelled = true
		s.mu.Unlock()
		err = s.r.Close()
	})
	return
}

func (s *readableStream) isCancelled() bool {
	defer s.mu.Unlock()
	s.mu.Lock()
	return s.cancelled
}

// readInto reads into buf. A zero count with nil error means the stream has ended.
func (s *readableStream) readInto(ctx context.Context, buf []byte) (int, error) {
	if len(buf) <= 0 {
		return 0, model.ErrEmptyBuffer
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.isCancelled() {
		return 0, nil
	}
	if d, good := s.r.(interface{ SetReadDeadline(t time.Time) error }); good {
		defer interruptOnDone(ctx, d.SetReadDeadline)()
	}
	count, err := s.r.Read(buf)
	if count > 0 {
		return count, nil // any error will show up again at the next read
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, ctxErr
	}
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	return 0, err
}

// interruptOnDone arranges for setDeadline to interrupt pending I/O when ctx
// is done. The returned func undoes the arrangement and clears the deadline
// we may have set, so that the next I/O operation works as intended.
func interruptOnDone(ctx context.Context, setDeadline func(t time.Time) error) func() {
	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(interrupted)
		_ = setDeadline(aLongTimeAgo)
	})
	return func() {
		if !stop() {
			<-interrupted
			_ = setDeadline(time.Time{})
		}
	}
}

type readableStreamBYOBReader struct {
	s *readableStream
}

// ReadInto implements model.BYOBReader.
func (r *readableStreamBYOBReader) ReadInto(ctx context.Context, buf []byte) (int, error) {
	return r.s.readInto(ctx, buf)
}

// Cancel implements model.BYOBReader.
func (r *readableStreamBYOBReader) Cancel(ctx context.Context, reason error) error {
	return r.s.cancel()
}

// ReleaseLock implements model.BYOBReader.
func (r *readableStreamBYOBReader) ReleaseLock() {
	r.s.releaseLock()
}

type readableStreamReader struct {
	s *readableStream
}

// Read implements model.ChunkReader.
func (r *readableStreamReader) Read(ctx context.Context) (model.Chunk, bool, error) {
	buf := make([]byte, r.s.chunkSize)
	count, err := r.s.readInto(ctx, buf)
	if err != nil {
		return nil, false, err
	}
	if count <= 0 {
		return nil, true, nil
	}
	return buf[:count], false, nil
}

// Cancel implements model.ChunkReader.
func (r *readableStreamReader) Cancel(ctx context.Context, reason error) error {
	return r.s.cancel()
}

// ReleaseLock implements model.ChunkReader.
func (r *readableStreamReader) ReleaseLock() {
	r.s.releaseLock()
}

// WithoutBYOB returns a [model.ReadableStream] refusing to hand out BYOB
// readers, which forces consumers to use the default reader.
func WithoutBYOB(stream model.ReadableStream) model.ReadableStream {
	return &withoutBYOB{stream}
}

type withoutBYOB struct {
	model.ReadableStream
}

// GetBYOBReader implements model.ReadableStream.
func (*withoutBYOB) GetBYOBReader() (model.BYOBReader, error) {
	return nil, model.ErrBYOBUnsupported
}
