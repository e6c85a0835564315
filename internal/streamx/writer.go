package streamx

import (
	"context"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/ooni/streamtls/internal/model"
)

// Writer is an [io.WriteCloser] writing into a [model.WritableStream].
//
// Write, Flush, and Close are not safe for concurrent use, while
// Release and SetWriteDeadline may be called from any goroutine.
type Writer struct {
	cancel      context.CancelFunc
	closed      bool
	ctx         context.Context
	deadline    *deadline
	err         error
	mu          sync.Mutex
	releaseOnce sync.Once
	writer      model.StreamWriter
}

var _ io.WriteCloser = &Writer{}

// NewWriter acquires a writer for the given sink and returns a [*Writer]. The
// returned error is the one returned by GetWriter.
func NewWriter(sink model.WritableStream) (*Writer, error) {
	writer, err := sink.GetWriter()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Writer{
		cancel:   cancel,
		ctx:      ctx,
		deadline: newDeadline(),
		writer:   writer,
	}
	return w, nil
}

// Write implements io.Writer. We copy p into a new chunk, so the caller
// may reuse p as soon as we return, and we return once the sink has
// accepted the chunk. Errors other than [os.ErrDeadlineExceeded] are sticky.
func (w *Writer) Write(p []byte) (int, error) {
	if err := w.usable(); err != nil {
		return 0, err
	}
	if len(p) <= 0 {
		return 0, nil
	}
	chunk := append([]byte{}, p...)
	if err := w.call(func(ctx context.Context) error {
		return w.writer.Write(ctx, chunk)
	}); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Flush flushes the sink writer, if it implements [model.StreamFlusher].
func (w *Writer) Flush() error {
	if err := w.usable(); err != nil {
		return err
	}
	flusher, good := w.writer.(model.StreamFlusher)
	if !good {
		return nil
	}
	return w.call(flusher.Flush)
}

// Close sends the finish signal to the sink and releases the lock. The
// first call forwards the finish, subsequent calls return [model.ErrAlreadyClosed].
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return model.ErrAlreadyClosed
	}
	w.closed = true
	w.mu.Unlock()
	err := w.call(w.writer.Close)
	w.release()
	return err
}

// Release releases the lock without sending the finish signal. After
// Release, Close returns [model.ErrAlreadyClosed].
func (w *Writer) Release() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.release()
}

func (w *Writer) release() {
	w.releaseOnce.Do(func() {
		w.cancel()
		w.writer.ReleaseLock()
	})
}

// SetWriteDeadline sets the write deadline. Expiring the deadline
// interrupts the pending host call, if any.
func (w *Writer) SetWriteDeadline(t time.Time) error {
	w.deadline.set(t)
	return nil
}

func (w *Writer) usable() error {
	defer w.mu.Unlock()
	w.mu.Lock()
	switch {
	case w.err != nil:
		return w.err
	case w.closed:
		return net.ErrClosed
	default:
		return nil
	}
}

// call calls fn with a context bound to the write deadline and maps
// the returned error, possibly making it sticky.
func (w *Writer) call(fn func(ctx context.Context) error) error {
	ctx, cancel, err := w.deadline.context(w.ctx)
	if err != nil {
		return err
	}
	defer cancel()
	if err := fn(ctx); err != nil {
		if deadlineExpired(ctx) {
			return os.ErrDeadlineExceeded
		}
		w.mu.Lock()
		if w.err == nil {
			w.err = err
		}
		w.mu.Unlock()
		return err
	}
	return nil
}
