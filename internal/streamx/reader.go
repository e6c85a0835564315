package streamx

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/ooni/streamtls/internal/model"
)

// ReaderState is the state of a [*Reader].
type ReaderState int

const (
	// ReaderUninitialized means we have not acquired a host reader yet.
	ReaderUninitialized = ReaderState(iota)

	// ReaderZeroCopyActive means we read using a BYOB reader.
	ReaderZeroCopyActive

	// ReaderFallbackActive means we read using a default reader.
	ReaderFallbackActive

	// ReaderClosed means the stream ended or Close was called.
	ReaderClosed

	// ReaderErrored means a read failed.
	ReaderErrored
)

// String implements fmt.Stringer.
func (s ReaderState) String() string {
	switch s {
	case ReaderUninitialized:
		return "uninitialized"
	case ReaderZeroCopyActive:
		return "zero_copy"
	case ReaderFallbackActive:
		return "fallback"
	case ReaderClosed:
		return "closed"
	case ReaderErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// errBYOBOverflow indicates that a BYOB reader claimed to have
// written more bytes than the buffer could hold.
var errBYOBOverflow = errors.New("streamx: BYOB reader overflowed the buffer")

// hostReader contains the methods shared by all host readers.
type hostReader interface {
	Cancel(ctx context.Context, reason error) error
	ReleaseLock()
}

// Reader is an [io.ReadCloser] reading from a [model.ReadableStream].
//
// The Read method is not safe for concurrent use, while Close and
// SetReadDeadline may be called from any goroutine.
type Reader struct {
	byob      model.BYOBReader
	cancel    context.CancelFunc
	closeOnce sync.Once
	ctx       context.Context
	deadline  *deadline
	err       error
	host      hostReader
	mu        sync.Mutex
	queue     *chunkQueue
	state     ReaderState
}

var _ io.ReadCloser = &Reader{}

// NewReader creates a new [*Reader]. We first try to acquire a BYOB reader and, if the
// stream refuses, we acquire a default reader. The returned error is the one returned
// by GetReader when we cannot acquire any reader. Wrapping the same stream twice is
// a programming error that fails because the stream is already locked.
func NewReader(stream model.ReadableStream, logger model.DebugLogger) (*Reader, error) {
	logger = model.ValidDebugLoggerOrDefault(logger)
	ctx, cancel := context.WithCancel(context.Background())
	r := &Reader{
		cancel:   cancel,
		ctx:      ctx,
		deadline: newDeadline(),
		state:    ReaderUninitialized,
	}
	byob, err := stream.GetBYOBReader()
	if err == nil {
		logger.Debug("streamx: using the zero-copy BYOB reader")
		r.byob, r.host, r.state = byob, byob, ReaderZeroCopyActive
		return r, nil
	}
	logger.Debugf("streamx: BYOB reader unavailable: %s; using the default reader", err.Error())
	reader, err := stream.GetReader()
	if err != nil {
		cancel()
		return nil, err
	}
	r.queue, r.host, r.state = &chunkQueue{reader: reader}, reader, ReaderFallbackActive
	return r, nil
}

// State returns the reader state.
func (r *Reader) State() ReaderState {
	defer r.mu.Unlock()
	r.mu.Lock()
	return r.state
}

// Read implements io.Reader. We return [io.EOF] when the stream ends, [net.ErrClosed]
// after Close, and [os.ErrDeadlineExceeded] when the read deadline expires. Any other
// error is sticky and we return it to all subsequent reads.
func (r *Reader) Read(p []byte) (int, error) {
	if err := r.stickyError(); err != nil {
		return 0, err
	}
	if len(p) <= 0 {
		return 0, nil
	}
	ctx, cancel, err := r.deadline.context(r.ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()
	var count int
	if r.byob != nil {
		count, err = r.readZeroCopy(ctx, p)
	} else {
		count, err = r.queue.read(ctx, p)
	}
	if err != nil {
		err = r.setError(ctx, err)
		if count > 0 {
			return count, nil // a sticky error shows up at the next read
		}
		return 0, err
	}
	return count, nil
}

// readZeroCopy may return bytes along with an error.
func (r *Reader) readZeroCopy(ctx context.Context, p []byte) (int, error) {
	count, err := r.byob.ReadInto(ctx, p)
	switch {
	case count > len(p):
		return 0, errBYOBOverflow
	case count > 0:
		return count, err
	case err != nil:
		return 0, err
	default:
		return 0, io.EOF
	}
}

func (r *Reader) stickyError() error {
	defer r.mu.Unlock()
	r.mu.Lock()
	return r.err
}

// setError maps the error returned by a host read, updates the state, and
// returns the error to give back to the caller.
func (r *Reader) setError(ctx context.Context, err error) error {
	defer r.mu.Unlock()
	r.mu.Lock()
	switch {
	case r.err != nil:
		return r.err // Close was called while we were reading
	case deadlineExpired(ctx):
		return os.ErrDeadlineExceeded
	case errors.Is(err, io.EOF):
		r.err, r.state = io.EOF, ReaderClosed
	default:
		r.err, r.state = err, ReaderErrored
	}
	return r.err
}

// SetReadDeadline sets the read deadline. Expiring the deadline
// interrupts the pending host read, if any.
func (r *Reader) SetReadDeadline(t time.Time) error {
	r.deadline.set(t)
	return nil
}

// Close interrupts any pending read, cancels the host reader, and releases
// the stream lock. Subsequent reads fail with [net.ErrClosed]. Calling
// Close more than once is a no-op.
func (r *Reader) Close() (err error) {
	r.closeOnce.Do(func() {
		r.markClosed()
		err = r.host.Cancel(context.Background(), nil)
		r.host.ReleaseLock()
	})
	return
}

// Release interrupts any pending read and releases the stream lock without
// cancelling the stream, so that its owner may read from it again. After
// Release, reads fail with [net.ErrClosed] and Close is a no-op.
func (r *Reader) Release() {
	r.closeOnce.Do(func() {
		r.markClosed()
		r.host.ReleaseLock()
	})
}

func (r *Reader) markClosed() {
	r.mu.Lock()
	r.err, r.state = net.ErrClosed, ReaderClosed
	r.mu.Unlock()
	r.cancel()
}

// chunkQueue reads from a default reader and serves the chunks' bytes. It
// is one-shot: once the stream has ended we never read again.
type chunkQueue struct {
	done    bool
	pending []byte
	reader  model.ChunkReader
}

// read returns bytes from at most one chunk, pulling a new chunk only
// when there are no pending bytes.
func (q *chunkQueue) read(ctx context.Context, p []byte) (int, error) {
	for len(q.pending) <= 0 {
		if q.done {
			return 0, io.EOF
		}
		chunk, done, err := q.reader.Read(ctx)
		if err != nil {
			return 0, err
		}
		if done {
			q.done = true
			return 0, io.EOF
		}
		data, err := decodeChunk(chunk)
		if err != nil {
			return 0, err
		}
		q.pending = data
	}
	count := copy(p, q.pending)
	q.pending = q.pending[count:]
	return count, nil
}
