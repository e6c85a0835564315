package model

//
// Host stream primitives
//

import (
	"context"
	"errors"
	"fmt"
)

// Chunk is one opaque unit of data produced by a host [ReadableStream] or
// accepted by a host [WritableStream]. The only valid shapes are string,
// whose raw bytes are the payload, and []byte. Any other value is
// an invalid payload (see [ErrInvalidPayload]).
type Chunk any

// ErrInvalidPayload indicates that a [Chunk] is neither a string nor a []byte.
var ErrInvalidPayload = errors.New("invalid payload")

// ErrEmptyBuffer indicates that [BYOBReader.ReadInto] got an empty buffer,
// which it cannot fill without being mistaken for the end of the stream.
var ErrEmptyBuffer = fmt.Errorf("%w: empty buffer", ErrInvalidPayload)

// ErrStreamLocked indicates that another consumer already acquired
// a reader or a writer for the stream.
var ErrStreamLocked = errors.New("stream is locked")

// ErrBYOBUnsupported indicates that a [ReadableStream] cannot hand
// out a [BYOBReader] (e.g., because it is not a byte stream).
var ErrBYOBUnsupported = errors.New("BYOB reader not supported")

// ErrAlreadyClosed indicates that Close was called more than once.
var ErrAlreadyClosed = errors.New("already closed")

// ReadableStream is a host-provided pull-based byte source.
//
// Acquiring a reader locks the stream: at most one reader may exist
// at any given time until its ReleaseLock method is called.
type ReadableStream interface {
	// GetBYOBReader returns a reader that fills caller-supplied buffers. It
	// fails with [ErrBYOBUnsupported] when the host does not support this
	// mode and with [ErrStreamLocked] when the stream is already locked.
	GetBYOBReader() (BYOBReader, error)

	// GetReader returns a default reader producing chunks. It fails
	// with [ErrStreamLocked] when the stream is already locked.
	GetReader() (ChunkReader, error)
}

// BYOBReader reads directly into caller-supplied buffers.
type BYOBReader interface {
	// ReadInto fills buf with the next bytes of the stream and returns the
	// number of bytes written. A zero count with a nil error means that
	// the stream has ended. Implementations MUST return when ctx is done
	// and MUST fail with [ErrEmptyBuffer] when buf is empty.
	ReadInto(ctx context.Context, buf []byte) (int, error)

	// Cancel signals that the consumer is not interested in the
	// stream anymore. The reason is OPTIONAL.
	Cancel(ctx context.Context, reason error) error

	// ReleaseLock unlocks the stream.
	ReleaseLock()
}

// ChunkReader reads a stream one opaque chunk at a time.
type ChunkReader interface {
	// Read returns the next chunk, or done equal to true when the stream
	// has ended. Implementations MUST return when ctx is done.
	Read(ctx context.Context) (chunk Chunk, done bool, err error)

	// Cancel is like BYOBReader.Cancel.
	Cancel(ctx context.Context, reason error) error

	// ReleaseLock unlocks the stream.
	ReleaseLock()
}

// WritableStream is a host-provided push-based byte sink.
type WritableStream interface {
	// GetWriter returns a writer for the stream. It fails with
	// [ErrStreamLocked] when the stream is already locked.
	GetWriter() (StreamWriter, error)
}

// StreamWriter writes chunks into a [WritableStream].
type StreamWriter interface {
	// Write returns once the stream has accepted the chunk. The sink
	// applies backpressure by delaying the return of this method.
	Write(ctx context.Context, chunk Chunk) error

	// Close signals that no more chunks will follow (a.k.a. "finish").
	Close(ctx context.Context) error

	// ReleaseLock unlocks the stream without closing it.
	ReleaseLock()
}

// StreamFlusher is the OPTIONAL interface implemented by
// a [StreamWriter] that is able to flush pending chunks.
type StreamFlusher interface {
	Flush(ctx context.Context) error
}
