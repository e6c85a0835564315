package streamtls

//
// Wrappers turning the errors of the channel streams into *Error
//

import (
	"context"

	"github.com/ooni/streamtls/internal/model"
	"github.com/ooni/streamtls/internal/netxlite"
)

// maybeNewError is like newError but returns nil when err is nil.
func maybeNewError(operation string, err error) error {
	if err != nil {
		return newError(operation, err)
	}
	return nil
}

type readableStream struct {
	rs model.ReadableStream
}

var _ model.ReadableStream = &readableStream{}

// GetBYOBReader implements model.ReadableStream.
func (s *readableStream) GetBYOBReader() (model.BYOBReader, error) {
	r, err := s.rs.GetBYOBReader()
	if err != nil {
		return nil, newError(netxlite.StreamLockOperation, err)
	}
	return &byobReader{r}, nil
}

// GetReader implements model.ReadableStream.
func (s *readableStream) GetReader() (model.ChunkReader, error) {
	r, err := s.rs.GetReader()
	if err != nil {
		return nil, newError(netxlite.StreamLockOperation, err)
	}
	return &chunkReader{r}, nil
}

type byobReader struct {
	r model.BYOBReader
}

// ReadInto implements model.BYOBReader.
func (r *byobReader) ReadInto(ctx context.Context, buf []byte) (int, error) {
	count, err := r.r.ReadInto(ctx, buf)
	return count, maybeNewError(netxlite.ReadOperation, err)
}

// Cancel implements model.BYOBReader.
func (r *byobReader) Cancel(ctx context.Context, reason error) error {
	return maybeNewError(netxlite.CloseOperation, r.r.Cancel(ctx, reason))
}

// ReleaseLock implements model.BYOBReader.
func (r *byobReader) ReleaseLock() {
	r.r.ReleaseLock()
}

type chunkReader struct {
	r model.ChunkReader
}

// Read implements model.ChunkReader.
func (r *chunkReader) Read(ctx context.Context) (model.Chunk, bool, error) {
	chunk, done, err := r.r.Read(ctx)
	return chunk, done, maybeNewError(netxlite.ReadOperation, err)
}

// Cancel implements model.ChunkReader.
func (r *chunkReader) Cancel(ctx context.Context, reason error) error {
	return maybeNewError(netxlite.CloseOperation, r.r.Cancel(ctx, reason))
}

// ReleaseLock implements model.ChunkReader.
func (r *chunkReader) ReleaseLock() {
	r.r.ReleaseLock()
}

type writableStream struct {
	ws model.WritableStream
}

var _ model.WritableStream = &writableStream{}

// GetWriter implements model.WritableStream.
func (s *writableStream) GetWriter() (model.StreamWriter, error) {
	w, err := s.ws.GetWriter()
	if err != nil {
		return nil, newError(netxlite.StreamLockOperation, err)
	}
	return &streamWriter{w}, nil
}

type streamWriter struct {
	w model.StreamWriter
}

var _ model.StreamFlusher = &streamWriter{}

// Write implements model.StreamWriter.
func (w *streamWriter) Write(ctx context.Context, chunk model.Chunk) error {
	return maybeNewError(netxlite.WriteOperation, w.w.Write(ctx, chunk))
}

// Flush implements model.StreamFlusher.
func (w *streamWriter) Flush(ctx context.Context) error {
	if f, good := w.w.(model.StreamFlusher); good {
		return maybeNewError(netxlite.WriteOperation, f.Flush(ctx))
	}
	return nil
}

// Close implements model.StreamWriter.
func (w *streamWriter) Close(ctx context.Context) error {
	return maybeNewError(netxlite.CloseOperation, w.w.Close(ctx))
}

// ReleaseLock implements model.StreamWriter.
func (w *streamWriter) ReleaseLock() {
	w.w.ReleaseLock()
}
