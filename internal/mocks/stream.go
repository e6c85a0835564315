package mocks

import (
	"context"

	"github.com/ooni/streamtls/internal/model"
)

// ReadableStream allows mocking model.ReadableStream.
type ReadableStream struct {
	MockGetBYOBReader func() (model.BYOBReader, error)
	MockGetReader     func() (model.ChunkReader, error)
}

var _ model.ReadableStream = &ReadableStream{}

// GetBYOBReader calls MockGetBYOBReader.
func (s *ReadableStream) GetBYOBReader() (model.BYOBReader, error) {
	return s.MockGetBYOBReader()
}

// GetReader calls MockGetReader.
func (s *ReadableStream) GetReader() (model.ChunkReader, error) {
	return s.MockGetReader()
}

// BYOBReader allows mocking model.BYOBReader.
type BYOBReader struct {
	MockReadInto    func(ctx context.Context, buf []byte) (int, error)
	MockCancel      func(ctx context.Context, reason error) error
	MockReleaseLock func()
}

var _ model.BYOBReader = &BYOBReader{}

// ReadInto calls MockReadInto.
func (r *BYOBReader) ReadInto(ctx context.Context, buf []byte) (int, error) {
	return r.MockReadInto(ctx, buf)
}

// Cancel calls MockCancel.
func (r *BYOBReader) Cancel(ctx context.Context, reason error) error {
	return r.MockCancel(ctx, reason)
}

// ReleaseLock calls MockReleaseLock.
func (r *BYOBReader) ReleaseLock() {
	r.MockReleaseLock()
}

// ChunkReader allows mocking model.ChunkReader.
type ChunkReader struct {
	MockRead        func(ctx context.Context) (model.Chunk, bool, error)
	MockCancel      func(ctx context.Context, reason error) error
	MockReleaseLock func()
}

var _ model.ChunkReader = &ChunkReader{}

// Read calls MockRead.
func (r *ChunkReader) Read(ctx context.Context) (model.Chunk, bool, error) {
	return r.MockRead(ctx)
}

// Cancel calls MockCancel.
func (r *ChunkReader) Cancel(ctx context.Context, reason error) error {
	return r.MockCancel(ctx, reason)
}

// ReleaseLock calls MockReleaseLock.
func (r *ChunkReader) ReleaseLock() {
	r.MockReleaseLock()
}

// WritableStream allows mocking model.WritableStream.
type WritableStream struct {
	MockGetWriter func() (model.StreamWriter, error)
}

var _ model.WritableStream = &WritableStream{}

// GetWriter calls MockGetWriter.
func (s *WritableStream) GetWriter() (model.StreamWriter, error) {
	return s.MockGetWriter()
}

// StreamWriter allows mocking model.StreamWriter. Use
// FlushableStreamWriter to also mock model.StreamFlusher.
type StreamWriter struct {
	MockWrite       func(ctx context.Context, chunk model.Chunk) error
	MockClose       func(ctx context.Context) error
	MockReleaseLock func()
}

var _ model.StreamWriter = &StreamWriter{}

// Write calls MockWrite.
func (w *StreamWriter) Write(ctx context.Context, chunk model.Chunk) error {
	return w.MockWrite(ctx, chunk)
}

// Close calls MockClose.
func (w *StreamWriter) Close(ctx context.Context) error {
	return w.MockClose(ctx)
}

// ReleaseLock calls MockReleaseLock.
func (w *StreamWriter) ReleaseLock() {
	w.MockReleaseLock()
}

// FlushableStreamWriter is a StreamWriter that also implements model.StreamFlusher.
type FlushableStreamWriter struct {
	StreamWriter
	MockFlush func(ctx context.Context) error
}

var _ model.StreamFlusher = &FlushableStreamWriter{}

// Flush calls MockFlush.
func (w *FlushableStreamWriter) Flush(ctx context.Context) error {
	return w.MockFlush(ctx)
}
