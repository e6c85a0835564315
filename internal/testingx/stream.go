package testingx

//
// In-memory host streams
//

import (
	"context"
	"sync"

	"github.com/ooni/streamtls/internal/model"
)

// ChunkSource is an in-memory [model.ReadableStream] producing a fixed
// sequence of chunks. The zero value is an empty source that does not
// support BYOB readers. Do not modify the public fields after the first
// reader has been acquired.
type ChunkSource struct {
	// Chunks contains the OPTIONAL chunks to emit in order.
	Chunks []model.Chunk

	// BYOB OPTIONALLY allows acquiring a BYOB reader.
	BYOB bool

	// Err is the OPTIONAL error to return once we run out of chunks. When
	// nil, we signal the end of the stream instead.
	Err error

	// Block OPTIONALLY makes reads block until the context is done once we
	// run out of chunks. It takes precedence over Err.
	Block bool

	acquired  int
	cancelled bool
	locked    bool
	mu        sync.Mutex
	next      int
	offset    int
	reason    error
}

var _ model.ReadableStream = &ChunkSource{}

// GetBYOBReader implements model.ReadableStream.
func (s *ChunkSource) GetBYOBReader() (model.BYOBReader, error) {
	defer s.mu.Unlock()
	s.mu.Lock()
	if !s.BYOB {
		return nil, model.ErrBYOBUnsupported
	}
	if err := s.lockLocked(); err != nil {
		return nil, err
	}
	return &chunkSourceBYOBReader{s}, nil
}

// GetReader implements model.ReadableStream.
func (s *ChunkSource) GetReader() (model.ChunkReader, error) {
	defer s.mu.Unlock()
	s.mu.Lock()
	if err := s.lockLocked(); err != nil {
		return nil, err
	}
	return &chunkSourceReader{s}, nil
}

func (s *ChunkSource) lockLocked() error {
	if s.locked {
		return model.ErrStreamLocked
	}
	s.locked = true
	s.acquired++
	return nil
}

// Locked returns whether a reader currently holds the lock.
func (s *ChunkSource) Locked() bool {
	defer s.mu.Unlock()
	s.mu.Lock()
	return s.locked
}

// Acquisitions returns how many readers we handed out so far.
func (s *ChunkSource) Acquisitions() int {
	defer s.mu.Unlock()
	s.mu.Lock()
	return s.acquired
}

// Cancelled returns whether a reader cancelled the stream.
func (s *ChunkSource) Cancelled() bool {
	defer s.mu.Unlock()
	s.mu.Lock()
	return s.cancelled
}

// CancelReason returns the reason passed to Cancel, if any.
func (s *ChunkSource) CancelReason() error {
	defer s.mu.Unlock()
	s.mu.Lock()
	return s.reason
}

// nextChunk returns the next chunk or the error to return when we run out of chunks.
func (s *ChunkSource) nextChunk(ctx context.Context) (model.Chunk, bool, error) {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return nil, true, nil
	}
	if s.next < len(s.Chunks) {
		chunk := s.Chunks[s.next]
		s.next++
		s.offset = 0
		s.mu.Unlock()
		return chunk, false, nil
	}
	s.mu.Unlock()
	if s.Block {
		<-ctx.Done()
		return nil, false, ctx.Err()
	}
	if s.Err != nil {
		return nil, false, s.Err
	}
	return nil, true, nil
}

func (s *ChunkSource) cancel(reason error) error {
	defer s.mu.Unlock()
	s.mu.Lock()
	s.cancelled = true
	s.reason = reason
	return nil
}

func (s *ChunkSource) releaseLock() {
	defer s.mu.Unlock()
	s.mu.Lock()
	s.locked = false
}

type chunkSourceReader struct {
	s *ChunkSource
}

// Read implements model.ChunkReader.
func (r *chunkSourceReader) Read(ctx context.Context) (model.Chunk, bool, error) {
	return r.s.nextChunk(ctx)
}

// Cancel implements model.ChunkReader.
func (r *chunkSourceReader) Cancel(ctx context.Context, reason error) error {
	return r.s.cancel(reason)
}

// ReleaseLock implements model.ChunkReader.
func (r *chunkSourceReader) ReleaseLock() {
	r.s.releaseLock()
}

type chunkSourceBYOBReader struct {
	s *ChunkSource
}

// ReadInto implements model.BYOBReader. A chunk larger than buf is
// consumed across several calls.
func (r *chunkSourceBYOBReader) ReadInto(ctx context.Context, buf []byte) (int, error) {
	if len(buf) <= 0 {
		return 0, model.ErrEmptyBuffer
	}
	s := r.s
	for {
		s.mu.Lock()
		if s.next > 0 && !s.cancelled {
			var data []byte
			switch v := s.Chunks[s.next-1].(type) {
			case []byte:
				data = v
			case string:
				data = []byte(v)
			default:
				s.mu.Unlock()
				return 0, model.ErrInvalidPayload
			}
			if s.offset < len(data) {
				count := copy(buf, data[s.offset:])
				s.offset += count
				s.mu.Unlock()
				return count, nil
			}
		}
		s.mu.Unlock()
		_, done, err := s.nextChunk(ctx)
		if err != nil {
			return 0, err
		}
		if done {
			return 0, nil
		}
	}
}

// Cancel implements model.BYOBReader.
func (r *chunkSourceBYOBReader) Cancel(ctx context.Context, reason error) error {
	return r.s.cancel(reason)
}

// ReleaseLock implements model.BYOBReader.
func (r *chunkSourceBYOBReader) ReleaseLock() {
	r.s.releaseLock()
}

// MemorySink is an in-memory [model.WritableStream] recording the chunks
// it receives. The zero value is ready to use.
type MemorySink struct {
	// WriteErr is the OPTIONAL error returned by Write.
	WriteErr error

	// CloseErr is the OPTIONAL error returned by Close.
	CloseErr error

	chunks  []model.Chunk
	closed  int
	flushed int
	locked  bool
	mu      sync.Mutex
}

var _ model.WritableStream = &MemorySink{}

// GetWriter implements model.WritableStream.
func (s *MemorySink) GetWriter() (model.StreamWriter, error) {
	defer s.mu.Unlock()
	s.mu.Lock()
	if s.locked {
		return nil, model.ErrStreamLocked
	}
	s.locked = true
	return &memorySinkWriter{s}, nil
}

// Chunks returns a copy of the chunks written so far.
func (s *MemorySink) Chunks() []model.Chunk {
	defer s.mu.Unlock()
	s.mu.Lock()
	return append([]model.Chunk{}, s.chunks...)
}

// Bytes returns the concatenation of the []byte and string chunks written so far.
func (s *MemorySink) Bytes() []byte {
	defer s.mu.Unlock()
	s.mu.Lock()
	out := []byte{}
	for _, chunk := range s.chunks {
		switch v := chunk.(type) {
		case []byte:
			out = append(out, v...)
		case string:
			out = append(out, v...)
		}
	}
	return out
}

// CloseCount returns the number of times a writer closed the sink.
func (s *MemorySink) CloseCount() int {
	defer s.mu.Unlock()
	s.mu.Lock()
	return s.closed
}

// FlushCount returns the number of times a writer flushed the sink.
func (s *MemorySink) FlushCount() int {
	defer s.mu.Unlock()
	s.mu.Lock()
	return s.flushed
}

// Locked returns whether a writer currently holds the lock.
func (s *MemorySink) Locked() bool {
	defer s.mu.Unlock()
	s.mu.Lock()
	return s.locked
}

type memorySinkWriter struct {
	s *MemorySink
}

var _ model.StreamFlusher = &memorySinkWriter{}

// Write implements model.StreamWriter.
func (w *memorySinkWriter) Write(ctx context.Context, chunk model.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer w.s.mu.Unlock()
	w.s.mu.Lock()
	if w.s.WriteErr != nil {
		return w.s.WriteErr
	}
	w.s.chunks = append(w.s.chunks, chunk)
	return nil
}

// Flush implements model.StreamFlusher.
func (w *memorySinkWriter) Flush(ctx context.Context) error {
	defer w.s.mu.Unlock()
	w.s.mu.Lock()
	w.s.flushed++
	return nil
}

// Close implements model.StreamWriter.
func (w *memorySinkWriter) Close(ctx context.Context) error {
	defer w.s.mu.Unlock()
	w.s.mu.Lock()
	w.s.closed++
	return w.s.CloseErr
}

// ReleaseLock implements model.StreamWriter.
func (w *memorySinkWriter) ReleaseLock() {
	defer w.s.mu.Unlock()
	w.s.mu.Lock()
	w.s.locked = false
}
