// Package streamx adapts host streams to Go I/O and back.
//
// In the host to Go direction, [NewReader] turns a [model.ReadableStream]
// into an [io.ReadCloser], preferring a zero-copy BYOB reader and falling back
// to a chunk queue, and [NewWriter] turns a [model.WritableStream] into
// an [io.WriteCloser] that waits for the sink to accept each chunk.
//
// In the Go to host direction, [NewReadableStream] and [NewWritableStream]
// present Go readers and writers as host streams.
//
// Blocking host calls receive a context derived from the deadlines
// configured using SetReadDeadline and SetWriteDeadline.
package streamx
