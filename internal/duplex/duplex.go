// Package duplex fuses an independent reader and writer into a
// single [net.Conn] that a TLS client can drive.
//
// A [*Conn] buffers nothing and performs no synchronization: reads
// go to the reader, while writes, flushes, and closes go to the writer.
// Errors are returned verbatim.
package duplex

import (
	"errors"
	"io"
	"net"
	"time"
)

// Conn is a duplex channel combining a reader and a writer.
type Conn struct {
	r io.Reader
	w io.Writer
}

var _ net.Conn = &Conn{}

// New creates a new [*Conn] taking ownership of r and w.
func New(r io.Reader, w io.Writer) *Conn {
	return &Conn{r: r, w: w}
}

// Read reads from the reader.
func (c *Conn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

// ReadVectored reads from the reader into bufs. When the reader does
// not implement ReadVectored, we perform a single read into the first
// non-empty buffer.
func (c *Conn) ReadVectored(bufs [][]byte) (int, error) {
	if rv, good := c.r.(interface{ ReadVectored(bufs [][]byte) (int, error) }); good {
		return rv.ReadVectored(bufs)
	}
	for _, buf := range bufs {
		if len(buf) > 0 {
			return c.r.Read(buf)
		}
	}
	return c.r.Read(nil)
}

// Write writes to the writer.
func (c *Conn) Write(p []byte) (int, error) {
	return c.w.Write(p)
}

// WriteVectored writes bufs to the writer. When the writer does not
// implement WriteVectored, we write each buffer in order and stop at the
// first error. The count is the total number of bytes written.
func (c *Conn) WriteVectored(bufs [][]byte) (int, error) {
	if wv, good := c.w.(interface{ WriteVectored(bufs [][]byte) (int, error) }); good {
		return wv.WriteVectored(bufs)
	}
	var total int
	for _, buf := range bufs {
		count, err := c.w.Write(buf)
		total += count
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Flush flushes the writer, if it supports flushing.
func (c *Conn) Flush() error {
	if f, good := c.w.(interface{ Flush() error }); good {
		return f.Flush()
	}
	return nil
}

// Close closes the writer, if it supports closing. The reader
// is left alone: use CloseRead to release it.
func (c *Conn) Close() error {
	if closer, good := c.w.(io.Closer); good {
		return closer.Close()
	}
	return nil
}

// CloseRead closes the reader, if it supports closing.
func (c *Conn) CloseRead() error {
	if closer, good := c.r.(io.Closer); good {
		return closer.Close()
	}
	return nil
}

// SetDeadline sets both the read and the write deadline.
func (c *Conn) SetDeadline(t time.Time) error {
	return errors.Join(c.SetReadDeadline(t), c.SetWriteDeadline(t))
}

// SetReadDeadline sets the reader deadline, if the reader supports deadlines.
func (c *Conn) SetReadDeadline(t time.Time) error {
	if d, good := c.r.(interface{ SetReadDeadline(t time.Time) error }); good {
		return d.SetReadDeadline(t)
	}
	return nil
}

// SetWriteDeadline sets the writer deadline, if the writer supports deadlines.
func (c *Conn) SetWriteDeadline(t time.Time) error {
	if d, good := c.w.(interface{ SetWriteDeadline(t time.Time) error }); good {
		return d.SetWriteDeadline(t)
	}
	return nil
}

// LocalAddr returns a placeholder address.
func (c *Conn) LocalAddr() net.Addr {
	return streamAddr{}
}

// RemoteAddr returns a placeholder address.
func (c *Conn) RemoteAddr() net.Addr {
	return streamAddr{}
}

// streamAddr is the address of a host stream.
type streamAddr struct{}

// Network implements net.Addr.
func (streamAddr) Network() string {
	return "stream"
}

// String implements net.Addr.
func (streamAddr) String() string {
	return "stream"
}
