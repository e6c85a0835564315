package streamx

import (
	"net"
	"time"

	"github.com/ooni/streamtls/internal/model"
)

// NewConnStreams presents conn as a pair of host streams. Cancelling the readable
// closes the read side of conn and closing the writable's writer closes its write
// side, provided that conn supports half closes (e.g., [*net.TCPConn]). Otherwise,
// both operations close conn. The caller is still responsible for closing conn.
func NewConnStreams(conn net.Conn, chunkSize int) (model.ReadableStream, model.WritableStream) {
	return NewReadableStream(&connReadHalf{conn}, chunkSize), NewWritableStream(&connWriteHalf{conn})
}

type connReadHalf struct {
	conn net.Conn
}

// Read implements io.Reader.
func (c *connReadHalf) Read(p []byte) (int, error) {
	return c.conn.Read(p)
}

// Close implements io.Closer.
func (c *connReadHalf) Close() error {
	if closer, good := c.conn.(interface{ CloseRead() error }); good {
		return closer.CloseRead()
	}
	return c.conn.Close()
}

// SetReadDeadline sets the read deadline.
func (c *connReadHalf) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

type connWriteHalf struct {
	conn net.Conn
}

// Write implements io.Writer.
func (c *connWriteHalf) Write(p []byte) (int, error) {
	return c.conn.Write(p)
}

// Close implements io.Closer.
func (c *connWriteHalf) Close() error {
	if closer, good := c.conn.(interface{ CloseWrite() error }); good {
		return closer.CloseWrite()
	}
	return c.conn.Close()
}

// SetWriteDeadline sets the write deadline.
func (c *connWriteHalf) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}
