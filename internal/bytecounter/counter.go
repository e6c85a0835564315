// Package bytecounter contains code to track the number of
// bytes sent and received by a connection.
package bytecounter

import "sync/atomic"

// Counter counts bytes sent and received.
type Counter struct {
	received atomic.Int64
	sent     atomic.Int64
}

// New creates a new Counter.
func New() *Counter {
	return &Counter{}
}

// CountBytesSent adds count to the bytes sent counter.
func (c *Counter) CountBytesSent(count int) {
	c.sent.Add(int64(count))
}

// CountBytesReceived adds count to the bytes received counter.
func (c *Counter) CountBytesReceived(count int) {
	c.received.Add(int64(count))
}

// BytesSent returns the bytes sent so far.
func (c *Counter) BytesSent() int64 {
	return c.sent.Load()
}

// BytesReceived returns the bytes received so far.
func (c *Counter) BytesReceived() int64 {
	return c.received.Load()
}

// KibiBytesSent returns the KiB sent so far.
func (c *Counter) KibiBytesSent() float64 {
	return float64(c.BytesSent()) / 1024
}

// KibiBytesReceived returns the KiB received so far.
func (c *Counter) KibiBytesReceived() float64 {
	return float64(c.BytesReceived()) / 1024
}
