package streamx

import (
	"context"
	"os"
	"sync"
	"time"
)

// deadline is a resettable deadline. Its expired channel is closed
// when the deadline is reached and replaced when the deadline is reset.
type deadline struct {
	mu      sync.Mutex
	timer   *time.Timer
	expired chan struct{} // never nil
}

func newDeadline() *deadline {
	return &deadline{expired: make(chan struct{})}
}

// set sets the deadline. The zero value disables the deadline, a time
// in the past expires the deadline immediately.
func (d *deadline) set(t time.Time) {
	defer d.mu.Unlock()
	d.mu.Lock()

	if d.timer != nil && !d.timer.Stop() {
		<-d.expired // wait for the timer callback to close the channel
	}
	d.timer = nil

	closed := isClosedChan(d.expired)
	if t.IsZero() {
		if closed {
			d.expired = make(chan struct{})
		}
		return
	}

	if dur := time.Until(t); dur > 0 {
		if closed {
			d.expired = make(chan struct{})
		}
		expired := d.expired
		d.timer = time.AfterFunc(dur, func() {
			close(expired)
		})
		return
	}

	if !closed {
		close(d.expired)
	}
}

// wait returns a channel closed when the deadline expires.
func (d *deadline) wait() chan struct{} {
	defer d.mu.Unlock()
	d.mu.Lock()
	return d.expired
}

// context returns a context derived from parent that is canceled with cause
// [os.ErrDeadlineExceeded] once the deadline expires. When the deadline has
// already expired, we return [os.ErrDeadlineExceeded] instead.
func (d *deadline) context(parent context.Context) (context.Context, context.CancelFunc, error) {
	expired := d.wait()
	if isClosedChan(expired) {
		return nil, nil, os.ErrDeadlineExceeded
	}
	ctx, cancel := context.WithCancelCause(parent)
	go func() {
		select {
		case <-expired:
			cancel(os.ErrDeadlineExceeded)
		case <-ctx.Done():
		}
	}()
	return ctx, func() { cancel(context.Canceled) }, nil
}

func isClosedChan(c <-chan struct{}) bool {
	select {
	case <-c:
		return true
	default:
		return false
	}
}

// deadlineExpired returns whether ctx was canceled because the deadline expired.
func deadlineExpired(ctx context.Context) bool {
	return context.Cause(ctx) == os.ErrDeadlineExceeded
}
