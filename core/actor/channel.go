package actor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// queue is the shared state behind a channel. capacity == 0 means unbounded.
//
// A queue is closed once every sender handle has been closed; it is dropped
// once the receiver has been closed. Pending items are still delivered after
// close, never after drop.
type queue[M any] struct {
	mu       sync.Mutex
	items    []M
	capacity int
	senders  int
	closed   bool
	dropped  bool

	notEmpty chan struct{}
	notFull  chan struct{}
	done     chan struct{} // closed when all senders are gone
	gone     chan struct{} // closed when the receiver is gone
}

func newQueue[M any](capacity int) *queue[M] {
	return &queue[M]{
		capacity: capacity,
		senders:  1,
		notEmpty: make(chan struct{}, 1),
		notFull:  make(chan struct{}, 1),
		done:     make(chan struct{}),
		gone:     make(chan struct{}),
	}
}

func wake(c chan struct{}) {
	select {
	case c <- struct{}{}:
	default:
	}
}

func (q *queue[M]) hasRoomLocked() bool {
	return q.capacity == 0 || len(q.items) < q.capacity
}

func (q *queue[M]) push(ctx context.Context, msg M) error {
	for {
		q.mu.Lock()
		if q.dropped {
			q.mu.Unlock()
			return ErrSendFailed
		}
		if q.hasRoomLocked() {
			q.items = append(q.items, msg)
			room := q.hasRoomLocked()
			q.mu.Unlock()

			wake(q.notEmpty)
			if room {
				// pass the wakeup on to the next blocked sender
				wake(q.notFull)
			}
			return nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return fmt.Errorf("send failed: %w", ctx.Err())
		case <-q.gone:
			return ErrSendFailed
		case <-q.notFull:
		}
	}
}

type popState int

const (
	popOK popState = iota
	popEmpty
	popClosed
)

func (q *queue[M]) tryPop() (msg M, st popState) {
	q.mu.Lock()
	if len(q.items) > 0 {
		msg = q.items[0]
		var zero M
		q.items[0] = zero
		q.items = q.items[1:]
		q.mu.Unlock()
		wake(q.notFull)
		return msg, popOK
	}
	closed := q.closed || q.dropped
	q.mu.Unlock()
	if closed {
		return msg, popClosed
	}
	return msg, popEmpty
}

func (q *queue[M]) pop(ctx context.Context) (M, bool) {
	for {
		msg, st := q.tryPop()
		switch st {
		case popOK:
			return msg, true
		case popClosed:
			return msg, false
		}
		select {
		case <-ctx.Done():
			return msg, false
		case <-q.notEmpty:
		case <-q.done:
		case <-q.gone:
		}
	}
}

func (q *queue[M]) addSender() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.senders++
	return true
}

func (q *queue[M]) removeSender() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.senders--
	if q.senders <= 0 {
		q.closed = true
		close(q.done)
	}
}

func (q *queue[M]) drop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.dropped {
		return
	}
	q.dropped = true
	q.items = nil
	close(q.gone)
}

func (q *queue[M]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// NewChannel creates a bounded channel. Once capacity messages are queued,
// Send blocks until the receiver consumes one. A capacity below 1 is
// treated as 1.
func NewChannel[M any](capacity int) (Sender[M], *Receiver[M]) {
	if capacity < 1 {
		capacity = 1
	}
	q := newQueue[M](capacity)
	return &chanSender[M]{q: q}, &Receiver[M]{q: q}
}

// NewUnboundedChannel creates a channel whose Send never blocks.
// Use it for cheap, rare messages such as runtime signals.
func NewUnboundedChannel[M any]() (Sender[M], *Receiver[M]) {
	q := newQueue[M](0)
	return &chanSender[M]{q: q}, &Receiver[M]{q: q}
}

type chanSender[M any] struct {
	q      *queue[M]
	closed atomic.Bool
}

func (s *chanSender[M]) Send(ctx context.Context, msg M) error {
	if s.closed.Load() {
		return ErrSendFailed
	}
	return s.q.push(ctx, msg)
}

func (s *chanSender[M]) Clone() Sender[M] {
	c := &chanSender[M]{q: s.q}
	if s.closed.Load() || !s.q.addSender() {
		c.closed.Store(true)
	}
	return c
}

func (s *chanSender[M]) Close() {
	if s.closed.CompareAndSwap(false, true) {
		s.q.removeSender()
	}
}

// Receiver is the read end of a channel. It must be owned by exactly one
// goroutine.
type Receiver[M any] struct {
	q *queue[M]
}

// Recv blocks until a message is available. It returns false once the
// channel is drained and every sender has been closed, or when ctx is done.
func (r *Receiver[M]) Recv(ctx context.Context) (M, bool) {
	return r.q.pop(ctx)
}

// TryRecv returns the next pending message without blocking.
func (r *Receiver[M]) TryRecv() (M, bool) {
	msg, st := r.q.tryPop()
	return msg, st == popOK
}

// Len returns the number of pending messages.
func (r *Receiver[M]) Len() int { return r.q.len() }

// Closed reports whether every sender has been closed. Pending messages
// may still be available.
func (r *Receiver[M]) Closed() bool {
	select {
	case <-r.q.done:
		return true
	default:
		return false
	}
}

// Close drops the receiver: pending messages are discarded and any
// current or future Send fails with ErrSendFailed.
func (r *Receiver[M]) Close() { r.q.drop() }
