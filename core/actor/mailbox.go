package actor

import "context"

// Mailbox is an actor's private receive side: ordinary input plus a
// separate signal channel that is never queued behind the input.
type Mailbox[M any] struct {
	input    *Receiver[M]
	signal   *Receiver[RuntimeRequest]
	shutdown bool
}

// NewMailbox creates a mailbox with a bounded input of the given capacity.
// It returns the mailbox together with the input sender and the signal
// sender; the caller hands those out and closes them when done.
func NewMailbox[M any](capacity int) (*Mailbox[M], Sender[M], Sender[RuntimeRequest]) {
	in, input := NewChannel[M](capacity)
	sig, signal := NewUnboundedChannel[RuntimeRequest]()
	return &Mailbox[M]{input: input, signal: signal}, in, sig
}

// Recv returns the next input message. It returns false when the input is
// exhausted, a Shutdown signal is pending, or ctx is done. Pending signals
// take priority over pending input, and once a Shutdown was seen every
// later call returns false.
func (m *Mailbox[M]) Recv(ctx context.Context) (M, bool) {
	var zero M
	for {
		if m.shutdownPending() {
			return zero, false
		}
		msg, st := m.input.q.tryPop()
		switch st {
		case popOK:
			return msg, true
		case popClosed:
			return zero, false
		}

		select {
		case <-ctx.Done():
			return zero, false
		case <-m.signal.q.notEmpty:
		case <-m.input.q.notEmpty:
		case <-m.input.q.done:
		case <-m.input.q.gone:
		}
	}
}

// RecvSignal blocks until a signal arrives. It returns false when ctx is
// done or every signal sender is gone.
func (m *Mailbox[M]) RecvSignal(ctx context.Context) (RuntimeRequest, bool) {
	return m.signal.Recv(ctx)
}

func (m *Mailbox[M]) shutdownPending() bool {
	for !m.shutdown {
		sig, ok := m.signal.TryRecv()
		if !ok {
			return false
		}
		if sig == Shutdown {
			m.shutdown = true
		}
	}
	return true
}

// Input exposes the input receiver for actors that need to peek at it.
func (m *Mailbox[M]) Input() *Receiver[M] { return m.input }

// Close drops both receivers. Senders still held by peers fail from now on.
func (m *Mailbox[M]) Close() {
	m.input.Close()
	m.signal.Close()
}
