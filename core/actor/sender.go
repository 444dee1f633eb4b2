package actor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

type (
	// Sender is a handle to one logical destination. Implementations hide
	// the concrete queue so actors can be wired without knowing each other.
	Sender[M any] interface {
		// Send delivers msg, or fails with ErrSendFailed when the peer is gone.
		Send(ctx context.Context, msg M) error
		// Clone returns an independent handle to the same destination.
		Clone() Sender[M]
		// Close releases this handle. The destination is closed once every
		// handle to it has been closed.
		Close()
	}

	// DynSender is the name used when a Sender is stored to reach a peer.
	DynSender[M any] = Sender[M]

	// Recipient is an alias kept for the receiving side's point of view.
	Recipient[M any] = Sender[M]
)

// ---- mapping ----

type mapSender[M, N any] struct {
	inner Sender[N]
	f     func(M) N
}

// MapSender converts every message with f before forwarding it to inner.
func MapSender[M, N any](inner Sender[N], f func(M) N) Sender[M] {
	return &mapSender[M, N]{inner: inner, f: f}
}

// Variant returns a sender of V that injects each message into the
// aggregated type U. The returned sender shares inner's queue, so messages
// of different variants keep their relative order.
func Variant[V, U any](inner Sender[U], wrap func(V) U) Sender[V] {
	return MapSender(inner, wrap)
}

func (s *mapSender[M, N]) Send(ctx context.Context, msg M) error {
	return s.inner.Send(ctx, s.f(msg))
}
func (s *mapSender[M, N]) Clone() Sender[M] { return &mapSender[M, N]{inner: s.inner.Clone(), f: s.f} }
func (s *mapSender[M, N]) Close()           { s.inner.Close() }

// ---- filtering ----

type filterSender[M any] struct {
	inner Sender[M]
	keep  func(M) bool
}

// FilterSender forwards only the messages for which keep returns true.
func FilterSender[M any](inner Sender[M], keep func(M) bool) Sender[M] {
	return &filterSender[M]{inner: inner, keep: keep}
}

func (s *filterSender[M]) Send(ctx context.Context, msg M) error {
	if !s.keep(msg) {
		return nil
	}
	return s.inner.Send(ctx, msg)
}
func (s *filterSender[M]) Clone() Sender[M] {
	return &filterSender[M]{inner: s.inner.Clone(), keep: s.keep}
}
func (s *filterSender[M]) Close() { s.inner.Close() }

// ---- funcs ----

type funcSender[M any] func(ctx context.Context, msg M) error

// FuncSender adapts a function. Clone and Close are no-ops.
func FuncSender[M any](f func(ctx context.Context, msg M) error) Sender[M] {
	return funcSender[M](f)
}

func (f funcSender[M]) Send(ctx context.Context, msg M) error { return f(ctx, msg) }
func (f funcSender[M]) Clone() Sender[M]                      { return f }
func (f funcSender[M]) Close()                                {}

type nullSender[M any] struct{}

// NullSender drops every message.
func NullSender[M any]() Sender[M] { return nullSender[M]{} }

func (nullSender[M]) Send(context.Context, M) error { return nil }
func (s nullSender[M]) Clone() Sender[M]            { return s }
func (nullSender[M]) Close()                        {}

// ---- logging ----

type loggingSender[M any] struct {
	inner Sender[M]
	log   *slog.Logger
}

// LoggingSender logs each message at debug level before forwarding it.
func LoggingSender[M any](inner Sender[M], log *slog.Logger) Sender[M] {
	if log == nil {
		log = slog.Default()
	}
	return &loggingSender[M]{inner: inner, log: log}
}

func (s *loggingSender[M]) Send(ctx context.Context, msg M) error {
	s.log.Debug("send", slog.String("msg_type", msgTypeOf(msg)), slog.Any("msg", msg))
	err := s.inner.Send(ctx, msg)
	if err != nil {
		s.log.Debug("send failed", slog.String("msg_type", msgTypeOf(msg)), slog.Any("error", err))
	}
	return err
}
func (s *loggingSender[M]) Clone() Sender[M] {
	return &loggingSender[M]{inner: s.inner.Clone(), log: s.log}
}
func (s *loggingSender[M]) Close() { s.inner.Close() }

// ---- broadcast ----

type broadcastSender[M any] struct {
	peers []Sender[M]
}

// BroadcastSender sends every message to all peers. A peer that is gone
// does not stop delivery to the others; the errors are joined.
func BroadcastSender[M any](peers ...Sender[M]) Sender[M] {
	return &broadcastSender[M]{peers: peers}
}

func (s *broadcastSender[M]) Send(ctx context.Context, msg M) error {
	var errs []error
	for _, p := range s.peers {
		if err := p.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *broadcastSender[M]) Clone() Sender[M] {
	peers := make([]Sender[M], len(s.peers))
	for i, p := range s.peers {
		peers[i] = p.Clone()
	}
	return &broadcastSender[M]{peers: peers}
}

func (s *broadcastSender[M]) Close() {
	for _, p := range s.peers {
		p.Close()
	}
}

// ---- recording ----

type recording[M any] struct {
	mu   sync.Mutex
	msgs []M
}

// RecordingSender keeps every message in memory. It is meant for tests
// that need to observe what an actor sends.
type RecordingSender[M any] struct {
	rec    *recording[M]
	closed *atomic.Int32
}

func NewRecordingSender[M any]() *RecordingSender[M] {
	return &RecordingSender[M]{rec: &recording[M]{}, closed: &atomic.Int32{}}
}

func (s *RecordingSender[M]) Send(_ context.Context, msg M) error {
	s.rec.mu.Lock()
	defer s.rec.mu.Unlock()
	s.rec.msgs = append(s.rec.msgs, msg)
	return nil
}

func (s *RecordingSender[M]) Clone() Sender[M] {
	return &RecordingSender[M]{rec: s.rec, closed: s.closed}
}

func (s *RecordingSender[M]) Close() { s.closed.Add(1) }

// Messages returns a copy of the recorded messages.
func (s *RecordingSender[M]) Messages() []M {
	s.rec.mu.Lock()
	defer s.rec.mu.Unlock()
	out := make([]M, len(s.rec.msgs))
	copy(out, s.rec.msgs)
	return out
}

// Closed returns how many handles sharing this recording were closed.
func (s *RecordingSender[M]) Closed() int { return int(s.closed.Load()) }
