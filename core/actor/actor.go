package actor

import (
	"context"
	"log/slog"
)

// Actor is an owned unit of work. Run consumes its mailbox until the input
// is exhausted or a Shutdown signal arrives; both are clean exits and
// return nil. Run is called at most once: a finished actor is never
// restarted, a fresh one is built instead.
type Actor interface {
	Name() string
	Run(ctx context.Context) error
}

type Options struct {
	// MailboxSize is the input capacity fixed at build time (default 16).
	MailboxSize int
	Logger      *slog.Logger
	Metrics     RuntimeMetrics
	// MaxInFlight caps the requests a ConcurrentServerActor handles at
	// once. With 0 only the mailbox capacity throttles clients.
	MaxInFlight int
}

func (o Options) withDefaults() Options {
	if o.MailboxSize <= 0 {
		o.MailboxSize = 16
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Metrics == nil {
		o.Metrics = NopRuntimeMetrics()
	}
	return o
}

type funcActor struct {
	name string
	run  func(ctx context.Context) error
}

// NewActor wraps a run function as an Actor.
func NewActor(name string, run func(ctx context.Context) error) Actor {
	return &funcActor{name: name, run: run}
}

func (a *funcActor) Name() string                  { return a.name }
func (a *funcActor) Run(ctx context.Context) error { return a.run(ctx) }

// SimpleActor runs a message box through a handler: each input message is
// passed to handle together with the box, so the handler can send outputs.
type SimpleActor[In, Out any] struct {
	box    *MessageBox[In, Out]
	handle func(ctx context.Context, box *MessageBox[In, Out], msg In) error
	start  func(ctx context.Context, box *MessageBox[In, Out]) error
}

// NewSimpleActor builds an actor from a handler. A handler error stops the
// actor and is reported to the runtime.
func NewSimpleActor[In, Out any](
	box *MessageBox[In, Out],
	handle func(ctx context.Context, box *MessageBox[In, Out], msg In) error,
) *SimpleActor[In, Out] {
	return &SimpleActor[In, Out]{box: box, handle: handle}
}

// OnStart registers a function run once before the first message, e.g. to
// announce the actor to its peers.
func (a *SimpleActor[In, Out]) OnStart(f func(ctx context.Context, box *MessageBox[In, Out]) error) *SimpleActor[In, Out] {
	a.start = f
	return a
}

func (a *SimpleActor[In, Out]) Name() string { return a.box.Name() }

func (a *SimpleActor[In, Out]) Run(ctx context.Context) error {
	defer a.box.Close()
	if a.start != nil {
		if err := a.start(ctx, a.box); err != nil {
			return err
		}
	}
	for {
		msg, ok := a.box.Recv(ctx)
		if !ok {
			return nil
		}
		if err := a.handle(ctx, a.box, msg); err != nil {
			return err
		}
	}
}
