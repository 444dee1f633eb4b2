package actor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"
)

type (
	RuntimeEventKind int

	// RuntimeEvent reports the lifecycle of one spawned actor.
	RuntimeEvent struct {
		Kind   RuntimeEventKind
		Actor  string
		TaskID string
		// Err is set for EventAborted.
		Err error
	}

	RuntimeOptions struct {
		Context context.Context
		Logger  *slog.Logger
		Metrics RuntimeMetrics
		// Events, if set, receives a RuntimeEvent for every start and stop.
		// The runtime owns the sender and closes it on Close.
		Events Sender[RuntimeEvent]
		// ShutdownOnError sends Shutdown to every actor once one of them
		// fails. Without it a failed actor stays failed and its siblings
		// keep running.
		ShutdownOnError bool
	}
)

const (
	EventStarted RuntimeEventKind = iota
	EventStopped
	EventAborted
)

func (k RuntimeEventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventStopped:
		return "stopped"
	case EventAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

type task struct {
	id     string
	actor  Actor
	signal Sender[RuntimeRequest]
}

type taskExit struct {
	task *task
	err  *RuntimeError
}

// Runtime spawns actors as goroutines and collects how they end. It is
// created once per process and passed around explicitly.
type Runtime struct {
	ctx     context.Context
	cancel  context.CancelFunc
	log     *slog.Logger
	metrics RuntimeMetrics
	events  Sender[RuntimeEvent]
	stopAll bool

	mu       sync.Mutex
	closed   bool
	running  map[string]*task
	firstErr *RuntimeError
	// active counts spawned tasks whose exit is not yet handled; idle is
	// closed whenever it drops to zero and replaced on the next spawn.
	active int
	idle   chan struct{}

	exits         Sender[taskExit]
	exitsInbox    *Receiver[taskExit]
	collectorDone chan struct{}
}

func NewRuntime(opts RuntimeOptions) *Runtime {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NopRuntimeMetrics()
	}
	if opts.Events == nil {
		opts.Events = NullSender[RuntimeEvent]()
	}

	exits, inbox := NewUnboundedChannel[taskExit]()
	idle := make(chan struct{})
	close(idle)
	r := &Runtime{
		idle:          idle,
		log:           opts.Logger.With(slog.String("component", "runtime")),
		metrics:       opts.Metrics,
		events:        opts.Events,
		stopAll:       opts.ShutdownOnError,
		running:       make(map[string]*task),
		exits:         exits,
		exitsInbox:    inbox,
		collectorDone: make(chan struct{}),
	}
	r.ctx, r.cancel = context.WithCancel(opts.Context)

	go r.collect()
	return r
}

// Spawn starts a. If a implements RuntimeRequestSink, it receives Shutdown
// signals from the runtime.
func (r *Runtime) Spawn(a Actor) error {
	var signal Sender[RuntimeRequest]
	if s, ok := a.(RuntimeRequestSink); ok {
		signal = s.SignalSender()
	}
	return r.spawn(a, signal)
}

// SpawnWithSignal starts a and registers signal for its Shutdown. The
// runtime takes ownership of signal.
func (r *Runtime) SpawnWithSignal(a Actor, signal Sender[RuntimeRequest]) error {
	return r.spawn(a, signal)
}

// SpawnBuilder builds an actor and spawns it. A wiring error is returned as
// a RuntimeError of KindLink and nothing is spawned.
func (r *Runtime) SpawnBuilder(b ActorBuilder) error {
	signal := b.SignalSender()
	a, err := b.BuildActor()
	if err != nil {
		signal.Close()
		return &RuntimeError{Kind: KindLink, Actor: builderName(b), Err: err}
	}
	return r.spawn(a, signal)
}

func builderName(b any) string {
	if n, ok := b.(interface{ Name() string }); ok {
		return n.Name()
	}
	return msgTypeOf(b)
}

func (r *Runtime) spawn(a Actor, signal Sender[RuntimeRequest]) error {
	t := &task{
		id:     fmt.Sprintf("%s-%s", a.Name(), gonanoid.Must(6)),
		actor:  a,
		signal: signal,
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		if signal != nil {
			signal.Close()
		}
		return ErrRuntimeClosed
	}
	r.running[t.id] = t
	r.active++
	if r.active == 1 {
		r.idle = make(chan struct{})
	}
	exit := r.exits.Clone()
	r.mu.Unlock()

	r.log.Info("actor started", slog.String("actor", a.Name()), slog.String("task", t.id))
	r.metrics.ActorStarted(a.Name())
	r.emit(RuntimeEvent{Kind: EventStarted, Actor: a.Name(), TaskID: t.id})

	go r.runTask(t, exit)
	return nil
}

func (r *Runtime) runTask(t *task, exit Sender[taskExit]) {
	defer exit.Close()

	var rerr *RuntimeError
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				rerr = &RuntimeError{Kind: KindPanic, Actor: t.actor.Name(), Err: panicError{rec}, Stack: debug.Stack()}
			}
		}()
		if err := t.actor.Run(r.ctx); err != nil {
			rerr = r.classify(t.actor.Name(), err)
		}
	}()

	if err := exit.Send(context.Background(), taskExit{task: t, err: rerr}); err != nil {
		// only possible once the runtime is torn down
		r.log.Error("failed to report actor exit",
			slog.Any("error", &RuntimeError{Kind: KindChannel, Actor: t.actor.Name(), Err: err}))
		r.exited()
	}
}

func (r *Runtime) classify(name string, err error) *RuntimeError {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re
	}
	var le *LinkError
	switch {
	case errors.As(err, &le):
		return &RuntimeError{Kind: KindLink, Actor: name, Err: err}
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return &RuntimeError{Kind: KindCancellation, Actor: name, Err: err}
	default:
		return &RuntimeError{Kind: KindActorError, Actor: name, Err: err}
	}
}

// collect is the runtime's error mailbox: it records how every task ended.
func (r *Runtime) collect() {
	defer close(r.collectorDone)
	for {
		ex, ok := r.exitsInbox.Recv(context.Background())
		if !ok {
			return
		}
		r.handleExit(ex)
	}
}

func (r *Runtime) exited() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active--
	if r.active == 0 {
		close(r.idle)
	}
}

func (r *Runtime) handleExit(ex taskExit) {
	defer r.exited()

	t := ex.task
	name := t.actor.Name()

	r.mu.Lock()
	delete(r.running, t.id)
	if ex.err != nil && r.firstErr == nil {
		r.firstErr = ex.err
	}
	r.mu.Unlock()

	if t.signal != nil {
		t.signal.Close()
	}

	if ex.err == nil {
		r.log.Info("actor stopped", slog.String("actor", name), slog.String("task", t.id))
		r.metrics.ActorStopped(name, OutcomeOK)
		r.emit(RuntimeEvent{Kind: EventStopped, Actor: name, TaskID: t.id})
		return
	}

	attrs := []any{slog.String("actor", name), slog.String("task", t.id), slog.String("kind", ex.err.Kind.String()), slog.Any("error", ex.err.Err)}
	if ex.err.Stack != nil {
		attrs = append(attrs, slog.String("stack", string(ex.err.Stack)))
	}
	r.log.Error("actor failed", attrs...)
	r.metrics.ActorStopped(name, outcomeOf(ex.err))
	r.emit(RuntimeEvent{Kind: EventAborted, Actor: name, TaskID: t.id, Err: ex.err})

	if r.stopAll {
		go func() {
			if err := r.signalAll(r.ctx); err != nil {
				r.log.Warn("failed to signal shutdown", slog.Any("error", err))
			}
		}()
	}
}

func outcomeOf(err *RuntimeError) Outcome {
	switch err.Kind {
	case KindPanic:
		return OutcomePanic
	case KindCancellation:
		return OutcomeCancelled
	default:
		return OutcomeError
	}
}

func (r *Runtime) emit(ev RuntimeEvent) {
	if err := r.events.Send(r.ctx, ev); err != nil {
		r.log.Debug("runtime event dropped", slog.String("event", ev.Kind.String()), slog.Any("error", err))
	}
}

// Running returns the names of the actors still running, sorted.
func (r *Runtime) Running() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.running))
	for _, t := range r.running {
		out = append(out, t.actor.Name())
	}
	sort.Strings(out)
	return out
}

// Err returns the first reported RuntimeError, if any.
func (r *Runtime) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.firstErr == nil {
		return nil
	}
	return r.firstErr
}

func (r *Runtime) signalAll(ctx context.Context) error {
	r.mu.Lock()
	signals := make(map[string]Sender[RuntimeRequest], len(r.running))
	for id, t := range r.running {
		if t.signal != nil {
			signals[id] = t.signal.Clone()
		}
	}
	r.mu.Unlock()

	var g errgroup.Group
	for id, s := range signals {
		g.Go(func() error {
			defer s.Close()
			err := s.Send(ctx, Shutdown)
			if err != nil && !errors.Is(err, ErrSendFailed) {
				return fmt.Errorf("shutdown %s: %w", id, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Wait blocks until every spawned actor has stopped and returns the first
// RuntimeError reported. If ctx ends first, it returns a KindJoin error
// naming the actors still running.
func (r *Runtime) Wait(ctx context.Context) error {
	select {
	case <-r.Idle():
		return r.Err()
	case <-ctx.Done():
		return &RuntimeError{Kind: KindJoin, Actor: strings.Join(r.Running(), ","), Err: ctx.Err()}
	}
}

// Idle returns a channel that is closed once no spawned actor is running.
// A later spawn makes the runtime busy again, with a new channel.
func (r *Runtime) Idle() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.idle
}

// Shutdown sends Shutdown to every running actor and waits for them. Actors
// still running when ctx ends are cancelled through their context.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.log.Info("shutting down", slog.Int("actors", len(r.Running())))
	if err := r.signalAll(ctx); err != nil {
		r.cancel()
		return err
	}
	err := r.Wait(ctx)
	if IsRuntimeError(err, KindJoin) {
		r.log.Warn("actors did not stop in time, cancelling", slog.Any("error", err))
		r.cancel()
	}
	return err
}

// RunToCompletion waits for all actors, then closes the runtime.
func (r *Runtime) RunToCompletion(ctx context.Context) error {
	err := r.Wait(ctx)
	if IsRuntimeError(err, KindJoin) {
		return err
	}
	r.Close()
	return err
}

// Close stops accepting new actors. It does not stop running ones; once
// they are all gone the runtime releases its resources.
func (r *Runtime) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.exits.Close()
	go func() {
		<-r.collectorDone
		r.events.Close()
		r.cancel()
	}()
}

// Done is closed once the runtime is closed and every actor has stopped.
func (r *Runtime) Done() <-chan struct{} { return r.collectorDone }
