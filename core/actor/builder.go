package actor

import (
	"context"
	"fmt"
	"log/slog"
)

type (
	// Builder turns accumulated wiring into a runnable value. TryBuild is
	// the single point where missing peers are reported, and it can be
	// called only once.
	Builder[A any] interface {
		TryBuild() (A, error)
	}

	// RuntimeRequestSink is implemented by builders whose actor listens for
	// runtime signals.
	RuntimeRequestSink interface {
		SignalSender() Sender[RuntimeRequest]
	}

	// MessageSink is something that accepts messages of type M.
	MessageSink[M any] interface {
		// Sender returns a new handle owned by the caller.
		Sender() Sender[M]
	}

	// MessageSource is something that produces messages of type M.
	MessageSource[M any] interface {
		ConnectSink(sink MessageSink[M])
	}

	// ServiceProvider serves requests of type Req with responses of type
	// Res. Connect takes ownership of responses and returns the sender the
	// new consumer uses for its requests.
	ServiceProvider[Req, Res any] interface {
		Connect(responses Sender[Res]) (Sender[Req], error)
	}

	// ServiceConsumer is the other end of a ServiceProvider.
	ServiceConsumer[Req, Res any] interface {
		ResponseSender() Sender[Res]
		SetRequestSender(requests Sender[Req])
	}

	// ActorBuilder is what the Runtime needs to spawn an actor from a
	// builder. BuildActor is TryBuild without the concrete actor type.
	ActorBuilder interface {
		RuntimeRequestSink
		BuildActor() (Actor, error)
	}
)

// Link connects a consumer to a provider in both directions.
func Link[Req, Res any](provider ServiceProvider[Req, Res], consumer ServiceConsumer[Req, Res]) error {
	requests, err := provider.Connect(consumer.ResponseSender())
	if err != nil {
		return err
	}
	consumer.SetRequestSender(requests)
	return nil
}

// ConnectSender wires a plain sender as a sink of source.
func ConnectSender[M any](source MessageSource[M], s Sender[M]) {
	source.ConnectSink(senderSink[M]{s: s})
}

type senderSink[M any] struct{ s Sender[M] }

func (s senderSink[M]) Sender() Sender[M] { return s.s }

// ---- message box builder ----

type requirement struct {
	role string
	ok   func() bool
}

// MessageBoxBuilder accumulates the wiring of an actor that reads In and
// writes Out. It can be used as a sink, a source, and a service provider.
type MessageBoxBuilder[In, Out any] struct {
	name     string
	capacity int

	mailbox *Mailbox[In]
	input   Sender[In]
	signal  Sender[RuntimeRequest]
	outputs []Sender[Out]

	single    string
	consumers int
	requires  []requirement
	built     bool
}

// NewMessageBoxBuilder creates a builder whose input holds up to capacity
// messages.
func NewMessageBoxBuilder[In, Out any](name string, capacity int) *MessageBoxBuilder[In, Out] {
	mb, in, sig := NewMailbox[In](capacity)
	return &MessageBoxBuilder[In, Out]{
		name:     name,
		capacity: capacity,
		mailbox:  mb,
		input:    in,
		signal:   sig,
	}
}

func (b *MessageBoxBuilder[In, Out]) Name() string  { return b.name }
func (b *MessageBoxBuilder[In, Out]) Capacity() int { return b.capacity }

// Sender returns a new handle to the future actor's input.
func (b *MessageBoxBuilder[In, Out]) Sender() Sender[In] { return b.input.Clone() }

func (b *MessageBoxBuilder[In, Out]) SignalSender() Sender[RuntimeRequest] {
	return b.signal.Clone()
}

// ConnectSink adds sink as a receiver of every output message. Once the
// builder is built the sink's handle is released right away, so the sink
// is not kept waiting for messages that never come.
func (b *MessageBoxBuilder[In, Out]) ConnectSink(sink MessageSink[Out]) {
	s := sink.Sender()
	if b.built {
		slog.Warn("sink connected after build", slog.String("builder", b.name))
		s.Close()
		return
	}
	b.outputs = append(b.outputs, s)
}

// ConnectSource makes this builder a sink of source.
func (b *MessageBoxBuilder[In, Out]) ConnectSource(source MessageSource[In]) {
	source.ConnectSink(b)
}

// Connect registers a consumer: its responses receive every output, and it
// gets a handle to this builder's input.
func (b *MessageBoxBuilder[In, Out]) Connect(responses Sender[Out]) (Sender[In], error) {
	if b.built {
		responses.Close()
		return nil, fmt.Errorf("%s: %w", b.name, ErrAlreadyBuilt)
	}
	if b.single != "" && b.consumers > 0 {
		responses.Close()
		return nil, ExcessPeer(b.single)
	}
	b.consumers++
	b.outputs = append(b.outputs, responses)
	return b.input.Clone(), nil
}

// SingleConsumer restricts the builder to one service consumer; a second
// Connect fails with ExcessPeer(role). Plain sinks are not counted.
func (b *MessageBoxBuilder[In, Out]) SingleConsumer(role string) *MessageBoxBuilder[In, Out] {
	b.single = role
	return b
}

// RequireOutput makes TryBuild fail with MissingPeer(role) when no output
// peer has been connected.
func (b *MessageBoxBuilder[In, Out]) RequireOutput(role string) *MessageBoxBuilder[In, Out] {
	return b.Require(role, func() bool { return len(b.outputs) > 0 })
}

// Require registers a mandatory peer checked by TryBuild.
func (b *MessageBoxBuilder[In, Out]) Require(role string, ok func() bool) *MessageBoxBuilder[In, Out] {
	b.requires = append(b.requires, requirement{role: role, ok: ok})
	return b
}

// ResponseSender and SetRequestSender make the builder a ServiceConsumer:
// the actor's outputs become requests, its inputs the responses.
func (b *MessageBoxBuilder[In, Out]) ResponseSender() Sender[In] { return b.input.Clone() }

func (b *MessageBoxBuilder[In, Out]) SetRequestSender(requests Sender[Out]) {
	if b.built {
		slog.Warn("request sender set after build", slog.String("builder", b.name))
		requests.Close()
		return
	}
	b.outputs = append(b.outputs, requests)
}

func (b *MessageBoxBuilder[In, Out]) check() error {
	if b.built {
		return fmt.Errorf("%s: %w", b.name, ErrAlreadyBuilt)
	}
	for _, r := range b.requires {
		if !r.ok() {
			return MissingPeer(r.role)
		}
	}
	return nil
}

// release drops the builder's own input handle, so the input closes once
// the peers close theirs. The signal handle stays usable after the build.
func (b *MessageBoxBuilder[In, Out]) release() {
	b.built = true
	b.input.Close()
}

// TryBuild checks the wiring and returns the message box. On failure all
// peers handed to the builder are released.
func (b *MessageBoxBuilder[In, Out]) TryBuild() (*MessageBox[In, Out], error) {
	if err := b.check(); err != nil {
		if !b.built {
			b.abort()
		}
		return nil, err
	}
	b.release()
	return &MessageBox[In, Out]{
		name:    b.name,
		mailbox: b.mailbox,
		output:  BroadcastSender(b.outputs...),
	}, nil
}

func (b *MessageBoxBuilder[In, Out]) abort() {
	for _, o := range b.outputs {
		o.Close()
	}
	b.release()
	b.mailbox.Close()
}

// MessageBox is the built form of a MessageBoxBuilder: a mailbox plus the
// output peers.
type MessageBox[In, Out any] struct {
	name    string
	mailbox *Mailbox[In]
	output  Sender[Out]
}

func (m *MessageBox[In, Out]) Name() string { return m.name }

func (m *MessageBox[In, Out]) Recv(ctx context.Context) (In, bool) { return m.mailbox.Recv(ctx) }

// Send delivers msg to every output peer.
func (m *MessageBox[In, Out]) Send(ctx context.Context, msg Out) error {
	return m.output.Send(ctx, msg)
}

// Output returns a new handle on the output peers.
func (m *MessageBox[In, Out]) Output() Sender[Out] { return m.output.Clone() }

func (m *MessageBox[In, Out]) Mailbox() *Mailbox[In] { return m.mailbox }

// Close releases the outputs and drops the mailbox. Peers waiting on this
// actor's output see their input close once no other producer is left.
func (m *MessageBox[In, Out]) Close() {
	m.output.Close()
	m.mailbox.Close()
}
