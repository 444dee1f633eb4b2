package actor

import (
	"context"
	"errors"
	"fmt"
)

// ServerMessageBoxBuilder wires a request/response actor serving many
// clients through one mailbox. Each Connect assigns the next client id;
// requests are tagged with it and responses are routed back by it.
type ServerMessageBoxBuilder[Req, Res any] struct {
	name     string
	capacity int

	mailbox *Mailbox[ClientMessage[Req]]
	input   Sender[ClientMessage[Req]]
	signal  Sender[RuntimeRequest]
	clients *KeyedSender[Res]

	single   string
	required string
	built    bool
}

func NewServerMessageBoxBuilder[Req, Res any](name string, capacity int) *ServerMessageBoxBuilder[Req, Res] {
	mb, in, sig := NewMailbox[ClientMessage[Req]](capacity)
	return &ServerMessageBoxBuilder[Req, Res]{
		name:     name,
		capacity: capacity,
		mailbox:  mb,
		input:    in,
		signal:   sig,
		clients:  NewKeyedSender[Res](),
	}
}

func (b *ServerMessageBoxBuilder[Req, Res]) Name() string { return b.name }

func (b *ServerMessageBoxBuilder[Req, Res]) SignalSender() Sender[RuntimeRequest] {
	return b.signal.Clone()
}

// SingleConsumer allows only one client; a second Connect fails with
// ExcessPeer(role).
func (b *ServerMessageBoxBuilder[Req, Res]) SingleConsumer(role string) *ServerMessageBoxBuilder[Req, Res] {
	b.single = role
	return b
}

// RequireClient makes TryBuild fail with MissingPeer(role) when nobody
// connected.
func (b *ServerMessageBoxBuilder[Req, Res]) RequireClient(role string) *ServerMessageBoxBuilder[Req, Res] {
	b.required = role
	return b
}

func (b *ServerMessageBoxBuilder[Req, Res]) admit() error {
	if b.built {
		return fmt.Errorf("%s: %w", b.name, ErrAlreadyBuilt)
	}
	if b.single != "" && b.clients.Len() > 0 {
		return ExcessPeer(b.single)
	}
	return nil
}

func (b *ServerMessageBoxBuilder[Req, Res]) Connect(responses Sender[Res]) (Sender[Req], error) {
	if err := b.admit(); err != nil {
		responses.Close()
		return nil, err
	}
	id := b.clients.Add(responses)
	return MapSender(b.input.Clone(), func(r Req) ClientMessage[Req] {
		return ClientMessage[Req]{Client: id, Msg: r}
	}), nil
}

// ConnectClient is Connect for a client that tags its requests: the Seq of
// each request comes back with its response. The Client field is set by
// the builder.
func (b *ServerMessageBoxBuilder[Req, Res]) ConnectClient(responses Sender[ClientMessage[Res]]) (Sender[ClientMessage[Req]], error) {
	if err := b.admit(); err != nil {
		responses.Close()
		return nil, err
	}
	id := b.clients.AddTagged(responses)
	return MapSender(b.input.Clone(), func(m ClientMessage[Req]) ClientMessage[Req] {
		m.Client = id
		return m
	}), nil
}

func (b *ServerMessageBoxBuilder[Req, Res]) TryBuild() (*ServerMessageBox[Req, Res], error) {
	if b.built {
		return nil, fmt.Errorf("%s: %w", b.name, ErrAlreadyBuilt)
	}
	b.built = true
	b.input.Close()

	if b.required != "" && b.clients.Len() == 0 {
		b.clients.Close()
		b.mailbox.Close()
		return nil, MissingPeer(b.required)
	}
	return &ServerMessageBox[Req, Res]{
		name:    b.name,
		mailbox: b.mailbox,
		clients: b.clients,
	}, nil
}

// ServerMessageBox is the built form of a ServerMessageBoxBuilder.
type ServerMessageBox[Req, Res any] struct {
	name    string
	mailbox *Mailbox[ClientMessage[Req]]
	clients *KeyedSender[Res]
}

func (m *ServerMessageBox[Req, Res]) Name() string { return m.name }

func (m *ServerMessageBox[Req, Res]) Recv(ctx context.Context) (ClientMessage[Req], bool) {
	return m.mailbox.Recv(ctx)
}

// Send routes a response to its client. Responses for disconnected clients
// are dropped.
func (m *ServerMessageBox[Req, Res]) Send(ctx context.Context, res ClientMessage[Res]) error {
	return m.clients.Send(ctx, res)
}

// Disconnect drops a client; later responses for it are discarded.
func (m *ServerMessageBox[Req, Res]) Disconnect(id ClientID) { m.clients.Remove(id) }

func (m *ServerMessageBox[Req, Res]) Close() {
	m.clients.Close()
	m.mailbox.Close()
}

// ---- client side ----

// taggingProvider is a ServiceProvider that echoes request sequence
// numbers, as every ServerMessageBoxBuilder does.
type taggingProvider[Req, Res any] interface {
	ConnectClient(responses Sender[ClientMessage[Res]]) (Sender[ClientMessage[Req]], error)
}

// ClientMessageBox is a blocking client of a service: one request, then
// wait for its response. Await must not be called concurrently.
//
// Responses land in an unbounded queue, so a server never blocks on a
// client that stopped waiting. A response that arrives after its Await gave
// up is discarded: servers are matched by sequence number, other providers
// by draining stale responses before the next request.
type ClientMessageBox[Req, Res any] struct {
	requests  Sender[ClientMessage[Req]]
	responses *Receiver[ClientMessage[Res]]
	tagged    bool
	seq       uint64
}

// NewClientMessageBox connects a new client to provider.
func NewClientMessageBox[Req, Res any](provider ServiceProvider[Req, Res]) (*ClientMessageBox[Req, Res], error) {
	out, in := NewUnboundedChannel[ClientMessage[Res]]()
	if tp, ok := provider.(taggingProvider[Req, Res]); ok {
		requests, err := tp.ConnectClient(out)
		if err != nil {
			in.Close()
			return nil, err
		}
		return &ClientMessageBox[Req, Res]{requests: requests, responses: in, tagged: true}, nil
	}

	requests, err := provider.Connect(MapSender(out, func(r Res) ClientMessage[Res] {
		return ClientMessage[Res]{Msg: r}
	}))
	if err != nil {
		in.Close()
		return nil, err
	}
	return &ClientMessageBox[Req, Res]{
		requests:  MapSender(requests, func(m ClientMessage[Req]) Req { return m.Msg }),
		responses: in,
	}, nil
}

// Await sends req and waits for its response. It fails with
// ErrSendFailed if the server is gone before the request is accepted and
// with ErrReceiveFailed if it goes away without answering.
func (c *ClientMessageBox[Req, Res]) Await(ctx context.Context, req Req) (Res, error) {
	var zero Res
	// whatever is queued answers a request that was given up
	for {
		if _, ok := c.responses.TryRecv(); !ok {
			break
		}
	}

	c.seq++
	if err := c.requests.Send(ctx, ClientMessage[Req]{Seq: c.seq, Msg: req}); err != nil {
		return zero, err
	}
	for {
		res, ok := c.responses.Recv(ctx)
		if !ok {
			if err := ctx.Err(); err != nil {
				return zero, err
			}
			return zero, ErrReceiveFailed
		}
		if c.tagged && res.Seq != c.seq {
			continue
		}
		return res.Msg, nil
	}
}

// Close disconnects the client.
func (c *ClientMessageBox[Req, Res]) Close() {
	c.requests.Close()
	c.responses.Close()
}

// IsPeerGone reports whether err means the other side of a channel no
// longer exists.
func IsPeerGone(err error) bool {
	return errors.Is(err, ErrSendFailed) || errors.Is(err, ErrReceiveFailed)
}
