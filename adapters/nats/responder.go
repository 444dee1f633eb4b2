package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	natsgo "github.com/nats-io/nats.go"

	"github.com/codewandler/tedge-go/core/actor"
	"github.com/codewandler/tedge-go/internal/codec"
)

// responseFrame is the reply encoding of a Responder.
type responseFrame struct {
	Data []byte `json:"data,omitempty"`
	Err  string `json:"err,omitempty"`
}

type ResponderConfig struct {
	Connect     Connector // If nil, ConnectDefault() is used.
	Subject     string
	Queue       string
	Codec       codec.Codec // JSON if nil
	Log         *slog.Logger
	Metrics     BridgeMetrics
	MailboxSize int
}

// ResponderBuilder wires an actor that serves NATS requests on a subject
// with an actor service: every request is decoded, forwarded to the
// service and its response published as the reply. Requests are answered
// one at a time.
type ResponderBuilder[Req, Res any] struct {
	*actor.MessageBoxBuilder[*natsgo.Msg, actor.NoMessage]
	cfg    ResponderConfig
	client *actor.ClientMessageBox[Req, Res]
	err    error
}

// NewResponderBuilder connects to provider right away; a connection error
// is reported by TryBuild.
func NewResponderBuilder[Req, Res any](cfg ResponderConfig, provider actor.ServiceProvider[Req, Res]) *ResponderBuilder[Req, Res] {
	if cfg.MailboxSize <= 0 {
		cfg.MailboxSize = 16
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	cfg.Codec = codec.Or(cfg.Codec)
	cfg.Metrics = metricsOr(cfg.Metrics)

	b := &ResponderBuilder[Req, Res]{
		MessageBoxBuilder: actor.NewMessageBoxBuilder[*natsgo.Msg, actor.NoMessage]("nats-responder:"+cfg.Subject, cfg.MailboxSize),
		cfg:               cfg,
	}
	b.Require("responder subject", func() bool { return cfg.Subject != "" })
	b.Require("responder service", func() bool { return b.err == nil })
	b.client, b.err = actor.NewClientMessageBox[Req, Res](provider)
	return b
}

func (b *ResponderBuilder[Req, Res]) TryBuild() (*Responder[Req, Res], error) {
	in := b.MessageBoxBuilder.Sender()
	box, err := b.MessageBoxBuilder.TryBuild()
	if err != nil {
		in.Close()
		if b.err != nil {
			return nil, b.err
		}
		b.client.Close()
		return nil, err
	}
	return &Responder[Req, Res]{
		cfg:    b.cfg,
		box:    box,
		in:     in,
		client: b.client,
		log:    b.cfg.Log.With(slog.String("actor", box.Name())),
	}, nil
}

func (b *ResponderBuilder[Req, Res]) BuildActor() (actor.Actor, error) {
	r, err := b.TryBuild()
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Responder is the actor built by a ResponderBuilder.
type Responder[Req, Res any] struct {
	cfg    ResponderConfig
	box    *actor.MessageBox[*natsgo.Msg, actor.NoMessage]
	in     actor.Sender[*natsgo.Msg]
	client *actor.ClientMessageBox[Req, Res]
	log    *slog.Logger
}

func (r *Responder[Req, Res]) Name() string { return r.box.Name() }

func (r *Responder[Req, Res]) Run(ctx context.Context) error {
	defer func() {
		r.box.Close()
		r.client.Close()
	}()

	nc, closeNc, err := connectorOr(r.cfg.Connect)()
	if err != nil {
		r.in.Close()
		return fmt.Errorf("nats: connect: %w", err)
	}
	defer closeNc()

	sub, err := subscribe(nc, r.cfg.Subject, r.cfg.Queue, func(msg *natsgo.Msg) {
		if err := r.in.Send(ctx, msg); err != nil {
			r.log.Debug("dropped request", slog.String("subject", msg.Subject), slog.Any("error", err))
		}
	})
	if err != nil {
		r.in.Close()
		return err
	}
	defer func() {
		_ = sub.Unsubscribe()
		r.in.Close()
	}()

	r.log.Info("serving", slog.String("subject", r.cfg.Subject), slog.String("queue", r.cfg.Queue))
	for {
		msg, ok := r.box.Recv(ctx)
		if !ok {
			return nil
		}
		r.cfg.Metrics.Received(msg.Subject)
		if err := r.serve(ctx, msg); err != nil {
			return err
		}
	}
}

// serve answers one request. It only fails when the service is gone.
func (r *Responder[Req, Res]) serve(ctx context.Context, msg *natsgo.Msg) error {
	defer r.cfg.Metrics.ReplyDuration(msg.Subject).ObserveDuration()

	var frame responseFrame
	req, err := codec.Decode[Req](r.cfg.Codec, msg.Data)
	if err != nil {
		r.cfg.Metrics.DecodeFailed(msg.Subject)
		frame.Err = fmt.Sprintf("decode request: %s", err)
		r.reply(msg, frame)
		return nil
	}

	res, err := r.client.Await(ctx, req)
	switch {
	case err == nil:
		frame.Data, err = r.cfg.Codec.Marshal(res)
		if err != nil {
			frame.Err = fmt.Sprintf("encode response: %s", err)
		}
	case actor.IsPeerGone(err):
		frame.Err = "service unavailable"
		r.reply(msg, frame)
		return fmt.Errorf("nats responder %s: %w", r.cfg.Subject, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		frame.Err = "service unavailable"
		r.reply(msg, frame)
		return nil
	default:
		frame.Err = err.Error()
	}
	r.reply(msg, frame)
	return nil
}

func (r *Responder[Req, Res]) reply(msg *natsgo.Msg, frame responseFrame) {
	if msg.Reply == "" {
		return
	}
	b, err := r.cfg.Codec.Marshal(frame)
	if err == nil {
		err = msg.Respond(b)
	}
	r.cfg.Metrics.Published(msg.Reply, err == nil)
	if err != nil {
		r.log.Error("failed to publish reply", slog.Any("error", err))
	}
}

// RemoteError is a failure reported by the remote Responder.
type RemoteError struct {
	Subject string
	Msg     string
}

func (e *RemoteError) Error() string { return fmt.Sprintf("nats: %s: %s", e.Subject, e.Msg) }

// Request sends req to the Responder serving subject and decodes its reply.
func Request[Req, Res any](ctx context.Context, nc *natsgo.Conn, subject string, req Req) (Res, error) {
	var zero Res
	c := codec.JSON{}
	payload, err := c.Marshal(req)
	if err != nil {
		return zero, fmt.Errorf("encode request: %w", err)
	}
	msg, err := nc.RequestWithContext(ctx, subject, payload)
	if err != nil {
		return zero, fmt.Errorf("nats: request %s: %w", subject, err)
	}
	frame, err := codec.Decode[responseFrame](c, msg.Data)
	if err != nil {
		return zero, fmt.Errorf("decode response: %w", err)
	}
	if frame.Err != "" {
		return zero, &RemoteError{Subject: subject, Msg: frame.Err}
	}
	return codec.Decode[Res](c, frame.Data)
}
