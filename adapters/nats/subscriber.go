package nats

import (
	"context"
	"fmt"
	"log/slog"

	natsgo "github.com/nats-io/nats.go"

	"github.com/codewandler/tedge-go/core/actor"
	"github.com/codewandler/tedge-go/internal/codec"
)

type SubscriberConfig struct {
	Connect Connector // If nil, ConnectDefault() is used.
	Subject string
	// Queue, if set, joins a queue group so that each message reaches one
	// member only.
	Queue       string
	Codec       codec.Codec // JSON if nil
	Log         *slog.Logger
	Metrics     BridgeMetrics
	MailboxSize int
}

// SubscriberBuilder wires a source actor that turns the messages of a NATS
// subject into messages of type M for its sinks. Undecodable messages are
// logged and dropped.
type SubscriberBuilder[M any] struct {
	*actor.MessageBoxBuilder[*natsgo.Msg, M]
	cfg SubscriberConfig
}

func NewSubscriberBuilder[M any](cfg SubscriberConfig) *SubscriberBuilder[M] {
	if cfg.MailboxSize <= 0 {
		cfg.MailboxSize = 16
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	cfg.Codec = codec.Or(cfg.Codec)
	cfg.Metrics = metricsOr(cfg.Metrics)

	b := &SubscriberBuilder[M]{
		MessageBoxBuilder: actor.NewMessageBoxBuilder[*natsgo.Msg, M]("nats-subscriber:"+cfg.Subject, cfg.MailboxSize),
		cfg:               cfg,
	}
	b.RequireOutput("subscriber sink")
	b.Require("subscriber subject", func() bool { return cfg.Subject != "" })
	return b
}

func (b *SubscriberBuilder[M]) TryBuild() (*Subscriber[M], error) {
	in := b.MessageBoxBuilder.Sender()
	box, err := b.MessageBoxBuilder.TryBuild()
	if err != nil {
		in.Close()
		return nil, err
	}
	return &Subscriber[M]{
		cfg: b.cfg,
		box: box,
		in:  in,
		log: b.cfg.Log.With(slog.String("actor", box.Name())),
	}, nil
}

func (b *SubscriberBuilder[M]) BuildActor() (actor.Actor, error) {
	s, err := b.TryBuild()
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Subscriber is the actor built by a SubscriberBuilder. The NATS callback
// feeds its mailbox, so a full mailbox holds back the subscription.
type Subscriber[M any] struct {
	cfg SubscriberConfig
	box *actor.MessageBox[*natsgo.Msg, M]
	in  actor.Sender[*natsgo.Msg]
	log *slog.Logger
}

func (s *Subscriber[M]) Name() string { return s.box.Name() }

func (s *Subscriber[M]) Run(ctx context.Context) error {
	defer s.box.Close()

	nc, closeNc, err := connectorOr(s.cfg.Connect)()
	if err != nil {
		s.in.Close()
		return fmt.Errorf("nats: connect: %w", err)
	}
	defer closeNc()

	sub, err := subscribe(nc, s.cfg.Subject, s.cfg.Queue, func(msg *natsgo.Msg) {
		if err := s.in.Send(ctx, msg); err != nil {
			s.log.Debug("dropped message", slog.String("subject", msg.Subject), slog.Any("error", err))
		}
	})
	if err != nil {
		s.in.Close()
		return err
	}
	defer func() {
		_ = sub.Unsubscribe()
		s.in.Close()
	}()

	s.log.Info("subscribed", slog.String("subject", s.cfg.Subject), slog.String("queue", s.cfg.Queue))
	for {
		msg, ok := s.box.Recv(ctx)
		if !ok {
			return nil
		}
		s.cfg.Metrics.Received(msg.Subject)

		m, err := codec.Decode[M](s.cfg.Codec, msg.Data)
		if err != nil {
			s.cfg.Metrics.DecodeFailed(msg.Subject)
			s.log.Warn("failed to decode message", slog.String("subject", msg.Subject), slog.Any("error", err))
			continue
		}
		if err := s.box.Send(ctx, m); err != nil {
			if actor.IsPeerGone(err) {
				continue
			}
			return err
		}
	}
}

func subscribe(nc *natsgo.Conn, subject, queue string, h natsgo.MsgHandler) (*natsgo.Subscription, error) {
	var (
		sub *natsgo.Subscription
		err error
	)
	if queue != "" {
		sub, err = nc.QueueSubscribe(subject, queue, h)
	} else {
		sub, err = nc.Subscribe(subject, h)
	}
	if err != nil {
		return nil, fmt.Errorf("nats: subscribe %s: %w", subject, err)
	}
	// make sure the server knows about the interest before anyone relies on it
	if err := nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("nats: flush: %w", err)
	}
	return sub, nil
}
