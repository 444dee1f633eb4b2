package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/codewandler/tedge-go/core/actor"
	"github.com/codewandler/tedge-go/internal/codec"
)

var ErrNoSubject = errors.New("nats: no subject")

type PublisherConfig[M any] struct {
	Connect Connector // If nil, ConnectDefault() is used.
	Subject string    // Subject every message is published to.
	// SubjectFor picks the subject per message. It takes precedence over
	// Subject.
	SubjectFor func(M) string
	Codec      codec.Codec // JSON if nil
	Log        *slog.Logger
	Metrics    BridgeMetrics
}

func (c PublisherConfig[M]) subjectFunc() (func(M) string, error) {
	if c.SubjectFor != nil {
		return c.SubjectFor, nil
	}
	if c.Subject == "" {
		return nil, ErrNoSubject
	}
	subj := c.Subject
	return func(M) string { return subj }, nil
}

type publishFunc func(ctx context.Context, subject string, data []byte) error

// conn is the connection shared by all clones of one publisher.
type conn struct {
	nc    *natsgo.Conn
	close closeFunc
	refs  atomic.Int32
}

func (c *conn) release() {
	if c.refs.Add(-1) == 0 {
		_ = c.nc.Flush()
		c.close()
	}
}

type publisher[M any] struct {
	conn       *conn
	publish    publishFunc
	subjectFor func(M) string
	codec      codec.Codec
	log        *slog.Logger
	metrics    BridgeMetrics
	closed     atomic.Bool
}

func newPublisher[M any](cfg PublisherConfig[M], nc *natsgo.Conn, closeNc closeFunc, publish publishFunc) (*publisher[M], error) {
	subjectFor, err := cfg.subjectFunc()
	if err != nil {
		closeNc()
		return nil, err
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	c := &conn{nc: nc, close: closeNc}
	c.refs.Store(1)
	return &publisher[M]{
		conn:       c,
		publish:    publish,
		subjectFor: subjectFor,
		codec:      codec.Or(cfg.Codec),
		log:        log.With(slog.String("bridge", "nats-publisher")),
		metrics:    metricsOr(cfg.Metrics),
	}, nil
}

// NewPublisher returns a Sender that publishes every message to NATS.
// Publishing is fire and forget: Send returns once the message is handed
// to the client library. The connection is released when the last handle
// is closed.
func NewPublisher[M any](cfg PublisherConfig[M]) (actor.Sender[M], error) {
	nc, closeNc, err := connectorOr(cfg.Connect)()
	if err != nil {
		return nil, fmt.Errorf("nats: connect: %w", err)
	}
	return newPublisher(cfg, nc, closeNc, func(_ context.Context, subject string, data []byte) error {
		return nc.Publish(subject, data)
	})
}

type StreamConfig[M any] struct {
	PublisherConfig[M]
	// Stream is created or updated to capture Subjects.
	Stream   string
	Subjects []string
	// MaxAge bounds how long messages are kept; 0 keeps them forever.
	MaxAge time.Duration
}

// NewStreamPublisher returns a Sender that publishes into a JetStream
// stream. Send waits for the server's acknowledgement, so a slow or
// unavailable server pushes back on the sending actor.
func NewStreamPublisher[M any](ctx context.Context, cfg StreamConfig[M]) (actor.Sender[M], error) {
	nc, closeNc, err := connectorOr(cfg.Connect)()
	if err != nil {
		return nil, fmt.Errorf("nats: connect: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		closeNc()
		return nil, fmt.Errorf("nats: jetstream: %w", err)
	}
	subjects := cfg.Subjects
	if len(subjects) == 0 && cfg.Subject != "" {
		subjects = []string{cfg.Subject}
	}
	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     cfg.Stream,
		Subjects: subjects,
		Storage:  jetstream.FileStorage,
		MaxAge:   cfg.MaxAge,
	}); err != nil {
		closeNc()
		return nil, fmt.Errorf("nats: create stream %s: %w", cfg.Stream, err)
	}
	return newPublisher(cfg.PublisherConfig, nc, closeNc, func(ctx context.Context, subject string, data []byte) error {
		_, err := js.Publish(ctx, subject, data)
		return err
	})
}

func (p *publisher[M]) Send(ctx context.Context, msg M) error {
	if p.closed.Load() {
		return actor.ErrSendFailed
	}
	subject := p.subjectFor(msg)
	data, err := p.codec.Marshal(msg)
	if err != nil {
		return fmt.Errorf("nats: encode %s: %w", subject, err)
	}
	err = p.publish(ctx, subject, data)
	p.metrics.Published(subject, err == nil)
	if err != nil {
		p.log.Debug("publish failed", slog.String("subject", subject), slog.Any("error", err))
		if errors.Is(err, natsgo.ErrConnectionClosed) {
			return fmt.Errorf("nats: publish %s: %w", subject, actor.ErrSendFailed)
		}
		return fmt.Errorf("nats: publish %s: %w", subject, err)
	}
	return nil
}

func (p *publisher[M]) Clone() actor.Sender[M] {
	c := &publisher[M]{
		conn:       p.conn,
		publish:    p.publish,
		subjectFor: p.subjectFor,
		codec:      p.codec,
		log:        p.log,
		metrics:    p.metrics,
	}
	if p.closed.Load() {
		c.closed.Store(true)
	} else {
		p.conn.refs.Add(1)
	}
	return c
}

func (p *publisher[M]) Close() {
	if p.closed.CompareAndSwap(false, true) {
		p.conn.release()
	}
}
