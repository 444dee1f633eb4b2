package actor

import (
	"context"
	"log/slog"
)

type (
	// Converter translates each input message into zero or more outputs.
	Converter[In, Out any] interface {
		Name() string
		Convert(ctx context.Context, msg In) ([]Out, error)
	}

	// StartupConverter is a Converter with messages to emit before the
	// first input, e.g. to announce itself.
	StartupConverter[In, Out any] interface {
		Converter[In, Out]
		StartupMessages(ctx context.Context) ([]Out, error)
	}
)

// ConvertingActor feeds its input through a Converter. A failed conversion
// is logged and skipped; it does not stop the actor.
type ConvertingActor[In, Out any] struct {
	conv    Converter[In, Out]
	box     *MessageBox[In, Out]
	log     *slog.Logger
	metrics RuntimeMetrics
}

func (a *ConvertingActor[In, Out]) Name() string { return a.conv.Name() }

func (a *ConvertingActor[In, Out]) Run(ctx context.Context) error {
	defer a.box.Close()

	if sc, ok := a.conv.(StartupConverter[In, Out]); ok {
		msgs, err := sc.StartupMessages(ctx)
		if err != nil {
			return err
		}
		if err := a.sendAll(ctx, msgs); err != nil {
			return err
		}
	}

	for {
		msg, ok := a.box.Recv(ctx)
		if !ok {
			return nil
		}
		out, err := a.conv.Convert(ctx, msg)
		if err != nil {
			a.metrics.ConversionFailed(a.conv.Name())
			a.log.Error("conversion failed", slog.String("msg_type", msgTypeOf(msg)), slog.Any("error", err))
			continue
		}
		if err := a.sendAll(ctx, out); err != nil {
			return err
		}
	}
}

func (a *ConvertingActor[In, Out]) sendAll(ctx context.Context, msgs []Out) error {
	for _, m := range msgs {
		if err := a.box.Send(ctx, m); err != nil {
			if IsPeerGone(err) {
				a.log.Debug("output peer gone", slog.Any("error", err))
				continue
			}
			return err
		}
	}
	a.metrics.MessagesConverted(a.conv.Name(), len(msgs))
	return nil
}

// ConvertingActorBuilder wires a ConvertingActor.
type ConvertingActorBuilder[In, Out any] struct {
	*MessageBoxBuilder[In, Out]
	conv Converter[In, Out]
	opts Options
}

func NewConvertingActorBuilder[In, Out any](conv Converter[In, Out], opts Options) *ConvertingActorBuilder[In, Out] {
	opts = opts.withDefaults()
	return &ConvertingActorBuilder[In, Out]{
		MessageBoxBuilder: NewMessageBoxBuilder[In, Out](conv.Name(), opts.MailboxSize),
		conv:              conv,
		opts:              opts,
	}
}

func (b *ConvertingActorBuilder[In, Out]) TryBuild() (*ConvertingActor[In, Out], error) {
	box, err := b.MessageBoxBuilder.TryBuild()
	if err != nil {
		return nil, err
	}
	return &ConvertingActor[In, Out]{
		conv:    b.conv,
		box:     box,
		log:     b.opts.Logger.With(slog.String("actor", b.conv.Name())),
		metrics: b.opts.Metrics,
	}, nil
}

func (b *ConvertingActorBuilder[In, Out]) BuildActor() (Actor, error) {
	a, err := b.TryBuild()
	if err != nil {
		return nil, err
	}
	return a, nil
}
