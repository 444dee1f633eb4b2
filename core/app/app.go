package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/codewandler/tedge-go/core/actor"
)

type Config struct {
	// Context ends the app: once it is done the actors are asked to shut
	// down gracefully.
	Context context.Context
	Log     *slog.Logger
	// ID names the agent in logs. A random one is generated if empty.
	ID              string
	Metrics         actor.RuntimeMetrics
	Events          actor.Sender[actor.RuntimeEvent]
	ShutdownOnError bool
	// ShutdownTimeout bounds the graceful shutdown; actors still running
	// afterwards are cancelled. Defaults to 10s.
	ShutdownTimeout time.Duration
}

type App struct {
	ctx       context.Context
	cancelCtx context.CancelFunc
	log       *slog.Logger
	timeout   time.Duration
	rt        *actor.Runtime

	builders []actor.ActorBuilder
	actors   []actor.Actor
}

func New(config Config) *App {
	if config.ID == "" {
		config.ID = "agent-" + gonanoid.Must(6)
	}
	if config.Log == nil {
		config.Log = slog.Default()
	}
	if config.Context == nil {
		config.Context = context.Background()
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	app := &App{
		log:     config.Log.With(slog.String("agent", config.ID)),
		timeout: config.ShutdownTimeout,
	}
	app.ctx, app.cancelCtx = context.WithCancel(config.Context)

	// actors are stopped by signals first and only cancelled on timeout
	app.rt = actor.NewRuntime(actor.RuntimeOptions{
		Context:         context.WithoutCancel(config.Context),
		Logger:          app.log,
		Metrics:         config.Metrics,
		Events:          config.Events,
		ShutdownOnError: config.ShutdownOnError,
	})
	return app
}

// Add registers builders to be built and spawned by Run.
func (a *App) Add(builders ...actor.ActorBuilder) *App {
	a.builders = append(a.builders, builders...)
	return a
}

// AddActor registers actors that need no building.
func (a *App) AddActor(actors ...actor.Actor) *App {
	a.actors = append(a.actors, actors...)
	return a
}

func (a *App) Runtime() *actor.Runtime { return a.rt }

// Run builds every registered builder, then spawns all actors. If any
// builder fails, nothing is spawned and the link errors are returned.
func (a *App) Run() error {
	type built struct {
		actor  actor.Actor
		signal actor.Sender[actor.RuntimeRequest]
	}

	var (
		ready []built
		errs  []error
	)
	for _, b := range a.builders {
		signal := b.SignalSender()
		act, err := b.BuildActor()
		if err != nil {
			signal.Close()
			errs = append(errs, &actor.RuntimeError{Kind: actor.KindLink, Actor: builderName(b), Err: err})
			continue
		}
		ready = append(ready, built{actor: act, signal: signal})
	}
	if len(errs) > 0 {
		for _, r := range ready {
			r.signal.Close()
		}
		a.rt.Close()
		return errors.Join(errs...)
	}

	for _, r := range ready {
		if err := a.rt.SpawnWithSignal(r.actor, r.signal); err != nil {
			return err
		}
	}
	for _, act := range a.actors {
		if err := a.rt.Spawn(act); err != nil {
			return err
		}
	}
	a.builders, a.actors = nil, nil

	a.log.Info("agent started", slog.Any("actors", a.rt.Running()))
	return nil
}

// Wait blocks until every actor has stopped or the app is stopped. In the
// latter case the actors get ShutdownTimeout to stop on their own.
func (a *App) Wait() error {
	select {
	case <-a.rt.Idle():
		a.rt.Close()
		a.log.Info("agent stopped")
		return a.rt.Err()
	case <-a.ctx.Done():
	}

	a.log.Info("stopping agent", slog.Duration("timeout", a.timeout))
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	err := a.rt.Shutdown(ctx)
	a.rt.Close()
	return err
}

// Stop asks the app to shut down; Wait returns once it did.
func (a *App) Stop() {
	a.cancelCtx()
}

func Run(config Config, builders ...actor.ActorBuilder) (*App, error) {
	app := New(config).Add(builders...)
	if err := app.Run(); err != nil {
		return nil, err
	}
	return app, nil
}

func builderName(b actor.ActorBuilder) string {
	if n, ok := b.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "builder"
}
