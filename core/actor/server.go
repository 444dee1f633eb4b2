package actor

import (
	"context"
	"log/slog"
)

type (
	// Server handles one request at a time and produces exactly one
	// response per request. Failures are part of Res.
	Server[Req, Res any] interface {
		Name() string
		Handle(ctx context.Context, req Req) Res
	}

	// CloneableServer can be duplicated cheaply, one copy per request.
	CloneableServer[Req, Res any] interface {
		Server[Req, Res]
		Clone() Server[Req, Res]
	}
)

// ServerActor serves requests sequentially. A Shutdown signal received
// while a request is handled takes effect once its response is sent.
type ServerActor[Req, Res any] struct {
	server  Server[Req, Res]
	box     *ServerMessageBox[Req, Res]
	log     *slog.Logger
	metrics RuntimeMetrics
}

func (a *ServerActor[Req, Res]) Name() string { return a.server.Name() }

func (a *ServerActor[Req, Res]) Run(ctx context.Context) error {
	defer a.box.Close()
	a.log.Debug("server started")
	for {
		req, ok := a.box.Recv(ctx)
		if !ok {
			a.log.Debug("server stopped")
			return nil
		}
		res := a.handle(ctx, a.server, req.Msg)
		if err := a.box.Send(ctx, Reply(req, res)); err != nil {
			a.log.Warn("failed to send response", slog.Int("client", req.Client), slog.Any("error", err))
		}
	}
}

func (a *ServerActor[Req, Res]) handle(ctx context.Context, s Server[Req, Res], req Req) Res {
	defer a.metrics.RequestDuration(a.server.Name()).ObserveDuration()
	return s.Handle(ctx, req)
}

// ConcurrentServerActor hands every request to its own goroutine, running
// on a fresh clone of the server. Responses are sent as they complete, so
// they may reach their clients out of request order.
type ConcurrentServerActor[Req, Res any] struct {
	server  CloneableServer[Req, Res]
	box     *ServerMessageBox[Req, Res]
	log     *slog.Logger
	metrics RuntimeMetrics
	max     int
}

func (a *ConcurrentServerActor[Req, Res]) Name() string { return a.server.Name() }

func (a *ConcurrentServerActor[Req, Res]) Run(ctx context.Context) error {
	sched := newScheduler(ctx, a.max, a.server.Name(), a.log, a.metrics)
	defer func() {
		// responses of in-flight requests still need the clients
		sched.Wait()
		a.box.Close()
	}()

	a.log.Debug("concurrent server started", slog.Int("max_in_flight", a.max))
	for {
		req, ok := a.box.Recv(ctx)
		if !ok {
			a.log.Debug("concurrent server stopped", slog.Int("in_flight", sched.Inflight()))
			return nil
		}
		srv := a.server.Clone()
		scheduled := sched.Schedule(func() {
			defer a.metrics.RequestDuration(a.server.Name()).ObserveDuration()
			res := srv.Handle(ctx, req.Msg)
			if err := a.box.Send(ctx, Reply(req, res)); err != nil {
				a.log.Warn("failed to send response", slog.Int("client", req.Client), slog.Any("error", err))
			}
		})
		if !scheduled {
			return nil
		}
	}
}

// ---- builders ----

// ServerActorBuilder wires a ServerActor. It is a ServiceProvider for
// clients and a Builder for the runtime.
type ServerActorBuilder[Req, Res any] struct {
	*ServerMessageBoxBuilder[Req, Res]
	server Server[Req, Res]
	opts   Options
}

func NewServerActorBuilder[Req, Res any](server Server[Req, Res], opts Options) *ServerActorBuilder[Req, Res] {
	opts = opts.withDefaults()
	return &ServerActorBuilder[Req, Res]{
		ServerMessageBoxBuilder: NewServerMessageBoxBuilder[Req, Res](server.Name(), opts.MailboxSize),
		server:                  server,
		opts:                    opts,
	}
}

func (b *ServerActorBuilder[Req, Res]) TryBuild() (*ServerActor[Req, Res], error) {
	box, err := b.ServerMessageBoxBuilder.TryBuild()
	if err != nil {
		return nil, err
	}
	return &ServerActor[Req, Res]{
		server:  b.server,
		box:     box,
		log:     b.opts.Logger.With(slog.String("actor", b.server.Name())),
		metrics: b.opts.Metrics,
	}, nil
}

// ConcurrentServerActorBuilder wires a ConcurrentServerActor.
type ConcurrentServerActorBuilder[Req, Res any] struct {
	*ServerMessageBoxBuilder[Req, Res]
	server CloneableServer[Req, Res]
	opts   Options
}

func NewConcurrentServerActorBuilder[Req, Res any](server CloneableServer[Req, Res], opts Options) *ConcurrentServerActorBuilder[Req, Res] {
	opts = opts.withDefaults()
	return &ConcurrentServerActorBuilder[Req, Res]{
		ServerMessageBoxBuilder: NewServerMessageBoxBuilder[Req, Res](server.Name(), opts.MailboxSize),
		server:                  server,
		opts:                    opts,
	}
}

func (b *ConcurrentServerActorBuilder[Req, Res]) TryBuild() (*ConcurrentServerActor[Req, Res], error) {
	box, err := b.ServerMessageBoxBuilder.TryBuild()
	if err != nil {
		return nil, err
	}
	return &ConcurrentServerActor[Req, Res]{
		server:  b.server,
		box:     box,
		log:     b.opts.Logger.With(slog.String("actor", b.server.Name())),
		metrics: b.opts.Metrics,
		max:     b.opts.MaxInFlight,
	}, nil
}

func (b *ServerActorBuilder[Req, Res]) BuildActor() (Actor, error) {
	a, err := b.TryBuild()
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (b *ConcurrentServerActorBuilder[Req, Res]) BuildActor() (Actor, error) {
	a, err := b.TryBuild()
	if err != nil {
		return nil, err
	}
	return a, nil
}
