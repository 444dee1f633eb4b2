package actor

import (
	"context"
	"fmt"
	"sort"

	"github.com/codewandler/tedge-go/internal/hrw"
)

type routerSender[M any] struct {
	key     func(M) string
	seed    string
	names   []string
	workers []Sender[M]
}

// RouterSender spreads messages over a pool of workers by key. All
// messages with the same key reach the same worker, so per-key order is
// kept while different keys are handled in parallel. The router takes
// ownership of the worker senders.
func RouterSender[M any](key func(M) string, seed string, workers map[string]Sender[M]) (Sender[M], error) {
	if len(workers) == 0 {
		return nil, MissingPeer("router worker")
	}
	names := make([]string, 0, len(workers))
	for name := range workers {
		names = append(names, name)
	}
	sort.Strings(names)

	r := &routerSender[M]{key: key, seed: seed, names: names}
	for _, name := range names {
		r.workers = append(r.workers, workers[name])
	}
	return r, nil
}

func (r *routerSender[M]) Send(ctx context.Context, msg M) error {
	k := r.key(msg)
	i := hrw.Pick(k, r.names, r.seed)
	if err := r.workers[i].Send(ctx, msg); err != nil {
		return fmt.Errorf("route %q to %s: %w", k, r.names[i], err)
	}
	return nil
}

func (r *routerSender[M]) Clone() Sender[M] {
	c := &routerSender[M]{key: r.key, seed: r.seed, names: r.names}
	for _, w := range r.workers {
		c.workers = append(c.workers, w.Clone())
	}
	return c
}

func (r *routerSender[M]) Close() {
	for _, w := range r.workers {
		w.Close()
	}
}
