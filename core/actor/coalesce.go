package actor

import (
	"context"

	"github.com/codewandler/tedge-go/core/sf"
)

type coalescingServer[Req, Res any] struct {
	inner CloneableServer[Req, Res]
	key   func(Req) string
	group *sf.Group[string, Res]
}

// CoalescingServer handles concurrent requests with the same key once: the
// clients that ask while a request is in flight all get its response. The
// shared call runs with the context of the request that started it.
func CoalescingServer[Req, Res any](inner CloneableServer[Req, Res], key func(Req) string) CloneableServer[Req, Res] {
	return &coalescingServer[Req, Res]{inner: inner, key: key, group: &sf.Group[string, Res]{}}
}

func (s *coalescingServer[Req, Res]) Name() string { return s.inner.Name() }

func (s *coalescingServer[Req, Res]) Handle(ctx context.Context, req Req) Res {
	res, _, _ := s.group.Do(s.key(req), func() (Res, error) {
		return s.inner.Clone().Handle(ctx, req), nil
	})
	return res
}

func (s *coalescingServer[Req, Res]) Clone() Server[Req, Res] { return s }
