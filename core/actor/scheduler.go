package actor

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

type taskFunc func()

// scheduler runs tasks on their own goroutines. With max > 0, Schedule
// blocks while max tasks are running, which in turn stops the caller from
// reading its mailbox and pushes back on its senders.
type scheduler struct {
	ctx      context.Context
	log      *slog.Logger
	name     string
	metrics  RuntimeMetrics
	inflight atomic.Int32
	sem      chan struct{}

	wg sync.WaitGroup
}

func newScheduler(ctx context.Context, max int, name string, log *slog.Logger, m RuntimeMetrics) *scheduler {
	var sem chan struct{}
	if max > 0 {
		sem = make(chan struct{}, max)
	}
	return &scheduler{ctx: ctx, log: log, name: name, metrics: m, sem: sem}
}

// Schedule starts f. It returns false, without running f, when ctx is done
// before a slot is free.
func (s *scheduler) Schedule(f taskFunc) bool {
	if s.sem != nil {
		select {
		case <-s.ctx.Done():
			return false
		case s.sem <- struct{}{}:
		}
	}

	s.wg.Add(1)
	s.metrics.ServerInflight(s.name, int(s.inflight.Add(1)))
	go func() {
		defer func() {
			s.metrics.ServerInflight(s.name, int(s.inflight.Add(-1)))
			if s.sem != nil {
				<-s.sem
			}
			s.wg.Done()
		}()
		s.runTask(f)
	}()
	return true
}

func (s *scheduler) runTask(f taskFunc) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.ServerTaskPanic(s.name)
			s.log.Error("request task panicked", slog.Any("recovered", r), slog.String("stack", string(debug.Stack())))
		}
	}()
	f()
}

// Inflight returns the number of running tasks.
func (s *scheduler) Inflight() int { return int(s.inflight.Load()) }

// Wait blocks until every scheduled task has returned.
func (s *scheduler) Wait() { s.wg.Wait() }
