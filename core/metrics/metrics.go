// Package metrics holds the backend-neutral instrumentation types shared by
// the core packages. Backends such as adapters/prometheus implement them.
package metrics

import "time"

// Timer measures one operation; ObserveDuration records the time since
// the timer was started.
type Timer interface {
	ObserveDuration()
}

// Observer receives durations in seconds.
type Observer interface {
	Observe(seconds float64)
}

type timer struct {
	o     Observer
	start time.Time
}

// NewTimer starts a Timer that reports to o.
func NewTimer(o Observer) Timer { return &timer{o: o, start: time.Now()} }

func (t *timer) ObserveDuration() { t.o.Observe(time.Since(t.start).Seconds()) }
