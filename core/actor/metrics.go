package actor

import "github.com/codewandler/tedge-go/core/metrics"

// Outcome labels how an actor task ended.
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeError     Outcome = "error"
	OutcomePanic     Outcome = "panic"
	OutcomeCancelled Outcome = "cancelled"
)

// RuntimeMetrics is the instrumentation interface of the runtime, servers
// and converters. All methods are thread-safe.
type RuntimeMetrics interface {
	// Runtime
	ActorStarted(actor string)
	ActorStopped(actor string, outcome Outcome)

	// Servers
	RequestDuration(server string) metrics.Timer
	ServerInflight(server string, count int)
	ServerTaskPanic(server string)

	// Converters
	MessagesConverted(converter string, count int)
	ConversionFailed(converter string)
}

type nopRuntimeMetrics struct{}

func (nopRuntimeMetrics) ActorStarted(string)                  {}
func (nopRuntimeMetrics) ActorStopped(string, Outcome)         {}
func (nopRuntimeMetrics) RequestDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopRuntimeMetrics) ServerInflight(string, int)           {}
func (nopRuntimeMetrics) ServerTaskPanic(string)               {}
func (nopRuntimeMetrics) MessagesConverted(string, int)        {}
func (nopRuntimeMetrics) ConversionFailed(string)              {}

// NopRuntimeMetrics returns a RuntimeMetrics that records nothing.
func NopRuntimeMetrics() RuntimeMetrics { return nopRuntimeMetrics{} }
