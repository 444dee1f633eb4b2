package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/tedge-go/core/actor"
	"github.com/codewandler/tedge-go/core/metrics"
)

// runtimeMetrics implements actor.RuntimeMetrics using Prometheus.
type runtimeMetrics struct {
	actorsRunning      *prometheus.GaugeVec
	actorsStopped      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	serverInflight     *prometheus.GaugeVec
	serverTaskPanics   *prometheus.CounterVec
	messagesConverted  *prometheus.CounterVec
	conversionFailures *prometheus.CounterVec
}

// NewRuntimeMetrics creates a Prometheus implementation of actor.RuntimeMetrics.
func NewRuntimeMetrics(reg prometheus.Registerer) actor.RuntimeMetrics {
	m := &runtimeMetrics{
		actorsRunning: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tedge_actor_running",
			Help: "Number of running actor tasks",
		}, []string{"actor"}),

		actorsStopped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tedge_actor_stopped_total",
			Help: "Total number of actor tasks that stopped, by outcome",
		}, []string{"actor", "outcome"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tedge_server_request_duration_seconds",
			Help:    "Request handling time in seconds",
			Buckets: defaultBuckets,
		}, []string{"server"}),

		serverInflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tedge_server_inflight",
			Help: "Number of requests a concurrent server is handling",
		}, []string{"server"}),

		serverTaskPanics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tedge_server_task_panics_total",
			Help: "Total number of request tasks that panicked",
		}, []string{"server"}),

		messagesConverted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tedge_converter_messages_total",
			Help: "Total number of messages produced by converters",
		}, []string{"converter"}),

		conversionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tedge_converter_failures_total",
			Help: "Total number of input messages a converter failed to convert",
		}, []string{"converter"}),
	}

	reg.MustRegister(
		m.actorsRunning,
		m.actorsStopped,
		m.requestDuration,
		m.serverInflight,
		m.serverTaskPanics,
		m.messagesConverted,
		m.conversionFailures,
	)

	return m
}

func (m *runtimeMetrics) ActorStarted(name string) {
	m.actorsRunning.WithLabelValues(name).Inc()
}

func (m *runtimeMetrics) ActorStopped(name string, outcome actor.Outcome) {
	m.actorsRunning.WithLabelValues(name).Dec()
	m.actorsStopped.WithLabelValues(name, string(outcome)).Inc()
}

func (m *runtimeMetrics) RequestDuration(server string) metrics.Timer {
	return metrics.NewTimer(m.requestDuration.WithLabelValues(server))
}

func (m *runtimeMetrics) ServerInflight(server string, count int) {
	m.serverInflight.WithLabelValues(server).Set(float64(count))
}

func (m *runtimeMetrics) ServerTaskPanic(server string) {
	m.serverTaskPanics.WithLabelValues(server).Inc()
}

func (m *runtimeMetrics) MessagesConverted(converter string, count int) {
	m.messagesConverted.WithLabelValues(converter).Add(float64(count))
}

func (m *runtimeMetrics) ConversionFailed(converter string) {
	m.conversionFailures.WithLabelValues(converter).Inc()
}

var _ actor.RuntimeMetrics = (*runtimeMetrics)(nil)
