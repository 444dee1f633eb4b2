package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/tedge-go/adapters/nats"
	"github.com/codewandler/tedge-go/core/metrics"
)

// bridgeMetrics implements nats.BridgeMetrics using Prometheus.
type bridgeMetrics struct {
	publishedTotal *prometheus.CounterVec
	receivedTotal  *prometheus.CounterVec
	decodeErrors   *prometheus.CounterVec
	replyDuration  *prometheus.HistogramVec
}

// NewBridgeMetrics creates a Prometheus implementation of nats.BridgeMetrics.
func NewBridgeMetrics(reg prometheus.Registerer) nats.BridgeMetrics {
	m := &bridgeMetrics{
		publishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tedge_bridge_published_total",
			Help: "Total number of messages published to NATS",
		}, []string{"subject", "success"}),

		receivedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tedge_bridge_received_total",
			Help: "Total number of messages received from NATS",
		}, []string{"subject"}),

		decodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tedge_bridge_decode_errors_total",
			Help: "Total number of NATS messages that could not be decoded",
		}, []string{"subject"}),

		replyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tedge_bridge_reply_duration_seconds",
			Help:    "Time to answer a NATS request in seconds",
			Buckets: defaultBuckets,
		}, []string{"subject"}),
	}

	reg.MustRegister(
		m.publishedTotal,
		m.receivedTotal,
		m.decodeErrors,
		m.replyDuration,
	)

	return m
}

func (m *bridgeMetrics) Published(subject string, success bool) {
	m.publishedTotal.WithLabelValues(subject, boolToStr(success)).Inc()
}

func (m *bridgeMetrics) Received(subject string) {
	m.receivedTotal.WithLabelValues(subject).Inc()
}

func (m *bridgeMetrics) DecodeFailed(subject string) {
	m.decodeErrors.WithLabelValues(subject).Inc()
}

func (m *bridgeMetrics) ReplyDuration(subject string) metrics.Timer {
	return metrics.NewTimer(m.replyDuration.WithLabelValues(subject))
}

var _ nats.BridgeMetrics = (*bridgeMetrics)(nil)
