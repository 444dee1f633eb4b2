package nats

import "github.com/codewandler/tedge-go/core/metrics"

// BridgeMetrics instruments the traffic between actors and NATS.
type BridgeMetrics interface {
	Published(subject string, success bool)
	Received(subject string)
	DecodeFailed(subject string)
	ReplyDuration(subject string) metrics.Timer
}

type nopBridgeMetrics struct{}

func (nopBridgeMetrics) Published(string, bool)              {}
func (nopBridgeMetrics) Received(string)                     {}
func (nopBridgeMetrics) DecodeFailed(string)                 {}
func (nopBridgeMetrics) ReplyDuration(string) metrics.Timer { return metrics.NopTimer() }

// NopBridgeMetrics returns a BridgeMetrics that records nothing.
func NopBridgeMetrics() BridgeMetrics { return nopBridgeMetrics{} }

func metricsOr(m BridgeMetrics) BridgeMetrics {
	if m == nil {
		return NopBridgeMetrics()
	}
	return m
}
