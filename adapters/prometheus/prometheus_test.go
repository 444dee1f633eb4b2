package prometheus

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewandler/tedge-go/core/actor"
)

func gatherNames(t *testing.T, reg *prometheus.Registry) map[string]bool {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)

	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	return names
}

func TestNewRuntimeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRuntimeMetrics(reg)

	require.NotNil(t, m)

	// Test actor lifecycle
	m.ActorStarted("calculator")
	m.ActorStarted("fahrenheit")
	m.ActorStopped("fahrenheit", actor.OutcomePanic)

	// Test servers
	timer := m.RequestDuration("calculator")
	assert.NotNil(t, timer)
	timer.ObserveDuration()

	m.ServerInflight("calculator", 3)
	m.ServerTaskPanic("calculator")

	// Test converters
	m.MessagesConverted("fahrenheit", 2)
	m.ConversionFailed("fahrenheit")

	names := gatherNames(t, reg)
	assert.True(t, names["tedge_actor_running"])
	assert.True(t, names["tedge_actor_stopped_total"])
	assert.True(t, names["tedge_server_request_duration_seconds"])
	assert.True(t, names["tedge_converter_messages_total"])

	rm := m.(*runtimeMetrics)
	assert.Equal(t, 1.0, testutil.ToFloat64(rm.actorsRunning.WithLabelValues("calculator")))
	assert.Equal(t, 0.0, testutil.ToFloat64(rm.actorsRunning.WithLabelValues("fahrenheit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rm.actorsStopped.WithLabelValues("fahrenheit", "panic")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rm.messagesConverted.WithLabelValues("fahrenheit")))
}

func TestRuntimeMetrics_with_runtime(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRuntimeMetrics(reg)

	rt := actor.NewRuntime(actor.RuntimeOptions{Context: t.Context(), Metrics: m})
	require.NoError(t, rt.Spawn(actor.NewActor("noop", func(ctx context.Context) error { return nil })))
	require.NoError(t, rt.RunToCompletion(t.Context()))

	rm := m.(*runtimeMetrics)
	assert.Equal(t, 1.0, testutil.ToFloat64(rm.actorsStopped.WithLabelValues("noop", "ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(rm.actorsRunning.WithLabelValues("noop")))
}

func TestNewBridgeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBridgeMetrics(reg)

	require.NotNil(t, m)

	m.Published("tedge.measurements", true)
	m.Published("tedge.measurements", false)
	m.Received("tedge.commands")
	m.DecodeFailed("tedge.commands")

	timer := m.ReplyDuration("tedge.calc")
	assert.NotNil(t, timer)
	timer.ObserveDuration()

	names := gatherNames(t, reg)
	assert.True(t, names["tedge_bridge_published_total"])
	assert.True(t, names["tedge_bridge_received_total"])
	assert.True(t, names["tedge_bridge_reply_duration_seconds"])
}

func TestNewAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAllMetrics(reg)

	require.NotNil(t, m)
	require.NotNil(t, m.Runtime)
	require.NotNil(t, m.Bridge)

	// All metrics should be usable
	m.Runtime.ActorStarted("test")
	m.Bridge.Received("test")

	gatherNames(t, reg)
}

func TestBoolToStr(t *testing.T) {
	assert.Equal(t, "true", boolToStr(true))
	assert.Equal(t, "false", boolToStr(false))
}
