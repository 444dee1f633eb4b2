package actor

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errNotATemperature = errors.New("not a temperature")

// fahrenheit converts celsius readings. NaN readings are rejected.
type fahrenheit struct{}

func (fahrenheit) Name() string { return "fahrenheit" }

func (fahrenheit) Convert(_ context.Context, c float64) ([]float64, error) {
	if math.IsNaN(c) {
		return nil, errNotATemperature
	}
	return []float64{c*9/5 + 32}, nil
}

// announcingFahrenheit emits a marker reading before converting anything.
type announcingFahrenheit struct{ fahrenheit }

func (announcingFahrenheit) StartupMessages(context.Context) ([]float64, error) {
	return []float64{-1}, nil
}

func runConverter(t *testing.T, conv Converter[float64, float64], in []float64) []float64 {
	t.Helper()

	b := NewConvertingActorBuilder[float64, float64](conv, Options{})
	rec := NewRecordingSender[float64]()
	ConnectSender[float64](b, rec)
	tx := b.Sender()

	a, err := b.TryBuild()
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- a.Run(t.Context()) }()

	for _, c := range in {
		require.NoError(t, tx.Send(t.Context(), c))
	}
	tx.Close()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("converter should stop once its input is exhausted")
	}
	require.Equal(t, 1, rec.Closed())
	return rec.Messages()
}

func TestConvertingActor(t *testing.T) {
	got := runConverter(t, fahrenheit{}, []float64{0, 100, -40})
	require.Equal(t, []float64{32, 212, -40}, got)
}

func TestConvertingActor_failed_conversion_is_skipped(t *testing.T) {
	got := runConverter(t, fahrenheit{}, []float64{0, math.NaN(), 100})
	require.Equal(t, []float64{32, 212}, got)
}

func TestConvertingActor_startup_messages(t *testing.T) {
	got := runConverter(t, announcingFahrenheit{}, []float64{100})
	require.Equal(t, []float64{-1, 212}, got)
}

func TestConvertingActor_output_gone(t *testing.T) {
	b := NewConvertingActorBuilder[float64, float64](fahrenheit{}, Options{})
	out, rx := NewChannel[float64](1)
	rx.Close()
	ConnectSender[float64](b, out)
	tx := b.Sender()

	a, err := b.TryBuild()
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- a.Run(t.Context()) }()

	require.NoError(t, tx.Send(t.Context(), 1))
	tx.Close()
	require.NoError(t, <-done, "a dropped output peer is not an actor failure")
}
