package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewandler/tedge-go/core/actor"
)

func TestCalculator(t *testing.T) {
	b := actor.NewServerActorBuilder[Operation, Update](&Calculator{}, actor.Options{})
	client, err := actor.NewClientMessageBox[Operation, Update](b)
	require.NoError(t, err)

	rt := actor.NewRuntime(actor.RuntimeOptions{Context: t.Context()})
	require.NoError(t, rt.SpawnBuilder(b))

	for _, tc := range []struct {
		op   Operation
		want Update
	}{
		{Add(5), Update{From: 0, To: 5}},
		{Multiply(3), Update{From: 5, To: 15}},
		{Operation{Reset: true}, Update{From: 15, To: 0}},
		{Operation{}, Update{From: 0, To: 0, Error: "empty operation"}},
	} {
		got, err := client.Await(t.Context(), tc.op)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	client.Close()
	require.NoError(t, rt.RunToCompletion(t.Context()))
}

func TestConversionServer(t *testing.T) {
	s := conversionServer{}
	assert.Equal(t, ConversionResult{Fahrenheit: 212}, s.Handle(t.Context(), 100))
	assert.Equal(t, ConversionResult{Fahrenheit: 32}, s.Handle(t.Context(), 0))
	assert.NotEmpty(t, s.Handle(t.Context(), -300).Error)
	assert.NotEmpty(t, s.Handle(t.Context(), math.NaN()).Error)
}

func TestMeasurementPipeline(t *testing.T) {
	rec := actor.NewRecordingSender[Measurement]()
	in, builders, err := measurementPipeline(3, actor.Options{}, rec)
	require.NoError(t, err)
	require.Len(t, builders, 3)

	rt := actor.NewRuntime(actor.RuntimeOptions{Context: t.Context()})
	for _, b := range builders {
		require.NoError(t, rt.SpawnBuilder(b))
	}

	devices := []string{"boiler", "fridge", "attic", "cellar"}
	for i := 0; i < 10; i++ {
		for _, d := range devices {
			require.NoError(t, in.Send(t.Context(), Reading{Device: d, Celsius: float64(i)}))
		}
	}
	require.NoError(t, in.Send(t.Context(), Reading{Device: "broken", Celsius: math.NaN()}))
	in.Close()

	require.NoError(t, rt.RunToCompletion(t.Context()))

	perDevice := map[string][]float64{}
	for _, m := range rec.Messages() {
		assert.Equal(t, "temperature", m.Type)
		assert.Equal(t, m.Celsius*9/5+32, m.Fahrenheit)
		perDevice[m.Device] = append(perDevice[m.Device], m.Celsius)
	}
	require.Len(t, perDevice, len(devices), "the invalid reading is skipped")
	for _, d := range devices {
		assert.Equal(t, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, perDevice[d], d)
	}
	assert.Equal(t, 4, rec.Closed(), "the pipeline and every thermometer release their handle")
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := loadConfig("")
		require.NoError(t, err)
		assert.Equal(t, defaultConfig(), cfg)
	})

	t.Run("file and env", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "calcd.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
nats_url: nats://broker:4222
workers: 4
shutdown_timeout: 3s
subjects:
  sensors: site1.sensors.>
`), 0o600))
		t.Setenv("WORKERS", "8")
		t.Setenv("LOG_LEVEL", "debug")

		cfg, err := loadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "nats://broker:4222", cfg.NATSURL)
		assert.Equal(t, 8, cfg.Workers)
		assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
		assert.Equal(t, "site1.sensors.>", cfg.Subjects.Sensors)
		assert.Equal(t, "tedge.calc", cfg.Subjects.Calculator, "unset keys keep their default")
		assert.Equal(t, "DEBUG", cfg.level().String())
	})

	t.Run("invalid", func(t *testing.T) {
		t.Setenv("WORKERS", "0")
		_, err := loadConfig("")
		require.Error(t, err)

		_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})
}
