package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Subjects struct {
	// Sensors is subscribed for raw readings, e.g. "tedge.sensors.>".
	Sensors string `yaml:"sensors"`
	// Measurements receives converted readings, one subject per device.
	Measurements string `yaml:"measurements"`
	// Stream, if set, also persists measurements in a JetStream stream.
	Stream     string `yaml:"stream"`
	Calculator string `yaml:"calculator"`
	Convert    string `yaml:"convert"`
}

type Config struct {
	NATSURL         string        `yaml:"nats_url"`
	MetricsAddr     string        `yaml:"metrics_addr"`
	LogLevel        string        `yaml:"log_level"`
	MailboxSize     int           `yaml:"mailbox_size"`
	MaxInFlight     int           `yaml:"max_in_flight"`
	Workers         int           `yaml:"workers"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Subjects        Subjects      `yaml:"subjects"`
}

func defaultConfig() Config {
	return Config{
		NATSURL:         "nats://127.0.0.1:4222",
		MetricsAddr:     ":2121",
		LogLevel:        "info",
		MailboxSize:     16,
		MaxInFlight:     0,
		Workers:         2,
		ShutdownTimeout: 10 * time.Second,
		Subjects: Subjects{
			Sensors:      "tedge.sensors.>",
			Measurements: "tedge.measurements",
			Calculator:   "tedge.calc",
			Convert:      "tedge.convert",
		},
	}
}

// loadConfig starts from the defaults, applies the YAML file at path (if
// any) and then the environment.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.NATSURL = getEnv("NATS_URL", cfg.NATSURL)
	cfg.MetricsAddr = getEnv("METRICS_ADDR", cfg.MetricsAddr)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.MailboxSize = getEnvInt("MAILBOX_SIZE", cfg.MailboxSize)
	cfg.MaxInFlight = getEnvInt("MAX_IN_FLIGHT", cfg.MaxInFlight)
	cfg.Workers = getEnvInt("WORKERS", cfg.Workers)
	cfg.Subjects.Stream = getEnv("MEASUREMENT_STREAM", cfg.Subjects.Stream)

	if cfg.Workers < 1 {
		return cfg, fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}
	return cfg, nil
}

func (c Config) level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func getEnv(key, fallback string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(getEnv(key, strconv.Itoa(fallback))))
	if err != nil {
		return fallback
	}
	return v
}
