package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	natsadapter "github.com/codewandler/tedge-go/adapters/nats"
	promadapter "github.com/codewandler/tedge-go/adapters/prometheus"
	"github.com/codewandler/tedge-go/core/actor"
	"github.com/codewandler/tedge-go/core/app"
)

func main() {
	configPath := flag.String("config", getEnv("CALCD_CONFIG", ""), "path to a YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("invalid config", slog.Any("error", err))
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.level()}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("calcd failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := promadapter.NewAllMetrics(reg)

	promMux := http.NewServeMux()
	promMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           promMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("serving metrics", slog.String("addr", cfg.MetricsAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	connect := natsadapter.ReuseConnection(natsadapter.ConnectURL(cfg.NATSURL))
	opts := actor.Options{
		MailboxSize: cfg.MailboxSize,
		Logger:      log,
		Metrics:     m.Runtime,
		MaxInFlight: cfg.MaxInFlight,
	}

	builders, err := agentBuilders(ctx, cfg, opts, connect, m.Bridge)
	if err != nil {
		return err
	}

	a, err := app.Run(app.Config{
		Context:         ctx,
		Log:             log,
		Metrics:         m.Runtime,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, builders...)
	if err != nil {
		return err
	}
	return a.Wait()
}

// agentBuilders wires the actors of the agent:
//
//	sensors subject -> subscriber -> router -> thermometers -> measurements publisher
//	calculator subject -> responder -> calculator server
//	convert subject -> responder -> concurrent conversion server
func agentBuilders(ctx context.Context, cfg Config, opts actor.Options, connect natsadapter.Connector, bm natsadapter.BridgeMetrics) ([]actor.ActorBuilder, error) {
	var (
		out actor.Sender[Measurement]
		err error
	)
	pubCfg := natsadapter.PublisherConfig[Measurement]{
		Connect:    connect,
		SubjectFor: func(m Measurement) string { return cfg.Subjects.Measurements + "." + m.Device },
		Log:        opts.Logger,
		Metrics:    bm,
	}
	if cfg.Subjects.Stream != "" {
		out, err = natsadapter.NewStreamPublisher(ctx, natsadapter.StreamConfig[Measurement]{
			PublisherConfig: pubCfg,
			Stream:          cfg.Subjects.Stream,
			Subjects:        []string{cfg.Subjects.Measurements + ".>"},
		})
	} else {
		out, err = natsadapter.NewPublisher(pubCfg)
	}
	if err != nil {
		return nil, err
	}

	router, thermometers, err := measurementPipeline(cfg.Workers, opts, actor.LoggingSender(out, opts.Logger))
	if err != nil {
		return nil, err
	}

	sub := natsadapter.NewSubscriberBuilder[Reading](natsadapter.SubscriberConfig{
		Connect:     connect,
		Subject:     cfg.Subjects.Sensors,
		Log:         opts.Logger,
		Metrics:     bm,
		MailboxSize: cfg.MailboxSize,
	})
	actor.ConnectSender(sub, router)

	calc := actor.NewServerActorBuilder[Operation, Update](&Calculator{}, opts)
	calcResponder := natsadapter.NewResponderBuilder[Operation, Update](natsadapter.ResponderConfig{
		Connect: connect,
		Subject: cfg.Subjects.Calculator,
		Log:     opts.Logger,
		Metrics: bm,
	}, calc)

	// identical conversions asked at the same time are computed once
	conv := actor.NewConcurrentServerActorBuilder[float64, ConversionResult](
		actor.CoalescingServer[float64, ConversionResult](conversionServer{}, func(c float64) string {
			return strconv.FormatFloat(c, 'g', -1, 64)
		}),
		opts,
	)
	convResponder := natsadapter.NewResponderBuilder[float64, ConversionResult](natsadapter.ResponderConfig{
		Connect: connect,
		Subject: cfg.Subjects.Convert,
		Log:     opts.Logger,
		Metrics: bm,
	}, conv)

	builders := append([]actor.ActorBuilder{sub}, thermometers...)
	return append(builders, calc, calcResponder, conv, convResponder), nil
}
