package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ChartSense/internal/handler/ws"
	mid "ChartSense/internal/middleware"
	"ChartSense/pkg/config"
	xhttp "ChartSense/pkg/http"
	pkgkafka "ChartSense/pkg/kafka"
	applogger "ChartSense/pkg/logger"
	"ChartSense/pkg/telemetry"
)

// App encapsulates the application lifecycle. Optional parts (consumer,
// events) are nil when their backends are not configured.
type App struct {
	cfg      *config.Config
	log      *applogger.Logger
	http     *xhttp.Server
	stream   *ws.StreamHandler
	consumer *pkgkafka.Consumer
	events   *mid.EventPipeline
	tracer   telemetry.ShutdownFunc
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	stream *ws.StreamHandler,
	consumer *pkgkafka.Consumer,
	events *mid.EventPipeline,
	tracer telemetry.ShutdownFunc,
) *App {
	return &App{
		cfg:      cfg,
		log:      l,
		http:     httpServer,
		stream:   stream,
		consumer: consumer,
		events:   events,
		tracer:   tracer,
	}
}

// Run starts every component and blocks until SIGINT/SIGTERM or ctx ends.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Start launches background components and the HTTP server.
func (a *App) Start(ctx context.Context) error {
	if a.events != nil {
		a.events.Start(context.WithoutCancel(ctx))
		a.log.Info("frame events pipeline started")
	}

	if a.consumer != nil {
		if err := a.consumer.Start(context.WithoutCancel(ctx)); err != nil {
			a.log.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
	}

	if a.stream != nil {
		go a.stream.SweepLoop(ctx, time.Minute)
	}

	if err := a.http.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	a.log.Info("chartsense started",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("tiers", a.cfg.Tiers.Backend),
	)
	return nil
}

// Shutdown stops intake first, then drains sessions, events and the
// consumer. Errors are logged; the first one is returned.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")
	var first error
	keep := func(what string, err error) {
		if err == nil {
			return
		}
		a.log.Warn(what+" error", applogger.Error(err))
		if first == nil {
			first = err
		}
	}

	keep("http shutdown", a.http.Stop(ctx))
	if a.stream != nil {
		keep("session shutdown", a.stream.Shutdown(ctx))
	}
	if a.events != nil {
		keep("frame events stop", a.events.Stop(ctx))
	}
	if a.consumer != nil {
		keep("kafka consumer stop", a.consumer.Stop(ctx))
	}
	if a.tracer != nil {
		keep("tracer shutdown", a.tracer(ctx))
	}

	a.log.Info("shutdown complete")
	return first
}
