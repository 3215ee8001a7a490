package di

import (
	"context"
	"fmt"
	"time"

	domrepo "ChartSense/internal/domain/repository"
	"ChartSense/internal/handler/api"
	"ChartSense/internal/handler/ws"
	mid "ChartSense/internal/middleware"
	internalrepo "ChartSense/internal/repository"
	transport "ChartSense/internal/service/metrics"
	"ChartSense/internal/service/ratelimit"
	"ChartSense/internal/services/advisor"
	"ChartSense/internal/services/vision"
	"ChartSense/internal/usecase"
	"ChartSense/pkg/cache"
	pkgch "ChartSense/pkg/clickhouse"
	"ChartSense/pkg/config"
	xhttp "ChartSense/pkg/http"
	pkgkafka "ChartSense/pkg/kafka"
	applogger "ChartSense/pkg/logger"
	"ChartSense/pkg/metrics"
	"ChartSense/pkg/postgres"
	"ChartSense/pkg/server"
	"ChartSense/pkg/telemetry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const initTimeout = 10 * time.Second

// ProvideLogger builds the process logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideRegistry creates the registry scraped at the metrics path.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates the pipeline recorder and the transport collectors.
func ProvideMetrics(reg *prometheus.Registry) domrepo.Metrics {
	transport.Register(reg)
	return metrics.New(reg)
}

// TierBackend is the configured tier directory. Writer is nil when the
// backend is read-only; Health is nil when there is nothing to probe.
type TierBackend struct {
	Name      string
	Directory domrepo.TierDirectory
	Writer    domrepo.TierWriter
	Health    api.HealthCheck
}

// ProvideTierBackend opens the directory selected by tiers.backend.
func ProvideTierBackend(cfg *config.Config, l *applogger.Logger) (*TierBackend, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	switch cfg.Tiers.Backend {
	case config.TierBackendRedis:
		rc, err := cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Redis.Addr),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
			cache.WithRedisPool(cfg.Redis.PoolSize, 0, cfg.Redis.DialTimeout),
			cache.WithRedisTimeouts(cfg.Redis.DialTimeout, cfg.Redis.ReadTimeout, cfg.Redis.WriteTimeout),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("redis tiers: %w", err)
		}
		dir := internalrepo.NewCacheTierDirectory(rc, cfg.Tiers.KeyPrefix)
		l.Info("tier directory: redis", applogger.String("addr", cfg.Redis.Addr))
		return &TierBackend{Name: cfg.Tiers.Backend, Directory: dir, Writer: dir, Health: rc.Ping},
			func() { _ = rc.Close() }, nil

	case config.TierBackendPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres.DSN,
			postgres.WithPool(cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns, cfg.Postgres.ConnMaxLifetime),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres tiers: %w", err)
		}
		dir := internalrepo.NewPostgresTierDirectory(db, cfg.Postgres.Table)
		if err := dir.Migrate(ctx); err != nil {
			_ = postgres.Close(db)
			return nil, nil, fmt.Errorf("postgres tiers migrate: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			_ = postgres.Close(db)
			return nil, nil, fmt.Errorf("postgres tiers: %w", err)
		}
		l.Info("tier directory: postgres", applogger.String("table", cfg.Postgres.Table))
		return &TierBackend{Name: cfg.Tiers.Backend, Directory: dir, Writer: dir, Health: sqlDB.PingContext},
			func() { _ = postgres.Close(db) }, nil

	case config.TierBackendHTTP:
		opts := []xhttp.ClientOption{
			xhttp.WithBaseURL(cfg.Subscriptions.BaseURL),
			xhttp.WithTimeout(cfg.Subscriptions.Timeout),
		}
		if cfg.Subscriptions.APIKey != "" {
			opts = append(opts, xhttp.WithHeader("Authorization", "Bearer "+cfg.Subscriptions.APIKey))
		}
		client := xhttp.NewClient(opts...)
		l.Info("tier directory: http", applogger.String("base_url", cfg.Subscriptions.BaseURL))
		return &TierBackend{Name: cfg.Tiers.Backend, Directory: internalrepo.NewHTTPTierDirectory(client)},
			func() {}, nil

	default:
		dir, err := internalrepo.NewStaticTierDirectory(cfg.Tiers.Static)
		if err != nil {
			return nil, nil, fmt.Errorf("static tiers: %w", err)
		}
		l.Info("tier directory: static", applogger.Int("users", len(cfg.Tiers.Static)))
		return &TierBackend{Name: config.TierBackendStatic, Directory: dir, Writer: dir},
			func() { _ = dir.Close() }, nil
	}
}

// ProvideClickHouseClient connects and prepares the frame events table.
// Returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithServer(cfg.ClickHouse.Host, cfg.ClickHouse.Port, cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithPool(10, 5, 0),
		pkgch.WithInsertMode(cfg.ClickHouse.UseHTTP, cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	stmts := append(
		[]string{"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database},
		internalrepo.FrameEventsSchema(frameEventsTable(cfg))...,
	)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

func frameEventsTable(cfg *config.Config) string {
	return cfg.ClickHouse.Database + "." + internalrepo.DefaultFrameEventsTable
}

// ProvideFrameEventStore returns nil when ClickHouse is disabled.
func ProvideFrameEventStore(client *pkgch.Client, cfg *config.Config, l *applogger.Logger) domrepo.FrameEventStore {
	if client == nil {
		return nil
	}
	return internalrepo.NewClickHouseFrameStore(client.DB(), frameEventsTable(cfg), l)
}

// ProvideKafkaProducer returns nil when no brokers are configured.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithProducerRegisterer(reg),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideEventPipeline buffers frame events toward Kafka. Returns nil when
// events are disabled or there is no producer.
func ProvideEventPipeline(cfg *config.Config, producer *pkgkafka.Producer, m domrepo.Metrics, l *applogger.Logger) *mid.EventPipeline {
	if producer == nil || !cfg.Events.Enabled {
		return nil
	}
	return mid.NewEventPipeline(
		internalrepo.NewKafkaFrameEventPublisher(producer, cfg.Kafka.FrameTopic),
		m,
		mid.WithEventBuffer(cfg.Events.BufferSize),
		mid.WithBatch(cfg.Events.BatchSize, cfg.Events.FlushInterval),
		mid.WithEventLogger(l),
	)
}

// ProvideKafkaConsumer subscribes to tier changes when the directory is
// writable and to frame events when a store exists. Returns nil when there
// is nothing to consume.
func ProvideKafkaConsumer(
	cfg *config.Config,
	tiers *TierBackend,
	store domrepo.FrameEventStore,
	m domrepo.Metrics,
	reg *prometheus.Registry,
	l *applogger.Logger,
) (*pkgkafka.Consumer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	var handlers []pkgkafka.MessageHandler
	if tiers.Writer != nil && cfg.Kafka.TierTopic != "" {
		handlers = append(handlers, usecase.NewTierEventsHandler(cfg.Kafka.TierTopic, tiers.Writer, m, l))
	}
	if store != nil && cfg.Kafka.FrameTopic != "" {
		handlers = append(handlers, usecase.NewFrameEventsHandler(cfg.Kafka.FrameTopic, store, m))
	}
	if len(handlers) == 0 {
		return nil, nil
	}

	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
		pkgkafka.WithConsumerRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	for _, h := range handlers {
		consumer.RegisterHandler(h)
	}
	consumer.WithConsumerHook(mid.ConsumerTracing(telemetry.Tracer(), m))
	return consumer, nil
}

// ProvideTierResolver bounds directory lookups by the pipeline tier timeout.
func ProvideTierResolver(cfg *config.Config, tiers *TierBackend, m domrepo.Metrics, l *applogger.Logger) *usecase.TierResolver {
	return usecase.NewTierResolver(tiers.Directory, cfg.Pipeline.TierTimeout, m, l)
}

// ProvideFramePipeline assembles decode, features, signal and overlay.
func ProvideFramePipeline(
	cfg *config.Config,
	tiers *usecase.TierResolver,
	events *mid.EventPipeline,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.FramePipeline {
	extractor := vision.NewExtractor(
		vision.WithSampleStep(cfg.Pipeline.SampleStep),
		vision.WithThresholds(cfg.Pipeline.CannyLow, cfg.Pipeline.CannyHigh),
		vision.WithLogger(l),
	)
	opts := []usecase.PipelineOption{
		usecase.WithTracer(telemetry.Tracer()),
		usecase.WithLogger(l),
	}
	if events != nil {
		opts = append(opts, usecase.WithEventSink(events))
	}
	return usecase.NewFramePipeline(
		vision.NewDecoder(cfg.Pipeline.MaxFrameBytes, vision.WithMaxPixels(cfg.Pipeline.MaxFramePixels)),
		extractor,
		advisor.NewEvaluator(nil, cfg.Pipeline.EmitProbability),
		tiers,
		m,
		opts...,
	)
}

// ProvideLimiter returns nil when admission limiting is disabled.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.Burst, cfg.RateLimit.Rate)
}

// ProvideStreamHandler serves the /ws endpoint.
func ProvideStreamHandler(
	cfg *config.Config,
	pipeline *usecase.FramePipeline,
	limiter *ratelimit.Limiter,
	m domrepo.Metrics,
	l *applogger.Logger,
) *ws.StreamHandler {
	opts := []ws.StreamOption{ws.WithAllowedOrigins(cfg.WebSocket.AllowedOrigins)}
	if limiter != nil {
		opts = append(opts, ws.WithLimiter(limiter))
	}
	return ws.NewStreamHandler(pipeline, ws.SessionConfig{
		ReadLimit:    cfg.WebSocket.ReadLimit,
		WriteTimeout: cfg.WebSocket.WriteTimeout,
		PongWait:     cfg.WebSocket.PongWait,
		PingInterval: cfg.WebSocket.PingInterval,
	}, m, l, opts...)
}

// ProvideHTTPServer mounts the stream, subscription check and health routes.
func ProvideHTTPServer(
	cfg *config.Config,
	stream *ws.StreamHandler,
	tiers *TierBackend,
	ch *pkgch.Client,
	reg *prometheus.Registry,
	l *applogger.Logger,
) *xhttp.Server {
	checks := map[string]api.HealthCheck{}
	if tiers.Health != nil {
		checks["tiers"] = tiers.Health
	}
	if ch != nil {
		checks["clickhouse"] = ch.Health
	}

	handlers := []xhttp.Handler{
		stream,
		api.NewSubscriptionsEchoHandler(l, tiers.Directory, cfg.Pipeline.TierTimeout),
		api.NewHealthEchoHandler(checks),
	}

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(l, handlers,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(metricsPath, reg, reg),
	)
}

// ProvideTracer installs the OTLP tracer provider when telemetry is enabled.
func ProvideTracer(cfg *config.Config, l *applogger.Logger) (telemetry.ShutdownFunc, error) {
	return telemetry.InitTracer(context.Background(), telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Insecure:    cfg.Telemetry.Insecure,
		SampleRatio: cfg.Telemetry.SampleRatio,
	}, l)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	stream *ws.StreamHandler,
	consumer *pkgkafka.Consumer,
	events *mid.EventPipeline,
	tracer telemetry.ShutdownFunc,
) *server.App {
	return server.New(cfg, l, httpServer, stream, consumer, events, tracer)
}
