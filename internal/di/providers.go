package di

import (
	"context"
	"fmt"
	"time"

	"github.com/carlcj05/Astrozee/internal/domain/models"
	"github.com/carlcj05/Astrozee/internal/domain/repository"
	domsvc "github.com/carlcj05/Astrozee/internal/domain/service"
	"github.com/carlcj05/Astrozee/internal/handler/api"
	internalrepo "github.com/carlcj05/Astrozee/internal/repository"
	icache "github.com/carlcj05/Astrozee/internal/service/cache"
	"github.com/carlcj05/Astrozee/internal/service/ratelimit"
	"github.com/carlcj05/Astrozee/internal/services/ephemeris"
	"github.com/carlcj05/Astrozee/internal/usecase"
	pkgch "github.com/carlcj05/Astrozee/pkg/clickhouse"
	"github.com/carlcj05/Astrozee/pkg/config"
	xhttp "github.com/carlcj05/Astrozee/pkg/http"
	pkgkafka "github.com/carlcj05/Astrozee/pkg/kafka"
	applogger "github.com/carlcj05/Astrozee/pkg/logger"
	"github.com/carlcj05/Astrozee/pkg/metrics"
	"github.com/carlcj05/Astrozee/pkg/server"
)

// ProvideLogger creates the application logger from the logging section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when ClickHouse
// is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ch := cfg.ClickHouse
	client, err := pkgch.NewClient(pkgch.Config{
		Host:               ch.Host,
		Port:               ch.Port,
		Database:           ch.Database,
		User:               ch.User,
		Password:           ch.Password,
		HTTP:               ch.UseHTTP,
		DialTimeout:        ch.DialTimeout,
		ReadTimeout:        ch.ReadTimeout,
		MaxExecutionTime:   ch.MaxExecutionTime,
		AsyncInsert:        ch.AsyncInsert,
		WaitForAsyncInsert: ch.WaitForAsync,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

func chTables(cfg *config.Config) internalrepo.Tables {
	t := internalrepo.DefaultTables()
	if cfg.ClickHouse.Tables.Reports != "" {
		t.Reports = cfg.ClickHouse.Tables.Reports
	}
	if cfg.ClickHouse.Tables.Episodes != "" {
		t.Episodes = cfg.ClickHouse.Tables.Episodes
	}
	if cfg.Ephemeris.Table != "" {
		t.Ephemeris = cfg.Ephemeris.Table
	}
	return t
}

// ProvideEpisodeStore creates the ClickHouse episode store and its schema.
func ProvideEpisodeStore(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (repository.EpisodeStore, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewCHEpisodeStore(ch, cfg.ClickHouse.Database, chTables(cfg))
	store.SetLogger(l)
	if cfg.ClickHouse.InitSchema {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Init(ctx); err != nil {
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
	}
	return store, nil
}

// ProvideOracle selects the ephemeris engine. The ClickHouse table can fall
// back to the analytic engine for instants it does not cover.
func ProvideOracle(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (domsvc.PositionOracle, error) {
	switch cfg.Ephemeris.Engine {
	case ephemeris.EngineApproximate, "":
		return ephemeris.NewApproximate(), nil
	case ephemeris.EngineClickHouse:
		if ch == nil {
			return nil, fmt.Errorf("ephemeris engine %q needs a clickhouse client", cfg.Ephemeris.Engine)
		}
		table := chTables(cfg).Ephemeris
		if cfg.ClickHouse.Database != "" {
			table = cfg.ClickHouse.Database + "." + table
		}
		var oracle domsvc.PositionOracle = internalrepo.NewCHEphemeris(ch, table, cfg.Ephemeris.MaxRowGap)
		if cfg.Ephemeris.Fallback {
			oracle = ephemeris.NewFallbackOracle(oracle, ephemeris.NewApproximate(),
				ephemeris.WithFallbackHook(ephemeris.LogFallback(l)))
		}
		return oracle, nil
	default:
		return nil, fmt.Errorf("unknown ephemeris engine %q", cfg.Ephemeris.Engine)
	}
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(pkgkafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		RequiredAcks: cfg.Kafka.RequiredAcks,
		Compression:  cfg.Kafka.Compression,
		MaxAttempts:  cfg.Kafka.Producer.MaxAttempts,
		WriteTimeout: cfg.Kafka.Producer.WriteTimeout,
		ReadTimeout:  cfg.Kafka.Producer.ReadTimeout,
		BatchSize:    cfg.Kafka.Producer.BatchSize,
		BatchBytes:   cfg.Kafka.Producer.BatchBytes,
		BatchTimeout: cfg.Kafka.Producer.Linger,
		Async:        cfg.Kafka.Producer.Async,
		KeyHash:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideReportPublisher publishes reports to the reports topic.
func ProvideReportPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.ReportPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaReportPublisher(producer, cfg.Kafka.Topics.Reports)
}

// ProvideNoPublisher disables report publishing.
func ProvideNoPublisher() repository.ReportPublisher { return nil }

// AspectCatalog applies configured orb overrides to the default aspect table.
func AspectCatalog(orbs map[string]float64) (models.AspectCatalog, error) {
	defs := models.DefaultCatalog().Definitions()
	for name, orb := range orbs {
		kind, err := models.ParseAspectKind(name)
		if err != nil {
			return models.AspectCatalog{}, fmt.Errorf("engine.orbs: %w", err)
		}
		for i := range defs {
			if defs[i].Kind == kind {
				defs[i].Orb = orb
			}
		}
	}
	return models.NewAspectCatalog(defs...)
}

// ProvideTransitEngine builds the engine from the engine section.
func ProvideTransitEngine(cfg *config.Config, oracle domsvc.PositionOracle, m repository.Metrics, l *applogger.Logger) (*usecase.TransitEngine, error) {
	catalog, err := AspectCatalog(cfg.Engine.Orbs)
	if err != nil {
		return nil, err
	}
	opts := []usecase.EngineOption{
		usecase.WithAspectCatalog(catalog),
		usecase.WithMaxGapDays(cfg.Engine.MaxGapDays),
		usecase.WithBufferMonths(cfg.Engine.BufferMonths),
		usecase.WithSampleHour(cfg.Engine.SampleHourUTC),
		usecase.WithWorkers(cfg.Engine.Workers),
		usecase.WithEngineMetrics(m),
		usecase.WithEngineLogger(l),
	}
	if len(cfg.Engine.Bodies) > 0 {
		bodies := make([]models.Body, 0, len(cfg.Engine.Bodies))
		for _, name := range cfg.Engine.Bodies {
			b, err := models.ParseBody(name)
			if err != nil {
				return nil, fmt.Errorf("engine.bodies: %w", err)
			}
			bodies = append(bodies, b)
		}
		opts = append(opts, usecase.WithDefaultBodies(bodies))
	}
	return usecase.NewTransitEngine(oracle, opts...), nil
}

// ProvideReportUseCase attaches the optional store and publisher to the engine.
func ProvideReportUseCase(
	cfg *config.Config,
	engine *usecase.TransitEngine,
	store repository.EpisodeStore,
	pub repository.ReportPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.TransitReportUseCase {
	opts := []usecase.ReportOption{
		usecase.WithReportMetrics(m),
		usecase.WithReportLogger(l),
		usecase.WithComputeTimeout(cfg.Engine.ComputeTimeout),
	}
	if store != nil {
		opts = append(opts, usecase.WithEpisodeStore(store))
	}
	if pub != nil {
		opts = append(opts, usecase.WithReportPublisher(pub))
	}
	return usecase.NewTransitReportUseCase(engine, opts...)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML, or nil
// when the requests topic is not consumed.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	kc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:    cfg.Kafka.Brokers,
		GroupID:    kc.GroupID,
		Workers:    kc.Workers,
		BufferSize: kc.BufferSize,
		RetryMax:   kc.RetryMax,
		BackoffMin: kc.BackoffMin,
		BackoffMax: kc.BackoffMax,
		DLQTopic:   kc.DLQTopic,
		MinBytes:   kc.MinBytes,
		MaxBytes:   kc.MaxBytes,
	},
		pkgkafka.WithLogger(l),
		pkgkafka.WithHook(pkgkafka.RequestIDHook()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaRequestsHandler handles the compute requests topic.
func ProvideKafkaRequestsHandler(cfg *config.Config, reports *usecase.TransitReportUseCase, m repository.Metrics, l *applogger.Logger) *usecase.KafkaRequestsHandler {
	return usecase.NewKafkaRequestsHandler(cfg.Kafka.Topics.Requests, reports, m, l)
}

// ProvideResponseCache uses Redis when enabled, otherwise an in-process cache.
func ProvideResponseCache(cfg *config.Config) icache.BytesCache {
	if cfg.Cache.Redis.Enabled {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
	}
	return icache.NewTTLCache(cfg.Cache.MaxEntries)
}

// ProvideTransitsHandler creates the HTTP handler with its health checks.
func ProvideTransitsHandler(
	cfg *config.Config,
	reports *usecase.TransitReportUseCase,
	cache icache.BytesCache,
	store repository.EpisodeStore,
	l *applogger.Logger,
) *api.TransitsHandler {
	opts := []api.HandlerOption{
		api.WithHandlerLogger(l),
		api.WithRateLimiter(ratelimit.New(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)),
	}
	if cfg.Cache.TTL > 0 {
		opts = append(opts, api.WithCache(cache, cfg.Cache.TTL))
	}
	if store != nil {
		opts = append(opts, api.WithHealthCheck("clickhouse", store.Health))
	}
	if rc, ok := cache.(*icache.RedisCache); ok {
		opts = append(opts, api.WithHealthCheck("redis", rc.Ping))
	}
	return api.NewTransitsHandler(reports, opts...)
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, h *api.TransitsHandler, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithServerLogger(l),
	)
}

// ProvideApp creates the application server and registers the clients it closes.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaRequestsHandler,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	cache icache.BytesCache,
) *server.App {
	var handler pkgkafka.MessageHandler
	if consumer != nil {
		handler = kh
	}
	app := server.New(cfg, l, srv, consumer, handler)

	if ch != nil {
		app.OnShutdown("clickhouse", ch.Close)
	}
	if rc, ok := cache.(*icache.RedisCache); ok {
		app.OnShutdown("redis", rc.Close)
	}
	if producer != nil {
		app.OnShutdown("kafka producer", producer.Close)
		if cfg.Logging.Collector.Enabled {
			l.AddCollector(&applogger.CollectorConfig{
				Interval:  cfg.Logging.Collector.Interval,
				Threshold: cfg.Logging.Collector.Threshold,
				Topic:     cfg.Kafka.Topics.Diagnostics,
				Publisher: producer,
				// Debug is never collected, so this cannot feed itself.
				OnError: func(err error) { l.Debug("log collector publish failed", applogger.Error(err)) },
			})
			// Registered last so it flushes before the producer closes.
			app.OnShutdown("log collector", func() error {
				l.RemoveCollector()
				return nil
			})
		}
	}
	return app
}
