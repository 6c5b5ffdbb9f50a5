package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/outboxlab/orderflow/internal/order/application"
	orderhttp "github.com/outboxlab/orderflow/internal/order/infrastructure/http"
	"github.com/outboxlab/orderflow/internal/order/infrastructure/memory"
	orderpg "github.com/outboxlab/orderflow/internal/order/infrastructure/postgres"
	"github.com/outboxlab/orderflow/internal/order/infrastructure/pricing"
	"github.com/outboxlab/orderflow/pkg/config"
	"github.com/outboxlab/orderflow/pkg/idempotency"
	"github.com/outboxlab/orderflow/pkg/logging"
	"github.com/outboxlab/orderflow/pkg/metrics"
	"github.com/outboxlab/orderflow/pkg/outbox"
	outboxkafka "github.com/outboxlab/orderflow/pkg/outbox/kafka"
	"github.com/outboxlab/orderflow/pkg/postgres"
	"github.com/outboxlab/orderflow/pkg/shutdown"
	"github.com/outboxlab/orderflow/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	log.Info("starting order-service",
		"env", cfg.AppEnv,
		"addr", cfg.ListenAddr(),
		"in_memory", cfg.UseInMemory,
		"embedded_dispatcher", cfg.OutboxEmbedded,
	)

	// Tracing
	if cfg.OTLPEndpoint != "" {
		tp, err := tracing.Init(ctx, "order-service", cfg.OTLPEndpoint, log)
		if err != nil {
			log.Error("otel init failed", "err", err)
			os.Exit(1)
		}
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	m := metrics.NewServerMetrics("order_service")

	// Storage
	var (
		repo application.OrderRepository
		sink application.EventSink
		pool *pgxpool.Pool
	)
	if cfg.UseInMemory {
		log.Warn("using in-memory storage, nothing survives a restart")
		repo = memory.NewRepository()
		sink = memory.NewNoopSink(log, cfg.IsDevelopment())
	} else {
		if err := postgres.Migrate(cfg.DatabaseURL, cfg.MigrationsDir, log); err != nil {
			log.Error("migrations failed", "err", err)
			os.Exit(1)
		}
		p, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("pg connect failed", "err", err)
			os.Exit(1)
		}
		defer p.Close()
		pool = p
		repo = orderpg.NewRepository(log, pool)
		sink = orderpg.NewEventSink(pool)
	}

	// Pricing
	var catalog application.PriceCatalog = pricing.DefaultCatalog()
	if cfg.PricingBaseURL != "" {
		catalog = pricing.NewClient(log, cfg.PricingBaseURL)
	}

	// Use cases & HTTP surface
	create := application.NewCreateOrder(repo, sink, application.SystemClock{}, log)
	addItem := application.NewAddItemToOrder(repo, sink, catalog, log)
	handler := orderhttp.NewHandler(log, create, addItem, m)

	r := chi.NewRouter()
	r.Mount("/", handler.Routes())
	r.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Embedded dispatcher, for single-process deployments without a
	// dedicated outbox worker.
	if cfg.OutboxEmbedded && pool != nil {
		deliver, closeSink := deliverySink(cfg, log)
		defer closeSink()

		dispatcher := outbox.NewDispatcher(
			outbox.NewPgStore(pool),
			deliver,
			outbox.Config{
				BatchSize:    cfg.OutboxBatchSize,
				PollInterval: cfg.PollInterval(),
				Workers:      cfg.OutboxWorkers,
			},
			log,
			metrics.NewDispatcherMetrics(),
		)
		dispatcher.Start(ctx)
		defer dispatcher.Stop()
	}

	// Run HTTP
	go func() {
		log.Info("http listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := shutdown.Grace(cfg.ShutdownTimeout)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("order-service shutdown complete")
}

// deliverySink picks where dispatched events go: Kafka when brokers are
// configured, the log otherwise. A Redis address adds duplicate suppression
// on event ids.
func deliverySink(cfg config.Config, log *slog.Logger) (outbox.Sink, func()) {
	closer := func() {}

	var sink outbox.Sink
	if len(cfg.KafkaBrokers) > 0 {
		ks := outboxkafka.NewSink(log, cfg.KafkaBrokers, cfg.KafkaTopic)
		closer = func() { _ = ks.Close() }
		sink = ks
	} else {
		log.Warn("no kafka brokers configured, delivering events to the log")
		sink = outbox.NewLogSink(log)
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		prev := closer
		closer = func() { prev(); _ = rdb.Close() }
		sink = idempotency.WrapSink(sink, idempotency.NewStore(rdb, cfg.DedupTTL), log)
	}
	return sink, closer
}
