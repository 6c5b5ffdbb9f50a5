package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

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

	if cfg.DatabaseURL == "" {
		log.Error("DATABASE_URL is required, the worker drains the outbox table")
		os.Exit(1)
	}

	log.Info("starting outbox-worker",
		"env", cfg.AppEnv,
		"batch_size", cfg.OutboxBatchSize,
		"poll_interval", cfg.PollInterval(),
		"workers", cfg.OutboxWorkers,
	)

	// Tracing
	if cfg.OTLPEndpoint != "" {
		tp, err := tracing.Init(ctx, "outbox-worker", cfg.OTLPEndpoint, log)
		if err != nil {
			log.Error("otel init failed", "err", err)
			os.Exit(1)
		}
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	// Postgres. Migrations run here too so the worker can start first;
	// golang-migrate serializes concurrent runs with an advisory lock.
	if err := postgres.Migrate(cfg.DatabaseURL, cfg.MigrationsDir, log); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	sink, closeSink := deliverySink(cfg, log)
	defer closeSink()

	dm := metrics.NewDispatcherMetrics()
	dispatcher := outbox.NewDispatcher(
		outbox.NewPgStore(pool),
		sink,
		outbox.Config{
			BatchSize:    cfg.OutboxBatchSize,
			PollInterval: cfg.PollInterval(),
			Workers:      cfg.OutboxWorkers,
		},
		log,
		dm,
	)
	dispatcher.Start(ctx)

	// Ops surface: prometheus scrape + liveness.
	r := chi.NewRouter()
	r.Handle("/metrics", metrics.Handler())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	srv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("ops listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("ops server error", "err", err)
			cancel()
		}
	}()

	go logStats(ctx, log, dispatcher, dm)
	if cfg.OutboxRetentionDays > 0 {
		go compactLoop(ctx, log, dispatcher, cfg.OutboxRetentionDays)
	}

	<-ctx.Done()

	dispatcher.Stop()

	shutdownCtx, shutdownCancel := shutdown.Grace(cfg.ShutdownTimeout)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	log.Info("outbox-worker shutdown complete")
}

func logStats(ctx context.Context, log *slog.Logger, dispatcher *outbox.Dispatcher, dm *metrics.DispatcherMetrics) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := dispatcher.Stats(ctx)
			if err != nil {
				log.Warn("outbox stats failed", "err", err)
				continue
			}
			dm.SetPendingDepth(stats.PendingEvents)
			attrs := []any{"pending", stats.PendingEvents, "published", stats.PublishedEvents}
			if stats.OldestPendingEvent != nil {
				attrs = append(attrs, "oldest_pending", stats.OldestPendingEvent.UTC())
			}
			log.Info("outbox status", attrs...)
		}
	}
}

func compactLoop(ctx context.Context, log *slog.Logger, dispatcher *outbox.Dispatcher, retentionDays int) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := dispatcher.CleanupPublished(ctx, retentionDays)
			if err != nil {
				log.Warn("outbox cleanup failed", "err", err)
				continue
			}
			if deleted > 0 {
				log.Info("outbox compacted", "deleted", deleted, "older_than_days", retentionDays)
			}
		}
	}
}

// deliverySink picks where drained events go: Kafka when brokers are
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
