package outbox

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/outboxlab/orderflow/pkg/metrics"
)

const (
	DefaultBatchSize    = 10
	DefaultPollInterval = 5 * time.Second
)

// Config tunes the dispatcher poll loop. Zero values fall back to the
// defaults above and a single worker.
type Config struct {
	BatchSize    int
	PollInterval time.Duration
	Workers      int
}

func (c *Config) normalize() {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
}

// Dispatcher drains pending outbox rows to a Sink. Worker loops poll the
// store independently; the store's locking keeps their claims disjoint.
type Dispatcher struct {
	store   Store
	sink    Sink
	cfg     Config
	log     *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.DispatcherMetrics

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewDispatcher wires a dispatcher. m may be nil when no metrics are wanted.
func NewDispatcher(store Store, sink Sink, cfg Config, log *slog.Logger, m *metrics.DispatcherMetrics) *Dispatcher {
	cfg.normalize()
	return &Dispatcher{
		store:   store,
		sink:    sink,
		cfg:     cfg,
		log:     log,
		tracer:  otel.Tracer("outbox-dispatcher"),
		metrics: m,
	}
}

// Start launches the worker loops. On a dispatcher that is already running
// it logs a warning and does nothing.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		d.log.Warn("outbox dispatcher already running")
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	d.running = true
	d.cancel = cancel
	d.done = done
	d.mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			d.loop(runCtx, worker)
		}(i)
	}
	go func() {
		wg.Wait()
		close(done)
	}()
}

// Stop cancels the workers, interrupting any pending sleep, and waits for
// in-flight claims to finish. Safe to call repeatedly.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	cancel := d.cancel
	done := d.done
	d.running = false
	d.cancel = nil
	d.done = nil
	d.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (d *Dispatcher) loop(ctx context.Context, worker int) {
	log := d.log.With("worker", worker)
	log.Info("outbox worker started",
		"batch_size", d.cfg.BatchSize,
		"poll_interval", d.cfg.PollInterval,
	)
	for {
		if ctx.Err() != nil {
			log.Info("outbox worker stopped")
			return
		}
		processed, err := d.processBatch(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				log.Info("outbox worker stopped")
				return
			}
			log.Error("outbox batch failed", "err", err)
			if !sleepCtx(ctx, d.cfg.PollInterval) {
				log.Info("outbox worker stopped")
				return
			}
		case processed == 0:
			if !sleepCtx(ctx, d.cfg.PollInterval) {
				log.Info("outbox worker stopped")
				return
			}
		default:
			log.Debug("outbox batch published", "count", processed)
			// Rows were waiting; claim again without sleeping.
		}
	}
}

func (d *Dispatcher) processBatch(ctx context.Context) (int, error) {
	ctx, span := d.tracer.Start(ctx, "outbox.batch")
	defer span.End()

	start := time.Now()
	processed, err := d.store.ProcessBatch(ctx, d.cfg.BatchSize, d.sink.Deliver)
	if err != nil {
		d.metrics.ObserveFailure()
		return 0, err
	}
	d.metrics.ObserveBatch(processed, time.Since(start))
	return processed, nil
}

// ProcessOnce claims batches back-to-back until one comes up empty and
// returns the total number of rows published. Used by one-shot jobs and
// tests; the poll loop is never involved.
func (d *Dispatcher) ProcessOnce(ctx context.Context) (int, error) {
	total := 0
	for {
		processed, err := d.processBatch(ctx)
		if err != nil {
			return total, err
		}
		total += processed
		if processed == 0 {
			return total, nil
		}
	}
}

// Stats reports backlog counters straight from the store.
func (d *Dispatcher) Stats(ctx context.Context) (Stats, error) {
	return d.store.Stats(ctx)
}

// CleanupPublished deletes rows published more than olderThanDays ago and
// returns how many went.
func (d *Dispatcher) CleanupPublished(ctx context.Context, olderThanDays int) (int64, error) {
	return d.store.CleanupPublished(ctx, olderThanDays)
}

// sleepCtx waits out d, returning false early when ctx ends.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
