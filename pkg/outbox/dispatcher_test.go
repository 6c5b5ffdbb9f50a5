package outbox

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore pops messages under a lock, mimicking disjoint skip-locked
// claims. A delivery failure puts the whole batch back, mimicking rollback.
type fakeStore struct {
	mu       sync.Mutex
	pending  []Message
	failNext error
	calls    int
}

func (s *fakeStore) ProcessBatch(ctx context.Context, limit int, deliver DeliverFunc) (int, error) {
	s.mu.Lock()
	s.calls++
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		s.mu.Unlock()
		return 0, err
	}
	n := min(limit, len(s.pending))
	batch := s.pending[:n:n]
	s.pending = s.pending[n:]
	s.mu.Unlock()

	for _, msg := range batch {
		if err := deliver(ctx, msg); err != nil {
			s.mu.Lock()
			s.pending = append(append([]Message{}, batch...), s.pending...)
			s.mu.Unlock()
			return 0, err
		}
	}
	return len(batch), nil
}

func (s *fakeStore) Stats(context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{PendingEvents: int64(len(s.pending))}, nil
}

func (s *fakeStore) CleanupPublished(context.Context, int) (int64, error) { return 0, nil }

func (s *fakeStore) remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

type fakeSink struct {
	mu        sync.Mutex
	delivered []Message
	failures  int
}

func (s *fakeSink) Deliver(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("sink unavailable")
	}
	s.delivered = append(s.delivered, msg)
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delivered)
}

func seedMessages(n int) []Message {
	msgs := make([]Message, 0, n)
	base := time.Now().UTC()
	for i := 0; i < n; i++ {
		msgs = append(msgs, Message{
			ID:            uuid.New(),
			AggregateType: "Order",
			AggregateID:   "order.created",
			EventType:     "OrderCreated",
			Payload:       []byte(`{}`),
			CreatedAt:     base.Add(time.Duration(i) * time.Millisecond),
		})
	}
	return msgs
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProcessOnceDrainsBacklog(t *testing.T) {
	store := &fakeStore{pending: seedMessages(25)}
	sink := &fakeSink{}
	d := NewDispatcher(store, sink, Config{BatchSize: 10}, discardLogger(), nil)

	total, err := d.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	assert.Equal(t, 25, sink.count())
	assert.Zero(t, store.remaining())
	// 10 + 10 + 5 + the empty claim that ends the drain.
	assert.Equal(t, 4, store.calls)
}

func TestProcessOnceKeepsClaimOrder(t *testing.T) {
	msgs := seedMessages(8)
	store := &fakeStore{pending: append([]Message(nil), msgs...)}
	sink := &fakeSink{}
	d := NewDispatcher(store, sink, Config{BatchSize: 3}, discardLogger(), nil)

	_, err := d.ProcessOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, sink.delivered, 8)
	for i, msg := range sink.delivered {
		assert.Equal(t, msgs[i].ID, msg.ID)
	}
}

func TestProcessOnceStopsOnStoreError(t *testing.T) {
	store := &fakeStore{failNext: errors.New("claim failed")}
	d := NewDispatcher(store, &fakeSink{}, Config{}, discardLogger(), nil)

	total, err := d.ProcessOnce(context.Background())
	require.Error(t, err)
	assert.Zero(t, total)
}

func TestDeliveryFailureRedelivers(t *testing.T) {
	store := &fakeStore{pending: seedMessages(3)}
	sink := &fakeSink{failures: 1}
	d := NewDispatcher(store, sink, Config{BatchSize: 10}, discardLogger(), nil)

	_, err := d.ProcessOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, 3, store.remaining(), "failed batch must return to the backlog")

	total, err := d.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 3, sink.count())
}

func TestStopInterruptsIdleSleep(t *testing.T) {
	store := &fakeStore{}
	d := NewDispatcher(store, &fakeSink{}, Config{PollInterval: time.Hour}, discardLogger(), nil)

	d.Start(context.Background())
	// Give the worker a moment to hit the empty claim and start sleeping.
	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.calls >= 1
	}, 2*time.Second, 10*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		d.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not interrupt the poll sleep")
	}
}

func TestStartIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	store := &fakeStore{}
	d := NewDispatcher(store, &fakeSink{}, Config{PollInterval: time.Hour}, log, nil)

	d.Start(context.Background())
	d.Start(context.Background())
	assert.Contains(t, buf.String(), "already running")

	d.Stop()
	d.Stop() // second Stop is a no-op
}

func TestWorkerRecoversAfterBatchError(t *testing.T) {
	store := &fakeStore{pending: seedMessages(5), failNext: errors.New("transient")}
	sink := &fakeSink{}
	d := NewDispatcher(store, sink, Config{BatchSize: 10, PollInterval: 10 * time.Millisecond}, discardLogger(), nil)

	d.Start(context.Background())
	defer d.Stop()

	require.Eventually(t, func() bool {
		return sink.count() == 5
	}, 5*time.Second, 10*time.Millisecond)
}

func TestConcurrentWorkersShareBacklog(t *testing.T) {
	store := &fakeStore{pending: seedMessages(40)}
	sink := &fakeSink{}
	d := NewDispatcher(store, sink, Config{BatchSize: 5, PollInterval: 10 * time.Millisecond, Workers: 3}, discardLogger(), nil)

	d.Start(context.Background())
	defer d.Stop()

	require.Eventually(t, func() bool {
		return sink.count() == 40
	}, 5*time.Second, 10*time.Millisecond)

	// Every message was delivered exactly once.
	seen := make(map[uuid.UUID]int)
	sink.mu.Lock()
	for _, msg := range sink.delivered {
		seen[msg.ID]++
	}
	sink.mu.Unlock()
	for id, n := range seen {
		assert.Equalf(t, 1, n, "message %s delivered %d times", id, n)
	}
}

func TestConfigNormalize(t *testing.T) {
	d := NewDispatcher(&fakeStore{}, &fakeSink{}, Config{}, discardLogger(), nil)
	assert.Equal(t, DefaultBatchSize, d.cfg.BatchSize)
	assert.Equal(t, DefaultPollInterval, d.cfg.PollInterval)
	assert.Equal(t, 1, d.cfg.Workers)
}
