package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opensource-finance/praxis/internal/bus"
	"github.com/opensource-finance/praxis/internal/cache"
	"github.com/opensource-finance/praxis/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invalidation struct {
	tenantID, internshipID, batchID string
}

type fakeStats struct {
	mu    sync.Mutex
	calls []invalidation
}

func (f *fakeStats) Invalidate(ctx context.Context, tenantID, internshipID, batchID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, invalidation{tenantID, internshipID, batchID})
	return nil
}

func (f *fakeStats) first() invalidation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[0]
}

func (f *fakeStats) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSweeper struct {
	runs atomic.Int32
	err  error
}

func (f *fakeSweeper) SweepExpiredContracts(ctx context.Context, tenantID string) (int, error) {
	f.runs.Add(1)
	return 2, f.err
}

func TestWorker(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()
	ctx := context.Background()

	t.Run("StartAndStop", func(t *testing.T) {
		w := NewWorker(eventBus, &fakeStats{}, &fakeSweeper{}, nil)
		require.NoError(t, w.Start(Config{TenantIDs: []string{"tenant-001", "tenant-002"}}))

		st := w.GetStats()
		assert.Equal(t, 2*len(evaluationTopics), st.SubscriptionCount)
		assert.Contains(t, st.Topics, domain.TopicEvaluationCreated)
		assert.Contains(t, st.Topics, domain.TopicEvaluationSubmitted)
		assert.Contains(t, st.Topics, domain.TopicEvaluationScored)
		assert.Contains(t, st.Topics, domain.TopicEvaluationTransition)

		require.NoError(t, w.Stop())
		assert.Equal(t, 0, w.GetStats().SubscriptionCount)
	})

	t.Run("SubmittedEvaluationInvalidatesStatistics", func(t *testing.T) {
		stats := &fakeStats{}
		w := NewWorker(eventBus, stats, nil, nil)
		require.NoError(t, w.Start(Config{TenantIDs: []string{"tenant-001"}}))
		defer w.Stop()

		require.NoError(t, bus.PublishEvent(ctx, eventBus, "tenant-001", domain.TopicEvaluationSubmitted, domain.LifecycleEvent{
			Entity:       "evaluation",
			EntityID:     "eval-1",
			Action:       "submit",
			InternshipID: "int-1",
			BatchID:      "batch-1",
		}))

		require.Eventually(t, func() bool { return stats.count() == 1 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, invalidation{"tenant-001", "int-1", "batch-1"}, stats.first())

		// Other tenants are not served.
		require.NoError(t, bus.PublishEvent(ctx, eventBus, "tenant-999", domain.TopicEvaluationSubmitted, domain.LifecycleEvent{InternshipID: "x"}))
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, 1, stats.count())
	})

	t.Run("CreatedEvaluationInvalidatesStatistics", func(t *testing.T) {
		stats := &fakeStats{}
		w := NewWorker(eventBus, stats, nil, nil)
		require.NoError(t, w.Start(Config{TenantIDs: []string{"tenant-001"}}))
		defer w.Stop()

		require.NoError(t, bus.PublishEvent(ctx, eventBus, "tenant-001", domain.TopicEvaluationCreated, domain.LifecycleEvent{
			Entity:       "evaluation",
			EntityID:     "eval-2",
			Action:       "create",
			InternshipID: "int-2",
		}))

		require.Eventually(t, func() bool { return stats.count() == 1 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, invalidation{"tenant-001", "int-2", ""}, stats.first())
	})

	t.Run("MalformedPayloadIsRejected", func(t *testing.T) {
		w := NewWorker(eventBus, &fakeStats{}, nil, nil)
		err := w.handleEvaluationEvent(ctx, &domain.Message{ID: "m1", TenantID: "t", Payload: []byte("{")})
		assert.Error(t, err)
	})
}

func TestSweepTicket(t *testing.T) {
	ctx := context.Background()
	tickets := cache.NewLRUCache(10)
	defer tickets.Close()

	sweeper := &fakeSweeper{}
	nodeA := NewWorker(nil, nil, sweeper, tickets)
	nodeB := NewWorker(nil, nil, sweeper, tickets)

	assert.True(t, nodeA.sweepTenant(ctx, "tenant-001", time.Hour))
	assert.False(t, nodeB.sweepTenant(ctx, "tenant-001", time.Hour), "ticket already taken this interval")
	assert.True(t, nodeB.sweepTenant(ctx, "tenant-002", time.Hour), "tickets are per tenant")
	assert.Equal(t, int32(2), sweeper.runs.Load())
}

func TestSweepWithoutTickets(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("db down")}
	w := NewWorker(nil, nil, sweeper, nil)

	assert.True(t, w.sweepTenant(context.Background(), "t1", time.Minute))
	assert.True(t, w.sweepTenant(context.Background(), "t1", time.Minute))
	assert.Equal(t, int32(2), sweeper.runs.Load())
}

func TestSweepLoop(t *testing.T) {
	eventBus := bus.NewChannelBus(10)
	defer eventBus.Close()

	sweeper := &fakeSweeper{}
	w := NewWorker(eventBus, &fakeStats{}, sweeper, nil)
	require.NoError(t, w.Start(Config{TenantIDs: []string{"t1"}, SweepInterval: 10 * time.Millisecond}))

	require.Eventually(t, func() bool { return sweeper.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, w.Stop())

	runs := sweeper.runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, runs, sweeper.runs.Load(), "loop stops with the worker")
}
