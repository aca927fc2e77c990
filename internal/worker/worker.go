// Package worker runs the background side of the placement service: it
// keeps cached statistics fresh as evaluations change and periodically
// expires contracts.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/praxis/internal/bus"
	"github.com/opensource-finance/praxis/internal/domain"
)

// evaluationTopics carry every evaluation change that alters statistics.
var evaluationTopics = []string{
	domain.TopicEvaluationCreated,
	domain.TopicEvaluationScored,
	domain.TopicEvaluationSubmitted,
	domain.TopicEvaluationTransition,
}

// sweepTicketKey names the per-tenant counter that elects one sweeping node.
const sweepTicketKey = "ticket:contract-sweep"

// Invalidator drops cached statistics.
type Invalidator interface {
	Invalidate(ctx context.Context, tenantID, internshipID, batchID string) error
}

// Sweeper expires overdue contracts.
type Sweeper interface {
	SweepExpiredContracts(ctx context.Context, tenantID string) (int, error)
}

// Worker subscribes to evaluation events and runs the expiry sweep.
type Worker struct {
	bus     domain.EventBus
	stats   Invalidator
	sweeper Sweeper
	tickets domain.Cache

	mu            sync.Mutex
	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs lists the tenants to serve.
	TenantIDs []string

	// SweepInterval is how often contracts are checked for expiry. Zero
	// disables the sweep.
	SweepInterval time.Duration
}

// NewWorker creates a worker. tickets may be nil, in which case every node
// sweeps on every tick.
func NewWorker(eventBus domain.EventBus, st Invalidator, sweeper Sweeper, tickets domain.Cache) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:     eventBus,
		stats:   st,
		sweeper: sweeper,
		tickets: tickets,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start subscribes for every tenant and launches the sweep loop.
func (w *Worker) Start(cfg Config) error {
	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenant(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	if cfg.SweepInterval > 0 && w.sweeper != nil && len(cfg.TenantIDs) > 0 {
		w.wg.Add(1)
		go w.sweepLoop(cfg.TenantIDs, cfg.SweepInterval)
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
		"sweep_interval", cfg.SweepInterval.String(),
	)
	return nil
}

func (w *Worker) startTenant(tenantID string) error {
	for _, topic := range evaluationTopics {
		sub, err := w.bus.Subscribe(w.ctx, tenantID, topic, w.handleEvaluationEvent)
		if err != nil {
			return err
		}
		w.mu.Lock()
		w.subscriptions = append(w.subscriptions, sub)
		w.mu.Unlock()

		slog.Info("tenant worker started",
			"tenant_id", tenantID,
			"topic", topic,
		)
	}
	return nil
}

// handleEvaluationEvent drops the statistics an evaluation change affects.
func (w *Worker) handleEvaluationEvent(ctx context.Context, msg *domain.Message) error {
	ev, err := bus.DecodeEvent(msg)
	if err != nil {
		return err
	}

	if err := w.stats.Invalidate(ctx, msg.TenantID, ev.InternshipID, ev.BatchID); err != nil {
		return err
	}

	slog.Debug("statistics invalidated",
		"tenant_id", msg.TenantID,
		"evaluation_id", ev.EntityID,
		"internship_id", ev.InternshipID,
		"batch_id", ev.BatchID,
	)
	return nil
}

func (w *Worker) sweepLoop(tenants []string, interval time.Duration) {
	defer w.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			for _, tenantID := range tenants {
				w.sweepTenant(w.ctx, tenantID, interval)
			}
		}
	}
}

// sweepTenant expires the tenant's overdue contracts if this node wins the
// sweep ticket for the current interval. It reports whether it swept.
func (w *Worker) sweepTenant(ctx context.Context, tenantID string, interval time.Duration) bool {
	if w.tickets != nil {
		// The ticket lives slightly less than an interval so the next tick
		// always finds it released.
		n, err := w.tickets.IncrementCounter(ctx, tenantID, sweepTicketKey, interval*9/10)
		if err != nil {
			slog.Warn("sweep ticket unavailable", "tenant_id", tenantID, "error", err)
			return false
		}
		if n != 1 {
			return false
		}
	}

	start := time.Now()
	n, err := w.sweeper.SweepExpiredContracts(ctx, tenantID)
	if err != nil {
		slog.Error("contract sweep failed",
			"tenant_id", tenantID,
			"error", err,
		)
		return true
	}

	slog.Info("contract sweep finished",
		"tenant_id", tenantID,
		"expired", n,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return true
}

// Stop cancels the sweep loop and removes every subscription.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil
	w.mu.Unlock()

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats describes the worker's subscriptions.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
