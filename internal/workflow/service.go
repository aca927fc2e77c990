// Package workflow composes the placement engines with storage, events and
// policies. Every operation loads the records it needs, applies one engine
// transition, persists the result and publishes a lifecycle event.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/praxis/internal/bus"
	"github.com/opensource-finance/praxis/internal/domain"
	"github.com/opensource-finance/praxis/internal/policy"
	"github.com/opensource-finance/praxis/internal/stats"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("praxis-workflow")

// conflictRetries bounds how often an operation reloads after losing an
// optimistic-lock race.
const conflictRetries = 3

// Service runs placement operations for every tenant.
type Service struct {
	repo     domain.Repository
	bus      domain.EventBus
	stats    *stats.Service
	policies *policy.Registry
	assessor *policy.Assessor

	now   func() time.Time
	newID func() string
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the uuid generator used for new records.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// New creates a workflow service. The bus may be nil, in which case no
// events are published.
func New(repo domain.Repository, eventBus domain.EventBus, st *stats.Service, policies *policy.Registry, assessor *policy.Assessor, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		bus:      eventBus,
		stats:    st,
		policies: policies,
		assessor: assessor,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

func (s *Service) startSpan(ctx context.Context, name, tenantID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("tenant.id", tenantID))
	return tracer.Start(ctx, "workflow."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// publish sends a lifecycle event. The state change is already stored, so a
// failed publish is logged rather than returned.
func (s *Service) publish(ctx context.Context, tenantID, topic string, ev domain.LifecycleEvent) {
	if s.bus == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = s.clock()
	}
	if err := bus.PublishEvent(ctx, s.bus, tenantID, topic, ev); err != nil {
		slog.Error("failed to publish lifecycle event",
			"tenant_id", tenantID,
			"topic", topic,
			"entity", ev.Entity,
			"entity_id", ev.EntityID,
			"error", err,
		)
	}
}

// retry runs fn again while it fails with ErrConflict.
func retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= conflictRetries; attempt++ {
		if err = fn(); !errors.Is(err, domain.ErrConflict) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Debug("optimistic lock conflict, retrying", "attempt", attempt)
	}
	return err
}
