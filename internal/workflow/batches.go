package workflow

import (
	"context"

	"github.com/opensource-finance/praxis/internal/domain"
	"go.opentelemetry.io/otel/attribute"
)

// CreateBatch validates and stores a new cohort.
func (s *Service) CreateBatch(ctx context.Context, tenantID string, p domain.BatchParams) (b *domain.Batch, err error) {
	ctx, span := s.startSpan(ctx, "CreateBatch", tenantID)
	defer func() { endSpan(span, err) }()

	if p.ID == "" {
		p.ID = s.newID()
	}
	p.TenantID = tenantID
	b = domain.NewBatch(p, s.clock())
	if err := domain.Invalid("batch", b.Validate()); err != nil {
		return nil, err
	}
	if err := s.repo.SaveBatch(ctx, tenantID, b); err != nil {
		return nil, err
	}

	s.publish(ctx, tenantID, domain.TopicBatchCreated, domain.LifecycleEvent{
		Entity:   "batch",
		EntityID: b.ID,
		Action:   "create",
		To:       string(b.Status),
		BatchID:  b.ID,
	})
	return b, nil
}

// SetBatchActive opens or closes a cohort for new assignments.
func (s *Service) SetBatchActive(ctx context.Context, tenantID, batchID string, active bool) (b *domain.Batch, err error) {
	ctx, span := s.startSpan(ctx, "SetBatchActive", tenantID,
		attribute.String("batch.id", batchID),
		attribute.Bool("batch.active", active),
	)
	defer func() { endSpan(span, err) }()

	err = retry(ctx, func() error {
		b, err = s.repo.GetBatch(ctx, tenantID, batchID)
		if err != nil {
			return err
		}
		if b.Active == active {
			return nil
		}
		b.Active = active
		b.UpdatedAt = s.clock()
		return s.repo.SaveBatch(ctx, tenantID, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}
