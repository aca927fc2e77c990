package workflow

import (
	"context"
	"fmt"

	"github.com/opensource-finance/praxis/internal/domain"
	"go.opentelemetry.io/otel/attribute"
)

// Assignment names who fills an approved placement.
type Assignment struct {
	Student domain.Ref[domain.Student]
	Company domain.Ref[domain.Company]
	Mentor  *domain.Ref[domain.Mentor]
	Teacher *domain.Ref[domain.Teacher]
}

// CreateInternship records an application. When a batch is referenced it
// must exist and be active; its snapshot is refreshed on the internship.
func (s *Service) CreateInternship(ctx context.Context, tenantID string, p domain.InternshipParams) (in *domain.Internship, err error) {
	ctx, span := s.startSpan(ctx, "CreateInternship", tenantID)
	defer func() { endSpan(span, err) }()

	if p.ID == "" {
		p.ID = s.newID()
	}
	p.TenantID = tenantID

	if p.Batch.IsSet() {
		b, err := s.repo.GetBatch(ctx, tenantID, p.Batch.ID)
		if err != nil {
			return nil, fmt.Errorf("batch %s: %w", p.Batch.ID, err)
		}
		if !b.Active {
			return nil, fmt.Errorf("batch %s: %w", b.ID, domain.ErrBatchInactive)
		}
		p.Batch = p.Batch.Refresh(b.Summary())
	}

	in = domain.NewInternship(p, s.clock())
	if err := domain.Invalid("internship", in.Validate()); err != nil {
		return nil, err
	}
	if err := s.repo.SaveInternship(ctx, tenantID, in); err != nil {
		return nil, err
	}

	s.publish(ctx, tenantID, domain.TopicInternshipCreated, internshipEvent(in, "create", ""))
	return in, nil
}

// ApproveInternship moves a pending application to APPROVED.
func (s *Service) ApproveInternship(ctx context.Context, tenantID, id string) (*domain.Internship, error) {
	return s.transitionInternship(ctx, tenantID, id, "approve", func(in *domain.Internship) error {
		return in.Approve(s.clock())
	})
}

// RejectInternship closes a pending application.
func (s *Service) RejectInternship(ctx context.Context, tenantID, id, reason string) (*domain.Internship, error) {
	return s.transitionInternship(ctx, tenantID, id, "reject", func(in *domain.Internship) error {
		return in.Reject(reason, s.clock())
	})
}

// StartInternship moves an assigned placement to ACTIVE.
func (s *Service) StartInternship(ctx context.Context, tenantID, id string) (*domain.Internship, error) {
	return s.transitionInternship(ctx, tenantID, id, "start", func(in *domain.Internship) error {
		return in.Start(s.clock())
	})
}

// CompleteInternship closes an active placement successfully.
func (s *Service) CompleteInternship(ctx context.Context, tenantID, id string) (*domain.Internship, error) {
	return s.transitionInternship(ctx, tenantID, id, "complete", func(in *domain.Internship) error {
		return in.Complete(s.clock())
	})
}

// AssignSupervisors sets the mentor and/or teacher of a placement.
func (s *Service) AssignSupervisors(ctx context.Context, tenantID, id string, mentor *domain.Ref[domain.Mentor], teacher *domain.Ref[domain.Teacher]) (*domain.Internship, error) {
	return s.transitionInternship(ctx, tenantID, id, "assign_supervisors", func(in *domain.Internship) error {
		return in.AssignSupervisors(mentor, teacher, s.clock())
	})
}

// RecordInternshipScore stores the overall teacher or mentor score.
func (s *Service) RecordInternshipScore(ctx context.Context, tenantID, id string, role domain.EvaluationType, score float64) (*domain.Internship, error) {
	return s.transitionInternship(ctx, tenantID, id, "score", func(in *domain.Internship) error {
		return in.RecordScore(role, score, s.clock())
	})
}

// AssignInternship fills an approved placement. The first assignment takes
// a slot from the internship's batch; the internship and batch are stored
// together so a full batch or a lost race leaves both untouched.
func (s *Service) AssignInternship(ctx context.Context, tenantID, id string, a Assignment) (in *domain.Internship, err error) {
	ctx, span := s.startSpan(ctx, "AssignInternship", tenantID, attribute.String("internship.id", id))
	defer func() { endSpan(span, err) }()

	err = retry(ctx, func() error {
		in, err = s.repo.GetInternship(ctx, tenantID, id)
		if err != nil {
			return err
		}
		firstAssignment := in.AssignedAt == nil
		if err := in.Assign(a.Student, a.Company, a.Mentor, a.Teacher, s.clock()); err != nil {
			return err
		}

		var b *domain.Batch
		if firstAssignment && in.Batch.IsSet() {
			b, err = s.repo.GetBatch(ctx, tenantID, in.Batch.ID)
			if err != nil {
				return fmt.Errorf("batch %s: %w", in.Batch.ID, err)
			}
			if err := b.ReserveSlot(); err != nil {
				return fmt.Errorf("batch %s: %w", b.ID, err)
			}
			in.Batch = in.Batch.Refresh(b.Summary())
		}
		return s.repo.SaveAssignment(ctx, tenantID, in, b)
	})
	if err != nil {
		return nil, err
	}

	ev := internshipEvent(in, "assign", in.Status)
	ev.Attributes = map[string]string{
		"student_id": in.Student.ID,
		"company_id": in.Company.ID,
	}
	s.publish(ctx, tenantID, domain.TopicInternshipAssigned, ev)
	return in, nil
}

// CancelInternship withdraws a placement. An assigned placement gives its
// batch slot back in the same transaction.
func (s *Service) CancelInternship(ctx context.Context, tenantID, id, reason string) (in *domain.Internship, err error) {
	ctx, span := s.startSpan(ctx, "CancelInternship", tenantID, attribute.String("internship.id", id))
	defer func() { endSpan(span, err) }()

	var from domain.InternshipStatus
	err = retry(ctx, func() error {
		in, err = s.repo.GetInternship(ctx, tenantID, id)
		if err != nil {
			return err
		}
		from = in.Status
		if err := in.Cancel(reason, s.clock()); err != nil {
			return err
		}

		var b *domain.Batch
		if in.AssignedAt != nil && in.Batch.IsSet() {
			b, err = s.repo.GetBatch(ctx, tenantID, in.Batch.ID)
			if err != nil {
				return fmt.Errorf("batch %s: %w", in.Batch.ID, err)
			}
			b.ReleaseSlot()
		}
		return s.repo.SaveAssignment(ctx, tenantID, in, b)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, tenantID, domain.TopicInternshipTransition, internshipEvent(in, "cancel", from))
	return in, nil
}

// transitionInternship loads, mutates and stores one internship, retrying
// on optimistic-lock conflicts.
func (s *Service) transitionInternship(ctx context.Context, tenantID, id, action string, apply func(*domain.Internship) error) (in *domain.Internship, err error) {
	ctx, span := s.startSpan(ctx, "Internship."+action, tenantID, attribute.String("internship.id", id))
	defer func() { endSpan(span, err) }()

	var from domain.InternshipStatus
	err = retry(ctx, func() error {
		in, err = s.repo.GetInternship(ctx, tenantID, id)
		if err != nil {
			return err
		}
		from = in.Status
		if err := apply(in); err != nil {
			return err
		}
		return s.repo.SaveInternship(ctx, tenantID, in)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, tenantID, domain.TopicInternshipTransition, internshipEvent(in, action, from))
	return in, nil
}

func internshipEvent(in *domain.Internship, action string, from domain.InternshipStatus) domain.LifecycleEvent {
	return domain.LifecycleEvent{
		Entity:       "internship",
		EntityID:     in.ID,
		Action:       action,
		From:         string(from),
		To:           string(in.Status),
		BatchID:      in.Batch.ID,
		InternshipID: in.ID,
	}
}
