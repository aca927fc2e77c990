package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/opensource-finance/praxis/internal/domain"
	"go.opentelemetry.io/otel/attribute"
)

// CreateContract drafts a contract for an existing internship. Student and
// company default to the internship's.
func (s *Service) CreateContract(ctx context.Context, tenantID string, p domain.ContractParams) (c *domain.Contract, err error) {
	ctx, span := s.startSpan(ctx, "CreateContract", tenantID, attribute.String("internship.id", p.Internship.ID))
	defer func() { endSpan(span, err) }()

	if !p.Internship.IsSet() {
		return nil, domain.Invalid("contract", []string{"internship is required"})
	}
	in, err := s.repo.GetInternship(ctx, tenantID, p.Internship.ID)
	if err != nil {
		return nil, fmt.Errorf("internship %s: %w", p.Internship.ID, err)
	}
	if in.IsTerminal() {
		return nil, fmt.Errorf("%w: internship %s is %s", domain.ErrInvalidInput, in.ID, in.Status)
	}

	if p.ID == "" {
		p.ID = s.newID()
	}
	p.TenantID = tenantID
	p.Internship = p.Internship.Refresh(in.Summary())
	if !p.Student.IsSet() {
		p.Student = in.Student
	}
	if !p.Company.IsSet() {
		p.Company = in.Company
	}
	if p.StartDate == nil {
		p.StartDate = in.StartDate
	}
	if p.EndDate == nil {
		p.EndDate = in.EndDate
	}

	c = domain.NewContract(p, s.clock())
	if err := domain.Invalid("contract", c.Validate()); err != nil {
		return nil, err
	}
	if err := s.repo.SaveContract(ctx, tenantID, c); err != nil {
		return nil, err
	}

	s.publish(ctx, tenantID, domain.TopicContractCreated, contractEvent(c, "create", ""))
	return c, nil
}

// SubmitContract sends a draft out for signature.
func (s *Service) SubmitContract(ctx context.Context, tenantID, id string) (*domain.Contract, error) {
	return s.transitionContract(ctx, tenantID, id, "submit", domain.TopicContractTransition, func(c *domain.Contract) error {
		return c.SubmitForSignature(s.clock())
	})
}

// SignContract records one party's signature.
func (s *Service) SignContract(ctx context.Context, tenantID, id string, party domain.SignatureParty, signer domain.Evaluator) (*domain.Contract, error) {
	return s.transitionContract(ctx, tenantID, id, "sign:"+string(party), domain.TopicContractSigned, func(c *domain.Contract) error {
		return c.Sign(party, signer, s.clock())
	})
}

// RejectContractSignature records that a party refused to sign.
func (s *Service) RejectContractSignature(ctx context.Context, tenantID, id string, party domain.SignatureParty, signer domain.Evaluator, reason string) (*domain.Contract, error) {
	return s.transitionContract(ctx, tenantID, id, "reject_signature:"+string(party), domain.TopicContractSigned, func(c *domain.Contract) error {
		return c.RejectSignature(party, signer, reason, s.clock())
	})
}

// MarkContractCompliant flags a signed contract as checked.
func (s *Service) MarkContractCompliant(ctx context.Context, tenantID, id string) (*domain.Contract, error) {
	return s.transitionContract(ctx, tenantID, id, "compliant", domain.TopicContractTransition, func(c *domain.Contract) error {
		return c.MarkCompliant(s.clock())
	})
}

// ActivateContract puts a signed, compliant contract into force.
func (s *Service) ActivateContract(ctx context.Context, tenantID, id string) (*domain.Contract, error) {
	return s.transitionContract(ctx, tenantID, id, "activate", domain.TopicContractTransition, func(c *domain.Contract) error {
		return c.Activate(s.clock())
	})
}

// TerminateContract ends an active contract early. A zero effective date
// means now.
func (s *Service) TerminateContract(ctx context.Context, tenantID, id, reason string, effective time.Time, noticeDays int) (*domain.Contract, error) {
	return s.transitionContract(ctx, tenantID, id, "terminate", domain.TopicContractTransition, func(c *domain.Contract) error {
		now := s.clock()
		if effective.IsZero() {
			effective = now
		}
		return c.Terminate(reason, effective, noticeDays, now)
	})
}

// CancelContract abandons a contract that never took effect.
func (s *Service) CancelContract(ctx context.Context, tenantID, id, reason string) (*domain.Contract, error) {
	return s.transitionContract(ctx, tenantID, id, "cancel", domain.TopicContractTransition, func(c *domain.Contract) error {
		return c.Cancel(reason, s.clock())
	})
}

// SweepExpiredContracts moves every active contract whose expiration date
// has passed to EXPIRED and returns how many moved. Contracts changed
// concurrently are skipped and picked up by the next sweep.
func (s *Service) SweepExpiredContracts(ctx context.Context, tenantID string) (n int, err error) {
	ctx, span := s.startSpan(ctx, "SweepExpiredContracts", tenantID)
	defer func() {
		span.SetAttributes(attribute.Int("contracts.expired", n))
		endSpan(span, err)
	}()

	now := s.clock()
	due, err := s.repo.ListContracts(ctx, tenantID, domain.ContractFilter{
		Status:        domain.ContractActive,
		ExpiresBefore: &now,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list expiring contracts: %w", err)
	}

	for _, c := range due {
		if err := c.Expire(now); err != nil {
			slog.Warn("contract not expirable", "contract_id", c.ID, "error", err)
			continue
		}
		if err := s.repo.SaveContract(ctx, tenantID, c); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				slog.Info("contract changed during sweep", "contract_id", c.ID)
				continue
			}
			return n, fmt.Errorf("failed to save contract %s: %w", c.ID, err)
		}
		n++
		s.publish(ctx, tenantID, domain.TopicContractTransition, contractEvent(c, "expire", domain.ContractActive))
	}

	if n > 0 {
		slog.Info("expired contracts swept", "tenant_id", tenantID, "count", n)
	}
	return n, nil
}

func (s *Service) transitionContract(ctx context.Context, tenantID, id, action, topic string, apply func(*domain.Contract) error) (c *domain.Contract, err error) {
	ctx, span := s.startSpan(ctx, "Contract."+action, tenantID, attribute.String("contract.id", id))
	defer func() { endSpan(span, err) }()

	var from domain.ContractStatus
	err = retry(ctx, func() error {
		c, err = s.repo.GetContract(ctx, tenantID, id)
		if err != nil {
			return err
		}
		from = c.Status
		if err := apply(c); err != nil {
			return err
		}
		return s.repo.SaveContract(ctx, tenantID, c)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, tenantID, topic, contractEvent(c, action, from))
	return c, nil
}

func contractEvent(c *domain.Contract, action string, from domain.ContractStatus) domain.LifecycleEvent {
	return domain.LifecycleEvent{
		Entity:       "contract",
		EntityID:     c.ID,
		Action:       action,
		From:         string(from),
		To:           string(c.Status),
		InternshipID: c.Internship.ID,
		Attributes: map[string]string{
			"signature_progress": strconv.Itoa(c.SignatureProgress()),
		},
	}
}
