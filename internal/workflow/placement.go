package workflow

import (
	"context"
	"fmt"
	"strconv"

	"github.com/opensource-finance/praxis/internal/domain"
	"github.com/opensource-finance/praxis/internal/policy"
	"go.opentelemetry.io/otel/attribute"
)

// contractRank orders contract states by how well they describe the
// current placement; the highest-ranked contract feeds the policies.
var contractRank = map[domain.ContractStatus]int{
	domain.ContractActive:     6,
	domain.ContractSigned:     5,
	domain.ContractPending:    4,
	domain.ContractDraft:      3,
	domain.ContractExpired:    2,
	domain.ContractTerminated: 1,
	domain.ContractCancelled:  0,
}

// AssessPlacement runs the tenant's policies against an internship, its
// contract and its evaluation statistics.
func (s *Service) AssessPlacement(ctx context.Context, tenantID, internshipID string) (as *domain.Assessment, err error) {
	ctx, span := s.startSpan(ctx, "AssessPlacement", tenantID, attribute.String("internship.id", internshipID))
	defer func() { endSpan(span, err) }()

	in, err := s.repo.GetInternship(ctx, tenantID, internshipID)
	if err != nil {
		return nil, err
	}
	contracts, err := s.repo.ListContracts(ctx, tenantID, domain.ContractFilter{InternshipID: internshipID})
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	st, err := s.stats.ForInternship(ctx, tenantID, internshipID)
	if err != nil {
		return nil, err
	}
	engine, err := s.policies.Engine(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	facts := policy.BuildFacts(in, currentContract(contracts), st, now)
	as = s.assessor.Assess(tenantID, internshipID, engine.Evaluate(ctx, facts), now)

	span.SetAttributes(
		attribute.Float64("assessment.score", as.Score),
		attribute.Bool("assessment.at_risk", as.AtRisk),
	)
	s.publish(ctx, tenantID, domain.TopicPlacementAssessed, domain.LifecycleEvent{
		Entity:       "internship",
		EntityID:     in.ID,
		Action:       "assess",
		To:           as.Label(),
		BatchID:      in.Batch.ID,
		InternshipID: in.ID,
		Attributes: map[string]string{
			"score":    strconv.FormatFloat(as.Score, 'f', 4, 64),
			"policies": strconv.Itoa(len(as.Results)),
		},
	})
	return as, nil
}

func currentContract(contracts []*domain.Contract) *domain.Contract {
	var best *domain.Contract
	for _, c := range contracts {
		if best == nil ||
			contractRank[c.Status] > contractRank[best.Status] ||
			(contractRank[c.Status] == contractRank[best.Status] && c.UpdatedAt.After(best.UpdatedAt)) {
			best = c
		}
	}
	return best
}

// SavePolicy validates and stores a policy, then reloads the tenant.
func (s *Service) SavePolicy(ctx context.Context, tenantID string, p *domain.Policy) (err error) {
	ctx, span := s.startSpan(ctx, "SavePolicy", tenantID, attribute.String("policy.id", p.ID))
	defer func() { endSpan(span, err) }()

	if p.ID == "" {
		p.ID = s.newID()
	}
	if err := s.policies.Validate(p); err != nil {
		return err
	}
	if err := s.repo.SavePolicy(ctx, tenantID, p); err != nil {
		return err
	}
	_, err = s.policies.Reload(ctx, tenantID)
	return err
}

// DeletePolicy disables a policy and reloads the tenant.
func (s *Service) DeletePolicy(ctx context.Context, tenantID, policyID string) (err error) {
	ctx, span := s.startSpan(ctx, "DeletePolicy", tenantID, attribute.String("policy.id", policyID))
	defer func() { endSpan(span, err) }()

	if err := s.repo.DeletePolicy(ctx, tenantID, policyID); err != nil {
		return err
	}
	_, err = s.policies.Reload(ctx, tenantID)
	return err
}

// ReloadPolicies rereads the tenant's policies from storage.
func (s *Service) ReloadPolicies(ctx context.Context, tenantID string) (int, error) {
	return s.policies.Reload(ctx, tenantID)
}
