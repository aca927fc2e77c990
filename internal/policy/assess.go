package policy

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/praxis/internal/domain"
)

// DefaultRiskThreshold is the combined score at which a placement is at risk.
const DefaultRiskThreshold = 0.7

// Assessor combines policy results into an Assessment.
type Assessor struct {
	Threshold float64
}

// NewAssessor creates an assessor. A non-positive threshold uses the default.
func NewAssessor(threshold float64) *Assessor {
	if threshold <= 0 {
		threshold = DefaultRiskThreshold
	}
	return &Assessor{Threshold: threshold}
}

// Assess computes the weighted mean of result scores. Weights <= 0 count
// as 1 and errored policies are left out of the mean. The placement is at
// risk when the mean reaches the threshold or any policy reports OutcomeRisk.
func (a *Assessor) Assess(tenantID, internshipID string, results []domain.PolicyResult, now time.Time) *domain.Assessment {
	as := &domain.Assessment{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		InternshipID: internshipID,
		Threshold:    a.Threshold,
		Results:      results,
		AssessedAt:   now.UTC(),
	}
	if as.Results == nil {
		as.Results = []domain.PolicyResult{}
	}

	var sum, total float64
	anyRisk := false
	for _, r := range results {
		switch r.Outcome {
		case domain.OutcomeError:
			as.Reasons = append(as.Reasons, fmt.Sprintf("%s: %s", r.PolicyID, r.Reason))
			continue
		case domain.OutcomeRisk:
			anyRisk = true
			fallthrough
		case domain.OutcomeWatch:
			if r.Reason != "" {
				as.Reasons = append(as.Reasons, r.Reason)
			}
		}

		w := r.Weight
		if w <= 0 {
			w = 1
		}
		sum += r.Score * w
		total += w
	}

	if total > 0 {
		as.Score = sum / total
	}
	as.AtRisk = anyRisk || (total > 0 && as.Score >= a.Threshold)
	return as
}
