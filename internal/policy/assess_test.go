package policy

import (
	"testing"
	"time"

	"github.com/opensource-finance/praxis/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssess(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a := NewAssessor(0)
	require.Equal(t, DefaultRiskThreshold, a.Threshold)

	t.Run("NoResults", func(t *testing.T) {
		as := a.Assess("t1", "int-1", nil, now)
		assert.False(t, as.AtRisk)
		assert.Zero(t, as.Score)
		assert.NotNil(t, as.Results)
		assert.Equal(t, domain.AssessmentOnTrack, as.Label())
		assert.NotEmpty(t, as.ID)
		assert.Equal(t, now, as.AssessedAt)
	})

	t.Run("WeightedMean", func(t *testing.T) {
		as := a.Assess("t1", "int-1", []domain.PolicyResult{
			{PolicyID: "a", Score: 1, Weight: 3, Outcome: domain.OutcomeWatch, Reason: "late evaluations"},
			{PolicyID: "b", Score: 0, Weight: 1, Outcome: domain.OutcomeOK},
		}, now)
		assert.InDelta(t, 0.75, as.Score, 1e-9)
		assert.True(t, as.AtRisk)
		assert.Equal(t, []string{"late evaluations"}, as.Reasons)
		assert.Equal(t, domain.AssessmentAtRisk, as.Label())
	})

	t.Run("ZeroWeightCountsAsOne", func(t *testing.T) {
		as := a.Assess("t1", "int-1", []domain.PolicyResult{
			{PolicyID: "a", Score: 1, Weight: 0, Outcome: domain.OutcomeWatch},
			{PolicyID: "b", Score: 0, Weight: -2, Outcome: domain.OutcomeOK},
		}, now)
		assert.InDelta(t, 0.5, as.Score, 1e-9)
		assert.False(t, as.AtRisk)
	})

	t.Run("RiskOutcomeFlagsRegardlessOfScore", func(t *testing.T) {
		as := a.Assess("t1", "int-1", []domain.PolicyResult{
			{PolicyID: "a", Score: 0.1, Weight: 1, Outcome: domain.OutcomeRisk, Reason: "contract unsigned"},
			{PolicyID: "b", Score: 0, Weight: 5, Outcome: domain.OutcomeOK},
		}, now)
		assert.Less(t, as.Score, a.Threshold)
		assert.True(t, as.AtRisk)
		assert.Contains(t, as.Reasons, "contract unsigned")
	})

	t.Run("ErrorsAreExcluded", func(t *testing.T) {
		as := a.Assess("t1", "int-1", []domain.PolicyResult{
			{PolicyID: "broken", Score: 0, Weight: 10, Outcome: domain.OutcomeError, Reason: "evaluation error: division by zero"},
			{PolicyID: "a", Score: 0.8, Weight: 1, Outcome: domain.OutcomeWatch},
		}, now)
		assert.InDelta(t, 0.8, as.Score, 1e-9)
		assert.True(t, as.AtRisk)
		assert.Equal(t, []string{"broken: evaluation error: division by zero"}, as.Reasons)
	})

	t.Run("CustomThreshold", func(t *testing.T) {
		strict := NewAssessor(0.4)
		as := strict.Assess("t1", "int-1", []domain.PolicyResult{{PolicyID: "a", Score: 0.5, Outcome: domain.OutcomeWatch}}, now)
		assert.True(t, as.AtRisk)
		assert.Equal(t, 0.4, as.Threshold)
	})
}
