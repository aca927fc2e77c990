package policy

import (
	"context"
	"testing"
	"time"

	"github.com/opensource-finance/praxis/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

func behindSchedule() *domain.Policy {
	return &domain.Policy{
		ID:         "behind-schedule",
		Name:       "Behind schedule",
		Expression: "status == 'ACTIVE' && progress > 50 && completion_rate < 50",
		Bands: []domain.PolicyBand{
			{UpperLimit: fptr(1), Outcome: domain.OutcomeOK},
			{LowerLimit: fptr(1), Outcome: domain.OutcomeRisk, Reason: "evaluations are lagging behind the placement"},
		},
		Weight:  1,
		Enabled: true,
	}
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(4)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestEngineLoad(t *testing.T) {
	e := newEngine(t)
	assert.Equal(t, 0, e.Count())

	require.NoError(t, e.Load(behindSchedule()))
	assert.Equal(t, 1, e.Count())

	disabled := behindSchedule()
	disabled.Enabled = false
	require.NoError(t, e.Load(disabled))
	assert.Equal(t, 0, e.Count(), "loading a disabled policy unloads it")
}

func TestEngineRejectsBadPolicies(t *testing.T) {
	e := newEngine(t)

	cases := map[string]*domain.Policy{
		"syntax":        {ID: "p", Expression: "this is not CEL !!!", Enabled: true},
		"unknown var":   {ID: "p", Expression: "amount > 10.0", Enabled: true},
		"string result": {ID: "p", Expression: "status", Enabled: true},
		"no id":         {Expression: "progress > 1", Enabled: true},
		"empty":         {ID: "p", Enabled: true},
		"bad outcome": {ID: "p", Expression: "progress > 1", Enabled: true,
			Bands: []domain.PolicyBand{{Outcome: "fail"}}},
		"inverted band": {ID: "p", Expression: "progress > 1", Enabled: true,
			Bands: []domain.PolicyBand{{LowerLimit: fptr(2), UpperLimit: fptr(1), Outcome: domain.OutcomeRisk}}},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			err := e.Validate(p)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Error(t, e.Load(p))
		})
	}
	assert.Equal(t, 0, e.Count())
}

func TestEngineReloadKeepsPreviousSetOnError(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Load(behindSchedule()))

	err := e.Reload([]*domain.Policy{{ID: "broken", Expression: "(((", Enabled: true}})
	require.Error(t, err)
	assert.Equal(t, 1, e.Count())

	require.NoError(t, e.Reload([]*domain.Policy{
		{ID: "b", Expression: "!has_mentor", Enabled: true},
		{ID: "a", Expression: "salary <= 0.0", Enabled: true},
		{ID: "c", Expression: "true", Enabled: false},
	}))
	loaded := e.Loaded()
	require.Len(t, loaded, 2)
	assert.Equal(t, "a", loaded[0].ID)
	assert.Equal(t, "b", loaded[1].ID)
}

func TestEvaluate(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Load(behindSchedule()))
	require.NoError(t, e.Load(&domain.Policy{
		ID:         "no-mentor",
		Expression: "has_mentor ? 0.0 : 0.5",
		Bands: []domain.PolicyBand{
			{LowerLimit: fptr(0.5), Outcome: domain.OutcomeWatch, Reason: "no mentor assigned"},
		},
		Weight:  2,
		Enabled: true,
	}))
	require.NoError(t, e.Load(&domain.Policy{
		ID:         "divide",
		Expression: "100 / evaluation_count",
		Enabled:    true,
	}))

	facts := Facts{
		InternshipID:   "int-1",
		Status:         "ACTIVE",
		Progress:       67,
		CompletionRate: 0,
	}
	results := e.Evaluate(context.Background(), facts)
	require.Len(t, results, 3)

	byID := map[string]domain.PolicyResult{}
	for _, r := range results {
		assert.Equal(t, "int-1", r.InternshipID)
		byID[r.PolicyID] = r
	}

	assert.Equal(t, domain.OutcomeRisk, byID["behind-schedule"].Outcome)
	assert.Equal(t, 1.0, byID["behind-schedule"].Score)

	assert.Equal(t, domain.OutcomeWatch, byID["no-mentor"].Outcome)
	assert.Equal(t, 0.5, byID["no-mentor"].Score)
	assert.Equal(t, 2.0, byID["no-mentor"].Weight)

	assert.Equal(t, domain.OutcomeError, byID["divide"].Outcome, "division by zero is an evaluation error")

	t.Run("CancelledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		for _, r := range e.Evaluate(ctx, facts) {
			assert.Equal(t, domain.OutcomeError, r.Outcome)
		}
	})

	t.Run("NoPolicies", func(t *testing.T) {
		assert.Empty(t, newEngine(t).Evaluate(context.Background(), facts))
	})
}

func TestMatchBand(t *testing.T) {
	bands := []domain.PolicyBand{
		{UpperLimit: fptr(0.3), Outcome: domain.OutcomeOK, Reason: "low"},
		{LowerLimit: fptr(0.3), UpperLimit: fptr(0.7), Outcome: domain.OutcomeWatch, Reason: "medium"},
		{LowerLimit: fptr(0.7), Outcome: domain.OutcomeRisk, Reason: "high"},
	}

	tests := []struct {
		score   float64
		outcome string
	}{
		{-1, domain.OutcomeOK},
		{0.29, domain.OutcomeOK},
		{0.3, domain.OutcomeWatch},
		{0.69, domain.OutcomeWatch},
		{0.7, domain.OutcomeRisk},
		{100, domain.OutcomeRisk},
	}
	for _, tt := range tests {
		outcome, _ := matchBand(tt.score, bands)
		assert.Equal(t, tt.outcome, outcome, "score %v", tt.score)
	}

	outcome, reason := matchBand(5, nil)
	assert.Equal(t, domain.OutcomeOK, outcome)
	assert.Equal(t, "no matching band", reason)
}

func TestBuildFacts(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC)

	in := domain.NewInternship(domain.InternshipParams{
		ID:           "int-1",
		Title:        "Data intern",
		StartDate:    &start,
		EndDate:      &end,
		WorkingHours: 20,
		Salary:       500,
		Student:      domain.RefTo[domain.Student]("stu-1"),
	}, start)
	teacher, mentor := 80.0, 90.0
	in.TeacherScore, in.MentorScore = &teacher, &mentor

	t.Run("InternshipOnly", func(t *testing.T) {
		f := BuildFacts(in, nil, nil, now)
		assert.Equal(t, "int-1", f.InternshipID)
		assert.Equal(t, 67, f.Progress)
		assert.Equal(t, 10, f.DaysRemaining)
		assert.Equal(t, "PENDING", f.Status)
		assert.Equal(t, 85.0, f.AverageScore)
		assert.True(t, f.HasStudent)
		assert.False(t, f.HasMentor)
		assert.Empty(t, f.ContractStatus)
		assert.Zero(t, f.EvaluationCount)
	})

	t.Run("WithContractAndStatistics", func(t *testing.T) {
		c := domain.NewContract(domain.ContractParams{ID: "con-1", Title: "Agreement", StartDate: &start, EndDate: &end}, start)
		pct := 72.5
		st := &domain.Statistics{Total: 4, CompletionRate: 50, AveragePercent: &pct}

		f := BuildFacts(in, c, st, now)
		assert.Equal(t, "DRAFT", f.ContractStatus)
		assert.False(t, f.ContractFullySigned)
		assert.Equal(t, 4, f.EvaluationCount)
		assert.Equal(t, 50, f.CompletionRate)
		assert.Equal(t, 72.5, f.AveragePercentage)
	})
}
