// Package policy evaluates administrator-defined CEL placement policies
// against internship facts and combines the results into a risk assessment.
package policy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/opensource-finance/praxis/internal/domain"
)

// Engine holds compiled policies and evaluates them in parallel.
type Engine struct {
	mu         sync.RWMutex
	env        *cel.Env
	compiled   map[string]*compiledPolicy
	maxWorkers int
}

type compiledPolicy struct {
	policy  *domain.Policy
	program cel.Program
}

// NewEngine creates an engine whose CEL environment declares every fact
// variable. maxWorkers bounds concurrent evaluations.
func NewEngine(maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	env, err := cel.NewEnv(
		cel.Variable("progress", cel.IntType),
		cel.Variable("status", cel.StringType),
		cel.Variable("average_score", cel.DoubleType),
		cel.Variable("days_remaining", cel.IntType),
		cel.Variable("working_hours", cel.IntType),
		cel.Variable("salary", cel.DoubleType),
		cel.Variable("has_student", cel.BoolType),
		cel.Variable("has_mentor", cel.BoolType),
		cel.Variable("contract_status", cel.StringType),
		cel.Variable("contract_fully_signed", cel.BoolType),
		cel.Variable("evaluation_count", cel.IntType),
		cel.Variable("completion_rate", cel.IntType),
		cel.Variable("average_percentage", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:        env,
		compiled:   make(map[string]*compiledPolicy),
		maxWorkers: maxWorkers,
	}, nil
}

// Validate compiles a policy without loading it.
func (e *Engine) Validate(p *domain.Policy) error {
	if p == nil {
		return fmt.Errorf("%w: policy is required", domain.ErrInvalidInput)
	}
	_, err := e.compile(p)
	return err
}

// Load compiles a policy and adds it, replacing any policy with the same ID.
// Disabled policies are removed instead.
func (e *Engine) Load(p *domain.Policy) error {
	if !p.Enabled {
		e.Unload(p.ID)
		return nil
	}
	cp, err := e.compile(p)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.compiled[p.ID] = cp
	e.mu.Unlock()
	return nil
}

// Unload removes a policy.
func (e *Engine) Unload(id string) {
	e.mu.Lock()
	delete(e.compiled, id)
	e.mu.Unlock()
}

// Reload replaces every loaded policy. On a compile error the previous set
// stays in place.
func (e *Engine) Reload(policies []*domain.Policy) error {
	next := make(map[string]*compiledPolicy, len(policies))
	for _, p := range policies {
		if !p.Enabled {
			continue
		}
		cp, err := e.compile(p)
		if err != nil {
			return err
		}
		next[p.ID] = cp
	}

	e.mu.Lock()
	e.compiled = next
	e.mu.Unlock()
	return nil
}

// Count returns the number of loaded policies.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

// Loaded returns the loaded policies ordered by ID.
func (e *Engine) Loaded() []*domain.Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*domain.Policy, 0, len(e.compiled))
	for _, cp := range e.compiled {
		out = append(out, cp.policy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Evaluate runs every loaded policy against the facts. Results are ordered
// by policy ID. A policy that fails to evaluate yields an OutcomeError result.
func (e *Engine) Evaluate(ctx context.Context, f Facts) []domain.PolicyResult {
	policies := e.snapshot()
	if len(policies) == 0 {
		return nil
	}

	activation := f.activation()
	results := make([]domain.PolicyResult, len(policies))

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.maxWorkers)
	for i, cp := range policies {
		wg.Add(1)
		go func(idx int, cp *compiledPolicy) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = evaluate(ctx, cp, activation, f.InternshipID)
		}(i, cp)
	}
	wg.Wait()

	return results
}

// Close drops every loaded policy.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiled = make(map[string]*compiledPolicy)
	return nil
}

func (e *Engine) snapshot() []*compiledPolicy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*compiledPolicy, 0, len(e.compiled))
	for _, cp := range e.compiled {
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].policy.ID < out[j].policy.ID })
	return out
}

func (e *Engine) compile(p *domain.Policy) (*compiledPolicy, error) {
	if p.ID == "" {
		return nil, fmt.Errorf("%w: policy id is required", domain.ErrInvalidInput)
	}
	if p.Expression == "" {
		return nil, fmt.Errorf("%w: policy %s has no expression", domain.ErrInvalidInput, p.ID)
	}
	if err := validateBands(p.Bands); err != nil {
		return nil, fmt.Errorf("%w: policy %s: %v", domain.ErrInvalidInput, p.ID, err)
	}

	ast, issues := e.env.Compile(p.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: failed to compile policy %s: %v", domain.ErrInvalidInput, p.ID, issues.Err())
	}

	out := ast.OutputType()
	if out != cel.BoolType && out != cel.DoubleType && out != cel.IntType {
		return nil, fmt.Errorf("%w: policy %s must return bool, int, or double, got %s", domain.ErrInvalidInput, p.ID, out)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for policy %s: %w", p.ID, err)
	}
	return &compiledPolicy{policy: p, program: program}, nil
}

func evaluate(ctx context.Context, cp *compiledPolicy, activation map[string]any, internshipID string) domain.PolicyResult {
	start := time.Now()
	res := domain.PolicyResult{
		PolicyID:     cp.policy.ID,
		InternshipID: internshipID,
		Weight:       cp.policy.Weight,
	}

	if err := ctx.Err(); err != nil {
		res.Outcome = domain.OutcomeError
		res.Reason = fmt.Sprintf("evaluation skipped: %v", err)
		return res
	}

	val, _, err := cp.program.Eval(activation)
	if err != nil {
		res.Outcome = domain.OutcomeError
		res.Reason = fmt.Sprintf("evaluation error: %v", err)
		res.ProcessMs = time.Since(start).Milliseconds()
		return res
	}

	res.Score = toScore(val)
	res.Outcome, res.Reason = matchBand(res.Score, cp.policy.Bands)
	res.ProcessMs = time.Since(start).Milliseconds()
	return res
}

func toScore(val ref.Val) float64 {
	switch v := val.(type) {
	case types.Bool:
		if v {
			return 1
		}
		return 0
	case types.Double:
		return float64(v)
	case types.Int:
		return float64(v)
	default:
		return 0
	}
}

// matchBand returns the first band with lower <= score < upper. A nil lower
// is negative infinity and a nil upper is positive infinity. Without a
// matching band the outcome is OutcomeOK.
func matchBand(score float64, bands []domain.PolicyBand) (string, string) {
	for _, b := range bands {
		lower, upper := math.Inf(-1), math.Inf(1)
		if b.LowerLimit != nil {
			lower = *b.LowerLimit
		}
		if b.UpperLimit != nil {
			upper = *b.UpperLimit
		}
		if score >= lower && score < upper {
			return b.Outcome, b.Reason
		}
	}
	return domain.OutcomeOK, "no matching band"
}

var errBandOrder = errors.New("band lower limit must be below its upper limit")

func validateBands(bands []domain.PolicyBand) error {
	for i, b := range bands {
		switch b.Outcome {
		case domain.OutcomeOK, domain.OutcomeWatch, domain.OutcomeRisk:
		default:
			return fmt.Errorf("band %d has unknown outcome %q", i, b.Outcome)
		}
		if b.LowerLimit != nil && b.UpperLimit != nil && *b.LowerLimit >= *b.UpperLimit {
			return fmt.Errorf("band %d: %w", i, errBandOrder)
		}
	}
	return nil
}
