package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/opensource-finance/praxis/internal/domain"
	"go.opentelemetry.io/otel/attribute"
)

// ScoreUpdate carries criterion scores and an optional total override.
type ScoreUpdate struct {
	Scores map[domain.Criterion]float64
	Total  *float64
}

// CreateEvaluation opens an evaluation for an existing internship. Student
// and batch default to the internship's.
func (s *Service) CreateEvaluation(ctx context.Context, tenantID string, p domain.EvaluationParams) (e *domain.Evaluation, err error) {
	ctx, span := s.startSpan(ctx, "CreateEvaluation", tenantID, attribute.String("internship.id", p.Internship.ID))
	defer func() { endSpan(span, err) }()

	if !p.Internship.IsSet() {
		return nil, domain.Invalid("evaluation", []string{"internship is required"})
	}
	in, err := s.repo.GetInternship(ctx, tenantID, p.Internship.ID)
	if err != nil {
		return nil, fmt.Errorf("internship %s: %w", p.Internship.ID, err)
	}

	if p.ID == "" {
		p.ID = s.newID()
	}
	p.TenantID = tenantID
	p.Internship = p.Internship.Refresh(in.Summary())
	if !p.Student.IsSet() {
		p.Student = in.Student
	}
	if !p.Batch.IsSet() {
		p.Batch = in.Batch
	}

	e = domain.NewEvaluation(p, s.clock())
	if err := domain.Invalid("evaluation", e.Validate()); err != nil {
		return nil, err
	}
	if err := s.repo.SaveEvaluation(ctx, tenantID, e); err != nil {
		return nil, err
	}

	s.invalidateStats(ctx, tenantID, e)
	s.publish(ctx, tenantID, domain.TopicEvaluationCreated, evaluationEvent(e, "create", ""))
	return e, nil
}

// ScoreEvaluation applies every score in u or none of them.
func (s *Service) ScoreEvaluation(ctx context.Context, tenantID, id string, u ScoreUpdate) (*domain.Evaluation, error) {
	if len(u.Scores) == 0 && u.Total == nil {
		return nil, fmt.Errorf("%w: no scores given", domain.ErrInvalidInput)
	}
	return s.transitionEvaluation(ctx, tenantID, id, "score", domain.TopicEvaluationScored, func(e *domain.Evaluation) error {
		for c := range u.Scores {
			if parsed, ok := domain.ParseCriterion(string(c)); !ok || parsed != c {
				return fmt.Errorf("%w: unknown criterion %q", domain.ErrInvalidInput, c)
			}
		}
		now := s.clock()
		for _, c := range domain.Criteria {
			if v, ok := u.Scores[c]; ok {
				if err := e.SetScore(c, v, now); err != nil {
					return fmt.Errorf("%s: %w", c, err)
				}
			}
		}
		if u.Total != nil {
			return e.SetTotalScore(*u.Total, now)
		}
		return nil
	})
}

// SubmitEvaluation hands in a complete evaluation. Teacher and mentor
// evaluations also record their percentage on the internship.
func (s *Service) SubmitEvaluation(ctx context.Context, tenantID, id string) (*domain.Evaluation, error) {
	e, err := s.transitionEvaluation(ctx, tenantID, id, "submit", domain.TopicEvaluationSubmitted, func(e *domain.Evaluation) error {
		return e.Submit(s.clock())
	})
	if err != nil {
		return nil, err
	}

	if e.Type == domain.EvaluationTeacher || e.Type == domain.EvaluationMentor {
		_, err := s.RecordInternshipScore(ctx, tenantID, e.Internship.ID, e.Type, float64(e.Percentage))
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			slog.Error("failed to record score on internship",
				"tenant_id", tenantID,
				"evaluation_id", e.ID,
				"internship_id", e.Internship.ID,
				"error", err,
			)
		}
	}
	return e, nil
}

// ReviewEvaluation marks a submitted evaluation as reviewed.
func (s *Service) ReviewEvaluation(ctx context.Context, tenantID, id string, reviewer domain.Ref[domain.Evaluator], notes string) (*domain.Evaluation, error) {
	return s.transitionEvaluation(ctx, tenantID, id, "review", domain.TopicEvaluationTransition, func(e *domain.Evaluation) error {
		return e.Review(reviewer, notes, s.clock())
	})
}

// CloseEvaluation finalizes a submitted evaluation without review.
func (s *Service) CloseEvaluation(ctx context.Context, tenantID, id string) (*domain.Evaluation, error) {
	return s.transitionEvaluation(ctx, tenantID, id, "close", domain.TopicEvaluationTransition, func(e *domain.Evaluation) error {
		return e.Close(s.clock())
	})
}

func (s *Service) transitionEvaluation(ctx context.Context, tenantID, id, action, topic string, apply func(*domain.Evaluation) error) (e *domain.Evaluation, err error) {
	ctx, span := s.startSpan(ctx, "Evaluation."+action, tenantID, attribute.String("evaluation.id", id))
	defer func() { endSpan(span, err) }()

	var from domain.EvaluationStatus
	err = retry(ctx, func() error {
		e, err = s.repo.GetEvaluation(ctx, tenantID, id)
		if err != nil {
			return err
		}
		from = e.Status
		if err := apply(e); err != nil {
			return err
		}
		return s.repo.SaveEvaluation(ctx, tenantID, e)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx, tenantID, e)
	s.publish(ctx, tenantID, topic, evaluationEvent(e, action, from))
	return e, nil
}

// invalidateStats drops the statistics e contributes to on this node. Other
// nodes drop theirs when the lifecycle event reaches their worker.
func (s *Service) invalidateStats(ctx context.Context, tenantID string, e *domain.Evaluation) {
	if s.stats == nil {
		return
	}
	if err := s.stats.Invalidate(ctx, tenantID, e.Internship.ID, e.Batch.ID); err != nil {
		slog.Warn("failed to invalidate statistics",
			"tenant_id", tenantID,
			"evaluation_id", e.ID,
			"error", err,
		)
	}
}

func evaluationEvent(e *domain.Evaluation, action string, from domain.EvaluationStatus) domain.LifecycleEvent {
	ev := domain.LifecycleEvent{
		Entity:       "evaluation",
		EntityID:     e.ID,
		Action:       action,
		From:         string(from),
		To:           string(e.Status),
		BatchID:      e.Batch.ID,
		InternshipID: e.Internship.ID,
		Attributes:   map[string]string{"type": string(e.Type)},
	}
	if e.IsSubmitted() {
		ev.Attributes["percentage"] = strconv.Itoa(e.Percentage)
		ev.Attributes["grade"] = string(e.Grade)
	}
	return ev
}
