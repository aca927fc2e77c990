// Package stats serves evaluation statistics for internships and batches,
// caching the reduced result.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/praxis/internal/cache"
	"github.com/opensource-finance/praxis/internal/domain"
)

// DefaultTTL applies when the service is created without a TTL.
const DefaultTTL = 10 * time.Minute

// Service computes statistics from stored evaluations. The cache is
// optional; cache failures are logged and the statistics are recomputed.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
	ttl   time.Duration
}

// NewService creates a statistics service.
func NewService(repo domain.Repository, c domain.Cache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{repo: repo, cache: c, ttl: ttl}
}

// InternshipScope is the cache scope for one internship's evaluations.
func InternshipScope(id string) string { return "internship:" + id }

// BatchScope is the cache scope for a whole cohort.
func BatchScope(id string) string { return "batch:" + id }

// ForInternship summarizes the evaluations of one internship.
func (s *Service) ForInternship(ctx context.Context, tenantID, internshipID string) (*domain.Statistics, error) {
	if internshipID == "" {
		return nil, fmt.Errorf("%w: internship id is required", domain.ErrInvalidInput)
	}
	return s.load(ctx, tenantID, InternshipScope(internshipID), domain.EvaluationFilter{InternshipID: internshipID})
}

// ForBatch summarizes every evaluation in a batch.
func (s *Service) ForBatch(ctx context.Context, tenantID, batchID string) (*domain.Statistics, error) {
	if batchID == "" {
		return nil, fmt.Errorf("%w: batch id is required", domain.ErrInvalidInput)
	}
	return s.load(ctx, tenantID, BatchScope(batchID), domain.EvaluationFilter{BatchID: batchID})
}

// Invalidate drops the cached statistics of an internship and its batch.
// Empty ids are skipped.
func (s *Service) Invalidate(ctx context.Context, tenantID, internshipID, batchID string) error {
	if s.cache == nil {
		return nil
	}
	var scopes []string
	if internshipID != "" {
		scopes = append(scopes, InternshipScope(internshipID))
	}
	if batchID != "" {
		scopes = append(scopes, BatchScope(batchID))
	}
	for _, scope := range scopes {
		if err := s.cache.Delete(ctx, tenantID, cache.StatisticsKey(scope)); err != nil {
			return fmt.Errorf("failed to invalidate %s: %w", scope, err)
		}
	}
	return nil
}

func (s *Service) load(ctx context.Context, tenantID, scope string, filter domain.EvaluationFilter) (*domain.Statistics, error) {
	if s.cache != nil {
		st, err := s.cache.GetStatistics(ctx, tenantID, scope)
		if err != nil {
			slog.Warn("statistics cache read failed",
				"tenant_id", tenantID,
				"scope", scope,
				"error", err,
			)
		}
		if st != nil {
			return st, nil
		}
	}

	evals, err := s.repo.ListEvaluations(ctx, tenantID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations for %s: %w", scope, err)
	}
	st := domain.Summarize(evals)

	if s.cache != nil {
		if err := s.cache.SetStatistics(ctx, tenantID, scope, &st, s.ttl); err != nil {
			slog.Warn("statistics cache write failed",
				"tenant_id", tenantID,
				"scope", scope,
				"error", err,
			)
		}
	}
	return &st, nil
}
