package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/opensource-finance/praxis/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "praxis-test-*.db")
	require.NoError(t, err)
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestSQLiteRepository(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	tenantID := "tenant-001"
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, repo.Ping(ctx))
	})

	t.Run("SaveAndGetBatch", func(t *testing.T) {
		b := domain.NewBatch(domain.BatchParams{
			ID:                "batch-001",
			Name:              "Spring cohort",
			Code:              "SP24",
			RegistrationStart: date(2024, 1, 1),
			RegistrationEnd:   date(2024, 1, 31),
			StartDate:         date(2024, 2, 1),
			EndDate:           date(2024, 5, 31),
			MaxStudents:       2,
		}, now)

		require.NoError(t, repo.SaveBatch(ctx, tenantID, b))
		assert.Equal(t, 1, b.Version)

		got, err := repo.GetBatch(ctx, tenantID, "batch-001")
		require.NoError(t, err)
		assert.Equal(t, "SP24", got.Code)
		assert.Equal(t, tenantID, got.TenantID)
		assert.Equal(t, domain.SemesterSpring, got.Semester)
		assert.Equal(t, 1, got.Version)
		assert.True(t, got.RegistrationEnd.Equal(*b.RegistrationEnd))
	})

	t.Run("DuplicateInsertConflicts", func(t *testing.T) {
		b := domain.NewBatch(domain.BatchParams{ID: "batch-001", Name: "dup", Code: "DUP"}, now)
		err := repo.SaveBatch(ctx, tenantID, b)
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, 0, b.Version)
	})

	t.Run("OptimisticLock", func(t *testing.T) {
		first, err := repo.GetBatch(ctx, tenantID, "batch-001")
		require.NoError(t, err)
		second, err := repo.GetBatch(ctx, tenantID, "batch-001")
		require.NoError(t, err)

		require.NoError(t, first.ReserveSlot())
		require.NoError(t, repo.SaveBatch(ctx, tenantID, first))
		assert.Equal(t, 2, first.Version)

		require.NoError(t, second.ReserveSlot())
		err = repo.SaveBatch(ctx, tenantID, second)
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, 1, second.Version, "version is restored after a conflict")

		got, err := repo.GetBatch(ctx, tenantID, "batch-001")
		require.NoError(t, err)
		assert.Equal(t, 1, got.EnrolledCount)
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		_, err := repo.GetBatch(ctx, "tenant-002", "batch-001")
		assert.ErrorIs(t, err, ErrNotFound)

		batches, err := repo.ListBatches(ctx, "tenant-002")
		require.NoError(t, err)
		assert.Empty(t, batches)
	})

	t.Run("RequiresTenantID", func(t *testing.T) {
		err := repo.SaveBatch(ctx, "", &domain.Batch{ID: "x"})
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, err = repo.GetInternship(ctx, "", "x")
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, err = repo.ListEvaluations(ctx, "", domain.EvaluationFilter{})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("InternshipRoundTripKeepsReferences", func(t *testing.T) {
		in := domain.NewInternship(domain.InternshipParams{
			ID:           "int-001",
			Title:        "Backend intern",
			Description:  "APIs",
			StartDate:    date(2024, 2, 1),
			EndDate:      date(2024, 5, 31),
			WorkingHours: 40,
			Student:      domain.RefOf(domain.Student{ID: "stu-1", Name: "Ada"}),
			Company:      domain.RefTo[domain.Company]("co-1"),
			Batch:        domain.RefTo[domain.BatchSummary]("batch-001"),
		}, now)
		require.NoError(t, repo.SaveInternship(ctx, tenantID, in))

		got, err := repo.GetInternship(ctx, tenantID, "int-001")
		require.NoError(t, err)
		assert.Equal(t, domain.InternshipPending, got.Status)
		assert.Equal(t, "stu-1", got.Student.ID)
		student, ok := got.Student.Get()
		require.True(t, ok)
		assert.Equal(t, "Ada", student.Name)
		assert.Equal(t, "co-1", got.Company.ID)
		assert.False(t, got.Company.HasSnapshot())
		assert.False(t, got.Mentor.IsSet())
		assert.Equal(t, []string{}, got.Skills)

		list, err := repo.ListInternships(ctx, tenantID, domain.InternshipFilter{BatchID: "batch-001"})
		require.NoError(t, err)
		assert.Len(t, list, 1)

		list, err = repo.ListInternships(ctx, tenantID, domain.InternshipFilter{Status: domain.InternshipActive})
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("SaveAssignmentIsAtomic", func(t *testing.T) {
		in, err := repo.GetInternship(ctx, tenantID, "int-001")
		require.NoError(t, err)
		b, err := repo.GetBatch(ctx, tenantID, "batch-001")
		require.NoError(t, err)
		stale, err := repo.GetBatch(ctx, tenantID, "batch-001")
		require.NoError(t, err)

		// Someone else takes the last slot first.
		require.NoError(t, stale.ReserveSlot())
		require.NoError(t, repo.SaveBatch(ctx, tenantID, stale))

		require.NoError(t, in.Approve(now))
		require.NoError(t, b.ReserveSlot())
		err = repo.SaveAssignment(ctx, tenantID, in, b)
		assert.ErrorIs(t, err, domain.ErrConflict)

		stored, err := repo.GetInternship(ctx, tenantID, "int-001")
		require.NoError(t, err)
		assert.Equal(t, domain.InternshipPending, stored.Status, "internship write was rolled back")
		assert.Equal(t, 1, stored.Version)
		assert.Equal(t, 1, in.Version)
	})

	t.Run("ContractsByExpiry", func(t *testing.T) {
		for i, end := range []*time.Time{date(2024, 3, 1), date(2024, 9, 1)} {
			c := domain.NewContract(domain.ContractParams{
				ID:         []string{"con-1", "con-2"}[i],
				Title:      "Internship agreement",
				Internship: domain.RefTo[domain.InternshipSummary]("int-001"),
				StartDate:  date(2024, 2, 1),
				EndDate:    end,
			}, now)
			require.NoError(t, repo.SaveContract(ctx, tenantID, c))
		}

		cutoff := date(2024, 6, 1)
		list, err := repo.ListContracts(ctx, tenantID, domain.ContractFilter{ExpiresBefore: cutoff})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "con-1", list[0].ID)
		assert.Equal(t, domain.ContractDraft, list[0].Status)

		list, err = repo.ListContracts(ctx, tenantID, domain.ContractFilter{InternshipID: "int-001"})
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("EvaluationsByBatch", func(t *testing.T) {
		e := domain.NewEvaluation(domain.EvaluationParams{
			ID:         "eval-001",
			Internship: domain.RefTo[domain.InternshipSummary]("int-001"),
			Batch:      domain.RefTo[domain.BatchSummary]("batch-001"),
		}, now)
		require.NoError(t, e.SetScore(domain.CriterionTechnical, 8, now))
		require.NoError(t, repo.SaveEvaluation(ctx, tenantID, e))

		list, err := repo.ListEvaluations(ctx, tenantID, domain.EvaluationFilter{BatchID: "batch-001"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, domain.EvaluationInProgress, list[0].Status)
		require.NotNil(t, list[0].Scores.Technical)
		assert.Equal(t, 8.0, *list[0].Scores.Technical)
		assert.Equal(t, 10.0, list[0].MaxScore)
	})

	t.Run("Policies", func(t *testing.T) {
		low := 0.5
		p := &domain.Policy{
			ID:         "pol-001",
			Name:       "Behind schedule",
			Expression: "progress < 50 && days_remaining < 14",
			Bands:      []domain.PolicyBand{{LowerLimit: &low, Outcome: domain.OutcomeRisk, Reason: "late"}},
			Weight:     1,
			Enabled:    true,
		}
		require.NoError(t, repo.SavePolicy(ctx, tenantID, p))
		assert.Equal(t, "1.0.0", p.Version)

		got, err := repo.GetPolicy(ctx, tenantID, "pol-001")
		require.NoError(t, err)
		assert.Equal(t, p.Expression, got.Expression)
		require.Len(t, got.Bands, 1)
		assert.Equal(t, domain.OutcomeRisk, got.Bands[0].Outcome)

		list, err := repo.ListPolicies(ctx, tenantID)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		require.NoError(t, repo.DeletePolicy(ctx, tenantID, "pol-001"))
		_, err = repo.GetPolicy(ctx, tenantID, "pol-001")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, repo.DeletePolicy(ctx, tenantID, "pol-001"), ErrNotFound)
	})
}

func TestInMemorySQLite(t *testing.T) {
	repo, err := New(domain.RepositoryConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	defer repo.Close()

	b := domain.NewBatch(domain.BatchParams{ID: "b1", Name: "n", Code: "c"}, time.Now())
	require.NoError(t, repo.SaveBatch(context.Background(), "t1", b))

	got, err := repo.GetBatch(context.Background(), "t1", "b1")
	require.NoError(t, err)
	assert.Equal(t, "c", got.Code)
}

func TestInMemorySQLiteKeepsOneConnection(t *testing.T) {
	repo, err := New(domain.RepositoryConfig{
		Driver:          "sqlite",
		SQLitePath:      ":memory:",
		MaxOpenConns:    8,
		MaxIdleConns:    4,
		ConnMaxLifetime: time.Millisecond,
	})
	require.NoError(t, err)
	defer repo.Close()

	assert.Equal(t, 1, repo.(*SQLRepository).db.Stats().MaxOpenConnections)

	ctx := context.Background()
	b := domain.NewBatch(domain.BatchParams{ID: "b1", Name: "n", Code: "c"}, time.Now())
	require.NoError(t, repo.SaveBatch(ctx, "t1", b))

	time.Sleep(5 * time.Millisecond)
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := repo.GetBatch(ctx, "t1", "b1")
			errs <- err
		}()
	}
	for i := 0; i < 4; i++ {
		assert.NoError(t, <-errs)
	}
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New(domain.RepositoryConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &SQLRepository{driver: "postgres"}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	lite := &SQLRepository{driver: "sqlite"}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestPostgresDSN(t *testing.T) {
	dsn := postgresDSN(domain.RepositoryConfig{PostgresUser: "praxis"})
	assert.Equal(t, "host=localhost port=5432 dbname=praxis sslmode=disable user=praxis", dsn)
}
