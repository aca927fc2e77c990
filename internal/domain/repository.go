// Package domain defines the placement engines, their entities and the
// interfaces of the collaborators around them.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
//
// Save methods insert a record whose Version is 0 and otherwise update it
// only if the stored version still matches, returning ErrConflict when it
// does not. On success the record's Version is advanced.
type Repository interface {
	// Batches
	SaveBatch(ctx context.Context, tenantID string, b *Batch) error
	GetBatch(ctx context.Context, tenantID string, batchID string) (*Batch, error)
	ListBatches(ctx context.Context, tenantID string) ([]*Batch, error)

	// Internships
	SaveInternship(ctx context.Context, tenantID string, in *Internship) error
	GetInternship(ctx context.Context, tenantID string, internshipID string) (*Internship, error)
	ListInternships(ctx context.Context, tenantID string, filter InternshipFilter) ([]*Internship, error)

	// SaveAssignment persists an internship together with the batch whose
	// slot it took, or with none when batch is nil, in one transaction.
	SaveAssignment(ctx context.Context, tenantID string, in *Internship, b *Batch) error

	// Contracts
	SaveContract(ctx context.Context, tenantID string, c *Contract) error
	GetContract(ctx context.Context, tenantID string, contractID string) (*Contract, error)
	ListContracts(ctx context.Context, tenantID string, filter ContractFilter) ([]*Contract, error)

	// Evaluations
	SaveEvaluation(ctx context.Context, tenantID string, e *Evaluation) error
	GetEvaluation(ctx context.Context, tenantID string, evalID string) (*Evaluation, error)
	ListEvaluations(ctx context.Context, tenantID string, filter EvaluationFilter) ([]*Evaluation, error)

	// Placement policies
	SavePolicy(ctx context.Context, tenantID string, p *Policy) error
	GetPolicy(ctx context.Context, tenantID string, policyID string) (*Policy, error)
	ListPolicies(ctx context.Context, tenantID string) ([]*Policy, error)
	DeletePolicy(ctx context.Context, tenantID string, policyID string) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// InternshipFilter narrows ListInternships. Empty fields match everything.
type InternshipFilter struct {
	BatchID   string
	StudentID string
	Status    InternshipStatus
}

// ContractFilter narrows ListContracts. ExpiresBefore keeps contracts whose
// expiration date is strictly earlier.
type ContractFilter struct {
	InternshipID  string
	Status        ContractStatus
	ExpiresBefore *time.Time
}

// EvaluationFilter narrows ListEvaluations.
type EvaluationFilter struct {
	InternshipID string
	BatchID      string
	Status       EvaluationStatus
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	SQLitePath string

	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
