// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/praxis/internal/domain"
)

var (
	ErrNotFound     = domain.ErrNotFound
	ErrInvalidInput = domain.ErrInvalidInput
	ErrConflict     = domain.ErrConflict
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database lives only as long as its single connection, so
	// the pool settings are left alone.
	if !isInMemorySQLite(cfg) {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// record describes one entity row: its lookup columns plus the JSON body.
type record struct {
	table     string
	id        string
	version   *int
	columns   []string
	values    []any
	body      any
	createdAt time.Time
	updatedAt time.Time
}

// save inserts the record when its version is 0, otherwise updates it if the
// stored version still matches. The in-memory version is advanced on success
// and restored on failure.
func (r *SQLRepository) save(ctx context.Context, q execer, tenantID string, rec record) error {
	if rec.id == "" {
		return fmt.Errorf("%w: %s id is required", ErrInvalidInput, rec.table)
	}

	prev := *rec.version
	*rec.version = prev + 1

	data, err := json.Marshal(rec.body)
	if err != nil {
		*rec.version = prev
		return fmt.Errorf("failed to encode %s %s: %w", rec.table, rec.id, err)
	}

	if prev == 0 {
		err = r.insert(ctx, q, tenantID, rec, data)
	} else {
		err = r.update(ctx, q, tenantID, rec, data, prev)
	}
	if err != nil {
		*rec.version = prev
	}
	return err
}

func (r *SQLRepository) insert(ctx context.Context, q execer, tenantID string, rec record, data []byte) error {
	cols := append([]string{"id", "tenant_id"}, rec.columns...)
	cols = append(cols, "version", "data", "created_at", "updated_at")

	args := append([]any{rec.id, tenantID}, rec.values...)
	args = append(args, *rec.version, string(data), rec.createdAt, rec.updatedAt)

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		rec.table, strings.Join(cols, ", "), placeholders(len(cols)))

	_, err := q.ExecContext(ctx, r.rebind(query), args...)
	if err != nil && r.isDuplicate(err) {
		return fmt.Errorf("%w: %s %s already exists", ErrConflict, rec.table, rec.id)
	}
	return err
}

func (r *SQLRepository) isDuplicate(err error) bool {
	if r.driver == "postgres" {
		return isPostgresDuplicate(err)
	}
	return isSQLiteDuplicate(err)
}

func (r *SQLRepository) update(ctx context.Context, q execer, tenantID string, rec record, data []byte, expected int) error {
	sets := make([]string, 0, len(rec.columns)+3)
	for _, c := range rec.columns {
		sets = append(sets, c+" = ?")
	}
	sets = append(sets, "version = ?", "data = ?", "updated_at = ?")

	args := append([]any{}, rec.values...)
	args = append(args, *rec.version, string(data), rec.updatedAt, tenantID, rec.id, expected)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE tenant_id = ? AND id = ? AND version = ?",
		rec.table, strings.Join(sets, ", "))

	result, err := q.ExecContext(ctx, r.rebind(query), args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s %s is not at version %d", ErrConflict, rec.table, rec.id, expected)
	}
	return nil
}

// get loads one JSON body and its version.
func (r *SQLRepository) get(ctx context.Context, table, tenantID, id string, dst any) (int, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := "SELECT version, data FROM " + table + " WHERE tenant_id = ? AND id = ?"

	var version int
	var data string
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, id).Scan(&version, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if err := json.Unmarshal([]byte(data), dst); err != nil {
		return 0, fmt.Errorf("failed to decode %s %s: %w", table, id, err)
	}
	return version, nil
}

// list runs a filtered query and hands each row to scan.
func (r *SQLRepository) list(ctx context.Context, table, tenantID string, where []string, args []any, scan func(version int, data []byte) error) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	conds := append([]string{"tenant_id = ?"}, where...)
	query := "SELECT version, data FROM " + table +
		" WHERE " + strings.Join(conds, " AND ") +
		" ORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, r.rebind(query), append([]any{tenantID}, args...)...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var version int
		var data string
		if err := rows.Scan(&version, &data); err != nil {
			return err
		}
		if err := scan(version, []byte(data)); err != nil {
			return fmt.Errorf("failed to decode %s row: %w", table, err)
		}
	}
	return rows.Err()
}

// ─── batches ────────────────────────────────────────────────────────────────

func batchRecord(tenantID string, b *domain.Batch) record {
	b.TenantID = tenantID
	return record{
		table:     "batches",
		id:        b.ID,
		version:   &b.Version,
		columns:   []string{"code", "status"},
		values:    []any{b.Code, string(b.Status)},
		body:      b,
		createdAt: b.CreatedAt,
		updatedAt: b.UpdatedAt,
	}
}

// SaveBatch stores a batch with tenant isolation.
func (r *SQLRepository) SaveBatch(ctx context.Context, tenantID string, b *domain.Batch) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	return r.save(ctx, r.db, tenantID, batchRecord(tenantID, b))
}

// GetBatch retrieves a batch by ID with tenant isolation.
func (r *SQLRepository) GetBatch(ctx context.Context, tenantID string, batchID string) (*domain.Batch, error) {
	var b domain.Batch
	version, err := r.get(ctx, "batches", tenantID, batchID, &b)
	if err != nil {
		return nil, err
	}
	b.Version = version
	return &b, nil
}

// ListBatches retrieves all batches of a tenant.
func (r *SQLRepository) ListBatches(ctx context.Context, tenantID string) ([]*domain.Batch, error) {
	batches := []*domain.Batch{}
	err := r.list(ctx, "batches", tenantID, nil, nil, func(version int, data []byte) error {
		var b domain.Batch
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		b.Version = version
		batches = append(batches, &b)
		return nil
	})
	return batches, err
}

// ─── internships ────────────────────────────────────────────────────────────

func internshipRecord(tenantID string, in *domain.Internship) record {
	in.TenantID = tenantID
	return record{
		table:     "internships",
		id:        in.ID,
		version:   &in.Version,
		columns:   []string{"batch_id", "student_id", "status"},
		values:    []any{in.Batch.ID, in.Student.ID, string(in.Status)},
		body:      in,
		createdAt: in.CreatedAt,
		updatedAt: in.UpdatedAt,
	}
}

// SaveInternship stores an internship with tenant isolation.
func (r *SQLRepository) SaveInternship(ctx context.Context, tenantID string, in *domain.Internship) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	return r.save(ctx, r.db, tenantID, internshipRecord(tenantID, in))
}

// GetInternship retrieves an internship by ID with tenant isolation.
func (r *SQLRepository) GetInternship(ctx context.Context, tenantID string, internshipID string) (*domain.Internship, error) {
	var in domain.Internship
	version, err := r.get(ctx, "internships", tenantID, internshipID, &in)
	if err != nil {
		return nil, err
	}
	in.Version = version
	return &in, nil
}

// ListInternships retrieves internships matching filter.
func (r *SQLRepository) ListInternships(ctx context.Context, tenantID string, filter domain.InternshipFilter) ([]*domain.Internship, error) {
	var where []string
	var args []any
	if filter.BatchID != "" {
		where = append(where, "batch_id = ?")
		args = append(args, filter.BatchID)
	}
	if filter.StudentID != "" {
		where = append(where, "student_id = ?")
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	internships := []*domain.Internship{}
	err := r.list(ctx, "internships", tenantID, where, args, func(version int, data []byte) error {
		var in domain.Internship
		if err := json.Unmarshal(data, &in); err != nil {
			return err
		}
		in.Version = version
		internships = append(internships, &in)
		return nil
	})
	return internships, err
}

// SaveAssignment stores an internship and, when given, its batch in one
// transaction. Either both versions match or nothing is written.
func (r *SQLRepository) SaveAssignment(ctx context.Context, tenantID string, in *domain.Internship, b *domain.Batch) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin assignment: %w", err)
	}
	defer tx.Rollback()

	inVersion := in.Version
	if err := r.save(ctx, tx, tenantID, internshipRecord(tenantID, in)); err != nil {
		return err
	}
	if b != nil {
		if err := r.save(ctx, tx, tenantID, batchRecord(tenantID, b)); err != nil {
			in.Version = inVersion
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		in.Version = inVersion
		if b != nil {
			b.Version--
		}
		return fmt.Errorf("failed to commit assignment: %w", err)
	}
	return nil
}

// ─── contracts ──────────────────────────────────────────────────────────────

// SaveContract stores a contract with tenant isolation.
func (r *SQLRepository) SaveContract(ctx context.Context, tenantID string, c *domain.Contract) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	c.TenantID = tenantID

	var expires any
	if c.ExpirationDate != nil {
		expires = c.ExpirationDate.UTC()
	}

	return r.save(ctx, r.db, tenantID, record{
		table:     "contracts",
		id:        c.ID,
		version:   &c.Version,
		columns:   []string{"internship_id", "status", "expiration_date"},
		values:    []any{c.Internship.ID, string(c.Status), expires},
		body:      c,
		createdAt: c.CreatedAt,
		updatedAt: c.UpdatedAt,
	})
}

// GetContract retrieves a contract by ID with tenant isolation.
func (r *SQLRepository) GetContract(ctx context.Context, tenantID string, contractID string) (*domain.Contract, error) {
	var c domain.Contract
	version, err := r.get(ctx, "contracts", tenantID, contractID, &c)
	if err != nil {
		return nil, err
	}
	c.Version = version
	return &c, nil
}

// ListContracts retrieves contracts matching filter.
func (r *SQLRepository) ListContracts(ctx context.Context, tenantID string, filter domain.ContractFilter) ([]*domain.Contract, error) {
	var where []string
	var args []any
	if filter.InternshipID != "" {
		where = append(where, "internship_id = ?")
		args = append(args, filter.InternshipID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.ExpiresBefore != nil {
		where = append(where, "expiration_date IS NOT NULL", "expiration_date < ?")
		args = append(args, filter.ExpiresBefore.UTC())
	}

	contracts := []*domain.Contract{}
	err := r.list(ctx, "contracts", tenantID, where, args, func(version int, data []byte) error {
		var c domain.Contract
		if err := json.Unmarshal(data, &c); err != nil {
			return err
		}
		c.Version = version
		contracts = append(contracts, &c)
		return nil
	})
	return contracts, err
}

// ─── evaluations ────────────────────────────────────────────────────────────

// SaveEvaluation stores an evaluation with tenant isolation.
func (r *SQLRepository) SaveEvaluation(ctx context.Context, tenantID string, e *domain.Evaluation) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	e.TenantID = tenantID

	return r.save(ctx, r.db, tenantID, record{
		table:     "evaluations",
		id:        e.ID,
		version:   &e.Version,
		columns:   []string{"internship_id", "batch_id", "status"},
		values:    []any{e.Internship.ID, e.Batch.ID, string(e.Status)},
		body:      e,
		createdAt: e.CreatedAt,
		updatedAt: e.UpdatedAt,
	})
}

// GetEvaluation retrieves an evaluation by ID with tenant isolation.
func (r *SQLRepository) GetEvaluation(ctx context.Context, tenantID string, evalID string) (*domain.Evaluation, error) {
	var e domain.Evaluation
	version, err := r.get(ctx, "evaluations", tenantID, evalID, &e)
	if err != nil {
		return nil, err
	}
	e.Version = version
	return &e, nil
}

// ListEvaluations retrieves evaluations matching filter.
func (r *SQLRepository) ListEvaluations(ctx context.Context, tenantID string, filter domain.EvaluationFilter) ([]*domain.Evaluation, error) {
	var where []string
	var args []any
	if filter.InternshipID != "" {
		where = append(where, "internship_id = ?")
		args = append(args, filter.InternshipID)
	}
	if filter.BatchID != "" {
		where = append(where, "batch_id = ?")
		args = append(args, filter.BatchID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	evals := []*domain.Evaluation{}
	err := r.list(ctx, "evaluations", tenantID, where, args, func(version int, data []byte) error {
		var e domain.Evaluation
		if err := json.Unmarshal(data, &e); err != nil {
			return err
		}
		e.Version = version
		evals = append(evals, &e)
		return nil
	})
	return evals, err
}

// ─── policies ───────────────────────────────────────────────────────────────

// SavePolicy stores a placement policy version with tenant isolation.
func (r *SQLRepository) SavePolicy(ctx context.Context, tenantID string, p *domain.Policy) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if p.Version == "" {
		p.Version = "1.0.0"
	}

	bands, err := json.Marshal(p.Bands)
	if err != nil {
		return fmt.Errorf("failed to encode policy bands: %w", err)
	}

	enabled := 0
	if p.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.TenantID = tenantID

	query := `
		INSERT INTO policies (
			id, tenant_id, name, description, version, expression, bands, weight, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id, version) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			bands = excluded.bands,
			weight = excluded.weight,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		p.ID, tenantID, p.Name, p.Description,
		p.Version, p.Expression, string(bands), p.Weight, enabled,
		p.CreatedAt, p.UpdatedAt,
	)
	return err
}

const policyColumns = `id, tenant_id, name, description, version, expression, bands, weight, enabled, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row rowScanner) (*domain.Policy, error) {
	var p domain.Policy
	var description sql.NullString
	var bands string
	var enabled int

	if err := row.Scan(
		&p.ID, &p.TenantID, &p.Name, &description,
		&p.Version, &p.Expression, &bands, &p.Weight, &enabled,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	p.Description = description.String
	p.Enabled = enabled == 1
	if err := json.Unmarshal([]byte(bands), &p.Bands); err != nil {
		return nil, fmt.Errorf("failed to parse bands of policy %s: %w", p.ID, err)
	}
	return &p, nil
}

// GetPolicy retrieves the latest enabled version of a policy.
func (r *SQLRepository) GetPolicy(ctx context.Context, tenantID string, policyID string) (*domain.Policy, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT ` + policyColumns + `
		FROM policies
		WHERE tenant_id = ? AND id = ? AND enabled = 1
		ORDER BY version DESC
		LIMIT 1
	`

	p, err := scanPolicy(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, policyID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// ListPolicies retrieves all enabled policies for a tenant.
func (r *SQLRepository) ListPolicies(ctx context.Context, tenantID string) ([]*domain.Policy, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT ` + policyColumns + `
		FROM policies
		WHERE tenant_id = ? AND enabled = 1
		ORDER BY name, version
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	policies := []*domain.Policy{}
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

// DeletePolicy soft-deletes every version of a policy.
func (r *SQLRepository) DeletePolicy(ctx context.Context, tenantID string, policyID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		UPDATE policies
		SET enabled = 0, updated_at = ?
		WHERE tenant_id = ? AND id = ? AND enabled = 1
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), time.Now().UTC(), tenantID, policyID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var b strings.Builder
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
