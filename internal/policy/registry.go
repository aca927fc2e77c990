package policy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/opensource-finance/praxis/internal/domain"
)

// Loader returns the stored policies of a tenant.
type Loader func(ctx context.Context, tenantID string) ([]*domain.Policy, error)

// Registry keeps one engine per tenant, loaded lazily from storage.
type Registry struct {
	mu         sync.Mutex
	engines    map[string]*Engine
	load       Loader
	maxWorkers int
	scratch    *Engine
}

// NewRegistry creates a registry that loads tenants with load.
func NewRegistry(load Loader, maxWorkers int) (*Registry, error) {
	scratch, err := NewEngine(1)
	if err != nil {
		return nil, err
	}
	return &Registry{
		engines:    make(map[string]*Engine),
		load:       load,
		maxWorkers: maxWorkers,
		scratch:    scratch,
	}, nil
}

// Engine returns the tenant's engine, loading its policies on first use.
func (r *Registry) Engine(ctx context.Context, tenantID string) (*Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.engines[tenantID]; ok {
		return e, nil
	}
	e, err := r.build(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	r.engines[tenantID] = e
	return e, nil
}

// Reload rereads the tenant's policies and returns how many are active.
func (r *Registry) Reload(ctx context.Context, tenantID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.build(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	r.engines[tenantID] = e
	slog.Info("policies reloaded", "tenant_id", tenantID, "count", e.Count())
	return e.Count(), nil
}

// Validate compiles a policy without loading it for any tenant.
func (r *Registry) Validate(p *domain.Policy) error {
	return r.scratch.Validate(p)
}

// Forget drops the tenant's engine so the next use reloads it.
func (r *Registry) Forget(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.engines[tenantID]; ok {
		e.Close()
		delete(r.engines, tenantID)
	}
}

// Close drops every engine.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.engines {
		e.Close()
	}
	r.engines = make(map[string]*Engine)
	return nil
}

func (r *Registry) build(ctx context.Context, tenantID string) (*Engine, error) {
	policies, err := r.load(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load policies for %s: %w", tenantID, err)
	}
	e, err := NewEngine(r.maxWorkers)
	if err != nil {
		return nil, err
	}
	if err := e.Reload(policies); err != nil {
		return nil, err
	}
	return e, nil
}
