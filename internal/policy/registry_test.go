package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/opensource-finance/praxis/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	stored := map[string][]*domain.Policy{
		"t1": {behindSchedule()},
		"t2": {},
	}
	loads := 0
	r, err := NewRegistry(func(ctx context.Context, tenantID string) ([]*domain.Policy, error) {
		loads++
		if tenantID == "broken" {
			return nil, errors.New("db down")
		}
		return stored[tenantID], nil
	}, 2)
	require.NoError(t, err)
	defer r.Close()
	ctx := context.Background()

	e1, err := r.Engine(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, e1.Count())

	again, err := r.Engine(ctx, "t1")
	require.NoError(t, err)
	assert.Same(t, e1, again)
	assert.Equal(t, 1, loads, "engine is cached per tenant")

	e2, err := r.Engine(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, 0, e2.Count(), "tenants do not share policies")

	stored["t2"] = []*domain.Policy{{ID: "p", Expression: "true", Enabled: true}}
	n, err := r.Reload(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	r.Forget("t1")
	_, err = r.Engine(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 4, loads)

	_, err = r.Engine(ctx, "broken")
	assert.Error(t, err)

	assert.Error(t, r.Validate(&domain.Policy{ID: "x", Expression: "nope(", Enabled: true}))
	assert.NoError(t, r.Validate(behindSchedule()))
}
