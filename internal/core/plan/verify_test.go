package plan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topdeck-io/topdeck/internal/core/domain"
	"github.com/topdeck-io/topdeck/internal/core/topology"
)

func TestVerifyAccessAggregatesWarningsInOrder(t *testing.T) {
	file := baseFile(map[string]*topology.Service{
		"web": {Component: domain.Selector{ID: "docker_generic"}},
	})
	planner, _, env := newTestPlanner(t, file,
		map[string]map[string]*domain.Component{"docker": dockerCatalog()})

	env.providers["zeta"] = &fakeProvider{
		key:            "zeta",
		accessWarnings: []Warning{{Type: "NO_TOKEN", Message: "zeta credentials missing"}},
	}
	env.providers["alpha"] = &fakeProvider{
		key:            "alpha",
		accessWarnings: []Warning{{Type: "EXPIRED", Message: "alpha token expired"}},
	}

	warnings, err := planner.VerifyAccess(context.Background())
	require.NoError(t, err)

	// Findings come back grouped by provider key in sorted order.
	require.Len(t, warnings, 2)
	assert.Equal(t, "EXPIRED", warnings[0].Type)
	assert.Equal(t, "NO_TOKEN", warnings[1].Type)

	for _, key := range []string{"alpha", "docker", "zeta"} {
		assert.Equal(t, 1, env.providers[key].(*fakeProvider).accessCalls,
			"provider %q should be checked once", key)
	}
}

func TestVerifyLimitsScopesResourcesByProvider(t *testing.T) {
	file := baseFile(map[string]*topology.Service{
		"web": {Component: domain.Selector{ID: "docker_generic"}},
	})
	planner, dep, env := newTestPlanner(t, file,
		map[string]map[string]*domain.Component{"docker": dockerCatalog()})

	other := &fakeProvider{key: "other"}
	env.providers["other"] = other

	_, err := planner.Plan(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, dep.Resources)

	warnings, err := planner.VerifyLimits(context.Background())
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, 1, other.limitCalls)
	assert.Equal(t, 1, env.providers["docker"].(*fakeProvider).limitCalls)

	docker := planner.providerResources("docker")
	require.Len(t, docker, 1)
	assert.Equal(t, "web", docker[0].Service)
	assert.Empty(t, planner.providerResources("other"))
}
