package deployment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topdeck-io/topdeck/internal/core/domain"
	"github.com/topdeck-io/topdeck/internal/core/topology"
)

func minimalFile() *topology.File {
	return &topology.File{
		Blueprint: &topology.Blueprint{
			Name: "test app",
			Services: map[string]*topology.Service{
				"web": {Component: domain.Selector{ResourceType: "application"}},
			},
		},
		Environment: &topology.EnvironmentConfig{
			Providers: map[string]*topology.ProviderConfig{
				"docker": {Vendor: "docker"},
			},
		},
	}
}

func TestNew(t *testing.T) {
	dep, err := New(minimalFile())
	require.NoError(t, err)

	assert.NotEmpty(t, dep.ID)
	assert.Equal(t, "test app", dep.Name)
	assert.Equal(t, StatusNew, dep.Status)
	assert.NotNil(t, dep.Resources)
	assert.NotNil(t, dep.Inputs)
}

func TestNewRequiresBlueprintAndEnvironment(t *testing.T) {
	f := minimalFile()
	f.Blueprint = nil
	_, err := New(f)
	assert.ErrorIs(t, err, ErrNoBlueprint)

	f = minimalFile()
	f.Environment = nil
	_, err = New(f)
	assert.ErrorIs(t, err, ErrNoEnvironment)
}

func TestParseInputs(t *testing.T) {
	in := ParseInputs(map[string]any{
		"blueprint": map[string]any{"region": "fra1"},
		"services": map[string]any{
			"web": map[string]any{"application": map[string]any{"memory": "1gb"}},
		},
		"providers": map[string]any{
			"docker": map[string]any{"compute": map[string]any{"os": "ubuntu"}},
		},
		"resources": []any{
			map[string]any{"type": "volume"},
		},
		"domain": "example.com",
	})

	assert.Equal(t, "fra1", in.Blueprint["region"])
	assert.Contains(t, in.Services, "web")
	assert.Contains(t, in.Providers, "docker")
	require.Len(t, in.Resources, 1)
	assert.Equal(t, "volume", in.Resources[0]["type"])
	assert.Equal(t, "example.com", in.Global["domain"])
}

func TestNextResourceIndex(t *testing.T) {
	dep, err := New(minimalFile())
	require.NoError(t, err)

	assert.Equal(t, domain.NumericIndex(0), dep.NextResourceIndex())

	dep.Resources["0"] = &domain.Resource{Index: "0"}
	dep.Resources["keys"] = &domain.Resource{Index: "keys"}
	assert.Equal(t, domain.NumericIndex(1), dep.NextResourceIndex())
}

func TestConstrainedToOne(t *testing.T) {
	f := minimalFile()
	f.Blueprint.Services["web"].Constraints = []map[string]any{{"count": 1}}
	f.Blueprint.Services["db"] = &topology.Service{
		Component:   domain.Selector{ResourceType: "database"},
		Constraints: []map[string]any{{"setting": "count", "value": 3}},
	}

	dep, err := New(f)
	require.NoError(t, err)

	assert.True(t, dep.ConstrainedToOne("web"))
	assert.False(t, dep.ConstrainedToOne("db"))
	assert.False(t, dep.ConstrainedToOne("missing"))
}
