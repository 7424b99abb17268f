package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topdeck-io/topdeck/internal/core/deployment"
	"github.com/topdeck-io/topdeck/internal/core/domain"
	"github.com/topdeck-io/topdeck/internal/core/plan"
	"github.com/topdeck-io/topdeck/internal/core/topology"
)

func TestCatalogDeclaredInEnvironmentWins(t *testing.T) {
	cfg := &topology.ProviderConfig{
		Vendor: "docker",
		Catalog: map[string]any{
			"application": map[string]any{
				"custom_app": map[string]any{
					"provides": []any{map[string]any{"application": "http"}},
				},
			},
		},
	}
	p := NewDockerProvider("docker", cfg, nil)

	catalog, err := p.Catalog(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	component, ok := catalog["custom_app"]
	require.True(t, ok, "declared catalog should replace the built-in one")
	assert.Equal(t, "docker", component.Provider)
	assert.Equal(t, "application", component.ResourceType)
}

func TestCatalogDefaultsWhenNoneDeclared(t *testing.T) {
	p := NewDockerProvider("docker", &topology.ProviderConfig{Vendor: "docker"}, nil)

	catalog, err := p.Catalog(context.Background())
	require.NoError(t, err)
	require.Contains(t, catalog, "docker_mysql")
	assert.Equal(t, "docker", catalog["docker_mysql"].Provider)
	assert.Equal(t, "database", catalog["docker_mysql"].ResourceType)

	component, err := p.GetComponent(context.Background(), "docker_generic")
	require.NoError(t, err)
	assert.Equal(t, "application", component.ResourceType)

	_, err = p.GetComponent(context.Background(), "missing")
	require.Error(t, err)
}

func TestGenerateTemplateDNSNames(t *testing.T) {
	dep, err := deployment.New(&topology.File{
		Blueprint: &topology.Blueprint{
			Name: "fixture",
			Services: map[string]*topology.Service{
				"web": {Component: domain.Selector{ID: "docker_generic"}},
				"db": {
					Component:   domain.Selector{ID: "docker_mysql"},
					Constraints: []map[string]any{{"count": 1}},
				},
			},
		},
		Environment: &topology.EnvironmentConfig{
			Providers: map[string]*topology.ProviderConfig{"docker": {Vendor: "docker"}},
		},
	})
	require.NoError(t, err)

	p := NewDockerProvider("docker", &topology.ProviderConfig{Vendor: "docker"}, nil)

	tests := []struct {
		name string
		req  plan.TemplateRequest
		want string
	}{
		{
			name: "numbered service instance",
			req: plan.TemplateRequest{
				Deployment: dep, ResourceType: "application",
				ServiceName: "web", Index: 2, ProviderKey: "docker",
			},
			want: "web02.topdeck.local",
		},
		{
			name: "service constrained to one instance",
			req: plan.TemplateRequest{
				Deployment: dep, ResourceType: "database",
				ServiceName: "db", Index: 1, ProviderKey: "docker",
			},
			want: "db.topdeck.local",
		},
		{
			name: "static resource without a service",
			req: plan.TemplateRequest{
				Deployment: dep, ResourceType: "user", Index: 1, ProviderKey: "docker",
			},
			want: "shareduser01.topdeck.local",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resources, err := p.GenerateTemplate(context.Background(), tt.req)
			require.NoError(t, err)
			require.Len(t, resources, 1)
			assert.Equal(t, tt.want, resources[0].DNSName)
			assert.Equal(t, domain.ResourceStatusNew, resources[0].Status)
			assert.Equal(t, "docker", resources[0].Provider)
		})
	}
}

func TestGenerateTemplateHonorsDomainSetting(t *testing.T) {
	dep, err := deployment.New(&topology.File{
		Blueprint: &topology.Blueprint{
			Name: "fixture",
			Services: map[string]*topology.Service{
				"web": {Component: domain.Selector{ID: "docker_generic"}},
			},
		},
		Environment: &topology.EnvironmentConfig{
			Providers: map[string]*topology.ProviderConfig{"docker": {Vendor: "docker"}},
		},
		Inputs: map[string]any{"domain": "example.com"},
	})
	require.NoError(t, err)

	p := NewDockerProvider("docker", &topology.ProviderConfig{Vendor: "docker"}, nil)
	resources, err := p.GenerateTemplate(context.Background(), plan.TemplateRequest{
		Deployment: dep, ResourceType: "application",
		ServiceName: "web", Index: 1, ProviderKey: "docker",
	})
	require.NoError(t, err)
	assert.Equal(t, "web01.example.com", resources[0].DNSName)
}

func TestFactoryDispatch(t *testing.T) {
	tests := []struct {
		key     string
		cfg     *topology.ProviderConfig
		wantErr bool
	}{
		{key: "docker", cfg: &topology.ProviderConfig{Vendor: "docker"}},
		{key: "cloud", cfg: &topology.ProviderConfig{Vendor: "aws"}},
		{key: "cloud", cfg: &topology.ProviderConfig{Vendor: "ec2"}},
		{key: "do", cfg: &topology.ProviderConfig{Vendor: "digitalocean"}},
		{key: "hc", cfg: &topology.ProviderConfig{Vendor: "hetzner"}},
		// Key doubles as the vendor when none is set.
		{key: "docker", cfg: &topology.ProviderConfig{}},
		{key: "mystery", cfg: &topology.ProviderConfig{}, wantErr: true},
		{key: "mystery", cfg: &topology.ProviderConfig{
			Catalog: map[string]any{
				"application": map[string]any{"thing": map[string]any{}},
			},
		}},
	}
	for _, tt := range tests {
		p, err := New(tt.key, tt.cfg, nil)
		if tt.wantErr {
			assert.Error(t, err, "key %q vendor %q", tt.key, tt.cfg.Vendor)
			continue
		}
		require.NoError(t, err, "key %q vendor %q", tt.key, tt.cfg.Vendor)
		assert.Equal(t, tt.key, p.Key())
	}
}

func TestCountComputeResources(t *testing.T) {
	resources := []*domain.Resource{
		{Type: "compute"},
		{Type: "application"},
		{Type: "compute"},
		{Type: "database"},
	}
	assert.Equal(t, 2, countComputeResources(resources))
}
