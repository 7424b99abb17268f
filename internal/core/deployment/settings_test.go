package deployment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topdeck-io/topdeck/internal/core/domain"
	"github.com/topdeck-io/topdeck/internal/core/topology"
)

func settingsFixture(t *testing.T) *Deployment {
	t.Helper()
	f := &topology.File{
		Blueprint: &topology.Blueprint{
			Services: map[string]*topology.Service{
				"web": {
					Component:   domain.Selector{ResourceType: "application"},
					Constraints: []map[string]any{{"count": 2}},
				},
				"backend": {Component: domain.Selector{ResourceType: "database"}},
			},
			Options: map[string]*topology.Option{
				"database_memory": {
					Type:    "string",
					Default: "512mb",
					Constrains: []map[string]any{
						{"setting": "memory", "service": "backend", "resource_type": "database"},
					},
				},
			},
			Resources: map[string]*topology.StaticResource{
				"admin": {
					Type: "user",
					Constrains: []map[string]any{
						{"setting": "db_password", "attribute": "password"},
					},
				},
			},
		},
		Environment: &topology.EnvironmentConfig{
			Providers: map[string]*topology.ProviderConfig{
				"docker": {
					Vendor:      "docker",
					Constraints: []map[string]any{{"setting": "os", "value": "linux"}},
				},
				"common": {
					Constraints: []map[string]any{{"setting": "region", "value": "fra1"}},
				},
			},
		},
		Inputs: map[string]any{
			"blueprint": map[string]any{"site_title": "My Site"},
			"services": map[string]any{
				"web": map[string]any{"application": map[string]any{"memory": "2gb"}},
			},
			"providers": map[string]any{
				"docker": map[string]any{"compute": map[string]any{"image": "debian"}},
			},
			"domain": "example.com",
		},
	}
	dep, err := New(f)
	require.NoError(t, err)
	return dep
}

func TestGetSettingPrecedence(t *testing.T) {
	dep := settingsFixture(t)

	tests := []struct {
		name    string
		setting string
		query   SettingQuery
		want    any
	}{
		{
			name:    "relation attribute wins",
			setting: "memory",
			query: SettingQuery{
				ServiceName:  "web",
				ResourceType: "application",
				Relation: &domain.Relation{
					Service: "backend", Interface: "mysql",
					Attributes: map[string]any{"memory": "4gb"},
				},
			},
			want: "4gb",
		},
		{
			name:    "service scoped input",
			setting: "memory",
			query:   SettingQuery{ServiceName: "web", ResourceType: "application"},
			want:    "2gb",
		},
		{
			name:    "service constraint",
			setting: "count",
			query:   SettingQuery{ServiceName: "web"},
			want:    2,
		},
		{
			name:    "provider scoped input",
			setting: "image",
			query:   SettingQuery{ProviderKey: "docker", ResourceType: "compute"},
			want:    "debian",
		},
		{
			name:    "option constrains with default",
			setting: "memory",
			query:   SettingQuery{ServiceName: "backend", ResourceType: "database"},
			want:    "512mb",
		},
		{
			name:    "blueprint input",
			setting: "site_title",
			query:   SettingQuery{},
			want:    "My Site",
		},
		{
			name:    "global input",
			setting: "domain",
			query:   SettingQuery{},
			want:    "example.com",
		},
		{
			name:    "environment provider constraint",
			setting: "os",
			query:   SettingQuery{ProviderKey: "docker"},
			want:    "linux",
		},
		{
			name:    "common provider constraint",
			setting: "region",
			query:   SettingQuery{ProviderKey: "docker"},
			want:    "fra1",
		},
		{
			name:    "default when nothing matches",
			setting: "missing",
			query:   SettingQuery{ServiceName: "web", Default: 1},
			want:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dep.GetSetting(tt.setting, tt.query))
		})
	}
}

func TestGetSettingStaticResourceConstraint(t *testing.T) {
	dep := settingsFixture(t)
	dep.Resources["admin"] = &domain.Resource{
		Index:    "admin",
		Type:     "user",
		Instance: map[string]any{"name": "admin", "password": "s3cret"},
	}

	assert.Equal(t, "s3cret", dep.GetSetting("db_password", SettingQuery{}))
}

func TestGetSettingResourcePath(t *testing.T) {
	dep := settingsFixture(t)
	dep.Resources["0"] = &domain.Resource{
		Index:    "0",
		Type:     "application",
		DNSName:  "web01.example.com",
		Instance: map[string]any{"port": 8080},
	}

	assert.Equal(t, "web01.example.com", dep.GetSetting("resources/0/dns-name", SettingQuery{}))
	assert.Equal(t, 8080, dep.GetSetting("resources/0/instance/port", SettingQuery{}))
	assert.Equal(t, 8080, dep.GetSetting("resources/0/port", SettingQuery{}))
	assert.Equal(t, "fallback", dep.GetSetting("resources/9/type", SettingQuery{Default: "fallback"}))
}

func TestValidateOptions(t *testing.T) {
	dep := settingsFixture(t)
	require.NoError(t, dep.ValidateOptions())

	dep.Blueprint.Options["admin_email"] = &topology.Option{Required: true}
	err := dep.ValidateOptions()
	require.Error(t, err)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)

	dep.Inputs.Blueprint["admin_email"] = "ops@example.com"
	assert.NoError(t, dep.ValidateOptions())
}

func TestValidateOptionsConditionalRequired(t *testing.T) {
	dep := settingsFixture(t)
	dep.Blueprint.Options["tls_cert"] = &topology.Option{
		Required: map[string]any{"exists": "inputs://enable_tls"},
	}
	require.NoError(t, dep.ValidateOptions())

	dep.Inputs.raw["enable_tls"] = true
	err := dep.ValidateOptions()
	assert.Error(t, err)
}

func TestValidateOptionsURLCredentials(t *testing.T) {
	dep := settingsFixture(t)
	dep.Blueprint.Options["site_url"] = &topology.Option{Type: "url"}
	dep.Inputs.Blueprint["site_url"] = map[string]any{
		"url":         "https://example.com",
		"certificate": "cert",
	}
	err := dep.ValidateOptions()
	require.Error(t, err)

	dep.Inputs.Blueprint["site_url"] = map[string]any{
		"url":         "https://example.com",
		"certificate": "cert",
		"private_key": "key",
	}
	assert.NoError(t, dep.ValidateOptions())
}

func TestValidateInputConstraints(t *testing.T) {
	dep := settingsFixture(t)
	dep.Blueprint.Options["replicas"] = &topology.Option{
		Constraints: []map[string]any{{"greater-than": 0, "less-than": 10}},
	}

	dep.Inputs.Blueprint["replicas"] = 3
	require.NoError(t, dep.ValidateInputConstraints())

	dep.Inputs.Blueprint["replicas"] = 12
	err := dep.ValidateInputConstraints()
	require.Error(t, err)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestEvaluateDefaults(t *testing.T) {
	dep := settingsFixture(t)
	dep.Blueprint.Options["db_root_password"] = &topology.Option{
		Default: "=generate_password(min_length=16)",
	}
	dep.Blueprint.Options["instance_id"] = &topology.Option{
		Default: "=generate_uuid()",
	}

	require.NoError(t, dep.EvaluateDefaults())

	pw, ok := dep.Inputs.Blueprint["db_root_password"].(string)
	require.True(t, ok)
	assert.Len(t, pw, 16)

	id, ok := dep.Inputs.Blueprint["instance_id"].(string)
	require.True(t, ok)
	assert.Len(t, id, 32)

	// Evaluating twice must not replace an already produced value.
	require.NoError(t, dep.EvaluateDefaults())
	assert.Equal(t, pw, dep.Inputs.Blueprint["db_root_password"])
}

func TestToInt(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
		ok    bool
	}{
		{"int", 3, 3, true},
		{"int64", int64(7), 7, true},
		{"float64", float64(2), 2, true},
		{"digit string", "12", 12, true},
		{"huge string overflows", "99999999999999999999999999", 0, false},
		{"negative string", "-1", 0, false},
		{"non numeric string", "three", 0, false},
		{"empty string", "", 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToInt(tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
