package topology

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topdeck-io/topdeck/internal/core/domain"
)

const sampleDocument = `
id: dep-1
name: test deployment
blueprint:
  id: bp-1
  name: test app
  services:
    web:
      component:
        resource_type: application
        name: wordpress
      relations:
      - backend: mysql
      - service: cache
        interface: redis
        connect-to: sessions
    backend:
      component:
        resource_type: database
      constraints:
      - count: 2
    cache:
      component:
        id: docker_redis
  options:
    region:
      type: string
      default: fra1
  resources:
    admin:
      type: user
    deploy-keys:
      type: key-pair
environment:
  providers:
    docker:
      vendor: docker
inputs:
  region: ams3
`

func TestParse(t *testing.T) {
	f, err := Parse(strings.NewReader(sampleDocument))
	require.NoError(t, err)

	require.NotNil(t, f.Blueprint)
	assert.Len(t, f.Blueprint.Services, 3)

	web := f.Blueprint.Services["web"]
	require.NotNil(t, web)
	assert.Equal(t, "application", web.Component.ResourceType)
	assert.Equal(t, "wordpress", web.Component.Name)

	require.Len(t, web.Relations, 2)
	assert.Equal(t, domain.Relation{Service: "backend", Interface: "mysql"}, web.Relations[0])
	assert.Equal(t, "cache", web.Relations[1].Service)
	assert.Equal(t, "redis", web.Relations[1].Interface)
	assert.Equal(t, "sessions", web.Relations[1].ConnectTo)

	assert.Equal(t, "user", f.Blueprint.Resources["admin"].Type)
	assert.Equal(t, "ams3", f.Inputs["region"])
	require.NotNil(t, f.Environment)
	assert.Contains(t, f.Environment.Providers, "docker")
}

func TestParseShortRelationWithTag(t *testing.T) {
	doc := `
blueprint:
  services:
    web:
      component: {resource_type: application}
      relations:
      - backend: mysql#reports
environment:
  providers:
    docker: {}
`
	f, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	rel := f.Blueprint.Services["web"].Relations[0]
	assert.Equal(t, "backend", rel.Service)
	assert.Equal(t, "mysql", rel.Interface)
	assert.Equal(t, "reports", rel.ConnectFrom)
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "{{nope"},
		{"no blueprint", "environment:\n  providers:\n    docker: {}\n"},
		{"no services", "blueprint: {}\nenvironment:\n  providers:\n    docker: {}\n"},
		{
			"empty component selector",
			"blueprint:\n  services:\n    web:\n      component: {}\nenvironment:\n  providers:\n    docker: {}\n",
		},
		{"no providers", "blueprint:\n  services:\n    web:\n      component: {id: x}\nenvironment: {}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			require.Error(t, err)
			var invalid *InvalidDocumentError
			assert.ErrorAs(t, err, &invalid)
		})
	}
}

func TestParseCatalog(t *testing.T) {
	raw := map[string]any{
		"application": map[string]any{
			"docker_generic": map[string]any{
				"image": "nginx",
				"requires": []any{
					map[string]any{"database": "mysql"},
					map[string]any{"host": "linux"},
				},
			},
		},
		"database": map[string]any{
			"docker_mysql": map[string]any{
				"provides": []any{
					map[string]any{"database": "mysql"},
				},
				"port": 3306,
			},
		},
	}

	components, err := ParseCatalog("docker", raw)
	require.NoError(t, err)
	require.Len(t, components, 2)

	app := components["docker_generic"]
	require.NotNil(t, app)
	assert.Equal(t, "docker", app.Provider)
	assert.Equal(t, "application", app.ResourceType)
	assert.Equal(t, "nginx", app.Properties["image"])

	db := app.Requires["database:mysql"]
	require.NotNil(t, db)
	assert.Equal(t, "mysql", db.Interface)
	assert.Equal(t, "database", db.ResourceType)

	host := app.Requires["host:linux"]
	require.NotNil(t, host)
	assert.Equal(t, "linux", host.Interface)
	assert.Equal(t, domain.RelationHost, host.Relation)
	assert.Empty(t, host.ResourceType)

	mysql := components["docker_mysql"]
	require.NotNil(t, mysql)
	assert.Equal(t, "mysql", mysql.Provides["database:mysql"].Interface)
	assert.Equal(t, 3306, mysql.Properties["port"])
}

func TestParseCatalogLongFormPoints(t *testing.T) {
	raw := map[string]any{
		"load-balancer": map[string]any{
			"vip_lb": map[string]any{
				"interface": "vip",
				"provides": []any{
					map[string]any{"interface": "http", "resource_type": "load-balancer", "name": "public"},
				},
			},
		},
	}

	components, err := ParseCatalog("docker", raw)
	require.NoError(t, err)

	lb := components["vip_lb"]
	require.NotNil(t, lb)
	assert.Equal(t, "vip", lb.Interface)
	point := lb.Provides["public"]
	require.NotNil(t, point)
	assert.Equal(t, "http", point.Interface)
}

func TestParseCatalogRejectsBadShapes(t *testing.T) {
	_, err := ParseCatalog("docker", map[string]any{"application": "nope"})
	assert.Error(t, err)

	_, err = ParseCatalog("docker", map[string]any{
		"application": map[string]any{"x": map[string]any{"requires": "nope"}},
	})
	assert.Error(t, err)
}
