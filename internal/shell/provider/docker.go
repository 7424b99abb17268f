package provider

import (
	"context"
	"log/slog"

	"github.com/docker/docker/client"

	"github.com/topdeck-io/topdeck/internal/core/domain"
	"github.com/topdeck-io/topdeck/internal/core/plan"
	"github.com/topdeck-io/topdeck/internal/core/topology"
)

// DockerProvider plans resources as docker containers on the local
// daemon.
type DockerProvider struct {
	*CatalogProvider
	host string
}

// NewDockerProvider creates a docker provider. Host overrides the
// daemon address from the environment.
func NewDockerProvider(key string, cfg *topology.ProviderConfig, logger *slog.Logger) *DockerProvider {
	host := ""
	if cfg != nil {
		if v, ok := cfg.Settings["host"].(string); ok {
			host = v
		}
	}
	return &DockerProvider{
		CatalogProvider: newCatalogProvider(key, cfg, dockerDefaultCatalog, logger),
		host:            host,
	}
}

// dockerDefaultCatalog is served when the environment declares no
// catalog for the provider.
func dockerDefaultCatalog() map[string]*domain.Component {
	return map[string]*domain.Component{
		"docker_generic": {
			ID:           "docker_generic",
			ResourceType: "application",
			Provides: map[string]*domain.ConnectionPoint{
				"application:http": {Interface: "http", ResourceType: "application"},
			},
			Properties: map[string]any{"image": "nginx:alpine", "port": 80},
		},
		"docker_mysql": {
			ID:           "docker_mysql",
			ResourceType: "database",
			Provides: map[string]*domain.ConnectionPoint{
				"database:mysql": {Interface: "mysql", ResourceType: "database"},
			},
			Properties: map[string]any{"image": "mysql:8", "port": 3306},
		},
		"docker_compute": {
			ID:           "docker_compute",
			ResourceType: "compute",
			Provides: map[string]*domain.ConnectionPoint{
				"compute:linux": {Interface: "linux", ResourceType: "compute"},
			},
			Properties: map[string]any{"image": "ubuntu:24.04"},
		},
	}
}

// VerifyAccess pings the docker daemon and reports a warning when it
// is unreachable.
func (p *DockerProvider) VerifyAccess(ctx context.Context) ([]plan.Warning, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if p.host != "" {
		opts = append(opts, client.WithHost(p.host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return []plan.Warning{{
			Type:    "NO_DOCKER_ACCESS",
			Message: "cannot configure docker client: " + err.Error(),
		}}, nil
	}
	defer cli.Close()

	if _, err := cli.Ping(ctx); err != nil {
		return []plan.Warning{{
			Type:    "NO_DOCKER_ACCESS",
			Message: "docker daemon unreachable: " + err.Error(),
		}}, nil
	}
	return nil, nil
}
