package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/digitalocean/godo"

	"github.com/topdeck-io/topdeck/internal/core/domain"
	"github.com/topdeck-io/topdeck/internal/core/plan"
	"github.com/topdeck-io/topdeck/internal/core/topology"
)

// DigitalOceanProvider plans compute resources as Droplets.
type DigitalOceanProvider struct {
	*CatalogProvider
	client *godo.Client
}

// NewDigitalOceanProvider creates a DigitalOcean provider from the API
// token in the provider configuration.
func NewDigitalOceanProvider(key string, cfg *topology.ProviderConfig, logger *slog.Logger) *DigitalOceanProvider {
	base := newCatalogProvider(key, cfg, digitalOceanDefaultCatalog, logger)
	return &DigitalOceanProvider{
		CatalogProvider: base,
		client:          godo.NewFromToken(base.credential("api_token")),
	}
}

func digitalOceanDefaultCatalog() map[string]*domain.Component {
	return map[string]*domain.Component{
		"do_droplet": {
			ID:           "do_droplet",
			ResourceType: "compute",
			Provides: map[string]*domain.ConnectionPoint{
				"compute:linux": {Interface: "linux", ResourceType: "compute"},
			},
			Properties: map[string]any{"size": "s-1vcpu-1gb", "image": "docker-20-04"},
		},
	}
}

// VerifyAccess fetches the account, which fails on a bad token.
func (p *DigitalOceanProvider) VerifyAccess(ctx context.Context) ([]plan.Warning, error) {
	_, _, err := p.client.Account.Get(ctx)
	if err != nil {
		return []plan.Warning{{
			Type:    "NO_DIGITALOCEAN_ACCESS",
			Message: "digitalocean token rejected: " + err.Error(),
		}}, nil
	}
	return nil, nil
}

// VerifyLimits compares the planned compute resources against the
// account's droplet limit.
func (p *DigitalOceanProvider) VerifyLimits(ctx context.Context, resources []*domain.Resource) ([]plan.Warning, error) {
	needed := countComputeResources(resources)
	if needed == 0 {
		return nil, nil
	}

	account, _, err := p.client.Account.Get(ctx)
	if err != nil {
		return []plan.Warning{{
			Type:    "UNKNOWN_LIMITS",
			Message: "cannot read droplet limit: " + err.Error(),
		}}, nil
	}
	if account.DropletLimit > 0 && needed > account.DropletLimit {
		return []plan.Warning{{
			Type: "INSUFFICIENT_CAPACITY",
			Message: fmt.Sprintf(
				"plan needs %d droplets but the account allows %d", needed, account.DropletLimit),
		}}, nil
	}
	return nil, nil
}
