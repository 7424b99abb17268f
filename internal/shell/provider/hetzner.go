package provider

import (
	"context"
	"log/slog"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/topdeck-io/topdeck/internal/core/domain"
	"github.com/topdeck-io/topdeck/internal/core/plan"
	"github.com/topdeck-io/topdeck/internal/core/topology"
)

// HetznerProvider plans compute resources as Hetzner Cloud servers.
type HetznerProvider struct {
	*CatalogProvider
	client *hcloud.Client
}

// NewHetznerProvider creates a Hetzner Cloud provider from the API
// token in the provider configuration.
func NewHetznerProvider(key string, cfg *topology.ProviderConfig, logger *slog.Logger) *HetznerProvider {
	base := newCatalogProvider(key, cfg, hetznerDefaultCatalog, logger)
	return &HetznerProvider{
		CatalogProvider: base,
		client:          hcloud.NewClient(hcloud.WithToken(base.credential("api_token"))),
	}
}

func hetznerDefaultCatalog() map[string]*domain.Component {
	return map[string]*domain.Component{
		"hcloud_server": {
			ID:           "hcloud_server",
			ResourceType: "compute",
			Provides: map[string]*domain.ConnectionPoint{
				"compute:linux": {Interface: "linux", ResourceType: "compute"},
			},
			Properties: map[string]any{"server_type": "cx22", "image": "ubuntu-24.04"},
		},
	}
}

// VerifyAccess lists locations, which fails on a bad token.
func (p *HetznerProvider) VerifyAccess(ctx context.Context) ([]plan.Warning, error) {
	_, err := p.client.Location.All(ctx)
	if err != nil {
		return []plan.Warning{{
			Type:    "NO_HETZNER_ACCESS",
			Message: "hetzner token rejected: " + err.Error(),
		}}, nil
	}
	return nil, nil
}
