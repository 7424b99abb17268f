package provider

import (
	"fmt"
	"log/slog"

	"github.com/topdeck-io/topdeck/internal/core/plan"
	"github.com/topdeck-io/topdeck/internal/core/topology"
)

// New builds the provider for one environment entry. The vendor field
// picks the implementation, falling back to the entry's key; entries
// with an unknown vendor still work when they declare their own
// catalog.
func New(key string, cfg *topology.ProviderConfig, logger *slog.Logger) (plan.Provider, error) {
	vendor := key
	if cfg != nil && cfg.Vendor != "" {
		vendor = cfg.Vendor
	}

	switch vendor {
	case "docker":
		return NewDockerProvider(key, cfg, logger), nil
	case "aws", "ec2":
		return NewAWSProvider(key, cfg, logger), nil
	case "digitalocean":
		return NewDigitalOceanProvider(key, cfg, logger), nil
	case "hetzner":
		return NewHetznerProvider(key, cfg, logger), nil
	default:
		if cfg != nil && len(cfg.Catalog) > 0 {
			return newCatalogProvider(key, cfg, nil, logger), nil
		}
		return nil, fmt.Errorf("unsupported provider vendor: %s", vendor)
	}
}
