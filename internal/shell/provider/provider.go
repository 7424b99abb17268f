// Package provider implements the provider clients planning runs
// against. This is part of the Imperative Shell - handles I/O with
// provider APIs. Every provider serves a component catalog and builds
// resource templates; the cloud-backed ones also verify credentials
// and account limits against their APIs.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/topdeck-io/topdeck/internal/core/deployment"
	"github.com/topdeck-io/topdeck/internal/core/domain"
	"github.com/topdeck-io/topdeck/internal/core/plan"
	"github.com/topdeck-io/topdeck/internal/core/topology"
)

// DefaultDomain is the base domain for generated dns names when the
// deployment does not set one.
const DefaultDomain = "topdeck.local"

// CatalogProvider is the base implementation shared by every provider:
// it serves components from a catalog and turns them into resource
// templates. A catalog declared in the environment document replaces
// the provider's built-in one.
type CatalogProvider struct {
	key      string
	config   *topology.ProviderConfig
	logger   *slog.Logger
	defaults func() map[string]*domain.Component

	once       sync.Once
	catalog    map[string]*domain.Component
	catalogErr error
}

func newCatalogProvider(key string, cfg *topology.ProviderConfig,
	defaults func() map[string]*domain.Component, logger *slog.Logger) *CatalogProvider {

	if cfg == nil {
		cfg = &topology.ProviderConfig{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogProvider{
		key:      key,
		config:   cfg,
		logger:   logger.With("provider", key),
		defaults: defaults,
	}
}

// Key returns the provider's name in the environment section.
func (p *CatalogProvider) Key() string { return p.key }

// Catalog returns the provider's components, loading them on first
// use.
func (p *CatalogProvider) Catalog(context.Context) (map[string]*domain.Component, error) {
	p.once.Do(func() {
		if len(p.config.Catalog) > 0 {
			p.catalog, p.catalogErr = topology.ParseCatalog(p.key, p.config.Catalog)
			return
		}
		if p.defaults != nil {
			p.catalog = p.defaults()
			for _, component := range p.catalog {
				component.Provider = p.key
			}
			return
		}
		p.catalogErr = fmt.Errorf("provider %q has no catalog", p.key)
	})
	return p.catalog, p.catalogErr
}

// GetComponent returns one catalog component by id.
func (p *CatalogProvider) GetComponent(ctx context.Context, id string) (*domain.Component, error) {
	catalog, err := p.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	component, ok := catalog[id]
	if !ok {
		return nil, fmt.Errorf("provider %q has no component %q", p.key, id)
	}
	return component, nil
}

// GenerateTemplate builds the resource template for one component
// instance. The dns name derives from the deployment's "domain"
// setting; services pinned to a single instance drop the instance
// number.
//
// Example:
//
//	web01.topdeck.local    service "web", instance 1
//	db.topdeck.local       service "db" constrained to count 1
func (p *CatalogProvider) GenerateTemplate(_ context.Context, req plan.TemplateRequest) ([]*domain.Resource, error) {
	resource := &domain.Resource{
		Type:         req.ResourceType,
		Provider:     p.key,
		Service:      req.ServiceName,
		Status:       domain.ResourceStatusNew,
		DNSName:      p.dnsName(req),
		Instance:     map[string]any{},
		DesiredState: map[string]any{},
	}
	if req.Definition != nil {
		resource.Component = req.Definition.ID
	}
	return []*domain.Resource{resource}, nil
}

func (p *CatalogProvider) dnsName(req plan.TemplateRequest) string {
	domainName := p.baseDomain()
	if req.Deployment != nil {
		if v, ok := req.Deployment.GetSetting("domain", deployment.SettingQuery{
			ServiceName:  req.ServiceName,
			ProviderKey:  req.ProviderKey,
			ResourceType: req.ResourceType,
			Default:      domainName,
		}).(string); ok && v != "" {
			domainName = v
		}
	}

	if req.ServiceName == "" {
		return fmt.Sprintf("shared%s%02d.%s", req.ResourceType, req.Index, domainName)
	}
	if req.Deployment != nil && req.Deployment.ConstrainedToOne(req.ServiceName) {
		return fmt.Sprintf("%s.%s", req.ServiceName, domainName)
	}
	return fmt.Sprintf("%s%02d.%s", req.ServiceName, req.Index, domainName)
}

func (p *CatalogProvider) baseDomain() string {
	if v, ok := p.config.Settings["domain"].(string); ok && v != "" {
		return v
	}
	return DefaultDomain
}

// VerifyLimits is a no-op for catalog-only providers.
func (p *CatalogProvider) VerifyLimits(context.Context, []*domain.Resource) ([]plan.Warning, error) {
	return nil, nil
}

// VerifyAccess is a no-op for catalog-only providers.
func (p *CatalogProvider) VerifyAccess(context.Context) ([]plan.Warning, error) {
	return nil, nil
}

// credential reads one credential value from the provider's
// configuration.
func (p *CatalogProvider) credential(name string) string {
	return p.config.Credentials[name]
}

// countComputeResources tallies the resources a limit check cares
// about.
func countComputeResources(resources []*domain.Resource) int {
	count := 0
	for _, resource := range resources {
		if resource.Type == "compute" {
			count++
		}
	}
	return count
}
