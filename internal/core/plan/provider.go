package plan

import (
	"context"

	"github.com/topdeck-io/topdeck/internal/core/deployment"
	"github.com/topdeck-io/topdeck/internal/core/domain"
)

// ============================================================================
// Collaborator Contracts
// ============================================================================

// Provider is one configured provider: a source of catalog components
// and resource templates. Implementations live in the shell; the
// planner only sees this contract.
type Provider interface {
	// Key is the provider's name in the environment configuration.
	Key() string
	// Catalog returns every component this provider offers.
	Catalog(ctx context.Context) (map[string]*domain.Component, error)
	// GetComponent returns one catalog component by id.
	GetComponent(ctx context.Context, id string) (*domain.Component, error)
	// GenerateTemplate builds the resource templates for one instance
	// of a component. A single instance may expand to several
	// resources.
	GenerateTemplate(ctx context.Context, req TemplateRequest) ([]*domain.Resource, error)
	// VerifyLimits checks planned resources against provider quotas.
	VerifyLimits(ctx context.Context, resources []*domain.Resource) ([]Warning, error)
	// VerifyAccess checks the configured credentials.
	VerifyAccess(ctx context.Context) ([]Warning, error)
}

// Environment resolves component selectors across providers.
type Environment interface {
	// Providers returns the configured providers by key.
	Providers(ctx context.Context) (map[string]Provider, error)
	// FindComponents returns every component matching the selector.
	FindComponents(ctx context.Context, sel domain.Selector) ([]*domain.Component, error)
	// FindComponent returns one matching component, or nil when none
	// match. Ambiguity resolves to the first match in stable order.
	FindComponent(ctx context.Context, sel domain.Selector) (*domain.Component, error)
}

// TemplateRequest carries everything a provider needs to build
// templates for one component instance.
type TemplateRequest struct {
	// Deployment gives template generation access to setting lookups.
	Deployment *deployment.Deployment
	// Definition is the resolved component, nil for static resources.
	Definition *ComponentDefinition
	// ResourceType of the resource being created.
	ResourceType string
	// ServiceName owning the instance, empty for shared resources.
	ServiceName string
	// Index is the 1-based instance ordinal within the service.
	Index int
	// ProviderKey is the provider entry being asked.
	ProviderKey string
}

// Warning is a non-fatal finding from limit or access verification.
type Warning struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
