// Package environment resolves the provider section of a topology
// document into live provider clients and answers component lookups
// across their catalogs.
package environment

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/topdeck-io/topdeck/internal/core/domain"
	"github.com/topdeck-io/topdeck/internal/core/plan"
	"github.com/topdeck-io/topdeck/internal/core/topology"
)

// defaultPrimeConcurrency caps parallel catalog fetches during Prime.
const defaultPrimeConcurrency = 4

// ProviderFactory builds one provider client from its configuration
// block. The key is the provider's name in the environment section.
type ProviderFactory func(key string, cfg *topology.ProviderConfig, logger *slog.Logger) (plan.Provider, error)

// Environment wraps a topology's environment section. Providers are
// constructed on first use and cached for the lifetime of the
// environment.
type Environment struct {
	config  *topology.EnvironmentConfig
	factory ProviderFactory
	logger  *slog.Logger

	mu        sync.Mutex
	providers map[string]plan.Provider
}

// New validates the environment section and prepares lazy provider
// construction.
func New(config *topology.EnvironmentConfig, factory ProviderFactory, logger *slog.Logger) (*Environment, error) {
	if config == nil {
		return nil, &domain.PreconditionError{Message: "environment configuration is missing"}
	}
	if len(config.Providers) == 0 {
		return nil, domain.Validationf("environment %q declares no providers", config.Name)
	}
	if factory == nil {
		return nil, &domain.PreconditionError{Message: "environment needs a provider factory"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Environment{
		config:  config,
		factory: factory,
		logger:  logger.With("component", "environment"),
	}, nil
}

// ProviderKeys returns the configured provider names in stable order.
func (e *Environment) ProviderKeys() []string {
	keys := make([]string, 0, len(e.config.Providers))
	for key := range e.config.Providers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Providers constructs every configured provider, reusing clients
// already built.
func (e *Environment) Providers(context.Context) (map[string]plan.Provider, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.providers == nil {
		e.providers = make(map[string]plan.Provider, len(e.config.Providers))
	}
	for _, key := range e.ProviderKeys() {
		if _, ok := e.providers[key]; ok {
			continue
		}
		provider, err := e.factory(key, e.config.Providers[key], e.logger)
		if err != nil {
			return nil, fmt.Errorf("configuring provider %q: %w", key, err)
		}
		e.providers[key] = provider
	}

	out := make(map[string]plan.Provider, len(e.providers))
	for key, provider := range e.providers {
		out[key] = provider
	}
	return out, nil
}

// Prime fetches every provider's catalog up front so later lookups do
// not pay the first-load cost. Catalogs load in parallel.
func (e *Environment) Prime(ctx context.Context) error {
	providers, err := e.Providers(ctx)
	if err != nil {
		return err
	}

	keys := e.ProviderKeys()
	if len(keys) > defaultPrimeConcurrency {
		e.logger.Warn("provider call pool running low",
			"providers", len(keys), "pool_size", defaultPrimeConcurrency)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(defaultPrimeConcurrency)
	for _, key := range keys {
		provider := providers[key]
		group.Go(func() error {
			catalog, err := provider.Catalog(groupCtx)
			if err != nil {
				return fmt.Errorf("loading catalog for provider %q: %w", provider.Key(), err)
			}
			e.logger.Debug("catalog primed",
				"provider", provider.Key(), "components", len(catalog))
			return nil
		})
	}
	return group.Wait()
}

// FindComponents returns every catalog component matching the
// selector, scanning providers and components in stable order.
func (e *Environment) FindComponents(ctx context.Context, sel domain.Selector) ([]*domain.Component, error) {
	providers, err := e.Providers(ctx)
	if err != nil {
		return nil, err
	}

	var matches []*domain.Component
	for _, key := range e.ProviderKeys() {
		catalog, err := providers[key].Catalog(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading catalog for provider %q: %w", key, err)
		}
		ids := make([]string, 0, len(catalog))
		for id := range catalog {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if catalog[id].Matches(sel) {
				matches = append(matches, catalog[id])
			}
		}
	}
	return matches, nil
}

// FindComponent returns the first component matching the selector, or
// nil when nothing matches. Ambiguous selectors resolve to the first
// match in provider order and are logged.
func (e *Environment) FindComponent(ctx context.Context, sel domain.Selector) (*domain.Component, error) {
	matches, err := e.FindComponents(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	if len(matches) > 1 {
		e.logger.Warn("selector matched multiple components, using first",
			"selector", sel.String(),
			"matches", len(matches),
			"selected", matches[0].ID)
	}
	return matches[0], nil
}
