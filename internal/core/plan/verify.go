package plan

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/topdeck-io/topdeck/internal/core/domain"
)

// defaultVerifyConcurrency caps parallel provider verification calls.
const defaultVerifyConcurrency = 8

// VerifyLimits asks every provider to check the planned resources
// against its quotas. Providers are queried in parallel; findings are
// returned in stable order by provider key.
func (p *Planner) VerifyLimits(ctx context.Context) ([]Warning, error) {
	return p.verify(ctx, func(ctx context.Context, provider Provider) ([]Warning, error) {
		return provider.VerifyLimits(ctx, p.providerResources(provider.Key()))
	})
}

// VerifyAccess asks every provider to check its configured
// credentials.
func (p *Planner) VerifyAccess(ctx context.Context) ([]Warning, error) {
	return p.verify(ctx, func(ctx context.Context, provider Provider) ([]Warning, error) {
		return provider.VerifyAccess(ctx)
	})
}

func (p *Planner) verify(ctx context.Context,
	check func(context.Context, Provider) ([]Warning, error)) ([]Warning, error) {

	providers, err := p.env.Providers(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(providers))
	for key := range providers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var mu sync.Mutex
	results := make(map[string][]Warning, len(keys))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(defaultVerifyConcurrency)
	for _, key := range keys {
		provider := providers[key]
		group.Go(func() error {
			warnings, err := check(groupCtx, provider)
			if err != nil {
				return err
			}
			mu.Lock()
			results[provider.Key()] = warnings
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var all []Warning
	for _, key := range keys {
		all = append(all, results[key]...)
	}
	return all, nil
}

// providerResources returns the planned resources owned by one
// provider, in stable index order.
func (p *Planner) providerResources(providerKey string) []*domain.Resource {
	var out []*domain.Resource
	for _, index := range sortedResourceIndices(p.deployment.Resources) {
		resource := p.deployment.Resources[index]
		if resource.Provider == providerKey {
			out = append(out, resource)
		}
	}
	return out
}
