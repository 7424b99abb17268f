package plan

import (
	"context"
	"fmt"
	"sort"

	"github.com/topdeck-io/topdeck/internal/core/deployment"
	"github.com/topdeck-io/topdeck/internal/core/domain"
	"github.com/topdeck-io/topdeck/internal/core/eval"
	"github.com/topdeck-io/topdeck/internal/core/keys"
	"github.com/topdeck-io/topdeck/internal/core/topology"
)

// ============================================================================
// Static Resources
// ============================================================================

// addStaticResources generates the blueprint's static resources, which
// keep the blueprint key as their index. When a provider offers a
// matching component it builds the resource; otherwise users and key
// pairs are generated locally.
func (p *Planner) addStaticResources(ctx context.Context) error {
	blueprint := p.deployment.Blueprint
	if len(blueprint.Resources) == 0 {
		return nil
	}

	names := make([]string, 0, len(blueprint.Resources))
	for name := range blueprint.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		declared := blueprint.Resources[name]

		component, err := p.env.FindComponent(ctx, domain.Selector{
			ResourceType: declared.Type,
			Name:         declared.Name,
		})
		if err != nil {
			return err
		}

		var result *domain.Resource
		if component != nil {
			result, err = p.staticFromProvider(ctx, declared, component)
		} else {
			switch declared.Type {
			case "user":
				result, err = p.generateUser(name, declared)
			case "key-pair":
				result, err = generateKeyPair(declared)
			default:
				err = domain.Validationf("could not find provider for the %q resource", name)
			}
		}
		if err != nil {
			return err
		}

		index := domain.NamedIndex(name)
		result.Index = index
		if result.Status == "" {
			result.Status = domain.ResourceStatusPlanned
		}
		p.deployment.Resources[index] = result
		p.logger.Debug("added static resource", "key", name, "type", result.Type)
	}
	return nil
}

func (p *Planner) staticFromProvider(ctx context.Context, declared *topology.StaticResource,
	component *domain.Component) (*domain.Resource, error) {

	provider, err := p.provider(ctx, component.Provider)
	if err != nil {
		return nil, err
	}
	results, err := provider.GenerateTemplate(ctx, TemplateRequest{
		Deployment:   p.deployment,
		ResourceType: declared.Type,
		Index:        1,
		ProviderKey:  component.Provider,
	})
	if err != nil {
		return nil, fmt.Errorf("generating template for static resource: %w", err)
	}
	if len(results) == 0 {
		return nil, domain.Validationf("provider %q returned no template for %q resource",
			component.Provider, declared.Type)
	}
	result := results[0]
	result.Component = component.ID
	if result.Instance == nil {
		result.Instance = make(map[string]any)
	}
	return result, nil
}

// generateUser builds a local user credential. Name and password fall
// back to settings bound through option paths, then to "admin" and a
// generated alphanumeric password.
func (p *Planner) generateUser(key string, declared *topology.StaticResource) (*domain.Resource, error) {
	instance := make(map[string]any)

	name := declared.Name
	if name == "" {
		fallback := p.deployment.GetSetting(
			fmt.Sprintf("resources/%s/name", key),
			deployment.SettingQuery{Default: "admin"})
		name, _ = fallback.(string)
		if name == "" {
			return nil, domain.Validationf(
				"name must be specified for the %q user resource", key)
		}
	}
	instance["name"] = name

	password := declared.Password
	if password == "" {
		if v, ok := p.deployment.GetSetting(
			fmt.Sprintf("resources/%s/password", key),
			deployment.SettingQuery{}).(string); ok {
			password = v
		}
	}
	if password == "" {
		generated, err := eval.GeneratePassword(eval.PasswordOptions{})
		if err != nil {
			return nil, fmt.Errorf("generating password for %q: %w", key, err)
		}
		password = generated
	}
	instance["password"] = password

	return &domain.Resource{Type: "user", Instance: instance}, nil
}

// generateKeyPair builds a key-pair resource, generating fresh keys
// unless a private key was supplied.
func generateKeyPair(declared *topology.StaticResource) (*domain.Resource, error) {
	var pair *keys.Pair
	var err error
	if declared.PrivateKey == "" {
		pair, err = keys.Generate()
	} else {
		pair, err = keys.FromPrivatePEM(declared.PrivateKey)
	}
	if err != nil {
		return nil, fmt.Errorf("preparing key pair: %w", err)
	}

	return &domain.Resource{
		Type: "key-pair",
		Instance: map[string]any{
			"private_key":    pair.PrivateKeyPEM,
			"public_key":     pair.PublicKeyPEM,
			"public_key_ssh": pair.PublicKeySSH,
		},
	}, nil
}
