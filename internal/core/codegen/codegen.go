// Package codegen renders a planned deployment into a docker compose
// manifest. Only resources whose components carry an image become
// compose services; relation records turn into environment variables
// and depends_on edges, and host relations collapse the guest onto its
// host's network namespace.
package codegen

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/docker/go-connections/nat"
	"gopkg.in/yaml.v3"

	"github.com/topdeck-io/topdeck/internal/core/deployment"
	"github.com/topdeck-io/topdeck/internal/core/domain"
	"github.com/topdeck-io/topdeck/internal/core/plan"
)

// defaultNetwork is the compose network every generated service joins.
const defaultNetwork = "topdeck"

// Generator renders compose manifests for planned deployments.
type Generator struct {
	env    plan.Environment
	logger *slog.Logger
}

// NewGenerator wires a generator to the environment the deployment was
// planned against, which supplies component properties.
func NewGenerator(env plan.Environment, logger *slog.Logger) (*Generator, error) {
	if env == nil {
		return nil, &domain.PreconditionError{Message: "generator needs an environment"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{env: env, logger: logger.With("component", "codegen")}, nil
}

// composeService is one service entry in the generated manifest.
type composeService struct {
	name        string
	image       string
	hostname    string
	command     string
	ports       []string
	environment map[string]string
	dependsOn   []string
	networkMode string
}

// Generate renders the deployment's planned resources as compose YAML.
// Services appear in dependency order.
func (g *Generator) Generate(ctx context.Context, dep *deployment.Deployment) ([]byte, error) {
	if dep == nil {
		return nil, &domain.PreconditionError{Message: "no deployment to generate from"}
	}

	services, err := g.collectServices(ctx, dep)
	if err != nil {
		return nil, err
	}
	if len(services) == 0 {
		return nil, domain.Validationf("deployment %s has no runnable resources", dep.ID)
	}

	document := map[string]any{
		"services": renderServices(sortServices(services)),
		"networks": map[string]any{defaultNetwork: map[string]any{"driver": "bridge"}},
	}
	out, err := yaml.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("encoding compose manifest: %w", err)
	}
	return out, nil
}

func (g *Generator) collectServices(ctx context.Context, dep *deployment.Deployment) ([]*composeService, error) {
	variables := inputVariables(dep)

	indices := make([]domain.ResourceIndex, 0, len(dep.Resources))
	for index := range dep.Resources {
		if index.IsNumeric() {
			indices = append(indices, index)
		}
	}
	sort.Slice(indices, func(i, j int) bool {
		ni, _ := indices[i].Numeric()
		nj, _ := indices[j].Numeric()
		return ni < nj
	})

	var services []*composeService
	for _, index := range indices {
		resource := dep.Resources[index]
		if resource.Component == "" {
			continue
		}
		component, err := g.env.FindComponent(ctx, domain.Selector{ID: resource.Component})
		if err != nil {
			return nil, err
		}
		if component == nil {
			return nil, domain.Validationf(
				"resource %s references unknown component %q", index, resource.Component)
		}
		image, _ := component.Properties["image"].(string)
		if image == "" {
			g.logger.Debug("skipping resource without image",
				"resource", string(index), "component", component.ID)
			continue
		}

		service, err := g.buildService(dep, resource, component, variables)
		if err != nil {
			return nil, err
		}
		services = append(services, service)
	}
	return services, nil
}

func (g *Generator) buildService(dep *deployment.Deployment, resource *domain.Resource,
	component *domain.Component, variables map[string]string) (*composeService, error) {

	service := &composeService{
		name:        serviceName(resource),
		image:       Substitute(image(component), variables),
		hostname:    resource.DNSName,
		environment: map[string]string{},
	}

	if command, ok := component.Properties["command"].(string); ok {
		service.command = Substitute(command, variables)
	}

	ports, err := componentPorts(component)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", resource.Index, err)
	}
	service.ports = ports

	// Hosted resources share their host's network namespace instead of
	// joining the deployment network.
	if resource.HostedOn != "" {
		host, ok := dep.Resources[resource.HostedOn]
		if !ok {
			return nil, domain.Validationf(
				"resource %s is hosted on missing resource %s", resource.Index, resource.HostedOn)
		}
		hostName := serviceName(host)
		service.networkMode = "service:" + hostName
		service.dependsOn = append(service.dependsOn, hostName)
	}

	for _, key := range sortedRelationKeys(resource.Relations) {
		record := resource.Relations[key]
		if record.Target == "" || record.Relation == domain.RelationHost {
			continue
		}
		target, ok := dep.Resources[record.Target]
		if !ok {
			return nil, domain.Validationf(
				"relation %q on resource %s targets missing resource %s",
				key, resource.Index, record.Target)
		}
		prefix := envPrefix(record)
		service.environment[prefix+"_HOST"] = target.DNSName
		if port := targetPort(dep, target); port != "" {
			service.environment[prefix+"_PORT"] = port
		}
		service.dependsOn = appendUnique(service.dependsOn, serviceName(target))
	}

	for name, value := range component.Properties {
		env, found := strings.CutPrefix(name, "env_")
		if !found {
			continue
		}
		if s, ok := value.(string); ok {
			service.environment[strings.ToUpper(env)] = Substitute(s, variables)
		}
	}

	return service, nil
}

// componentPorts validates and normalizes the component's published
// ports.
func componentPorts(component *domain.Component) ([]string, error) {
	var specs []string
	switch v := component.Properties["port"].(type) {
	case int:
		specs = append(specs, fmt.Sprintf("%d", v))
	case float64:
		specs = append(specs, fmt.Sprintf("%d", int(v)))
	case string:
		if v != "" {
			specs = append(specs, v)
		}
	}
	if list, ok := component.Properties["ports"].([]any); ok {
		for _, entry := range list {
			if s, ok := entry.(string); ok && s != "" {
				specs = append(specs, s)
			}
		}
	}

	out := make([]string, 0, len(specs))
	for _, spec := range specs {
		mappings, err := nat.ParsePortSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q on component %q: %w", spec, component.ID, err)
		}
		for _, m := range mappings {
			rendered := m.Port.Port()
			if m.Binding.HostPort != "" {
				rendered = m.Binding.HostPort + ":" + rendered
			}
			out = append(out, rendered)
		}
	}
	return out, nil
}

// targetPort reads the port a relation target listens on from its
// instance attributes, falling back to nothing when unknown.
func targetPort(dep *deployment.Deployment, target *domain.Resource) string {
	v := dep.GetSetting(fmt.Sprintf("resources/%s/port", target.Index), deployment.SettingQuery{})
	switch port := v.(type) {
	case int:
		return fmt.Sprintf("%d", port)
	case float64:
		return fmt.Sprintf("%d", int(port))
	case string:
		return port
	}
	return ""
}

func serviceName(resource *domain.Resource) string {
	if resource.Service == "" {
		return fmt.Sprintf("resource-%s", resource.Index)
	}
	return fmt.Sprintf("%s-%s", resource.Service, resource.Index)
}

func image(component *domain.Component) string {
	s, _ := component.Properties["image"].(string)
	return s
}

// envPrefix derives an environment variable prefix from the relation's
// name, like "database:mysql" becoming "DATABASE_MYSQL".
func envPrefix(record domain.RelationRecord) string {
	name := record.Name
	if name == "" {
		name = record.Interface
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
	return strings.ToUpper(cleaned)
}

// inputVariables flattens the deployment's scalar inputs for ${VAR}
// substitution in component properties.
func inputVariables(dep *deployment.Deployment) map[string]string {
	variables := make(map[string]string)
	for name, value := range dep.Inputs.Global {
		if s, ok := value.(string); ok {
			variables[name] = s
		}
	}
	for name, value := range dep.Inputs.Blueprint {
		if s, ok := value.(string); ok {
			variables[name] = s
		}
	}
	return variables
}

func renderServices(services []*composeService) map[string]any {
	rendered := make(map[string]any, len(services))
	for _, service := range services {
		entry := map[string]any{
			"image":    service.image,
			"hostname": service.hostname,
			"restart":  "unless-stopped",
		}
		if service.command != "" {
			entry["command"] = service.command
		}
		if len(service.ports) > 0 {
			entry["ports"] = service.ports
		}
		if len(service.environment) > 0 {
			entry["environment"] = service.environment
		}
		if len(service.dependsOn) > 0 {
			sort.Strings(service.dependsOn)
			entry["depends_on"] = service.dependsOn
		}
		if service.networkMode != "" {
			entry["network_mode"] = service.networkMode
			delete(entry, "hostname")
		} else {
			entry["networks"] = []string{defaultNetwork}
		}
		rendered[service.name] = entry
	}
	return rendered
}

func sortedRelationKeys(relations map[string]domain.RelationRecord) []string {
	keys := make([]string, 0, len(relations))
	for key := range relations {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
