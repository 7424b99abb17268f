// Package plan implements deployment planning: resolving declared
// services to provider components, wiring relations and transitive
// requirements into connection templates, and materializing uniquely
// indexed resources with their connections.
package plan

import (
	"context"
	"log/slog"

	"github.com/topdeck-io/topdeck/internal/core/deployment"
	"github.com/topdeck-io/topdeck/internal/core/domain"
)

// Planner turns one deployment document into planned resources. A
// planner is single-use: create one per planning run.
type Planner struct {
	deployment *deployment.Deployment
	env        Environment
	state      *PlanningState
	logger     *slog.Logger

	providers map[string]Provider
}

// NewPlanner validates the deployment is ready to plan and prepares
// planning state.
func NewPlanner(dep *deployment.Deployment, env Environment, logger *slog.Logger) (*Planner, error) {
	if dep == nil || dep.Blueprint == nil {
		return nil, &domain.PreconditionError{Message: "deployment has no blueprint"}
	}
	if env == nil {
		return nil, &domain.PreconditionError{Message: "deployment has no environment"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	names := make([]string, 0, len(dep.Blueprint.Services))
	for name := range dep.Blueprint.Services {
		names = append(names, name)
	}

	return &Planner{
		deployment: dep,
		env:        env,
		state:      NewPlanningState(names),
		logger:     logger.With("component", "planner"),
	}, nil
}

// State exposes the planning scratch space, mainly for tests and
// debugging output.
func (p *Planner) State() *PlanningState { return p.state }

// Plan runs every planning stage in order and returns the planned
// resources. The deployment moves to PLANNED on success and FAILED on
// any error.
func (p *Planner) Plan(ctx context.Context) (map[domain.ResourceIndex]*domain.Resource, error) {
	p.logger.Info("planning deployment", "deployment_id", p.deployment.ID)

	stages := []struct {
		name string
		run  func(context.Context) error
	}{
		{"validate options", func(context.Context) error { return p.deployment.ValidateOptions() }},
		{"validate input constraints", func(context.Context) error { return p.deployment.ValidateInputConstraints() }},
		{"evaluate defaults", func(context.Context) error { return p.deployment.EvaluateDefaults() }},
		{"resolve components", p.resolveComponents},
		{"resolve relations", p.resolveRelations},
		{"resolve remaining requirements", p.resolveRemainingRequirements},
		{"resolve recursive requirements", p.resolveRecursiveRequirements},
		{"add resources", p.addResources},
		{"add byo resources", p.addBYOResources},
		{"connect resources", p.connectResources},
		{"add static resources", p.addStaticResources},
	}

	for _, stage := range stages {
		p.logger.Debug("running planning stage", "stage", stage.name)
		if err := stage.run(ctx); err != nil {
			p.deployment.Status = deployment.StatusFailed
			p.logger.Error("planning failed", "stage", stage.name, "error", err)
			return nil, err
		}
	}

	p.deployment.Status = deployment.StatusPlanned
	p.logger.Info("planning complete",
		"deployment_id", p.deployment.ID,
		"resources", len(p.deployment.Resources))
	return p.deployment.Resources, nil
}

// ============================================================================
// Component Resolution
// ============================================================================

// resolveComponents maps every declared service to one provider
// component. An "id" setting scoped to the service overrides the
// selector's id, letting operators pin components per deployment.
func (p *Planner) resolveComponents(ctx context.Context) error {
	for _, serviceName := range p.state.ServiceNames() {
		service := p.deployment.Blueprint.Services[serviceName]
		selector := service.Component

		if override, ok := p.deployment.GetSetting("id",
			deployment.SettingQuery{ServiceName: serviceName}).(string); ok && override != "" {
			selector.ID = override
		}

		component, err := p.identifyComponent(ctx, selector, serviceName, "")
		if err != nil {
			return err
		}
		p.logger.Debug("component identified",
			"service", serviceName, "component", component.ID)
		p.state.Services[serviceName].Component = NewComponentDefinition(component)
	}
	return nil
}

func (p *Planner) identifyComponent(ctx context.Context, sel domain.Selector, serviceName, requirement string) (*domain.Component, error) {
	component, err := p.env.FindComponent(ctx, sel)
	if err != nil {
		return nil, err
	}
	if component == nil {
		return nil, &domain.SelectionError{
			Selector:    sel,
			Service:     serviceName,
			Requirement: requirement,
		}
	}
	return component, nil
}

// ============================================================================
// Relation Resolution
// ============================================================================

// resolveRelations matches every declared relation to connection
// points on both components and writes connection templates. Relations
// match the source's unsatisfied requirements first, then tagged
// supports entries.
func (p *Planner) resolveRelations(ctx context.Context) error {
	services := p.deployment.Blueprint.Services
	for _, serviceName := range p.state.ServiceNames() {
		service := services[serviceName]
		if len(service.Relations) == 0 {
			continue
		}

		seen := make(map[string]bool, len(service.Relations))
		for _, rel := range service.Relations {
			relKey := rel.DeriveKey(serviceName)
			if seen[relKey] {
				return domain.Validationf("duplicate relations detected: %s", relKey)
			}
			seen[relKey] = true

			if _, ok := services[rel.Service]; !ok {
				return domain.Validationf(
					"cannot find service %q for %q to connect to in deployment %s",
					rel.Service, serviceName, p.deployment.ID)
			}

			source := p.state.Services[serviceName].Component
			target := p.state.Services[rel.Service].Component

			var sourceEndpoint endpoint
			var providesMatch string
			if requiresKey := source.findRequiresKey(rel); requiresKey != "" {
				p.logger.Debug("relation matched requirement",
					"relation", relKey, "requires_key", requiresKey)
				sourceEndpoint = endpoint{
					definition: source,
					service:    serviceName,
					key:        requiresKey,
					kind:       endpointRequires,
				}
				requirement := source.Requires[requiresKey]
				if !requirement.Satisfied() {
					if err := satisfyRequirement(requirement, requiresKey, target,
						rel.Service, relKey, relKey); err != nil {
						return err
					}
					providesMatch = requirement.SatisfiedBy.ProvidesKey
				} else {
					providesMatch = target.findProvidesKey(rel.Interface, rel.ConnectTo)
				}
			} else if supportsKey := source.findSupportsKey(rel); supportsKey != "" {
				p.logger.Debug("relation matched supports entry",
					"relation", relKey, "supports_key", supportsKey)
				sourceEndpoint = endpoint{
					definition: source,
					service:    serviceName,
					key:        supportsKey,
					kind:       endpointSupports,
				}
				providesMatch = target.findProvidesKey(rel.Interface, rel.ConnectTo)
			} else {
				return domain.Validationf(
					"could not identify valid connection point for relation %q", relKey)
			}

			targetEndpoint := endpoint{
				definition: target,
				service:    rel.Service,
				key:        providesMatch,
			}
			connect(sourceEndpoint, targetEndpoint, rel.Interface, relKey,
				rel.Kind(), relKey, rel.Attribute)
		}
	}
	return nil
}

// ============================================================================
// Requirement Resolution
// ============================================================================

// resolveRemainingRequirements satisfies every requirement relations
// left open by pulling extra components into the owning service.
// Host-relation requirements are remembered so hosting can be wired
// when resources are instantiated.
func (p *Planner) resolveRemainingRequirements(ctx context.Context) error {
	for _, serviceName := range p.state.ServiceNames() {
		servicePlan := p.state.Services[serviceName]
		component := servicePlan.Component

		for _, key := range component.RequiresKeys() {
			requirement := component.Requires[key]
			if requirement.Satisfied() {
				continue
			}

			selector := requirement.Selector()
			found, err := p.identifyComponent(ctx, selector, serviceName, key)
			if err != nil {
				return err
			}
			p.logger.Debug("requirement resolved",
				"service", serviceName, "requirement", key, "component", found.ID)

			extra := NewComponentDefinition(found)
			servicePlan.Extras[key] = extra

			relation := requirement.Relation
			if relation == "" {
				relation = domain.RelationReference
			}
			if relation == domain.RelationHost {
				component.HostKeys = append(component.HostKeys, key)
			}

			if err := satisfyRequirement(requirement, key, extra, serviceName, "", ""); err != nil {
				return err
			}

			connect(
				endpoint{definition: component, service: serviceName, key: key, kind: endpointRequires},
				endpoint{definition: extra, service: serviceName,
					key: requirement.SatisfiedBy.ProvidesKey, extraKey: key},
				requirement.Interface, key, relation, "", "")
		}
	}
	return nil
}

// resolveRecursiveRequirements chases requirements of extra components
// until none remain, pulling in further extra components as needed.
// Pulling the same component twice for one service is a dependency
// loop and aborts planning.
func (p *Planner) resolveRecursiveRequirements(ctx context.Context) error {
	type pending struct {
		service  string
		extraKey string
		reqKey   string
	}
	history := make(map[[2]string]bool)

	for {
		var stack []pending
		for _, serviceName := range p.state.ServiceNames() {
			servicePlan := p.state.Services[serviceName]
			for _, extraKey := range servicePlan.ExtraKeys() {
				extra := servicePlan.Extras[extraKey]
				for _, reqKey := range extra.RequiresKeys() {
					if !extra.Requires[reqKey].Satisfied() {
						stack = append(stack, pending{serviceName, extraKey, reqKey})
					}
				}
			}
		}
		if len(stack) == 0 {
			return nil
		}

		for _, item := range stack {
			servicePlan := p.state.Services[item.service]
			component := servicePlan.Extras[item.extraKey]
			requirement := component.Requires[item.reqKey]
			if requirement.Satisfied() {
				continue
			}

			found, err := p.identifyComponent(ctx, requirement.Selector(), item.service, item.reqKey)
			if err != nil {
				return err
			}

			signature := [2]string{item.service, found.ID}
			if history[signature] {
				return &domain.DependencyLoopError{
					Service:     item.service,
					ComponentID: found.ID,
				}
			}
			history[signature] = true

			target, ok := servicePlan.Extras[item.reqKey]
			switch {
			case ok && target.ID != found.ID:
				return domain.Validationf(
					"extra component key %q in service %q already holds %q, cannot also hold %q",
					item.reqKey, item.service, target.ID, found.ID)
			case !ok:
				target = NewComponentDefinition(found)
				servicePlan.Extras[item.reqKey] = target
			}

			relation := requirement.Relation
			if relation == "" {
				relation = domain.RelationReference
			}

			if err := satisfyRequirement(requirement, item.reqKey, target, item.service, "", ""); err != nil {
				return err
			}

			connect(
				endpoint{definition: component, service: item.service,
					key: item.reqKey, kind: endpointRequires, extraKey: item.extraKey},
				endpoint{definition: target, service: item.service,
					key: requirement.SatisfiedBy.ProvidesKey, extraKey: item.reqKey},
				requirement.Interface, item.reqKey, relation, "", "")
		}
	}
}

// ============================================================================
// Connection Templates
// ============================================================================

// Endpoint kinds on the source side of a connection.
const (
	endpointRequires = "requires"
	endpointSupports = "supports"
)

// endpoint names one side of a connection: a component definition, the
// service it belongs to and the connection point key involved.
type endpoint struct {
	definition *ComponentDefinition
	service    string
	key        string
	kind       string
	extraKey   string
}

// satisfyRequirement marks a requirement as met by the target
// definition. Already satisfied requirements are never re-satisfied.
func satisfyRequirement(requirement *domain.ConnectionPoint, requirementKey string,
	target *ComponentDefinition, targetService, name, relationKey string) error {

	if requirement.Satisfied() {
		return nil
	}
	providesMatch := target.findProvidesKey(requirement.Interface, "")
	if providesMatch == "" {
		return domain.Validationf("could not identify target for requirement %q", requirementKey)
	}
	satisfiedName := name
	if satisfiedName == "" {
		satisfiedName = relationKey
	}
	if satisfiedName == "" {
		satisfiedName = requirementKey
	}
	requirement.SatisfiedBy = &domain.Satisfaction{
		Service:     targetService,
		ComponentID: target.ID,
		ProvidesKey: providesMatch,
		Name:        satisfiedName,
		RelationKey: relationKey,
	}
	return nil
}

// connect writes the connection template on both components. Existing
// entries under the same key are left untouched, which makes the
// operation idempotent.
func connect(source, target endpoint, iface, connectionKey, relationType, relationKey, attribute string) {
	if _, exists := source.definition.Connections[connectionKey]; !exists {
		conn := &Connection{
			Direction:   DirectionOutbound,
			Service:     target.service,
			Interface:   iface,
			Relation:    relationType,
			ProvidesKey: target.key,
			RelationKey: relationKey,
			ExtraKey:    target.extraKey,
			Attribute:   attribute,
		}
		switch source.kind {
		case endpointRequires:
			conn.RequiresKey = source.key
		case endpointSupports:
			conn.SupportsKey = source.key
		}
		source.definition.Connections[connectionKey] = conn
	}

	if _, exists := target.definition.Connections[connectionKey]; !exists {
		target.definition.Connections[connectionKey] = &Connection{
			Direction:   DirectionInbound,
			Service:     source.service,
			Interface:   iface,
			Relation:    relationType,
			ProvidesKey: target.key,
			RelationKey: relationKey,
			ExtraKey:    source.extraKey,
		}
	}
}
