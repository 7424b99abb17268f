package plan

import (
	"context"
	"fmt"
	"sort"

	"github.com/topdeck-io/topdeck/internal/core/deployment"
	"github.com/topdeck-io/topdeck/internal/core/domain"
)

// ============================================================================
// Resource Instantiation
// ============================================================================

// addResources instantiates resources for every service, honoring the
// per-service "count" setting. Services selecting database-replica
// components are processed last so their primaries exist first.
func (p *Planner) addResources(ctx context.Context) error {
	var pre, post []string
	for _, serviceName := range p.state.ServiceNames() {
		service := p.deployment.Blueprint.Services[serviceName]
		if service.Component.ResourceType == "database-replica" {
			post = append(post, serviceName)
		} else {
			pre = append(pre, serviceName)
		}
	}

	for _, serviceName := range append(pre, post...) {
		if err := p.addServiceResources(ctx, serviceName); err != nil {
			return err
		}
	}
	return nil
}

func (p *Planner) addServiceResources(ctx context.Context, serviceName string) error {
	definition := p.state.Services[serviceName].Component

	provider, err := p.provider(ctx, definition.Provider)
	if err != nil {
		return err
	}
	component, err := provider.GetComponent(ctx, definition.ID)
	if err != nil {
		return err
	}

	count := 1
	if n, ok := deployment.ToInt(p.deployment.GetSetting("count", deployment.SettingQuery{
		ProviderKey:  definition.Provider,
		ResourceType: component.ResourceType,
		ServiceName:  serviceName,
		Default:      1,
	})); ok {
		count = n
	}

	p.logger.Debug("adding service resources",
		"service", serviceName, "component", definition.ID, "count", count)

	for instance := 1; instance <= count; instance++ {
		if err := p.addResourceForService(ctx, serviceName, instance); err != nil {
			return err
		}
	}
	return nil
}

// addResourceForService creates the templates for one instance of a
// service: the main component's resources plus one resource per extra
// component, wiring hosting relations between them immediately.
func (p *Planner) addResourceForService(ctx context.Context, serviceName string, instance int) error {
	servicePlan := p.state.Services[serviceName]
	definition := servicePlan.Component

	resources, err := p.createResourceTemplates(ctx, instance, definition, serviceName)
	if err != nil {
		return err
	}
	for _, resource := range resources {
		resource.Status = domain.ResourceStatusPlanned
		if resource.Component != definition.ID {
			// Extra resource supplied by the provider: tracked in the
			// plan but not listed on the component definition.
			p.addResource(resource, nil, "")
			continue
		}
		p.addResource(resource, definition, serviceName)

		for _, extraKey := range servicePlan.ExtraKeys() {
			extraDef := servicePlan.Extras[extraKey]
			extraResources, err := p.createResourceTemplates(ctx, instance, extraDef, serviceName)
			if err != nil {
				return err
			}
			for _, extraResource := range extraResources {
				extraResource.Status = domain.ResourceStatusPlanned
				if extraResource.Component != extraDef.ID {
					p.addResource(extraResource, nil, "")
					continue
				}
				p.addResource(extraResource, extraDef, "")

				if !definition.IsHostKey(extraKey) {
					continue
				}
				conn, ok := definition.Connections[extraKey]
				if !ok || conn.Relation == domain.RelationReference ||
					conn.Direction == DirectionInbound {
					continue
				}
				if err := connectInstances(resource, extraResource, conn, extraKey); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// createResourceTemplates asks the component's provider for resource
// templates and applies plan defaults.
func (p *Planner) createResourceTemplates(ctx context.Context, instance int,
	definition *ComponentDefinition, serviceName string) ([]*domain.Resource, error) {

	provider, err := p.provider(ctx, definition.Provider)
	if err != nil {
		return nil, err
	}
	resources, err := provider.GenerateTemplate(ctx, TemplateRequest{
		Deployment:   p.deployment,
		Definition:   definition,
		ResourceType: definition.ResourceType,
		ServiceName:  serviceName,
		Index:        instance,
		ProviderKey:  definition.Provider,
	})
	if err != nil {
		return nil, fmt.Errorf("generating template for component %q: %w", definition.ID, err)
	}

	for _, resource := range resources {
		if resource.Component == "" {
			resource.Component = definition.ID
		}
		if resource.Status == "" {
			resource.Status = domain.ResourceStatusNew
		}
		if resource.Instance == nil {
			resource.Instance = make(map[string]any)
		}
		if resource.DesiredState == nil {
			resource.DesiredState = make(map[string]any)
		}
	}
	return resources, nil
}

// addResource registers a resource under the next numeric index unless
// the provider already assigned one, and records the instance on its
// component definition. Instances of vip components pin their
// connections so each instance fans out to one pool member.
func (p *Planner) addResource(resource *domain.Resource, definition *ComponentDefinition, serviceName string) {
	index := resource.Index
	if index == "" {
		index = p.deployment.NextResourceIndex()
		resource.Index = index
	}

	p.deployment.Resources[index] = resource
	if definition == nil {
		return
	}
	definition.Instances = append(definition.Instances, index)

	if serviceName == "" {
		return
	}
	service := p.deployment.Blueprint.Services[serviceName]
	if service == nil || service.Component.Interface != "vip" {
		return
	}
	keys := definition.ConnectionKeys()
	if len(keys) == 0 {
		return
	}
	n, ok := index.Numeric()
	if !ok {
		return
	}
	pinned := keys[n%len(keys)]
	definition.Connections[pinned].OutboundFrom = index
	p.logger.Debug("pinned vip connection", "connection", pinned, "instance", index)
}

// addBYOResources merges bring-your-own resources from the inputs.
// Resources carrying their own index keep it; the rest get the next
// numeric index.
func (p *Planner) addBYOResources(context.Context) error {
	for _, raw := range p.deployment.Inputs.Resources {
		resource := resourceFromInput(raw)
		if resource.Index == "" {
			resource.Index = p.deployment.NextResourceIndex()
		}
		if resource.Status == "" {
			resource.Status = domain.ResourceStatusPlanned
		}
		p.deployment.Resources[resource.Index] = resource
	}
	return nil
}

func resourceFromInput(raw map[string]any) *domain.Resource {
	resource := &domain.Resource{}
	if v, ok := raw["index"].(string); ok {
		resource.Index = domain.ResourceIndex(v)
	}
	resource.Type, _ = raw["type"].(string)
	resource.Provider, _ = raw["provider"].(string)
	resource.Service, _ = raw["service"].(string)
	resource.Component, _ = raw["component"].(string)
	resource.DNSName, _ = raw["dns-name"].(string)
	if v, ok := raw["status"].(string); ok {
		resource.Status = domain.ResourceStatus(v)
	}
	if v, ok := raw["instance"].(map[string]any); ok {
		resource.Instance = v
	}
	return resource
}

// ============================================================================
// Connection Materialization
// ============================================================================

// connectResources walks every instantiated resource and writes its
// relation records from the connection templates.
func (p *Planner) connectResources(context.Context) error {
	p.logger.Debug("connecting resources")
	for _, serviceName := range p.state.ServiceNames() {
		servicePlan := p.state.Services[serviceName]

		for _, index := range servicePlan.Component.Instances {
			if err := p.connectResource(p.deployment.Resources[index], servicePlan.Component); err != nil {
				return err
			}
		}
		for _, extraKey := range servicePlan.ExtraKeys() {
			extraDef := servicePlan.Extras[extraKey]
			for _, index := range extraDef.Instances {
				if err := p.connectResource(p.deployment.Resources[index], extraDef); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// connectResource fans a resource's connection templates out across
// the counterpart's instances. Pinned connections only fire for their
// pinned instance; host relations connect only to the actual host and
// are never written from the host's side.
func (p *Planner) connectResource(resource *domain.Resource, definition *ComponentDefinition) error {
	for _, key := range definition.ConnectionKeys() {
		conn := definition.Connections[key]
		if conn.OutboundFrom != "" && conn.OutboundFrom != resource.Index {
			continue
		}
		if conn.Relation == domain.RelationHost && conn.Direction == DirectionInbound {
			continue
		}

		targetService, ok := p.state.Services[conn.Service]
		if !ok {
			return domain.Validationf("connection %q names unknown service %q", key, conn.Service)
		}
		targetDef := targetService.Definition(conn.ExtraKey)
		if targetDef == nil {
			return domain.Validationf("connection %q names unknown extra component %q", key, conn.ExtraKey)
		}

		var instances []domain.ResourceIndex
		if pinned, ok := targetDef.Connections[resource.Service]; ok && pinned.OutboundFrom != "" {
			instances = []domain.ResourceIndex{pinned.OutboundFrom}
		} else if conn.Relation == domain.RelationHost {
			// Outbound host connection: connect only to the host.
			if resource.HostedOn == "" {
				return nil
			}
			instances = []domain.ResourceIndex{resource.HostedOn}
		} else {
			instances = targetDef.Instances
		}

		for _, targetIndex := range instances {
			target, ok := p.deployment.Resources[targetIndex]
			if !ok {
				return domain.Validationf("connection %q targets unknown resource %q", key, targetIndex)
			}
			if err := connectInstances(resource, target, conn, key); err != nil {
				return err
			}
		}
	}
	return nil
}

// connectInstances writes one relation record on resource. Host
// relations write under the fixed key "host"; everything else writes
// under "<connection key>-<target index>". Writing an identical record
// twice is a no-op; a different record under an existing key is a
// conflict.
func connectInstances(resource, target *domain.Resource, conn *Connection, connectionKey string) error {
	relationType := conn.Relation
	if relationType == "" {
		relationType = domain.RelationReference
	}

	writeKey := fmt.Sprintf("%s-%s", connectionKey, target.Index)
	if relationType == domain.RelationHost {
		writeKey = "host"
	}

	record := domain.RelationRecord{
		Interface:   conn.Interface,
		State:       domain.RelationStatePlanned,
		Name:        connectionKey,
		Relation:    relationType,
		RelationKey: conn.RelationKey,
		Attribute:   conn.Attribute,
	}
	switch conn.Direction {
	case DirectionInbound:
		record.Source = target.Index
		record.ProvidesKey = conn.ProvidesKey
	case DirectionOutbound:
		record.Target = target.Index
		record.RequiresKey = conn.RequiresKey
		record.SupportsKey = conn.SupportsKey
	}

	if existing, ok := resource.Relations[writeKey]; ok {
		if existing.Equal(record) {
			return nil
		}
		return domain.Validationf(
			"conflicting relation named %q exists in service %q", writeKey, target.Service)
	}

	if relationType == domain.RelationHost {
		if resource.HostedOn != "" && resource.HostedOn != target.Index {
			return domain.Validationf(
				"resource %q is already set to be hosted on %q, cannot change host to %q",
				resource.Index, resource.HostedOn, target.Index)
		}
		resource.HostedOn = target.Index
		target.AddHost(resource.Index)
	}

	resource.SetRelation(writeKey, record)
	return nil
}

// provider returns a configured provider by key, loading the provider
// map on first use.
func (p *Planner) provider(ctx context.Context, key string) (Provider, error) {
	if p.providers == nil {
		providers, err := p.env.Providers(ctx)
		if err != nil {
			return nil, err
		}
		p.providers = providers
	}
	provider, ok := p.providers[key]
	if !ok {
		return nil, domain.Validationf("no provider configured under key %q", key)
	}
	return provider, nil
}

// sortedResourceIndices returns a deployment's resource indices in
// stable order: numeric indices first in numeric order, then named
// indices alphabetically.
func sortedResourceIndices(resources map[domain.ResourceIndex]*domain.Resource) []domain.ResourceIndex {
	indices := make([]domain.ResourceIndex, 0, len(resources))
	for index := range resources {
		indices = append(indices, index)
	}
	sort.Slice(indices, func(i, j int) bool {
		ni, iok := indices[i].Numeric()
		nj, jok := indices[j].Numeric()
		switch {
		case iok && jok:
			return ni < nj
		case iok:
			return true
		case jok:
			return false
		default:
			return indices[i] < indices[j]
		}
	})
	return indices
}
