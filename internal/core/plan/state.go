package plan

import (
	"sort"

	"github.com/topdeck-io/topdeck/internal/core/domain"
)

// ============================================================================
// Planning State
// ============================================================================

// PlanningState is the scratch space a single planning run builds up:
// per-service component definitions, the extra components pulled in by
// requirement resolution, and the connection templates between them.
// It is created fresh for every run and discarded once resources are
// materialized.
type PlanningState struct {
	Services map[string]*ServicePlan
}

// NewPlanningState initializes empty per-service plans.
func NewPlanningState(serviceNames []string) *PlanningState {
	services := make(map[string]*ServicePlan, len(serviceNames))
	for _, name := range serviceNames {
		services[name] = &ServicePlan{
			Extras: make(map[string]*ComponentDefinition),
		}
	}
	return &PlanningState{Services: services}
}

// ServiceNames returns the planned services in stable order.
func (s *PlanningState) ServiceNames() []string {
	names := make([]string, 0, len(s.Services))
	for name := range s.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ServicePlan is the planning state of one declared service: the
// component its selector resolved to and any extra components pulled
// in to satisfy that component's requirements.
type ServicePlan struct {
	Component *ComponentDefinition
	Extras    map[string]*ComponentDefinition
}

// ExtraKeys returns the extra component keys in stable order.
func (sp *ServicePlan) ExtraKeys() []string {
	keys := make([]string, 0, len(sp.Extras))
	for key := range sp.Extras {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Definition returns the service's own component for an empty extra
// key, otherwise the named extra component.
func (sp *ServicePlan) Definition(extraKey string) *ComponentDefinition {
	if extraKey == "" {
		return sp.Component
	}
	return sp.Extras[extraKey]
}

// ============================================================================
// Component Definitions
// ============================================================================

// ComponentDefinition is a catalog component copied into planning
// state, enriched with the connections resolved onto it, the resource
// indices instantiated from it and the extra-component keys that will
// host it.
type ComponentDefinition struct {
	ID           string
	Provider     string
	ResourceType string
	Interface    string
	Name         string
	Role         string
	Requires     map[string]*domain.ConnectionPoint
	Provides     map[string]*domain.ConnectionPoint
	Supports     map[string]*domain.ConnectionPoint
	Properties   map[string]any

	Connections map[string]*Connection
	Instances   []domain.ResourceIndex
	HostKeys    []string
}

// NewComponentDefinition deep-copies a catalog component into planning
// state. The catalog itself is never mutated.
func NewComponentDefinition(c *domain.Component) *ComponentDefinition {
	copied := c.Clone()
	return &ComponentDefinition{
		ID:           copied.ID,
		Provider:     copied.Provider,
		ResourceType: copied.ResourceType,
		Interface:    copied.Interface,
		Name:         copied.Name,
		Role:         copied.Role,
		Requires:     copied.Requires,
		Provides:     copied.Provides,
		Supports:     copied.Supports,
		Properties:   copied.Properties,
		Connections:  make(map[string]*Connection),
	}
}

// RequiresKeys returns the requirement keys in stable order.
func (cd *ComponentDefinition) RequiresKeys() []string {
	keys := make([]string, 0, len(cd.Requires))
	for key := range cd.Requires {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ConnectionKeys returns the connection keys in stable order.
func (cd *ComponentDefinition) ConnectionKeys() []string {
	keys := make([]string, 0, len(cd.Connections))
	for key := range cd.Connections {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// IsHostKey reports whether extraKey was recorded as a hosting
// requirement of this component.
func (cd *ComponentDefinition) IsHostKey(extraKey string) bool {
	for _, key := range cd.HostKeys {
		if key == extraKey {
			return true
		}
	}
	return false
}

// findRequiresKey returns the first unsatisfied requirement speaking
// the relation's interface, in stable key order.
func (cd *ComponentDefinition) findRequiresKey(rel domain.Relation) string {
	for _, key := range cd.RequiresKeys() {
		cp := cd.Requires[key]
		if cp.Satisfied() {
			continue
		}
		if cp.Interface == rel.Interface {
			return key
		}
	}
	return ""
}

// findSupportsKey returns the first unsatisfied supports entry
// speaking the relation's interface whose tag matches the relation's
// connect-from tag.
func (cd *ComponentDefinition) findSupportsKey(rel domain.Relation) string {
	keys := make([]string, 0, len(cd.Supports))
	for key := range cd.Supports {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		cp := cd.Supports[key]
		if cp.Satisfied() {
			continue
		}
		if cp.Interface == rel.Interface && cp.Name == rel.ConnectFrom {
			return key
		}
	}
	return ""
}

// findProvidesKey returns the first provides entry speaking the
// interface, honoring the relation's connect-to tag when present.
func (cd *ComponentDefinition) findProvidesKey(iface, connectTo string) string {
	keys := make([]string, 0, len(cd.Provides))
	for key := range cd.Provides {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		cp := cd.Provides[key]
		if cp.Interface != iface {
			continue
		}
		if connectTo != "" && cp.Name != connectTo {
			continue
		}
		return key
	}
	return ""
}

// ============================================================================
// Connections
// ============================================================================

// Connection directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Connection is one resolved connection template on a component
// definition. Materialization later fans each template out across the
// instances of both components.
type Connection struct {
	// Direction is outbound on the requiring side, inbound on the
	// providing side.
	Direction string
	// Service is the counterpart's service name.
	Service string
	// Interface both sides speak.
	Interface string
	// Relation is "reference" or "host".
	Relation string
	// ExtraKey is set when the counterpart is an extra component.
	ExtraKey string

	ProvidesKey string
	RequiresKey string
	SupportsKey string
	RelationKey string
	Attribute   string

	// OutboundFrom pins this connection to a single source instance.
	// Used by vip components so each instance fans out to exactly one
	// target pool member.
	OutboundFrom domain.ResourceIndex
}
