// Package domain holds the value types shared across the planning
// engine: catalog components and their connection points, relations
// between services, and planned resources.
//
// Everything in this package is plain data. Behavior that mutates
// planning state lives in internal/core/plan; this package only
// carries the vocabulary.
package domain

import (
	"fmt"
	"strings"
)

// ============================================================================
// Selectors
// ============================================================================

// Selector narrows a catalog search. Every non-empty field must match
// the candidate component exactly, except that a candidate field set
// to "*" matches any requested value.
type Selector struct {
	ID           string           `yaml:"id,omitempty" json:"id,omitempty"`
	Name         string           `yaml:"name,omitempty" json:"name,omitempty"`
	ResourceType string           `yaml:"resource_type,omitempty" json:"resource_type,omitempty"`
	Interface    string           `yaml:"interface,omitempty" json:"interface,omitempty"`
	Role         string           `yaml:"role,omitempty" json:"role,omitempty"`
	Constraints  []map[string]any `yaml:"constraints,omitempty" json:"constraints,omitempty"`
}

// IsZero reports whether no selector field is set.
func (s Selector) IsZero() bool {
	return s.ID == "" && s.Name == "" && s.ResourceType == "" &&
		s.Interface == "" && s.Role == "" && len(s.Constraints) == 0
}

// String renders the populated fields for error messages and logs.
func (s Selector) String() string {
	parts := make([]string, 0, 5)
	if s.ID != "" {
		parts = append(parts, "id="+s.ID)
	}
	if s.Name != "" {
		parts = append(parts, "name="+s.Name)
	}
	if s.ResourceType != "" {
		parts = append(parts, "resource_type="+s.ResourceType)
	}
	if s.Interface != "" {
		parts = append(parts, "interface="+s.Interface)
	}
	if s.Role != "" {
		parts = append(parts, "role="+s.Role)
	}
	if len(parts) == 0 {
		return "(any)"
	}
	return strings.Join(parts, " ")
}

// ============================================================================
// Connection points
// ============================================================================

// Satisfaction records how a requirement was met. Once set it is never
// replaced; re-satisfying an already satisfied requirement is a no-op.
type Satisfaction struct {
	Service     string `json:"service"`
	ComponentID string `json:"component_id"`
	ProvidesKey string `json:"provides_key"`
	Name        string `json:"name"`
	RelationKey string `json:"relation_key,omitempty"`
}

// ConnectionPoint is one entry in a component's requires, provides or
// supports map. Relation is a hint for requirement resolution:
// "reference" (the default) yields a network connection, "host" means
// the counterpart will physically host this component.
type ConnectionPoint struct {
	Interface    string        `yaml:"interface,omitempty" json:"interface,omitempty"`
	ResourceType string        `yaml:"resource_type,omitempty" json:"resource_type,omitempty"`
	Name         string        `yaml:"name,omitempty" json:"name,omitempty"`
	Relation     string        `yaml:"relation,omitempty" json:"relation,omitempty"`
	SatisfiedBy  *Satisfaction `yaml:"-" json:"satisfied_by,omitempty"`
}

// Satisfied reports whether this point already has a counterpart.
func (cp *ConnectionPoint) Satisfied() bool {
	return cp.SatisfiedBy != nil
}

// Selector derives the catalog query used to find a component that can
// satisfy this point. The relation hint is not part of the query.
func (cp *ConnectionPoint) Selector() Selector {
	return Selector{
		Interface:    cp.Interface,
		ResourceType: cp.ResourceType,
		Name:         cp.Name,
	}
}

// Clone returns a deep copy.
func (cp *ConnectionPoint) Clone() *ConnectionPoint {
	if cp == nil {
		return nil
	}
	out := *cp
	if cp.SatisfiedBy != nil {
		sat := *cp.SatisfiedBy
		out.SatisfiedBy = &sat
	}
	return &out
}

// ============================================================================
// Components
// ============================================================================

// Component is a provider catalog entry: something a provider knows
// how to build, with the connection points it offers and needs.
type Component struct {
	ID           string                      `yaml:"id" json:"id"`
	Provider     string                      `yaml:"provider,omitempty" json:"provider,omitempty"`
	ResourceType string                      `yaml:"resource_type,omitempty" json:"resource_type,omitempty"`
	Name         string                      `yaml:"name,omitempty" json:"name,omitempty"`
	Interface    string                      `yaml:"interface,omitempty" json:"interface,omitempty"`
	Role         string                      `yaml:"role,omitempty" json:"role,omitempty"`
	Requires     map[string]*ConnectionPoint `yaml:"requires,omitempty" json:"requires,omitempty"`
	Provides     map[string]*ConnectionPoint `yaml:"provides,omitempty" json:"provides,omitempty"`
	Supports     map[string]*ConnectionPoint `yaml:"supports,omitempty" json:"supports,omitempty"`
	Properties   map[string]any              `yaml:"properties,omitempty" json:"properties,omitempty"`
}

// Matches reports whether this component satisfies every populated
// selector field. A component field holding "*" matches any requested
// value. An interface request matches either the component's own
// interface or any of its provides points.
func (c *Component) Matches(sel Selector) bool {
	if sel.ID != "" && !fieldMatches(c.ID, sel.ID) {
		return false
	}
	if sel.Name != "" && !fieldMatches(c.Name, sel.Name) {
		return false
	}
	if sel.ResourceType != "" && !fieldMatches(c.ResourceType, sel.ResourceType) {
		return false
	}
	if sel.Role != "" && !fieldMatches(c.Role, sel.Role) {
		return false
	}
	if sel.Interface != "" && !c.offersInterface(sel.Interface) {
		return false
	}
	return true
}

func (c *Component) offersInterface(iface string) bool {
	if fieldMatches(c.Interface, iface) && c.Interface != "" {
		return true
	}
	for _, cp := range c.Provides {
		if fieldMatches(cp.Interface, iface) && cp.Interface != "" {
			return true
		}
	}
	return false
}

func fieldMatches(have, want string) bool {
	return have == want || have == "*"
}

// Clone returns a deep copy. Planning always works on copies so the
// provider catalog is never mutated.
func (c *Component) Clone() *Component {
	if c == nil {
		return nil
	}
	out := *c
	out.Requires = clonePoints(c.Requires)
	out.Provides = clonePoints(c.Provides)
	out.Supports = clonePoints(c.Supports)
	if c.Properties != nil {
		out.Properties = make(map[string]any, len(c.Properties))
		for k, v := range c.Properties {
			out.Properties[k] = v
		}
	}
	return &out
}

func clonePoints(points map[string]*ConnectionPoint) map[string]*ConnectionPoint {
	if points == nil {
		return nil
	}
	out := make(map[string]*ConnectionPoint, len(points))
	for k, cp := range points {
		out[k] = cp.Clone()
	}
	return out
}

// Validate checks the minimum shape a catalog entry must have.
func (c *Component) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("component has no id")
	}
	return nil
}
