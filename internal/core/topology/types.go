// Package topology parses and validates deployment documents: the
// blueprint (services, options, static resources), the environment
// (provider configurations and catalogs) and operator inputs.
package topology

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/topdeck-io/topdeck/internal/core/domain"
)

// File is one parsed deployment document.
type File struct {
	ID          string             `yaml:"id,omitempty" json:"id,omitempty"`
	Name        string             `yaml:"name,omitempty" json:"name,omitempty"`
	Blueprint   *Blueprint         `yaml:"blueprint" json:"blueprint"`
	Environment *EnvironmentConfig `yaml:"environment" json:"environment"`
	Inputs      map[string]any     `yaml:"inputs,omitempty" json:"inputs,omitempty"`
}

// Blueprint describes the application: its services, the options an
// operator can set and the static resources to generate.
type Blueprint struct {
	ID          string                     `yaml:"id,omitempty" json:"id,omitempty"`
	Name        string                     `yaml:"name,omitempty" json:"name,omitempty"`
	Version     string                     `yaml:"version,omitempty" json:"version,omitempty"`
	Description string                     `yaml:"description,omitempty" json:"description,omitempty"`
	Services    map[string]*Service        `yaml:"services" json:"services"`
	Options     map[string]*Option         `yaml:"options,omitempty" json:"options,omitempty"`
	Resources   map[string]*StaticResource `yaml:"resources,omitempty" json:"resources,omitempty"`
	Meta        map[string]any             `yaml:"meta-data,omitempty" json:"meta-data,omitempty"`
}

// Service is one declared service: the component selector that decides
// what gets built plus its relations to other services.
type Service struct {
	Component   domain.Selector  `yaml:"component" json:"component"`
	Relations   RelationList     `yaml:"relations,omitempty" json:"relations,omitempty"`
	Constraints []map[string]any `yaml:"constraints,omitempty" json:"constraints,omitempty"`
	DisplayName string           `yaml:"display-name,omitempty" json:"display-name,omitempty"`
}

// Option is an operator-settable input with optional constraints and
// constrains bindings that push its value into settings.
type Option struct {
	Label        string           `yaml:"label,omitempty" json:"label,omitempty"`
	Type         string           `yaml:"type,omitempty" json:"type,omitempty"`
	Description  string           `yaml:"description,omitempty" json:"description,omitempty"`
	Default      any              `yaml:"default,omitempty" json:"default,omitempty"`
	Required     any              `yaml:"required,omitempty" json:"required,omitempty"`
	Choice       []any            `yaml:"choice,omitempty" json:"choice,omitempty"`
	Constraints  []map[string]any `yaml:"constraints,omitempty" json:"constraints,omitempty"`
	Constrains   []map[string]any `yaml:"constrains,omitempty" json:"constrains,omitempty"`
	DisplayHints map[string]any   `yaml:"display-hints,omitempty" json:"display-hints,omitempty"`
}

// StaticResource is a blueprint-declared resource generated once per
// deployment, such as a user credential or an RSA key pair.
type StaticResource struct {
	Type       string           `yaml:"type" json:"type"`
	Name       string           `yaml:"name,omitempty" json:"name,omitempty"`
	Password   string           `yaml:"password,omitempty" json:"password,omitempty"`
	PrivateKey string           `yaml:"private_key,omitempty" json:"private_key,omitempty"`
	Constrains []map[string]any `yaml:"constrains,omitempty" json:"constrains,omitempty"`
}

// EnvironmentConfig names the providers available to a deployment and
// carries their configuration.
type EnvironmentConfig struct {
	Name      string                     `yaml:"name,omitempty" json:"name,omitempty"`
	Providers map[string]*ProviderConfig `yaml:"providers" json:"providers"`
}

// ProviderConfig configures one provider entry. Catalog stays raw
// here; ParseCatalog normalizes it into components.
type ProviderConfig struct {
	Vendor      string            `yaml:"vendor,omitempty" json:"vendor,omitempty"`
	Catalog     map[string]any    `yaml:"catalog,omitempty" json:"catalog,omitempty"`
	Constraints []map[string]any  `yaml:"constraints,omitempty" json:"constraints,omitempty"`
	Credentials map[string]string `yaml:"credentials,omitempty" json:"credentials,omitempty"`
	Settings    map[string]any    `yaml:"settings,omitempty" json:"settings,omitempty"`
}

// ============================================================================
// Relation shorthand
// ============================================================================

// RelationList accepts both relation forms in YAML:
//
//	relations:
//	- backend: mysql          # short: service and interface
//	- backend: mysql#reports  # short with a source endpoint tag
//	- service: backend        # long form
//	  interface: mysql
type RelationList []domain.Relation

func (rl *RelationList) UnmarshalYAML(value *yaml.Node) error {
	var raw []map[string]any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	out := make([]domain.Relation, 0, len(raw))
	for _, entry := range raw {
		rel, err := coerceRelation(entry)
		if err != nil {
			return err
		}
		out = append(out, rel)
	}
	*rl = out
	return nil
}

func coerceRelation(entry map[string]any) (domain.Relation, error) {
	if len(entry) == 1 {
		for service, v := range entry {
			iface, ok := v.(string)
			if !ok {
				return domain.Relation{}, fmt.Errorf("short relation %q must map to an interface string, got %T", service, v)
			}
			rel := domain.Relation{Service: service, Interface: iface}
			if name, tag, found := strings.Cut(iface, "#"); found {
				rel.Interface = name
				rel.ConnectFrom = tag
			}
			return rel, nil
		}
	}

	// Long form round-trips through YAML so field tags apply.
	encoded, err := yaml.Marshal(entry)
	if err != nil {
		return domain.Relation{}, err
	}
	var rel domain.Relation
	if err := yaml.Unmarshal(encoded, &rel); err != nil {
		return domain.Relation{}, fmt.Errorf("invalid relation %v: %w", entry, err)
	}
	if rel.Service == "" || rel.Interface == "" {
		return domain.Relation{}, fmt.Errorf("relation %v needs both service and interface", entry)
	}
	return rel, nil
}
