package deployment

import (
	"strconv"
	"strings"

	"github.com/topdeck-io/topdeck/internal/core/domain"
	"github.com/topdeck-io/topdeck/internal/core/eval"
)

// SettingQuery scopes a GetSetting lookup. Any field may be empty;
// empty fields skip the layers that need them.
type SettingQuery struct {
	ResourceType string
	ServiceName  string
	ProviderKey  string
	Relation     *domain.Relation
	Default      any
}

// GetSetting resolves a named setting through the deployment's layered
// sources, most specific first:
//
//  1. attributes on the querying relation
//  2. service-scoped inputs
//  3. service constraints in the blueprint
//  4. provider-scoped inputs
//  5. constrains on blueprint static resources
//  6. constrains on blueprint options
//  7. blueprint inputs
//  8. global inputs
//  9. provider constraints in the environment (the provider's own
//     entry, then "common")
//  10. resource paths ("resources/<index>/<field>")
//  11. the query default
func (d *Deployment) GetSetting(name string, q SettingQuery) any {
	if name == "" {
		return q.Default
	}

	if q.Relation != nil {
		if v, ok := q.Relation.Attributes[name]; ok {
			return v
		}
	}

	if q.ServiceName != "" {
		if v, ok := d.inputServiceOverride(name, q.ServiceName, q.ResourceType); ok {
			return v
		}
		if v, ok := d.serviceConstraint(name, q.ServiceName, q); ok {
			return v
		}
	}

	if q.ProviderKey != "" {
		if v, ok := d.inputProviderOverride(name, q.ProviderKey, q.ResourceType); ok {
			return v
		}
	}

	if v, ok := d.staticResourceConstraint(name, q); ok {
		return v
	}
	if v, ok := d.optionConstraint(name, q); ok {
		return v
	}
	if v, ok := d.Inputs.Blueprint[name]; ok {
		return v
	}
	if v, ok := d.Inputs.Global[name]; ok {
		return v
	}

	if q.ProviderKey != "" {
		if v, ok := d.environmentProviderConstraint(name, q.ProviderKey); ok {
			return v
		}
		if v, ok := d.environmentProviderConstraint(name, "common"); ok {
			return v
		}
	}

	if strings.HasPrefix(name, "resources/") {
		if v, ok := d.resourcePath(name); ok {
			return v
		}
	}

	return q.Default
}

// ConstrainedToOne reports whether a service's blueprint constraints
// pin its resource count to exactly one.
func (d *Deployment) ConstrainedToOne(serviceName string) bool {
	svc, ok := d.Blueprint.Services[serviceName]
	if !ok {
		return false
	}
	for _, doc := range normalizeConstraints(svc.Constraints) {
		if doc.setting == "count" {
			if n, ok := ToInt(doc.value); ok && n == 1 {
				return true
			}
		}
	}
	return false
}

// ============================================================================
// Layers
// ============================================================================

func (d *Deployment) inputServiceOverride(name, serviceName, resourceType string) (any, bool) {
	return scopedOverride(d.Inputs.Services, name, serviceName, resourceType)
}

func (d *Deployment) inputProviderOverride(name, providerKey, resourceType string) (any, bool) {
	return scopedOverride(d.Inputs.Providers, name, providerKey, resourceType)
}

// scopedOverride reads scope/<key>/<resourceType>/<name>, falling back
// to scope/<key>/<name>.
func scopedOverride(scope map[string]any, name, key, resourceType string) (any, bool) {
	entry, ok := scope[key].(map[string]any)
	if !ok {
		return nil, false
	}
	if resourceType != "" {
		if typed, ok := entry[resourceType].(map[string]any); ok {
			if v, ok := typed[name]; ok {
				return v, true
			}
		}
	}
	if v, ok := entry[name]; ok {
		if _, nested := v.(map[string]any); !nested {
			return v, true
		}
	}
	return nil, false
}

func (d *Deployment) serviceConstraint(name, serviceName string, q SettingQuery) (any, bool) {
	svc, ok := d.Blueprint.Services[serviceName]
	if !ok {
		return nil, false
	}
	for _, doc := range normalizeConstraints(svc.Constraints) {
		if doc.applies(name, q) && doc.hasValue {
			return doc.value, true
		}
	}
	for _, doc := range normalizeConstraints(svc.Component.Constraints) {
		if doc.applies(name, q) && doc.hasValue {
			return doc.value, true
		}
	}
	return nil, false
}

// staticResourceConstraint serves settings bound to generated static
// resources: a constrains entry on a blueprint resource exposes one of
// the planned resource's instance attributes.
func (d *Deployment) staticResourceConstraint(name string, q SettingQuery) (any, bool) {
	for key, res := range d.Blueprint.Resources {
		for _, doc := range normalizeConstraints(res.Constrains) {
			if !doc.applies(name, q) {
				continue
			}
			planned, ok := d.Resources[domain.NamedIndex(key)]
			if !ok || planned.Instance == nil {
				continue
			}
			attribute := doc.attribute
			if attribute == "" {
				attribute = name
			}
			if v, ok := planned.Instance[attribute]; ok {
				return v, true
			}
		}
	}
	return nil, false
}

// optionConstraint serves settings an option's constrains entries bind
// to, using the operator's value for the option or its default.
func (d *Deployment) optionConstraint(name string, q SettingQuery) (any, bool) {
	for optionName, option := range d.Blueprint.Options {
		if option == nil {
			continue
		}
		for _, doc := range normalizeConstraints(option.Constrains) {
			if !doc.applies(name, q) {
				continue
			}
			if v, ok := d.Inputs.OptionValue(optionName); ok {
				return v, true
			}
			if option.Default != nil && !eval.IsExpression(option.Default) {
				return option.Default, true
			}
		}
	}
	return nil, false
}

func (d *Deployment) environmentProviderConstraint(name, providerKey string) (any, bool) {
	provider, ok := d.Environment.Providers[providerKey]
	if !ok || provider == nil {
		return nil, false
	}
	for _, doc := range normalizeConstraints(provider.Constraints) {
		if doc.setting == name && doc.hasValue {
			return doc.value, true
		}
	}
	return nil, false
}

// resourcePath reads "resources/<index>/<field>" from the planned
// resources. Instance attributes resolve through the instance map.
func (d *Deployment) resourcePath(path string) (any, bool) {
	segments := strings.Split(path, "/")
	if len(segments) < 3 {
		return nil, false
	}
	resource, ok := d.Resources[domain.ResourceIndex(segments[1])]
	if !ok {
		return nil, false
	}
	field := segments[2]
	rest := segments[3:]

	switch field {
	case "instance":
		if resource.Instance == nil {
			return nil, false
		}
		if len(rest) == 0 {
			return resource.Instance, true
		}
		v := eval.LookupPath(resource.Instance, strings.Join(rest, "/"))
		return v, v != nil
	case "type":
		return resource.Type, true
	case "service":
		return resource.Service, true
	case "provider":
		return resource.Provider, true
	case "component":
		return resource.Component, true
	case "dns-name":
		return resource.DNSName, true
	case "status":
		return string(resource.Status), true
	case "hosted-on":
		return string(resource.HostedOn), resource.HostedOn != ""
	default:
		// Fall back to the instance map for shorthand paths like
		// "resources/user/name".
		if resource.Instance != nil {
			if v, ok := resource.Instance[field]; ok {
				return v, true
			}
		}
		return nil, false
	}
}

// ============================================================================
// Constraint documents
// ============================================================================

// constraintDoc is the normalized form of one constraints/constrains
// entry. The shorthand {count: 1} expands to {setting: count, value: 1}.
type constraintDoc struct {
	setting      string
	value        any
	hasValue     bool
	attribute    string
	serviceName  string
	resourceType string
	providerKey  string
}

func normalizeConstraints(docs []map[string]any) []constraintDoc {
	out := make([]constraintDoc, 0, len(docs))
	for _, raw := range docs {
		if len(raw) == 1 {
			for k, v := range raw {
				if k != "setting" {
					out = append(out, constraintDoc{setting: k, value: v, hasValue: true})
					continue
				}
				if s, ok := v.(string); ok {
					out = append(out, constraintDoc{setting: s})
				}
			}
			continue
		}
		doc := constraintDoc{}
		doc.setting, _ = raw["setting"].(string)
		doc.value, doc.hasValue = raw["value"]
		doc.attribute, _ = raw["attribute"].(string)
		doc.serviceName, _ = raw["service"].(string)
		doc.resourceType, _ = raw["resource_type"].(string)
		doc.providerKey, _ = raw["provider"].(string)
		out = append(out, doc)
	}
	return out
}

// applies reports whether this entry binds the named setting within
// the query's scope.
func (c constraintDoc) applies(name string, q SettingQuery) bool {
	if c.setting != name {
		return false
	}
	if c.serviceName != "" && q.ServiceName != "" && c.serviceName != q.ServiceName {
		return false
	}
	if c.resourceType != "" && q.ResourceType != "" && c.resourceType != q.ResourceType {
		return false
	}
	if c.providerKey != "" && q.ProviderKey != "" && c.providerKey != q.ProviderKey {
		return false
	}
	return true
}

// ToInt coerces a setting value to an int. YAML and JSON decoding
// hand back int, int64 or float64 for numbers; inputs passed through
// query strings arrive as digit strings.
func ToInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		out, err := strconv.Atoi(n)
		if err != nil || out < 0 {
			return 0, false
		}
		return out, true
	default:
		return 0, false
	}
}
