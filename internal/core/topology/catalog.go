package topology

import (
	"fmt"
	"strings"

	"github.com/topdeck-io/topdeck/internal/core/domain"
)

// ParseCatalog normalizes a raw provider catalog into components. The
// catalog groups components by resource type:
//
//	catalog:
//	  application:
//	    my_app:
//	      image: nginx
//	  database:
//	    my_db:
//	      provides:
//	      - database: mysql
//
// Each component is stamped with its id, resource type and the owning
// provider key.
func ParseCatalog(providerKey string, raw map[string]any) (map[string]*domain.Component, error) {
	components := make(map[string]*domain.Component)
	for resourceType, group := range raw {
		entries, ok := group.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("catalog group %q must be a map of components, got %T", resourceType, group)
		}
		for id, entry := range entries {
			doc, ok := entry.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("catalog component %q must be a map, got %T", id, entry)
			}
			component, err := coerceComponent(id, providerKey, resourceType, doc)
			if err != nil {
				return nil, fmt.Errorf("catalog component %q: %w", id, err)
			}
			components[id] = component
		}
	}
	return components, nil
}

func coerceComponent(id, providerKey, resourceType string, doc map[string]any) (*domain.Component, error) {
	component := &domain.Component{
		ID:           id,
		Provider:     providerKey,
		ResourceType: resourceType,
	}

	properties := make(map[string]any)
	for key, value := range doc {
		switch key {
		case "id":
			if s, ok := value.(string); ok && s != "" {
				component.ID = s
			}
		case "name":
			component.Name, _ = value.(string)
		case "role":
			component.Role, _ = value.(string)
		case "interface":
			component.Interface, _ = value.(string)
		case "is", "type", "resource_type":
			if s, ok := value.(string); ok && s != "" {
				component.ResourceType = s
			}
		case "requires":
			points, err := coercePoints(value)
			if err != nil {
				return nil, fmt.Errorf("requires: %w", err)
			}
			component.Requires = points
		case "provides":
			points, err := coercePoints(value)
			if err != nil {
				return nil, fmt.Errorf("provides: %w", err)
			}
			component.Provides = points
		case "supports":
			points, err := coercePoints(value)
			if err != nil {
				return nil, fmt.Errorf("supports: %w", err)
			}
			component.Supports = points
		default:
			properties[key] = value
		}
	}
	if len(properties) > 0 {
		component.Properties = properties
	}
	return component, component.Validate()
}

// coercePoints accepts both connection point forms:
//
//	provides:
//	- database: mysql            # short: resource type and interface
//	- host: linux#admin          # short with an endpoint tag
//	- interface: mysql           # long form, keyed by name or pair
//	  resource_type: database
//	  relation: reference
func coercePoints(raw any) (map[string]*domain.ConnectionPoint, error) {
	switch v := raw.(type) {
	case []any:
		points := make(map[string]*domain.ConnectionPoint, len(v))
		for _, item := range v {
			entry, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("connection point must be a map, got %T", item)
			}
			key, point, err := coercePoint(entry)
			if err != nil {
				return nil, err
			}
			if _, exists := points[key]; exists {
				return nil, fmt.Errorf("duplicate connection point %q", key)
			}
			points[key] = point
		}
		return points, nil
	case map[string]any:
		points := make(map[string]*domain.ConnectionPoint, len(v))
		for key, item := range v {
			entry, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("connection point %q must be a map, got %T", key, item)
			}
			point := pointFromLongForm(entry)
			points[key] = point
		}
		return points, nil
	default:
		return nil, fmt.Errorf("expected a list or map of connection points, got %T", raw)
	}
}

func coercePoint(entry map[string]any) (string, *domain.ConnectionPoint, error) {
	if len(entry) == 1 {
		for resourceType, v := range entry {
			if isPointField(resourceType) {
				break
			}
			iface, ok := v.(string)
			if !ok {
				return "", nil, fmt.Errorf("short connection point %q must map to an interface string, got %T", resourceType, v)
			}
			point := &domain.ConnectionPoint{ResourceType: resourceType, Interface: iface}
			if name, tag, found := strings.Cut(iface, "#"); found {
				point.Interface = name
				point.Name = tag
			}
			// "host" is not a resource type: it asks for something
			// that can physically host this component.
			if resourceType == "host" {
				point.ResourceType = ""
				point.Relation = domain.RelationHost
			}
			return resourceType + ":" + point.Interface, point, nil
		}
	}

	point := pointFromLongForm(entry)
	if point.Interface == "" {
		return "", nil, fmt.Errorf("connection point %v has no interface", entry)
	}
	key := point.Name
	if key == "" {
		key = point.ResourceType + ":" + point.Interface
	}
	return key, point, nil
}

func pointFromLongForm(entry map[string]any) *domain.ConnectionPoint {
	point := &domain.ConnectionPoint{}
	point.Interface, _ = entry["interface"].(string)
	point.ResourceType, _ = entry["resource_type"].(string)
	point.Name, _ = entry["name"].(string)
	point.Relation, _ = entry["relation"].(string)
	return point
}

func isPointField(key string) bool {
	switch key {
	case "interface", "resource_type", "name", "relation":
		return true
	}
	return false
}
