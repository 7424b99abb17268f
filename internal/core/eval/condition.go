package eval

import (
	"fmt"
	"strings"
)

// Scopes holds the documents a condition can reference through URIs
// like "inputs://region" or "services://web/component/id". The scheme
// selects the scope; the path walks nested maps.
type Scopes map[string]any

// Condition evaluates a condition document to a boolean. Supported
// forms: literal bools, scope URIs (truthy lookup), and maps with one
// of the keys if, if-not, and, or, exists, not-exists, value.
func Condition(doc any, scopes Scopes) (bool, error) {
	v, err := resolve(doc, scopes)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

func resolve(doc any, scopes Scopes) (any, error) {
	switch d := doc.(type) {
	case bool, nil, int, int64, float64:
		return d, nil
	case string:
		if isScopeURI(d) {
			return lookupURI(d, scopes), nil
		}
		return d, nil
	case map[string]any:
		return resolveMap(d, scopes)
	default:
		return nil, fmt.Errorf("cannot evaluate %T in condition", doc)
	}
}

func resolveMap(doc map[string]any, scopes Scopes) (any, error) {
	if inner, ok := doc["if"]; ok {
		return Condition(inner, scopes)
	}
	if inner, ok := doc["if-not"]; ok {
		v, err := Condition(inner, scopes)
		return !v, err
	}
	if inner, ok := doc["or"]; ok {
		list, ok := inner.([]any)
		if !ok {
			return nil, fmt.Errorf("'or' expects a list, got %T", inner)
		}
		for _, item := range list {
			v, err := Condition(item, scopes)
			if err != nil {
				return nil, err
			}
			if v {
				return true, nil
			}
		}
		return false, nil
	}
	if inner, ok := doc["and"]; ok {
		list, ok := inner.([]any)
		if !ok {
			return nil, fmt.Errorf("'and' expects a list, got %T", inner)
		}
		for _, item := range list {
			v, err := Condition(item, scopes)
			if err != nil {
				return nil, err
			}
			if !v {
				return false, nil
			}
		}
		return true, nil
	}
	if inner, ok := doc["exists"]; ok {
		uri, ok := inner.(string)
		if !ok || !isScopeURI(uri) {
			return nil, fmt.Errorf("'exists' expects a scope URI")
		}
		return lookupURI(uri, scopes) != nil, nil
	}
	if inner, ok := doc["not-exists"]; ok {
		uri, ok := inner.(string)
		if !ok || !isScopeURI(uri) {
			return nil, fmt.Errorf("'not-exists' expects a scope URI")
		}
		return lookupURI(uri, scopes) == nil, nil
	}
	if inner, ok := doc["value"]; ok {
		return resolve(inner, scopes)
	}
	return nil, fmt.Errorf("unrecognized condition keys in %v", doc)
}

func isScopeURI(s string) bool {
	return strings.Contains(s, "://")
}

func lookupURI(uri string, scopes Scopes) any {
	scheme, path, _ := strings.Cut(uri, "://")
	doc, ok := scopes[scheme]
	if !ok {
		return nil
	}
	if path == "" {
		return doc
	}
	return LookupPath(doc, path)
}

// LookupPath walks a nested map document along a "/"-separated path.
// Returns nil when any segment is missing.
func LookupPath(doc any, path string) any {
	current := doc
	for _, segment := range strings.Split(path, "/") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[segment]
		if !ok {
			return nil
		}
	}
	return current
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	default:
		return true
	}
}
