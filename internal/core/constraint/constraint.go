// Package constraint evaluates the declarative value constraints a
// blueprint can attach to options and settings: regular expressions,
// membership lists, protocol scheme checks, numeric comparisons and
// static pass/fail flags.
package constraint

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Constraint checks a single candidate value.
type Constraint interface {
	// Test reports whether value satisfies the constraint.
	Test(value any) bool
	// Message is the failure text shown to the operator.
	Message() string
}

// Comparison verbs, in evaluation order.
var comparisonVerbs = []string{
	"less-than",
	"greater-than",
	"less-than-or-equal-to",
	"greater-than-or-equal-to",
}

var comparisonText = map[string]string{
	"less-than":                "less than",
	"greater-than":             "greater than",
	"less-than-or-equal-to":    "less than or equal to",
	"greater-than-or-equal-to": "greater than or equal to",
}

// FromDocument builds a Constraint from its parsed YAML form. The
// document keys decide the kind: regex, in, protocols, check, or one
// or more comparison verbs.
func FromDocument(doc map[string]any) (Constraint, error) {
	message, _ := doc["message"].(string)

	if expr, ok := doc["regex"]; ok {
		pattern, ok := expr.(string)
		if !ok {
			return nil, fmt.Errorf("regex constraint value must be a string, got %T", expr)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex constraint %q: %w", pattern, err)
		}
		return &regexConstraint{re: re, message: message}, nil
	}

	if allowed, ok := doc["in"]; ok {
		list, ok := allowed.([]any)
		if !ok {
			return nil, fmt.Errorf("'in' constraint value must be a list, got %T", allowed)
		}
		return &inConstraint{allowed: list, message: message}, nil
	}

	if protos, ok := doc["protocols"]; ok {
		list, ok := protos.([]any)
		if !ok {
			return nil, fmt.Errorf("protocols constraint value must be a list, got %T", protos)
		}
		schemes := make([]string, 0, len(list))
		for _, p := range list {
			s, ok := p.(string)
			if !ok {
				return nil, fmt.Errorf("protocol entries must be strings, got %T", p)
			}
			schemes = append(schemes, strings.ToLower(s))
		}
		return &protocolsConstraint{schemes: schemes, message: message}, nil
	}

	if check, ok := doc["check"]; ok {
		pass, ok := check.(bool)
		if !ok {
			return nil, fmt.Errorf("check constraint value must be a bool, got %T", check)
		}
		return &staticConstraint{pass: pass, message: message}, nil
	}

	var rules []comparisonRule
	for _, verb := range comparisonVerbs {
		if bound, ok := doc[verb]; ok {
			rules = append(rules, comparisonRule{verb: verb, bound: bound})
		}
	}
	if len(rules) > 0 {
		return &comparisonConstraint{rules: rules, message: message}, nil
	}

	return nil, fmt.Errorf("unrecognized constraint: %v", doc)
}

// ============================================================================
// Implementations
// ============================================================================

type regexConstraint struct {
	re      *regexp.Regexp
	message string
}

func (c *regexConstraint) Test(value any) bool {
	return c.re.MatchString(asString(value))
}

func (c *regexConstraint) Message() string {
	if c.message != "" {
		return c.message
	}
	return fmt.Sprintf("must match %s", c.re.String())
}

type inConstraint struct {
	allowed []any
	message string
}

func (c *inConstraint) Test(value any) bool {
	for _, candidate := range c.allowed {
		if looseEqual(candidate, value) {
			return true
		}
	}
	return false
}

func (c *inConstraint) Message() string {
	if c.message != "" {
		return c.message
	}
	return fmt.Sprintf("must be one of %v", c.allowed)
}

type protocolsConstraint struct {
	schemes []string
	message string
}

func (c *protocolsConstraint) Test(value any) bool {
	raw := asString(value)
	scheme, _, found := strings.Cut(raw, "://")
	if !found {
		return false
	}
	scheme = strings.ToLower(scheme)
	for _, allowed := range c.schemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

func (c *protocolsConstraint) Message() string {
	if c.message != "" {
		return c.message
	}
	return fmt.Sprintf("protocol must be one of %s", strings.Join(c.schemes, ", "))
}

type staticConstraint struct {
	pass    bool
	message string
}

func (c *staticConstraint) Test(any) bool { return c.pass }

func (c *staticConstraint) Message() string {
	if c.message != "" {
		return c.message
	}
	return "check failed"
}

type comparisonRule struct {
	verb  string
	bound any
}

type comparisonConstraint struct {
	rules   []comparisonRule
	message string
}

func (c *comparisonConstraint) Test(value any) bool {
	v, ok := asFloat(value)
	if !ok {
		return false
	}
	for _, rule := range c.rules {
		bound, ok := asFloat(rule.bound)
		if !ok {
			return false
		}
		switch rule.verb {
		case "less-than":
			if !(v < bound) {
				return false
			}
		case "greater-than":
			if !(v > bound) {
				return false
			}
		case "less-than-or-equal-to":
			if !(v <= bound) {
				return false
			}
		case "greater-than-or-equal-to":
			if !(v >= bound) {
				return false
			}
		}
	}
	return true
}

func (c *comparisonConstraint) Message() string {
	if c.message != "" {
		return c.message
	}
	parts := make([]string, 0, len(c.rules))
	for _, rule := range c.rules {
		parts = append(parts, fmt.Sprintf("must be %s %v", comparisonText[rule.verb], rule.bound))
	}
	return strings.Join(parts, " and ")
}

// ============================================================================
// Coercion
// ============================================================================

func asString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func looseEqual(a, b any) bool {
	if a == b {
		return true
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return asString(a) == asString(b)
}
