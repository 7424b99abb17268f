package eval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Generator expression names.
const (
	exprPassword = "generate_password"
	exprUUID     = "generate_uuid"
)

// IsExpression reports whether value is a generator expression, i.e. a
// string of the form "=generate_password(...)" or "=generate_uuid()".
func IsExpression(value any) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	return strings.HasPrefix(s, "="+exprPassword+"(") ||
		strings.HasPrefix(s, "="+exprUUID+"(")
}

// Evaluate runs a generator expression and returns the produced value.
func Evaluate(expr string) (any, error) {
	body := strings.TrimPrefix(expr, "=")
	name, args, found := strings.Cut(body, "(")
	if !found || !strings.HasSuffix(args, ")") {
		return nil, fmt.Errorf("malformed expression %q", expr)
	}
	args = strings.TrimSuffix(args, ")")

	switch name {
	case exprUUID:
		if strings.TrimSpace(args) != "" {
			return nil, fmt.Errorf("%s takes no arguments", exprUUID)
		}
		return strings.ReplaceAll(uuid.NewString(), "-", ""), nil
	case exprPassword:
		opts, err := parsePasswordArgs(args)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", expr, err)
		}
		return GeneratePassword(opts)
	default:
		return nil, fmt.Errorf("unknown generator %q", name)
	}
}

func parsePasswordArgs(args string) (PasswordOptions, error) {
	var opts PasswordOptions
	for _, arg := range splitArgs(args) {
		key, raw, found := strings.Cut(arg, "=")
		if !found {
			return opts, fmt.Errorf("expected key=value, got %q", arg)
		}
		key = strings.TrimSpace(key)
		raw = strings.TrimSpace(raw)
		switch key {
		case "min_length":
			n, err := strconv.Atoi(raw)
			if err != nil {
				return opts, fmt.Errorf("min_length: %w", err)
			}
			opts.MinLength = n
		case "max_length":
			n, err := strconv.Atoi(raw)
			if err != nil {
				return opts, fmt.Errorf("max_length: %w", err)
			}
			opts.MaxLength = n
		case "starts_with":
			opts.StartsWith = unquote(raw)
		case "valid_chars":
			opts.ValidChars = unquote(raw)
		case "required_chars":
			list, err := parseList(raw)
			if err != nil {
				return opts, fmt.Errorf("required_chars: %w", err)
			}
			opts.RequiredChars = list
		default:
			return opts, fmt.Errorf("unknown argument %q", key)
		}
	}
	return opts, nil
}

// splitArgs splits on top-level commas, ignoring commas inside quotes
// or brackets.
func splitArgs(args string) []string {
	var out []string
	var depth int
	var quote byte
	start := 0
	for i := 0; i < len(args); i++ {
		c := args[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			depth--
		case c == ',' && depth == 0:
			out = append(out, args[start:i])
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(args[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

func parseList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "[") || !strings.HasSuffix(raw, "]") {
		return nil, fmt.Errorf("expected a list, got %q", raw)
	}
	inner := strings.TrimSpace(raw[1 : len(raw)-1])
	if inner == "" {
		return nil, nil
	}
	var out []string
	for _, item := range splitArgs(inner) {
		out = append(out, unquote(strings.TrimSpace(item)))
	}
	return out, nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
