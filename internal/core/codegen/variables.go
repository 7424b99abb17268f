package codegen

import "regexp"

// ============================================================================
// Variable Substitution
// ============================================================================

// placeholderRegex matches ${VAR} and ${VAR:-default}. Group 1 is the
// variable name; group 3 is the default and group 2 distinguishes an
// empty default from no default.
var placeholderRegex = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)((?::-)([^}]*))?\}`)

// Substitute replaces ${VAR} and ${VAR:-default} placeholders in
// component properties with deployment input values.
//
// A placeholder without a default stays as-is when the variable is
// unset, so docker compose can still resolve it from the runtime
// environment.
//
// Example:
//
//	Substitute("mysql://${DB_HOST}:${DB_PORT:-3306}", map[string]string{"DB_HOST": "db01"})
//	// Returns: "mysql://db01:3306"
func Substitute(value string, variables map[string]string) string {
	return placeholderRegex.ReplaceAllStringFunc(value, func(match string) string {
		groups := placeholderRegex.FindStringSubmatch(match)
		name, marker, fallback := groups[1], groups[2], groups[3]
		if v, ok := variables[name]; ok {
			return v
		}
		if marker != "" {
			return fallback
		}
		return match
	})
}
