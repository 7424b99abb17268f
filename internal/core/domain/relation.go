package domain

// Relation declares that one service connects to another over a named
// interface. The short YAML form `- target: interface` or
// `- target: interface#tag` expands into this struct during parsing.
type Relation struct {
	// Service is the target service name.
	Service string `yaml:"service" json:"service"`
	// Interface both endpoints must speak.
	Interface string `yaml:"interface" json:"interface"`
	// ConnectFrom pins the source endpoint to a tagged supports entry.
	ConnectFrom string `yaml:"connect-from,omitempty" json:"connect-from,omitempty"`
	// ConnectTo pins the target endpoint to a tagged provides entry.
	ConnectTo string `yaml:"connect-to,omitempty" json:"connect-to,omitempty"`
	// Relation is "reference" (default) or "host".
	Relation string `yaml:"relation,omitempty" json:"relation,omitempty"`
	// Attribute optionally names a single attribute carried over the
	// connection instead of the whole interface.
	Attribute string `yaml:"attribute,omitempty" json:"attribute,omitempty"`
	// Key overrides the derived relation key.
	Key string `yaml:"key,omitempty" json:"key,omitempty"`

	Attributes map[string]any `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

// DeriveKey returns the canonical key for this relation as declared by
// the named source service: "source-target-interface", with "#tag"
// appended to either side that pins a tagged endpoint. The result is
// stable: deriving twice yields the same key, and an explicit Key
// always wins.
func (r Relation) DeriveKey(sourceService string) string {
	if r.Key != "" {
		return r.Key
	}
	source := sourceService
	if r.ConnectFrom != "" {
		source += "#" + r.ConnectFrom
	}
	target := r.Service
	if r.ConnectTo != "" {
		target += "#" + r.ConnectTo
	}
	return source + "-" + target + "-" + r.Interface
}

// Kind returns the relation type, defaulting to "reference".
func (r Relation) Kind() string {
	if r.Relation == "" {
		return RelationReference
	}
	return r.Relation
}

// Relation kinds.
const (
	RelationReference = "reference"
	RelationHost      = "host"
)
