package domain

import "strconv"

// ============================================================================
// Resource indices
// ============================================================================

// ResourceIndex identifies a planned resource inside a deployment.
// Replicated service resources get sequential numeric indices ("0",
// "1", ...); static resources keep the name they were declared under
// in the blueprint.
type ResourceIndex string

// NumericIndex builds the index for the n-th planned resource.
func NumericIndex(n int) ResourceIndex {
	return ResourceIndex(strconv.Itoa(n))
}

// NamedIndex builds an index from a static resource name.
func NamedIndex(name string) ResourceIndex {
	return ResourceIndex(name)
}

// Numeric returns the integer value of a numeric index.
func (ri ResourceIndex) Numeric() (int, bool) {
	n, err := strconv.Atoi(string(ri))
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsNumeric reports whether the index was machine-assigned.
func (ri ResourceIndex) IsNumeric() bool {
	_, ok := ri.Numeric()
	return ok
}

func (ri ResourceIndex) String() string { return string(ri) }

// ============================================================================
// Relation records
// ============================================================================

// Relation record states.
const RelationStatePlanned = "planned"

// RelationRecord is one materialized connection on a resource. The
// record on the outbound side names the target, the mirrored record on
// the inbound side names the source.
type RelationRecord struct {
	Interface   string        `json:"interface" yaml:"interface"`
	State       string        `json:"state" yaml:"state"`
	Name        string        `json:"name,omitempty" yaml:"name,omitempty"`
	Relation    string        `json:"relation,omitempty" yaml:"relation,omitempty"`
	Source      ResourceIndex `json:"source,omitempty" yaml:"source,omitempty"`
	Target      ResourceIndex `json:"target,omitempty" yaml:"target,omitempty"`
	ProvidesKey string        `json:"provides-key,omitempty" yaml:"provides-key,omitempty"`
	RequiresKey string        `json:"requires-key,omitempty" yaml:"requires-key,omitempty"`
	SupportsKey string        `json:"supports-key,omitempty" yaml:"supports-key,omitempty"`
	RelationKey string        `json:"relation-key,omitempty" yaml:"relation-key,omitempty"`
	Attribute   string        `json:"attribute,omitempty" yaml:"attribute,omitempty"`
}

// Equal reports whether two records carry identical content. Writing
// an identical record twice is a no-op; writing a different record
// under an existing key is a planning conflict.
func (r RelationRecord) Equal(other RelationRecord) bool {
	return r == other
}

// ============================================================================
// Resources
// ============================================================================

// ResourceStatus tracks a resource through its lifecycle. Planning
// only ever produces PLANNED resources; later phases move them on.
type ResourceStatus string

const (
	ResourceStatusNew     ResourceStatus = "NEW"
	ResourceStatusPlanned ResourceStatus = "PLANNED"
	ResourceStatusBuild   ResourceStatus = "BUILD"
	ResourceStatusActive  ResourceStatus = "ACTIVE"
	ResourceStatusError   ResourceStatus = "ERROR"
)

// Resource is one planned unit of infrastructure: a container, a
// database instance, a generated credential. Instance holds
// provider-specific settings; DesiredState is filled in by later
// provisioning phases.
type Resource struct {
	Index        ResourceIndex             `json:"index" yaml:"index"`
	Type         string                    `json:"type" yaml:"type"`
	Provider     string                    `json:"provider,omitempty" yaml:"provider,omitempty"`
	Service      string                    `json:"service,omitempty" yaml:"service,omitempty"`
	Component    string                    `json:"component,omitempty" yaml:"component,omitempty"`
	DNSName      string                    `json:"dns-name,omitempty" yaml:"dns-name,omitempty"`
	Status       ResourceStatus            `json:"status" yaml:"status"`
	Instance     map[string]any            `json:"instance,omitempty" yaml:"instance,omitempty"`
	DesiredState map[string]any            `json:"desired-state,omitempty" yaml:"desired-state,omitempty"`
	Relations    map[string]RelationRecord `json:"relations,omitempty" yaml:"relations,omitempty"`
	HostedOn     ResourceIndex             `json:"hosted-on,omitempty" yaml:"hosted-on,omitempty"`
	Hosts        []ResourceIndex           `json:"hosts,omitempty" yaml:"hosts,omitempty"`
}

// SetRelation stores a record under key, initializing the map.
func (r *Resource) SetRelation(key string, record RelationRecord) {
	if r.Relations == nil {
		r.Relations = make(map[string]RelationRecord)
	}
	r.Relations[key] = record
}

// AddHost records that this resource hosts the guest index. Duplicate
// registrations are ignored.
func (r *Resource) AddHost(guest ResourceIndex) {
	for _, h := range r.Hosts {
		if h == guest {
			return
		}
	}
	r.Hosts = append(r.Hosts, guest)
}
