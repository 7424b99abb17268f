// Package deployment holds the deployment document: the parsed
// topology plus operator inputs, planned resources and lifecycle
// status, together with the layered setting resolution planning
// depends on.
package deployment

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/topdeck-io/topdeck/internal/core/domain"
	"github.com/topdeck-io/topdeck/internal/core/topology"
)

// Deployment lifecycle statuses. Planning moves a deployment from NEW
// to PLANNED; any planning failure marks it FAILED.
type Status string

const (
	StatusNew     Status = "NEW"
	StatusPlanned Status = "PLANNED"
	StatusFailed  Status = "FAILED"
	StatusUp      Status = "UP"
	StatusDeleted Status = "DELETED"
)

var (
	ErrNoBlueprint   = errors.New("deployment has no blueprint")
	ErrNoEnvironment = errors.New("deployment has no environment")
)

// Deployment is one planned or planning deployment document.
type Deployment struct {
	ID          string
	Name        string
	Status      Status
	Blueprint   *topology.Blueprint
	Environment *topology.EnvironmentConfig
	Inputs      *Inputs
	Resources   map[domain.ResourceIndex]*domain.Resource
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New builds a deployment from a parsed document. The document must
// carry both a blueprint and an environment.
func New(file *topology.File) (*Deployment, error) {
	if file.Blueprint == nil {
		return nil, ErrNoBlueprint
	}
	if file.Environment == nil || len(file.Environment.Providers) == 0 {
		return nil, ErrNoEnvironment
	}

	id := file.ID
	if id == "" {
		id = uuid.NewString()
	}
	name := file.Name
	if name == "" {
		name = file.Blueprint.Name
	}

	now := time.Now().UTC()
	return &Deployment{
		ID:          id,
		Name:        name,
		Status:      StatusNew,
		Blueprint:   file.Blueprint,
		Environment: file.Environment,
		Inputs:      ParseInputs(file.Inputs),
		Resources:   make(map[domain.ResourceIndex]*domain.Resource),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// NextResourceIndex returns the index for the next replicated
// resource: the count of numeric indices already assigned.
func (d *Deployment) NextResourceIndex() domain.ResourceIndex {
	count := 0
	for index := range d.Resources {
		if index.IsNumeric() {
			count++
		}
	}
	return domain.NumericIndex(count)
}

// ============================================================================
// Inputs
// ============================================================================

// Inputs are the operator-supplied values for a deployment, split into
// the scopes setting resolution consults.
type Inputs struct {
	// Blueprint holds option values keyed by option name.
	Blueprint map[string]any
	// Services holds per-service overrides:
	// service name -> resource type -> setting -> value.
	Services map[string]any
	// Providers holds per-provider overrides, shaped like Services.
	Providers map[string]any
	// Resources are bring-your-own resources merged into the plan.
	Resources []map[string]any
	// Global holds any remaining top-level input keys.
	Global map[string]any

	raw map[string]any
}

// ParseInputs splits a raw inputs document into scopes.
func ParseInputs(raw map[string]any) *Inputs {
	in := &Inputs{
		Blueprint: make(map[string]any),
		Services:  make(map[string]any),
		Providers: make(map[string]any),
		Global:    make(map[string]any),
		raw:       raw,
	}
	if raw == nil {
		in.raw = map[string]any{}
		return in
	}

	for key, value := range raw {
		switch key {
		case "blueprint":
			if m, ok := value.(map[string]any); ok {
				in.Blueprint = m
			}
		case "services":
			if m, ok := value.(map[string]any); ok {
				in.Services = m
			}
		case "providers":
			if m, ok := value.(map[string]any); ok {
				in.Providers = m
			}
		case "resources":
			if list, ok := value.([]any); ok {
				for _, item := range list {
					if m, ok := item.(map[string]any); ok {
						in.Resources = append(in.Resources, m)
					}
				}
			}
		default:
			in.Global[key] = value
		}
	}
	return in
}

// Raw returns the original inputs document, used as a condition scope.
func (in *Inputs) Raw() map[string]any { return in.raw }

// OptionValue returns the operator value for an option, checking the
// blueprint scope first and falling back to the global scope.
func (in *Inputs) OptionValue(name string) (any, bool) {
	if v, ok := in.Blueprint[name]; ok {
		return v, true
	}
	if v, ok := in.Global[name]; ok {
		return v, true
	}
	return nil, false
}
