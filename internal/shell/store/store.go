package store

import (
	"context"

	"github.com/topdeck-io/topdeck/internal/core/deployment"
)

// =============================================================================
// Store Interface
// =============================================================================

// Store defines the persistence interface for deployments.
type Store interface {
	CreateDeployment(ctx context.Context, dep *deployment.Deployment) error
	GetDeployment(ctx context.Context, id string) (*deployment.Deployment, error)
	UpdateDeployment(ctx context.Context, dep *deployment.Deployment) error
	DeleteDeployment(ctx context.Context, id string) error
	ListDeployments(ctx context.Context, opts ListOptions) ([]deployment.Deployment, error)

	// Transaction support
	WithTx(ctx context.Context, fn func(Store) error) error

	// Lifecycle
	Close() error
}

// =============================================================================
// Options
// =============================================================================

// ListOptions defines pagination and filtering options.
type ListOptions struct {
	Limit  int
	Offset int
	// Status filters to one deployment status when set.
	Status string
}

// DefaultListOptions returns default list options.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Limit:  100,
		Offset: 0,
	}
}

// Normalize ensures list options have valid values.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = 100
	}
	if o.Limit > 1000 {
		o.Limit = 1000
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
