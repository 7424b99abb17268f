// Package store persists planned deployments and their resources.
package store

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrNotFound is returned when no deployment has the requested id.
	ErrNotFound = errors.New("deployment not found")

	// ErrDuplicateID is returned when saving a deployment whose id is
	// already taken.
	ErrDuplicateID = errors.New("deployment id already exists")

	// ErrConnectionFailed is returned when the database cannot be
	// opened or reached.
	ErrConnectionFailed = errors.New("database connection failed")

	// ErrMigrationFailed is returned when schema migration fails.
	ErrMigrationFailed = errors.New("database migration failed")

	// ErrInvalidData is returned when a stored document or resource
	// map cannot be encoded or decoded.
	ErrInvalidData = errors.New("invalid stored data")

	// ErrTxFailed is returned when a transaction cannot begin, commit
	// or roll back.
	ErrTxFailed = errors.New("transaction failed")
)

// StoreError carries the failed operation and the deployment it was
// acting on.
type StoreError struct {
	Op           string // e.g. "CreateDeployment"
	DeploymentID string
	Message      string
	Err          error
}

func (e *StoreError) Error() string {
	if e.DeploymentID != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.DeploymentID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(op, deploymentID, message string, err error) *StoreError {
	return &StoreError{
		Op:           op,
		DeploymentID: deploymentID,
		Message:      message,
		Err:          err,
	}
}
