package domain

import "fmt"

// ============================================================================
// Planning Errors
// ============================================================================

// ValidationError reports declared topology that can never plan:
// duplicate relation keys, unknown target services, conflicting
// connection records, unsatisfiable static resources.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validationf builds a ValidationError with a formatted message.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// SelectionError reports a selector no provider component matched.
type SelectionError struct {
	Selector    Selector
	Service     string
	Requirement string
}

func (e *SelectionError) Error() string {
	switch {
	case e.Requirement != "":
		return fmt.Sprintf("no component found for requirement %q of service %q (%s)",
			e.Requirement, e.Service, e.Selector)
	case e.Service != "":
		return fmt.Sprintf("no component found for service %q (%s)", e.Service, e.Selector)
	default:
		return fmt.Sprintf("no component found (%s)", e.Selector)
	}
}

// DependencyLoopError reports a cycle in transitive requirements: the
// same component was pulled in twice for the same service while
// chasing requirements.
type DependencyLoopError struct {
	Service     string
	ComponentID string
}

func (e *DependencyLoopError) Error() string {
	return fmt.Sprintf("dependency loop detected: component %q required again while resolving service %q",
		e.ComponentID, e.Service)
}

// PreconditionError reports a deployment that is not ready to plan.
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string { return e.Message }
