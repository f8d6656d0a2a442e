package solver

import "fmt"

// UnplannableError is returned when no combination of resolvers can satisfy
// every field and its @requires dependencies, per spec.md §4.3's
// `PlanError::Unplannable`.
type UnplannableError struct {
	Field  string
	Reason string
}

func (e *UnplannableError) Error() string {
	return fmt.Sprintf("cannot plan field %q: %s", e.Field, e.Reason)
}

func unplannable(field, format string, args ...any) *UnplannableError {
	return &UnplannableError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
