package schema

import "fmt"

// Span locates a build error in subgraph SDL source, for diagnostics.
type Span struct {
	Subgraph string
	Line     int
	Column   int
}

// BuildErrorTemplate names the kind of violation, grounded on the teacher's
// Violation-template approach (internal/ir/violation_templates.go):
// structured kinds rather than ad-hoc strings, so callers can branch on
// Template without parsing Message.
type BuildErrorTemplate string

const (
	ErrDuplicateDefinition   BuildErrorTemplate = "duplicate_definition"
	ErrUnknownTypeReference  BuildErrorTemplate = "unknown_type_reference"
	ErrMalformedJoinMetadata BuildErrorTemplate = "malformed_join_metadata"
	ErrUnresolvableKey       BuildErrorTemplate = "unresolvable_key_selection"
	ErrInvalidDirectiveArgs  BuildErrorTemplate = "invalid_directive_arguments"
	ErrJoinFieldInconsistent BuildErrorTemplate = "join_field_inconsistent"
)

// BuildError is one schema-build failure with enough context to report a
// precise diagnostic; never returned once Build succeeds.
type BuildError struct {
	Template BuildErrorTemplate
	Message  string
	Span     Span
}

func (e *BuildError) Error() string {
	if e.Span.Subgraph != "" {
		return fmt.Sprintf("%s (%s:%d:%d)", e.Message, e.Span.Subgraph, e.Span.Line, e.Span.Column)
	}
	return e.Message
}

// BuildErrors is a collected set of BuildError, returned together so the
// caller can report every problem in one pass rather than fail-fast.
type BuildErrors []*BuildError

func (e BuildErrors) Error() string {
	msg := fmt.Sprintf("%d schema build error(s):\n", len(e))
	for _, v := range e {
		msg += "- " + v.Error() + "\n"
	}
	return msg
}
