// Package operation implements the OperationBinder: it parses a client
// GraphQL document, binds it against a schema.Schema, validates it per the
// GraphQL spec plus configured operation limits, and freezes the result
// into an Operation — the typed, response-key-annotated tree the solver
// consumes. See SPEC_FULL.md §4.2.
package operation
