package planner

import (
	"github.com/grafbase/gatewaycore/internal/operation"
	"github.com/grafbase/gatewaycore/internal/schema"
	"github.com/grafbase/gatewaycore/internal/solver"
)

// AuthorizationDecision is the static outcome of evaluating
// @authenticated/@requiresScopes against the request's AuthContext.
// DenySome means the directive's grant depends on the resolved object (only
// @authorized produces this; its actual check runs in internal/authz once
// the field's value is known) and is left to the executor.
type AuthorizationDecision int

const (
	AuthGrantAll AuthorizationDecision = iota
	AuthDenyAll
	AuthDenySome
)

// AuthContext is the subset of the request's identity the planner needs to
// resolve @authenticated/@requiresScopes statically, before any subgraph is
// called.
type AuthContext struct {
	Authenticated bool
	Scopes        []string
}

// ResponseModifier records the directive-driven decisions attached to one
// ResponseField, per spec.md §4.4.
type ResponseModifier struct {
	Decision AuthorizationDecision

	// Authorized is true when the field carries `@authorized`: its final
	// grant/deny is resolved by internal/authz against the field's
	// resolved value at execution time, not here.
	Authorized bool
}

// ResponseShape mirrors the client-visible selection shape for one object
// position in the response tree.
type ResponseShape struct {
	ParentType schema.TypeID
	Fields     []*ResponseField
}

// ResponseField is one field of a ResponseShape.
type ResponseField struct {
	ResponseKey operation.ResponseKey
	Name        string
	Nullable    bool
	IsList      bool
	Modifier    ResponseModifier
	SelectionSet *ResponseShape // nil for leaf fields
}

// Executable is one schedulable unit for the executor: a QueryPartition
// plus its dependency edges, expressed as indices into OperationPlan's
// Executables slice (which is 1:1 and index-aligned with
// solver.SolvedOperation.Partitions).
type Executable struct {
	Partition   *solver.QueryPartition
	DependsOn   []int
	ParentCount int
}

// OperationPlan is the planner's output, consumed by internal/executor.
type OperationPlan struct {
	Shape       *ResponseShape
	Executables []*Executable
}
