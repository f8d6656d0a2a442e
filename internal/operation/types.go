package operation

import (
	"github.com/grafbase/gatewaycore/internal/language"
	"github.com/grafbase/gatewaycore/internal/schema"
)

// ResponseKey is an interned string for each distinct alias/name at a
// position in the operation. It is stable for the lifetime of the
// Operation and is what the executor/response tree use to key object
// fields, per spec.md §3.
type ResponseKey int32

// OperationKind mirrors language.Operation without re-exporting gqlparser.
type OperationKind string

const (
	KindQuery        OperationKind = "query"
	KindMutation     OperationKind = "mutation"
	KindSubscription OperationKind = "subscription"
)

// InputValueID addresses one node in the Operation's input-value arena.
// Scalars, enum references, lists and input-object maps are all arena
// nodes; a QueryInputValueId may additionally reference a variable, which
// is resolved against VariableValues at execution time rather than at bind
// time (spec.md §3).
type InputValueID int32

type InputValueKind string

const (
	InputValueScalar    InputValueKind = "SCALAR"
	InputValueEnum      InputValueKind = "ENUM"
	InputValueList      InputValueKind = "LIST"
	InputValueInputObj  InputValueKind = "INPUT_OBJECT"
	InputValueVariable  InputValueKind = "VARIABLE"
	InputValueNull      InputValueKind = "NULL"
)

// InputValueNode is one arena entry. Only the field(s) matching Kind are
// populated.
type InputValueNode struct {
	Kind     InputValueKind
	Scalar   any
	EnumName string
	Items    []InputValueID
	Fields   map[string]InputValueID
	VarName  string
}

// Argument is a bound, schema-checked argument value on a Field.
type Argument struct {
	Definition schema.ArgumentID
	Value      InputValueID
}

// Selection is a tagged union of the three selection forms the binder
// normalizes fragments into, per spec.md §3: a selection set is a list of
// Field | InlineFragment | FragmentSpread. Fragments are normalized (the
// fragment's own selection set is bound once) but not eagerly flattened —
// the planner decides when to flatten.
type Selection struct {
	Field          *Field
	InlineFragment *InlineFragment
	FragmentSpread *FragmentSpread
}

// Field is one selected field, alias preserved.
type Field struct {
	ResponseKey  ResponseKey
	Alias        string
	Name         string
	Definition   schema.FieldID
	Arguments    []Argument
	SelectionSet []Selection // empty for leaf (scalar/enum) fields
	SkipInclude  []SkipIncludeDirective
	Location     language.Position
}

// InlineFragment is `... on Type { ... }` or a bare `... { ... }`.
type InlineFragment struct {
	TypeCondition schema.TypeID // the enclosing type if absent
	SelectionSet  []Selection
	SkipInclude   []SkipIncludeDirective
}

// FragmentSpread is `...Name`, resolved to the normalized fragment body.
type FragmentSpread struct {
	FragmentID    int32
	TypeCondition schema.TypeID
	SelectionSet  []Selection
	SkipInclude   []SkipIncludeDirective
}

// SkipIncludeDirective captures `@skip(if: ...)`/`@include(if: ...)` so the
// planner can evaluate it against variable values at plan-modification time
// (spec.md §4.4).
type SkipIncludeDirective struct {
	Include bool // true for @include, false for @skip
	If      InputValueID
}

// Operation is the frozen result of binding: immutable after Bind, shared
// by the solver/planner for the duration of one request (or reused across
// requests with the same document+variables shape via CachedOperation).
type Operation struct {
	Kind         OperationKind
	Name         string
	RootType     schema.TypeID
	SelectionSet []Selection

	VariableDefs map[string]VariableDefinition
	InputValues  []InputValueNode

	// ResponseKeyNames maps each interned ResponseKey back to its source
	// text, for error paths and serialization.
	ResponseKeyNames []string

	Document string
}

// VariableDefinition describes one `$name: Type = default` declaration.
type VariableDefinition struct {
	Name         string
	Type         *schema.TypeExpr
	HasDefault   bool
	DefaultValue InputValueID
}
