package solver

import (
	"github.com/grafbase/gatewaycore/internal/operation"
	"github.com/grafbase/gatewaycore/internal/schema"
)

// PartitionID identifies one QueryPartition within a SolvedOperation.
type PartitionID int32

// SolvedOperation is the solver's output: a tree of PlannedFields mirroring
// the bound Operation's selection shape, plus the flat list of
// QueryPartitions the planner lowers into an Executable DAG.
type SolvedOperation struct {
	Root       *PlannedSelectionSet
	Partitions []*QueryPartition
}

// PlannedSelectionSet is a selection set annotated with the concrete
// resolver assignment for each of its fields.
type PlannedSelectionSet struct {
	ParentType schema.TypeID
	Fields     []*PlannedField
}

// PlannedField pairs one bound operation.Field with the resolver chosen to
// produce it and, for composite fields, the planned sub-selection.
type PlannedField struct {
	Source       *operation.Field
	Resolver     schema.ResolverID
	Partition    PartitionID
	SelectionSet *PlannedSelectionSet // nil for leaf/scalar/enum fields
}

// QueryPartition is a maximal run of fields, rooted at one parent type,
// resolved by a single subgraph in a single request. Entity-fetch
// partitions additionally carry the @key selection used to build
// `_entities(representations: ...)`.
type QueryPartition struct {
	ID         PartitionID
	Subgraph   schema.SubgraphID
	ParentType schema.TypeID
	Resolver   schema.ResolverID

	// IsEntityFetch is true when this partition issues an
	// `_entities(representations: ...)` request rather than a root-field
	// query/mutation.
	IsEntityFetch bool
	EntityKey     *schema.RequiredSelectionSet

	// Requires is the union of every `@requires(fields: ...)` selection
	// carried by a field resolved on this partition, over and above its
	// entity key. The parent partition that produces this type must select
	// these fields too, so they can be folded into the `_entities`
	// representation alongside the key.
	Requires *schema.RequiredSelectionSet

	// Provides maps a field resolved on this partition to the
	// `@provides(fields: ...)` selection its resolver declared, if any:
	// the extra sub-fields that field's resolver can additionally supply
	// on the object it returns, which the solver treats as already
	// available here instead of hopping to those fields' nominal owner.
	Provides map[schema.FieldID]*schema.RequiredSelectionSet

	// IsIntrospection marks the single partition (at most one per operation)
	// that answers `__schema`/`__type` out of the Schema itself rather than
	// any subgraph. Its Subgraph field is schema.NoSubgraph.
	IsIntrospection bool

	// DependsOn lists the partitions that must complete first because this
	// partition's entity key (or a field's @requires) is satisfied by their
	// output.
	DependsOn []PartitionID

	// Fields are the top-level PlannedFields resolved directly by this
	// partition (their nested selections may recurse into further
	// partitions of their own).
	Fields []*PlannedField
}
