package solver

import (
	"fmt"

	"github.com/grafbase/gatewaycore/internal/operation"
	"github.com/grafbase/gatewaycore/internal/schema"
)

// Solve assigns every field of op to a resolver and groups the result into
// QueryPartitions. It returns an *UnplannableError when some field has no
// candidate resolver that can serve it from a reachable subgraph.
func Solve(op *operation.Operation, s *schema.Schema) (*SolvedOperation, error) {
	st := &state{s: s, op: op, partitionIndex: map[string]PartitionID{}}

	root := &PlannedSelectionSet{ParentType: op.RootType}
	for _, f := range collectFields(op.SelectionSet) {
		if f.Name == "__schema" || f.Name == "__type" {
			pf := st.planIntrospectionRoot(f)
			root.Fields = append(root.Fields, pf)
			continue
		}
		if isIntrospectionField(f.Name) {
			root.Fields = append(root.Fields, &PlannedField{Source: f, Resolver: schema.NoResolver})
			continue
		}

		fieldDef := s.Field(f.Definition)
		candidates := fieldDef.Resolvers()
		if len(candidates) == 0 {
			return nil, unplannable(f.Name, "no subgraph declares this root field")
		}
		chosen := candidates[0]
		for _, c := range candidates[1:] {
			if c.ID() < chosen.ID() {
				chosen = c
			}
		}

		part := st.partitionFor(chosen.Subgraph().ID(), op.RootType, nil, nil)
		part.Resolver = chosen.ID()

		pf := &PlannedField{Source: f, Resolver: chosen.ID(), Partition: part.ID}
		part.Fields = append(part.Fields, pf)
		root.Fields = append(root.Fields, pf)

		var provided *schema.RequiredSelectionSet
		if provides, ok := fieldDef.ProvidesSelection(); ok {
			recordProvides(part, fieldDef.ID(), provides)
			provided = provides
		}

		if len(f.SelectionSet) > 0 {
			sub, err := st.solveSelectionSet(f.SelectionSet, fieldDef.Type().NamedTypeID(), part, provided)
			if err != nil {
				return nil, err
			}
			pf.SelectionSet = sub
		}
	}

	return &SolvedOperation{Root: root, Partitions: st.partitions}, nil
}

type state struct {
	s   *schema.Schema
	op  *operation.Operation

	partitions     []*QueryPartition
	partitionIndex map[string]PartitionID
}

func (st *state) solveSelectionSet(sels []operation.Selection, parentType schema.TypeID, current *QueryPartition, provided *schema.RequiredSelectionSet) (*PlannedSelectionSet, error) {
	out := &PlannedSelectionSet{ParentType: parentType}

	for _, f := range collectFields(sels) {
		if isIntrospectionField(f.Name) {
			out.Fields = append(out.Fields, &PlannedField{Source: f, Resolver: schema.NoResolver, Partition: current.ID})
			continue
		}

		fieldDef := st.s.Field(f.Definition)
		currentSubgraph := current.Subgraph

		providedField, isProvided := providedSelectionField(provided, f.Definition)

		var (
			resolverID schema.ResolverID
			partition  *QueryPartition
		)

		if containsSubgraph(fieldDef.ExistsInSubgraphs(), currentSubgraph) || isProvided {
			// The subgraph that already answered the parent object also
			// declares this field — or its parent field's resolver already
			// declared `@provides` coverage for it — so it comes back
			// inline in the same response, no resolver hop needed.
			resolverID = schema.NoResolver
			partition = current
		} else {
			candidates := fieldDef.Resolvers()
			if len(candidates) == 0 {
				return nil, unplannable(f.Name, "no subgraph exposes this field and its parent object came from %q", st.s.Subgraph(currentSubgraph).Name())
			}
			chosen := chooseEntityCandidate(candidates)
			resolverID = chosen.ID()

			var key *schema.RequiredSelectionSet
			isEntity := chosen.Kind() == schema.ResolverGraphqlFederationEntity
			if isEntity {
				key = chosen.KeySelection()
			}
			partition = st.partitionFor(chosen.Subgraph().ID(), parentType, key, current)
			partition.Resolver = chosen.ID()
			partition.IsEntityFetch = isEntity
			partition.EntityKey = key

			// @requires dependencies of the field being hopped to are
			// satisfied by fields already available on `current` (the
			// partition producing the object this hop keys off of).
			// Accumulating them onto partition.Requires is what makes the
			// executor actually select those fields on current and fold
			// them into the `_entities` representation it sends here,
			// alongside ordering current strictly before partition.
			if requires, ok := fieldDef.RequiresSelection(); ok {
				partition.Requires = partition.Requires.Union(requires)
				st.ensureDependsOn(partition, current.ID)
			}
		}

		pf := &PlannedField{Source: f, Resolver: resolverID, Partition: partition.ID}
		if partition != current {
			// Only a field that just hopped into a new partition is a
			// top-level entry for it; an inline field (partition == current)
			// stays reachable through its parent's SelectionSet instead, so
			// QueryPartition.Fields doesn't end up a flattened bag of every
			// depth the partition happens to resolve.
			partition.Fields = append(partition.Fields, pf)
		}
		out.Fields = append(out.Fields, pf)

		var childProvided *schema.RequiredSelectionSet
		if provides, ok := fieldDef.ProvidesSelection(); ok {
			recordProvides(partition, fieldDef.ID(), provides)
			childProvided = provides
		} else if isProvided {
			childProvided = providedField.SubSelection
		}

		if len(f.SelectionSet) > 0 {
			sub, err := st.solveSelectionSet(f.SelectionSet, fieldDef.Type().NamedTypeID(), partition, childProvided)
			if err != nil {
				return nil, err
			}
			pf.SelectionSet = sub
		}
	}

	return out, nil
}

// partitionFor returns the existing partition for (subgraph, parentType,
// key shape), creating one if this is the first field to need it. dependsOn
// is recorded as a dependency edge (deduplicated) when non-nil.
func (st *state) partitionFor(subgraph schema.SubgraphID, parentType schema.TypeID, key *schema.RequiredSelectionSet, dependsOn *QueryPartition) *QueryPartition {
	dedupKey := fmt.Sprintf("%d|%d|%s", subgraph, parentType, fingerprintKey(key))
	if id, ok := st.partitionIndex[dedupKey]; ok {
		p := st.partitions[id]
		if dependsOn != nil {
			st.ensureDependsOn(p, dependsOn.ID)
		}
		return p
	}
	p := &QueryPartition{
		ID:         PartitionID(len(st.partitions)),
		Subgraph:   subgraph,
		ParentType: parentType,
	}
	st.partitions = append(st.partitions, p)
	st.partitionIndex[dedupKey] = p.ID
	if dependsOn != nil {
		st.ensureDependsOn(p, dependsOn.ID)
	}
	return p
}

// planIntrospectionRoot plans `__schema`/`__type`, the two meta-fields valid
// only at the operation root. Both share a single partition with
// schema.NoSubgraph: the executor answers it by walking *schema.Schema
// directly rather than issuing any subgraph request, so there's no
// resolver-candidate lookup or subgraph hop to plan — every field reachable
// under it resolves inline from that same in-memory computation.
func (st *state) planIntrospectionRoot(f *operation.Field) *PlannedField {
	fieldDef := st.s.Field(f.Definition)

	var resolverID schema.ResolverID = schema.NoResolver
	if candidates := fieldDef.Resolvers(); len(candidates) > 0 {
		resolverID = candidates[0].ID()
	}

	part := st.partitionFor(schema.NoSubgraph, st.op.RootType, nil, nil)
	part.Resolver = resolverID
	part.IsIntrospection = true

	pf := &PlannedField{Source: f, Resolver: resolverID, Partition: part.ID}
	part.Fields = append(part.Fields, pf)

	if len(f.SelectionSet) > 0 {
		pf.SelectionSet = st.planIntrospectionSelectionSet(f.SelectionSet, fieldDef.Type().NamedTypeID(), part.ID)
	}
	return pf
}

// planIntrospectionSelectionSet plans every field nested under `__schema`/
// `__type`: all of them resolve inline within the single introspection
// partition, so unlike solveSelectionSet this never looks up a resolver
// candidate or opens a new partition.
func (st *state) planIntrospectionSelectionSet(sels []operation.Selection, parentType schema.TypeID, partition PartitionID) *PlannedSelectionSet {
	out := &PlannedSelectionSet{ParentType: parentType}
	for _, f := range collectFields(sels) {
		pf := &PlannedField{Source: f, Resolver: schema.NoResolver, Partition: partition}
		if len(f.SelectionSet) > 0 && f.Definition != schema.NoField {
			childType := st.s.Field(f.Definition).Type().NamedTypeID()
			pf.SelectionSet = st.planIntrospectionSelectionSet(f.SelectionSet, childType, partition)
		}
		out.Fields = append(out.Fields, pf)
	}
	return out
}

func (st *state) ensureDependsOn(p *QueryPartition, dep PartitionID) {
	for _, d := range p.DependsOn {
		if d == dep {
			return
		}
	}
	p.DependsOn = append(p.DependsOn, dep)
}

// providedSelectionField reports whether id appears in provided (the
// enclosing field's `@provides` selection, if any) and returns its entry.
func providedSelectionField(provided *schema.RequiredSelectionSet, id schema.FieldID) (schema.RequiredSelectionField, bool) {
	if provided == nil {
		return schema.RequiredSelectionField{}, false
	}
	for _, rf := range provided.Fields {
		if rf.Field == id {
			return rf, true
		}
	}
	return schema.RequiredSelectionField{}, false
}

// recordProvides attaches a field's `@provides` selection to the partition
// that resolved it, so the solver's choice is traceable on the
// QueryPartition itself rather than only living in this recursion's local
// `provided` parameter.
func recordProvides(p *QueryPartition, field schema.FieldID, sel *schema.RequiredSelectionSet) {
	if p.Provides == nil {
		p.Provides = map[schema.FieldID]*schema.RequiredSelectionSet{}
	}
	p.Provides[field] = sel
}
