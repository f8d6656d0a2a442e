package executor

import (
	"fmt"
	"strings"

	"github.com/grafbase/gatewaycore/internal/operation"
	"github.com/grafbase/gatewaycore/internal/schema"
	"github.com/grafbase/gatewaycore/internal/solver"
)

// representationsVar is the variable name used for every `_entities` fetch,
// mirroring the `$representations` convention of Apollo Federation's
// `_entities(representations: $representations)` root field.
const representationsVar = "representations"

// boundary records a point in a partition's own selection where a nested
// field's children are resolved by a different partition: the field itself
// still belongs to the current partition (it selects `__typename` plus the
// child partition's `@key` fields, plus any fields the child's resolvers
// declared via `@requires`, instead of the child's own selections), and
// Child is the partition that will issue the follow-up `_entities` fetch.
type boundary struct {
	Field *solver.PlannedField
	Child solver.PartitionID
}

// PartitionQuery is the rendered GraphQL document for one QueryPartition,
// reusable across every round this partition executes in (its shape never
// changes; only the `$representations` values fed at request time do).
type PartitionQuery struct {
	Document           string
	ArgumentValues     map[string]any
	IsEntityFetch      bool
	RepresentationType string // the entity type name, for `... on Name { ... }`
}

type queryBuilder struct {
	s          *schema.Schema
	op         *operation.Operation
	variables  map[string]any
	partitions []*solver.QueryPartition
	shape      shapeIndex

	varCounter int
	varDefs    []string
	argValues  map[string]any
	boundaries []boundary
}

// BuildPartitionQuery renders the GraphQL document a subgraph expects for
// one QueryPartition: a root operation for a GraphqlRootField partition, or
// an `_entities(representations: ...)` fetch for a GraphqlFederationEntity
// one. Nested fields belonging to a different partition are rendered as a
// `__typename` + `@key` boundary instead of being recursed into; the
// returned boundaries list those positions (Execute does not use them: the
// merge step regroups each object's fields by partition on its own). A field dropped by `@skip`/`@include` or statically
// denied by `@authenticated`/`@requiresScopes` (shape.classify) is never
// rendered — it has no response-tree presence to fetch for.
func BuildPartitionQuery(s *schema.Schema, op *operation.Operation, partitions []*solver.QueryPartition, shape shapeIndex, id solver.PartitionID, variables map[string]any) (*PartitionQuery, []boundary, error) {
	b := &queryBuilder{s: s, op: op, variables: variables, partitions: partitions, shape: shape, argValues: map[string]any{}}
	p := partitions[id]

	var body strings.Builder
	if p.IsEntityFetch {
		typeName := s.Type(p.ParentType).Name()
		fmt.Fprintf(&body, "... on %s {\n", typeName)
		if err := b.renderFields(&body, p.Fields, id, 2); err != nil {
			return nil, nil, err
		}
		body.WriteString("}\n")
	} else {
		if err := b.renderFields(&body, p.Fields, id, 1); err != nil {
			return nil, nil, err
		}
	}

	var doc strings.Builder
	if p.IsEntityFetch {
		allDefs := append([]string{"$" + representationsVar + ": [_Any!]!"}, b.varDefs...)
		fmt.Fprintf(&doc, "query(%s) {\n_entities(representations: $%s) {\n", strings.Join(allDefs, ", "), representationsVar)
		doc.WriteString(body.String())
		doc.WriteString("}\n}\n")
	} else {
		kind := "query"
		if op.Kind == operation.KindMutation {
			kind = "mutation"
		}
		doc.WriteString(kind)
		if len(b.varDefs) > 0 {
			doc.WriteString("(")
			doc.WriteString(strings.Join(b.varDefs, ", "))
			doc.WriteString(")")
		}
		doc.WriteString(" {\n")
		doc.WriteString(body.String())
		doc.WriteString("}\n")
	}

	pq := &PartitionQuery{
		Document:       doc.String(),
		ArgumentValues: b.argValues,
		IsEntityFetch:  p.IsEntityFetch,
	}
	if p.IsEntityFetch {
		pq.RepresentationType = s.Type(p.ParentType).Name()
	}
	return pq, b.boundaries, nil
}

// renderFields renders sel as selection-set body text, one field per line
// at the given indent, grouping by partition as described on boundary.
func (b *queryBuilder) renderFields(out *strings.Builder, fields []*solver.PlannedField, current solver.PartitionID, indent int) error {
	visible, _ := b.shape.classify(fields)
	pad := strings.Repeat("  ", indent)
	for _, pf := range visible {
		if pf.Source.Definition == schema.NoField {
			fmt.Fprintf(out, "%s__typename\n", pad)
			continue
		}

		name := b.op.ResponseKeyNames[pf.Source.ResponseKey]
		fieldDef := b.s.Field(pf.Source.Definition)

		argsText, err := b.renderArguments(fieldDef, pf.Source.Arguments)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "%s%s: %s%s", pad, name, fieldDef.Name(), argsText)

		if pf.SelectionSet == nil {
			out.WriteString("\n")
			continue
		}

		out.WriteString(" {\n")
		inline, childIDs := groupByPartition(b.shape.visible(pf.SelectionSet.Fields), current)
		if len(childIDs) > 0 {
			fmt.Fprintf(out, "%s  __typename\n", pad)
			for _, childID := range childIDs {
				child := b.partitions[childID]
				renderKeySelection(out, b.s, child.EntityKey, indent+1)
				renderKeySelection(out, b.s, child.Requires, indent+1)
				b.boundaries = append(b.boundaries, boundary{Field: pf, Child: childID})
			}
		}
		if err := b.renderFields(out, inline, current, indent+1); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s}\n", pad)
	}
	return nil
}

// groupByPartition splits fields into those resolved inline by current and
// the distinct child partitions (in first-seen order, for deterministic
// query text) that the rest hop to.
func groupByPartition(fields []*solver.PlannedField, current solver.PartitionID) (inline []*solver.PlannedField, childIDs []solver.PartitionID) {
	seen := map[solver.PartitionID]bool{}
	for _, f := range fields {
		if f.Partition == current || f.Source.Definition == schema.NoField {
			inline = append(inline, f)
			continue
		}
		if !seen[f.Partition] {
			seen[f.Partition] = true
			childIDs = append(childIDs, f.Partition)
		}
	}
	return inline, childIDs
}

func renderKeySelection(out *strings.Builder, s *schema.Schema, sel *schema.RequiredSelectionSet, indent int) {
	if sel == nil {
		return
	}
	pad := strings.Repeat("  ", indent)
	for _, f := range sel.Fields {
		fieldDef := s.Field(f.Field)
		if f.SubSelection == nil {
			fmt.Fprintf(out, "%s%s\n", pad, fieldDef.Name())
			continue
		}
		fmt.Fprintf(out, "%s%s {\n", pad, fieldDef.Name())
		renderKeySelection(out, s, f.SubSelection, indent+1)
		fmt.Fprintf(out, "%s}\n", pad)
	}
}

func (b *queryBuilder) renderArguments(fieldDef schema.Field, args []operation.Argument) (string, error) {
	if len(args) == 0 {
		return "", nil
	}
	defs := fieldDef.Args()
	var parts []string
	for _, a := range args {
		value, err := operation.ResolveInputValue(b.op, a.Value, b.variables)
		if err != nil {
			return "", err
		}
		var argDef schema.Argument
		for _, d := range defs {
			if d.ID() == a.Definition {
				argDef = d
				break
			}
		}
		varName := fmt.Sprintf("v%d", b.varCounter)
		b.varCounter++
		b.varDefs = append(b.varDefs, fmt.Sprintf("$%s: %s", varName, argDef.Type().String(b.s)))
		b.argValues[varName] = value
		parts = append(parts, fmt.Sprintf("%s: $%s", argDef.Name(), varName))
	}
	return "(" + strings.Join(parts, ", ") + ")", nil
}
