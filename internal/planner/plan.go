package planner

import (
	"github.com/grafbase/gatewaycore/internal/operation"
	"github.com/grafbase/gatewaycore/internal/schema"
	"github.com/grafbase/gatewaycore/internal/solver"
)

// Plan lowers a solved operation into an OperationPlan: response shape plus
// an executable DAG, evaluating `@skip`/`@include` against variables and
// `@authenticated`/`@requiresScopes` against authCtx. The executor still
// reads variables to render subgraph arguments, and authCtx to check
// `@authorized` fields against their resolved values.
//
// Fragment-level `@skip`/`@include` (on a `...Fragment` spread or inline
// fragment rather than the field itself) is not evaluated here: by the time
// solver.Solve has flattened fragments into PlannedFields, that
// conditioning has already been discarded. Field-level `@skip`/`@include` —
// by far the common case — is fully honored.
func Plan(op *operation.Operation, solved *solver.SolvedOperation, s *schema.Schema, variables map[string]any, authCtx AuthContext) (*OperationPlan, error) {
	executables := make([]*Executable, len(solved.Partitions))
	for i, p := range solved.Partitions {
		deps := make([]int, len(p.DependsOn))
		for j, d := range p.DependsOn {
			deps[j] = int(d)
		}
		executables[i] = &Executable{Partition: p, DependsOn: deps, ParentCount: len(deps)}
	}

	if op.Kind == operation.KindMutation {
		serializeMutationRootFields(solved, executables)
	}

	shape, err := buildShape(op, solved.Root, s, variables, authCtx)
	if err != nil {
		return nil, err
	}

	return &OperationPlan{Shape: shape, Executables: executables}, nil
}

// serializeMutationRootFields enforces the GraphQL requirement that
// top-level mutation fields execute serially: each distinct root partition,
// in the order its field was first requested, must wait for every
// previously-requested root partition to complete.
func serializeMutationRootFields(solved *solver.SolvedOperation, executables []*Executable) {
	seen := map[solver.PartitionID]bool{}
	var order []solver.PartitionID
	for _, pf := range solved.Root.Fields {
		if seen[pf.Partition] {
			continue
		}
		seen[pf.Partition] = true
		order = append(order, pf.Partition)
	}
	for i := 1; i < len(order); i++ {
		cur := executables[order[i]]
		prev := int(order[i-1])
		if !containsInt(cur.DependsOn, prev) {
			cur.DependsOn = append(cur.DependsOn, prev)
			cur.ParentCount++
		}
	}
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func buildShape(op *operation.Operation, sel *solver.PlannedSelectionSet, s *schema.Schema, variables map[string]any, authCtx AuthContext) (*ResponseShape, error) {
	shape := &ResponseShape{ParentType: sel.ParentType}
	for _, pf := range sel.Fields {
		included, err := fieldIncluded(op, pf.Source, variables)
		if err != nil {
			return nil, err
		}
		if !included {
			continue
		}

		rf := &ResponseField{ResponseKey: pf.Source.ResponseKey, Name: pf.Source.Name}
		if pf.Source.Definition == schema.NoField {
			// __typename and other introspection meta-fields: always
			// non-null scalar strings, no directive modifiers apply.
			rf.Nullable = false
		} else {
			fieldDef := s.Field(pf.Source.Definition)
			t := fieldDef.Type()
			rf.Nullable = !t.IsNonNull()
			rf.IsList = t.IsList()
			rf.Modifier = evaluateModifiers(fieldDef, s, authCtx)
		}

		if pf.SelectionSet != nil {
			sub, err := buildShape(op, pf.SelectionSet, s, variables, authCtx)
			if err != nil {
				return nil, err
			}
			rf.SelectionSet = sub
		}
		shape.Fields = append(shape.Fields, rf)
	}
	return shape, nil
}

func fieldIncluded(op *operation.Operation, f *operation.Field, variables map[string]any) (bool, error) {
	for _, dir := range f.SkipInclude {
		v, err := operation.ResolveInputValue(op, dir.If, variables)
		if err != nil {
			return false, err
		}
		b, _ := v.(bool)
		if dir.Include && !b {
			return false, nil
		}
		if !dir.Include && b {
			return false, nil
		}
	}
	return true, nil
}

func evaluateModifiers(f schema.Field, s *schema.Schema, authCtx AuthContext) ResponseModifier {
	var mod ResponseModifier

	if _, ok := schema.HasDirective(f.Directives(), s, schema.DirectiveAuthenticated); ok {
		if !authCtx.Authenticated {
			mod.Decision = AuthDenyAll
			return mod
		}
	}

	if scopeDirectives := schema.AllDirectives(f.Directives(), s, schema.DirectiveRequiresScopes); len(scopeDirectives) > 0 {
		if !satisfiesAnyScopeGroup(scopeDirectives, authCtx.Scopes) {
			mod.Decision = AuthDenyAll
			return mod
		}
	}

	if _, ok := schema.HasDirective(f.Directives(), s, schema.DirectiveAuthorized); ok {
		mod.Authorized = true
		mod.Decision = AuthDenySome
		return mod
	}

	mod.Decision = AuthGrantAll
	return mod
}

// satisfiesAnyScopeGroup implements `@requiresScopes(scopes: [["a","b"], ["c"]])`
// semantics: the directive is satisfied if the caller holds every scope in
// at least one of the listed groups (OR of ANDs).
func satisfiesAnyScopeGroup(uses []schema.DirectiveUse, granted []string) bool {
	have := map[string]bool{}
	for _, s := range granted {
		have[s] = true
	}
	for _, use := range uses {
		groups, _ := use.Args["scopes"].([]any)
		for _, g := range groups {
			group, _ := g.([]any)
			ok := true
			for _, s := range group {
				name, _ := s.(string)
				if !have[name] {
					ok = false
					break
				}
			}
			if ok {
				return true
			}
		}
	}
	return false
}
