package executor

import (
	"github.com/grafbase/gatewaycore/internal/operation"
	"github.com/grafbase/gatewaycore/internal/planner"
	"github.com/grafbase/gatewaycore/internal/solver"
)

// shapeIndex maps every field occurrence still visible in the planned
// response (i.e. not dropped by `@skip`/`@include`) to the directive
// decisions the planner attached to it. operation.ResponseKey is interned
// per field occurrence, not per name, so one flat map covers every
// partition and every depth without collision.
type shapeIndex map[operation.ResponseKey]*planner.ResponseField

// buildShapeIndex walks solved.Root and plan.Shape in lockstep: the two
// trees mirror each other field-for-field except that Shape has already
// dropped whatever `@skip`/`@include` excluded, so a PlannedField with no
// counterpart in the current ResponseShape level was skipped.
func buildShapeIndex(root *solver.PlannedSelectionSet, shape *planner.ResponseShape) shapeIndex {
	idx := shapeIndex{}
	var walk func(sel *solver.PlannedSelectionSet, rs *planner.ResponseShape)
	walk = func(sel *solver.PlannedSelectionSet, rs *planner.ResponseShape) {
		if sel == nil || rs == nil {
			return
		}
		byKey := make(map[operation.ResponseKey]*planner.ResponseField, len(rs.Fields))
		for _, rf := range rs.Fields {
			byKey[rf.ResponseKey] = rf
		}
		for _, pf := range sel.Fields {
			rf, ok := byKey[pf.Source.ResponseKey]
			if !ok {
				continue
			}
			idx[pf.Source.ResponseKey] = rf
			if pf.SelectionSet != nil {
				walk(pf.SelectionSet, rf.SelectionSet)
			}
		}
	}
	walk(root, shape)
	return idx
}

// classify splits fields into those still fetchable (not skipped, not
// statically denied) and those that must surface as a denial without ever
// reaching a subgraph. A field skipped by `@skip`/`@include` is silently
// dropped from both lists — it has no response-tree presence at all.
func (idx shapeIndex) classify(fields []*solver.PlannedField) (visible, denied []*solver.PlannedField) {
	for _, pf := range fields {
		rf, ok := idx[pf.Source.ResponseKey]
		if !ok {
			continue // @skip/@include dropped it entirely
		}
		if rf.Modifier.Decision == planner.AuthDenyAll {
			denied = append(denied, pf)
			continue
		}
		visible = append(visible, pf)
	}
	return visible, denied
}

func (idx shapeIndex) lookup(pf *solver.PlannedField) *planner.ResponseField {
	return idx[pf.Source.ResponseKey]
}

// visible is classify without the denied half, for callers (query rendering)
// that only need to omit what shouldn't be fetched at all.
func (idx shapeIndex) visible(fields []*solver.PlannedField) []*solver.PlannedField {
	v, _ := idx.classify(fields)
	return v
}
