package executor

import (
	"context"
	"fmt"

	"github.com/grafbase/gatewaycore/internal/authz"
	"github.com/grafbase/gatewaycore/internal/operation"
	"github.com/grafbase/gatewaycore/internal/planner"
	"github.com/grafbase/gatewaycore/internal/responsetree"
	"github.com/grafbase/gatewaycore/internal/schema"
	"github.com/grafbase/gatewaycore/internal/solver"
)

// merger holds the state threaded through one partition response's merge
// into the shared response tree — generalizing the teacher's
// executionState (executor.go) from a single process-wide tree to one
// that's written into incrementally, round by round, by independent
// subgraph fetches.
type merger struct {
	tree          *responsetree.Tree
	s             *schema.Schema
	op            *operation.Operation
	current       solver.PartitionID
	pending       pendingInstances
	allPartitions []*solver.QueryPartition
	shape         shapeIndex
	authz         authz.Evaluator
	authCtx       planner.AuthContext
	ctx           context.Context
}

// newMerger builds a merger for processing one partition's response.
func newMerger(ctx context.Context, tree *responsetree.Tree, s *schema.Schema, op *operation.Operation, partitions []*solver.QueryPartition, current solver.PartitionID, pending pendingInstances, shape shapeIndex, evaluator authz.Evaluator, authCtx planner.AuthContext) *merger {
	return &merger{
		tree: tree, s: s, op: op, current: current, pending: pending,
		allPartitions: partitions, shape: shape, authz: evaluator, authCtx: authCtx, ctx: ctx,
	}
}

// mergeInstance writes one subgraph response object's fields, for the
// given PlannedFields, into objNode at path. It mirrors
// executor.executeSelectionSet: a non-null field that completes nullish
// nulls its nearest nullable ancestor rather than just itself. A field
// dropped by `@skip`/`@include` (absent from m.shape) is never written at
// all; one statically denied by `@authenticated`/`@requiresScopes` is
// written as null plus an error without ever consulting raw; one marked
// `@authorized` is resolved normally and then re-checked against its
// value via m.authz before being committed.
func (m *merger) mergeInstance(fields []*solver.PlannedField, raw map[string]any, objNode responsetree.NodeID, path responsetree.Path) bool {
	for _, pf := range fields {
		rf := m.shape.lookup(pf)
		if rf == nil {
			continue // @skip/@include dropped it entirely
		}

		name := m.responseName(pf)
		fieldPath := path.Append(name)

		var child responsetree.NodeID
		var propagated bool

		switch {
		case rf.Modifier.Decision == planner.AuthDenyAll:
			child, propagated = m.denyDecision(pf, fieldPath, "not authenticated or missing required scope")
		case pf.Source.Definition == schema.NoField:
			child, propagated = m.tree.NewScalar(raw[name]), false
		default:
			fieldDef := m.s.Field(pf.Source.Definition)
			value, ok := raw[name]
			child, propagated = m.completeValue(fieldDef.Type(), pf, value, ok, fieldPath)
			if !propagated && rf.Modifier.Authorized {
				if allowed := m.authorize(fieldDef, value); !allowed {
					child, propagated = m.denyDecision(pf, fieldPath, "denied by authorization policy")
				}
			}
		}

		if propagated {
			if len(path) == 0 {
				m.tree.SetField(objNode, name, m.tree.NewNull())
				m.tree.MarkNullifiedPrefix(fieldPath)
				continue
			}
			m.tree.MarkNullifiedPrefix(path)
			return true
		}
		m.tree.SetField(objNode, name, child)
	}
	return false
}

// denyDecision records an access-denied error at path and returns the same
// (node, propagated) shape completeValue uses, so a denied non-null field
// nulls its nearest nullable ancestor exactly like any other non-null
// violation.
func (m *merger) denyDecision(pf *solver.PlannedField, path responsetree.Path, reason string) (responsetree.NodeID, bool) {
	m.tree.AddError(responsetree.GraphQLError{
		Message: fmt.Sprintf("not authorized to access field %s: %s", path.String(), reason),
		Path:    path,
	})
	if pf.Source.Definition != schema.NoField && m.s.Field(pf.Source.Definition).Type().IsNonNull() {
		return responsetree.NoNode, true
	}
	return m.tree.NewNull(), false
}

// authorize runs the configured Evaluator for one `@authorized` field. With
// no Evaluator configured there is no policy backend to consult, so access
// fails closed — `@authorized` is an explicit request for a check beyond
// ordinary schema visibility, and silently granting it would defeat that.
func (m *merger) authorize(fieldDef schema.Field, value any) bool {
	if m.authz == nil {
		return false
	}
	ref := authz.FieldRef{
		ParentTypeName: fieldDef.ParentType().Name(),
		FieldName:      fieldDef.Name(),
		Scopes:         m.authCtx.Scopes,
	}
	d, err := m.authz.Evaluate(m.ctx, ref, value)
	if err != nil {
		return false
	}
	return d.Allowed
}

// completeValue returns the tree node for one field's value, plus whether a
// non-null violation occurred that must propagate to the parent object.
func (m *merger) completeValue(t *schema.TypeExpr, pf *solver.PlannedField, raw any, present bool, path responsetree.Path) (responsetree.NodeID, bool) {
	if t.IsNonNull() {
		inner := t.Unwrap()
		if !present || raw == nil {
			m.tree.AddError(responsetree.GraphQLError{
				Message: fmt.Sprintf("cannot return null for non-nullable field %s", path.String()),
				Path:    path,
			})
			return responsetree.NoNode, true
		}
		child, propagated := m.completeInner(inner, pf, raw, path)
		if propagated {
			return responsetree.NoNode, true
		}
		return child, false
	}

	if !present || raw == nil {
		return m.tree.NewNull(), false
	}

	// A nullable field absorbs a violation propagated from inside it.
	child, propagated := m.completeInner(t, pf, raw, path)
	if propagated {
		return m.tree.NewNull(), false
	}
	return child, false
}

// completeInner completes a present, non-null value of t's nullable form,
// reporting any propagated violation to the caller unchanged.
func (m *merger) completeInner(t *schema.TypeExpr, pf *solver.PlannedField, raw any, path responsetree.Path) (responsetree.NodeID, bool) {
	if t.IsList() {
		return m.completeList(t.Unwrap(), pf, raw, path)
	}

	if pf.SelectionSet == nil {
		return m.tree.NewScalar(raw), false
	}
	return m.completeObject(pf, raw, path)
}

func (m *merger) completeList(elemType *schema.TypeExpr, pf *solver.PlannedField, raw any, path responsetree.Path) (responsetree.NodeID, bool) {
	items, ok := raw.([]any)
	if !ok {
		m.tree.AddError(responsetree.GraphQLError{Message: fmt.Sprintf("expected list value at %s", path.String()), Path: path})
		return responsetree.NoNode, true
	}
	listID := m.tree.NewList(len(items))
	for i, item := range items {
		itemPath := path.Append(i)
		child, propagated := m.completeValue(elemType, pf, item, true, itemPath)
		if propagated {
			return responsetree.NoNode, true
		}
		m.tree.SetListItem(listID, i, child)
	}
	return listID, false
}

func (m *merger) completeObject(pf *solver.PlannedField, raw any, path responsetree.Path) (responsetree.NodeID, bool) {
	obj, ok := raw.(map[string]any)
	if !ok {
		m.tree.AddError(responsetree.GraphQLError{Message: fmt.Sprintf("expected object value at %s", path.String()), Path: path})
		return responsetree.NoNode, true
	}

	objID := m.tree.NewObject()
	// Fields statically denied by @authenticated/@requiresScopes are
	// excluded before grouping — denied fields never trigger a subgraph
	// hop — then folded back into the set mergeInstance walks, since
	// that's the only place their null+error write happens.
	visible, denied := m.shape.classify(pf.SelectionSet.Fields)
	inline, childIDs := groupByPartition(visible, m.current)
	inline = append(inline, denied...)

	for _, childID := range childIDs {
		rep := extractRepresentation(m.allPartitions[childID], m.s, obj)
		m.pending[childID] = append(m.pending[childID], instance{Node: objID, Path: path, Representation: rep})
	}

	if m.mergeInstance(inline, obj, objID, path) {
		return responsetree.NoNode, true
	}
	return objID, false
}

func (m *merger) responseName(pf *solver.PlannedField) string {
	return m.op.ResponseKeyNames[pf.Source.ResponseKey]
}

func extractRepresentation(p *solver.QueryPartition, s *schema.Schema, obj map[string]any) map[string]any {
	rep := map[string]any{"__typename": s.Type(p.ParentType).Name()}
	copyKeySelection(rep, s, p.EntityKey, obj)
	copyKeySelection(rep, s, p.Requires, obj)
	return rep
}

func copyKeySelection(dst map[string]any, s *schema.Schema, sel *schema.RequiredSelectionSet, src map[string]any) {
	if sel == nil {
		return
	}
	for _, f := range sel.Fields {
		name := s.Field(f.Field).Name()
		v := src[name]
		if f.SubSelection == nil {
			dst[name] = v
			continue
		}
		nested := map[string]any{}
		if m, ok := v.(map[string]any); ok {
			copyKeySelection(nested, s, f.SubSelection, m)
		}
		dst[name] = nested
	}
}
