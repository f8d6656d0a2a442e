// Package authz evaluates `@authorized` once a field's value has been
// resolved from its subgraph. `@authenticated`/`@requiresScopes` are fully
// static — the planner settles those from the request's identity alone,
// before any subgraph is called — but `@authorized`'s grant can depend on
// the resolved value itself (row-level policy), so it is checked here,
// from the executor's merge step, instead.
package authz

import "context"

// Decision is the outcome of evaluating one `@authorized` field.
type Decision struct {
	Allowed bool
	Reason  string
}

// FieldRef identifies the field an Evaluator is being asked to authorize.
type FieldRef struct {
	ParentTypeName string
	FieldName      string
	Scopes         []string
}

// Evaluator checks one `@authorized` field's resolved value before it is
// written into the response tree.
type Evaluator interface {
	Evaluate(ctx context.Context, field FieldRef, value any) (Decision, error)
}

// ScopeEvaluator grants a field when the caller holds a scope matching
// "ParentTypeName.FieldName" — the same per-field scope convention
// `@requiresScopes` groups are checked against at plan time, extended to a
// value-dependent check site. It denies by default: `@authorized` marks a
// field as needing an explicit grant beyond ordinary schema visibility, so
// the absence of a matching scope is a denial, not a pass-through.
type ScopeEvaluator struct{}

func (ScopeEvaluator) Evaluate(_ context.Context, field FieldRef, _ any) (Decision, error) {
	want := field.ParentTypeName + "." + field.FieldName
	for _, s := range field.Scopes {
		if s == want {
			return Decision{Allowed: true}, nil
		}
	}
	return Decision{Reason: "missing scope " + want}, nil
}
