package solver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/grafbase/gatewaycore/internal/operation"
	"github.com/grafbase/gatewaycore/internal/schema"
)

// collectFields flattens a bound selection set into its leaf field list,
// inlining inline fragments and fragment spreads structurally without
// regard to their type condition. The planner and executor do not expand
// per concrete type either: a field under a type-conditioned fragment is
// planned, fetched and merged for whatever object the subgraph returns.
// The solver only needs to know which subgraph produces a field, and a
// field's resolver set does not vary by which object among a union's
// members happened to be returned.
func collectFields(sels []operation.Selection) []*operation.Field {
	var out []*operation.Field
	for _, sel := range sels {
		switch {
		case sel.Field != nil:
			out = append(out, sel.Field)
		case sel.InlineFragment != nil:
			out = append(out, collectFields(sel.InlineFragment.SelectionSet)...)
		case sel.FragmentSpread != nil:
			out = append(out, collectFields(sel.FragmentSpread.SelectionSet)...)
		}
	}
	return out
}

func isIntrospectionField(name string) bool {
	return strings.HasPrefix(name, "__")
}

func containsSubgraph(subs []schema.Subgraph, id schema.SubgraphID) bool {
	for _, s := range subs {
		if s.ID() == id {
			return true
		}
	}
	return false
}

// chooseEntityCandidate implements the dominated-candidate pruning spec.md
// §4.3 calls for: among resolvers that require crossing into another
// subgraph, the cheapest is the one whose @key selection asks for the
// fewest representation fields. Ties break on the lowest ResolverID so
// planning is deterministic across runs of the same operation.
func chooseEntityCandidate(candidates []schema.Resolver) schema.Resolver {
	best := candidates[0]
	bestCost := keySelectionCost(best)
	for _, c := range candidates[1:] {
		cost := keySelectionCost(c)
		if cost < bestCost || (cost == bestCost && c.ID() < best.ID()) {
			best, bestCost = c, cost
		}
	}
	return best
}

func keySelectionCost(r schema.Resolver) int {
	sel := r.KeySelection()
	if sel == nil {
		return 0
	}
	return len(sel.Fields)
}

// fingerprintKey renders a RequiredSelectionSet into a stable string so
// equal key shapes dedup to the same QueryPartition (sibling fields that
// need the same entity fetch share one partition instead of one each, per
// spec.md §4.3's sibling-dedup requirement).
func fingerprintKey(sel *schema.RequiredSelectionSet) string {
	if sel == nil {
		return ""
	}
	fields := append([]schema.RequiredSelectionField(nil), sel.Fields...)
	sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, "%d(%s)", f.Field, fingerprintKey(f.SubSelection))
	}
	return b.String()
}
