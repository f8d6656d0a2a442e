package executor

import (
	"github.com/grafbase/gatewaycore/internal/responsetree"
	"github.com/grafbase/gatewaycore/internal/solver"
)

// instance is one object position in the response tree that a partition
// must write its fields into. A root-resolved partition always has exactly
// one instance (the response root); an entity-fetch partition typically has
// one instance per object the parent selection produced (a list field fans
// out to many).
type instance struct {
	Node responsetree.NodeID
	Path responsetree.Path

	// Representation is the `__typename` + `@key` field values read off the
	// parent response at this position, used to build one element of the
	// `_entities(representations: ...)` array this instance feeds into.
	Representation map[string]any
}

// pendingInstances groups the instances discovered for each child partition
// while merging one round's responses, becoming that partition's instance
// set for the next round.
type pendingInstances map[solver.PartitionID][]instance
