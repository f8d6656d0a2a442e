package executor

import (
	"context"
	"sync"

	"github.com/grafbase/gatewaycore/internal/authz"
	"github.com/grafbase/gatewaycore/internal/operation"
	"github.com/grafbase/gatewaycore/internal/planner"
	"github.com/grafbase/gatewaycore/internal/resolver/introspection"
	"github.com/grafbase/gatewaycore/internal/responsetree"
	"github.com/grafbase/gatewaycore/internal/schema"
	"github.com/grafbase/gatewaycore/internal/solver"
	multierror "github.com/hashicorp/go-multierror"
)

// Executor drives one OperationPlan to completion against a SubgraphClient.
type Executor struct {
	Client SubgraphClient
	// Authz resolves `@authorized` fields once their value has come back
	// from a subgraph. ScopeEvaluator is the default: it denies any field
	// with no matching scope in the request's AuthContext.
	Authz authz.Evaluator
}

func New(client SubgraphClient) *Executor {
	return &Executor{Client: client, Authz: authz.ScopeEvaluator{}}
}

// Execute runs plan's partitions in dependency order, fanning ready
// partitions out concurrently (a generalization of the teacher's
// depth-wise asyncTaskGroup batch loop — executor.ExecuteRequest — from a
// fixed synchronous/async field split to an arbitrary DAG of subgraph
// fetches), and returns the populated response tree.
func (e *Executor) Execute(ctx context.Context, op *operation.Operation, solved *solver.SolvedOperation, plan *planner.OperationPlan, s *schema.Schema, variables map[string]any, authCtx planner.AuthContext) *responsetree.Tree {
	tree := responsetree.New()
	shapeIdx := buildShapeIndex(solved.Root, plan.Shape)

	queries := make([]*PartitionQuery, len(plan.Executables))
	for i := range plan.Executables {
		pq, _, err := BuildPartitionQuery(s, op, partitionList(solved), shapeIdx, solver.PartitionID(i), variables)
		if err != nil {
			tree.AddError(responsetree.GraphQLError{Message: err.Error()})
			return tree
		}
		queries[i] = pq
	}

	state := &driverState{
		tree:       tree,
		s:          s,
		op:         op,
		partitions: partitionList(solved),
		queries:    queries,
		remaining:  make([]int, len(plan.Executables)),
		instances:  make([][]instance, len(plan.Executables)),
		shape:      shapeIdx,
		authz:      e.Authz,
		authCtx:    authCtx,
		variables:  variables,
	}
	for i, ex := range plan.Executables {
		state.remaining[i] = ex.ParentCount
	}
	// Every non-entity-fetch partition is resolved directly against the
	// operation root, regardless of how many sibling root partitions exist
	// (one per distinct subgraph a root field comes from) or whether a
	// mutation's serial-barrier DependsOn edges delay its turn.
	for i, p := range state.partitions {
		if !p.IsEntityFetch {
			state.instances[i] = []instance{{Node: tree.Root, Path: nil}}
		}
	}

	state.run(ctx, e.Client, plan)
	return tree
}

func partitionList(solved *solver.SolvedOperation) []*solver.QueryPartition { return solved.Partitions }

// driverState holds the mutable bookkeeping for one Execute call: which
// partitions are still waiting on dependencies, and the instances queued
// for each partition's next round.
type driverState struct {
	mu sync.Mutex

	tree       *responsetree.Tree
	s          *schema.Schema
	op         *operation.Operation
	partitions []*solver.QueryPartition
	queries    []*PartitionQuery

	remaining []int
	instances [][]instance

	shape     shapeIndex
	authz     authz.Evaluator
	authCtx   planner.AuthContext
	variables map[string]any
}

// run executes partitions in readiness order: every partition whose
// dependency count has reached zero runs concurrently, each round, until
// none remain ready.
func (st *driverState) run(ctx context.Context, client SubgraphClient, plan *planner.OperationPlan) {
	for {
		ready := st.readyPartitions(plan)
		if len(ready) == 0 {
			return
		}

		var wg sync.WaitGroup
		for _, id := range ready {
			id := id
			wg.Add(1)
			go func() {
				defer wg.Done()
				st.runPartition(ctx, client, id)
			}()
		}
		wg.Wait()

		st.markDone(ready, plan)
	}
}

func (st *driverState) readyPartitions(plan *planner.OperationPlan) []solver.PartitionID {
	st.mu.Lock()
	defer st.mu.Unlock()

	var ready []solver.PartitionID
	for i, ex := range plan.Executables {
		if ex == nil {
			continue
		}
		if st.remaining[i] == 0 && len(st.instances[i]) > 0 {
			ready = append(ready, solver.PartitionID(i))
		}
	}
	return ready
}

func (st *driverState) markDone(done []solver.PartitionID, plan *planner.OperationPlan) {
	st.mu.Lock()
	defer st.mu.Unlock()

	for _, id := range done {
		plan.Executables[id] = nil // never scheduled again
	}
	for _, ex := range plan.Executables {
		if ex == nil {
			continue
		}
		for _, dep := range ex.DependsOn {
			for _, doneID := range done {
				if solver.PartitionID(dep) == doneID {
					ex.ParentCount--
				}
			}
		}
	}
	// Rebuild remaining from the (mutated) ParentCount so readyPartitions
	// reflects this round's completions on the next pass.
	for i, ex := range plan.Executables {
		if ex != nil {
			st.remaining[i] = ex.ParentCount
		}
	}
}

// runPartition issues one partition's request for every instance currently
// queued for it, merges the response(s), and clears its instance queue.
func (st *driverState) runPartition(ctx context.Context, client SubgraphClient, id solver.PartitionID) {
	st.mu.Lock()
	insts := st.instances[id]
	st.instances[id] = nil
	st.mu.Unlock()

	if len(insts) == 0 {
		return
	}

	p := st.partitions[id]

	if p.IsIntrospection {
		st.runIntrospectionPartition(ctx, p, insts)
		return
	}

	pq := st.queries[id]
	sg := st.s.Subgraph(p.Subgraph)

	variables := map[string]any{}
	for k, v := range pq.ArgumentValues {
		variables[k] = v
	}

	if p.IsEntityFetch {
		reps := make([]map[string]any, len(insts))
		for i, inst := range insts {
			reps[i] = inst.Representation
		}
		variables[representationsVar] = reps
	}

	data, subErrs, err := client.Execute(ctx, sg, id, pq.Document, variables)

	st.mu.Lock()
	defer st.mu.Unlock()

	if err != nil {
		merr := multierror.Append(nil, err)
		for _, inst := range insts {
			st.tree.AddError(responsetree.GraphQLError{Message: merr.Error(), Path: inst.Path})
		}
		return
	}

	pending := pendingInstances{}
	m := newMerger(ctx, st.tree, st.s, st.op, st.partitions, id, pending, st.shape, st.authz, st.authCtx)

	if p.IsEntityFetch {
		list, _ := data["_entities"].([]any)
		for i, inst := range insts {
			if i >= len(list) {
				st.tree.AddError(responsetree.GraphQLError{Message: "subgraph returned fewer entities than requested", Path: inst.Path})
				continue
			}
			obj, ok := list[i].(map[string]any)
			if !ok {
				st.tree.AddError(responsetree.GraphQLError{Message: "subgraph entity result was not an object", Path: inst.Path})
				continue
			}
			m.mergeInstance(p.Fields, obj, inst.Node, inst.Path)
		}
	} else {
		inst := insts[0]
		m.mergeInstance(p.Fields, data, inst.Node, inst.Path)
	}

	for _, se := range subErrs {
		st.tree.AddError(responsetree.GraphQLError{Message: se.Message, Extensions: se.Extensions})
	}

	for childID, childInsts := range pending {
		st.instances[childID] = append(st.instances[childID], childInsts...)
	}
}

// runIntrospectionPartition answers `__schema`/`__type` out of the Schema
// directly: no subgraph document was ever meant to be sent for it (the one
// BuildPartitionQuery renders is harmless throwaway text), so this computes
// the value tree in-process and feeds it through the same merge logic every
// other partition uses.
func (st *driverState) runIntrospectionPartition(ctx context.Context, p *solver.QueryPartition, insts []instance) {
	data := introspection.Resolve(st.s, st.op, st.variables, p.Fields)

	st.mu.Lock()
	defer st.mu.Unlock()

	pending := pendingInstances{}
	m := newMerger(ctx, st.tree, st.s, st.op, st.partitions, p.ID, pending, st.shape, st.authz, st.authCtx)

	inst := insts[0]
	m.mergeInstance(p.Fields, data, inst.Node, inst.Path)

	for childID, childInsts := range pending {
		st.instances[childID] = append(st.instances[childID], childInsts...)
	}
}
