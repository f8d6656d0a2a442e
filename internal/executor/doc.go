// Package executor drives a planner.OperationPlan to completion: it walks
// the Executable DAG in readiness order, issues one GraphQL-over-HTTP
// request per ready QueryPartition against the owning subgraph, and merges
// each response into a responsetree.Tree. It generalizes the teacher's
// depth-wise synchronous/async batch loop (executor.ExecuteRequest) from a
// fixed Runtime-resolved field tree to a true dependency DAG of subgraph
// fetches, keeping the same null-propagation contract.
package executor
