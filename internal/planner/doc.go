// Package planner lowers a solver.SolvedOperation into an OperationPlan: a
// ResponseShape describing the client-visible response tree, and an
// Executable DAG of QueryPartitions the executor drives to readiness. See
// SPEC_FULL.md §4.4.
package planner
