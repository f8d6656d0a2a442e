// Package solver assigns each field of a bound operation.Operation to one
// schema.Resolver and groups the result into QueryPartitions — contiguous
// runs of fields sent to the same subgraph in one request. See
// SPEC_FULL.md §4.3.
package solver
