// Package responsetree is the arena-backed response tree the executor
// writes into as subgraph results complete. It generalizes the teacher's
// `map[string]any` response building (executor.executeSelectionSet) to a
// dense-id arena per spec.md §3/§9, keeping the same null-propagation
// behavior: a non-null field that resolves to null nulls its nearest
// nullable ancestor instead of the whole response.
package responsetree
