// Package lookup implements the invocation strategy for a Lookup resolver:
// one that derives its value by delegating to another resolver
// (schema.Resolver.Inner), optionally batching many keys into a single call.
//
// It mirrors the grouping/dispatch shape of the teacher's
// grpcrt.Runtime.BatchResolveAsync (internal/grpcrt/runtime.go), which groups
// tasks by (objectType, field) and picks a batch-RPC or single-RPC path per
// group depending on what the registry has available for it. Here the two
// paths are schema.Resolver.Batch() true/false instead of a registry lookup,
// and "the RPC" is whatever Call a caller supplies — this package owns only
// the key-dedup-and-grouping strategy, not any particular transport.
package lookup

import "context"

// Call invokes the resolver's underlying lookup for a set of keys. When
// Batch is true it's expected to service every key in one round trip and
// return values aligned index-for-index with keys; when false it's called
// once per key (Invoke still dedups identical keys either way).
type Call func(ctx context.Context, keys []any) ([]any, error)

// Invoke resolves values for keys through call, deduplicating identical keys
// so a subgraph (or extension) backing a Lookup resolver never sees the same
// key twice in one round trip. Results are expanded back out to align with
// the original (non-deduplicated) keys slice.
func Invoke(ctx context.Context, batch bool, keys []any, call Call) ([]any, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	uniqueKeys, indexOfKey := dedup(keys)

	var values []any
	var err error
	if batch {
		values, err = call(ctx, uniqueKeys)
		if err != nil {
			return nil, err
		}
	} else {
		values = make([]any, len(uniqueKeys))
		for i, k := range uniqueKeys {
			v, callErr := call(ctx, []any{k})
			if callErr != nil {
				return nil, callErr
			}
			if len(v) > 0 {
				values[i] = v[0]
			}
		}
	}

	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = values[indexOfKey[fingerprint(k)]]
	}
	return out, nil
}

// dedup returns the distinct keys in first-seen order plus a map from each
// key's fingerprint to its position in that slice.
func dedup(keys []any) ([]any, map[any]int) {
	indexOfKey := make(map[any]int, len(keys))
	unique := make([]any, 0, len(keys))
	for _, k := range keys {
		fp := fingerprint(k)
		if _, ok := indexOfKey[fp]; ok {
			continue
		}
		indexOfKey[fp] = len(unique)
		unique = append(unique, k)
	}
	return unique, indexOfKey
}

// fingerprint returns a map key usable for deduplication. Lookup keys are
// always JSON-decoded GraphQL scalars (IDs, strings, numbers, booleans),
// which are natively comparable, so the value itself serves as its own
// fingerprint.
func fingerprint(k any) any { return k }
