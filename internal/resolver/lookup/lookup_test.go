package lookup_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafbase/gatewaycore/internal/resolver/lookup"
)

func TestInvoke_BatchCallsOnceWithDeduplicatedKeys(t *testing.T) {
	var seen []any
	call := func(_ context.Context, keys []any) ([]any, error) {
		seen = keys
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = k.(string) + "!"
		}
		return out, nil
	}

	values, err := lookup.Invoke(context.Background(), true, []any{"a", "b", "a"}, call)
	require.NoError(t, err)
	require.Equal(t, []any{"a", "b"}, seen, "duplicate key must be collapsed before the call")
	require.Equal(t, []any{"a!", "b!", "a!"}, values, "results expand back out to every original key")
}

func TestInvoke_NonBatchCallsOncePerUniqueKey(t *testing.T) {
	calls := 0
	call := func(_ context.Context, keys []any) ([]any, error) {
		calls++
		require.Len(t, keys, 1)
		return []any{keys[0]}, nil
	}

	values, err := lookup.Invoke(context.Background(), false, []any{"x", "x", "y"}, call)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Equal(t, []any{"x", "x", "y"}, values)
}

func TestInvoke_EmptyKeysIsANoop(t *testing.T) {
	values, err := lookup.Invoke(context.Background(), true, nil, func(context.Context, []any) ([]any, error) {
		t.Fatal("call should never run for an empty key set")
		return nil, nil
	})
	require.NoError(t, err)
	require.Nil(t, values)
}
