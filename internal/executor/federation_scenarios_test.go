package executor_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/grafbase/gatewaycore/internal/executor"
	"github.com/grafbase/gatewaycore/internal/planner"
	"github.com/grafbase/gatewaycore/internal/schema"
)

const productsSDL = `
schema { query: Query }
type Query {
  topProducts: [Product!]!
}
type Product {
  name: String!
  price: Int!
}
`

// buildTwoIndependentSubgraphsSchema composes accounts (Query.me) and
// products (Query.topProducts) with no entity relationship between them —
// the "two-subgraph query" scenario (spec.md §8.1 #1).
func buildTwoIndependentSubgraphsSchema(t *testing.T) *schema.Schema {
	t.Helper()
	b := schema.NewBuilder()
	b.AddSubgraph(schema.SubgraphInput{Name: "accounts", URL: "http://accounts.local/graphql", SDL: accountsSDL, Timeout: time.Second})
	b.AddSubgraph(schema.SubgraphInput{Name: "products", URL: "http://products.local/graphql", SDL: productsSDL, Timeout: time.Second})
	s, err := b.Build()
	require.NoError(t, err)
	return s
}

func TestExecute_TwoSubgraphQueryConcatenatesBothSectionsWithOneRequestEach(t *testing.T) {
	s := buildTwoIndependentSubgraphsSchema(t)
	op, solved, plan := solveAndPlan(t, s, `{ me { id username } topProducts { name price } }`)
	require.Len(t, solved.Partitions, 2, "me and topProducts belong to different subgraphs, each its own partition")

	client := &fakeClient{responses: map[string]map[string]any{
		"accounts": {"me": map[string]any{"id": "1", "username": "ada"}},
		"products": {"topProducts": []any{
			map[string]any{"name": "couch", "price": 1299},
			map[string]any{"name": "lamp", "price": 39},
		}},
	}}

	tree := executor.New(client).Execute(context.Background(), op, solved, plan, s, nil, planner.AuthContext{})
	resp := tree.SerializeResponse()

	require.Empty(t, resp.Errors)

	want := map[string]any{
		"me": map[string]any{"id": "1", "username": "ada"},
		"topProducts": []any{
			map[string]any{"name": "couch", "price": 1299},
			map[string]any{"name": "lamp", "price": 39},
		},
	}
	if diff := cmp.Diff(want, resp.Data); diff != "" {
		t.Fatalf("response data mismatch (-want +got):\n%s", diff)
	}

	require.ElementsMatch(t, []string{"accounts", "products"}, client.calls,
		"each independent subgraph must be called exactly once, regardless of how many fields it owns")
	require.Len(t, client.calls, 2)
}
