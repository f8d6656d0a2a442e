package planner_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grafbase/gatewaycore/internal/operation"
	"github.com/grafbase/gatewaycore/internal/planner"
	"github.com/grafbase/gatewaycore/internal/schema"
	"github.com/grafbase/gatewaycore/internal/solver"
)

const productsSDL = `
schema { query: Query, mutation: Mutation }
type Query {
  topProducts: [Product!]!
}
type Mutation {
  addProduct(name: String!): Product!
  removeProduct(upc: String!): Boolean!
}
type Product @key(fields: "upc") {
  upc: String!
  name: String
  secret: String @authenticated
}
`

func buildSchema(t *testing.T) *schema.Schema {
	t.Helper()
	b := schema.NewBuilder()
	b.AddSubgraph(schema.SubgraphInput{Name: "products", URL: "http://products.local/graphql", SDL: productsSDL, Timeout: time.Second})
	s, err := b.Build()
	require.NoError(t, err)
	return s
}

func TestPlan_SkipDirectiveOmitsField(t *testing.T) {
	s := buildSchema(t)
	op, err := operation.NewBinder(s, operation.DefaultLimits).Bind(`query Q($skip: Boolean!) { topProducts { upc name @skip(if: $skip) } }`, "Q", map[string]any{"skip": true})
	require.NoError(t, err)

	solved, err := solver.Solve(op, s)
	require.NoError(t, err)

	plan, err := planner.Plan(op, solved, s, map[string]any{"skip": true}, planner.AuthContext{})
	require.NoError(t, err)

	products := plan.Shape.Fields[0]
	require.Len(t, products.SelectionSet.Fields, 1)
	require.Equal(t, "upc", products.SelectionSet.Fields[0].Name)
}

func TestPlan_AuthenticatedDeniesAnonymous(t *testing.T) {
	s := buildSchema(t)
	op, err := operation.NewBinder(s, operation.DefaultLimits).Bind(`{ topProducts { upc secret } }`, "", nil)
	require.NoError(t, err)

	solved, err := solver.Solve(op, s)
	require.NoError(t, err)

	plan, err := planner.Plan(op, solved, s, nil, planner.AuthContext{Authenticated: false})
	require.NoError(t, err)

	secretField := plan.Shape.Fields[0].SelectionSet.Fields[1]
	require.Equal(t, "secret", secretField.Name)
	require.Equal(t, planner.AuthDenyAll, secretField.Modifier.Decision)
}

func TestPlan_MutationRootFieldsOnOneSubgraphShareOneExecutable(t *testing.T) {
	s := buildSchema(t)
	op, err := operation.NewBinder(s, operation.DefaultLimits).Bind(`mutation { addProduct(name: "x") { upc } removeProduct(upc: "y") }`, "", nil)
	require.NoError(t, err)

	solved, err := solver.Solve(op, s)
	require.NoError(t, err)
	require.Len(t, solved.Partitions, 1, "both mutation fields are on the products subgraph, same partition")

	plan, err := planner.Plan(op, solved, s, nil, planner.AuthContext{})
	require.NoError(t, err)
	require.Len(t, plan.Executables, 1)
}
