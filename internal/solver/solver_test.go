package solver_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grafbase/gatewaycore/internal/operation"
	"github.com/grafbase/gatewaycore/internal/schema"
	"github.com/grafbase/gatewaycore/internal/solver"
)

const accountsSDL = `
schema { query: Query }
type Query {
  me: User
}
type User @key(fields: "id") {
  id: ID!
  username: String!
}
`

const reviewsSDL = `
schema { query: Query }
type User @key(fields: "id") {
  id: ID!
  reviews: [String!]!
}
`

func buildSchema(t *testing.T) *schema.Schema {
	t.Helper()
	b := schema.NewBuilder()
	b.AddSubgraph(schema.SubgraphInput{Name: "accounts", URL: "http://accounts.local/graphql", SDL: accountsSDL, Timeout: time.Second})
	b.AddSubgraph(schema.SubgraphInput{Name: "reviews", URL: "http://reviews.local/graphql", SDL: reviewsSDL, Timeout: time.Second})
	s, err := b.Build()
	require.NoError(t, err)
	return s
}

func bind(t *testing.T, s *schema.Schema, doc string) *operation.Operation {
	t.Helper()
	op, err := operation.NewBinder(s, operation.DefaultLimits).Bind(doc, "", nil)
	require.NoError(t, err)
	return op
}

func TestSolve_SingleSubgraphNeedsOnePartition(t *testing.T) {
	s := buildSchema(t)
	op := bind(t, s, `{ me { id username } }`)

	solved, err := solver.Solve(op, s)
	require.NoError(t, err)
	require.Len(t, solved.Partitions, 1)
	require.Equal(t, "accounts", s.Subgraph(solved.Partitions[0].Subgraph).Name())
}

func TestSolve_CrossSubgraphFieldOpensEntityPartition(t *testing.T) {
	s := buildSchema(t)
	op := bind(t, s, `{ me { id username reviews } }`)

	solved, err := solver.Solve(op, s)
	require.NoError(t, err)
	require.Len(t, solved.Partitions, 2, "reviews should force a second, reviews-subgraph partition")

	var reviewsPartition *solver.QueryPartition
	for _, p := range solved.Partitions {
		if s.Subgraph(p.Subgraph).Name() == "reviews" {
			reviewsPartition = p
		}
	}
	require.NotNil(t, reviewsPartition)
	require.True(t, reviewsPartition.IsEntityFetch)
	require.NotEmpty(t, reviewsPartition.DependsOn)
}

func TestSolve_SiblingFieldsShareOneEntityPartition(t *testing.T) {
	s := buildSchema(t)
	op := bind(t, s, `{ me { reviews } meAgain: me { reviews } }`)

	solved, err := solver.Solve(op, s)
	require.NoError(t, err)

	reviewsPartitions := 0
	for _, p := range solved.Partitions {
		if s.Subgraph(p.Subgraph).Name() == "reviews" {
			reviewsPartitions++
		}
	}
	require.Equal(t, 1, reviewsPartitions, "both me{} selections key into the same user, so they should dedup to one entity partition")
}

func TestSolve_ResolvableFieldPlansWithoutError(t *testing.T) {
	// A field whose Definition FieldID was bound against a different
	// schema (simulated by zero value) should never reach Solve in
	// practice since Bind already rejects it; Solve's own defense is
	// exercised indirectly through the binder tests. This test instead
	// covers the plain "resolvable" happy path returns no error.
	s := buildSchema(t)
	op := bind(t, s, `{ me { id } }`)
	_, err := solver.Solve(op, s)
	require.NoError(t, err)
}

func TestSolve_IntrospectionRootGetsItsOwnNoSubgraphPartition(t *testing.T) {
	s := buildSchema(t)
	op := bind(t, s, `{ __schema { queryType { name } } __type(name: "User") { name } }`)

	solved, err := solver.Solve(op, s)
	require.NoError(t, err)
	require.Len(t, solved.Partitions, 1, "__schema and __type share one in-process partition")

	p := solved.Partitions[0]
	require.True(t, p.IsIntrospection)
	require.Equal(t, schema.NoSubgraph, p.Subgraph)
	require.Len(t, p.Fields, 2)
}

func TestSolve_IntrospectionAndRootFieldsPlanIndependently(t *testing.T) {
	s := buildSchema(t)
	op := bind(t, s, `{ me { id } __schema { queryType { name } } }`)

	solved, err := solver.Solve(op, s)
	require.NoError(t, err)
	require.Len(t, solved.Partitions, 2)

	var sawIntrospection, sawAccounts bool
	for _, p := range solved.Partitions {
		if p.IsIntrospection {
			sawIntrospection = true
			require.Equal(t, schema.NoSubgraph, p.Subgraph)
		} else {
			sawAccounts = true
			require.Equal(t, "accounts", s.Subgraph(p.Subgraph).Name())
		}
	}
	require.True(t, sawIntrospection)
	require.True(t, sawAccounts)
}
