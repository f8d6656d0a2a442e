package executor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grafbase/gatewaycore/internal/executor"
	"github.com/grafbase/gatewaycore/internal/operation"
	"github.com/grafbase/gatewaycore/internal/planner"
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

func solveAndPlan(t *testing.T, s *schema.Schema, doc string) (*operation.Operation, *solver.SolvedOperation, *planner.OperationPlan) {
	t.Helper()
	op, err := operation.NewBinder(s, operation.DefaultLimits).Bind(doc, "", nil)
	require.NoError(t, err)
	solved, err := solver.Solve(op, s)
	require.NoError(t, err)
	plan, err := planner.Plan(op, solved, s, nil, planner.AuthContext{})
	require.NoError(t, err)
	return op, solved, plan
}

// fakeClient dispatches by subgraph name to a fixed response, recording call
// order so tests can assert on round scheduling without a real HTTP server.
type fakeClient struct {
	responses map[string]map[string]any
	calls     []string
}

func (c *fakeClient) Execute(_ context.Context, sg schema.Subgraph, _ solver.PartitionID, _ string, _ map[string]any) (map[string]any, []executor.SubgraphErrorEntry, error) {
	c.calls = append(c.calls, sg.Name())
	return c.responses[sg.Name()], nil, nil
}

func TestExecute_SingleSubgraphRootField(t *testing.T) {
	s := buildSchema(t)
	op, solved, plan := solveAndPlan(t, s, `{ me { id username } }`)

	client := &fakeClient{responses: map[string]map[string]any{
		"accounts": {"me": map[string]any{"id": "1", "username": "ada"}},
	}}

	tree := executor.New(client).Execute(context.Background(), op, solved, plan, s, nil, planner.AuthContext{})
	resp := tree.SerializeResponse()

	require.Empty(t, resp.Errors)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	me, ok := data["me"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "1", me["id"])
	require.Equal(t, "ada", me["username"])
}

func TestExecute_EntityFetchRunsAfterParentRound(t *testing.T) {
	s := buildSchema(t)
	op, solved, plan := solveAndPlan(t, s, `{ me { id username reviews } }`)
	require.Len(t, solved.Partitions, 2)

	client := &fakeClient{responses: map[string]map[string]any{
		"accounts": {"me": map[string]any{"id": "1", "username": "ada"}},
		"reviews": {"_entities": []any{
			map[string]any{"reviews": []any{"great", "terrible"}},
		}},
	}}

	tree := executor.New(client).Execute(context.Background(), op, solved, plan, s, nil, planner.AuthContext{})
	resp := tree.SerializeResponse()

	require.Empty(t, resp.Errors)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	me, ok := data["me"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "1", me["id"])
	require.Equal(t, "ada", me["username"])
	reviews, ok := me["reviews"].([]any)
	require.True(t, ok)
	require.Equal(t, []any{"great", "terrible"}, reviews)

	require.Equal(t, []string{"accounts", "reviews"}, client.calls, "the entity fetch must not run until the parent round produced its representation")
}

func TestExecute_NonNullFieldNullsNearestNullableAncestor(t *testing.T) {
	s := buildSchema(t)
	op, solved, plan := solveAndPlan(t, s, `{ me { id username } }`)

	client := &fakeClient{responses: map[string]map[string]any{
		"accounts": {"me": map[string]any{"id": "1", "username": nil}},
	}}

	tree := executor.New(client).Execute(context.Background(), op, solved, plan, s, nil, planner.AuthContext{})
	resp := tree.SerializeResponse()

	require.NotEmpty(t, resp.Errors)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	require.Nil(t, data["me"], "username's non-null violation should null its nearest nullable ancestor (me), not the whole response")
}

func TestExecute_SubgraphTransportErrorIsReportedPerInstance(t *testing.T) {
	s := buildSchema(t)
	op, solved, plan := solveAndPlan(t, s, `{ me { id } }`)

	client := &failingClient{err: context.DeadlineExceeded}
	tree := executor.New(client).Execute(context.Background(), op, solved, plan, s, nil, planner.AuthContext{})
	resp := tree.SerializeResponse()

	require.NotEmpty(t, resp.Errors)
}

type failingClient struct{ err error }

func (c *failingClient) Execute(context.Context, schema.Subgraph, solver.PartitionID, string, map[string]any) (map[string]any, []executor.SubgraphErrorEntry, error) {
	return nil, nil, c.err
}

func TestExecute_IntrospectionResolvesWithoutAnySubgraphCall(t *testing.T) {
	s := buildSchema(t)
	op, solved, plan := solveAndPlan(t, s, `{ __schema { queryType { name fields { name } } } }`)

	client := &fakeClient{responses: map[string]map[string]any{}}

	tree := executor.New(client).Execute(context.Background(), op, solved, plan, s, nil, planner.AuthContext{})
	resp := tree.SerializeResponse()

	require.Empty(t, resp.Errors)
	require.Empty(t, client.calls, "introspection must never reach a subgraph client")

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	schemaObj, ok := data["__schema"].(map[string]any)
	require.True(t, ok)
	queryType, ok := schemaObj["queryType"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Query", queryType["name"])

	fields, ok := queryType["fields"].([]any)
	require.True(t, ok)
	var sawMe bool
	for _, f := range fields {
		if fm, ok := f.(map[string]any); ok && fm["name"] == "me" {
			sawMe = true
		}
	}
	require.True(t, sawMe)
}

func TestExecute_TypeByNameLookupMiss(t *testing.T) {
	s := buildSchema(t)
	op, solved, plan := solveAndPlan(t, s, `{ __type(name: "DoesNotExist") { name } }`)

	client := &fakeClient{responses: map[string]map[string]any{}}
	tree := executor.New(client).Execute(context.Background(), op, solved, plan, s, nil, planner.AuthContext{})
	resp := tree.SerializeResponse()

	require.Empty(t, resp.Errors)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	require.Nil(t, data["__type"])
}
