package schema_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grafbase/gatewaycore/internal/schema"
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

const productsSDL = `
schema { query: Query }
type Query {
  topProducts: [Product!]!
}
type Product @key(fields: "upc") {
  upc: String!
  name: String!
  price: Int
}
type User @key(fields: "id") {
  id: ID!
  reviews: [String!]!
}
`

func buildTwoSubgraphSchema(t *testing.T) *schema.Schema {
	t.Helper()
	b := schema.NewBuilder()
	b.AddSubgraph(schema.SubgraphInput{Name: "accounts", URL: "http://accounts.local/graphql", SDL: accountsSDL, Timeout: time.Second})
	b.AddSubgraph(schema.SubgraphInput{Name: "products", URL: "http://products.local/graphql", SDL: productsSDL, Timeout: time.Second})
	s, err := b.Build()
	require.NoError(t, err)
	return s
}

func TestBuilder_ComposesFieldsAcrossSubgraphs(t *testing.T) {
	s := buildTwoSubgraphSchema(t)

	userType, ok := s.LookupType("User")
	require.True(t, ok)
	u := s.Type(userType)
	require.True(t, u.IsEntity())

	_, ok = u.FieldByName("username")
	require.True(t, ok, "username should be merged in from the accounts subgraph")
	_, ok = u.FieldByName("reviews")
	require.True(t, ok, "reviews should be merged in from the products subgraph")
}

func TestBuilder_EveryEntityHasAResolver(t *testing.T) {
	s := buildTwoSubgraphSchema(t)
	productType, ok := s.LookupType("Product")
	require.True(t, ok)
	p := s.Type(productType)
	require.NotEmpty(t, p.EntityKeys())
	require.True(t, p.IsEntity())
}

func TestBuilder_DuplicateSubgraphIsRejected(t *testing.T) {
	b := schema.NewBuilder()
	b.AddSubgraph(schema.SubgraphInput{Name: "accounts", SDL: accountsSDL})
	b.AddSubgraph(schema.SubgraphInput{Name: "accounts", SDL: accountsSDL})
	_, err := b.Build()
	require.Error(t, err)
}

func TestContracts_UnionInaccessibleWhenAllMembersAre(t *testing.T) {
	const sdl = `
schema { query: Query }
type Query { search: SearchResult }
union SearchResult = Hidden
type Hidden @inaccessible { id: ID! }
`
	b := schema.NewBuilder()
	b.AddSubgraph(schema.SubgraphInput{Name: "search", SDL: sdl})
	s, err := b.Build()
	require.NoError(t, err)

	id, ok := s.LookupType("SearchResult")
	require.True(t, ok)
	require.True(t, s.Type(id).Inaccessible())
}

func TestRequiredSelectionSet_UnionAndSubset(t *testing.T) {
	s := buildTwoSubgraphSchema(t)
	userType, _ := s.LookupType("User")
	idField, _ := s.FieldByName(userType, "id")
	usernameField, _ := s.FieldByName(userType, "username")

	a := &schema.RequiredSelectionSet{Fields: []schema.RequiredSelectionField{{Field: idField}}}
	bSet := &schema.RequiredSelectionSet{Fields: []schema.RequiredSelectionField{{Field: usernameField}}}

	union := a.Union(bSet)
	require.Len(t, union.Fields, 2)
	require.True(t, a.IsSubsetOf(union))
	require.False(t, union.IsSubsetOf(a))
}
