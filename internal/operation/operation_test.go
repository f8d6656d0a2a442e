package operation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grafbase/gatewaycore/internal/operation"
	"github.com/grafbase/gatewaycore/internal/schema"
)

const productsSDL = `
schema { query: Query }
type Query {
  topProducts(first: Int = 10): [Product!]!
}
type Product @key(fields: "upc") {
  upc: String!
  name: String!
  price: Int
}
input ProductFilter {
  minPrice: Int
  name: String
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

func TestBind_SimpleQuery(t *testing.T) {
	s := buildSchema(t)
	binder := operation.NewBinder(s, operation.DefaultLimits)

	op, err := binder.Bind(`{ topProducts { upc name } }`, "", nil)
	require.NoError(t, err)
	require.Equal(t, operation.KindQuery, op.Kind)
	require.Len(t, op.SelectionSet, 1)

	field := op.SelectionSet[0].Field
	require.NotNil(t, field)
	require.Equal(t, "topProducts", field.Name)
	require.Len(t, field.SelectionSet, 2)
}

func TestBind_AliasAndVariable(t *testing.T) {
	s := buildSchema(t)
	binder := operation.NewBinder(s, operation.DefaultLimits)

	op, err := binder.Bind(`query Top($n: Int) { items: topProducts(first: $n) { upc } }`, "Top", map[string]any{"n": 5})
	require.NoError(t, err)

	field := op.SelectionSet[0].Field
	require.Equal(t, "items", field.Alias)
	require.Equal(t, "topProducts", field.Name)
	require.Len(t, field.Arguments, 1)

	val, err := operation.ResolveInputValue(op, field.Arguments[0].Value, map[string]any{"n": 5})
	require.NoError(t, err)
	require.Equal(t, 5, val)
}

func TestBind_UnknownFieldRejected(t *testing.T) {
	s := buildSchema(t)
	binder := operation.NewBinder(s, operation.DefaultLimits)

	_, err := binder.Bind(`{ topProducts { doesNotExist } }`, "", nil)
	require.Error(t, err)
}

func TestBind_MissingRequiredVariableRejected(t *testing.T) {
	s := buildSchema(t)
	binder := operation.NewBinder(s, operation.DefaultLimits)

	_, err := binder.Bind(`query Q($n: Int!) { topProducts(first: $n) { upc } }`, "Q", map[string]any{})
	require.Error(t, err)
}

func TestBind_DepthLimitEnforced(t *testing.T) {
	s := buildSchema(t)
	binder := operation.NewBinder(s, operation.Limits{MaxDepth: 1})

	_, err := binder.Bind(`{ topProducts { upc } }`, "", nil)
	require.Error(t, err)
}

func TestCache_ReturnsSameOperationForSameShape(t *testing.T) {
	s := buildSchema(t)
	binder := operation.NewBinder(s, operation.DefaultLimits)
	cache, err := operation.NewCache(binder, 16)
	require.NoError(t, err)

	doc := `query Top($n: Int) { topProducts(first: $n) { upc } }`
	a, err := cache.Bind(t.Context(), doc, "Top", map[string]any{"n": 1})
	require.NoError(t, err)
	b, err := cache.Bind(t.Context(), doc, "Top", map[string]any{"n": 2})
	require.NoError(t, err)
	require.Same(t, a, b)
}

func TestResolveDocument_APQRoundTrip(t *testing.T) {
	client := operation.NewInMemoryTrustedDocuments()
	doc := `{ topProducts { upc } }`
	hash := client.Register(doc)

	got, err := operation.ResolveDocument(t.Context(), client, &operation.PersistedQueryExtension{Version: 1, SHA256Hash: hash}, "")
	require.NoError(t, err)
	require.Equal(t, doc, got)
}

func TestResolveDocument_NotFound(t *testing.T) {
	client := operation.NewInMemoryTrustedDocuments()
	_, err := operation.ResolveDocument(t.Context(), client, &operation.PersistedQueryExtension{Version: 1, SHA256Hash: "deadbeef"}, "")
	require.ErrorIs(t, err, operation.ErrPersistedQueryNotFound)
}
