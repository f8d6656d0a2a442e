package transport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grafbase/gatewaycore/internal/executor"
	"github.com/grafbase/gatewaycore/internal/operation"
	"github.com/grafbase/gatewaycore/internal/schema"
	"github.com/grafbase/gatewaycore/internal/solver"
	"github.com/grafbase/gatewaycore/internal/transport"
)

const helloSDL = `
schema { query: Query }
type Query { hello: String }
`

type fakeClient struct{ data map[string]any }

func (c *fakeClient) Execute(context.Context, schema.Subgraph, solver.PartitionID, string, map[string]any) (map[string]any, []executor.SubgraphErrorEntry, error) {
	return c.data, nil, nil
}

func newTestHandler(t *testing.T) *transport.Handler {
	t.Helper()
	b := schema.NewBuilder()
	b.AddSubgraph(schema.SubgraphInput{Name: "hello", URL: "http://hello.local/graphql", SDL: helloSDL, Timeout: time.Second})
	s, err := b.Build()
	require.NoError(t, err)

	binder := operation.NewBinder(s, operation.DefaultLimits)
	cache, err := operation.NewCache(binder, 0)
	require.NoError(t, err)

	client := &fakeClient{data: map[string]any{"hello": "world"}}
	return transport.New(s, cache, executor.New(client), transport.Options{})
}

func TestHandler_SimpleQuery(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewBufferString(`{"query":"{ hello }"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data, _ := body["data"].(map[string]any)
	require.Equal(t, "world", data["hello"])
}

func TestHandler_MissingQueryIsBadRequest(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_GETQueryString(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/graphql?query=%7B+hello+%7D", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data, _ := body["data"].(map[string]any)
	require.Equal(t, "world", data["hello"])
}

func TestHandler_BatchedRequests(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewBufferString(`[{"query":"{ hello }"},{"query":"{ hello }"}]`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 2)
}

func TestHandler_CORSPreflight(t *testing.T) {
	h := newTestHandler(t)
	h.Options.CORS.AllowedOrigins = []string{"https://app.example"}

	req := httptest.NewRequest(http.MethodOptions, "/graphql", nil)
	req.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
}
