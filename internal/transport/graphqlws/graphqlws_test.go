package graphqlws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/grafbase/gatewaycore/internal/executor"
	"github.com/grafbase/gatewaycore/internal/operation"
	"github.com/grafbase/gatewaycore/internal/schema"
	"github.com/grafbase/gatewaycore/internal/solver"
	"github.com/grafbase/gatewaycore/internal/transport/graphqlws"
)

const helloSDL = `
schema { query: Query }
type Query { hello: String }
`

type fakeClient struct{ data map[string]any }

func (c *fakeClient) Execute(context.Context, schema.Subgraph, solver.PartitionID, string, map[string]any) (map[string]any, []executor.SubgraphErrorEntry, error) {
	return c.data, nil, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	b := schema.NewBuilder()
	b.AddSubgraph(schema.SubgraphInput{Name: "hello", URL: "http://hello.local/graphql", SDL: helloSDL, Timeout: time.Second})
	s, err := b.Build()
	require.NoError(t, err)

	binder := operation.NewBinder(s, operation.DefaultLimits)
	cache, err := operation.NewCache(binder, 0)
	require.NoError(t, err)

	client := &fakeClient{data: map[string]any{"hello": "world"}}
	pl := &graphqlws.Pipeline{Schema: s, Operations: cache, Executor: executor.New(client)}
	return httptest.NewServer(graphqlws.Handler(pl))
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/graphql"
	dialer := websocket.Dialer{Subprotocols: []string{"graphql-transport-ws"}}
	conn, _, err := dialer.Dial(url, http.Header{})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestServe_ConnectionInitAck(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "connection_init"}))
	msg := readEnvelope(t, conn)
	require.Equal(t, "connection_ack", msg["type"])
}

func TestServe_SubscribeBeforeAckIsRejected(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	conn := dial(t, srv)

	payload, _ := json.Marshal(map[string]any{"query": "{ hello }"})
	require.NoError(t, conn.WriteJSON(map[string]any{"id": "1", "type": "subscribe", "payload": json.RawMessage(payload)}))
	msg := readEnvelope(t, conn)
	require.Equal(t, "error", msg["type"])
}

func TestServe_SubscribeRunsOnceAndCompletes(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "connection_init"}))
	ack := readEnvelope(t, conn)
	require.Equal(t, "connection_ack", ack["type"])

	payload, _ := json.Marshal(map[string]any{"query": "{ hello }"})
	require.NoError(t, conn.WriteJSON(map[string]any{"id": "1", "type": "subscribe", "payload": json.RawMessage(payload)}))

	next := readEnvelope(t, conn)
	require.Equal(t, "next", next["type"])
	require.Equal(t, "1", next["id"])
	payloadMap, _ := next["payload"].(map[string]any)
	data, _ := payloadMap["data"].(map[string]any)
	require.Equal(t, "world", data["hello"])

	complete := readEnvelope(t, conn)
	require.Equal(t, "complete", complete["type"])
	require.Equal(t, "1", complete["id"])
}

func TestServe_PingPong(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "ping"}))
	msg := readEnvelope(t, conn)
	require.Equal(t, "pong", msg["type"])
}
