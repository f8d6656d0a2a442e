// Package graphqlws adapts the graphql-transport-ws protocol
// (connection_init/connection_ack/subscribe/next/error/complete/ping/pong)
// onto the Bind→Solve→Plan→Execute pipeline. Grounded on
// _examples/samsarahq-thunder's graphql.conn/ServeJSONSocket (per-connection
// struct with a write mutex and a subscriptions map, read loop dispatching
// on an envelope's message type) using gorilla/websocket for the transport,
// same as _examples/volaticloud-volaticloud's subscription handler.
//
// This adapter is a thin demonstrator of the wire protocol, not a live
// subscription engine: resolver support for long-lived subscription fields
// (internal/resolver's execute_subscription contract) is out of scope here,
// so `subscribe` runs the operation once through the ordinary pipeline and
// delivers its single result as one `next` message followed by `complete` —
// the same behavior a `query`/`mutation` would get over HTTP, wired to the
// protocol a real streaming subscription would use.
package graphqlws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/grafbase/gatewaycore/internal/auth"
	"github.com/grafbase/gatewaycore/internal/executor"
	"github.com/grafbase/gatewaycore/internal/operation"
	"github.com/grafbase/gatewaycore/internal/planner"
	"github.com/grafbase/gatewaycore/internal/schema"
	"github.com/grafbase/gatewaycore/internal/solver"
)

const (
	typeConnectionInit = "connection_init"
	typeConnectionAck  = "connection_ack"
	typeSubscribe      = "subscribe"
	typeNext           = "next"
	typeError          = "error"
	typeComplete       = "complete"
	typePing           = "ping"
	typePong           = "pong"

	// connectionInitTimeout is how long a client has to send
	// connection_init before the server drops the socket, per the
	// graphql-transport-ws spec.
	connectionInitTimeout = 10 * time.Second
)

// Pipeline is the subset of the gateway's request pipeline a subscribe
// message drives.
type Pipeline struct {
	Schema     *schema.Schema
	Operations *operation.Cache
	Executor   *executor.Executor
}

func (p *Pipeline) run(ctx context.Context, query, operationName string, variables map[string]any) any {
	op, err := p.Operations.Bind(ctx, query, operationName, variables)
	if err != nil {
		return errorMessage(err.Error())
	}
	solved, err := solver.Solve(op, p.Schema)
	if err != nil {
		return errorMessage(err.Error())
	}
	authCtx := auth.FromContext(ctx)
	plan, err := planner.Plan(op, solved, p.Schema, variables, authCtx)
	if err != nil {
		return errorMessage(err.Error())
	}
	tree := p.Executor.Execute(ctx, op, solved, plan, p.Schema, variables, authCtx)
	return tree.SerializeResponse()
}

func errorMessage(msg string) map[string]any {
	return map[string]any{"errors": []map[string]any{{"message": msg}}}
}

type envelope struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type subscribePayload struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// conn holds one socket's protocol state: whether connection_init has been
// acknowledged, and which subscribe ids are still open (a id can only be
// reused once its own complete/error has been sent).
type conn struct {
	socket *websocket.Conn
	pl     *Pipeline

	writeMu sync.Mutex

	mu      sync.Mutex
	acked   bool
	openIDs map[string]context.CancelFunc
}

// Serve drives socket until it closes or a protocol violation ends the
// connection. ctx is the base context each subscribe's pipeline run derives
// its own cancelable context from (cancel it to close every in-flight
// operation on this connection, e.g. on server shutdown).
func Serve(ctx context.Context, socket *websocket.Conn, pl *Pipeline) {
	c := &conn{socket: socket, pl: pl, openIDs: map[string]context.CancelFunc{}}
	defer c.closeAll()

	socket.SetReadDeadline(time.Now().Add(connectionInitTimeout))

	for {
		var in envelope
		if err := socket.ReadJSON(&in); err != nil {
			if !isCloseError(err) {
				log.Printf("graphqlws: read: %v", err)
			}
			return
		}
		if err := c.handle(ctx, &in); err != nil {
			log.Printf("graphqlws: handle: %v", err)
			return
		}
	}
}

func (c *conn) handle(ctx context.Context, in *envelope) error {
	switch in.Type {
	case typeConnectionInit:
		c.mu.Lock()
		c.acked = true
		c.mu.Unlock()
		c.socket.SetReadDeadline(time.Time{})
		return c.write(envelope{Type: typeConnectionAck})

	case typePing:
		return c.write(envelope{Type: typePong})

	case typePong:
		return nil

	case typeSubscribe:
		c.mu.Lock()
		ok := c.acked
		c.mu.Unlock()
		if !ok {
			return c.write(envelope{Type: typeError, ID: in.ID, Payload: mustMarshal([]map[string]any{{"message": "unauthorized: connection_init not yet acknowledged"}})})
		}
		var payload subscribePayload
		if err := json.Unmarshal(in.Payload, &payload); err != nil {
			return c.write(envelope{Type: typeError, ID: in.ID, Payload: mustMarshal([]map[string]any{{"message": "invalid subscribe payload"}})})
		}
		c.startSubscribe(ctx, in.ID, payload)
		return nil

	case typeComplete:
		c.cancelSubscribe(in.ID)
		return nil

	default:
		return c.write(envelope{Type: typeError, ID: in.ID, Payload: mustMarshal([]map[string]any{{"message": "unknown message type"}})})
	}
}

func (c *conn) startSubscribe(ctx context.Context, id string, payload subscribePayload) {
	c.mu.Lock()
	if _, exists := c.openIDs[id]; exists {
		c.mu.Unlock()
		c.write(envelope{Type: typeError, ID: id, Payload: mustMarshal([]map[string]any{{"message": "subscriber already exists for id"}})})
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.openIDs[id] = cancel
	c.mu.Unlock()

	go func() {
		defer c.cancelSubscribe(id)
		result := c.pl.run(runCtx, payload.Query, payload.OperationName, payload.Variables)
		if runCtx.Err() != nil {
			return
		}
		c.write(envelope{Type: typeNext, ID: id, Payload: mustMarshal(result)})
		c.write(envelope{Type: typeComplete, ID: id})
	}()
}

func (c *conn) cancelSubscribe(id string) {
	c.mu.Lock()
	cancel, ok := c.openIDs[id]
	if ok {
		delete(c.openIDs, id)
	}
	c.mu.Unlock()
	if ok {
		cancel()
	}
}

func (c *conn) closeAll() {
	c.mu.Lock()
	ids := make([]context.CancelFunc, 0, len(c.openIDs))
	for _, cancel := range c.openIDs {
		ids = append(ids, cancel)
	}
	c.openIDs = map[string]context.CancelFunc{}
	c.mu.Unlock()
	for _, cancel := range ids {
		cancel()
	}
	c.socket.Close()
}

func (c *conn) write(e envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.socket.WriteJSON(e)
}

func isCloseError(err error) bool {
	_, ok := err.(*websocket.CloseError)
	return ok || err == websocket.ErrCloseSent
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	Subprotocols:    []string{"graphql-transport-ws"},
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades every request to a graphql-transport-ws socket and
// serves it against pl.
func Handler(pl *Pipeline) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		socket, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("graphqlws: upgrade: %v", err)
			return
		}
		Serve(r.Context(), socket, pl)
	})
}
