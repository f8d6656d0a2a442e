// Package transport is the thin HTTP/WebSocket surface that drives the
// operation-binder/solver/planner/executor pipeline from wire requests.
// Grounded on the teacher's internal/server/server.go (request parsing,
// response envelope, CORS, GraphiQL) with the pipeline generalized from a
// single gqlparser-driven Runtime to Bind→Solve→Plan→Execute.
package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/grafbase/gatewaycore/internal/auth"
	"github.com/grafbase/gatewaycore/internal/eventbus"
	"github.com/grafbase/gatewaycore/internal/events"
	"github.com/grafbase/gatewaycore/internal/executor"
	"github.com/grafbase/gatewaycore/internal/operation"
	"github.com/grafbase/gatewaycore/internal/planner"
	"github.com/grafbase/gatewaycore/internal/reqid"
	"github.com/grafbase/gatewaycore/internal/schema"
	"github.com/grafbase/gatewaycore/internal/solver"
	"google.golang.org/grpc/metadata"
)

// Handler is an http.Handler serving one gateway's GraphQL endpoint: it
// parses a request, binds and caches its operation, solves and plans it,
// runs the executor, and writes the GraphQL-over-HTTP response envelope.
type Handler struct {
	Schema           *schema.Schema
	Operations       *operation.Cache
	Executor         *executor.Executor
	TrustedDocuments operation.TrustedDocumentsClient

	Options Options
}

type Options struct {
	// Timeout bounds one request's total execution when the incoming
	// context carries no deadline of its own. On a Handler built directly,
	// 0 means no default timeout; New replaces 0 with 10 seconds.
	Timeout time.Duration

	// MaxBodyBytes limits the request body size. 0 means unlimited.
	MaxBodyBytes int64

	CORS CORSOptions

	// MetadataHeaders lists HTTP headers forwarded into the gRPC metadata
	// extension resolvers read, case-insensitively.
	MetadataHeaders []string
}

type CORSOptions struct {
	AllowedOrigins []string
}

func New(s *schema.Schema, ops *operation.Cache, exec *executor.Executor, opts Options) *Handler {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Handler{Schema: s, Operations: ops, Executor: exec, Options: opts}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.Options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Options.Timeout)
		defer cancel()
	}
	ctx, rid := reqid.NewContext(ctx)

	md := metadata.MD{}
	if len(h.Options.MetadataHeaders) > 0 {
		allowed := make(map[string]struct{}, len(h.Options.MetadataHeaders))
		for _, hdr := range h.Options.MetadataHeaders {
			allowed[strings.ToLower(hdr)] = struct{}{}
		}
		for k, v := range r.Header {
			if _, ok := allowed[strings.ToLower(k)]; ok {
				md[strings.ToLower(k)] = v
			}
		}
	}
	md["graphql-request-id"] = []string{strconv.FormatInt(rid, 10)}
	ctx = metadata.NewOutgoingContext(ctx, md)

	start := time.Now()
	status := http.StatusOK
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Duration: time.Since(start)})
	}()

	if r.Method == http.MethodOptions {
		h.setCORS(w, r)
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		writeJSON(w, status, bindErrorResponse(&operation.BindError{Message: "method not allowed"}))
		return
	}
	h.setCORS(w, r)

	req, batch, berr := parseRequest(r, h.Options.MaxBodyBytes)
	if berr != nil {
		status = httpStatusFor(berr)
		writeJSON(w, status, bindErrorResponse(berr))
		return
	}

	if batch != nil {
		results := make([]any, len(batch))
		for i := range batch {
			results[i] = h.executeOne(ctx, batch[i])
		}
		writeJSON(w, status, results)
		return
	}
	writeJSON(w, status, h.executeOne(ctx, req))
}

// executeOne runs the full pipeline for one request, returning a value
// ready to be JSON-encoded as a GraphQL response (or response array member).
func (h *Handler) executeOne(ctx context.Context, req wireRequest) any {
	if req.Extensions.PersistedQuery != nil && h.TrustedDocuments == nil {
		return bindErrorResponse(&operation.BindError{Code: operation.CodeBadRequest, Message: "persisted queries are not enabled on this endpoint"})
	}
	document, err := operation.ResolveDocument(ctx, h.TrustedDocuments, req.Extensions.PersistedQuery, req.Query)
	if err != nil {
		return bindErrorResponse(asBindError(err))
	}
	if ext := req.Extensions.PersistedQuery; ext != nil && req.Query != "" {
		if registering, ok := h.TrustedDocuments.(*operation.InMemoryTrustedDocuments); ok {
			registering.Register(req.Query)
		}
	}

	op, err := h.Operations.Bind(ctx, document, req.OperationName, req.Variables)
	if err != nil {
		return bindErrorResponse(asBindError(err))
	}

	authCtx := auth.FromContext(ctx)

	solved, err := solver.Solve(op, h.Schema)
	if err != nil {
		return bindErrorResponse(&operation.BindError{Message: err.Error()})
	}
	plan, err := planner.Plan(op, solved, h.Schema, req.Variables, authCtx)
	if err != nil {
		return bindErrorResponse(&operation.BindError{Message: err.Error()})
	}

	opStart := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{Query: document, OperationName: req.OperationName})
	tree := h.Executor.Execute(ctx, op, solved, plan, h.Schema, req.Variables, authCtx)
	resp := tree.SerializeResponse()
	errs := make([]error, len(resp.Errors))
	for i, e := range resp.Errors {
		errs[i] = errorFromSerialized(e)
	}
	eventbus.Publish(ctx, events.GraphQLFinish{Query: document, OperationName: req.OperationName, Errors: errs, Duration: time.Since(opStart)})

	return resp
}

type serializedError struct{ message string }

func (e serializedError) Error() string { return e.message }

func errorFromSerialized(m map[string]any) error {
	msg, _ := m["message"].(string)
	return serializedError{message: msg}
}

func asBindError(err error) *operation.BindError {
	if be, ok := err.(*operation.BindError); ok {
		return be
	}
	return &operation.BindError{Code: operation.CodeBadRequest, Message: err.Error()}
}

func httpStatusFor(err *operation.BindError) int {
	if err.Code == operation.CodePersistedQueryNotFound {
		return http.StatusOK // APQ protocol expects 200 with the sentinel error, not 4xx
	}
	return http.StatusBadRequest
}

func bindErrorResponse(err *operation.BindError) map[string]any {
	return map[string]any{
		"errors": []map[string]any{{
			"message":    err.Message,
			"extensions": map[string]any{"code": string(err.Code)},
		}},
	}
}

// ------------------------------------------------------------------
// Request parsing
// ------------------------------------------------------------------

type wireRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    wireExtensions `json:"extensions,omitempty"`
}

type wireExtensions struct {
	PersistedQuery *operation.PersistedQueryExtension `json:"persistedQuery,omitempty"`
}

func parseRequest(r *http.Request, maxBody int64) (wireRequest, []wireRequest, *operation.BindError) {
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		req := wireRequest{Query: q.Get("query"), OperationName: q.Get("operationName")}
		if v := q.Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
				return wireRequest{}, nil, &operation.BindError{Code: operation.CodeBadRequest, Message: "invalid 'variables' JSON"}
			}
		}
		if ext := q.Get("extensions"); ext != "" {
			if err := json.Unmarshal([]byte(ext), &req.Extensions); err != nil {
				return wireRequest{}, nil, &operation.BindError{Code: operation.CodeBadRequest, Message: "invalid 'extensions' JSON"}
			}
		}
		if req.Query == "" && req.Extensions.PersistedQuery == nil {
			return wireRequest{}, nil, &operation.BindError{Code: operation.CodeBadRequest, Message: "missing 'query'"}
		}
		return req, nil, nil
	}

	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(ct, "application/json") {
		return wireRequest{}, nil, &operation.BindError{Code: operation.CodeBadRequest, Message: "unsupported Content-Type"}
	}

	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return wireRequest{}, nil, &operation.BindError{Code: operation.CodeBadRequest, Message: "failed to read body"}
	}
	defer r.Body.Close()
	if maxBody > 0 && int64(len(body)) > maxBody {
		return wireRequest{}, nil, &operation.BindError{Code: operation.CodeBadRequest, Message: "body too large"}
	}

	if len(body) > 0 && body[0] == '[' {
		var arr []wireRequest
		if err := json.Unmarshal(body, &arr); err != nil {
			return wireRequest{}, nil, &operation.BindError{Code: operation.CodeBadRequest, Message: "invalid JSON"}
		}
		if len(arr) == 0 {
			return wireRequest{}, nil, &operation.BindError{Code: operation.CodeBadRequest, Message: "empty batch"}
		}
		return wireRequest{}, arr, nil
	}

	var req wireRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return wireRequest{}, nil, &operation.BindError{Code: operation.CodeBadRequest, Message: "invalid JSON"}
	}
	if req.Query == "" && req.Extensions.PersistedQuery == nil {
		return wireRequest{}, nil, &operation.BindError{Code: operation.CodeBadRequest, Message: "missing 'query'"}
	}
	return req, nil, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) setCORS(w http.ResponseWriter, r *http.Request) {
	origins := h.Options.CORS.AllowedOrigins
	if len(origins) == 0 {
		return
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range origins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	if containsStar(origins) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}

func containsStar(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
