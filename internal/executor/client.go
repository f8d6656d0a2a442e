package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/grafbase/gatewaycore/internal/eventbus"
	"github.com/grafbase/gatewaycore/internal/events"
	"github.com/grafbase/gatewaycore/internal/schema"
	"github.com/grafbase/gatewaycore/internal/solver"
	"golang.org/x/time/rate"
)

// SubgraphErrorEntry is one entry of a subgraph's GraphQL-over-HTTP `errors`
// array, decoded loosely since the gateway never re-validates a subgraph's
// own error shape against its SDL.
type SubgraphErrorEntry struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path"`
	Extensions map[string]any `json:"extensions"`
}

type subgraphResponse struct {
	Data   map[string]any       `json:"data"`
	Errors []SubgraphErrorEntry `json:"errors"`
}

// SubgraphClient sends one GraphQL document to a subgraph and returns its
// decoded response.
type SubgraphClient interface {
	Execute(ctx context.Context, sg schema.Subgraph, partition solver.PartitionID, document string, variables map[string]any) (data map[string]any, errs []SubgraphErrorEntry, err error)
}

// HTTPSubgraphClient is the default SubgraphClient: a plain POST of
// {query, variables} per the GraphQL-over-HTTP convention, with a
// per-subgraph token-bucket retry budget (spec.md §4.5's "Retry" policy)
// and forwarded header rules.
type HTTPSubgraphClient struct {
	HTTP *http.Client

	mu       sync.Mutex
	limiters map[schema.SubgraphID]*rate.Limiter
}

func NewHTTPSubgraphClient(client *http.Client) *HTTPSubgraphClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSubgraphClient{HTTP: client, limiters: map[schema.SubgraphID]*rate.Limiter{}}
}

type requestBody struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

func (c *HTTPSubgraphClient) Execute(ctx context.Context, sg schema.Subgraph, partition solver.PartitionID, document string, variables map[string]any) (map[string]any, []SubgraphErrorEntry, error) {
	if sg.Timeout() > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sg.Timeout())
		defer cancel()
	}

	start := time.Now()
	eventbus.Publish(ctx, events.SubgraphRequestStart{Subgraph: sg.Name(), PartitionID: int32(partition)})

	data, errs, status, err := c.doWithRetry(ctx, sg, document, variables)

	eventbus.Publish(ctx, events.SubgraphRequestFinish{
		Subgraph:    sg.Name(),
		PartitionID: int32(partition),
		StatusCode:  status,
		Errors:      len(errs),
		Duration:    time.Since(start),
		Err:         err,
	})
	return data, errs, err
}

// doWithRetry issues the request, retrying idempotent (query) fetches up to
// the subgraph's configured budget on transport failure or 5xx. Mutations
// are retried only when RetryMutations is set, since they are not
// idempotent in general.
func (c *HTTPSubgraphClient) doWithRetry(ctx context.Context, sg schema.Subgraph, document string, variables map[string]any) (map[string]any, []SubgraphErrorEntry, int, error) {
	policy := sg.Retry()
	attempts := 1
	if policy.Enabled && (policy.RetryMutations || !strings.HasPrefix(document, "mutation")) {
		attempts = 3
	}

	var lastErr error
	var lastStatus int
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 && !c.takeRetryToken(sg) {
			break
		}
		data, errs, status, err := c.doOnce(ctx, sg, document, variables)
		if err == nil && status < 500 {
			return data, errs, status, nil
		}
		lastErr, lastStatus = err, status
		if !policy.Enabled {
			break
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("subgraph %q returned status %d", sg.Name(), lastStatus)
	}
	return nil, nil, lastStatus, lastErr
}

// takeRetryToken enforces the subgraph's retry budget as a token bucket of
// MinPerSecond tokens per second (1 when unset) with a burst of 1, lazily
// creating the subgraph's limiter on first use. RetryPercent is not
// consulted: the budget does not grow with the subgraph's traffic.
func (c *HTTPSubgraphClient) takeRetryToken(sg schema.Subgraph) bool {
	policy := sg.Retry()
	rps := policy.MinPerSecond
	if rps <= 0 {
		rps = 1
	}

	c.mu.Lock()
	lim, ok := c.limiters[sg.ID()]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(rps), 1)
		c.limiters[sg.ID()] = lim
	}
	c.mu.Unlock()

	return lim.Allow()
}

func (c *HTTPSubgraphClient) doOnce(ctx context.Context, sg schema.Subgraph, document string, variables map[string]any) (map[string]any, []SubgraphErrorEntry, int, error) {
	body, err := json.Marshal(requestBody{Query: document, Variables: variables})
	if err != nil {
		return nil, nil, 0, fmt.Errorf("encoding subgraph request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sg.URL(), bytes.NewReader(body))
	if err != nil {
		return nil, nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	applyHeaderRules(req, sg.HeaderRules())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, nil, 0, err
	}
	defer resp.Body.Close()

	var decoded subgraphResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, nil, resp.StatusCode, fmt.Errorf("decoding subgraph response: %w", err)
	}
	return decoded.Data, decoded.Errors, resp.StatusCode, nil
}

func applyHeaderRules(req *http.Request, rules []schema.HeaderRule) {
	for _, r := range rules {
		switch r.Kind {
		case schema.HeaderRuleInsert:
			req.Header.Set(r.Name, r.Value)
		case schema.HeaderRuleRemove:
			req.Header.Del(r.Name)
		case schema.HeaderRuleRename:
			if v := req.Header.Get(r.Name); v != "" {
				req.Header.Set(r.Rename, v)
				req.Header.Del(r.Name)
			}
		case schema.HeaderRuleForward:
			// Forwarding from the inbound client request happens earlier,
			// in internal/transport, which has access to the original
			// request headers; by the time a QueryPartition reaches the
			// executor only Insert/Remove/Rename remain actionable here.
		}
	}
}
