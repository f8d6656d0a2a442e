package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/grafbase/gatewaycore/internal/auth"
	"github.com/grafbase/gatewaycore/internal/authz"
	"github.com/grafbase/gatewaycore/internal/config"
	"github.com/grafbase/gatewaycore/internal/entitycache"
	"github.com/grafbase/gatewaycore/internal/eventbus"
	"github.com/grafbase/gatewaycore/internal/executor"
	"github.com/grafbase/gatewaycore/internal/operation"
	"github.com/grafbase/gatewaycore/internal/otel"
	"github.com/grafbase/gatewaycore/internal/schema"
	"github.com/grafbase/gatewaycore/internal/transport"
	"github.com/grafbase/gatewaycore/internal/transport/graphqlws"
)

const rootUsage = `gatewaycore — federated GraphQL gateway

USAGE:
  gatewaycore <command> [flags]

COMMANDS:
  serve   Run the gateway HTTP/WebSocket endpoint
  help    Show help for any command
`

const serveUsage = `serve FLAGS:
  -config <path>          Gateway TOML configuration (required)
  -addr <addr>            HTTP listen address (default: :8080)
  -otel.endpoint <addr>   OTLP collector endpoint
  -otel.service <name>    OpenTelemetry service name (default: gatewaycore)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("gatewaycore", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer))
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Print(serveUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

func cmdServe(args []string) error {
	configPath := ""
	addr := ":8080"
	otelEndpoint := ""
	otelService := "gatewaycore"

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&configPath, "config", configPath, "Gateway TOML configuration")
	fs.StringVar(&addr, "addr", addr, "HTTP listen address")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}
	if configPath == "" {
		fmt.Fprint(os.Stderr, serveUsage)
		return fmt.Errorf("-config is required")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	sch, err := buildSchema(cfg, filepath.Dir(configPath))
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	client := buildSubgraphClient(cfg)

	exec := executor.New(client)
	exec.Authz = authz.ScopeEvaluator{}

	binder := operation.NewBinder(sch, operation.DefaultLimits)
	opCache, err := operation.NewCache(binder, 1024)
	if err != nil {
		return fmt.Errorf("operation cache: %w", err)
	}

	var trustedDocs operation.TrustedDocumentsClient
	if cfg.TrustedDocuments.Enabled {
		trustedDocs = operation.NewInMemoryTrustedDocuments()
	}

	handler := transport.New(sch, opCache, exec, transport.Options{
		Timeout: cfg.Gateway.Timeout.Value(),
		CORS:    transport.CORSOptions{AllowedOrigins: []string{"*"}},
	})
	handler.TrustedDocuments = trustedDocs

	mux := http.NewServeMux()
	mux.Handle("/graphql", withCSRF(cfg.CSRF, withAuth(cfg, handler)))

	wsPipeline := &graphqlws.Pipeline{Schema: sch, Operations: opCache, Executor: exec}
	mux.Handle("/graphql/ws", graphqlws.Handler(wsPipeline))

	log.Printf("gateway listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}

// buildSchema composes one supergraph Schema from every `[subgraphs.<name>]`
// entry's SDL file, resolved relative to the config file's directory.
func buildSchema(cfg *config.Config, baseDir string) (*schema.Schema, error) {
	b := schema.NewBuilder()
	for name, sg := range cfg.Subgraphs {
		sdlPath := sg.SDLPath
		if !filepath.IsAbs(sdlPath) {
			sdlPath = filepath.Join(baseDir, sdlPath)
		}
		sdl, err := os.ReadFile(sdlPath)
		if err != nil {
			return nil, fmt.Errorf("subgraph %q: reading SDL: %w", name, err)
		}
		b.AddSubgraph(schema.SubgraphInput{
			Name:           name,
			URL:            sg.URL,
			SDL:            string(sdl),
			Timeout:        sg.Timeout.Value(),
			Retry:          retryPolicyOf(sg.Retry),
			MTLS:           mtlsConfigOf(sg.MTLS),
			HeaderRules:    headerRulesOf(sg.Headers),
			EntityCacheTTL: sg.EntityCacheTTL.Value(),
		})
	}
	return b.Build()
}

func retryPolicyOf(in config.RetryConfig) schema.RetryPolicy {
	return schema.RetryPolicy{
		Enabled:        in.Enabled,
		MinPerSecond:   in.MinPerSecond,
		RetryPercent:   in.RetryPercent,
		RetryMutations: in.RetryMutations,
	}
}

func mtlsConfigOf(in config.MTLSConfig) schema.MTLSConfig {
	return schema.MTLSConfig{
		Enabled:            in.Identity != "",
		RootCertificate:    in.Root.Certificate,
		Identity:           in.Identity,
		AcceptInvalidCerts: in.AcceptInvalidCerts,
	}
}

func headerRulesOf(in []config.HeaderRule) []schema.HeaderRule {
	out := make([]schema.HeaderRule, 0, len(in))
	for _, r := range in {
		out = append(out, schema.HeaderRule{
			Kind:   schema.HeaderRuleKind(r.Kind),
			Name:   r.Name,
			Value:  r.Value,
			Rename: r.Rename,
		})
	}
	return out
}

// buildSubgraphClient wires the plain HTTP subgraph client and, when
// entity caching is enabled, wraps it with entitycache.CachingClient —
// backed by Redis when `[entity_caching].redis` names an endpoint, else
// by an in-process LRU.
func buildSubgraphClient(cfg *config.Config) executor.SubgraphClient {
	httpClient := executor.NewHTTPSubgraphClient(nil)
	if !cfg.EntityCaching.Enabled {
		return httpClient
	}

	var store entitycache.Cache
	if cfg.EntityCaching.Redis != "" {
		store = entitycache.NewRedisCache(redis.NewClient(&redis.Options{Addr: cfg.EntityCaching.Redis}), "gatewaycore:")
	} else {
		lru, err := entitycache.NewLRUCache(10_000)
		if err != nil {
			log.Printf("entity cache: falling back to no cache: %v", err)
			return httpClient
		}
		store = lru
	}
	return &entitycache.CachingClient{Next: httpClient, Store: store}
}

// withAuth wraps next in one auth.Middleware built from every configured
// `[authentication.providers.*].jwt` block. A `default = "anonymous"`
// configuration lets unauthenticated requests through; `default = "deny"`
// rejects them outright, matching spec.md §6. With no JWT provider
// configured, next is returned unwrapped and no request is rejected.
func withAuth(cfg *config.Config, next http.Handler) http.Handler {
	var providers []*auth.Provider
	for name, p := range cfg.Authentication.Providers {
		if p.JWT == nil {
			continue
		}
		providers = append(providers, auth.NewProvider(auth.ProviderConfig{
			Name:           name,
			JWKSURL:        p.JWT.JWKS.URL,
			Issuer:         p.JWT.JWKS.Issuer,
			Audience:       p.JWT.JWKS.Audience,
			JWKSRefreshTTL: p.JWT.JWKS.PollInterval.Value(),
		}))
	}
	if len(providers) == 0 {
		return next
	}
	mw := &auth.Middleware{Providers: providers, Optional: cfg.Authentication.Default != "deny"}
	return mw.Handler(next)
}

// withCSRF rejects simple (browser-forgeable) cross-site requests by
// requiring, on every method other than GET and OPTIONS, either a
// caller-supplied header no <form>/<img> request can attach or an
// `application/json` Content-Type, the same mitigation Apollo Router's
// csrf_prevention plugin applies.
func withCSRF(cfg config.CSRFConfig, next http.Handler) http.Handler {
	if !cfg.Enabled {
		return next
	}
	headerName := cfg.HeaderName
	if headerName == "" {
		headerName = "x-apollo-operation-name"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		ct := strings.ToLower(r.Header.Get("Content-Type"))
		if r.Header.Get(headerName) == "" && !strings.HasPrefix(ct, "application/json") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"errors":[{"message":"missing CSRF prevention header"}]}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
