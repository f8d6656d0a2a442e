// Package config decodes the gateway's TOML configuration file into plain
// structs (spec.md §6's "Configuration (TOML) surface"). Decoding is kept
// separate from wiring: Load only parses; cmd/gateway's composition root
// translates these structs into the constructor inputs internal/schema,
// internal/auth, internal/executor and internal/transport expect, so this
// package stays a pure data layer.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the root of one TOML configuration document.
type Config struct {
	Gateway          GatewayConfig                  `toml:"gateway"`
	Subgraphs        map[string]SubgraphConfig       `toml:"subgraphs"`
	Authentication   AuthenticationConfig            `toml:"authentication"`
	TrustedDocuments TrustedDocumentsConfig          `toml:"trusted_documents"`
	EntityCaching    EntityCachingConfig             `toml:"entity_caching"`
	Extensions       map[string]ExtensionConfig      `toml:"extensions"`
	CSRF             CSRFConfig                      `toml:"csrf"`
}

type GatewayConfig struct {
	Timeout Duration `toml:"timeout"`
}

type SubgraphConfig struct {
	URL            string           `toml:"url"`
	SDLPath        string           `toml:"sdl_path"`
	Timeout        Duration         `toml:"timeout"`
	Retry          RetryConfig      `toml:"retry"`
	MTLS           MTLSConfig       `toml:"mtls"`
	Headers        []HeaderRule     `toml:"headers"`
	EntityCacheTTL Duration         `toml:"entity_cache_ttl"`
}

type RetryConfig struct {
	Enabled        bool    `toml:"enabled"`
	MinPerSecond   float64 `toml:"min_per_second"`
	RetryPercent   float64 `toml:"retry_percent"`
	RetryMutations bool    `toml:"retry_mutations"`
	TTL            Duration `toml:"ttl"`
}

type MTLSConfig struct {
	Root struct {
		Certificate string `toml:"certificate"`
	} `toml:"root"`
	Identity           string `toml:"identity"`
	AcceptInvalidCerts bool   `toml:"accept_invalid_certs"`
}

// HeaderRule is one `[[subgraphs.<name>.headers]]` entry: `kind` is one of
// "forward", "insert", "remove", "rename".
type HeaderRule struct {
	Kind   string `toml:"kind"`
	Name   string `toml:"name"`
	Value  string `toml:"value"`
	Rename string `toml:"rename"`
}

type AuthenticationConfig struct {
	Default   string                      `toml:"default"`
	Providers map[string]ProviderConfig   `toml:"providers"`
}

type ProviderConfig struct {
	JWT       *JWTProviderConfig `toml:"jwt"`
	Anonymous *struct{}          `toml:"anonymous"`
	Extension *ExtensionRefConfig `toml:"extension"`
}

type JWTProviderConfig struct {
	JWKS   JWKSConfig   `toml:"jwks"`
	Header HeaderConfig `toml:"header"`
}

type JWKSConfig struct {
	URL          string   `toml:"url"`
	Issuer       string   `toml:"issuer"`
	Audience     string   `toml:"audience"`
	PollInterval Duration `toml:"poll_interval"`
}

type HeaderConfig struct {
	Name        string `toml:"name"`
	ValuePrefix string `toml:"value_prefix"`
}

type ExtensionRefConfig struct {
	Name string `toml:"name"`
}

type TrustedDocumentsConfig struct {
	Enabled         bool   `toml:"enabled"`
	BypassHeader    string `toml:"bypass_header"`
	EnforcementMode string `toml:"enforcement_mode"`
}

type EntityCachingConfig struct {
	Enabled bool     `toml:"enabled"`
	TTL     Duration `toml:"ttl"`
	// Redis, when non-empty, backs the entity cache with a shared Redis
	// instance instead of the default in-process LRU.
	Redis string `toml:"redis"`
}

type ExtensionConfig struct {
	Networking           bool              `toml:"networking"`
	Stdout               bool              `toml:"stdout"`
	Stderr               bool              `toml:"stderr"`
	EnvironmentVariables map[string]string `toml:"environment_variables"`
	MaxPoolSize          int               `toml:"max_pool_size"`
	Config               map[string]any    `toml:"config"`
}

type CSRFConfig struct {
	Enabled    bool   `toml:"enabled"`
	HeaderName string `toml:"header_name"`
}

// Duration decodes a TOML string like "1s" or "500ms" into a time.Duration,
// the way the rest of the gateway's config values (spec.md §6) are written.
type Duration time.Duration

func (d Duration) Value() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// Load reads and decodes the TOML document at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg Config
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if cfg.Authentication.Default == "" {
		cfg.Authentication.Default = "anonymous"
	}
	return &cfg, nil
}
