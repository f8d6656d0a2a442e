package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grafbase/gatewaycore/internal/config"
)

const sample = `
[gateway]
timeout = "2s"

[subgraphs.accounts]
url = "http://accounts.internal/graphql"
sdl_path = "accounts.graphql"
timeout = "500ms"
entity_cache_ttl = "30s"

[subgraphs.accounts.retry]
enabled = true
min_per_second = 2
retry_percent = 0.1

[[subgraphs.accounts.headers]]
kind = "forward"
name = "x-tenant-id"

[authentication]
default = "deny"

[authentication.providers.auth0.jwt]
[authentication.providers.auth0.jwt.jwks]
url = "https://auth0.example.com/.well-known/jwks.json"
issuer = "https://auth0.example.com/"

[trusted_documents]
enabled = true
enforcement_mode = "enforce"

[entity_caching]
enabled = true
ttl = "1m"

[extensions.pricing]
networking = true
max_pool_size = 4

[csrf]
enabled = true
header_name = "x-grafbase-csrf"
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.toml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	return path
}

func TestLoad_DecodesEveryConfigSection(t *testing.T) {
	cfg, err := config.Load(writeSample(t))
	require.NoError(t, err)

	require.Equal(t, 2*time.Second, cfg.Gateway.Timeout.Value())

	accounts, ok := cfg.Subgraphs["accounts"]
	require.True(t, ok)
	require.Equal(t, "http://accounts.internal/graphql", accounts.URL)
	require.Equal(t, 500*time.Millisecond, accounts.Timeout.Value())
	require.Equal(t, 30*time.Second, accounts.EntityCacheTTL.Value())
	require.True(t, accounts.Retry.Enabled)
	require.Equal(t, 2.0, accounts.Retry.MinPerSecond)
	require.Len(t, accounts.Headers, 1)
	require.Equal(t, "forward", accounts.Headers[0].Kind)
	require.Equal(t, "x-tenant-id", accounts.Headers[0].Name)

	require.Equal(t, "deny", cfg.Authentication.Default)
	provider, ok := cfg.Authentication.Providers["auth0"]
	require.True(t, ok)
	require.NotNil(t, provider.JWT)
	require.Equal(t, "https://auth0.example.com/.well-known/jwks.json", provider.JWT.JWKS.URL)

	require.True(t, cfg.TrustedDocuments.Enabled)
	require.Equal(t, "enforce", cfg.TrustedDocuments.EnforcementMode)

	require.True(t, cfg.EntityCaching.Enabled)
	require.Equal(t, time.Minute, cfg.EntityCaching.TTL.Value())

	ext, ok := cfg.Extensions["pricing"]
	require.True(t, ok)
	require.True(t, ext.Networking)
	require.Equal(t, 4, ext.MaxPoolSize)

	require.True(t, cfg.CSRF.Enabled)
	require.Equal(t, "x-grafbase-csrf", cfg.CSRF.HeaderName)
}

func TestLoad_DefaultsAuthenticationToAnonymous(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.toml")
	require.NoError(t, os.WriteFile(path, []byte("[gateway]\ntimeout = \"1s\"\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "anonymous", cfg.Authentication.Default)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
