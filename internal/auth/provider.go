package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/grafbase/gatewaycore/internal/planner"
)

// ProviderConfig is one `[authentication.providers.*].jwt` block.
type ProviderConfig struct {
	Name           string
	JWKSURL        string
	Issuer         string
	Audience       string
	JWKSRefreshTTL time.Duration
}

// Provider verifies bearer tokens issued by one JWT provider and produces
// the planner.AuthContext the planner needs to resolve
// @authenticated/@requiresScopes statically.
type Provider struct {
	name     string
	issuer   string
	audience string
	keys     *KeySet
	parser   *jwt.Parser
}

func NewProvider(cfg ProviderConfig) *Provider {
	ttl := cfg.JWKSRefreshTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Provider{
		name:     cfg.Name,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		keys:     NewKeySet(cfg.JWKSURL, ttl),
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512"})),
	}
}

// Verify parses and validates tokenString, returning the AuthContext the
// planner should evaluate the operation's `@authenticated`/`@requiresScopes`
// directives against. An invalid token is reported as an error, not as an
// unauthenticated AuthContext — callers decide whether a missing/bad token
// should fail the request or fall through anonymous.
func (p *Provider) Verify(ctx context.Context, tokenString string) (planner.AuthContext, error) {
	claims := jwt.MapClaims{}
	_, err := p.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("auth: token has no kid header")
		}
		return p.keys.Key(ctx, kid)
	})
	if err != nil {
		return planner.AuthContext{}, fmt.Errorf("auth: %s: %w", p.name, err)
	}

	if p.issuer != "" {
		if iss, _ := claims.GetIssuer(); iss != p.issuer {
			return planner.AuthContext{}, fmt.Errorf("auth: %s: unexpected issuer %q", p.name, iss)
		}
	}
	if p.audience != "" {
		aud, _ := claims.GetAudience()
		if !containsAudience(aud, p.audience) {
			return planner.AuthContext{}, fmt.Errorf("auth: %s: token not issued for this audience", p.name)
		}
	}

	return planner.AuthContext{Authenticated: true, Scopes: scopesOf(claims)}, nil
}

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}

// scopesOf extracts scopes from either a space-delimited "scope" claim
// (RFC 8693 convention) or a "scopes"/"scp" array claim, whichever is
// present.
func scopesOf(claims jwt.MapClaims) []string {
	if scope, ok := claims["scope"].(string); ok && scope != "" {
		return strings.Fields(scope)
	}
	for _, key := range []string{"scopes", "scp"} {
		raw, ok := claims[key].([]any)
		if !ok {
			continue
		}
		scopes := make([]string, 0, len(raw))
		for _, s := range raw {
			if str, ok := s.(string); ok {
				scopes = append(scopes, str)
			}
		}
		return scopes
	}
	return nil
}
