package auth_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/grafbase/gatewaycore/internal/auth"
)

// jwksServer serves a single RSA key under kid as a JWKS document, for
// tests to verify tokens signed with the matching private key against.
func jwksServer(t *testing.T, kid string, key *rsa.PublicKey) *httptest.Server {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"keys": []map[string]any{{
			"kty": "RSA",
			"kid": kid,
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}},
	})
	require.NoError(t, err)
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
}

func signToken(t *testing.T, priv *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(priv)
	require.NoError(t, err)
	return s
}

func TestProvider_Verify_ValidToken(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv := jwksServer(t, "key-1", &priv.PublicKey)
	defer srv.Close()

	p := auth.NewProvider(auth.ProviderConfig{
		Name: "test", JWKSURL: srv.URL, Issuer: "https://issuer.example", Audience: "gateway",
	})

	token := signToken(t, priv, "key-1", jwt.MapClaims{
		"sub": "user-1", "iss": "https://issuer.example", "aud": "gateway",
		"scope": "read:orders write:orders",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	authCtx, err := p.Verify(t.Context(), token)
	require.NoError(t, err)
	require.True(t, authCtx.Authenticated)
	require.ElementsMatch(t, []string{"read:orders", "write:orders"}, authCtx.Scopes)
}

func TestProvider_Verify_WrongIssuerRejected(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv := jwksServer(t, "key-1", &priv.PublicKey)
	defer srv.Close()

	p := auth.NewProvider(auth.ProviderConfig{Name: "test", JWKSURL: srv.URL, Issuer: "https://issuer.example"})

	token := signToken(t, priv, "key-1", jwt.MapClaims{
		"sub": "user-1", "iss": "https://someone-else.example",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err = p.Verify(t.Context(), token)
	require.Error(t, err)
}

func TestProvider_Verify_ExpiredTokenRejected(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv := jwksServer(t, "key-1", &priv.PublicKey)
	defer srv.Close()

	p := auth.NewProvider(auth.ProviderConfig{Name: "test", JWKSURL: srv.URL})

	token := signToken(t, priv, "key-1", jwt.MapClaims{
		"sub": "user-1", "exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err = p.Verify(t.Context(), token)
	require.Error(t, err)
}

func TestProvider_Verify_UnknownKidRejected(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv := jwksServer(t, "key-1", &priv.PublicKey)
	defer srv.Close()

	p := auth.NewProvider(auth.ProviderConfig{Name: "test", JWKSURL: srv.URL})

	token := signToken(t, priv, "key-unknown", jwt.MapClaims{
		"sub": "user-1", "exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err = p.Verify(t.Context(), token)
	require.Error(t, err)
}

func TestMiddleware_OptionalFallsBackAnonymous(t *testing.T) {
	m := &auth.Middleware{Optional: true}
	var seen bool
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = true
		require.False(t, auth.FromContext(r.Context()).Authenticated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/graphql", nil))
	require.True(t, seen)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_RequiredRejectsMissingToken(t *testing.T) {
	m := &auth.Middleware{Optional: false}
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run without a token")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/graphql", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
