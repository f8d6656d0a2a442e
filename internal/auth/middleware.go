package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/grafbase/gatewaycore/internal/planner"
)

type contextKey string

const authContextKey contextKey = "gatewaycore-auth-context"

// FromContext returns the AuthContext a Middleware stashed for this request,
// or the zero value (anonymous) if none was set.
func FromContext(ctx context.Context) planner.AuthContext {
	if v, ok := ctx.Value(authContextKey).(planner.AuthContext); ok {
		return v
	}
	return planner.AuthContext{}
}

// Middleware verifies the request's bearer token against the first
// configured Provider willing to accept it, storing the resulting
// AuthContext for downstream handlers. Unlike the teacher's single-Keycloak
// AuthMiddleware, it tries each provider in turn, since a gateway config can
// declare more than one `[authentication.providers.*].jwt` block — a
// request's token only ever belongs to one of them, but the gateway doesn't
// know which ahead of time.
type Middleware struct {
	Providers []*Provider
	// Optional allows a request with no (or an unverifiable) bearer token
	// through as anonymous, instead of rejecting it outright. Per-field
	// @authenticated/@requiresScopes denial still applies downstream.
	Optional bool
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			if m.Optional {
				next.ServeHTTP(w, r)
				return
			}
			unauthorized(w, "missing bearer token")
			return
		}

		authCtx, err := m.verifyAny(r.Context(), token)
		if err != nil {
			if m.Optional {
				next.ServeHTTP(w, r)
				return
			}
			unauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), authContextKey, authCtx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) verifyAny(ctx context.Context, token string) (planner.AuthContext, error) {
	var lastErr error
	for _, p := range m.Providers {
		authCtx, err := p.Verify(ctx, token)
		if err == nil {
			return authCtx, nil
		}
		lastErr = err
	}
	return planner.AuthContext{}, lastErr
}

func bearerToken(header string) string {
	prefix, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(prefix, "bearer") {
		return ""
	}
	return token
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"errors":[{"message":"` + message + `"}]}`))
}
