package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/diewo77/gestion-boutique/httpx"
)

// Verifier decides whether the user behind a valid token is still allowed in,
// letting the middleware reject deleted or blocked accounts without knowing
// about the persistence layer.
type Verifier func(ctx context.Context, userID uint) bool

// Middleware authenticates requests from the Authorization: Bearer header.
type Middleware struct {
	issuer *TokenIssuer
	verify Verifier
}

// NewMiddleware builds the middleware. verify may be nil.
func NewMiddleware(issuer *TokenIssuer, verify Verifier) *Middleware {
	return &Middleware{issuer: issuer, verify: verify}
}

// BearerToken extracts the raw bearer credential from a request.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// Attach puts the user id in the request context when a valid access token is
// presented; it never rejects, so public routes can share the chain.
func (m *Middleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw, ok := BearerToken(r); ok {
			if uid, _, err := m.issuer.ParseAccessToken(raw); err == nil {
				r = r.WithContext(WithUserID(r.Context(), uid))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Require rejects requests without an authenticated, still-valid user.
func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if !ok || uid == 0 {
			httpx.Error(w, http.StatusUnauthorized, "Non authentifié", nil)
			return
		}
		if m.verify != nil && !m.verify(r.Context(), uid) {
			// Token refers to a deleted or blocked account.
			httpx.Error(w, http.StatusUnauthorized, "Non authentifié", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
