// Package middleware guards net/http handlers with bearer-token
// authentication and permission checks backed by an authcore Service.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/oru-platform/authcore"
	"github.com/oru-platform/authcore/token"
)

type contextKey struct{}

var claimsKey contextKey

// ClaimsFromContext returns the verified claims attached by Authenticate,
// or nil outside an authenticated request.
func ClaimsFromContext(ctx context.Context) *token.AccessClaims {
	claims, _ := ctx.Value(claimsKey).(*token.AccessClaims)
	return claims
}

// Verifier is the slice of authcore.Service the middleware needs.
type Verifier interface {
	VerifyToken(ctx context.Context, accessToken string) (*token.AccessClaims, error)
	Authorize(claims *token.AccessClaims, permission string) error
}

// Guard builds authentication and authorization middleware around a
// Verifier.
type Guard struct {
	verifier Verifier
	logger   *slog.Logger
}

// NewGuard wires a Guard. A nil logger discards.
func NewGuard(v Verifier, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Guard{verifier: v, logger: logger}
}

// Authenticate rejects requests without a live bearer token and attaches the
// verified claims to the request context for downstream handlers.
func (g *Guard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r)
		if tok == "" {
			writeError(w, http.StatusUnauthorized, "No authorization token")
			return
		}

		claims, err := g.verifier.VerifyToken(r.Context(), tok)
		if err != nil {
			if errors.Is(err, authcore.ErrInvalidToken) {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			g.logger.Error("token verification failed", "error", err)
			writeError(w, http.StatusUnauthorized, "Authentication failed")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission rejects authenticated requests whose permission set does
// not cover the required permission. It must run inside Authenticate.
func (g *Guard) RequirePermission(permission string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if err := g.verifier.Authorize(claims, permission); err != nil {
			writeError(w, http.StatusForbidden, "Insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
