package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"jotter/internal/services"
)

type contextKey string

const claimsKey contextKey = "claims"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*services.Claims, error)
}

type AuthMiddleware struct {
	auth Authenticator
	log  *zap.Logger
}

func NewAuthMiddleware(auth Authenticator, log *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{auth: auth, log: log}
}

// RequireAuth answers 401 "session expired" for expired or revoked tokens so
// clients can tell them apart from malformed ones.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		claims, err := m.auth.Authenticate(r.Context(), strings.TrimPrefix(authz, "Bearer "))
		switch {
		case errors.Is(err, services.ErrSessionExpired):
			http.Error(w, "session expired", http.StatusUnauthorized)
			return
		case errors.Is(err, services.ErrInvalidToken):
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		case err != nil:
			m.log.Error("authenticate", zap.Error(err))
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ClaimsFrom(ctx context.Context) *services.Claims {
	c, _ := ctx.Value(claimsKey).(*services.Claims)
	return c
}

// UserID is the authenticated account id, or "" outside RequireAuth.
func UserID(ctx context.Context) string {
	if c := ClaimsFrom(ctx); c != nil {
		return c.UserID()
	}
	return ""
}

// WithClaims is for handler tests that bypass RequireAuth.
func WithClaims(ctx context.Context, c *services.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}
