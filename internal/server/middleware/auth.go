package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rolecraft/rolecraft/internal/model"
	"github.com/rolecraft/rolecraft/internal/service"
)

type contextKeyAuth string

const (
	// AuthPrincipalKey is the context key for the authenticated principal.
	AuthPrincipalKey contextKeyAuth = "auth_principal"
)

// Authenticate returns an HTTP middleware that requires a valid session token
// in the "Authorization: Bearer <token>" header. On success the verified
// service.Principal is attached to the request context. A missing, malformed,
// expired or forged token gets a 401 envelope and the handler never runs.
func Authenticate(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeEnvelope(w, http.StatusUnauthorized, "Not authorized, no token")
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			principal, err := authSvc.VerifyToken(r.Context(), token)
			if err != nil {
				writeEnvelope(w, http.StatusUnauthorized, service.ErrInvalidToken.Message)
				return
			}

			ctx := context.WithValue(r.Context(), AuthPrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil if no principal is present (i.e., unauthenticated request).
func GetPrincipal(ctx context.Context) *service.Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*service.Principal); ok {
		return p
	}
	return nil
}

// writeEnvelope writes the failure envelope shared with the handler package.
func writeEnvelope(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.Response{Success: false, Message: message})
}
