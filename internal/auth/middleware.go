package auth

import (
	"context"
	"net/http"
	"strings"

	"docmatch/internal/models"
)

type contextKey string

// ClaimsContextKey is the context key for storing the authenticated claims
const ClaimsContextKey contextKey = "claims"

// Middleware validates the Authorization bearer token and adds the claims
// to the request context.
func Middleware(secret []byte, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, `{"error": "Missing authorization header"}`, http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, `{"error": "Invalid authorization header format"}`, http.StatusUnauthorized)
			return
		}

		claims, err := ParseToken(parts[1], secret)
		if err != nil {
			http.Error(w, `{"error": "Invalid token"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin validates the bearer token and rejects principals without
// the admin role.
func RequireAdmin(secret []byte, next http.Handler) http.Handler {
	return Middleware(secret, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaimsFromContext(r.Context())
		if claims.Role != models.RoleAdmin {
			http.Error(w, `{"error": "Admins only"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// GetClaimsFromContext extracts the authenticated claims from the context
func GetClaimsFromContext(ctx context.Context) *Claims {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	if !ok {
		panic("claims not found in context")
	}

	return claims
}
