package common

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/centralbank/usdw/backend/pkg/common/api"
)

// Claims are the JWT claims the USDw services understand.
type Claims struct {
	Role string `json:"role"`
	MSP  string `json:"msp,omitempty"`
	jwt.RegisteredClaims
}

type claimsKey struct{}

// ClaimsFromContext returns the claims stored by AuthMiddleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// AuthMiddleware verifies the HS256 bearer token and puts its claims in the
// request context.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header required", "")
				return
			}
			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token required", "")
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				msg := "Invalid token"
				if errors.Is(err, jwt.ErrTokenExpired) {
					msg = "Token expired"
				}
				api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", msg, "")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole enforces RBAC on top of AuthMiddleware.
func RequireRole(role string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing credentials", "")
			return
		}
		if claims.Role != role {
			api.WriteError(w, http.StatusForbidden, "FORBIDDEN", "role "+role+" required", "")
			return
		}
		next(w, r)
	}
}
