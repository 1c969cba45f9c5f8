/**
 * @description
 * This file contains custom middleware for the HTTP router: bearer-token
 * authentication and role enforcement. The auth middleware validates HS256
 * tokens issued by the login endpoints and injects the principal into the
 * request context for handlers to consume.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: Token parsing and validation.
 */
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/renewly/renewal-service/internal/app"
)

// principalContextKey is a custom type for the context key to avoid collisions.
type principalContextKey string

const principalKey principalContextKey = "principal"

// Principal is the authenticated caller extracted from a session token.
type Principal struct {
	Subject string
	Role    string
}

// AuthMiddleware creates a middleware that validates HS256 session tokens.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondWithError(w, http.StatusUnauthorized, "authorization header required", errorKindUnauthorized)
				return
			}

			// Extract the token from "Bearer <token>"
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				respondWithError(w, http.StatusUnauthorized, "invalid authorization header format", errorKindUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				respondWithError(w, http.StatusUnauthorized, "invalid token", errorKindUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "invalid token claims", errorKindUnauthorized)
				return
			}
			subject, _ := claims["sub"].(string)
			role, _ := claims["role"].(string)
			if subject == "" || role == "" {
				respondWithError(w, http.StatusUnauthorized, "invalid token claims", errorKindUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, Principal{Subject: subject, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole blocks requests whose principal does not hold the given role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok || principal.Role != role {
				respondWithError(w, http.StatusForbidden, "insufficient permissions", errorKindUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromContext retrieves the authenticated principal from the
// request context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(principalKey).(Principal)
	return principal, ok
}

// canAccessClient reports whether the principal may read the given client's
// resources: admins always, clients only their own.
func canAccessClient(p Principal, clientID string) bool {
	if p.Role == app.RoleAdmin {
		return true
	}
	return p.Role == app.RoleClient && strings.EqualFold(p.Subject, clientID)
}
