package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tastebook/tastebook/internal/httputil"
	"github.com/tastebook/tastebook/internal/user"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const (
	userContextKey   ContextKey = "current_user"
	claimsContextKey ContextKey = "access_claims"
)

// Middleware is the scope gate that fronts every protected route.
type Middleware struct {
	tokens *TokenMaker
	users  UserStore
}

func NewMiddleware(tokens *TokenMaker, users UserStore) *Middleware {
	return &Middleware{tokens: tokens, users: users}
}

// RequireAuth decodes the presented access token, resolves its subject to an
// active user and stores both on the request context. Anything short of a
// valid, unexpired access token bound to an active user is a 401.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string

		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				httputil.RespondErrorWithCode(w, "invalid authorization header format", httputil.CodeInvalidAuthHeader, http.StatusUnauthorized)
				return
			}
			token = parts[1]
		}

		// Browser clients carry the token in a cookie instead.
		if token == "" {
			cookieToken, err := GetAccessTokenFromCookie(r)
			if err != nil {
				httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
				return
			}
			token = cookieToken
		}

		claims, err := m.tokens.ParseAccessToken(token)
		if err != nil {
			if errors.Is(err, ErrExpiredToken) {
				httputil.RespondErrorWithCode(w, "token has expired", httputil.CodeTokenExpired, http.StatusUnauthorized)
				return
			}
			httputil.RespondErrorWithCode(w, "invalid token", httputil.CodeInvalidToken, http.StatusUnauthorized)
			return
		}

		u, err := m.users.FindActiveByID(r.Context(), claims.UserID)
		if err != nil {
			httputil.RespondErrorWithCode(w, "invalid token", httputil.CodeInvalidToken, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, u)
		ctx = context.WithValue(ctx, claimsContextKey, claims)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireScopes rejects requests whose access token does not carry every
// listed capability scope. Must run after RequireAuth.
func (m *Middleware) RequireScopes(scopes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
				return
			}

			for _, scope := range scopes {
				if !claims.HasScope(scope) {
					httputil.RespondErrorWithCode(w, "insufficient scope: "+scope, httputil.CodeInsufficientScope, http.StatusForbidden)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// UserFromContext extracts the authenticated user placed by RequireAuth.
func UserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(userContextKey).(*user.User)
	return u, ok
}

// ClaimsFromContext extracts the decoded access claims placed by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*AccessClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*AccessClaims)
	return claims, ok
}
