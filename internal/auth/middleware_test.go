package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tastebook/tastebook/internal/user"
)

func newTestMiddleware(t *testing.T, u *user.User) (*Middleware, *TokenMaker) {
	t.Helper()
	maker := testTokenMaker(t, 15*time.Minute, 7*24*time.Hour)
	store := &mockUserStore{
		findActiveByIDFn: func(ctx context.Context, id uuid.UUID) (*user.User, error) {
			if u != nil && u.ID == id {
				return u, nil
			}
			return nil, user.ErrNotFound
		},
	}
	return NewMiddleware(maker, store), maker
}

func okHandler(t *testing.T, wantUser *user.User) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, wantUser.ID, u.ID)

		_, ok = ClaimsFromContext(r.Context())
		require.True(t, ok)

		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuthWithBearerHeader(t *testing.T) {
	u := activeUser(t, "secret-password", user.RoleUser, true)
	mw, maker := newTestMiddleware(t, u)

	token, err := maker.CreateAccessToken(u.ID, []string{"user"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	mw.RequireAuth(okHandler(t, u)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuthWithCookie(t *testing.T) {
	u := activeUser(t, "secret-password", user.RoleUser, true)
	mw, maker := newTestMiddleware(t, u)

	token, err := maker.CreateAccessToken(u.ID, []string{"user"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	rec := httptest.NewRecorder()

	mw.RequireAuth(okHandler(t, u)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuthRejections(t *testing.T) {
	u := activeUser(t, "secret-password", user.RoleUser, true)
	mw, maker := newTestMiddleware(t, u)

	expiredMaker := testTokenMaker(t, -time.Minute, time.Hour)
	expired, err := expiredMaker.CreateAccessToken(u.ID, []string{"user"})
	require.NoError(t, err)

	refresh, err := maker.CreateRefreshToken(u.ID)
	require.NoError(t, err)

	unknownUser, err := maker.CreateAccessToken(uuid.New(), []string{"user"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"no credentials", ""},
		{"malformed header", "NotBearer xyz"},
		{"garbage token", "Bearer garbage"},
		{"expired token", "Bearer " + expired},
		{"refresh token in auth header", "Bearer " + refresh},
		{"token for deactivated user", "Bearer " + unknownUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			called := false
			mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			})).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, called)
		})
	}
}

func TestRequireScopes(t *testing.T) {
	u := activeUser(t, "secret-password", user.RoleModerator, true)
	mw, maker := newTestMiddleware(t, u)

	token, err := maker.CreateAccessToken(u.ID, []string{"user", "moderator"})
	require.NoError(t, err)

	run := func(scopes ...string) int {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler := mw.RequireAuth(mw.RequireScopes(scopes...)(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})))
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, run("user"))
	assert.Equal(t, http.StatusOK, run("user", "moderator"))
	assert.Equal(t, http.StatusForbidden, run("admin"))
	assert.Equal(t, http.StatusForbidden, run("moderator", "admin"))
	assert.Equal(t, http.StatusForbidden, run(ScopeVerified))
}
