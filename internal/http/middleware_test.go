package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func securityHeadersResponse(t *testing.T, swaggerEnabled bool, path string) http.Header {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()

	SecurityHeaders(swaggerEnabled)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)

	return rec.Header()
}

func TestSecurityHeadersAreAlwaysSet(t *testing.T) {
	headers := securityHeadersResponse(t, false, "/health")

	assert.Equal(t, "nosniff", headers.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", headers.Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", headers.Get("Referrer-Policy"))
	assert.Equal(t, "default-src 'none'", headers.Get("Content-Security-Policy"))
}

func TestSecurityHeadersSwaggerPolicy(t *testing.T) {
	locked := "default-src 'none'"

	// The relaxed policy only applies to swagger paths, and only when
	// swagger is mounted.
	relaxed := securityHeadersResponse(t, true, "/swagger/index.html").Get("Content-Security-Policy")
	assert.NotEqual(t, locked, relaxed)
	assert.Contains(t, relaxed, "script-src")

	assert.Equal(t, locked, securityHeadersResponse(t, true, "/recipes").Get("Content-Security-Policy"))
	assert.Equal(t, locked, securityHeadersResponse(t, false, "/swagger/index.html").Get("Content-Security-Policy"))
}
