package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/video-stream/subtrans/internal/auth"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAuthMiddleware(t *testing.T) {
	jwtService := auth.NewJWTService("secret")
	token, err := jwtService.GenerateToken(1, "admin", "admin")
	require.NoError(t, err)

	var seen *auth.Claims
	h := AuthMiddleware(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetClaims(r)
	}))

	cases := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Token " + token, http.StatusUnauthorized},
		{"Bearer not-a-token", http.StatusUnauthorized},
		{"Bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, tc.header)
	}
	require.NotNil(t, seen)
	assert.Equal(t, "admin", seen.Username)
}

func TestRequireRole(t *testing.T) {
	jwtService := auth.NewJWTService("secret")
	token, err := jwtService.GenerateToken(2, "viewer", "viewer")
	require.NoError(t, err)

	h := AuthMiddleware(jwtService)(RequireRole("admin")(okHandler))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute, nil)
	rl.now = func() time.Time { return now }
	h := rl.Handler(okHandler)

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.1"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do().Code)
	assert.Equal(t, http.StatusOK, do().Code)
	blocked := do()
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "61", blocked.Header().Get("Retry-After"))

	status := rl.Status()
	require.Len(t, status.Entries, 1)
	assert.Equal(t, "10.0.0.1", status.Entries[0].Key)
	assert.Equal(t, 3, status.Entries[0].Count)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, http.StatusOK, do().Code)
}

func TestRateLimiterByUser(t *testing.T) {
	jwtService := auth.NewJWTService("secret")
	rl := NewRateLimiter(1, time.Hour, ByUser)
	h := AuthMiddleware(jwtService)(rl.Handler(okHandler))

	do := func(username string) int {
		token, err := jwtService.GenerateToken(1, username, "viewer")
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/translations", nil)
		req.RemoteAddr = "10.0.0.1"
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("alice"))
	assert.Equal(t, http.StatusTooManyRequests, do("alice"))
	// same address, different user
	assert.Equal(t, http.StatusOK, do("bob"))
}

func TestAuthMiddlewareQueryToken(t *testing.T) {
	jwtService := auth.NewJWTService("secret")
	token, err := jwtService.GenerateToken(1, "admin", "admin")
	require.NoError(t, err)
	h := AuthMiddleware(jwtService)(okHandler)

	get := httptest.NewRequest(http.MethodGet, "/api/files/content/fa/translated_a.srt?as=vtt&token="+token, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, get)
	assert.Equal(t, http.StatusOK, rec.Code)

	post := httptest.NewRequest(http.MethodPost, "/api/translations?token="+token, nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, post)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoggerPassesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestMaxBodySize(t *testing.T) {
	var readErr error
	h := MaxBodySize(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789"))
	req.ContentLength = -1
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Error(t, readErr)

	declared := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, declared)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCORSCredentials(t *testing.T) {
	preflight := func(origins []string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/jobs", nil)
		req.Header.Set("Origin", "https://app.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		rec := httptest.NewRecorder()
		CORS(origins)(okHandler).ServeHTTP(rec, req)
		return rec
	}

	rec := preflight([]string{"https://app.example"})
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = preflight(nil)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}
