package middlewarectx_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/flow-builder/internal/http/middlewarectx"
	"github.com/magabrotheeeer/flow-builder/internal/lib/jwt"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestJWTMiddleware(t *testing.T) {
	maker := jwt.NewJWTMaker("test-secret", time.Hour)
	valid, err := maker.GenerateToken("user-1", "u1@example.com", jwt.RoleUser)
	require.NoError(t, err)
	foreign, err := jwt.NewJWTMaker("other-secret", time.Hour).GenerateToken("user-1", "", jwt.RoleUser)
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		wantStatusCode int
		wantCalled     bool
	}{
		{name: "missing Authorization header", wantStatusCode: http.StatusUnauthorized},
		{name: "invalid Authorization header prefix", authHeader: "Basic sometoken", wantStatusCode: http.StatusUnauthorized},
		{name: "garbage token", authHeader: "Bearer token", wantStatusCode: http.StatusUnauthorized},
		{name: "token signed with other key", authHeader: "Bearer " + foreign, wantStatusCode: http.StatusUnauthorized},
		{name: "valid token", authHeader: "Bearer " + valid, wantStatusCode: http.StatusOK, wantCalled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				userID, ok := middlewarectx.UserIDFrom(r.Context())
				assert.True(t, ok)
				assert.Equal(t, "user-1", userID)
				assert.Equal(t, "u1@example.com", middlewarectx.EmailFrom(r.Context()))
				assert.Equal(t, jwt.RoleUser, r.Context().Value(middlewarectx.Role))
				w.WriteHeader(http.StatusOK)
			})
			h := middlewarectx.JWTMiddleware(maker, newNoopLogger())(next)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatusCode, rr.Code)
			assert.Equal(t, tt.wantCalled, handlerCalled)
		})
	}
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := middlewarectx.RequireRole(jwt.RoleAdmin, newNoopLogger())(next)

	tests := []struct {
		name string
		role string
		want int
	}{
		{"admin passes", jwt.RoleAdmin, http.StatusNoContent},
		{"user rejected", jwt.RoleUser, http.StatusForbidden},
		{"no role rejected", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/poses", nil)
			req = req.WithContext(middlewarectx.WithUser(req.Context(), "u1", "", tt.role))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestRateLimitMiddleware_PerClient(t *testing.T) {
	limiter := middlewarectx.NewClientRateLimiter(1, 2)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := middlewarectx.RateLimitMiddleware(limiter, newNoopLogger())(next)

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/flows/public/abc", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1111"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:2222"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:3333"))

	// другой клиент не страдает от чужого лимита
	assert.Equal(t, http.StatusOK, call("10.0.0.2:1111"))
}

type recorderStub struct {
	method, route string
	status        int
}

func (r *recorderStub) RecordHTTPRequest(method, route string, status int, _ time.Duration) {
	r.method, r.route, r.status = method, route, status
}

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	rec := &recorderStub{}
	router := chi.NewRouter()
	router.Use(middlewarectx.MetricsMiddleware(rec))
	router.Get("/flows/public/{slug}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGone)
	})

	req := httptest.NewRequest(http.MethodGet, "/flows/public/AbCdEf123456", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/flows/public/{slug}", rec.route)
	assert.Equal(t, http.StatusGone, rec.status)
}
