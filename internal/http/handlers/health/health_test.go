package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestHealthHandler(t *testing.T) {
	up := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name           string
		checks         map[string]Pinger
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "all up",
			checks:         map[string]Pinger{"postgres": up, "redis": up},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"postgres":"up","redis":"up"}}`,
		},
		{
			name:           "redis down",
			checks:         map[string]Pinger{"postgres": up, "redis": down},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `{"status":"Error","data":{"postgres":"up","redis":"down"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			New(newNoopLogger(), tt.checks).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}
