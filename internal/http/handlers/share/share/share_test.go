package share

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/flow-builder/internal/http/middlewarectx"
	"github.com/magabrotheeeer/flow-builder/internal/models"
	sharesvc "github.com/magabrotheeeer/flow-builder/internal/services/share"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Share(ctx context.Context, flowID, userID string, expiresAt *time.Time) (*sharesvc.Link, error) {
	args := m.Called(ctx, flowID, userID, expiresAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sharesvc.Link), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

const flowID = "0b9a4a52-1f0e-4b57-8f2c-2d6f1f6a9c10"

func newRequest(body string) *http.Request {
	var r io.Reader = http.NoBody
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/flows/"+flowID+"/share", r)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", flowID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = middlewarectx.WithUser(ctx, "user-1", "", "user")
	return req.WithContext(ctx)
}

func TestShareHandler_ServeHTTP(t *testing.T) {
	link := &sharesvc.Link{IsPublic: true, Slug: "k3x9p2m7q4w8", URL: "https://app.test/flows/public/k3x9p2m7q4w8"}

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "empty body",
			setupMock: func(m *MockService) {
				m.On("Share", mock.Anything, flowID, "user-1", (*time.Time)(nil)).Return(link, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody: `{"status":"OK","data":{"is_public":true,"slug":"k3x9p2m7q4w8",
				"url":"https://app.test/flows/public/k3x9p2m7q4w8"}}`,
		},
		{
			name: "with expiry",
			body: `{"expires_at":"2030-01-02T03:04:05Z"}`,
			setupMock: func(m *MockService) {
				m.On("Share", mock.Anything, flowID, "user-1", mock.MatchedBy(func(t *time.Time) bool {
					return t != nil && t.Equal(time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC))
				})).Return(link, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "broken body",
			body:           `{"expires_at":`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name: "free tier",
			setupMock: func(m *MockService) {
				m.On("Share", mock.Anything, flowID, "user-1", (*time.Time)(nil)).
					Return(nil, models.ErrUpgradeRequired).Once()
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `{"status":"Error","error":"this feature requires a paid plan","code":"upgrade_required"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockService)
			tt.setupMock(service)

			w := httptest.NewRecorder()
			New(newNoopLogger(), service).ServeHTTP(w, newRequest(tt.body))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			}
			service.AssertExpectations(t)
		})
	}
}
