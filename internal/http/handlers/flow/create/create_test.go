package create

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/flow-builder/internal/http/middlewarectx"
	"github.com/magabrotheeeer/flow-builder/internal/lib/tier"
	"github.com/magabrotheeeer/flow-builder/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, userID string, req models.DummyFlow) (*models.ResolvedFlow, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ResolvedFlow), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

const poseID = "7f1b7c1e-8d1a-4b8e-9a53-1d2f0c3e4b5a"

func TestCreateHandler_ServeHTTP(t *testing.T) {
	validBody := models.DummyFlow{
		Title: "Morning",
		Items: []models.DummyFlowItem{{PoseID: poseID, DurationSeconds: 30}},
	}

	tests := []struct {
		name           string
		requestBody    any
		userID         string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "success",
			requestBody: validBody,
			userID:      "user-1",
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, "user-1", validBody).Return(&models.ResolvedFlow{
					Flow:      models.Flow{ID: "flow-1", Title: "Morning"},
					PoseCount: 1,
				}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "unauthorized",
			requestBody:    validBody,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"unauthorized","code":"unauthorized"}`,
		},
		{
			name:           "invalid JSON",
			requestBody:    "not a json",
			userID:         "user-1",
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name:           "missing title",
			requestBody:    models.DummyFlow{},
			userID:         "user-1",
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field Title is a required field","code":"validation_failed"}`,
		},
		{
			name:           "markup-only title",
			requestBody:    models.DummyFlow{Title: "<script>alert(1)</script>"},
			userID:         "user-1",
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field Title is a required field","code":"validation_failed"}`,
		},
		{
			name:        "flow limit reached",
			requestBody: validBody,
			userID:      "user-1",
			setupMock: func(m *MockService) {
				err := tier.CheckFlows(models.TierFree, tier.FreeMaxFlows+1)
				m.On("Create", mock.Anything, "user-1", validBody).Return(nil, err).Once()
			},
			expectedStatus: http.StatusForbidden,
			expectedBody: `{"status":"Error","code":"limit_exceeded","resource":"flows","limit":3,
				"error":"Free plan allows up to 3 flows. Upgrade to create unlimited flows."}`,
		},
		{
			name:        "storage failure",
			requestBody: validBody,
			userID:      "user-1",
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, "user-1", validBody).Return(nil, errors.New("db down")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"internal error","code":"internal_error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockService)
			tt.setupMock(service)
			handler := New(newNoopLogger(), service)

			var body []byte
			if str, ok := tt.requestBody.(string); ok {
				body = []byte(str)
			} else {
				var err error
				body, err = json.Marshal(tt.requestBody)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/flows", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "req-id")
			if tt.userID != "" {
				ctx = middlewarectx.WithUser(ctx, tt.userID, "a@b.c", "user")
			}
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			}
			service.AssertExpectations(t)
		})
	}
}

func TestCreateHandler_SuccessBody(t *testing.T) {
	service := new(MockService)
	service.On("Create", mock.Anything, "user-1", mock.Anything).Return(&models.ResolvedFlow{
		Flow:                 models.Flow{ID: "flow-1", Title: "Morning"},
		PoseCount:            2,
		TotalDurationSeconds: 90,
	}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/flows", bytes.NewBufferString(`{"title":"Morning"}`))
	req = req.WithContext(middlewarectx.WithUser(req.Context(), "user-1", "", "user"))
	w := httptest.NewRecorder()
	New(newNoopLogger(), service).ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Flow models.ResolvedFlow `json:"flow"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "OK", resp.Status)
	assert.Equal(t, "flow-1", resp.Data.Flow.ID)
	assert.Equal(t, 2, resp.Data.Flow.PoseCount)
	assert.Equal(t, 90, resp.Data.Flow.TotalDurationSeconds)
}

func TestCreateHandler_New(t *testing.T) {
	logger := newNoopLogger()
	service := new(MockService)

	handler := New(logger, service)

	assert.Equal(t, logger, handler.log)
	assert.Equal(t, service, handler.service)
	assert.NotNil(t, handler.validate)
}
