package upsert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/flow-builder/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, req models.DummyPose) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockService) Update(ctx context.Context, id string, req models.DummyPose) error {
	args := m.Called(ctx, id, req)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

const validPose = `{"slug":"downward-dog","name":"Downward-Facing Dog","difficulty":"beginner",
	"pose_type":"inversion","primary_focus":"hamstrings","status":"published"}`

func TestUpsertHandler_Create(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "created",
			body: validPose,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(p models.DummyPose) bool {
					return p.Slug == "downward-dog" && p.Status == "published"
				})).Return("pose-1", nil).Once()
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `{"status":"OK","data":{"id":"pose-1"}}`,
		},
		{
			name:           "bad difficulty",
			body:           `{"slug":"x","name":"X","difficulty":"guru","pose_type":"t","primary_focus":"f","status":"draft"}`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody: `{"status":"Error","code":"validation_failed",
				"error":"field Difficulty must be one of [beginner intermediate advanced]"}`,
		},
		{
			name: "duplicate slug",
			body: validPose,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, mock.Anything).
					Return("", fmt.Errorf("storage.CreatePose: %w", models.Validationf("slug %q already exists", "downward-dog"))).Once()
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","code":"validation_failed","error":"slug \"downward-dog\" already exists"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockService)
			tt.setupMock(service)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/poses", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			New(newNoopLogger(), service).Create(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			service.AssertExpectations(t)
		})
	}
}

func TestUpsertHandler_Update(t *testing.T) {
	const id = "7f1b7c1e-8d1a-4b8e-9a53-1d2f0c3e4b5a"

	service := new(MockService)
	service.On("Update", mock.Anything, id, mock.Anything).Return(models.ErrNotFound).Once()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/poses/"+id, bytes.NewBufferString(validPose))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	w := httptest.NewRecorder()
	New(newNoopLogger(), service).Update(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	service.AssertExpectations(t)
}
