package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/flow-builder/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetPose(ctx context.Context, id string) (*models.Pose, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Pose), args.Error(1)
}

func (m *RepoMock) GetPublishedPoseBySlug(ctx context.Context, slug string) (*models.Pose, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Pose), args.Error(1)
}

func (m *RepoMock) GetPublishedPosesByIDs(ctx context.Context, ids []string) ([]*models.Pose, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Pose), args.Error(1)
}

func (m *RepoMock) ListPublishedPoses(ctx context.Context, limit, offset int) ([]*models.Pose, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Pose), args.Error(1)
}

func (m *RepoMock) CreatePose(ctx context.Context, p models.Pose) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func (m *RepoMock) UpdatePose(ctx context.Context, id string, p models.Pose) (int, error) {
	args := m.Called(ctx, id, p)
	return args.Int(0), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *CacheMock) Invalidate(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestService_PublishedByIDs(t *testing.T) {
	repo := new(RepoMock)
	svc := New(repo, new(CacheMock), time.Hour, newNoopLogger())

	repo.On("GetPublishedPosesByIDs", mock.Anything, []string{"a", "b"}).
		Return([]*models.Pose{{ID: "a", Name: "Tree"}}, nil).Once()

	got, err := svc.PublishedByIDs(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Tree", got["a"].Name)
	assert.Nil(t, got["b"])

	empty, err := svc.PublishedByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	repo.AssertExpectations(t)
}

func TestService_PublishedByIDs_StoreFailure(t *testing.T) {
	repo := new(RepoMock)
	svc := New(repo, new(CacheMock), time.Hour, newNoopLogger())

	repo.On("GetPublishedPosesByIDs", mock.Anything, mock.Anything).Return(nil, errors.New("db down")).Once()

	_, err := svc.PublishedByIDs(context.Background(), []string{"a"})
	require.ErrorIs(t, err, models.ErrUpstream)
}

func TestService_GetBySlug(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(r *RepoMock, c *CacheMock)
		wantErr error
		want    string
	}{
		{
			name: "cache hit",
			setup: func(_ *RepoMock, c *CacheMock) {
				c.On("Get", mock.Anything, "pose:slug:tree", mock.Anything).
					Run(func(args mock.Arguments) {
						*args.Get(2).(*models.Pose) = models.Pose{Slug: "tree", Name: "Cached Tree"}
					}).Return(true, nil).Once()
			},
			want: "Cached Tree",
		},
		{
			name: "cache miss loads and stores",
			setup: func(r *RepoMock, c *CacheMock) {
				c.On("Get", mock.Anything, "pose:slug:tree", mock.Anything).Return(false, nil).Once()
				r.On("GetPublishedPoseBySlug", mock.Anything, "tree").
					Return(&models.Pose{Slug: "tree", Name: "Tree"}, nil).Once()
				c.On("Set", mock.Anything, "pose:slug:tree", mock.Anything, time.Hour).Return(nil).Once()
			},
			want: "Tree",
		},
		{
			name: "cache error falls back to store",
			setup: func(r *RepoMock, c *CacheMock) {
				c.On("Get", mock.Anything, "pose:slug:tree", mock.Anything).Return(false, errors.New("redis down")).Once()
				r.On("GetPublishedPoseBySlug", mock.Anything, "tree").
					Return(&models.Pose{Slug: "tree", Name: "Tree"}, nil).Once()
				c.On("Set", mock.Anything, "pose:slug:tree", mock.Anything, time.Hour).Return(errors.New("redis down")).Once()
			},
			want: "Tree",
		},
		{
			name: "not found",
			setup: func(r *RepoMock, c *CacheMock) {
				c.On("Get", mock.Anything, "pose:slug:tree", mock.Anything).Return(false, nil).Once()
				r.On("GetPublishedPoseBySlug", mock.Anything, "tree").Return(nil, models.ErrNotFound).Once()
			},
			wantErr: models.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, cache := new(RepoMock), new(CacheMock)
			tt.setup(repo, cache)
			svc := New(repo, cache, time.Hour, newNoopLogger())

			got, err := svc.GetBySlug(context.Background(), "tree")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got.Name)
			}
			repo.AssertExpectations(t)
			cache.AssertExpectations(t)
		})
	}
}

func TestService_Update_InvalidatesOldAndNewSlug(t *testing.T) {
	repo, cache := new(RepoMock), new(CacheMock)
	svc := New(repo, cache, time.Hour, newNoopLogger())

	req := models.DummyPose{Slug: "tree-pose", Name: "Tree", Status: "published"}
	repo.On("GetPose", mock.Anything, "id-1").Return(&models.Pose{ID: "id-1", Slug: "tree"}, nil).Once()
	repo.On("UpdatePose", mock.Anything, "id-1", req.ToPose()).Return(1, nil).Once()
	cache.On("Invalidate", mock.Anything, []string{"pose:slug:tree", "pose:slug:tree-pose"}).Return(nil).Once()

	require.NoError(t, svc.Update(context.Background(), "id-1", req))
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestService_Update_NotFound(t *testing.T) {
	repo := new(RepoMock)
	svc := New(repo, new(CacheMock), time.Hour, newNoopLogger())

	repo.On("GetPose", mock.Anything, "missing").Return(nil, models.ErrNotFound).Once()

	err := svc.Update(context.Background(), "missing", models.DummyPose{Slug: "x"})
	require.ErrorIs(t, err, models.ErrNotFound)
}
