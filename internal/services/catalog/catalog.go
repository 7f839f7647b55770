// Package catalog отдаёт опубликованные позы каталога и кеширует чтение по slug в Redis.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/flow-builder/internal/lib/sl"
	"github.com/magabrotheeeer/flow-builder/internal/models"
)

// Repository методы хранилища поз.
type Repository interface {
	GetPose(ctx context.Context, id string) (*models.Pose, error)
	GetPublishedPoseBySlug(ctx context.Context, slug string) (*models.Pose, error)
	GetPublishedPosesByIDs(ctx context.Context, ids []string) ([]*models.Pose, error)
	ListPublishedPoses(ctx context.Context, limit, offset int) ([]*models.Pose, error)
	CreatePose(ctx context.Context, p models.Pose) (string, error)
	UpdatePose(ctx context.Context, id string, p models.Pose) (int, error)
}

// Cache JSON-кеш.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Service каталог поз.
type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

// New создаёт сервис каталога. ttl: время жизни записи в кеше.
func New(repo Repository, cache Cache, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

func slugKey(slug string) string {
	return "pose:slug:" + slug
}

// PublishedByIDs одним запросом достаёт опубликованные позы и возвращает их по ID.
// ID, которых нет в результате, соответствуют снятым с публикации или удалённым позам.
func (s *Service) PublishedByIDs(ctx context.Context, ids []string) (map[string]*models.Pose, error) {
	const op = "catalog.PublishedByIDs"

	result := make(map[string]*models.Pose, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	poses, err := s.repo.GetPublishedPosesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, models.Upstream(err))
	}
	for _, p := range poses {
		result[p.ID] = p
	}
	return result, nil
}

// GetBySlug возвращает опубликованную позу, сначала проверяя кеш.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*models.Pose, error) {
	const op = "catalog.GetBySlug"

	var cached models.Pose
	found, err := s.cache.Get(ctx, slugKey(slug), &cached)
	if err != nil {
		s.log.Warn("failed to read pose from cache", slog.String("slug", slug), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	pose, err := s.repo.GetPublishedPoseBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return nil, fmt.Errorf("%s: %w", op, models.Upstream(err))
	}

	if err := s.cache.Set(ctx, slugKey(slug), pose, s.ttl); err != nil {
		s.log.Warn("failed to cache pose", slog.String("slug", slug), sl.Err(err))
	}
	return pose, nil
}

// List возвращает страницу опубликованных поз.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*models.Pose, error) {
	const op = "catalog.List"

	poses, err := s.repo.ListPublishedPoses(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, models.Upstream(err))
	}
	return poses, nil
}

// Create добавляет позу в каталог.
func (s *Service) Create(ctx context.Context, req models.DummyPose) (string, error) {
	const op = "catalog.Create"

	id, err := s.repo.CreatePose(ctx, req.ToPose())
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, req.Slug)
	s.log.Info("pose created", slog.String("id", id), slog.String("slug", req.Slug))
	return id, nil
}

// Update перезаписывает позу и сбрасывает кеш по старому и новому slug.
func (s *Service) Update(ctx context.Context, id string, req models.DummyPose) error {
	const op = "catalog.Update"

	existing, err := s.repo.GetPose(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := s.repo.UpdatePose(ctx, id, req.ToPose())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	s.invalidate(ctx, existing.Slug, req.Slug)
	s.log.Info("pose updated", slog.String("id", id), slog.String("slug", req.Slug))
	return nil
}

func (s *Service) invalidate(ctx context.Context, slugs ...string) {
	keys := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		keys = append(keys, slugKey(slug))
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.log.Warn("failed to invalidate pose cache", sl.Err(err))
	}
}
