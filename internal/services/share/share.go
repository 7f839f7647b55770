// Package share управляет публичными ссылками на флоу и отдаёт флоу по ним без аутентификации.
package share

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/flow-builder/internal/lib/slug"
	"github.com/magabrotheeeer/flow-builder/internal/models"
)

// maxMintAttempts число попыток подобрать свободный slug.
const maxMintAttempts = 5

// Repository методы хранилища для публикации флоу.
type Repository interface {
	GetFlow(ctx context.Context, id, userID string) (*models.Flow, error)
	GetPublicFlowBySlug(ctx context.Context, slug string) (*models.Flow, error)
	PublishFlow(ctx context.Context, id, userID, slug string, expiresAt *time.Time) (int, error)
	UnpublishFlow(ctx context.Context, id, userID string) (int, error)
	GetSubscriptionTier(ctx context.Context, userID string) (models.SubscriptionTier, error)
}

// Resolver собирает флоу с позами.
type Resolver interface {
	Resolve(ctx context.Context, f *models.Flow) (*models.ResolvedFlow, error)
}

// Metrics счётчик публичных чтений.
type Metrics interface {
	RecordPublicRead(outcome string)
}

// Link состояние публикации флоу.
type Link struct {
	IsPublic  bool       `json:"is_public"`
	Slug      string     `json:"slug,omitempty"`
	URL       string     `json:"url,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Service публикация флоу.
type Service struct {
	repo     Repository
	resolver Resolver
	metrics  Metrics
	baseURL  string
	log      *slog.Logger

	newSlug func() (string, error)
	now     func() time.Time
}

// New создаёт сервис. baseURL: адрес фронтенда без завершающего слеша.
func New(repo Repository, resolver Resolver, metrics Metrics, baseURL string, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		metrics:  metrics,
		baseURL:  baseURL,
		log:      log,
		newSlug:  slug.New,
		now:      time.Now,
	}
}

func (s *Service) expired(f *models.Flow) bool {
	return f.ShareExpiresAt != nil && !f.ShareExpiresAt.After(s.now())
}

func (s *Service) link(f *models.Flow) *Link {
	l := &Link{IsPublic: f.IsPublic, ExpiresAt: f.ShareExpiresAt}
	if f.PublicSlug != nil {
		l.Slug = *f.PublicSlug
		l.URL = s.baseURL + "/flows/public/" + *f.PublicSlug
	}
	return l
}

// Share делает флоу публичным. Доступно только на платном тарифе.
// Действующая ссылка без нового срока возвращается без изменений. Новый срок или
// просроченная ссылка переопубликуют флоу под прежним slug.
func (s *Service) Share(ctx context.Context, flowID, userID string, expiresAt *time.Time) (*Link, error) {
	const op = "share.Share"

	userTier, err := s.repo.GetSubscriptionTier(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, models.Upstream(err))
	}
	if userTier != models.TierPaid {
		return nil, fmt.Errorf("%s: %w", op, models.ErrUpgradeRequired)
	}

	f, err := s.repo.GetFlow(ctx, flowID, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storeErr(err))
	}
	if f.IsPublic && f.PublicSlug != nil && expiresAt == nil && !s.expired(f) {
		return s.link(f), nil
	}
	if expiresAt != nil && !expiresAt.After(s.now()) {
		return nil, fmt.Errorf("%s: %w", op, models.Validationf("expires_at must be in the future"))
	}

	var candidate string
	if f.PublicSlug != nil {
		candidate = *f.PublicSlug
	}
	for attempt := 0; attempt < maxMintAttempts; attempt++ {
		if candidate == "" {
			if candidate, err = s.newSlug(); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}

		n, err := s.repo.PublishFlow(ctx, flowID, userID, candidate, expiresAt)
		if errors.Is(err, models.ErrSlugTaken) {
			s.log.Warn("share slug collision, minting another", slog.String("flow_id", flowID))
			candidate = ""
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, models.Upstream(err))
		}
		if n == 0 {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}

		f.IsPublic = true
		f.PublicSlug = &candidate
		f.ShareExpiresAt = expiresAt
		s.log.Info("flow shared", slog.String("flow_id", flowID))
		return s.link(f), nil
	}
	return nil, fmt.Errorf("%s: %w", op, models.Upstream(errors.New("no free share slug")))
}

// Unshare закрывает публичный доступ. Slug остаётся за флоу.
func (s *Service) Unshare(ctx context.Context, flowID, userID string) error {
	const op = "share.Unshare"

	n, err := s.repo.UnpublishFlow(ctx, flowID, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, models.Upstream(err))
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	s.log.Info("flow unshared", slog.String("flow_id", flowID))
	return nil
}

// Status возвращает текущее состояние публикации флоу владельца.
func (s *Service) Status(ctx context.Context, flowID, userID string) (*Link, error) {
	const op = "share.Status"

	f, err := s.repo.GetFlow(ctx, flowID, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storeErr(err))
	}
	l := s.link(f)
	if !f.IsPublic {
		l.URL = ""
	}
	return l, nil
}

// GetPublicFlow отдаёт опубликованный флоу по slug без данных владельца.
func (s *Service) GetPublicFlow(ctx context.Context, publicSlug string) (*models.PublicFlow, error) {
	const op = "share.GetPublicFlow"

	if !slug.Valid(publicSlug) {
		s.record("not_found")
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	f, err := s.repo.GetPublicFlowBySlug(ctx, publicSlug)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.record("not_found")
		}
		return nil, fmt.Errorf("%s: %w", op, storeErr(err))
	}
	if f.ShareExpiresAt != nil && f.ShareExpiresAt.Before(s.now()) {
		s.record("expired")
		return nil, fmt.Errorf("%s: %w", op, models.ErrShareExpired)
	}

	resolved, err := s.resolver.Resolve(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.record("ok")
	public := resolved.ToPublic()
	return &public, nil
}

func (s *Service) record(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordPublicRead(outcome)
	}
}

func storeErr(err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return err
	}
	return models.Upstream(err)
}
