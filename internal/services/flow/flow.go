// Package flow собирает агрегат флоу: метаданные, упорядоченные элементы и позы каталога,
// и проверяет лимиты тарифа перед изменениями.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/magabrotheeeer/flow-builder/internal/lib/sl"
	"github.com/magabrotheeeer/flow-builder/internal/lib/tier"
	"github.com/magabrotheeeer/flow-builder/internal/models"
)

const (
	defaultStyle = "custom"
	defaultLevel = "all"
)

// Repository методы хранилища, которые нужны агрегату.
type Repository interface {
	CreateFlow(ctx context.Context, f models.Flow) (string, error)
	GetFlow(ctx context.Context, id, userID string) (*models.Flow, error)
	ListFlows(ctx context.Context, userID string, includeArchived bool, limit, offset int) ([]*models.FlowSummary, error)
	CountActiveFlows(ctx context.Context, userID string) (int, error)
	UpdateFlow(ctx context.Context, id, userID string, patch models.FlowPatch) (int, error)
	DeleteFlow(ctx context.Context, id, userID string) (int, error)
	ListItems(ctx context.Context, flowID string) ([]*models.FlowItem, error)
	InsertItems(ctx context.Context, flowID string, items []models.FlowItem) error
	ReplaceItems(ctx context.Context, flowID string, items []models.FlowItem) error
	GetSubscriptionTier(ctx context.Context, userID string) (models.SubscriptionTier, error)
}

// PoseResolver пакетно находит опубликованные позы по ID.
type PoseResolver interface {
	PublishedByIDs(ctx context.Context, ids []string) (map[string]*models.Pose, error)
}

// Metrics счётчик отказов по лимитам.
type Metrics interface {
	RecordLimitRejection(resource string)
}

// Service операции над флоу пользователя.
type Service struct {
	repo    Repository
	poses   PoseResolver
	metrics Metrics
	log     *slog.Logger
}

// New создаёт сервис флоу.
func New(repo Repository, poses PoseResolver, metrics Metrics, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		poses:   poses,
		metrics: metrics,
		log:     log,
	}
}

// Get возвращает флоу владельца с разрешёнными позами.
func (s *Service) Get(ctx context.Context, id, userID string) (*models.ResolvedFlow, error) {
	const op = "flow.Get"

	f, err := s.repo.GetFlow(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storeErr(err))
	}
	resolved, err := s.Resolve(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resolved, nil
}

// Resolve подгружает элементы флоу и одним запросом к каталогу подставляет позы.
// Снятая с публикации или удалённая поза даёт элемент с Pose == nil.
func (s *Service) Resolve(ctx context.Context, f *models.Flow) (*models.ResolvedFlow, error) {
	const op = "flow.Resolve"

	items, err := s.repo.ListItems(ctx, f.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, models.Upstream(err))
	}

	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.PoseID]; ok {
			continue
		}
		seen[it.PoseID] = struct{}{}
		ids = append(ids, it.PoseID)
	}

	poses, err := s.poses.PublishedByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Position < items[j].Position
	})

	result := &models.ResolvedFlow{
		Flow:  *f,
		Items: make([]models.ResolvedFlowItem, 0, len(items)),
	}
	for _, it := range items {
		result.Items = append(result.Items, models.ResolvedFlowItem{
			FlowItem: *it,
			Pose:     poses[it.PoseID],
		})
		result.TotalDurationSeconds += it.DurationSeconds
	}
	result.PoseCount = len(result.Items)
	return result, nil
}

// Create проверяет квоты тарифа, создаёт флоу и его элементы.
// Если элементы записать не удалось, созданный флоу удаляется.
func (s *Service) Create(ctx context.Context, userID string, req models.DummyFlow) (*models.ResolvedFlow, error) {
	const op = "flow.Create"

	userTier, err := s.repo.GetSubscriptionTier(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, models.Upstream(err))
	}
	count, err := s.repo.CountActiveFlows(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, models.Upstream(err))
	}
	if err := s.checkLimit(tier.CheckFlows(userTier, count+1)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(req.Items) > 0 {
		if err := s.checkLimit(tier.CheckPosesPerFlow(userTier, len(req.Items))); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	f := models.Flow{
		UserID:                userID,
		Title:                 req.Title,
		Description:           req.Description,
		Style:                 orDefault(req.Style, defaultStyle),
		Level:                 orDefault(req.Level, defaultLevel),
		TargetDurationMinutes: req.TargetDurationMinutes,
	}
	id, err := s.repo.CreateFlow(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, models.Upstream(err))
	}

	if err := s.repo.InsertItems(ctx, id, NormalizeItems(req.Items)); err != nil {
		if _, delErr := s.repo.DeleteFlow(ctx, id, userID); delErr != nil {
			s.log.Error("failed to remove flow after item insert failure",
				slog.String("flow_id", id), sl.Err(delErr))
		}
		return nil, fmt.Errorf("%s: %w", op, models.Upstream(err))
	}

	s.log.Info("flow created", slog.String("flow_id", id), slog.Int("items", len(req.Items)))
	return s.Get(ctx, id, userID)
}

// Replace применяет частичное обновление. Переданный список элементов заменяет
// прежний целиком в одной транзакции.
func (s *Service) Replace(ctx context.Context, id, userID string, patch models.FlowPatch) (*models.ResolvedFlow, error) {
	const op = "flow.Replace"

	current, err := s.repo.GetFlow(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storeErr(err))
	}

	unarchive := patch.IsArchived != nil && !*patch.IsArchived && current.IsArchived
	if patch.Items != nil || unarchive {
		userTier, err := s.repo.GetSubscriptionTier(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, models.Upstream(err))
		}
		if patch.Items != nil {
			if err := s.checkLimit(tier.CheckPosesPerFlow(userTier, len(*patch.Items))); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
		if unarchive {
			count, err := s.repo.CountActiveFlows(ctx, userID)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, models.Upstream(err))
			}
			if err := s.checkLimit(tier.CheckFlows(userTier, count+1)); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
	}

	if patch.HasMetadata() {
		n, err := s.repo.UpdateFlow(ctx, id, userID, patch)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, models.Upstream(err))
		}
		if n == 0 {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
	}

	if patch.Items != nil {
		if err := s.repo.ReplaceItems(ctx, id, NormalizeItems(*patch.Items)); err != nil {
			return nil, fmt.Errorf("%s: %w", op, models.Upstream(err))
		}
	}

	return s.Get(ctx, id, userID)
}

// List возвращает флоу пользователя с агрегатами.
func (s *Service) List(ctx context.Context, userID string, includeArchived bool, limit, offset int) ([]*models.FlowSummary, error) {
	const op = "flow.List"

	flows, err := s.repo.ListFlows(ctx, userID, includeArchived, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, models.Upstream(err))
	}
	return flows, nil
}

// Delete удаляет флоу владельца.
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	const op = "flow.Delete"

	n, err := s.repo.DeleteFlow(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, models.Upstream(err))
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	s.log.Info("flow deleted", slog.String("flow_id", id))
	return nil
}

// NormalizeItems переводит элементы запроса в модель хранилища.
// Позиция берётся из запроса или равна индексу в списке, затем элементы
// стабильно сортируются и перенумеровываются подряд с нуля.
func NormalizeItems(in []models.DummyFlowItem) []models.FlowItem {
	out := make([]models.FlowItem, len(in))
	for i, it := range in {
		position := i
		if it.Position != nil {
			position = *it.Position
		}
		side := models.Side(it.Side)
		if side == "" {
			side = models.SideBoth
		}
		out[i] = models.FlowItem{
			PoseID:          it.PoseID,
			Position:        position,
			DurationSeconds: it.DurationSeconds,
			Side:            side,
			Notes:           it.Notes,
			Repetitions:     1,
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	for i := range out {
		out[i].Position = i
	}
	return out
}

func (s *Service) checkLimit(err error) error {
	if err == nil {
		return nil
	}
	var limitErr *models.LimitError
	if errors.As(err, &limitErr) && s.metrics != nil {
		s.metrics.RecordLimitRejection(limitErr.Resource)
	}
	return err
}

// storeErr пропускает ErrNotFound как есть, остальное помечает как ошибку хранилища.
func storeErr(err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return err
	}
	return models.Upstream(err)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
