package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/flow-builder/internal/models"
)

const flowColumns = `f.id, f.user_id, f.title, f.description, f.style, f.level, f.target_duration_minutes,
	f.is_public, f.public_slug, f.share_expires_at, f.is_archived, f.created_at, f.updated_at`

func scanFlow(row rowScanner, extra ...any) (*models.Flow, error) {
	var (
		f           models.Flow
		description sql.NullString
		target      sql.NullInt64
		slug        sql.NullString
		expiresAt   sql.NullTime
	)
	dest := []any{&f.ID, &f.UserID, &f.Title, &description, &f.Style, &f.Level, &target,
		&f.IsPublic, &slug, &expiresAt, &f.IsArchived, &f.CreatedAt, &f.UpdatedAt}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	f.Description = stringPtr(description)
	f.TargetDurationMinutes = intPtr(target)
	f.PublicSlug = stringPtr(slug)
	f.ShareExpiresAt = timePtr(expiresAt)
	return &f, nil
}

// CreateFlow сохраняет метаданные флоу и возвращает его ID. Элементы пишутся отдельно.
func (s *Storage) CreateFlow(ctx context.Context, f models.Flow) (string, error) {
	const op = "storage.CreateFlow"
	if err := checkCtx(ctx, op); err != nil {
		return "", err
	}

	id := uuid.New().String()
	query := `INSERT INTO flows (id, user_id, title, description, style, level, target_duration_minutes)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.DB.ExecContext(ctx, query, id, f.UserID, f.Title, nullString(f.Description),
		f.Style, f.Level, nullInt(f.TargetDurationMinutes))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// GetFlow возвращает флоу владельца. Чужой и несуществующий флоу неотличимы.
func (s *Storage) GetFlow(ctx context.Context, id, userID string) (*models.Flow, error) {
	const op = "storage.GetFlow"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx,
		`SELECT `+flowColumns+` FROM flows f WHERE f.id = $1 AND f.user_id = $2`, id, userID)
	f, err := scanFlow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return f, nil
}

// GetPublicFlowBySlug возвращает флоу, опубликованный под данным slug.
func (s *Storage) GetPublicFlowBySlug(ctx context.Context, slug string) (*models.Flow, error) {
	const op = "storage.GetPublicFlowBySlug"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx,
		`SELECT `+flowColumns+` FROM flows f WHERE f.public_slug = $1 AND f.is_public`, slug)
	f, err := scanFlow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return f, nil
}

// ListFlows возвращает флоу пользователя с агрегатами по элементам, новые сверху.
func (s *Storage) ListFlows(ctx context.Context, userID string, includeArchived bool, limit, offset int) ([]*models.FlowSummary, error) {
	const op = "storage.ListFlows"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + flowColumns + `,
			      COUNT(i.id) AS pose_count,
			      COALESCE(SUM(i.duration_seconds), 0) AS total_duration
			  FROM flows f
			  LEFT JOIN flow_items i ON i.flow_id = f.id
			  WHERE f.user_id = $1 AND ($2 OR NOT f.is_archived)
			  GROUP BY f.id
			  ORDER BY f.updated_at DESC
			  LIMIT $3 OFFSET $4`
	rows, err := s.DB.QueryContext(ctx, query, userID, includeArchived, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.FlowSummary, 0)
	for rows.Next() {
		var count, total int
		f, err := scanFlow(rows, &count, &total)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &models.FlowSummary{
			Flow:                 *f,
			PoseCount:            count,
			TotalDurationSeconds: total,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountActiveFlows считает неархивные флоу пользователя, по нему проверяется лимит тарифа.
func (s *Storage) CountActiveFlows(ctx context.Context, userID string) (int, error) {
	const op = "storage.CountActiveFlows"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM flows WHERE user_id = $1 AND NOT is_archived`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// UpdateFlow применяет только переданные поля патча и обновляет updated_at.
func (s *Storage) UpdateFlow(ctx context.Context, id, userID string, patch models.FlowPatch) (int, error) {
	const op = "storage.UpdateFlow"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	sets := make([]string, 0, 7)
	args := []any{id, userID}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	switch {
	case patch.ClearDescription:
		add("description", sql.NullString{})
	case patch.Description != nil:
		add("description", nullString(patch.Description))
	}
	if patch.Style != nil {
		add("style", *patch.Style)
	}
	if patch.Level != nil {
		add("level", *patch.Level)
	}
	if patch.TargetDurationMinutes != nil {
		add("target_duration_minutes", nullInt(patch.TargetDurationMinutes))
	}
	if patch.IsArchived != nil {
		add("is_archived", *patch.IsArchived)
	}
	sets = append(sets, "updated_at = now()")

	query := `UPDATE flows SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 AND user_id = $2`
	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(n), nil
}

// DeleteFlow удаляет флоу владельца, элементы удаляются каскадно.
func (s *Storage) DeleteFlow(ctx context.Context, id, userID string) (int, error) {
	const op = "storage.DeleteFlow"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM flows WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(n), nil
}

// ListItems возвращает элементы флоу в порядке position.
func (s *Storage) ListItems(ctx context.Context, flowID string) ([]*models.FlowItem, error) {
	const op = "storage.ListItems"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, flow_id, pose_id, position, duration_seconds, side, notes, repetitions
		 FROM flow_items
		 WHERE flow_id = $1
		 ORDER BY position`, flowID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.FlowItem, 0)
	for rows.Next() {
		var (
			it    models.FlowItem
			notes sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.FlowID, &it.PoseID, &it.Position, &it.DurationSeconds,
			&it.Side, &notes, &it.Repetitions); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		it.Notes = stringPtr(notes)
		result = append(result, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertItems(ctx context.Context, db execer, flowID string, items []models.FlowItem) error {
	if len(items) == 0 {
		return nil
	}
	const cols = 8
	placeholders := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*cols)
	for i, it := range items {
		base := i * cols
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
		// повторения пока не редактируются, всегда пишем 1
		args = append(args, uuid.New().String(), flowID, it.PoseID, it.Position,
			it.DurationSeconds, string(it.Side), nullString(it.Notes), 1)
	}
	query := `INSERT INTO flow_items (id, flow_id, pose_id, position, duration_seconds, side, notes, repetitions)
			  VALUES ` + strings.Join(placeholders, ", ")
	_, err := db.ExecContext(ctx, query, args...)
	return err
}

// InsertItems добавляет элементы к флоу одним запросом.
func (s *Storage) InsertItems(ctx context.Context, flowID string, items []models.FlowItem) error {
	const op = "storage.InsertItems"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	if err := insertItems(ctx, s.DB, flowID, items); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ReplaceItems атомарно заменяет все элементы флоу: при ошибке остаётся прежний набор.
func (s *Storage) ReplaceItems(ctx context.Context, flowID string, items []models.FlowItem) error {
	const op = "storage.ReplaceItems"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM flow_items WHERE flow_id = $1`, flowID); err != nil {
		return fmt.Errorf("%s: delete: %w", op, err)
	}
	if err = insertItems(ctx, tx, flowID, items); err != nil {
		return fmt.Errorf("%s: insert: %w", op, err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE flows SET updated_at = now() WHERE id = $1`, flowID); err != nil {
		return fmt.Errorf("%s: touch: %w", op, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

// PublishFlow включает публичный доступ и записывает slug и срок действия ссылки.
// При конфликте slug возвращает models.ErrSlugTaken.
func (s *Storage) PublishFlow(ctx context.Context, id, userID, slug string, expiresAt *time.Time) (int, error) {
	const op = "storage.PublishFlow"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE flows
		 SET is_public = true, public_slug = $3, share_expires_at = $4, updated_at = now()
		 WHERE id = $1 AND user_id = $2`, id, userID, slug, nullTime(expiresAt))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%s: %w", op, models.ErrSlugTaken)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(n), nil
}

// UnpublishFlow выключает публичный доступ. Slug остаётся за флоу.
func (s *Storage) UnpublishFlow(ctx context.Context, id, userID string) (int, error) {
	const op = "storage.UnpublishFlow"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE flows SET is_public = false, updated_at = now() WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(n), nil
}
