package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/flow-builder/internal/models"
)

const poseColumns = `id, slug, name, sanskrit_name, difficulty, pose_type, primary_focus,
	secondary_focus, description, benefits, steps, cautions, image_url, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPose(row rowScanner) (*models.Pose, error) {
	var (
		p                                    models.Pose
		secondary, benefits, steps, cautions []byte
		sanskrit, description, imageURL      sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Slug, &p.Name, &sanskrit, &p.Difficulty, &p.PoseType, &p.PrimaryFocus,
		&secondary, &description, &benefits, &steps, &cautions, &imageURL, &p.Status,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.SanskritName = sanskrit.String
	p.Description = description.String
	p.ImageURL = imageURL.String

	for _, f := range []struct {
		raw []byte
		dst *[]string
	}{
		{secondary, &p.SecondaryFocus},
		{benefits, &p.Benefits},
		{steps, &p.Steps},
		{cautions, &p.Cautions},
	} {
		*f.dst = []string{}
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return nil, fmt.Errorf("decode list column: %w", err)
		}
	}
	return &p, nil
}

func encodeList(s []string) (string, error) {
	if s == nil {
		s = []string{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func encodePoseLists(p models.Pose) ([]any, error) {
	out := make([]any, 0, 4)
	for _, l := range [][]string{p.SecondaryFocus, p.Benefits, p.Steps, p.Cautions} {
		enc, err := encodeList(l)
		if err != nil {
			return nil, err
		}
		out = append(out, enc)
	}
	return out, nil
}

// CreatePose добавляет позу в каталог и возвращает её ID.
func (s *Storage) CreatePose(ctx context.Context, p models.Pose) (string, error) {
	const op = "storage.CreatePose"
	if err := checkCtx(ctx, op); err != nil {
		return "", err
	}

	lists, err := encodePoseLists(p)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	id := uuid.New().String()
	query := `INSERT INTO poses (id, slug, name, sanskrit_name, difficulty, pose_type, primary_focus,
			      secondary_focus, description, benefits, steps, cautions, image_url, status)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10::jsonb, $11::jsonb, $12::jsonb, $13, $14)`
	_, err = s.DB.ExecContext(ctx, query,
		id, p.Slug, p.Name, p.SanskritName, p.Difficulty, p.PoseType, p.PrimaryFocus,
		lists[0], p.Description, lists[1], lists[2], lists[3], p.ImageURL, p.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%s: %w", op, models.Validationf("slug %q already exists", p.Slug))
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// UpdatePose перезаписывает позу целиком и возвращает количество изменённых строк.
func (s *Storage) UpdatePose(ctx context.Context, id string, p models.Pose) (int, error) {
	const op = "storage.UpdatePose"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	lists, err := encodePoseLists(p)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE poses
			  SET slug = $2, name = $3, sanskrit_name = $4, difficulty = $5, pose_type = $6,
			      primary_focus = $7, secondary_focus = $8::jsonb, description = $9,
			      benefits = $10::jsonb, steps = $11::jsonb, cautions = $12::jsonb,
			      image_url = $13, status = $14, updated_at = now()
			  WHERE id = $1`
	res, err := s.DB.ExecContext(ctx, query,
		id, p.Slug, p.Name, p.SanskritName, p.Difficulty, p.PoseType, p.PrimaryFocus,
		lists[0], p.Description, lists[1], lists[2], lists[3], p.ImageURL, p.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%s: %w", op, models.Validationf("slug %q already exists", p.Slug))
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(n), nil
}

// GetPose возвращает позу по ID в любом статусе.
func (s *Storage) GetPose(ctx context.Context, id string) (*models.Pose, error) {
	const op = "storage.GetPose"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+poseColumns+` FROM poses WHERE id = $1`, id)
	p, err := scanPose(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// GetPublishedPoseBySlug возвращает опубликованную позу по slug.
func (s *Storage) GetPublishedPoseBySlug(ctx context.Context, slug string) (*models.Pose, error) {
	const op = "storage.GetPublishedPoseBySlug"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx,
		`SELECT `+poseColumns+` FROM poses WHERE slug = $1 AND status = 'published'`, slug)
	p, err := scanPose(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ListPublishedPoses возвращает опубликованные позы с пагинацией, по имени.
func (s *Storage) ListPublishedPoses(ctx context.Context, limit, offset int) ([]*models.Pose, error) {
	const op = "storage.ListPublishedPoses"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+poseColumns+` FROM poses
		 WHERE status = 'published'
		 ORDER BY name
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Pose, 0)
	for rows.Next() {
		p, err := scanPose(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetPublishedPosesByIDs одним запросом достаёт опубликованные позы по набору ID.
// Снятые с публикации и удалённые позы в результат не попадают.
func (s *Storage) GetPublishedPosesByIDs(ctx context.Context, ids []string) ([]*models.Pose, error) {
	const op = "storage.GetPublishedPosesByIDs"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*models.Pose{}, nil
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+poseColumns+` FROM poses
		 WHERE id = ANY($1::text[]::uuid[]) AND status = 'published'`, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Pose, 0, len(ids))
	for rows.Next() {
		p, err := scanPose(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
