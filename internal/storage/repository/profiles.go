package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/flow-builder/internal/models"
)

const profileColumns = `user_id, email, subscription_tier, subscription_status, stripe_customer_id,
	stripe_subscription_id, current_period_end, updated_at`

func scanProfile(row rowScanner) (*models.Profile, error) {
	var (
		p              models.Profile
		customerID     sql.NullString
		subscriptionID sql.NullString
		periodEnd      sql.NullTime
	)
	if err := row.Scan(&p.UserID, &p.Email, &p.SubscriptionTier, &p.SubscriptionStatus,
		&customerID, &subscriptionID, &periodEnd, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.StripeCustomerID = stringPtr(customerID)
	p.StripeSubscriptionID = stringPtr(subscriptionID)
	p.CurrentPeriodEnd = timePtr(periodEnd)
	return &p, nil
}

// GetProfile возвращает профиль пользователя или models.ErrNotFound.
func (s *Storage) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "storage.GetProfile"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// GetProfileByCustomerID находит профиль по ID покупателя Stripe.
func (s *Storage) GetProfileByCustomerID(ctx context.Context, customerID string) (*models.Profile, error) {
	const op = "storage.GetProfileByCustomerID"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE stripe_customer_id = $1`, customerID)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// EnsureProfile создаёт профиль на бесплатном тарифе, если его нет, и возвращает актуальную запись.
// Непустой email перезаписывает сохранённый.
func (s *Storage) EnsureProfile(ctx context.Context, userID, email string) (*models.Profile, error) {
	const op = "storage.EnsureProfile"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx,
		`INSERT INTO profiles (user_id, email)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE
		 SET email = COALESCE(NULLIF(EXCLUDED.email, ''), profiles.email)
		 RETURNING `+profileColumns, userID, email)
	p, err := scanProfile(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// SetCustomerID привязывает покупателя Stripe к профилю.
func (s *Storage) SetCustomerID(ctx context.Context, userID, customerID string) error {
	const op = "storage.SetCustomerID"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE profiles SET stripe_customer_id = $2, updated_at = now() WHERE user_id = $1`, userID, customerID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// ApplyBillingState записывает тариф, статус, подписку и конец периода одним UPDATE.
func (s *Storage) ApplyBillingState(ctx context.Context, userID string, st models.BillingState) (int, error) {
	const op = "storage.ApplyBillingState"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE profiles
		 SET subscription_tier = $2, subscription_status = $3, stripe_subscription_id = $4,
		     current_period_end = $5, updated_at = now()
		 WHERE user_id = $1`,
		userID, string(st.Tier), string(st.Status), nullString(st.SubscriptionID), nullTime(st.CurrentPeriodEnd))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(n), nil
}

// SetSubscriptionStatus меняет только статус подписки, тариф не трогает.
func (s *Storage) SetSubscriptionStatus(ctx context.Context, userID string, status models.SubscriptionStatus) (int, error) {
	const op = "storage.SetSubscriptionStatus"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE profiles SET subscription_status = $2, updated_at = now() WHERE user_id = $1`,
		userID, string(status))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(n), nil
}

// GetSubscriptionTier возвращает тариф пользователя. Отсутствие профиля означает бесплатный тариф.
func (s *Storage) GetSubscriptionTier(ctx context.Context, userID string) (models.SubscriptionTier, error) {
	const op = "storage.GetSubscriptionTier"
	if err := checkCtx(ctx, op); err != nil {
		return "", err
	}

	var tier string
	err := s.DB.QueryRowContext(ctx,
		`SELECT subscription_tier FROM profiles WHERE user_id = $1`, userID).Scan(&tier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.TierFree, nil
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return models.SubscriptionTier(tier), nil
}
