// Package billing сверяет тариф пользователя с состоянием подписки в Stripe.
//
// Все точки входа (вебхук, активация после Checkout, ручная синхронизация, отмена)
// пишут один и тот же набор полей профиля, поэтому повторная доставка событий безопасна.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/flow-builder/internal/models"
	"github.com/magabrotheeeer/flow-builder/internal/paymentprovider"
)

// Repository методы хранилища профилей.
type Repository interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	GetProfileByCustomerID(ctx context.Context, customerID string) (*models.Profile, error)
	EnsureProfile(ctx context.Context, userID, email string) (*models.Profile, error)
	SetCustomerID(ctx context.Context, userID, customerID string) error
	ApplyBillingState(ctx context.Context, userID string, st models.BillingState) (int, error)
	SetSubscriptionStatus(ctx context.Context, userID string, status models.SubscriptionStatus) (int, error)
}

// Provider платёжный провайдер.
type Provider interface {
	CreateCustomer(ctx context.Context, userID, email string) (string, error)
	CreateCheckoutSession(ctx context.Context, customerID, userID string) (*paymentprovider.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*paymentprovider.CheckoutSession, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*paymentprovider.Subscription, error)
	ListSubscriptions(ctx context.Context, customerID string) ([]*paymentprovider.Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*paymentprovider.Subscription, error)
	CreatePortalSession(ctx context.Context, customerID string) (string, error)
	ParseWebhook(payload []byte, signature string) (paymentprovider.Event, error)
}

// Notifier ставит письма в очередь уведомлений.
type Notifier interface {
	Notify(ctx context.Context, msg models.Notification) error
}

// EventClaimer помечает уже обработанные побочные эффекты событий.
type EventClaimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Metrics счётчики биллинга.
type Metrics interface {
	RecordWebhookEvent(eventType, outcome string)
	RecordNotification(kind, outcome string)
}

// Service синхронизатор биллинга.
type Service struct {
	repo     Repository
	provider Provider
	notifier Notifier
	claims   EventClaimer
	metrics  Metrics
	eventTTL time.Duration
	log      *slog.Logger
}

// New создаёт сервис. eventTTL: сколько помнить отправленные по событию письма.
func New(
	repo Repository,
	provider Provider,
	notifier Notifier,
	claims EventClaimer,
	metrics Metrics,
	eventTTL time.Duration,
	log *slog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		provider: provider,
		notifier: notifier,
		claims:   claims,
		metrics:  metrics,
		eventTTL: eventTTL,
		log:      log,
	}
}

// MapStatus переводит статус подписки Stripe в статус приложения.
// Подписка, отменённая на конец периода, считается отменённой уже сейчас.
func MapStatus(sub *paymentprovider.Subscription) models.SubscriptionStatus {
	if sub.CancelAtPeriodEnd {
		return models.StatusCanceled
	}
	switch models.SubscriptionStatus(sub.Status) {
	case models.StatusTrialing, models.StatusActive, models.StatusPastDue:
		return models.SubscriptionStatus(sub.Status)
	case models.StatusCanceled:
		return models.StatusCanceled
	default:
		return models.StatusActive
	}
}

func isLive(sub *paymentprovider.Subscription) bool {
	return sub.Status == string(models.StatusActive) || sub.Status == string(models.StatusTrialing)
}

func paidState(sub *paymentprovider.Subscription) models.BillingState {
	st := models.BillingState{
		Tier:           models.TierPaid,
		Status:         MapStatus(sub),
		SubscriptionID: &sub.ID,
	}
	if !sub.CurrentPeriodEnd.IsZero() {
		end := sub.CurrentPeriodEnd
		st.CurrentPeriodEnd = &end
	}
	return st
}

func freeState() models.BillingState {
	return models.BillingState{
		Tier:   models.TierFree,
		Status: models.StatusCanceled,
	}
}

// apply записывает состояние, если профиль с ним расходится.
func (s *Service) apply(ctx context.Context, p *models.Profile, st models.BillingState) (*models.Profile, error) {
	const op = "billing.apply"
	if p.Matches(st) {
		return p, nil
	}

	n, err := s.repo.ApplyBillingState(ctx, p.UserID, st)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	updated := *p
	updated.SubscriptionTier = st.Tier
	updated.SubscriptionStatus = st.Status
	updated.StripeSubscriptionID = st.SubscriptionID
	updated.CurrentPeriodEnd = st.CurrentPeriodEnd
	s.log.Info("billing state applied",
		slog.String("user_id", p.UserID),
		slog.String("tier", string(st.Tier)),
		slog.String("status", string(st.Status)))
	return &updated, nil
}

func (s *Service) linkCustomer(ctx context.Context, p *models.Profile, customerID string) error {
	if customerID == "" || (p.StripeCustomerID != nil && *p.StripeCustomerID == customerID) {
		return nil
	}
	if err := s.repo.SetCustomerID(ctx, p.UserID, customerID); err != nil {
		return err
	}
	p.StripeCustomerID = &customerID
	return nil
}

// Checkout открывает сессию Stripe Checkout и возвращает её URL.
// Покупатель Stripe создаётся один раз и запоминается в профиле.
func (s *Service) Checkout(ctx context.Context, userID, email string) (string, error) {
	const op = "billing.Checkout"

	p, err := s.repo.EnsureProfile(ctx, userID, email)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if p.SubscriptionTier == models.TierPaid &&
		(p.SubscriptionStatus == models.StatusActive || p.SubscriptionStatus == models.StatusTrialing) {
		return "", fmt.Errorf("%s: %w", op, models.Validationf("subscription is already active"))
	}

	var customerID string
	if p.StripeCustomerID != nil {
		customerID = *p.StripeCustomerID
	} else {
		customerID, err = s.provider.CreateCustomer(ctx, userID, p.Email)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, models.Upstream(err))
		}
		if err := s.linkCustomer(ctx, p, customerID); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
	}

	sess, err := s.provider.CreateCheckoutSession(ctx, customerID, userID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, models.Upstream(err))
	}
	return sess.URL, nil
}

// Portal возвращает ссылку на Stripe Billing Portal.
func (s *Service) Portal(ctx context.Context, userID string) (string, error) {
	const op = "billing.Portal"

	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if p == nil || p.StripeCustomerID == nil {
		return "", fmt.Errorf("%s: %w", op, models.Validationf("no billing account"))
	}

	url, err := s.provider.CreatePortalSession(ctx, *p.StripeCustomerID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, models.Upstream(err))
	}
	return url, nil
}

// Activate применяет результат Checkout, не дожидаясь вебхука.
// Сессия должна принадлежать вызывающему.
func (s *Service) Activate(ctx context.Context, sessionID, userID string) (*models.Profile, error) {
	const op = "billing.Activate"

	sess, err := s.provider.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, models.Upstream(err))
	}
	if sess.ClientReferenceID != userID {
		return nil, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	if sess.Subscription == nil {
		return nil, fmt.Errorf("%s: %w", op, models.Validationf("checkout session has no subscription"))
	}

	p, err := s.repo.EnsureProfile(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.linkCustomer(ctx, p, sess.CustomerID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p, err = s.apply(ctx, p, paidState(sess.Subscription))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// Sync сверяет профиль с подписками покупателя в Stripe.
// Берётся самая свежая активная или пробная подписка. Если таких нет,
// профиль понижается до бесплатного только когда локально он платный.
func (s *Service) Sync(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "billing.Sync"

	p, err := s.repo.EnsureProfile(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var live *paymentprovider.Subscription
	if p.StripeCustomerID != nil {
		subs, err := s.provider.ListSubscriptions(ctx, *p.StripeCustomerID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, models.Upstream(err))
		}
		for _, sub := range subs {
			if !isLive(sub) {
				continue
			}
			if live == nil || sub.Created.After(live.Created) {
				live = sub
			}
		}
	}

	switch {
	case live != nil:
		p, err = s.apply(ctx, p, paidState(live))
	case p.SubscriptionTier == models.TierPaid:
		p, err = s.apply(ctx, p, freeState())
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// Cancel немедленно отменяет подписку в Stripe и сразу понижает тариф локально.
func (s *Service) Cancel(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "billing.Cancel"

	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p == nil || p.StripeSubscriptionID == nil {
		return nil, fmt.Errorf("%s: %w", op, models.Validationf("no active subscription"))
	}

	if _, err := s.provider.CancelSubscription(ctx, *p.StripeSubscriptionID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, models.Upstream(err))
	}

	p, err = s.apply(ctx, p, freeState())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// Profile возвращает профиль пользователя, создавая его при первом обращении.
func (s *Service) Profile(ctx context.Context, userID, email string) (*models.Profile, error) {
	const op = "billing.Profile"
	p, err := s.repo.EnsureProfile(ctx, userID, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}
