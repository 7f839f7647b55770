package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/flow-builder/internal/lib/sl"
	"github.com/magabrotheeeer/flow-builder/internal/models"
	"github.com/magabrotheeeer/flow-builder/internal/paymentprovider"
)

// Исходы обработки вебхука для метрик.
const (
	outcomeProcessed = "processed"
	outcomeIgnored   = "ignored"
	outcomeFailed    = "failed"
	outcomeRejected  = "rejected"
	outcomeMalformed = "malformed"
)

// HandleWebhook проверяет подпись и обрабатывает событие Stripe.
// Событие с неверной подписью не обрабатывается вовсе. Подписанное, но нечитаемое
// событие подтверждается без обработки.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	const op = "billing.HandleWebhook"

	evt, err := s.provider.ParseWebhook(payload, signature)
	if errors.Is(err, models.ErrSignatureInvalid) {
		s.metrics.RecordWebhookEvent("unverified", outcomeRejected)
		return fmt.Errorf("%s: %w", op, err)
	}
	if err != nil {
		// Подпись верна, но тело не разобрать: повтор доставки ничего не изменит.
		s.metrics.RecordWebhookEvent("verified", outcomeMalformed)
		s.log.Warn("undecodable webhook event acknowledged", sl.Err(err))
		return nil
	}

	if err := s.HandleEvent(ctx, evt); err != nil {
		s.metrics.RecordWebhookEvent(evt.EventType(), outcomeFailed)
		s.log.Error("webhook event failed", append(logAttrs(evt), sl.Err(err))...)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// HandleEvent применяет уже проверенное событие.
func (s *Service) HandleEvent(ctx context.Context, evt paymentprovider.Event) error {
	var (
		handled bool
		err     error
	)
	switch e := evt.(type) {
	case paymentprovider.CheckoutCompleted:
		handled, err = s.onCheckoutCompleted(ctx, e)
	case paymentprovider.SubscriptionUpdated:
		handled, err = s.onSubscriptionUpdated(ctx, e)
	case paymentprovider.SubscriptionDeleted:
		handled, err = s.onSubscriptionDeleted(ctx, e)
	case paymentprovider.InvoicePaymentFailed:
		handled, err = s.onInvoicePaymentFailed(ctx, e)
	case paymentprovider.InvoicePaid:
		handled, err = s.onInvoicePaid(ctx, e)
	default:
		s.log.Debug("webhook event ignored", logAttrs(evt)...)
	}
	if err != nil {
		return err
	}

	outcome := outcomeIgnored
	if handled {
		outcome = outcomeProcessed
	}
	s.metrics.RecordWebhookEvent(evt.EventType(), outcome)
	return nil
}

func logAttrs(evt paymentprovider.Event) []any {
	return []any{slog.String("event_id", evt.EventID()), slog.String("event_type", evt.EventType())}
}

// profileForCustomer находит профиль по покупателю Stripe. Чужой покупатель не ошибка:
// событие относится к аккаунту, которого у нас нет.
func (s *Service) profileForCustomer(ctx context.Context, evt paymentprovider.Event, customerID string) (*models.Profile, error) {
	if customerID == "" {
		s.log.Warn("webhook event without customer", logAttrs(evt)...)
		return nil, nil
	}
	p, err := s.repo.GetProfileByCustomerID(ctx, customerID)
	if errors.Is(err, models.ErrNotFound) {
		s.log.Warn("webhook event for unknown customer",
			append(logAttrs(evt), slog.String("customer_id", customerID))...)
		return nil, nil
	}
	return p, err
}

// stale сообщает, что событие касается не той подписки, что записана в профиле.
func stale(p *models.Profile, subscriptionID string) bool {
	return p.StripeSubscriptionID != nil && subscriptionID != "" && *p.StripeSubscriptionID != subscriptionID
}

// detached сообщает, что счёт пришёл по подписке, которой у профиля больше нет.
func detached(p *models.Profile, subscriptionID string) bool {
	return p.StripeSubscriptionID == nil || stale(p, subscriptionID)
}

func (s *Service) onCheckoutCompleted(ctx context.Context, e paymentprovider.CheckoutCompleted) (bool, error) {
	const op = "billing.onCheckoutCompleted"

	var (
		p   *models.Profile
		err error
	)
	if e.ClientReferenceID != "" {
		p, err = s.repo.EnsureProfile(ctx, e.ClientReferenceID, "")
	} else {
		p, err = s.profileForCustomer(ctx, e, e.CustomerID)
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if p == nil {
		return false, nil
	}
	if err := s.linkCustomer(ctx, p, e.CustomerID); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if e.SubscriptionID == "" {
		s.log.Warn("checkout completed without subscription", logAttrs(e)...)
		return false, nil
	}

	sub, err := s.provider.GetSubscription(ctx, e.SubscriptionID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, models.Upstream(err))
	}
	p, err = s.apply(ctx, p, paidState(sub))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.notify(ctx, e, models.NotificationWelcome, p); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

func (s *Service) onSubscriptionUpdated(ctx context.Context, e paymentprovider.SubscriptionUpdated) (bool, error) {
	const op = "billing.onSubscriptionUpdated"

	p, err := s.profileForCustomer(ctx, e, e.Subscription.CustomerID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if p == nil {
		return false, nil
	}
	if p.StripeSubscriptionID == nil && e.Subscription.Status == string(models.StatusCanceled) {
		return false, nil
	}
	if stale(p, e.Subscription.ID) {
		s.log.Info("update for replaced subscription skipped",
			append(logAttrs(e), slog.String("subscription_id", e.Subscription.ID))...)
		return false, nil
	}

	if _, err := s.apply(ctx, p, paidState(&e.Subscription)); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

func (s *Service) onSubscriptionDeleted(ctx context.Context, e paymentprovider.SubscriptionDeleted) (bool, error) {
	const op = "billing.onSubscriptionDeleted"

	p, err := s.profileForCustomer(ctx, e, e.Subscription.CustomerID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if p == nil {
		return false, nil
	}
	if stale(p, e.Subscription.ID) {
		s.log.Info("deletion of replaced subscription skipped",
			append(logAttrs(e), slog.String("subscription_id", e.Subscription.ID))...)
		return false, nil
	}

	p, err = s.apply(ctx, p, freeState())
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.notify(ctx, e, models.NotificationCancellation, p); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

func (s *Service) onInvoicePaymentFailed(ctx context.Context, e paymentprovider.InvoicePaymentFailed) (bool, error) {
	const op = "billing.onInvoicePaymentFailed"

	p, err := s.profileForCustomer(ctx, e, e.CustomerID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if p == nil || detached(p, e.SubscriptionID) {
		return false, nil
	}

	if p.SubscriptionStatus != models.StatusPastDue {
		if _, err := s.repo.SetSubscriptionStatus(ctx, p.UserID, models.StatusPastDue); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		p.SubscriptionStatus = models.StatusPastDue
	}
	if err := s.notify(ctx, e, models.NotificationPaymentFailed, p); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

func (s *Service) onInvoicePaid(ctx context.Context, e paymentprovider.InvoicePaid) (bool, error) {
	const op = "billing.onInvoicePaid"

	p, err := s.profileForCustomer(ctx, e, e.CustomerID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if p == nil || detached(p, e.SubscriptionID) || p.SubscriptionStatus != models.StatusPastDue {
		return false, nil
	}

	if _, err := s.repo.SetSubscriptionStatus(ctx, p.UserID, models.StatusActive); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// notify ставит письмо в очередь не более одного раза на событие.
// Если очередь недоступна, метка снимается, и повтор вебхука отправит письмо снова.
func (s *Service) notify(ctx context.Context, evt paymentprovider.Event, kind models.NotificationKind, p *models.Profile) error {
	const op = "billing.notify"

	if p.Email == "" {
		s.log.Warn("no email for notification", append(logAttrs(evt), slog.String("user_id", p.UserID))...)
		s.metrics.RecordNotification(string(kind), "skipped")
		return nil
	}

	key := "billing:event:" + evt.EventID() + ":" + string(kind)
	claimed, err := s.claims.Claim(ctx, key, s.eventTTL)
	if err != nil {
		s.log.Warn("notification claim failed, sending anyway", append(logAttrs(evt), sl.Err(err))...)
		claimed = true
	}
	if !claimed {
		s.metrics.RecordNotification(string(kind), "duplicate")
		return nil
	}

	msg := models.Notification{
		Kind:    kind,
		UserID:  p.UserID,
		Email:   p.Email,
		EventID: evt.EventID(),
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		if relErr := s.claims.Release(ctx, key); relErr != nil {
			s.log.Warn("failed to release notification claim", sl.Err(relErr))
		}
		s.metrics.RecordNotification(string(kind), "failed")
		return fmt.Errorf("%s: %w", op, models.Upstream(err))
	}
	s.metrics.RecordNotification(string(kind), "queued")
	return nil
}
