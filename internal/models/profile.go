package models

import "time"

// SubscriptionTier тарифный уровень пользователя.
type SubscriptionTier string

const (
	TierFree SubscriptionTier = "free"
	TierPaid SubscriptionTier = "paid"
)

// SubscriptionStatus статус подписки, как его видит приложение.
type SubscriptionStatus string

const (
	StatusActive   SubscriptionStatus = "active"
	StatusTrialing SubscriptionStatus = "trialing"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusCanceled SubscriptionStatus = "canceled"
)

// Profile один на пользователя, хранит тариф и идентификаторы Stripe.
// Меняется только синхронизатором биллинга.
type Profile struct {
	UserID               string             `json:"user_id"`
	Email                string             `json:"email"`
	SubscriptionTier     SubscriptionTier   `json:"subscription_tier"`
	SubscriptionStatus   SubscriptionStatus `json:"subscription_status"`
	StripeCustomerID     *string            `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string            `json:"stripe_subscription_id,omitempty"`
	CurrentPeriodEnd     *time.Time         `json:"current_period_end,omitempty"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// BillingState набор полей профиля, которые пишут все точки входа биллинга.
// Запись целиком делает применение идемпотентным.
type BillingState struct {
	Tier             SubscriptionTier
	Status           SubscriptionStatus
	SubscriptionID   *string
	CurrentPeriodEnd *time.Time
}

// Matches сообщает, совпадает ли профиль с состоянием, чтобы не делать лишний UPDATE.
func (p *Profile) Matches(s BillingState) bool {
	if p.SubscriptionTier != s.Tier || p.SubscriptionStatus != s.Status {
		return false
	}
	if !equalStringPtr(p.StripeSubscriptionID, s.SubscriptionID) {
		return false
	}
	switch {
	case p.CurrentPeriodEnd == nil && s.CurrentPeriodEnd == nil:
		return true
	case p.CurrentPeriodEnd == nil || s.CurrentPeriodEnd == nil:
		return false
	default:
		return p.CurrentPeriodEnd.Equal(*s.CurrentPeriodEnd)
	}
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// NotificationKind тип письма, которое отправляет notification-sender.
type NotificationKind string

const (
	NotificationWelcome       NotificationKind = "welcome"
	NotificationCancellation  NotificationKind = "cancellation"
	NotificationPaymentFailed NotificationKind = "payment_failed"
)

// Notification сообщение в очереди уведомлений.
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	UserID  string           `json:"user_id"`
	Email   string           `json:"email"`
	EventID string           `json:"event_id,omitempty"`
}
