package paymentprovider

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/magabrotheeeer/flow-builder/internal/models"
)

// Типы событий Stripe, которые обрабатывает биллинг.
const (
	EventCheckoutCompleted    = "checkout.session.completed"
	EventSubscriptionUpdated  = "customer.subscription.updated"
	EventSubscriptionDeleted  = "customer.subscription.deleted"
	EventInvoicePaymentFailed = "invoice.payment_failed"
	EventInvoicePaid          = "invoice.paid"
)

// Event закрытый набор разобранных событий вебхука.
type Event interface {
	EventID() string
	EventType() string
	isEvent()
}

// Meta общие поля событий.
type Meta struct {
	ID   string
	Type string
}

func (m Meta) EventID() string   { return m.ID }
func (m Meta) EventType() string { return m.Type }
func (Meta) isEvent()            {}

type CheckoutCompleted struct {
	Meta
	SessionID         string
	CustomerID        string
	ClientReferenceID string
	SubscriptionID    string
}

type SubscriptionUpdated struct {
	Meta
	Subscription Subscription
}

type SubscriptionDeleted struct {
	Meta
	Subscription Subscription
}

type InvoicePaymentFailed struct {
	Meta
	CustomerID     string
	SubscriptionID string
}

type InvoicePaid struct {
	Meta
	CustomerID     string
	SubscriptionID string
}

// UnknownEvent событие, которое приложению не интересно.
type UnknownEvent struct {
	Meta
}

// ParseWebhook проверяет подпись и разбирает тело вебхука.
// Ошибка подписи оборачивает models.ErrSignatureInvalid.
func (c *Client) ParseWebhook(payload []byte, signature string) (Event, error) {
	const op = "paymentprovider.ParseWebhook"

	evt, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrSignatureInvalid, err)
	}
	parsed, err := DecodeEvent(evt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return parsed, nil
}

// DecodeEvent переводит проверенное событие Stripe в типизированное.
func DecodeEvent(evt stripe.Event) (Event, error) {
	meta := Meta{ID: evt.ID, Type: string(evt.Type)}
	if evt.Data == nil {
		return UnknownEvent{Meta: meta}, nil
	}
	raw := evt.Data.Raw

	switch meta.Type {
	case EventCheckoutCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(raw, &sess); err != nil {
			return nil, models.Validationf("checkout session payload: %v", err)
		}
		out := CheckoutCompleted{
			Meta:              meta,
			SessionID:         sess.ID,
			ClientReferenceID: sess.ClientReferenceID,
		}
		if sess.Customer != nil {
			out.CustomerID = sess.Customer.ID
		}
		if sess.Subscription != nil {
			out.SubscriptionID = sess.Subscription.ID
		}
		return out, nil

	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(raw, &sub); err != nil {
			return nil, models.Validationf("subscription payload: %v", err)
		}
		snapshot := *toSubscription(&sub)
		if meta.Type == EventSubscriptionDeleted {
			return SubscriptionDeleted{Meta: meta, Subscription: snapshot}, nil
		}
		return SubscriptionUpdated{Meta: meta, Subscription: snapshot}, nil

	case EventInvoicePaymentFailed, EventInvoicePaid:
		var inv stripe.Invoice
		if err := json.Unmarshal(raw, &inv); err != nil {
			return nil, models.Validationf("invoice payload: %v", err)
		}
		var customerID, subscriptionID string
		if inv.Customer != nil {
			customerID = inv.Customer.ID
		}
		if inv.Subscription != nil {
			subscriptionID = inv.Subscription.ID
		}
		if meta.Type == EventInvoicePaid {
			return InvoicePaid{Meta: meta, CustomerID: customerID, SubscriptionID: subscriptionID}, nil
		}
		return InvoicePaymentFailed{Meta: meta, CustomerID: customerID, SubscriptionID: subscriptionID}, nil
	}

	return UnknownEvent{Meta: meta}, nil
}
