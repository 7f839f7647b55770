// Package paymentprovider адаптер к Stripe: покупатели, Checkout, подписки и разбор вебхуков.
package paymentprovider

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/magabrotheeeer/flow-builder/internal/config"
)

// Subscription снимок подписки Stripe в том виде, который нужен биллингу.
type Subscription struct {
	ID                string
	CustomerID        string
	Status            string
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  time.Time
	Created           time.Time
}

// CheckoutSession сессия оплаты Stripe Checkout.
type CheckoutSession struct {
	ID                string
	URL               string
	CustomerID        string
	ClientReferenceID string
	Subscription      *Subscription
}

type Client struct {
	api           *client.API
	priceID       string
	webhookSecret string
	baseURL       string
}

// NewClient создаёт клиент Stripe. backends == nil означает боевые адреса Stripe.
func NewClient(cfg config.Stripe, baseURL string, backends *stripe.Backends) *Client {
	return &Client{
		api:           client.New(cfg.SecretKey, backends),
		priceID:       cfg.PriceID,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       baseURL,
	}
}

func toSubscription(s *stripe.Subscription) *Subscription {
	if s == nil {
		return nil
	}
	out := &Subscription{
		ID:                s.ID,
		Status:            string(s.Status),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.CurrentPeriodEnd > 0 {
		out.CurrentPeriodEnd = time.Unix(s.CurrentPeriodEnd, 0).UTC()
	}
	if s.Created > 0 {
		out.Created = time.Unix(s.Created, 0).UTC()
	}
	return out
}

func toCheckoutSession(s *stripe.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:                s.ID,
		URL:               s.URL,
		ClientReferenceID: s.ClientReferenceID,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Subscription != nil {
		out.Subscription = toSubscription(s.Subscription)
		if out.Subscription.CustomerID == "" {
			out.Subscription.CustomerID = out.CustomerID
		}
	}
	return out
}

// CreateCustomer заводит покупателя Stripe, привязанного к пользователю через metadata.
func (c *Client) CreateCustomer(ctx context.Context, userID, email string) (string, error) {
	const op = "paymentprovider.CreateCustomer"

	params := &stripe.CustomerParams{
		Params:   stripe.Params{Context: ctx},
		Metadata: map[string]string{"user_id": userID},
	}
	if email != "" {
		params.Email = stripe.String(email)
	}
	cust, err := c.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return cust.ID, nil
}

// CreateCheckoutSession начинает оформление подписки. ClientReferenceID хранит ID пользователя,
// по нему активация проверяет владельца сессии.
func (c *Client) CreateCheckoutSession(ctx context.Context, customerID, userID string) (*CheckoutSession, error) {
	const op = "paymentprovider.CreateCheckoutSession"

	params := &stripe.CheckoutSessionParams{
		Params:            stripe.Params{Context: ctx},
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(customerID),
		ClientReferenceID: stripe.String(userID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(c.priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(c.baseURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(c.baseURL + "/billing/cancel"),
	}
	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return toCheckoutSession(sess), nil
}

// GetCheckoutSession возвращает сессию вместе с развёрнутой подпиской.
func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	const op = "paymentprovider.GetCheckoutSession"

	params := &stripe.CheckoutSessionParams{Params: stripe.Params{Context: ctx}}
	params.AddExpand("subscription")
	sess, err := c.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return toCheckoutSession(sess), nil
}

func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	const op = "paymentprovider.GetSubscription"

	sub, err := c.api.Subscriptions.Get(subscriptionID, &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return toSubscription(sub), nil
}

// ListSubscriptions возвращает все подписки покупателя в любом статусе.
func (c *Client) ListSubscriptions(ctx context.Context, customerID string) ([]*Subscription, error) {
	const op = "paymentprovider.ListSubscriptions"

	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Context = ctx

	result := make([]*Subscription, 0)
	it := c.api.Subscriptions.List(params)
	for it.Next() {
		result = append(result, toSubscription(it.Subscription()))
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CancelSubscription отменяет подписку немедленно.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	const op = "paymentprovider.CancelSubscription"

	sub, err := c.api.Subscriptions.Cancel(subscriptionID, &stripe.SubscriptionCancelParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return toSubscription(sub), nil
}

// CreatePortalSession открывает Customer Portal для управления оплатой.
func (c *Client) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	const op = "paymentprovider.CreatePortalSession"

	sess, err := c.api.BillingPortalSessions.New(&stripe.BillingPortalSessionParams{
		Params:    stripe.Params{Context: ctx},
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(c.baseURL + "/settings/billing"),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return sess.URL, nil
}
