package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/flow-builder/internal/models"
)

// PublishMessage публикует сообщение в RabbitMQ.
func PublishMessage(ch *amqp.Channel, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Notifier публикует уведомления о биллинге в очередь notification.billing.
// Канал amqp используется из разных запросов, поэтому публикация под мьютексом.
type Notifier struct {
	mu sync.Mutex
	ch *amqp.Channel
}

func NewNotifier(ch *amqp.Channel) *Notifier {
	return &Notifier{ch: ch}
}

// Notify ставит письмо в очередь.
func (n *Notifier) Notify(ctx context.Context, msg models.Notification) error {
	const op = "rabbitmq.Notify"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if err := PublishMessage(n.ch, Exchange, BillingRoutingKey, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
