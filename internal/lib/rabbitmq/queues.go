package rabbitmq

// Exchange direct-обменник уведомлений.
const Exchange = "notifications"

// Очередь писем о биллинге.
const (
	BillingQueue      = "notification.billing"
	BillingRoutingKey = "billing"
)

type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: BillingQueue, RoutingKey: BillingRoutingKey},
	}
}
