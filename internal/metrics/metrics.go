// Package metrics собирает Prometheus-метрики HTTP-слоя и доменных событий.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector реализация метрик сервиса.
type Collector struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	limitRejections *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	publicReads     *prometheus.CounterVec
	notifications   *prometheus.CounterVec
}

// NewCollector создаёт метрики и регистрирует их в reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowbuilder_http_requests_total",
			Help: "HTTP-запросы по маршруту и коду ответа",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowbuilder_http_request_duration_seconds",
			Help:    "Длительность обработки HTTP-запроса",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		limitRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowbuilder_limit_rejections_total",
			Help: "Отказы по лимитам тарифа",
		}, []string{"resource"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowbuilder_webhook_events_total",
			Help: "Вебхуки Stripe по типу и результату",
		}, []string{"type", "outcome"}),
		publicReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowbuilder_public_reads_total",
			Help: "Чтения флоу по публичной ссылке",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowbuilder_notifications_total",
			Help: "Уведомления о биллинге",
		}, []string{"kind", "outcome"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.limitRejections,
		c.webhookEvents,
		c.publicReads,
		c.notifications,
	)
	return c
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordLimitRejection resource: flows или poses_per_flow.
func (c *Collector) RecordLimitRejection(resource string) {
	c.limitRejections.WithLabelValues(resource).Inc()
}

func (c *Collector) RecordWebhookEvent(eventType, outcome string) {
	c.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// RecordPublicRead outcome: ok, not_found, expired.
func (c *Collector) RecordPublicRead(outcome string) {
	c.publicReads.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordNotification(kind, outcome string) {
	c.notifications.WithLabelValues(kind, outcome).Inc()
}

// Handler отдаёт метрики для скрейпа Prometheus.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
