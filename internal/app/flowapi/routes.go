// Package flowapi собирает HTTP API конструктора флоу: хранилище, кеш, сервисы и маршруты.
package flowapi

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/flow-builder/internal/http/handlers/billing/activate"
	"github.com/magabrotheeeer/flow-builder/internal/http/handlers/billing/cancel"
	"github.com/magabrotheeeer/flow-builder/internal/http/handlers/billing/checkout"
	"github.com/magabrotheeeer/flow-builder/internal/http/handlers/billing/portal"
	billingstatus "github.com/magabrotheeeer/flow-builder/internal/http/handlers/billing/status"
	billingsync "github.com/magabrotheeeer/flow-builder/internal/http/handlers/billing/sync"
	"github.com/magabrotheeeer/flow-builder/internal/http/handlers/billing/webhook"
	flowcreate "github.com/magabrotheeeer/flow-builder/internal/http/handlers/flow/create"
	flowlist "github.com/magabrotheeeer/flow-builder/internal/http/handlers/flow/list"
	flowread "github.com/magabrotheeeer/flow-builder/internal/http/handlers/flow/read"
	flowremove "github.com/magabrotheeeer/flow-builder/internal/http/handlers/flow/remove"
	flowupdate "github.com/magabrotheeeer/flow-builder/internal/http/handlers/flow/update"
	"github.com/magabrotheeeer/flow-builder/internal/http/handlers/health"
	poselist "github.com/magabrotheeeer/flow-builder/internal/http/handlers/pose/list"
	poseread "github.com/magabrotheeeer/flow-builder/internal/http/handlers/pose/read"
	"github.com/magabrotheeeer/flow-builder/internal/http/handlers/pose/upsert"
	"github.com/magabrotheeeer/flow-builder/internal/http/handlers/share/public"
	"github.com/magabrotheeeer/flow-builder/internal/http/handlers/share/share"
	sharestatus "github.com/magabrotheeeer/flow-builder/internal/http/handlers/share/status"
	"github.com/magabrotheeeer/flow-builder/internal/http/handlers/share/unshare"
	"github.com/magabrotheeeer/flow-builder/internal/http/middlewarectx"
	"github.com/magabrotheeeer/flow-builder/internal/lib/jwt"
	"github.com/magabrotheeeer/flow-builder/internal/metrics"
	billingservice "github.com/magabrotheeeer/flow-builder/internal/services/billing"
	catalogservice "github.com/magabrotheeeer/flow-builder/internal/services/catalog"
	flowservice "github.com/magabrotheeeer/flow-builder/internal/services/flow"
	shareservice "github.com/magabrotheeeer/flow-builder/internal/services/share"
)

// Deps зависимости, из которых строятся маршруты.
type Deps struct {
	Log             *slog.Logger
	Tokens          middlewarectx.TokenParser
	Flows           *flowservice.Service
	Shares          *shareservice.Service
	Catalog         *catalogservice.Service
	Billing         *billingservice.Service
	Metrics         *metrics.Collector
	Gatherer        prometheus.Gatherer
	PublicLimiter   *middlewarectx.ClientRateLimiter
	Health          map[string]health.Pinger
	MaxWebhookBytes int64
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, d Deps) {
	logger := d.Log

	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middlewarectx.MetricsMiddleware(d.Metrics),
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Get("/poses", poselist.New(logger, d.Catalog).ServeHTTP)
		r.Get("/poses/{slug}", poseread.New(logger, d.Catalog).ServeHTTP)

		// Подпись проверяется внутри обработчика
		r.Post("/webhooks/stripe", webhook.New(logger, d.Billing, d.MaxWebhookBytes).ServeHTTP)

		// Публичные ссылки ограничены по частоте на клиента
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(d.PublicLimiter, logger))
			r.Get("/flows/public/{slug}", public.New(logger, d.Shares).ServeHTTP)
		})

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(d.Tokens, logger))

			r.Get("/flows", flowlist.New(logger, d.Flows).ServeHTTP)
			r.Post("/flows", flowcreate.New(logger, d.Flows).ServeHTTP)
			r.Get("/flows/{id}", flowread.New(logger, d.Flows).ServeHTTP)
			r.Put("/flows/{id}", flowupdate.New(logger, d.Flows).ServeHTTP)
			r.Delete("/flows/{id}", flowremove.New(logger, d.Flows).ServeHTTP)

			r.Get("/flows/{id}/share", sharestatus.New(logger, d.Shares).ServeHTTP)
			r.Post("/flows/{id}/share", share.New(logger, d.Shares).ServeHTTP)
			r.Delete("/flows/{id}/share", unshare.New(logger, d.Shares).ServeHTTP)

			r.Post("/checkout", checkout.New(logger, d.Billing).ServeHTTP)
			r.Post("/billing/portal", portal.New(logger, d.Billing).ServeHTTP)
			r.Get("/subscription", billingstatus.New(logger, d.Billing).ServeHTTP)
			r.Post("/subscription/activate", activate.New(logger, d.Billing).ServeHTTP)
			r.Post("/subscription/sync", billingsync.New(logger, d.Billing).ServeHTTP)
			r.Post("/subscription/cancel", cancel.New(logger, d.Billing).ServeHTTP)

			// Каталог редактируют только администраторы
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireRole(jwt.RoleAdmin, logger))
				poses := upsert.New(logger, d.Catalog)
				r.Post("/admin/poses", poses.Create)
				r.Put("/admin/poses/{id}", poses.Update)
			})
		})
	})

	r.Get("/health", health.New(logger, d.Health).ServeHTTP)
	r.Handle("/metrics", metrics.Handler(d.Gatherer))
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
