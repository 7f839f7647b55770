// Package checkout реализует HTTP-обработчик создания сессии оплаты Stripe Checkout.
package checkout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/flow-builder/internal/http/middlewarectx"
	"github.com/magabrotheeeer/flow-builder/internal/http/response"
)

// Handler управляет запросами на оформление платного тарифа.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает создание сессии оплаты.
type Service interface {
	Checkout(ctx context.Context, userID, email string) (string, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Оформить подписку
// @Description Возвращает URL страницы оплаты Stripe Checkout.
// @Tags Billing
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse "Подписка уже активна"
// @Failure 502 {object} response.ErrorResponse "Ошибка Stripe"
// @Security BearerAuth
// @Router /checkout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.checkout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		response.Unauthorized(w, r)
		return
	}

	url, err := h.service.Checkout(r.Context(), userID, middlewarectx.EmailFrom(r.Context()))
	if err != nil {
		response.Fail(log, w, r, err, "failed to create checkout session")
		return
	}

	log.Info("checkout session created", slog.String("user_id", userID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"url": url,
	}))
}
