// Package portal реализует HTTP-обработчик перехода в Stripe Billing Portal.
package portal

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/flow-builder/internal/http/middlewarectx"
	"github.com/magabrotheeeer/flow-builder/internal/http/response"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	Portal(ctx context.Context, userID string) (string, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Кабинет оплаты
// @Tags Billing
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse "Нет платёжного аккаунта"
// @Failure 502 {object} response.ErrorResponse
// @Security BearerAuth
// @Router /billing/portal [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.portal"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		response.Unauthorized(w, r)
		return
	}

	url, err := h.service.Portal(r.Context(), userID)
	if err != nil {
		response.Fail(log, w, r, err, "failed to create portal session")
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"url": url,
	}))
}
