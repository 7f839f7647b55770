// Package cancel реализует HTTP-обработчик отмены подписки.
package cancel

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/flow-builder/internal/http/middlewarectx"
	"github.com/magabrotheeeer/flow-builder/internal/http/response"
	"github.com/magabrotheeeer/flow-builder/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	Cancel(ctx context.Context, userID string) (*models.Profile, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Отменить подписку
// @Description Подписка отменяется в Stripe немедленно, тариф понижается до бесплатного.
// @Tags Billing
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse "Нет активной подписки"
// @Failure 502 {object} response.ErrorResponse
// @Security BearerAuth
// @Router /subscription/cancel [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.cancel"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		response.Unauthorized(w, r)
		return
	}

	profile, err := h.service.Cancel(r.Context(), userID)
	if err != nil {
		response.Fail(log, w, r, err, "failed to cancel subscription")
		return
	}

	log.Info("subscription canceled", slog.String("user_id", userID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"profile": profile,
	}))
}
