// Package sync реализует HTTP-обработчик ручной сверки подписки со Stripe.
package sync

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
	Sync(ctx context.Context, userID string) (*models.Profile, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Сверить подписку
// @Tags Billing
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Failure 502 {object} response.ErrorResponse
// @Security BearerAuth
// @Router /subscription/sync [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.sync"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		response.Unauthorized(w, r)
		return
	}

	profile, err := h.service.Sync(r.Context(), userID)
	if err != nil {
		response.Fail(log, w, r, err, "failed to sync subscription")
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"profile": profile,
	}))
}
