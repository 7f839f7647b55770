// Package status реализует HTTP-обработчик текущего тарифа пользователя и его лимитов.
package status

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/flow-builder/internal/http/middlewarectx"
	"github.com/magabrotheeeer/flow-builder/internal/http/response"
	"github.com/magabrotheeeer/flow-builder/internal/lib/tier"
	"github.com/magabrotheeeer/flow-builder/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	Profile(ctx context.Context, userID, email string) (*models.Profile, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Текущая подписка
// @Description Профиль пользователя с тарифом и действующими лимитами (-1 означает без ограничений).
// @Tags Billing
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Security BearerAuth
// @Router /subscription [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.status"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		response.Unauthorized(w, r)
		return
	}

	profile, err := h.service.Profile(r.Context(), userID, middlewarectx.EmailFrom(r.Context()))
	if err != nil {
		response.Fail(log, w, r, err, "failed to read profile")
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"profile": profile,
		"limits":  tier.For(profile.SubscriptionTier),
	}))
}
