// Package public реализует неаутентифицированное чтение флоу по публичной ссылке.
package public

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/flow-builder/internal/http/response"
	"github.com/magabrotheeeer/flow-builder/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	GetPublicFlow(ctx context.Context, slug string) (*models.PublicFlow, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Публичный флоу
// @Description Флоу по публичной ссылке без данных владельца. Истёкшая ссылка отдаёт 410.
// @Tags Share
// @Produce json
// @Param slug path string true "Публичный slug"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Failure 410 {object} response.ErrorResponse
// @Failure 429 {object} response.ErrorResponse
// @Router /flows/public/{slug} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.share.public"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	slug := chi.URLParam(r, "slug")
	if slug == "" {
		response.Fail(log, w, r, models.ErrNotFound, "empty slug")
		return
	}

	flow, err := h.service.GetPublicFlow(r.Context(), slug)
	if err != nil {
		response.Fail(log, w, r, err, "failed to read public flow")
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"flow": flow,
	}))
}
