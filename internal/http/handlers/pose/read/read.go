// Package read реализует HTTP-обработчик чтения позы по slug.
package read

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
	GetBySlug(ctx context.Context, slug string) (*models.Pose, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Поза по slug
// @Tags Poses
// @Produce json
// @Param slug path string true "Slug позы"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /poses/{slug} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.pose.read"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	pose, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		response.Fail(log, w, r, err, "failed to read pose")
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"pose": pose,
	}))
}
