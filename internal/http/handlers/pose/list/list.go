// Package list реализует HTTP-обработчик каталога опубликованных поз.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/flow-builder/internal/http/request"
	"github.com/magabrotheeeer/flow-builder/internal/http/response"
	"github.com/magabrotheeeer/flow-builder/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	List(ctx context.Context, limit, offset int) ([]*models.Pose, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Каталог поз
// @Tags Poses
// @Produce json
// @Param limit query int false "Размер страницы (1-100)"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.ErrorResponse
// @Router /poses [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.pose.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, offset, err := request.Page(r)
	if err != nil {
		response.Fail(log, w, r, err, "bad pagination")
		return
	}

	poses, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		response.Fail(log, w, r, err, "failed to list poses")
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"poses":  poses,
		"limit":  limit,
		"offset": offset,
	}))
}
