// Package unshare реализует HTTP-обработчик снятия флоу с публикации.
package unshare

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/flow-builder/internal/http/middlewarectx"
	"github.com/magabrotheeeer/flow-builder/internal/http/request"
	"github.com/magabrotheeeer/flow-builder/internal/http/response"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	Unshare(ctx context.Context, flowID, userID string) error
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Снять флоу с публикации
// @Description Slug сохраняется, повторная публикация вернёт прежнюю ссылку.
// @Tags Share
// @Produce json
// @Param id path string true "ID флоу"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Security BearerAuth
// @Router /flows/{id}/share [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.share.unshare"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		response.Unauthorized(w, r)
		return
	}
	id, err := request.ID(chi.URLParam(r, "id"))
	if err != nil {
		response.Fail(log, w, r, err, "bad flow id")
		return
	}

	if err := h.service.Unshare(r.Context(), id, userID); err != nil {
		response.Fail(log, w, r, err, "failed to unshare flow")
		return
	}

	log.Info("flow unshared", slog.String("flow_id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"is_public": false,
	}))
}
