// Package status реализует HTTP-обработчик состояния публикации флоу.
package status

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
	sharesvc "github.com/magabrotheeeer/flow-builder/internal/services/share"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	Status(ctx context.Context, flowID, userID string) (*sharesvc.Link, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Состояние публикации
// @Tags Share
// @Produce json
// @Param id path string true "ID флоу"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Security BearerAuth
// @Router /flows/{id}/share [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.share.status"

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

	link, err := h.service.Status(r.Context(), id, userID)
	if err != nil {
		response.Fail(log, w, r, err, "failed to read share status")
		return
	}

	render.JSON(w, r, response.StatusOKWithData(link))
}
