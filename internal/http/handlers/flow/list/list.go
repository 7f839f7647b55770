// Package list реализует HTTP-обработчик списка флоу пользователя.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/flow-builder/internal/http/middlewarectx"
	"github.com/magabrotheeeer/flow-builder/internal/http/request"
	"github.com/magabrotheeeer/flow-builder/internal/http/response"
	"github.com/magabrotheeeer/flow-builder/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	List(ctx context.Context, userID string, includeArchived bool, limit, offset int) ([]*models.FlowSummary, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список флоу
// @Description Возвращает флоу текущего пользователя с количеством поз и общей длительностью.
// @Tags Flows
// @Produce json
// @Param limit query int false "Размер страницы (1-100)"
// @Param offset query int false "Смещение"
// @Param include_archived query bool false "Включать архивные флоу"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Security BearerAuth
// @Router /flows [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.flow.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		response.Unauthorized(w, r)
		return
	}

	limit, offset, err := request.Page(r)
	if err != nil {
		response.Fail(log, w, r, err, "bad pagination")
		return
	}
	includeArchived, err := request.Bool(r, "include_archived")
	if err != nil {
		response.Fail(log, w, r, err, "bad include_archived")
		return
	}

	flows, err := h.service.List(r.Context(), userID, includeArchived, limit, offset)
	if err != nil {
		response.Fail(log, w, r, err, "failed to list flows")
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"flows":  flows,
		"limit":  limit,
		"offset": offset,
	}))
}
