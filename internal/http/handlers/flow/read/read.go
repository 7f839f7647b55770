// Package read реализует HTTP-обработчик получения флоу владельца вместе с позами.
package read

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
	"github.com/magabrotheeeer/flow-builder/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	Get(ctx context.Context, id, userID string) (*models.ResolvedFlow, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить флоу
// @Description Флоу с элементами по позициям. Снятая с публикации поза приходит как null.
// @Tags Flows
// @Produce json
// @Param id path string true "ID флоу"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Security BearerAuth
// @Router /flows/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.flow.read"

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

	flow, err := h.service.Get(r.Context(), id, userID)
	if err != nil {
		response.Fail(log, w, r, err, "failed to read flow")
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"flow": flow,
	}))
}
