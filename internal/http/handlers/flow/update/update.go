// Package update реализует HTTP-обработчик частичного обновления флоу.
//
// Переданные ключи меняются, отсутствующие остаются прежними. Список items,
// если он передан, заменяет элементы флоу целиком.
package update

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/flow-builder/internal/http/middlewarectx"
	"github.com/magabrotheeeer/flow-builder/internal/http/request"
	"github.com/magabrotheeeer/flow-builder/internal/http/response"
	"github.com/magabrotheeeer/flow-builder/internal/lib/sanitize"
	"github.com/magabrotheeeer/flow-builder/internal/lib/sl"
	"github.com/magabrotheeeer/flow-builder/internal/models"
)

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

type Service interface {
	Replace(ctx context.Context, id, userID string, patch models.FlowPatch) (*models.ResolvedFlow, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Обновить флоу
// @Tags Flows
// @Accept json
// @Produce json
// @Param id path string true "ID флоу"
// @Param request body models.FlowPatch true "Изменяемые поля"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.LimitErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Security BearerAuth
// @Router /flows/{id} [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.flow.update"

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

	var patch models.FlowPatch
	if err := render.DecodeJSON(r.Body, &patch); err != nil {
		log.Info("failed to decode request body", sl.Err(err))
		response.BadRequest(w, r, "invalid request body")
		return
	}
	sanitize.Patch(&patch)
	if err := h.validate.Struct(patch); err != nil {
		response.Invalid(log, w, r, err)
		return
	}
	if patch.Items != nil {
		for _, item := range *patch.Items {
			if err := h.validate.Struct(item); err != nil {
				response.Invalid(log, w, r, err)
				return
			}
		}
	}

	flow, err := h.service.Replace(r.Context(), id, userID, patch)
	if err != nil {
		response.Fail(log, w, r, err, "failed to update flow")
		return
	}

	log.Info("flow updated", slog.String("flow_id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"flow": flow,
	}))
}
