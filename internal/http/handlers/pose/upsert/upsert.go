// Package upsert реализует административные обработчики создания и изменения поз каталога.
package upsert

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/flow-builder/internal/http/request"
	"github.com/magabrotheeeer/flow-builder/internal/http/response"
	"github.com/magabrotheeeer/flow-builder/internal/lib/sl"
	"github.com/magabrotheeeer/flow-builder/internal/models"
)

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

type Service interface {
	Create(ctx context.Context, req models.DummyPose) (string, error)
	Update(ctx context.Context, id string, req models.DummyPose) error
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) decode(log *slog.Logger, w http.ResponseWriter, r *http.Request) (models.DummyPose, bool) {
	var req models.DummyPose
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Info("failed to decode request body", sl.Err(err))
		response.BadRequest(w, r, "invalid request body")
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(log, w, r, err)
		return req, false
	}
	return req, true
}

// Create godoc
// @Summary Добавить позу
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body models.DummyPose true "Поза"
// @Success 201 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Security BearerAuth
// @Router /admin/poses [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.pose.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	req, ok := h.decode(log, w, r)
	if !ok {
		return
	}

	id, err := h.service.Create(r.Context(), req)
	if err != nil {
		response.Fail(log, w, r, err, "failed to create pose")
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"id": id,
	}))
}

// Update godoc
// @Summary Изменить позу
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "ID позы"
// @Param request body models.DummyPose true "Поза"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Security BearerAuth
// @Router /admin/poses/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.pose.update"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := request.ID(chi.URLParam(r, "id"))
	if err != nil {
		response.Fail(log, w, r, err, "bad pose id")
		return
	}
	req, ok := h.decode(log, w, r)
	if !ok {
		return
	}

	if err := h.service.Update(r.Context(), id, req); err != nil {
		response.Fail(log, w, r, err, "failed to update pose")
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"id": id,
	}))
}
