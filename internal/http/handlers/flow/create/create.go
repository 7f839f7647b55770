// Package create реализует HTTP-обработчик создания флоу.
//
// Перед записью проверяются квоты тарифа: число неархивных флоу и число поз во флоу.
package create

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/flow-builder/internal/http/middlewarectx"
	"github.com/magabrotheeeer/flow-builder/internal/http/response"
	"github.com/magabrotheeeer/flow-builder/internal/lib/sanitize"
	"github.com/magabrotheeeer/flow-builder/internal/lib/sl"
	"github.com/magabrotheeeer/flow-builder/internal/models"
)

// Handler управляет HTTP-запросами на создание флоу.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает бизнес-логику создания флоу.
type Service interface {
	Create(ctx context.Context, userID string, req models.DummyFlow) (*models.ResolvedFlow, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать флоу
// @Description Создаёт флоу с элементами. Позиции нормализуются в 0..n-1.
// @Tags Flows
// @Accept json
// @Produce json
// @Param request body models.DummyFlow true "Данные флоу"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.LimitErrorResponse "Превышен лимит тарифа"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Security BearerAuth
// @Router /flows [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.flow.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		response.Unauthorized(w, r)
		return
	}

	var req models.DummyFlow
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Info("failed to decode request body", sl.Err(err))
		response.BadRequest(w, r, "invalid request body")
		return
	}
	sanitize.Flow(&req)
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(log, w, r, err)
		return
	}

	flow, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		response.Fail(log, w, r, err, "failed to create flow")
		return
	}

	log.Info("flow created", slog.String("flow_id", flow.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"flow": flow,
	}))
}
