// Package activate реализует HTTP-обработчик подтверждения оплаты после возврата из Checkout.
package activate

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/flow-builder/internal/http/middlewarectx"
	"github.com/magabrotheeeer/flow-builder/internal/http/response"
	"github.com/magabrotheeeer/flow-builder/internal/lib/sl"
	"github.com/magabrotheeeer/flow-builder/internal/models"
)

// Request тело запроса активации.
type Request struct {
	SessionID string `json:"session_id" validate:"required"`
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

type Service interface {
	Activate(ctx context.Context, sessionID, userID string) (*models.Profile, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Активировать подписку
// @Description Применяет результат сессии Checkout, не дожидаясь вебхука.
// @Tags Billing
// @Accept json
// @Produce json
// @Param request body Request true "ID сессии Checkout"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse "Сессия принадлежит другому пользователю"
// @Failure 422 {object} response.ErrorResponse
// @Failure 502 {object} response.ErrorResponse
// @Security BearerAuth
// @Router /subscription/activate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.activate"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		response.Unauthorized(w, r)
		return
	}

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Info("failed to decode request body", sl.Err(err))
		response.BadRequest(w, r, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(log, w, r, err)
		return
	}

	profile, err := h.service.Activate(r.Context(), req.SessionID, userID)
	if err != nil {
		response.Fail(log, w, r, err, "failed to activate subscription")
		return
	}

	log.Info("subscription activated", slog.String("user_id", userID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"profile": profile,
	}))
}
