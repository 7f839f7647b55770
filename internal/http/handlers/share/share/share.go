// Package share реализует HTTP-обработчик публикации флоу по ссылке.
package share

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/flow-builder/internal/http/middlewarectx"
	"github.com/magabrotheeeer/flow-builder/internal/http/request"
	"github.com/magabrotheeeer/flow-builder/internal/http/response"
	"github.com/magabrotheeeer/flow-builder/internal/lib/sl"
	sharesvc "github.com/magabrotheeeer/flow-builder/internal/services/share"
)

// Request необязательное тело запроса.
type Request struct {
	ExpiresAt *time.Time `json:"expires_at"`
}

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	Share(ctx context.Context, flowID, userID string, expiresAt *time.Time) (*sharesvc.Link, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Опубликовать флоу
// @Description Делает флоу доступным по публичной ссылке. Повторный вызов возвращает ту же ссылку.
// @Description Срок действия ссылки доступен только на платном тарифе.
// @Tags Share
// @Accept json
// @Produce json
// @Param id path string true "ID флоу"
// @Param request body Request false "Срок действия ссылки"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse "Нужен платный тариф"
// @Failure 404 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Security BearerAuth
// @Router /flows/{id}/share [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.share.share"

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

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		log.Info("failed to decode request body", sl.Err(err))
		response.BadRequest(w, r, "invalid request body")
		return
	}

	link, err := h.service.Share(r.Context(), id, userID, req.ExpiresAt)
	if err != nil {
		response.Fail(log, w, r, err, "failed to share flow")
		return
	}

	log.Info("flow shared", slog.String("flow_id", id))
	render.JSON(w, r, response.StatusOKWithData(link))
}
