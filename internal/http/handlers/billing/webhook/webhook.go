// Package webhook принимает события Stripe.
//
// Подпись проверяется по сырому телу запроса, поэтому тело читается целиком
// до любого разбора JSON.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/flow-builder/internal/http/response"
	"github.com/magabrotheeeer/flow-builder/internal/lib/sl"
)

// SignatureHeader заголовок с подписью Stripe.
const SignatureHeader = "Stripe-Signature"

type Handler struct {
	log      *slog.Logger
	service  Service
	maxBytes int64
}

type Service interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// New создаёт обработчик. maxBytes ограничивает размер тела запроса.
func New(log *slog.Logger, service Service, maxBytes int64) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		maxBytes: maxBytes,
	}
}

// ServeHTTP godoc
// @Summary Вебхук Stripe
// @Description Ошибка обработки отдаёт 5xx, чтобы Stripe повторил доставку.
// @Tags Billing
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Подпись Stripe"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Неверная подпись"
// @Failure 413 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /webhooks/stripe [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.webhook"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		response.BadRequest(w, r, "missing "+SignatureHeader+" header")
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			render.Status(r, http.StatusRequestEntityTooLarge)
			render.JSON(w, r, response.Error("payload too large"))
			return
		}
		log.Info("failed to read webhook body", sl.Err(err))
		response.BadRequest(w, r, "failed to read body")
		return
	}

	if err := h.service.HandleWebhook(r.Context(), payload, signature); err != nil {
		response.Fail(log, w, r, err, "webhook processing failed")
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"received": true,
	}))
}
