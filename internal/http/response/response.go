// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков.
package response

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/flow-builder/internal/lib/sl"
	"github.com/magabrotheeeer/flow-builder/internal/models"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status — статус запроса ("OK" или "Error").
// Поле Error — текст ошибки (опционально, при неуспехе).
// Поле Data — данные ответа (опционально, при успехе).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse — структура ошибки для Swagger-документации.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
	Code   string `json:"code,omitempty" example:"not_found"`
}

// LimitErrorResponse ответ при отказе по тарифу: клиенту нужен лимит, чтобы показать апселл.
type LimitErrorResponse struct {
	Status   string `json:"status" example:"Error"`
	Error    string `json:"error"`
	Code     string `json:"code" example:"limit_exceeded"`
	Resource string `json:"resource,omitempty" example:"flows"`
	Limit    int    `json:"limit,omitempty" example:"3"`
}

const (
	// StatusOK — значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError — значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// Машиночитаемые коды ошибок.
const (
	CodeUnauthorized    = "unauthorized"
	CodeNotFound        = "not_found"
	CodeLimitExceeded   = "limit_exceeded"
	CodeUpgradeRequired = "upgrade_required"
	CodeValidation      = "validation_failed"
	CodeForbidden       = "forbidden"
	CodeShareExpired    = "share_expired"
	CodeUpstream        = "upstream_error"
	CodeBadSignature    = "invalid_signature"
	CodeInternal        = "internal_error"
)

// StatusOKWithData возвращает успешный Response с переданными данными.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) ErrorResponse {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "uuid":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only uuid", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of [%s]", err.Field(), err.Param()))
		case "max", "lte":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s", err.Field(), err.Param()))
		case "min", "gte":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s", err.Field(), err.Param()))
		case "gt":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be greater than %s", err.Field(), err.Param()))
		case "alphanum":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only numbers and letters", err.Field()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return ErrorResponse{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
		Code:   CodeValidation,
	}
}

// FromError переводит ошибку сервиса в HTTP-статус и тело ответа.
// Внутренние подробности наружу не отдаются.
func FromError(err error) (int, any) {
	var limitErr *models.LimitError
	switch {
	case errors.As(err, &limitErr):
		return http.StatusForbidden, LimitErrorResponse{
			Status:   StatusError,
			Error:    limitErr.Message,
			Code:     CodeLimitExceeded,
			Resource: limitErr.Resource,
			Limit:    limitErr.Limit,
		}
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized, coded("unauthorized", CodeUnauthorized)
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, coded("not found", CodeNotFound)
	case errors.Is(err, models.ErrUpgradeRequired):
		return http.StatusForbidden, coded("this feature requires a paid plan", CodeUpgradeRequired)
	case errors.Is(err, models.ErrValidation):
		return http.StatusUnprocessableEntity, coded(validationMessage(err), CodeValidation)
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, coded("forbidden", CodeForbidden)
	case errors.Is(err, models.ErrShareExpired):
		return http.StatusGone, coded("share link expired", CodeShareExpired)
	case errors.Is(err, models.ErrSignatureInvalid):
		return http.StatusBadRequest, coded("invalid signature", CodeBadSignature)
	case errors.Is(err, models.ErrUpstream):
		return http.StatusBadGateway, coded("upstream service unavailable", CodeUpstream)
	default:
		return http.StatusInternalServerError, coded("internal error", CodeInternal)
	}
}

// RenderError пишет ответ для ошибки сервиса и возвращает выбранный статус.
func RenderError(w http.ResponseWriter, r *http.Request, err error) int {
	status, body := FromError(err)
	render.Status(r, status)
	render.JSON(w, r, body)
	return status
}

func coded(msg, code string) ErrorResponse {
	return ErrorResponse{Status: StatusError, Error: msg, Code: code}
}

// validationMessage достаёт пояснение из ошибки вида "...: validation failed: <detail>".
func validationMessage(err error) string {
	msg := err.Error()
	marker := models.ErrValidation.Error() + ": "
	if i := strings.LastIndex(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return models.ErrValidation.Error()
}

// Fail отвечает клиенту по ошибке сервиса и пишет её в лог: 5xx как ошибку, остальное как отказ.
func Fail(log *slog.Logger, w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := RenderError(w, r, err)
	if status >= http.StatusInternalServerError {
		log.Error(msg, sl.Err(err), slog.Int("status", status))
		return
	}
	log.Info(msg, sl.Err(err), slog.Int("status", status))
}

// Invalid отвечает 422 с описанием нарушенных правил валидации.
func Invalid(log *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	log.Info("validation failed", sl.Err(err))
	var verrs validator.ValidationErrors
	render.Status(r, http.StatusUnprocessableEntity)
	if errors.As(err, &verrs) {
		render.JSON(w, r, ValidationError(verrs))
		return
	}
	render.JSON(w, r, coded("invalid request", CodeValidation))
}

// BadRequest отвечает 400 с сообщением.
func BadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, Error(msg))
}

// Unauthorized отвечает 401, когда в контексте нет пользователя.
func Unauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, coded("unauthorized", CodeUnauthorized))
}
