package models

import (
	"errors"
	"fmt"
)

// Таксономия ошибок, общая для сервисов и HTTP-слоя.
var (
	// ErrUnauthorized — нет идентичности вызывающего или она невалидна.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound — ресурс отсутствует либо принадлежит другому пользователю.
	ErrNotFound = errors.New("not found")
	// ErrLimitExceeded — превышена квота тарифа.
	ErrLimitExceeded = errors.New("limit exceeded")
	// ErrUpgradeRequired — операция доступна только на платном тарифе.
	ErrUpgradeRequired = errors.New("paid plan required")
	// ErrValidation — некорректные входные данные.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden — ресурс существует, но не принадлежит вызывающему.
	ErrForbidden = errors.New("forbidden")
	// ErrShareExpired — публичная ссылка просрочена.
	ErrShareExpired = errors.New("share link expired")
	// ErrUpstream — ошибка хранилища или платёжного провайдера.
	ErrUpstream = errors.New("upstream error")
	// ErrSignatureInvalid — подпись вебхука не прошла проверку.
	ErrSignatureInvalid = errors.New("signature invalid")
	// ErrSlugTaken — сгенерированный slug уже занят другим флоу.
	ErrSlugTaken = errors.New("slug already taken")
)

// LimitError описывает отказ по квоте тарифа с текстом для пользователя.
type LimitError struct {
	Resource string // flows или poses_per_flow
	Limit    int
	Count    int
	Message  string
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s: %s %d > %d", ErrLimitExceeded, e.Resource, e.Count, e.Limit)
}

// Unwrap позволяет сравнивать через errors.Is(err, ErrLimitExceeded).
func (e *LimitError) Unwrap() error {
	return ErrLimitExceeded
}

// Validationf оборачивает ErrValidation с пояснением.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Upstream помечает ошибку внешней системы как ErrUpstream, сохраняя исходную причину.
func Upstream(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}
