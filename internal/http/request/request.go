// Package request разбор общих параметров HTTP-запросов.
package request

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/flow-builder/internal/models"
)

const (
	// DefaultLimit размер страницы по умолчанию.
	DefaultLimit = 20
	// MaxLimit максимальный размер страницы.
	MaxLimit = 100
)

// Page читает limit и offset из query. Отсутствующие значения заменяются умолчаниями.
func Page(r *http.Request) (limit, offset int, err error) {
	limit, offset = DefaultLimit, 0
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 || limit > MaxLimit {
			return 0, 0, models.Validationf("limit must be between 1 and %d", MaxLimit)
		}
	}
	if v := q.Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, models.Validationf("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}

// Bool читает булев флаг из query. Пустое значение означает false.
func Bool(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, models.Validationf("%s must be a boolean", name)
	}
	return b, nil
}

// ID проверяет, что параметр пути похож на идентификатор записи.
// Некорректный ID неотличим от отсутствующей записи.
func ID(raw string) (string, error) {
	if _, err := uuid.Parse(raw); err != nil {
		return "", models.ErrNotFound
	}
	return raw, nil
}
