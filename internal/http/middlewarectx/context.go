// Package middlewarectx HTTP middleware приложения: аутентификация по JWT, проверка роли,
// ограничение частоты запросов по клиенту и метрики запросов.
package middlewarectx

import "context"

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserID — ключ для идентификатора пользователя в контексте.
	UserID Key = "user_id"
	// Email — ключ для email пользователя в контексте.
	Email Key = "email"
	// Role — ключ для роли пользователя в контексте.
	Role Key = "role"
)

// UserIDFrom возвращает идентификатор аутентифицированного пользователя.
func UserIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserID).(string)
	return id, ok && id != ""
}

// EmailFrom возвращает email пользователя из токена, если он был.
func EmailFrom(ctx context.Context) string {
	email, _ := ctx.Value(Email).(string)
	return email
}

// WithUser кладёт в контекст данные пользователя. Используется middleware и тестами обработчиков.
func WithUser(ctx context.Context, userID, email, role string) context.Context {
	ctx = context.WithValue(ctx, UserID, userID)
	ctx = context.WithValue(ctx, Email, email)
	return context.WithValue(ctx, Role, role)
}
