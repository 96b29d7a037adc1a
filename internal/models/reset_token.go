package models

import (
	"time"

	"github.com/google/uuid"
)

// PasswordResetToken — одноразовый токен сброса пароля.
// Как и refresh-токен, хранится только хэшем; исходный секрет
// уходит пользователю в письме и на сервере не сохраняется.
type PasswordResetToken struct {
	TokenHash string
	UserID    uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
	// Used — токен уже погашен; повторное использование недопустимо.
	Used bool
}
