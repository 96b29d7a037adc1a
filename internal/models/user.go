package models

import (
	"time"

	"github.com/google/uuid"
)

// User — учетная запись пользователя.
//
// Email хранится в нижнем регистре и уникален на уровне БД.
// Учетная запись не удаляется физически: деактивация выполняется
// через флаг IsActive.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	// IsActive — учетная запись активна (мягкая деактивация вместо удаления).
	IsActive bool
	// IsVerified — e-mail подтвержден; до подтверждения вход запрещен.
	IsVerified bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
	// LastLoginAt — момент последнего успешного входа (nil, если входов не было).
	LastLoginAt *time.Time
	// FailedAttempts — счетчик последовательных неудачных попыток входа.
	// Сбрасывается в 0 при успешном входе и при смене пароля.
	FailedAttempts int
	// LastFailedAt — момент последней неудачной попытки входа.
	LastFailedAt *time.Time
}
