// storage задает контракт работы с persistent-хранилищем сервиса:
// пользователи, refresh-токены и одноразовые токены сброса пароля.
//
// Все мутации, затрагивающие несколько сущностей (ротация refresh-токена,
// подтверждение сброса пароля), реализация обязана выполнять атомарно:
// внешний наблюдатель видит либо оба изменения, либо ни одного.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/auth-service/internal/models"
)

var (
	// ErrNotFound — запись не найдена (пользователь/токен).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/хэш токена).
	ErrAlreadyExists = errors.New("already exists")
	// ErrExpired — сущность просрочена (refresh-токен/токен сброса).
	ErrExpired = errors.New("expired")
	// ErrRevoked — сущность отозвана либо уже погашена
	// (refresh-токен после logout/ротации, использованный токен сброса).
	ErrRevoked = errors.New("revoked")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создает нового пользователя в БД.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email (нижний регистр).
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// MarkVerified помечает e-mail пользователя подтвержденным.
	MarkVerified(ctx context.Context, id uuid.UUID) error
	// RecordLoginSuccess фиксирует успешный вход: сбрасывает счетчик
	// неудачных попыток и обновляет last_login_at.
	RecordLoginSuccess(ctx context.Context, id uuid.UUID, at time.Time) error
	// RecordLoginFailure инкрементирует счетчик неудачных попыток и
	// возвращает его новое значение.
	RecordLoginFailure(ctx context.Context, id uuid.UUID, at time.Time) (int, error)
	// UpdatePasswordAndRevokeSessions атомарно обновляет хэш пароля,
	// сбрасывает счетчик неудачных попыток и отзывает все refresh-токены
	// пользователя (принудительный re-login на всех устройствах).
	UpdatePasswordAndRevokeSessions(ctx context.Context, id uuid.UUID, passwordHash string, at time.Time) error
}

// RefreshTokenStorage выполняет операции над refresh-токенами.
type RefreshTokenStorage interface {
	// SaveRefreshToken сохраняет новый refresh-токен в БД.
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// RefreshTokenByHash находит refresh-токен по его хэшу.
	RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	// RevokeRefreshTokenIfActive пытается отозвать refresh-токен, если он
	// ещё не был отозван. Возвращает:
	//
	//	(true, nil)  — токен был активен и успешно отозван сейчас;
	//	(false, nil) — токен существует, но уже был отозван;
	//	(false, ErrNotFound) — токен не найден.
	RevokeRefreshTokenIfActive(ctx context.Context, hash string) (bool, error)
	// RotateRefreshToken атомарно отзывает старый токен и сохраняет новый.
	// Ошибки: ErrNotFound — старый токен отсутствует; ErrRevoked — старый
	// токен уже отозван; ErrAlreadyExists — коллизия хэша нового токена.
	RotateRefreshToken(ctx context.Context, oldHash string, next *models.RefreshToken) error
	// RevokeAllForUser отзывает все refresh-токены пользователя.
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
	// DeleteExpiredTokens удаляет все просроченные токены.
	DeleteExpiredTokens(ctx context.Context, now time.Time) error
}

// ResetTokenStorage выполняет операции над токенами сброса пароля.
type ResetTokenStorage interface {
	// SaveResetToken сохраняет новый токен сброса пароля.
	SaveResetToken(ctx context.Context, token *models.PasswordResetToken) error
	// ResetTokenByHash находит токен сброса по его хэшу.
	ResetTokenByHash(ctx context.Context, hash string) (*models.PasswordResetToken, error)
	// ConsumeResetToken атомарно гасит токен сброса, обновляет хэш пароля
	// пользователя и отзывает все его refresh-токены. Возвращает ID
	// пользователя. Ошибки: ErrNotFound — токен отсутствует;
	// ErrRevoked — токен уже был использован.
	ConsumeResetToken(ctx context.Context, hash string, passwordHash string, at time.Time) (uuid.UUID, error)
	// DeleteExpiredResetTokens удаляет все просроченные токены сброса.
	DeleteExpiredResetTokens(ctx context.Context, now time.Time) error
}

// Storage задает контракт работы с БД.
type Storage interface {
	UserStorage
	RefreshTokenStorage
	ResetTokenStorage
	Close()
}
