package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pribylovaa/auth-service/internal/models"
	"github.com/pribylovaa/auth-service/internal/storage"
)

const userColumns = `
	id, email, password_hash, is_active, is_verified,
	created_at, updated_at, last_login_at, failed_attempts, last_failed_at
`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&user.IsVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastLoginAt,
		&user.FailedAttempts,
		&user.LastFailedAt,
	)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// SaveUser создает нового пользователя в БД.
func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users(id, email, password_hash, is_active, is_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.Exec(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.IsActive,
		user.IsVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UserByEmail находит пользователя по email.
func (s *Storage) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.postgres.UserByEmail"

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(s.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.postgres.UserByID"

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// MarkVerified помечает e-mail пользователя подтвержденным.
func (s *Storage) MarkVerified(ctx context.Context, id uuid.UUID) error {
	const op = "storage.postgres.MarkVerified"

	query := `
		UPDATE users
		SET is_verified = TRUE, updated_at = now()
		WHERE id = $1
	`

	cmdTag, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// RecordLoginSuccess фиксирует успешный вход: сбрасывает счетчик
// неудачных попыток и обновляет last_login_at.
func (s *Storage) RecordLoginSuccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	const op = "storage.postgres.RecordLoginSuccess"

	query := `
		UPDATE users
		SET failed_attempts = 0, last_failed_at = NULL, last_login_at = $2, updated_at = $2
		WHERE id = $1
	`

	cmdTag, err := s.db.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// RecordLoginFailure инкрементирует счетчик неудачных попыток входа.
func (s *Storage) RecordLoginFailure(ctx context.Context, id uuid.UUID, at time.Time) (int, error) {
	const op = "storage.postgres.RecordLoginFailure"

	query := `
		UPDATE users
		SET failed_attempts = failed_attempts + 1, last_failed_at = $2, updated_at = $2
		WHERE id = $1
		RETURNING failed_attempts
	`

	var attempts int
	err := s.db.QueryRow(ctx, query, id, at).Scan(&attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return attempts, nil
}

// UpdatePasswordAndRevokeSessions атомарно обновляет хэш пароля и отзывает
// все refresh-токены пользователя в одной транзакции.
func (s *Storage) UpdatePasswordAndRevokeSessions(ctx context.Context, id uuid.UUID, passwordHash string, at time.Time) error {
	const op = "storage.postgres.UpdatePasswordAndRevokeSessions"

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const updUser = `
		UPDATE users
		SET password_hash = $2, failed_attempts = 0, last_failed_at = NULL, updated_at = $3
		WHERE id = $1
	`

	cmdTag, err := tx.Exec(ctx, updUser, id, passwordHash, at)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	const updTokens = `
		UPDATE refresh_tokens
		SET revoked = TRUE
		WHERE user_id = $1 AND revoked = FALSE
	`

	if _, err := tx.Exec(ctx, updTokens, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
