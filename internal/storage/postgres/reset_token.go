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

// SaveResetToken сохраняет новый токен сброса пароля.
func (s *Storage) SaveResetToken(ctx context.Context, token *models.PasswordResetToken) error {
	const op = "storage.postgres.SaveResetToken"

	query := `
		INSERT INTO password_reset_tokens(token_hash, user_id, created_at, expires_at, used)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.Exec(ctx, query,
		token.TokenHash,
		token.UserID,
		token.CreatedAt,
		token.ExpiresAt,
		token.Used,
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

// ResetTokenByHash находит токен сброса по его хэшу.
func (s *Storage) ResetTokenByHash(ctx context.Context, hash string) (*models.PasswordResetToken, error) {
	const op = "storage.postgres.ResetTokenByHash"

	query := `
		SELECT token_hash, user_id, created_at, expires_at, used
		FROM password_reset_tokens
		WHERE token_hash = $1
	`

	var token models.PasswordResetToken
	err := s.db.QueryRow(ctx, query, hash).Scan(
		&token.TokenHash,
		&token.UserID,
		&token.CreatedAt,
		&token.ExpiresAt,
		&token.Used,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &token, nil
}

// ConsumeResetToken атомарно гасит токен сброса, обновляет хэш пароля
// пользователя и отзывает все его refresh-токены. Гарантия одноразовости
// обеспечивается условием used = FALSE в UPDATE: из двух конкурирующих
// подтверждений пройдет ровно одно.
func (s *Storage) ConsumeResetToken(ctx context.Context, hash string, passwordHash string, at time.Time) (uuid.UUID, error) {
	const op = "storage.postgres.ConsumeResetToken"

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const consume = `
		UPDATE password_reset_tokens
		SET used = TRUE
		WHERE token_hash = $1 AND used = FALSE
		RETURNING user_id
	`

	var userID uuid.UUID
	err = tx.QueryRow(ctx, consume, hash).Scan(&userID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("%s: %w", op, err)
		}

		const sel = `SELECT used FROM password_reset_tokens WHERE token_hash = $1`

		var used bool
		selErr := tx.QueryRow(ctx, sel, hash).Scan(&used)
		if selErr != nil {
			if errors.Is(selErr, pgx.ErrNoRows) {
				return uuid.Nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
			}

			return uuid.Nil, fmt.Errorf("%s: %w", op, selErr)
		}

		return uuid.Nil, fmt.Errorf("%s: %w", op, storage.ErrRevoked)
	}

	const updUser = `
		UPDATE users
		SET password_hash = $2, failed_attempts = 0, last_failed_at = NULL, updated_at = $3
		WHERE id = $1
	`

	cmdTag, err := tx.Exec(ctx, updUser, userID, passwordHash, at)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return uuid.Nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	const updTokens = `
		UPDATE refresh_tokens
		SET revoked = TRUE
		WHERE user_id = $1 AND revoked = FALSE
	`

	if _, err := tx.Exec(ctx, updTokens, userID); err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return userID, nil
}

// DeleteExpiredResetTokens удаляет все просроченные токены сброса.
func (s *Storage) DeleteExpiredResetTokens(ctx context.Context, now time.Time) error {
	const op = "storage.postgres.DeleteExpiredResetTokens"

	query := `
		DELETE FROM password_reset_tokens
		WHERE expires_at <= $1
	`

	_, err := s.db.Exec(ctx, query, now)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
