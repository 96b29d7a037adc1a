package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/auth-service/internal/models"
	logctx "github.com/pribylovaa/auth-service/internal/pkg/log"
	"github.com/pribylovaa/auth-service/internal/pkg/redact"
	"github.com/pribylovaa/auth-service/internal/ratelimit"
	"github.com/pribylovaa/auth-service/internal/storage"
)

// RequestPasswordReset инициирует сброс пароля.
//
// Анти-перечисление: для несуществующего или деактивированного адреса
// операция завершается тем же nil, что и для существующего — различить
// их по ответу нельзя. Детали остаются в логах.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	const op = "service.password.RequestPasswordReset"

	lg := logctx.From(ctx)

	normEmail, err := validateEmail(email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if err := s.allow(ctx, ratelimit.Key("password_reset", normEmail), s.limits.ResetLimit, s.limits.ResetWindow); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Info("password_reset_unknown_email",
				slog.String("op", op),
				slog.String("email", redact.Email(normEmail)),
			)
			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if !user.IsActive {
		return nil
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	plain := base64.RawURLEncoding.EncodeToString(b)

	now := time.Now().UTC()
	token := &models.PasswordResetToken{
		TokenHash: refreshTokenHash(plain),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.ResetTokenTTL),
		Used:      false,
	}

	if err := s.storage.SaveResetToken(ctx, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	subject := "Сброс пароля"
	body := fmt.Sprintf(
		"Для сброса пароля перейдите по ссылке:\n%s/password-reset?token=%s\n\nСсылка действительна %s. Если вы не запрашивали сброс — проигнорируйте письмо.",
		s.cfg.PublicURL, plain, s.cfg.ResetTokenTTL,
	)

	// Письмо уходит вне запроса: время ответа не зависит от SMTP,
	// существующий адрес по нему неотличим от несуществующего.
	mailCtx := context.WithoutCancel(ctx)
	go func() {
		if err := s.mailer.Send(mailCtx, user.Email, subject, body); err != nil {
			lg.Error("password_reset_mail_failed",
				slog.String("op", op),
				slog.String("email", redact.Email(user.Email)),
				slog.String("err", err.Error()),
			)
		}
	}()

	return nil
}

// ConfirmPasswordReset завершает сброс: проверяет токен, обновляет пароль
// и отзывает все refresh-токены пользователя. Токен одноразовый: повторное
// подтверждение тем же токеном завершится ErrInvalidToken.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	const op = "service.password.ConfirmPasswordReset"

	if err := s.validatePassword(newPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	hash := refreshTokenHash(token)

	stored, err := s.storage.ResetTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if stored.Used {
		return fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if time.Now().UTC().After(stored.ExpiresAt) {
		return fmt.Errorf("%s: %w", op, ErrTokenExpired)
	}

	newHash, err := s.hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	userID, err := s.storage.ConsumeResetToken(ctx, hash, newHash, time.Now().UTC())
	if err != nil {
		// Конкурирующее подтверждение успело раньше.
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrRevoked) {
			return fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	logctx.From(ctx).Info("password_reset_confirmed",
		slog.String("op", op),
		slog.String("user_id", userID.String()),
	)

	return nil
}

// ChangePassword меняет пароль аутентифицированного пользователя и
// отзывает все его refresh-токены (re-login на всех устройствах).
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	const op = "service.password.ChangePassword"

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if !user.IsActive || !checkPassword(user.PasswordHash, currentPassword) {
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if err := s.validatePassword(newPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	newHash, err := s.hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.UpdatePasswordAndRevokeSessions(ctx, userID, newHash, time.Now().UTC()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	logctx.From(ctx).Info("password_changed",
		slog.String("op", op),
		slog.String("user_id", userID.String()),
	)

	return nil
}
