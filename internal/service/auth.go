package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/auth-service/internal/models"
	logctx "github.com/pribylovaa/auth-service/internal/pkg/log"
	"github.com/pribylovaa/auth-service/internal/pkg/redact"
	"github.com/pribylovaa/auth-service/internal/ratelimit"
	"github.com/pribylovaa/auth-service/internal/storage"
)

const verificationCodeLen = 6

// RegisterUser регистрирует нового пользователя.
// Пара токенов не выдается: вход возможен только после подтверждения e-mail.
func (s *Service) RegisterUser(ctx context.Context, email, password string) (*models.User, error) {
	const op = "service.auth.RegisterUser"

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if err := s.validatePassword(password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.allow(ctx, ratelimit.Key("register", normEmail), s.limits.RegisterLimit, s.limits.RegisterWindow); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.storage.UserByEmail(ctx, normEmail)
	if err == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hashedPassword, err := s.hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Email:        normEmail,
		PasswordHash: hashedPassword,
		IsActive:     true,
		IsVerified:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.sendVerificationCode(ctx, user)

	return user, nil
}

// LoginUser выполняет вход по email+пароль.
//
// Блокировка: после MaxLoginAttempts подряд неудачных попыток вход
// запрещен до истечения LockoutWindow с момента последней неудачи,
// даже с верным паролем. Окно истекло — вход с верным паролем
// проходит и сбрасывает счетчик.
func (s *Service) LoginUser(ctx context.Context, email, password string) (*models.TokenPair, uuid.UUID, error) {
	const op = "service.auth.LoginUser"

	lg := logctx.From(ctx)

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if len(password) == 0 {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if err := s.allow(ctx, ratelimit.Key("login", normEmail), s.limits.LoginLimit, s.limits.LoginWindow); err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.IsActive {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	now := time.Now().UTC()
	if s.isLocked(user, now) {
		lg.Warn("login_locked",
			slog.String("op", op),
			slog.String("email", redact.Email(normEmail)),
		)
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrAccountLocked)
	}

	if !checkPassword(user.PasswordHash, password) {
		attempts, recErr := s.storage.RecordLoginFailure(ctx, user.ID, now)
		if recErr != nil {
			lg.Error("login_failure_record_failed",
				slog.String("op", op),
				slog.String("err", recErr.Error()),
			)
		} else if attempts >= s.cfg.MaxLoginAttempts {
			lg.Warn("login_lockout_threshold",
				slog.String("op", op),
				slog.String("email", redact.Email(normEmail)),
				slog.Int("attempts", attempts),
			)
		}

		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if !user.IsVerified {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrNotVerified)
	}

	if err := s.storage.RecordLoginSuccess(ctx, user.ID, now); err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.issueTokenPair(ctx, user)
}

// RefreshToken обновляет пару токенов по refresh-токену.
// Старый токен отзывается атомарно с сохранением нового (ротация):
// повторное предъявление уже ротированного токена невозможно.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, uuid.UUID, error) {
	const op = "service.auth.RefreshToken"

	token, err := s.validateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByID(ctx, token.UserID)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.IsActive {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	now := time.Now().UTC()

	accessToken, err := s.generateAccessToken(ctx, user.ID, user.Email, now)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	plain, err := s.rotateRefreshToken(ctx, refreshTokenHash(refreshToken), user.ID)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:     accessToken,
		RefreshToken:    plain,
		AccessExpiresAt: now.Add(s.cfg.AccessTokenTTL),
	}, user.ID, nil
}

// RevokeToken отзывает refresh-токен (logout).
func (s *Service) RevokeToken(ctx context.Context, refreshToken string) error {
	const op = "service.auth.RevokeToken"

	revoked, err := s.storage.RevokeRefreshTokenIfActive(ctx, refreshTokenHash(refreshToken))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if !revoked {
		return fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	return nil
}

// ValidateToken проверяет access-токен и возвращает данные пользователя.
func (s *Service) ValidateToken(ctx context.Context, accessToken string) (uuid.UUID, string, error) {
	const op = "service.auth.ValidateToken"

	uid, email, err := s.validateAccessToken(accessToken)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("%s: %w", op, err)
	}

	return uid, email, nil
}

// CurrentUser возвращает профиль пользователя по ID (эндпоинт /me).
func (s *Service) CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	const op = "service.auth.CurrentUser"

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.IsActive {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return user, nil
}

// VerifyEmail подтверждает e-mail по коду из письма.
func (s *Service) VerifyEmail(ctx context.Context, userID uuid.UUID, code string) error {
	const op = "service.auth.VerifyEmail"

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if user.IsVerified {
		return fmt.Errorf("%s: %w", op, ErrAlreadyVerified)
	}

	if s.codes == nil {
		return fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	stored, ok, err := s.codes.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok || stored == "" || stored != code {
		return fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if err := s.storage.MarkVerified(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.codes.Delete(ctx, userID); err != nil {
		logctx.From(ctx).Warn("verification_code_delete_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
	}

	return nil
}

// isLocked — блокировка активна, пока счетчик достиг порога и окно не истекло.
func (s *Service) isLocked(user *models.User, now time.Time) bool {
	if s.cfg.MaxLoginAttempts <= 0 || user.FailedAttempts < s.cfg.MaxLoginAttempts {
		return false
	}
	if user.LastFailedAt == nil {
		return false
	}

	return now.Sub(*user.LastFailedAt) < s.cfg.LockoutWindow
}

// allow применяет rate-limit; при недоступном бэкенде пропускает запрос
// (fail-open: вход дополнительно защищен блокировкой по счетчику).
func (s *Service) allow(ctx context.Context, key string, limit int, window time.Duration) error {
	if s.limiter == nil || limit <= 0 {
		return nil
	}

	ok, err := s.limiter.Allow(ctx, key, limit, window)
	if err != nil {
		logctx.From(ctx).Error("rate_limit_backend_failed",
			slog.String("err", err.Error()),
		)
		return nil
	}

	if !ok {
		return ErrRateLimited
	}

	return nil
}

// sendVerificationCode выпускает код подтверждения и отправляет письмо.
// Оба шага best-effort: отказ не проваливает регистрацию.
func (s *Service) sendVerificationCode(ctx context.Context, user *models.User) {
	const op = "service.auth.sendVerificationCode"

	if s.codes == nil {
		return
	}

	lg := logctx.From(ctx)

	code, err := generateAlphanumericCode(verificationCodeLen)
	if err != nil {
		lg.Error("verification_code_generate_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return
	}

	if err := s.codes.Set(ctx, user.ID, code, s.cfg.VerificationTTL); err != nil {
		lg.Error("verification_code_store_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return
	}

	subject := "Подтверждение e-mail"
	body := fmt.Sprintf(
		"Для подтверждения адреса перейдите по ссылке:\n%s/verify-email?user_id=%s&code=%s\n\nСсылка действительна %s.",
		s.cfg.PublicURL, user.ID, code, s.cfg.VerificationTTL,
	)

	if err := s.mailer.Send(ctx, user.Email, subject, body); err != nil {
		lg.Error("verification_mail_failed",
			slog.String("op", op),
			slog.String("email", redact.Email(user.Email)),
			slog.String("err", err.Error()),
		)
	}
}

// hashPassword хэширует пароль с помощью bcrypt.
func (s *Service) hashPassword(password string) (string, error) {
	const op = "service.auth.hashPassword"

	cost := s.cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем. Битый хэш в БД ведет себя
// как несовпадение — наружу уходит тот же ErrInvalidCredentials.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// validateEmail проверяет базовый формат email и обрезает пробелы снаружи.
func validateEmail(raw string) (string, error) {
	const op = "service.auth.validateEmail"

	email := strings.TrimSpace(raw)
	if email == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	return strings.ToLower(email), nil
}

// validatePassword проверяет минимальные требования к паролю.
// Политика по умолчанию: длина >= MinPasswordLen, хотя бы одна строчная,
// заглавная, цифра и спецсимвол.
func (s *Service) validatePassword(pw string) error {
	const op = "service.auth.validatePassword"

	if len(pw) == 0 {
		return fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	if len([]rune(pw)) < s.cfg.MinPasswordLen {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !(hasLower && hasUpper && hasDigit && hasSpecial) {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	return nil
}

// issueTokenPair выпускает новую пару access+refresh токенов.
func (s *Service) issueTokenPair(ctx context.Context, user *models.User) (*models.TokenPair, uuid.UUID, error) {
	const op = "service.auth.issueTokenPair"

	now := time.Now().UTC()

	accessToken, err := s.generateAccessToken(ctx, user.ID, user.Email, now)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	plain, err := s.generateRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:     accessToken,
		RefreshToken:    plain,
		AccessExpiresAt: now.Add(s.cfg.AccessTokenTTL),
	}, user.ID, nil
}

// refreshTokenHash — SHA-256 от исходного секрета в base64url.
func refreshTokenHash(plain string) string {
	hashBytes := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(hashBytes[:])
}

// generateAlphanumericCode возвращает случайную строку из латинских букв и цифр.
func generateAlphanumericCode(length int) (string, error) {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		out[i] = alphabet[n.Int64()]
	}

	return string(out), nil
}
