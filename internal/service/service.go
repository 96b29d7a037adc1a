// service содержит бизнес-логику сервиса аутентификации:
// регистрацию/подтверждение/аутентификацию пользователей, выпуск/проверку
// токенов, сброс и смену пароля, а также работу с хранилищем через
// интерфейсы из пакета storage.
//
// Основные аспекты:
//   - Пакет не хранит состояние запроса внутри Service; экземпляр Service
//     безопасен для конкурентного использования из разных горутин при условии,
//     что переданное хранилище (storage.Storage) потокобезопасно.
//   - Ошибки возвращаются и далее маппятся HTTP-слоем на стабильные коды
//     ответов (см. комментарии к переменным ошибок ниже).
//   - Фоновых горутин сервис не запускает: периодическую очистку
//     просроченных токенов планирует вызывающая сторона (cmd) через
//     SweepExpired.
package service

import (
	"errors"

	"github.com/pribylovaa/auth-service/internal/cache"
	"github.com/pribylovaa/auth-service/internal/config"
	"github.com/pribylovaa/auth-service/internal/mailer"
	"github.com/pribylovaa/auth-service/internal/ratelimit"
	"github.com/pribylovaa/auth-service/internal/storage"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна, пользователь не найден
	// или учетная запись деактивирована. Нарочно один сигнал на все три случая,
	// чтобы не давать оракул перебора адресов. HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken — токен (access/refresh/reset) некорректен по
	// формату/подписи или отсутствует в хранилище. HTTP 401 (reset-confirm: 400).
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк. HTTP 401 (reset-confirm: 400).
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked — токен отозван (logout/rotation/compromise) и недействителен
	// независимо от срока. HTTP 401.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrEmailTaken — e-mail уже занят другим пользователем. HTTP 400.
	ErrEmailTaken = errors.New("email already taken")

	// ErrRefreshTokenCollision — исчерпаны попытки сгенерировать уникальный refresh-токен
	// (редкий случай коллизий при сохранении хэша в БД после нескольких ретраев).
	// HTTP 500.
	ErrRefreshTokenCollision = errors.New("refresh token collision")

	// ErrInvalidEmail — e-mail имеет некорректный формат. HTTP 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword — пароль не удовлетворяет политике сложности. HTTP 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой. HTTP 400.
	ErrEmptyPassword = errors.New("password is empty")

	// ErrAccountLocked — превышен порог неудачных попыток входа; блокировка
	// истекает сама по прошествии окна. HTTP 403.
	ErrAccountLocked = errors.New("account temporarily locked")

	// ErrNotVerified — e-mail не подтвержден; вход запрещен. HTTP 403.
	ErrNotVerified = errors.New("email not verified")

	// ErrAlreadyVerified — e-mail уже был подтвержден ранее. HTTP 400.
	ErrAlreadyVerified = errors.New("email already verified")

	// ErrRateLimited — исчерпан бюджет операций в скользящем окне. HTTP 429.
	ErrRateLimited = errors.New("rate limited")
)

// Service описывает бизнес-логику сервиса аутентификации.
type Service struct {
	storage storage.Storage
	cfg     config.AuthConfig
	limits  config.LimitsConfig
	limiter ratelimit.Limiter       // может быть nil — тогда лимиты не применяются
	codes   cache.VerificationCodes // может быть nil — тогда коды не выдаются
	mailer  mailer.Mailer
}

// New создаёт новый экземпляр Service. Письма по умолчанию не отправляются
// (mailer.Nop); реальная доставка подключается через SetMailer.
func New(storage storage.Storage, cfg config.AuthConfig, limits config.LimitsConfig) *Service {
	return &Service{
		storage: storage,
		cfg:     cfg,
		limits:  limits,
		mailer:  mailer.Nop{},
	}
}

// SetRateLimiter устанавливает rate-limiter (опционально).
func (s *Service) SetRateLimiter(l ratelimit.Limiter) {
	s.limiter = l
}

// SetVerificationCodes устанавливает хранилище кодов подтверждения (опционально).
func (s *Service) SetVerificationCodes(c cache.VerificationCodes) {
	s.codes = c
}

// SetMailer устанавливает доставку писем.
func (s *Service) SetMailer(m mailer.Mailer) {
	if m != nil {
		s.mailer = m
	}
}
