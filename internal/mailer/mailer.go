// mailer — интерфейс внешнего сервиса доставки писем и две реализации:
// SMTP-клиент и no-op заглушка. Доставка best-effort: отказ почты
// никогда не должен проваливать вызов регистрации или сброса пароля —
// это решение принимает вызывающий слой (service).
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"

	"github.com/pribylovaa/auth-service/internal/config"
	logctx "github.com/pribylovaa/auth-service/internal/pkg/log"
	"github.com/pribylovaa/auth-service/internal/pkg/redact"
)

// Mailer — контракт доставки писем.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Nop — заглушка: фиксирует факт "отправки" в логах. Используется,
// когда SMTP не сконфигурирован (локальная разработка, тесты).
type Nop struct{}

func (Nop) Send(ctx context.Context, to, _, _ string) error {
	logctx.From(ctx).Info("mail_skipped",
		slog.String("to", redact.Email(to)),
	)

	return nil
}

// SMTP — клиент поверх net/smtp. STARTTLS согласуется автоматически,
// если сервер его объявляет.
type SMTP struct {
	cfg config.SMTPConfig
}

// NewSMTP создаёт SMTP-клиент с заданной конфигурацией.
func NewSMTP(cfg config.SMTPConfig) *SMTP {
	return &SMTP{cfg: cfg}
}

// Send отправляет письмо в формате text/plain.
// Контекст не прерывает уже начатую SMTP-сессию: net/smtp не принимает
// context, а письма уходят вне latency-критичного пути.
func (m *SMTP) Send(_ context.Context, to, subject, body string) error {
	const op = "mailer.smtp.Send"

	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	msg := []byte("From: " + m.cfg.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		body + "\r\n")

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

var (
	_ Mailer = Nop{}
	_ Mailer = (*SMTP)(nil)
)
