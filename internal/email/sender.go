package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"helpdesk_backend/internal/config"
)

// Sender отправляет простые текстовые письма через SMTP
type Sender struct {
	host     string
	port     int
	auth     smtp.Auth
	from     string
	fromName string
	enabled  bool
}

// NewSender создает отправителя из конфигурации приложения
func NewSender(cfg *config.Config) *Sender {
	var auth smtp.Auth
	if cfg.Email.SMTPUsername != "" && cfg.Email.SMTPPassword != "" {
		auth = smtp.PlainAuth("", cfg.Email.SMTPUsername, cfg.Email.SMTPPassword, cfg.Email.SMTPHost)
	}

	return &Sender{
		host:     cfg.Email.SMTPHost,
		port:     cfg.Email.SMTPPort,
		auth:     auth,
		from:     cfg.Email.FromEmail,
		fromName: cfg.Email.FromName,
		enabled:  cfg.Email.Enabled,
	}
}

// Enabled сообщает, включена ли отправка почты
func (s *Sender) Enabled() bool {
	return s.enabled
}

// Send отправляет письмо одному получателю
func (s *Sender) Send(to, subject, body string) error {
	if !s.enabled {
		return nil
	}

	if err := s.validate(); err != nil {
		return err
	}

	message, err := s.buildMessage(to, subject, body)
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	return smtp.SendMail(addr, s.auth, s.from, []string{to}, message)
}

// validate проверяет конфигурацию SMTP
func (s *Sender) validate() error {
	if s.host == "" {
		return fmt.Errorf("SMTP host is required")
	}

	if s.port <= 0 || s.port > 65535 {
		return fmt.Errorf("invalid SMTP port: %d", s.port)
	}

	if s.from == "" {
		return fmt.Errorf("from address is required")
	}

	return nil
}

// buildMessage строит MIME сообщение
func (s *Sender) buildMessage(to, subject, body string) ([]byte, error) {
	builder := &strings.Builder{}

	from := s.from
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.from)
	}

	// Заголовки
	builder.WriteString(fmt.Sprintf("From: %s\r\n", from))
	builder.WriteString(fmt.Sprintf("To: %s\r\n", to))
	builder.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	builder.WriteString("MIME-Version: 1.0\r\n")
	builder.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	builder.WriteString(body)

	return []byte(builder.String()), nil
}
