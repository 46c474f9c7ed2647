package infra

import (
	"fmt"
	"net/smtp"

	"tillkeeper/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer wraps SMTP configuration for sending emails with PDF attachments.
// Sends go through a circuit breaker so a dead SMTP relay fails fast.
type Mailer struct {
	host     string
	user     string
	password string
	addr     string
	cb       *CircuitBreaker
	send     func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewMailer(cfg *config.Config, cb *CircuitBreaker) *Mailer {
	if cb == nil {
		cb = NewCircuitBreaker(DefaultCBConfig())
	}
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		cb:       cb,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// SendReport mails a closing report with its PDF attached.
func (m *Mailer) SendReport(to, subject, body, pdfPath string) error {
	e := email.NewEmail()
	e.From = m.user
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if pdfPath != "" {
		if _, err := e.AttachFile(pdfPath); err != nil {
			return fmt.Errorf("mailer: attach PDF: %w", err)
		}
	}

	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	return m.cb.Execute(func() error {
		return m.send(e, m.addr, auth)
	})
}

// BreakerState exposes the SMTP circuit state for the health endpoint.
func (m *Mailer) BreakerState() CBState {
	return m.cb.State()
}
