package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/domodwyer/mailyak/v3"

	"careops/internal/config"
)

// Mailer sends templated email over SMTP.
type Mailer struct {
	cfg config.EmailConfig
}

func NewMailer(cfg config.EmailConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

func (m *Mailer) Send(ctx context.Context, to, subject, text, html string) error {
	if !m.cfg.Enabled() {
		return fmt.Errorf("email is not configured")
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	mail := mailyak.New(fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port), auth)
	mail.To(to)
	mail.From(m.cfg.From)
	mail.Subject(subject)
	mail.Plain().Set(text)
	mail.HTML().Set(html)

	// mailyak has no context support; run the send aside and honor the
	// caller's deadline so a stuck SMTP dialog becomes a delivery failure.
	done := make(chan error, 1)
	go func() {
		done <- mail.Send()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", to, err)
		}
		return nil
	}
}
