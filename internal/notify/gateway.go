package notify

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"careops/internal/i18n"
)

// Gateway delivers out-of-band messages. Both operations return a definite
// error on failure — there is no silent partial success — and every send is
// bounded by the dispatcher's timeout, so a hung provider surfaces as a
// delivery failure instead of an open-ended wait.
type Gateway interface {
	SendText(ctx context.Context, toPhone, body string) error
	SendTemplatedEmail(ctx context.Context, toAddress, locale, templateID string, vars map[string]string) error
}

// textSender and emailSender are the two underlying channels.
type textSender interface {
	Send(ctx context.Context, toPhone, body string) error
}

type emailSender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Dispatcher implements Gateway over an SMS and an email channel. Either
// channel may be nil when unconfigured.
type Dispatcher struct {
	SMS     textSender
	Email   emailSender
	BaseURL string
	Timeout time.Duration
}

func NewDispatcher(sms textSender, email emailSender, baseURL string, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{SMS: sms, Email: email, BaseURL: baseURL, Timeout: timeout}
}

func (d *Dispatcher) SendText(ctx context.Context, toPhone, body string) error {
	if d.SMS == nil {
		return fmt.Errorf("sms channel is not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()
	return d.SMS.Send(ctx, toPhone, body)
}

func (d *Dispatcher) SendTemplatedEmail(ctx context.Context, toAddress, locale, templateID string, vars map[string]string) error {
	if d.Email == nil {
		return fmt.Errorf("email channel is not configured")
	}
	content, ok := i18n.Email(locale, templateID, vars)
	if !ok {
		return fmt.Errorf("unknown email template %q", templateID)
	}
	ctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()
	return d.Email.Send(ctx, toAddress, content.Subject, content.Text, content.HTML)
}

// DeliverInvitation sends the registration link and temporary credential.
// Email is the primary channel; when the invitee has a phone number the
// SMS channel is the fallback, so a flaky mail server alone does not force
// the invitation to roll back.
func (d *Dispatcher) DeliverInvitation(ctx context.Context, locale, email string, phone *string, name, token, tempPassword string, expiresAt time.Time) error {
	days := int(time.Until(expiresAt).Hours() / 24)
	if days < 1 {
		days = 1
	}
	vars := map[string]string{
		"name":          name,
		"link":          d.BaseURL + "/register?token=" + token,
		"temp_password": tempPassword,
		"days":          strconv.Itoa(days),
	}

	emailErr := d.SendTemplatedEmail(ctx, email, locale, i18n.TemplateWorkerInvitation, vars)
	if emailErr == nil {
		return nil
	}

	if phone != nil && d.SMS != nil {
		body, _ := i18n.Text(locale, i18n.TemplateWorkerInvitation, vars)
		if smsErr := d.SendText(ctx, *phone, body); smsErr == nil {
			log.Printf("invitation email to %s failed (%v); delivered via sms fallback", email, emailErr)
			return nil
		}
	}
	return emailErr
}

// DeliverCode sends a verification code on the requested channel only; 2FA
// codes never fall back, since the channel is part of what is verified.
func (d *Dispatcher) DeliverCode(ctx context.Context, locale, channel, email string, phone *string, code string, ttl time.Duration) error {
	minutes := int(ttl.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	vars := map[string]string{
		"code":    code,
		"minutes": strconv.Itoa(minutes),
	}

	switch channel {
	case "sms":
		if phone == nil {
			return fmt.Errorf("user has no phone number")
		}
		body, _ := i18n.Text(locale, i18n.TemplateTwoFactorCode, vars)
		return d.SendText(ctx, *phone, body)
	case "email":
		return d.SendTemplatedEmail(ctx, email, locale, i18n.TemplateTwoFactorCode, vars)
	default:
		return fmt.Errorf("unknown delivery channel %q", channel)
	}
}
