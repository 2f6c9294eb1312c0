// Package notify renders and delivers the account emails.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/passage/internal/passage/domain"
)

const (
	SubjectWelcome       = "Welcome to Our Service"
	SubjectOTP           = "Email Verification"
	SubjectPasswordReset = "Password Reset"
)

// Message is a single HTML email.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Mailer renders the account emails and hands them to a Sender.
type Mailer struct {
	Sender Sender
}

func NewMailer(sender Sender) *Mailer {
	return &Mailer{Sender: sender}
}

type codeData struct {
	Name    string
	Code    string
	Minutes int
}

type linkData struct {
	Name string
	Link string
}

// SendVerification sends the welcome email with the first verification code.
func (m *Mailer) SendVerification(ctx context.Context, user domain.User, code string, ttl time.Duration) error {
	return m.send(ctx, user, SubjectWelcome, "welcome.html", codeData{
		Name:    user.Name,
		Code:    code,
		Minutes: minutes(ttl),
	})
}

// SendOTP sends a re-requested verification code.
func (m *Mailer) SendOTP(ctx context.Context, user domain.User, code string, ttl time.Duration) error {
	return m.send(ctx, user, SubjectOTP, "otp.html", codeData{
		Name:    user.Name,
		Code:    code,
		Minutes: minutes(ttl),
	})
}

// SendPasswordReset sends the reset link.
func (m *Mailer) SendPasswordReset(ctx context.Context, user domain.User, link string) error {
	return m.send(ctx, user, SubjectPasswordReset, "reset.html", linkData{
		Name: user.Name,
		Link: link,
	})
}

func (m *Mailer) send(ctx context.Context, user domain.User, subject, tmpl string, data any) error {
	body, err := render(tmpl, data)
	if err != nil {
		return fmt.Errorf("render %s: %w", tmpl, err)
	}
	return m.Sender.Send(ctx, Message{
		To:      []string{user.Email},
		Subject: subject,
		HTML:    body,
	})
}

func minutes(d time.Duration) int {
	return int(d.Round(time.Minute) / time.Minute)
}
