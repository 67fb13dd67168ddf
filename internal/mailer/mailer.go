// Package mailer sends transactional email over SMTP.
package mailer

import (
	"errors"

	"gopkg.in/gomail.v2"

	"marketplace/internal/config"
)

var ErrNotConfigured = errors.New("SMTP not configured")

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type Mailer struct {
	dialer sender
	from   string
}

// New returns nil when SMTP is not configured; a nil *Mailer refuses to send.
func New(cfg config.SMTPConfig) *Mailer {
	if !cfg.Enabled() {
		return nil
	}
	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   from,
	}
}

func (m *Mailer) Configured() bool {
	return m != nil
}

func (m *Mailer) Send(msg Message) error {
	if m == nil {
		return ErrNotConfigured
	}
	out := gomail.NewMessage()
	out.SetHeader("From", m.from)
	out.SetHeader("To", msg.To)
	out.SetHeader("Subject", msg.Subject)
	if msg.Text != "" {
		out.SetBody("text/plain", msg.Text)
		out.AddAlternative("text/html", msg.HTML)
	} else {
		out.SetBody("text/html", msg.HTML)
	}
	return m.dialer.DialAndSend(out)
}
