// Package mailer sends the post-submission thank-you email over SMTP.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Opts holds SMTP connection settings. With an empty Host the mailer is a
// no-op, so local development needs no mail server.
type Opts struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string // display form, e.g. "Town Hall <noreply@example.com>"
	SiteURL  string
}

// Mailer delivers transactional mail for the survey.
type Mailer struct {
	opts Opts
	send sendFunc
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// New creates a Mailer.
func New(opts Opts) *Mailer {
	return &Mailer{opts: opts, send: smtp.SendMail}
}

// Enabled reports whether an SMTP host is configured.
func (m *Mailer) Enabled() bool {
	return m.opts.Host != ""
}

// SendThankYou emails a submission confirmation. Disabled mailers return nil
// so callers need no special casing.
func (m *Mailer) SendThankYou(name, email string) error {
	if !m.Enabled() {
		return nil
	}

	subject := "Thank you for your feedback! 🇧🇸"
	body := thankYouHTML(name, m.opts.SiteURL)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.opts.From)
	fmt.Fprintf(&msg, "To: %s\r\n", email)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.opts.Host, m.opts.Port)
	auth := smtp.PlainAuth("", m.opts.Username, m.opts.Password, m.opts.Host)
	if err := m.send(addr, auth, envelopeFrom(m.opts.From), []string{email}, []byte(msg.String())); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", email, err)
	}
	return nil
}

// envelopeFrom extracts the bare address from a display-form sender.
func envelopeFrom(from string) string {
	if i := strings.IndexByte(from, '<'); i >= 0 {
		if j := strings.IndexByte(from[i:], '>'); j > 0 {
			return from[i+1 : i+j]
		}
	}
	return from
}

// thankYouHTML renders the confirmation email body.
func thankYouHTML(name, siteURL string) string {
	first := strings.Fields(name)
	greeting := "there"
	if len(first) > 0 {
		greeting = first[0]
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1a1a2e; max-width: 600px; margin: 0 auto; padding: 24px;">
  <h2 style="color: #00a8cc;">Thank you, %s! 🎉</h2>
  <p>Your feedback for the <strong>Bahamas Technology Town Hall</strong> has been received.</p>
  <p>Every response helps shape the national conversation on technology, from internet access in the Family Islands to digital skills training across the country.</p>
  <p>We'll share the community results on <a href="%s">%s</a> once the survey closes.</p>
  <p style="margin-top: 32px; color: #666; font-size: 13px;">Bahamas Technology Town Hall<br>This is an automated message, no reply is needed.</p>
</body>
</html>`, greeting, siteURL, siteURL)
}
