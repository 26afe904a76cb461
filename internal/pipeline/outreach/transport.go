package outreach

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
)

// Transport delivers a generated outreach email and reports a
// provider-assigned message ID when available (send_outreach.py's
// transport branch: "gmass" default, "smtp" alternate).
type Transport interface {
	Name() string
	Send(ctx context.Context, to, subject, htmlBody string) (messageID string, err error)
}

// GmassTransport is the real GMass Transactional API client body,
// intentionally left unimplemented (spec.md Non-goals: third-party
// API client bodies). Callers needing outreach delivery without a
// real GMass account should select SMTPTransport instead.
type GmassTransport struct {
	APIKey string
}

func (t GmassTransport) Name() string { return "gmass" }

func (t GmassTransport) Send(ctx context.Context, to, subject, htmlBody string) (string, error) {
	if t.APIKey == "" {
		return "", fmt.Errorf("gmass transport: GMASS_API_KEY not configured")
	}
	return "", fmt.Errorf("gmass transport: not implemented")
}

// SMTPConfig names the mail server SMTPTransport authenticates
// against. Unlike the Gmail-credentialed report sender, this is
// transport plumbing: an outreach-specific relay, not a bound
// third-party account integration.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPTransport sends outreach email through an authenticated SMTP
// relay, mirroring send_outreach.py's "smtp" transport branch. It
// builds a minimal multipart/alternative-free HTML message by hand,
// the way a small Go mailer typically does without pulling in a
// dedicated MIME-builder dependency.
type SMTPTransport struct {
	Config SMTPConfig
}

func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	return &SMTPTransport{Config: cfg}
}

func (t *SMTPTransport) Name() string { return "smtp" }

func (t *SMTPTransport) Send(ctx context.Context, to, subject, htmlBody string) (string, error) {
	if t.Config.Host == "" {
		return "", fmt.Errorf("smtp transport: SMTP host not configured")
	}

	addr := fmt.Sprintf("%s:%d", t.Config.Host, t.Config.Port)
	msg := buildMIMEMessage(t.Config.From, to, subject, htmlBody)

	var auth smtp.Auth
	if t.Config.Username != "" {
		auth = smtp.PlainAuth("", t.Config.Username, t.Config.Password, t.Config.Host)
	}

	if t.Config.Port == 465 {
		return "", t.sendImplicitTLS(addr, auth, to, msg)
	}

	if err := smtp.SendMail(addr, auth, t.Config.From, []string{to}, []byte(msg)); err != nil {
		return "", fmt.Errorf("smtp transport: send: %w", err)
	}
	return "", nil
}

func (t *SMTPTransport) sendImplicitTLS(addr string, auth smtp.Auth, to string, msg string) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: t.Config.Host})
	if err != nil {
		return fmt.Errorf("smtp transport: tls dial: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, t.Config.Host)
	if err != nil {
		return fmt.Errorf("smtp transport: client: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp transport: auth: %w", err)
		}
	}
	if err := client.Mail(t.Config.From); err != nil {
		return fmt.Errorf("smtp transport: mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp transport: rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp transport: data: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("smtp transport: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp transport: close body: %w", err)
	}
	return client.Quit()
}

func buildMIMEMessage(from, to, subject, htmlBody string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")
	return b.String()
}

// ResolveTransport selects a transport by name, defaulting to gmass
// and warning on an unrecognized value, matching send_outreach.py's
// transport-selection guard.
func ResolveTransport(name string, gmass Transport, smtpT Transport, warn func(string)) Transport {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "gmass":
		return gmass
	case "smtp":
		return smtpT
	default:
		if warn != nil {
			warn(fmt.Sprintf("unknown outreach transport %q, defaulting to gmass", name))
		}
		return gmass
	}
}
