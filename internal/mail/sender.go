// Package mail sends transactional email over SMTP.
package mail

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"net/textproto"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Config holds SMTP settings. An empty Host disables sending.
type Config struct {
	Host      string `env:"HOST"`
	Port      int    `env:"PORT" envDefault:"587"`
	Username  string `env:"USERNAME"`
	Password  string `env:"PASSWORD"`
	FromEmail string `env:"FROM_EMAIL" envDefault:"no-reply@localhost"`
	UseTLS    bool   `env:"USE_TLS" envDefault:"true"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
}

// Message is a rendered email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers messages.
type Sender struct {
	cfg Config

	// deliver defaults to SMTP delivery.
	deliver func(cfg Config, msg *Message) error
}

// NewSender returns a sender for cfg.
func NewSender(cfg Config) *Sender {
	return &Sender{cfg: cfg, deliver: deliverSMTP}
}

// Enabled reports whether an SMTP host is configured.
func (s *Sender) Enabled() bool {
	return s.cfg.Host != ""
}

// Send delivers an email and reports whether it was sent. Without a
// configured host it does nothing. A missing text body is derived from the
// HTML.
func (s *Sender) Send(subject, to, html, text string) bool {
	if !s.Enabled() {
		slog.Info("smtp not configured, skipping email", "subject", subject, "to", to)
		return false
	}
	if text == "" {
		text = htmlToText(html)
	}

	msg := &Message{From: s.cfg.FromEmail, To: to, Subject: subject, HTML: html, Text: text}
	if err := s.deliver(s.cfg, msg); err != nil {
		slog.Error("failed to send email", "to", to, "subject", subject, "error", err)
		return false
	}
	slog.Info("email sent", "to", to, "subject", subject)
	return true
}

var (
	brTag   = regexp.MustCompile(`(?i)<br\s*/?>`)
	pClose  = regexp.MustCompile(`(?i)</p\s*>`)
	anyTag  = regexp.MustCompile(`<[^>]+>`)
	hspaces = regexp.MustCompile(`[ \t]+`)
)

// htmlToText is a rough plain-text rendering of an HTML body.
func htmlToText(html string) string {
	text := brTag.ReplaceAllString(html, "\n")
	text = pClose.ReplaceAllString(text, "\n\n")
	text = anyTag.ReplaceAllString(text, "")
	text = hspaces.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Bytes renders msg as a multipart/alternative MIME message.
func (msg *Message) Bytes() ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for _, part := range []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=utf-8", msg.Text},
		{"text/html; charset=utf-8", msg.HTML},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(part.content)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "From: %s\r\n", msg.From)
	fmt.Fprintf(&out, "To: %s\r\n", msg.To)
	fmt.Fprintf(&out, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&out, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	out.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&out, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

func deliverSMTP(cfg Config, msg *Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("building message: %w", err)
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	tlsConfig := &tls.Config{ServerName: cfg.Host}

	var conn net.Conn
	if cfg.UseSSL {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
	} else {
		conn, err = dialer.Dial("tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	conn.SetDeadline(time.Now().Add(30 * time.Second))

	c, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("starting smtp session: %w", err)
	}
	defer c.Close()

	if !cfg.UseSSL && cfg.UseTLS {
		if err := c.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(cfg.FromEmail); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finishing message: %w", err)
	}
	return c.Quit()
}
