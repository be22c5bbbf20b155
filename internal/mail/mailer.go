// Package mail delivers verification codes over SMTP.
package mail

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// ErrNotConfigured is returned when the SMTP host is unset.
var ErrNotConfigured = errors.New("mail: smtp host not configured")

// dialTimeout bounds the SMTP connection attempt so a dead relay fails
// the request fast instead of hanging it.
const dialTimeout = 5 * time.Second

// Config holds SMTP delivery settings.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	UseTLS   bool   `yaml:"use-tls"`
}

// Sender delivers plain-text email. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender sends email through a configured SMTP relay.
type SMTPSender struct {
	cfg Config
}

// NewSMTPSender constructs an SMTPSender.
func NewSMTPSender(cfg Config) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send composes and delivers a plain-text message.
func (s *SMTPSender) Send(to, subject, body string) error {
	if strings.TrimSpace(s.cfg.Host) == "" {
		return ErrNotConfigured
	}

	msg := ComposeMessage(s.cfg.From, to, subject, body)
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	if s.cfg.UseTLS {
		return sendMailTLS(addr, s.cfg.Host, auth, s.cfg.From, []string{to}, msg)
	}
	return sendMail(addr, auth, s.cfg.From, []string{to}, msg)
}

// ComposeMessage builds an RFC 5322 plain-text message with CRLF line endings.
func ComposeMessage(from, to, subject, body string) []byte {
	headers := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n",
		from, to, subject,
	)
	return []byte(headers + body + "\r\n")
}

// VerificationCodeBody renders the login verification email body.
// The code travels in cleartext; the email channel is the second factor.
func VerificationCodeBody(code string, ttl time.Duration) string {
	return strings.Join([]string{
		"Your login verification code is:",
		"",
		"    " + code,
		"",
		fmt.Sprintf("This code will expire in %d minutes.", int(ttl.Minutes())),
		"If you didn't request this code, please ignore this email.",
	}, "\r\n")
}

// sendMail delivers via a plain or STARTTLS connection with a bounded dial.
func sendMail(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}

	hostname, _, _ := net.SplitHostPort(addr)
	c, err := smtp.NewClient(conn, hostname)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp new client: %w", err)
	}
	defer c.Quit() //nolint:errcheck

	if ok, _ := c.Extension("STARTTLS"); ok {
		tlsConfig := &tls.Config{ServerName: hostname, MinVersion: tls.VersionTLS12}
		if errTLS := c.StartTLS(tlsConfig); errTLS != nil {
			return fmt.Errorf("smtp starttls: %w", errTLS)
		}
	}
	return transmit(c, auth, from, to, msg)
}

// sendMailTLS connects via implicit TLS (port 465 / SMTPS) and sends a message.
func sendMailTLS(addr, host string, auth smtp.Auth, from string, to []string, msg []byte) error {
	dialer := &net.Dialer{Timeout: dialTimeout}
	tlsConfig := &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("smtp tls dial: %w", err)
	}
	defer conn.Close()

	hostname, _, _ := net.SplitHostPort(addr)
	c, err := smtp.NewClient(conn, hostname)
	if err != nil {
		return fmt.Errorf("smtp new client: %w", err)
	}
	defer c.Quit() //nolint:errcheck

	return transmit(c, auth, from, to, msg)
}

// transmit runs the SMTP envelope exchange on an established client.
func transmit(c *smtp.Client, auth smtp.Auth, from string, to []string, msg []byte) error {
	if auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(auth); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	return w.Close()
}
