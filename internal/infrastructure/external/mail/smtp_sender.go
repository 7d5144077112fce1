// Package mail delivers notifications over SMTP.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/garyjia/reportdesk/internal/application/port"
	"github.com/garyjia/reportdesk/pkg/utils"
	"go.uber.org/zap"
)

// Config holds SMTP settings
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	Timeout  time.Duration

	// TLS overrides the STARTTLS client config; ServerName defaults to Host
	TLS *tls.Config
}

// SMTPSender implements port.MessageSender over SMTP, upgrading with
// STARTTLS whenever the server offers it
type SMTPSender struct {
	cfg    Config
	logger *zap.Logger
}

// NewSMTPSender creates an SMTP sender
func NewSMTPSender(cfg Config, logger *zap.Logger) *SMTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTPSender{cfg: cfg, logger: logger}
}

// Name identifies the channel in logs
func (s *SMTPSender) Name() string { return "email" }

// Send delivers msg as a plain-text email
func (s *SMTPSender) Send(ctx context.Context, msg port.OutboundMessage) error {
	if msg.To == "" {
		return fmt.Errorf("recipient email cannot be empty")
	}
	if err := utils.ValidateEmail(msg.To); err != nil {
		return err
	}

	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)

	dialer := net.Dialer{Timeout: s.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		s.logger.Error("Failed to connect to SMTP server", zap.String("address", addr), zap.Error(err))
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(s.cfg.Timeout))
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(s.tlsConfig()); err != nil {
			s.logger.Error("STARTTLS failed", zap.String("address", addr), zap.Error(err))
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to initiate data transfer: %w", err)
	}
	if _, err := wc.Write(s.buildMessage(msg)); err != nil {
		wc.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}

	if err := client.Quit(); err != nil {
		s.logger.Warn("SMTP quit failed", zap.Error(err))
	}

	s.logger.Info("Email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func (s *SMTPSender) tlsConfig() *tls.Config {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if s.cfg.TLS != nil {
		cfg = s.cfg.TLS.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = s.cfg.Host
	}
	return cfg
}

// buildMessage renders headers and body with CRLF line endings
func (s *SMTPSender) buildMessage(msg port.OutboundMessage) []byte {
	var b bytes.Buffer
	headers := [][2]string{
		{"From", s.cfg.From},
		{"To", msg.To},
		{"Subject", headerValue(msg.Subject)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/plain; charset=UTF-8"},
	}
	for _, h := range headers {
		fmt.Fprintf(&b, "%s: %s\r\n", h[0], h[1])
	}
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(msg.Body, "\r\n", "\n"), "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.Bytes()
}

// headerValue strips line breaks so a subject cannot inject headers
func headerValue(v string) string {
	return utils.SanitizeString(strings.NewReplacer("\r", " ", "\n", " ").Replace(v))
}

var _ port.MessageSender = (*SMTPSender)(nil)
