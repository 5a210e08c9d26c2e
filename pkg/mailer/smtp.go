package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/uns-cex/matricula-api/pkg/config"
)

// SMTPSender delivers HTML email over a plain-auth SMTP relay. The auth and
// address are fixed at construction; credentials never travel past init.
type SMTPSender struct {
	auth   smtp.Auth
	addr   string
	sender string
}

// NewSMTPSender builds the sender from SMTP configuration.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		auth:   smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host),
		addr:   cfg.Addr(),
		sender: cfg.Sender,
	}
}

// Send delivers a single message. net/smtp has no context support; the ctx
// parameter keeps the transport interface uniform across channels.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("empty recipient address")
	}

	msg := "From: " + s.sender + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n" +
		"\r\n" +
		body

	if err := smtp.SendMail(s.addr, s.auth, s.sender, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// Ping verifies the relay accepts connections.
func (s *SMTPSender) Ping(ctx context.Context) error {
	client, err := smtp.Dial(s.addr)
	if err != nil {
		return fmt.Errorf("dial smtp relay %s: %w", s.addr, err)
	}
	defer client.Close()
	if err := client.Noop(); err != nil {
		return fmt.Errorf("smtp noop: %w", err)
	}
	return nil
}
