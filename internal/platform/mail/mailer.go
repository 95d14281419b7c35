// Package mail provides outbound email delivery for notification emails.
// Delivery is best effort: a failed send never blocks or rolls back the
// in-app notification it accompanies.
package mail

import (
	"context"
	"fmt"
	"log/slog"

	gomail "github.com/wneessen/go-mail"

	"github.com/gatherly/gatherly-api/internal/config"
	"github.com/gatherly/gatherly-api/internal/platform/logger"
)

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends email messages.
type Mailer interface {
	// Send delivers the message. Implementations should respect context
	// cancellation for the dial and send.
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer delivers messages over SMTP using the configured relay.
type SMTPMailer struct {
	cfg    config.MailConfig
	logger *slog.Logger
}

// Ensure SMTPMailer implements Mailer
var _ Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer creates a Mailer backed by the SMTP relay in cfg.
// If log is nil, the default logger is used.
func NewSMTPMailer(cfg config.MailConfig, log *slog.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("mail host is not configured")
	}
	if log == nil {
		log = slog.Default()
	}

	return &SMTPMailer{
		cfg:    cfg,
		logger: log.With(slog.String("component", "smtp_mailer")),
	}, nil
}

// Send implements Mailer.Send
// A new client is dialed per message; notification email volume is low
// enough that connection reuse is not worth the session management.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	log := logger.FromContextOrDefault(ctx, m.logger)

	message := gomail.NewMsg()
	if err := message.FromFormat(m.cfg.FromName, m.cfg.FromAddress); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := message.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	message.Subject(msg.Subject)
	message.SetBodyString(gomail.TypeTextPlain, msg.Body)

	opts := []gomail.Option{
		gomail.WithPort(m.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.cfg.Username),
			gomail.WithPassword(m.cfg.Password),
		)
	}

	client, err := gomail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, message); err != nil {
		log.Warn("failed to send email",
			slog.String("subject", msg.Subject),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Debug("email sent", slog.String("subject", msg.Subject))
	return nil
}

// NoopMailer discards all messages. It stands in for a real mailer when no
// SMTP relay is configured, keeping notification flows identical in both
// setups.
type NoopMailer struct {
	logger *slog.Logger
}

// Ensure NoopMailer implements Mailer
var _ Mailer = (*NoopMailer)(nil)

// NewNoopMailer creates a Mailer that logs and drops every message.
func NewNoopMailer(log *slog.Logger) *NoopMailer {
	if log == nil {
		log = slog.Default()
	}
	return &NoopMailer{
		logger: log.With(slog.String("component", "noop_mailer")),
	}
}

// Send implements Mailer.Send
func (m *NoopMailer) Send(ctx context.Context, msg Message) error {
	logger.FromContextOrDefault(ctx, m.logger).Debug("email delivery disabled, dropping message",
		slog.String("subject", msg.Subject))
	return nil
}
