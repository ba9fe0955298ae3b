package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/simao-ai/rural-platform/pkg/logging"
)

// EmailSender delivers one email. Implementations can be swapped (SendGrid,
// SES, stub) without touching callers.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a single email to deliver.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
	HTML    string
}

// SendGridSender delivers through the SendGrid API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	log       *logging.Logger
}

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewSendGridSender returns nil when no API key is configured so callers can
// fall through to another sender.
func NewSendGridSender(cfg SendGridConfig, log *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if log == nil {
		log = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = "Simão IA Rural"
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		log:       log,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)

	html := msg.HTML
	if html == "" {
		html = msg.Body
	}
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, html)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		s.log.Error("sendgrid returned error status", "status", resp.StatusCode, "to", msg.To)
		return fmt.Errorf("notify: sendgrid returned status %d", resp.StatusCode)
	}
	s.log.Info("email sent", "provider", "sendgrid", "to", msg.To, "subject", msg.Subject)
	return nil
}

// StubEmailSender logs instead of sending. Used in tests and when email is
// disabled.
type StubEmailSender struct {
	log *logging.Logger
}

func NewStubEmailSender(log *logging.Logger) *StubEmailSender {
	if log == nil {
		log = logging.Default()
	}
	return &StubEmailSender{log: log}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	s.log.Info("stub email sender: would send", "to", msg.To, "subject", msg.Subject)
	return nil
}
