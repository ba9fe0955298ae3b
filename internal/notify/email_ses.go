package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/simao-ai/rural-platform/pkg/logging"
)

// SESSender delivers through AWS SES. Preferred in production, SendGrid
// stays as the configurable alternative.
type SESSender struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
	log       *logging.Logger
}

type SESConfig struct {
	FromEmail string
	FromName  string
}

func NewSESSender(client *sesv2.Client, cfg SESConfig, log *logging.Logger) *SESSender {
	if client == nil {
		return nil
	}
	if log == nil {
		log = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = "Simão IA Rural"
	}
	return &SESSender{
		client:    client,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		log:       log,
	}
}

var _ EmailSender = (*SESSender)(nil)

func (s *SESSender) Send(ctx context.Context, msg EmailMessage) error {
	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(msg.Subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{},
			},
		},
	}
	if msg.Body != "" {
		input.Content.Simple.Body.Text = &types.Content{
			Data:    aws.String(msg.Body),
			Charset: aws.String("UTF-8"),
		}
	}
	if msg.HTML != "" {
		input.Content.Simple.Body.Html = &types.Content{
			Data:    aws.String(msg.HTML),
			Charset: aws.String("UTF-8"),
		}
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("notify: ses send: %w", err)
	}
	s.log.Info("email sent", "provider", "ses", "to", msg.To, "message_id", aws.ToString(out.MessageId))
	return nil
}
