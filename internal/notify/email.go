// Package notify delivers best-effort advisory emails to parents. Email is
// an external collaborator: failures are logged and never surfaced to the
// moderation path.
package notify

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

// Notifier sends an advisory to a parent's email address.
type Notifier interface {
	SendAdvisory(ctx context.Context, to, subject, body string) error
}

// SESNotifier sends mail through Amazon SES.
type SESNotifier struct {
	client *sesv2.Client
	sender string
	logger *zap.Logger
}

// NewSESNotifier constructs the notifier, or nil when region/sender are not
// configured (email disabled).
func NewSESNotifier(ctx context.Context, region, sender string, logger *zap.Logger) (*SESNotifier, error) {
	if region == "" || sender == "" {
		return nil, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}

	return &SESNotifier{
		client: sesv2.NewFromConfig(cfg),
		sender: sender,
		logger: logger,
	}, nil
}

// SendAdvisory delivers one plain-text email.
func (n *SESNotifier) SendAdvisory(ctx context.Context, to, subject, body string) error {
	_, err := n.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &n.sender,
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Text: &types.Content{Data: &body},
				},
			},
		},
	})
	if err != nil {
		n.logger.Warn("advisory email failed", zap.String("to", to), zap.Error(err))
	}
	return err
}
