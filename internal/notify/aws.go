package notify

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// snsPublisher adapts the AWS SNS client to the Publisher interface so the
// notifier can be tested against a fake.
type snsPublisher struct {
	client *sns.Client
}

// NewSNSPublisher builds the SNS-backed publisher that carries new-session
// and handoff events to the property owner's topic.
func NewSNSPublisher(ctx context.Context, region string) (Publisher, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &snsPublisher{client: sns.NewFromConfig(cfg)}, nil
}

func (p *snsPublisher) Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	return p.client.Publish(ctx, input)
}

// sesSender adapts the AWS SES client to the EmailSender interface used for
// high-priority handoff escalation emails.
type sesSender struct {
	client *ses.Client
}

func NewSESSender(ctx context.Context, region string) (EmailSender, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &sesSender{client: ses.NewFromConfig(cfg)}, nil
}

func (s *sesSender) SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	return s.client.SendEmail(ctx, input)
}
