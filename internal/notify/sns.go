package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"

	commonerrors "rental-genie/internal/common/errors"
	"rental-genie/internal/common/logger"
	"rental-genie/internal/common/metrics"
	"rental-genie/internal/models"
)

// Publisher and EmailSender cover the AWS calls the notifier makes, so
// tests can stand in for the real clients.
type Publisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SNSConfig wires the notifier to a topic and, optionally, an escalation
// mailbox for urgent handoffs.
type SNSConfig struct {
	TopicARN     string
	EmailEnabled bool
	FromEmail    string
	ToEmail      string
}

// SNSNotifier publishes every event to one SNS topic. Urgent and high
// priority handoffs additionally go out as email when configured.
type SNSNotifier struct {
	publisher Publisher
	sender    EmailSender
	cfg       SNSConfig
	log       logger.Logger
	newID     func() string
}

func NewSNSNotifier(publisher Publisher, sender EmailSender, cfg SNSConfig, log logger.Logger) *SNSNotifier {
	return &SNSNotifier{
		publisher: publisher,
		sender:    sender,
		cfg:       cfg,
		log:       log,
		newID:     func() string { return uuid.New().String() },
	}
}

type envelope struct {
	EventID   string      `json:"event_id"`
	Kind      string      `json:"kind"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

func (n *SNSNotifier) NewSession(ctx context.Context, event NewSessionEvent) error {
	subject := fmt.Sprintf("New rental inquiry: %s", event.SessionID)
	return n.publish(ctx, "new_session", subject, event)
}

func (n *SNSNotifier) Handoff(ctx context.Context, event HandoffEvent) error {
	subject := fmt.Sprintf("Handoff [%s]: %s", event.Priority, event.SessionID)
	if err := n.publish(ctx, "handoff", subject, event); err != nil {
		return err
	}

	if n.escalatesByEmail(event.Priority) {
		if err := n.sendEmail(ctx, subject, event); err != nil {
			metrics.NotificationsSent.WithLabelValues("handoff_email", "failure").Inc()
			n.log.WithError(err).Error("handoff email failed", map[string]interface{}{
				"session_id": event.SessionID,
			})
			return commonerrors.NewNotificationSendFailedError(err.Error())
		}
		metrics.NotificationsSent.WithLabelValues("handoff_email", "success").Inc()
	}
	return nil
}

func (n *SNSNotifier) publish(ctx context.Context, kind, subject string, payload interface{}) error {
	body, err := json.Marshal(envelope{
		EventID:   n.newID(),
		Kind:      kind,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		return commonerrors.NewNotificationSendFailedError(err.Error())
	}

	_, err = n.publisher.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.cfg.TopicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"kind": {
				DataType:    aws.String("String"),
				StringValue: aws.String(kind),
			},
		},
	})
	if err != nil {
		metrics.NotificationsSent.WithLabelValues(kind, "failure").Inc()
		n.log.WithError(err).Error("sns publish failed", map[string]interface{}{
			"kind": kind,
		})
		return commonerrors.NewNotificationSendFailedError(err.Error())
	}

	metrics.NotificationsSent.WithLabelValues(kind, "success").Inc()
	return nil
}

func (n *SNSNotifier) escalatesByEmail(priority models.HandoffPriority) bool {
	if !n.cfg.EmailEnabled || n.sender == nil {
		return false
	}
	return priority == models.PriorityHigh || priority == models.PriorityUrgent
}

func (n *SNSNotifier) sendEmail(ctx context.Context, subject string, event HandoffEvent) error {
	body := fmt.Sprintf(
		"Session %s needs a human.\n\nReason: %s\nPriority: %s\n\n%s",
		event.SessionID, event.Reason, event.Priority, event.Summary,
	)

	_, err := n.sender.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.cfg.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{n.cfg.ToEmail},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
	})
	return err
}
