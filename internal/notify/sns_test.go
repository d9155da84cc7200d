package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-genie/internal/common/logger"
	"rental-genie/internal/models"
)

type fakePublisher struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, input)
	return &sns.PublishOutput{}, nil
}

type fakeSender struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (f *fakeSender) SendEmail(_ context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, input)
	return &ses.SendEmailOutput{}, nil
}

func newTestNotifier(t *testing.T, publisher Publisher, sender EmailSender, emailEnabled bool) *SNSNotifier {
	t.Helper()
	n := NewSNSNotifier(publisher, sender, SNSConfig{
		TopicARN:     "arn:aws:sns:eu-west-1:000000000000:rental-genie",
		EmailEnabled: emailEnabled,
		FromEmail:    "genie@example.com",
		ToEmail:      "owner@example.com",
	}, logger.NewTestLogger(t))
	n.newID = func() string { return "event-1" }
	return n
}

func TestNewSession_PublishesEnvelope(t *testing.T) {
	publisher := &fakePublisher{}
	n := newTestNotifier(t, publisher, nil, false)

	err := n.NewSession(context.Background(), NewSessionEvent{
		SessionID:    "sess-1",
		FirstMessage: "Hello, I am 25 years old",
	})

	require.NoError(t, err)
	require.Len(t, publisher.inputs, 1)
	input := publisher.inputs[0]
	assert.Contains(t, *input.Subject, "sess-1")
	assert.Equal(t, "new_session", *input.MessageAttributes["kind"].StringValue)

	var env map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(*input.Message), &env))
	assert.Equal(t, "event-1", env["event_id"])
	assert.Equal(t, "new_session", env["kind"])
}

func TestHandoff_PublishFailure(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("throttled")}
	n := newTestNotifier(t, publisher, nil, false)

	err := n.Handoff(context.Background(), HandoffEvent{
		SessionID: "sess-1",
		Reason:    "Emotional situation detected",
		Priority:  models.PriorityHigh,
	})

	assert.Error(t, err)
}

func TestHandoff_HighPrioritySendsEmail(t *testing.T) {
	publisher := &fakePublisher{}
	sender := &fakeSender{}
	n := newTestNotifier(t, publisher, sender, true)

	err := n.Handoff(context.Background(), HandoffEvent{
		SessionID: "sess-1",
		Reason:    "Emotional situation detected",
		Priority:  models.PriorityHigh,
		Summary:   "Collected information:\n  age: 25\n",
	})

	require.NoError(t, err)
	require.Len(t, sender.inputs, 1)
	input := sender.inputs[0]
	assert.Equal(t, "genie@example.com", *input.Source)
	assert.Equal(t, []string{"owner@example.com"}, input.Destination.ToAddresses)
	assert.Contains(t, *input.Message.Body.Text.Data, "Emotional situation detected")
}

func TestHandoff_MediumPrioritySkipsEmail(t *testing.T) {
	publisher := &fakePublisher{}
	sender := &fakeSender{}
	n := newTestNotifier(t, publisher, sender, true)

	err := n.Handoff(context.Background(), HandoffEvent{
		SessionID: "sess-1",
		Reason:    "Explicit request for human",
		Priority:  models.PriorityMedium,
	})

	require.NoError(t, err)
	assert.Empty(t, sender.inputs)
	assert.Len(t, publisher.inputs, 1)
}

func TestHandoff_EmailDisabled(t *testing.T) {
	publisher := &fakePublisher{}
	sender := &fakeSender{}
	n := newTestNotifier(t, publisher, sender, false)

	err := n.Handoff(context.Background(), HandoffEvent{
		SessionID: "sess-1",
		Priority:  models.PriorityUrgent,
	})

	require.NoError(t, err)
	assert.Empty(t, sender.inputs)
}
