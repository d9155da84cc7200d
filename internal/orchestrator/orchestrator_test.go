package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-genie/internal/common/logger"
	"rental-genie/internal/extractor"
	"rental-genie/internal/genai"
	"rental-genie/internal/models"
	"rental-genie/internal/notify"
	"rental-genie/internal/store"
)

type fakeExtraction struct {
	payload json.RawMessage
	err     error
}

func (f *fakeExtraction) Extract(_ context.Context, _ *genai.ExtractionRequest) (json.RawMessage, error) {
	return f.payload, f.err
}

type fakeReplier struct {
	reply         string
	err           error
	systemPrompts []string
}

func (f *fakeReplier) Generate(_ context.Context, systemPrompt, _ string) (string, error) {
	f.systemPrompts = append(f.systemPrompts, systemPrompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeNotifier struct {
	newSessions []notify.NewSessionEvent
	handoffs    []notify.HandoffEvent
}

func (f *fakeNotifier) NewSession(_ context.Context, event notify.NewSessionEvent) error {
	f.newSessions = append(f.newSessions, event)
	return nil
}

func (f *fakeNotifier) Handoff(_ context.Context, event notify.HandoffEvent) error {
	f.handoffs = append(f.handoffs, event)
	return nil
}

type fixture struct {
	orchestrator *Orchestrator
	store        *store.Store
	replier      *fakeReplier
	notifier     *fakeNotifier
}

// newFixture wires the orchestrator with a nil extraction capability so
// extraction runs through the deterministic rules, the way a deployment
// without a model key behaves.
func newFixture(t *testing.T, capability genai.ExtractionCapability) *fixture {
	t.Helper()
	log := logger.NewTestLogger(t)
	s := store.New(nil, log)
	ex := extractor.New(capability, extractor.Config{ConfidenceThreshold: 0.70, RecentTurnWindow: 2}, log)
	replier := &fakeReplier{reply: "Thanks! What's your occupation?"}
	notifier := &fakeNotifier{}
	o := New(s, ex, replier, notifier, nil, log, Config{RecentTurnWindow: 2, MissingFieldPromptThreshold: 3})
	return &fixture{orchestrator: o, store: s, replier: replier, notifier: notifier}
}

func TestHandleMessage_ExtractsMergesAndReplies(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	reply := f.orchestrator.HandleMessage(ctx, "I am 25 years old and work as a software engineer", "", "sess-1", "current")

	assert.Equal(t, "Thanks! What's your occupation?", reply)

	session := f.store.GetOrCreate(ctx, "sess-1")
	assert.Equal(t, 25, session.Profile.Age)
	assert.Equal(t, "software engineer", session.Profile.Occupation)
	require.Len(t, session.History, 1)
	assert.Equal(t, 1, session.Profile.ConversationTurns)
}

func TestHandleMessage_LLMExtractionPath(t *testing.T) {
	capability := &fakeExtraction{payload: json.RawMessage(`{
		"fields": {"age": {"value": "31", "confidence": 0.92}}
	}`)}
	f := newFixture(t, capability)
	ctx := context.Background()

	f.orchestrator.HandleMessage(ctx, "thirty-one here", "", "sess-1", "current")

	assert.Equal(t, 31, f.store.GetOrCreate(ctx, "sess-1").Profile.Age)
}

func TestHandleMessage_FirstTurnNotifiesOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.orchestrator.HandleMessage(ctx, "Hello, I am 25 years old", "", "sess-1", "current")
	f.orchestrator.HandleMessage(ctx, "I work as a nurse", "", "sess-1", "current")

	require.Len(t, f.notifier.newSessions, 1)
	event := f.notifier.newSessions[0]
	assert.Equal(t, "sess-1", event.SessionID)
	assert.Equal(t, "Hello, I am 25 years old", event.FirstMessage)
	assert.Contains(t, event.ExtractedFields, "age")
}

func TestHandleMessage_ManualHandoff(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	reply := f.orchestrator.HandleMessage(ctx, "I want to speak to someone", "", "sess-1", "current")

	// The tenant-facing text never mentions a handoff happened.
	assert.Equal(t, handoffReply, reply)
	assert.NotContains(t, reply, "handoff")

	require.Len(t, f.notifier.handoffs, 1)
	event := f.notifier.handoffs[0]
	assert.Equal(t, models.PriorityMedium, event.Priority)
	assert.Contains(t, event.Reason, "speak to someone")

	// The triggering message is not part of the history.
	session := f.store.GetOrCreate(ctx, "sess-1")
	assert.Empty(t, session.History)
	assert.True(t, session.HandoffCompleted)
}

func TestHandleMessage_EmotionalEscalationClosesSession(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first := f.orchestrator.HandleMessage(ctx, "I'm frustrated, this is urgent!", "", "sess-1", "current")
	second := f.orchestrator.HandleMessage(ctx, "I'm still angry and upset", "", "sess-1", "current")

	assert.Equal(t, handoffReply, first)
	assert.Equal(t, closedSessionReply, second)

	require.Len(t, f.notifier.handoffs, 1)
	assert.Equal(t, models.PriorityHigh, f.notifier.handoffs[0].Priority)
	assert.True(t, f.store.HandoffCompleted(ctx, "sess-1"))
}

func TestHandleMessage_ConcurrentSameSessionTurnsAreSerialized(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	const goroutines = 8
	const perGoroutine = 25

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				f.orchestrator.HandleMessage(ctx, "I am 25 years old and work as a software engineer", "", "sess-1", "current")
			}
		}()
	}
	wg.Wait()

	session := f.store.GetOrCreate(ctx, "sess-1")
	assert.Len(t, session.History, goroutines*perGoroutine)
	assert.Equal(t, goroutines*perGoroutine, session.Profile.ConversationTurns)
	assert.Equal(t, 25, session.Profile.Age)
}

func TestHandleMessage_ConcurrentHandoffClosesSessionOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	const goroutines = 10
	replies := make([]string, goroutines)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			replies[i] = f.orchestrator.HandleMessage(ctx, "I'm frustrated, this is urgent!", "", "sess-1", "current")
		}(g)
	}
	wg.Wait()

	// Exactly one turn performs the handoff; every other one sees the
	// terminal session and gets the closing text.
	handoffs, closed := 0, 0
	for _, reply := range replies {
		switch reply {
		case handoffReply:
			handoffs++
		case closedSessionReply:
			closed++
		}
	}
	assert.Equal(t, 1, handoffs)
	assert.Equal(t, goroutines-1, closed)
	assert.Len(t, f.notifier.handoffs, 1)
	assert.Empty(t, f.store.GetOrCreate(ctx, "sess-1").History)
}

func TestHandleMessage_TerminalSessionIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.store.MarkHandoff(ctx, "sess-1")

	reply := f.orchestrator.HandleMessage(ctx, "I am 40 years old", "", "sess-1", "current")

	assert.Equal(t, closedSessionReply, reply)
	session := f.store.GetOrCreate(ctx, "sess-1")
	assert.Zero(t, session.Profile.Age)
	assert.Empty(t, session.History)
	assert.Zero(t, session.Profile.ConversationTurns)
}

func TestHandleMessage_ReplyFailureReturnsApology(t *testing.T) {
	f := newFixture(t, nil)
	f.replier.err = errors.New("model unavailable")
	ctx := context.Background()

	reply := f.orchestrator.HandleMessage(ctx, "I am 25 years old", "", "sess-1", "current")

	assert.Equal(t, apologyReply, reply)
	// No turn is recorded for a failed exchange.
	assert.Empty(t, f.store.GetOrCreate(ctx, "sess-1").History)
}

func TestHandleMessage_SixMessagesQualifyProfile(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	messages := []string{
		"I am 25 years old",
		"male",
		"I work as a software engineer",
		"I want to move in on january 15th",
		"I want to stay for 6 months",
		"I have a guarantor",
	}
	for _, msg := range messages {
		f.orchestrator.HandleMessage(ctx, msg, "", "sess-1", "current")
	}

	status := f.orchestrator.GetProfileStatus(ctx, "sess-1")
	assert.True(t, status.ProfileComplete)
	assert.Empty(t, status.MissingFields)
	assert.Equal(t, string(models.StatusQualified), status.Status)
	assert.Equal(t, 6, status.Turns)
}

func TestHandleMessage_MissingFieldsPromptedOnlyBelowThreshold(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	// Six fields missing: the prompt lists them.
	f.orchestrator.HandleMessage(ctx, "Hello there, anything free?", "", "sess-1", "current")
	require.Len(t, f.replier.systemPrompts, 1)
	assert.Contains(t, f.replier.systemPrompts[0], "Missing required information")

	// Down to two missing fields: the model is no longer nagged.
	f.store.MergeUpdate(ctx, "sess-1", models.FieldUpdates{
		Age:        models.Int(25),
		Sex:        models.String("female"),
		Occupation: models.String("nurse"),
		MoveInDate: models.String("asap"),
	})
	f.orchestrator.HandleMessage(ctx, "what else do you need?", "", "sess-1", "current")
	require.Len(t, f.replier.systemPrompts, 2)
	assert.NotContains(t, f.replier.systemPrompts[1], "Missing required information")
}

func TestHandleMessage_StripsEmbeddedJSON(t *testing.T) {
	f := newFixture(t, nil)
	f.replier.reply = "Happy to help! {\"handoff_triggered\": \"false\", \"summary\": \"\"}"
	ctx := context.Background()

	reply := f.orchestrator.HandleMessage(ctx, "Hello, I am 25 years old", "", "sess-1", "current")

	assert.Equal(t, "Happy to help!", reply)
}

func TestStripEmbeddedJSON_LeavesProseBracesAlone(t *testing.T) {
	reply := "Rent is 800 EUR {utilities included} per month"
	assert.Equal(t, reply, stripEmbeddedJSON(reply))
}

func TestGetProfileStatus_NewSession(t *testing.T) {
	f := newFixture(t, nil)

	status := f.orchestrator.GetProfileStatus(context.Background(), "sess-1")

	assert.False(t, status.ProfileComplete)
	assert.Len(t, status.MissingFields, 6)
	assert.Zero(t, status.Turns)
	assert.False(t, status.HandoffCompleted)
	assert.Equal(t, string(models.StatusProspect), status.Status)
}

func TestClearSession(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.orchestrator.HandleMessage(ctx, "I am 25 years old", "", "sess-1", "current")
	require.NoError(t, f.orchestrator.ClearSession(ctx, "sess-1"))

	status := f.orchestrator.GetProfileStatus(ctx, "sess-1")
	assert.Zero(t, status.Turns)
	assert.Len(t, status.MissingFields, 6)
}
