package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gigflow/internal/events"
	"gigflow/internal/pushtokens"
	"gigflow/internal/scheduler"
	"gigflow/internal/sessions"

	"github.com/9ssi7/exponent"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	mu       sync.Mutex
	failures int
	calls    int
	sent     []*exponent.Message
}

func (f *fakeSender) Publish(_ context.Context, msgs []*exponent.Message) ([]*exponent.MessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("expo unavailable")
	}
	f.sent = append(f.sent, msgs...)
	return nil, nil
}

func (f *fakeSender) PublishSingle(ctx context.Context, msg *exponent.Message) ([]*exponent.MessageResponse, error) {
	return f.Publish(ctx, []*exponent.Message{msg})
}

func newTestNotifier(t *testing.T, push PushSender) (*PromptNotifier, *pushtokens.MemoryStore) {
	t.Helper()
	tokens := pushtokens.NewMemoryStore()
	n := NewPromptNotifier(push, tokens, zap.NewNop().Sugar())
	n.newBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), maxPushRetries)
	}
	return n, tokens
}

func promptFor(role string) scheduler.PromptPayload {
	return scheduler.PromptPayload{
		Session: sessions.ServiceSession{ID: uuid.New(), GigID: "gig-7", CustomerID: "c1", ProviderID: "p1"},
		Role:    role,
	}
}

func TestSendReviewPromptDedupesTokens(t *testing.T) {
	push := &fakeSender{}
	n, tokens := newTestNotifier(t, push)
	ctx := context.Background()
	require.NoError(t, tokens.AddOrUpdatePushToken(ctx, "c1", "ExponentPushToken[x]", nil))
	require.NoError(t, tokens.AddOrUpdatePushToken(ctx, "c1", "ExponentPushToken[y]", nil))

	require.NoError(t, n.SendReviewPrompt(ctx, "c1", promptFor("customer")))

	require.Len(t, push.sent, 2)
	msg := push.sent[0]
	assert.Equal(t, reviewPromptTitle, msg.Title)
	assert.Equal(t, "review_prompt", msg.Data["type"])
	assert.Equal(t, "gig-7", msg.Data["gig_id"])
	assert.Equal(t, "gigs/gig-7/review", msg.Data["screen"])
}

func TestSendReviewPromptNoTokens(t *testing.T) {
	push := &fakeSender{}
	n, _ := newTestNotifier(t, push)

	err := n.SendReviewPrompt(context.Background(), "nobody", promptFor("provider"))
	require.ErrorIs(t, err, ErrNoPushTokens)
	assert.Zero(t, push.calls)
}

func TestSendReviewPromptRetries(t *testing.T) {
	push := &fakeSender{failures: 2}
	n, tokens := newTestNotifier(t, push)
	ctx := context.Background()
	require.NoError(t, tokens.AddOrUpdatePushToken(ctx, "p1", "ExponentPushToken[p]", nil))

	require.NoError(t, n.SendReviewPrompt(ctx, "p1", promptFor("provider")))
	assert.Equal(t, 3, push.calls)
	require.Len(t, push.sent, 1)
	assert.Equal(t, "provider", push.sent[0].Data["role"])
}

func TestSendReviewPromptGivesUp(t *testing.T) {
	push := &fakeSender{failures: 10}
	n, tokens := newTestNotifier(t, push)
	ctx := context.Background()
	require.NoError(t, tokens.AddOrUpdatePushToken(ctx, "p1", "ExponentPushToken[p]", nil))

	require.Error(t, n.SendReviewPrompt(ctx, "p1", promptFor("provider")))
	assert.Equal(t, maxPushRetries+1, push.calls)
}

func TestHandleIgnoresMalformedEvents(t *testing.T) {
	push := &fakeSender{}
	n, _ := newTestNotifier(t, push)

	n.Handle(context.Background(), events.Event{Topic: events.TopicPromptAvailable, UserID: "c1", Payload: "nope"})
	assert.Zero(t, push.calls)
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, dedupe([]string{"a", "", "b", "a"}))
	assert.Empty(t, dedupe(nil))
}
