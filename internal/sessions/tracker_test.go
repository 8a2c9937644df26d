package sessions_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"gigflow/internal/events"
	"gigflow/internal/rules"
	"gigflow/internal/sessions"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newTracker(t *testing.T, store sessions.Store) *sessions.Tracker {
	t.Helper()
	rs, err := rules.Default()
	require.NoError(t, err)
	return sessions.NewTracker(store, rules.NewProvider(rs), events.Discard, zap.NewNop().Sugar(),
		sessions.WithClock(func() time.Time { return t0 }))
}

func msg(text, gig string) sessions.IngestRequest {
	return sessions.IngestRequest{
		Text:       text,
		FromUserID: "provider-1",
		ToUserID:   "customer-1",
		GigID:      gig,
		Source:     sessions.SourceMessage,
	}
}

func TestIngestTextCreatesPendingSession(t *testing.T) {
	tr := newTracker(t, sessions.NewMemoryStore())
	ctx := context.Background()

	s, created, err := tr.IngestText(ctx, msg("Thanks again, all done!", "gig-1"))
	require.NoError(t, err)
	require.True(t, created)

	assert.Equal(t, "gig-1", s.GigID)
	assert.Equal(t, "provider-1", s.ProviderID)
	assert.Equal(t, "customer-1", s.CustomerID)
	assert.Equal(t, sessions.StatusPendingReview, s.Status)
	assert.Equal(t, sessions.SourceMessage, s.Source)
	assert.Equal(t, t0, s.CreatedAt)
	assert.False(t, s.CustomerPrompted)
	assert.False(t, s.ProviderPrompted)
}

func TestIngestTextWithoutPhraseIsIgnored(t *testing.T) {
	tr := newTracker(t, sessions.NewMemoryStore())

	s, created, err := tr.IngestText(context.Background(), msg("On my way, running 5 minutes late", "gig-1"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Nil(t, s)

	pending, err := tr.PendingForUser(context.Background(), "customer-1")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestIngestTextIsIdempotentPerGig(t *testing.T) {
	tr := newTracker(t, sessions.NewMemoryStore())
	ctx := context.Background()

	first, created, err := tr.IngestText(ctx, msg("all done here", "gig-1"))
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := tr.IngestText(ctx, msg("Finished up, we are all set", "gig-1"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	pending, err := tr.PendingForUser(ctx, "provider-1")
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	// A different gig is independent.
	_, created, err = tr.IngestText(ctx, msg("job is done", "gig-2"))
	require.NoError(t, err)
	assert.True(t, created)
}

func TestIngestTextValidatesIDs(t *testing.T) {
	tr := newTracker(t, sessions.NewMemoryStore())

	for _, req := range []sessions.IngestRequest{
		{Text: "all done", FromUserID: "p", ToUserID: "c"},
		{Text: "all done", ToUserID: "c", GigID: "g"},
		{Text: "all done", FromUserID: "p", GigID: "g"},
		{Text: "all done", FromUserID: "  ", ToUserID: "c", GigID: "g"},
	} {
		_, _, err := tr.IngestText(context.Background(), req)
		require.ErrorIs(t, err, sessions.ErrInvalidInput)
	}
}

func TestIngestTextProviderAssignment(t *testing.T) {
	tr := newTracker(t, sessions.NewMemoryStore())

	req := msg("all done, thank you!", "gig-1")
	req.FromUserID, req.ToUserID = "customer-1", "provider-1"
	req.ProviderID = "provider-1"
	req.Source = sessions.SourceVoice

	s, created, err := tr.IngestText(context.Background(), req)
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, "provider-1", s.ProviderID)
	assert.Equal(t, "customer-1", s.CustomerID)
	assert.Equal(t, sessions.SourceVoice, s.Source)

	req = msg("all done", "gig-2")
	req.FromUserID, req.ToUserID = "customer-1", "provider-1"
	req.ProviderID = "someone-else"
	s, created, err = tr.IngestText(context.Background(), req)
	require.ErrorIs(t, err, sessions.ErrInvalidInput)
	assert.False(t, created)
	assert.Nil(t, s)

	pending, err := tr.PendingForUser(context.Background(), "customer-1")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestMarkPrompted(t *testing.T) {
	tr := newTracker(t, sessions.NewMemoryStore())
	ctx := context.Background()

	s, _, err := tr.IngestText(ctx, msg("all done", "gig-1"))
	require.NoError(t, err)

	require.NoError(t, tr.MarkPrompted(ctx, s.ID, "customer-1"))
	got, err := tr.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.CustomerPrompted)
	assert.False(t, got.ProviderPrompted)
	assert.Equal(t, sessions.StatusPendingReview, got.Status)

	require.NoError(t, tr.MarkPrompted(ctx, s.ID, "provider-1"))
	got, err = tr.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.ProviderPrompted)
	assert.Equal(t, sessions.StatusPendingReview, got.Status)

	// Unknown sessions and strangers are silent no-ops.
	require.NoError(t, tr.MarkPrompted(ctx, uuid.New(), "customer-1"))
	require.NoError(t, tr.MarkPrompted(ctx, s.ID, "someone-else"))
}

func TestTransitions(t *testing.T) {
	store := sessions.NewMemoryStore()
	tr := newTracker(t, store)
	ctx := context.Background()

	s, _, err := tr.IngestText(ctx, msg("all done", "gig-1"))
	require.NoError(t, err)

	_, err = tr.Complete(ctx, s.ID)
	require.ErrorIs(t, err, sessions.ErrInvalidTransition)

	cancelled, err := tr.Cancel(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, sessions.StatusCancelled, cancelled.Status)

	// Once cancelled, the gig can open a fresh session.
	again, created, err := tr.IngestText(ctx, msg("all done for real", "gig-1"))
	require.NoError(t, err)
	require.True(t, created)
	assert.NotEqual(t, s.ID, again.ID)

	promoted, err := tr.PromoteDue(ctx, t0)
	require.NoError(t, err)
	require.Len(t, promoted, 1)

	completed, err := tr.Complete(ctx, again.ID)
	require.NoError(t, err)
	assert.Equal(t, sessions.StatusCompleted, completed.Status)

	_, err = tr.Cancel(ctx, uuid.New())
	require.ErrorIs(t, err, sessions.ErrNotFound)
}

func TestConcurrentIngestCreatesOneSession(t *testing.T) {
	tr := newTracker(t, sessions.NewMemoryStore())
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, ok, err := tr.IngestText(ctx, msg(fmt.Sprintf("all done #%d", i), "gig-1"))
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	pending, err := tr.PendingForUser(ctx, "customer-1")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestIngestPublishesSessionCreated(t *testing.T) {
	rs, err := rules.Default()
	require.NoError(t, err)
	bus := events.NewBus(zap.NewNop().Sugar())
	got := make(chan events.Event, 2)
	bus.Subscribe(events.TopicSessionCreated, func(_ context.Context, e events.Event) { got <- e })

	tr := sessions.NewTracker(sessions.NewMemoryStore(), rules.NewProvider(rs), bus, zap.NewNop().Sugar())
	ctx := context.Background()
	_, _, err = tr.IngestText(ctx, msg("all done", "gig-1"))
	require.NoError(t, err)
	_, _, err = tr.IngestText(ctx, msg("all done again", "gig-1"))
	require.NoError(t, err)
	bus.Close()

	require.Len(t, got, 1)
	e := <-got
	s, ok := e.Payload.(sessions.ServiceSession)
	require.True(t, ok)
	assert.Equal(t, "gig-1", s.GigID)
}
