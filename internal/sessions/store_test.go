package sessions_test

import (
	"context"
	"testing"
	"time"

	"gigflow/internal/sessions"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pending(gig string, created time.Time) *sessions.ServiceSession {
	return &sessions.ServiceSession{
		ID:         uuid.New(),
		GigID:      gig,
		ProviderID: "p-" + gig,
		CustomerID: "c-" + gig,
		CreatedAt:  created,
		Source:     sessions.SourceMessage,
		Status:     sessions.StatusPendingReview,
	}
}

func TestMemoryStorePromoteDueBoundary(t *testing.T) {
	store := sessions.NewMemoryStore()
	ctx := context.Background()

	older := pending("a", t0.Add(-time.Hour))
	exact := pending("b", t0)
	newer := pending("c", t0.Add(time.Nanosecond))
	for _, s := range []*sessions.ServiceSession{newer, exact, older} {
		_, created, err := store.CreateIfNoPending(ctx, s)
		require.NoError(t, err)
		require.True(t, created)
	}

	promoted, err := store.PromoteDue(ctx, t0)
	require.NoError(t, err)
	require.Len(t, promoted, 2)
	assert.Equal(t, older.ID, promoted[0].ID)
	assert.Equal(t, exact.ID, promoted[1].ID)
	for _, s := range promoted {
		assert.Equal(t, sessions.StatusReviewPrompted, s.Status)
		assert.True(t, s.CustomerPrompted)
		assert.True(t, s.ProviderPrompted)
	}

	got, err := store.Get(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, sessions.StatusPendingReview, got.Status)

	// Promotion is one-shot.
	again, err := store.PromoteDue(ctx, t0)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := sessions.NewMemoryStore()
	ctx := context.Background()

	s := pending("a", t0)
	stored, _, err := store.CreateIfNoPending(ctx, s)
	require.NoError(t, err)
	stored.Status = sessions.StatusCancelled
	s.Status = sessions.StatusCancelled

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, sessions.StatusPendingReview, got.Status)
}

func TestMemoryStoreListForUser(t *testing.T) {
	store := sessions.NewMemoryStore()
	ctx := context.Background()

	a := pending("a", t0)
	b := pending("b", t0)
	b.CustomerID = a.CustomerID
	for _, s := range []*sessions.ServiceSession{a, b} {
		_, _, err := store.CreateIfNoPending(ctx, s)
		require.NoError(t, err)
	}
	_, err := store.Transition(ctx, b.ID, sessions.StatusPendingReview, sessions.StatusCancelled)
	require.NoError(t, err)

	list, err := store.ListForUser(ctx, a.CustomerID, sessions.StatusPendingReview)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)

	list, err = store.ListForUser(ctx, a.CustomerID, sessions.StatusCancelled)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	list, err = store.ListForUser(ctx, "nobody", sessions.StatusPendingReview)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestServiceSessionMarkPrompted(t *testing.T) {
	s := pending("a", t0)

	assert.False(t, s.MarkPrompted("stranger"))
	assert.True(t, s.MarkPrompted(s.ProviderID))
	assert.True(t, s.ProviderPrompted)
	assert.False(t, s.CustomerPrompted)
	assert.True(t, s.Involves(s.CustomerID))
	assert.Equal(t, []string{s.CustomerID, s.ProviderID}, s.Participants())
}
