package pushtokens

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.AddOrUpdatePushToken(ctx, "u1", "ExponentPushToken[a]", nil))
	require.NoError(t, s.AddOrUpdatePushToken(ctx, "u2", "ExponentPushToken[b]", nil))

	now = now.Add(48 * time.Hour)
	require.NoError(t, s.AddOrUpdatePushToken(ctx, "u1", "ExponentPushToken[c]", nil))

	got, err := s.GetTokensByUserIDs(ctx, []string{"u1", "u2", "u3"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ExponentPushToken[a]", "ExponentPushToken[c]"}, got["u1"])
	assert.Equal(t, []string{"ExponentPushToken[b]"}, got["u2"])
	assert.NotContains(t, got, "u3")

	require.NoError(t, s.PruneStaleTokens(ctx, 24*time.Hour))
	got, err = s.GetTokensByUserIDs(ctx, []string{"u1", "u2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ExponentPushToken[c]"}, got["u1"])
	assert.Empty(t, got["u2"])

	require.NoError(t, s.RemoveTokensByTokenList(ctx, []string{"ExponentPushToken[c]"}))
	require.NoError(t, s.RemovePushToken(ctx, "u9", "missing"))
	got, err = s.GetTokensByUserIDs(ctx, []string{"u1"})
	require.NoError(t, err)
	assert.Empty(t, got)
}
