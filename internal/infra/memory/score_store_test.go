package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popquiz-service/internal/domain"
)

func TestScoreStoreAppends(t *testing.T) {
	at := time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)
	store := NewScoreStoreWithClock(func() time.Time { return at })
	ctx := context.Background()

	require.NoError(t, store.SubmitScore(ctx, "u1", "Science", 3, 4))
	require.NoError(t, store.SubmitScore(ctx, "u1", "Science", 3, 4))

	records, err := store.ListScores(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.NotEqual(t, records[0].ID, records[1].ID, "each submission is its own record")
	assert.Equal(t, 75, records[0].Percentage)
	assert.Equal(t, at, records[0].Timestamp)

	records[0].Score = 99
	again, _ := store.ListScores(ctx)
	assert.Equal(t, 3, again[0].Score, "records are not mutable through a listing")
}

func TestScoreStoreRespectsCancelledContext(t *testing.T) {
	store := NewScoreStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.SubmitScore(ctx, "u1", "Science", 1, 1)
	assert.ErrorIs(t, err, domain.ErrStore)
	records, _ := store.ListScores(context.Background())
	assert.Empty(t, records)
}

func TestScoreStoreSubscribe(t *testing.T) {
	store := NewScoreStore()
	ctx := context.Background()

	ch, cancel, err := store.Subscribe(ctx)
	require.NoError(t, err)
	assert.Empty(t, <-ch)
	assert.Equal(t, 1, store.SubscriberCount())

	require.NoError(t, store.SubmitScore(ctx, "u1", "History", 1, 2))
	require.NoError(t, store.SubmitScore(ctx, "u2", "History", 2, 2))

	// Only the newest snapshot is kept for a slow reader.
	latest := <-ch
	assert.Len(t, latest, 2)

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, store.SubscriberCount())
}
