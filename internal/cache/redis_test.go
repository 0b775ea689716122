package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/linot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Needs a reachable Redis; set REDIS_ADDR to run it.
func TestActionQueueRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := Connect(ctx, addr, 0)
	require.NoError(t, err)
	defer rdb.Close()

	q := NewActionQueue(rdb, "linot_actions_test_"+uuid.NewString())
	rec := models.MatchAction{
		MatchID:       uuid.New(),
		ActionIndex:   1,
		ActorUserID:   uuid.New(),
		ActionType:    "draw_card",
		ActionPayload: map[string]interface{}{},
		Timestamp:     time.Now().UnixMilli(),
	}
	require.NoError(t, q.Publish(ctx, rec))

	got, ok, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec.MatchID, got.MatchID)
	assert.Equal(t, "draw_card", got.ActionType)

	_, ok, err = q.Pop(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}
