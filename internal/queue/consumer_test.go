package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyHandler struct {
	mu       sync.Mutex
	failures int
	seen     []string
}

func (h *flakyHandler) Handle(_ context.Context, msg redis.XMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, msg.ID)
	if h.failures > 0 {
		h.failures--
		return errors.New("transient")
	}
	return nil
}

func setup(t *testing.T, handler MessageHandler, claim time.Duration) (*Consumer, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewConsumer(client, "caku:tasks", "workers", "w1", claim, zerolog.Nop(), handler)
	require.NoError(t, c.EnsureGroup(context.Background()))
	require.NoError(t, c.EnsureGroup(context.Background()), "existing group is not an error")
	return c, client
}

func pendingCount(t *testing.T, client *redis.Client) int64 {
	t.Helper()
	p, err := client.XPending(context.Background(), "caku:tasks", "workers").Result()
	require.NoError(t, err)
	return p.Count
}

func TestReadOnceAcksHandledMessages(t *testing.T) {
	h := &flakyHandler{}
	c, client := setup(t, h, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{Stream: "caku:tasks", Values: map[string]any{"type": "wishlist_refresh"}}).Err())
	}

	require.NoError(t, c.ReadOnce(ctx, 10*time.Millisecond))
	assert.Len(t, h.seen, 3)
	assert.Zero(t, pendingCount(t, client))

	require.NoError(t, c.ReadOnce(ctx, 10*time.Millisecond), "an empty stream is not an error")
	assert.Len(t, h.seen, 3)
}

func TestFailedMessagesAreReclaimed(t *testing.T) {
	h := &flakyHandler{failures: 1}
	c, client := setup(t, h, 5*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{Stream: "caku:tasks", Values: map[string]any{"type": "wishlist_refresh"}}).Err())

	require.NoError(t, c.ReadOnce(ctx, 10*time.Millisecond))
	assert.Equal(t, int64(1), pendingCount(t, client))

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, c.ClaimStalled(ctx))
	assert.Zero(t, pendingCount(t, client))
	require.Len(t, h.seen, 2)
	assert.Equal(t, h.seen[0], h.seen[1])
}

func TestStartStopsOnCancel(t *testing.T) {
	c, _ := setup(t, &flakyHandler{}, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Start(ctx), context.Canceled)
}
