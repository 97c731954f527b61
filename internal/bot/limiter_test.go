package bot

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caku/internal/testutil"
)

func TestSenderLimiterDisabled(t *testing.T) {
	l := newSenderLimiter(0, 5)
	assert.Nil(t, l)
	assert.True(t, l.Allow("anyone"))
}

func TestSenderLimiterForgetsRefilledSenders(t *testing.T) {
	clock := testutil.NewClock(time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC))
	l := newSenderLimiter(1, 2)
	require.NotNil(t, l)
	l.now = clock.Now

	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow(fmt.Sprintf("sender-%d", i)))
	}
	assert.True(t, l.Allow("flooder"))
	assert.True(t, l.Allow("flooder"))
	assert.False(t, l.Allow("flooder"))
	assert.Equal(t, 101, l.size())

	clock.Advance(limiterSweepEvery)
	assert.True(t, l.Allow("flooder"))
	assert.Equal(t, 1, l.size(), "idle senders are dropped once their bucket is full again")
}
