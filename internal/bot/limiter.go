package bot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterSweepEvery = time.Minute

type limiterEntry struct {
	limiter *rate.Limiter
	seen    time.Time
}

// senderLimiter keeps one token bucket per sender. Buckets idle long enough
// to have refilled completely are dropped, since a fresh bucket is identical.
type senderLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	rate      rate.Limit
	burst     int
	refill    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// newSenderLimiter returns nil when limiting is disabled (rps <= 0).
func newSenderLimiter(rps float64, burst int) *senderLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &senderLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(rps),
		burst:    burst,
		refill:   time.Duration(float64(burst) / rps * float64(time.Second)),
		now:      time.Now,
	}
}

func (l *senderLimiter) Allow(sender string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= limiterSweepEvery {
		l.sweep(now)
	}

	entry, ok := l.limiters[sender]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[sender] = entry
	}
	entry.seen = now
	return entry.limiter.AllowN(now, 1)
}

func (l *senderLimiter) sweep(now time.Time) {
	for sender, entry := range l.limiters {
		if now.Sub(entry.seen) >= l.refill {
			delete(l.limiters, sender)
		}
	}
	l.lastSweep = now
}

func (l *senderLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
