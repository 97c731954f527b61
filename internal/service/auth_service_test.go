package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caku/internal/apperr"
	"caku/internal/models"
	"caku/internal/repository"
	"caku/internal/testutil"
)

func newAuth(t *testing.T) (*AuthService, *testutil.FakeTokenStore, *testutil.Clock) {
	t.Helper()
	clock := testutil.NewClock(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
	store := testutil.NewFakeTokenStore(clock.Now)
	svc := NewAuthService(store, []string{"admin-1", " "}, zerolog.Nop()).WithClock(clock.Now)
	return svc, store, clock
}

func TestIssueTokenDefaults(t *testing.T) {
	svc, store, _ := newAuth(t)

	tok, err := svc.IssueToken(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, tok.Token, 8)
	assert.Equal(t, DefaultTokenDays, tok.ExpiresInDays)
	assert.Regexp(t, `^[A-Z0-9]{8}$`, tok.Token)

	stored, ok := store.Get(tok.Token)
	require.True(t, ok)
	assert.False(t, stored.Active)
	assert.Nil(t, stored.ActivatedAt)
}

func TestIssueTokenGivesUpOnPersistentCollision(t *testing.T) {
	svc, store, _ := newAuth(t)
	store.CreateErr = repository.ErrTokenDuplicate

	_, err := svc.IssueToken(context.Background(), 5)
	require.Error(t, err)
	assert.Equal(t, apperr.KindDownstream, apperr.KindOf(err))
}

func TestRedeemAtMostOnce(t *testing.T) {
	svc, _, _ := newAuth(t)
	ctx := context.Background()

	tok, err := svc.IssueToken(ctx, 5)
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  []string
		conflict int
	)
	for _, user := range []string{"u1", "u2", "u3", "u4", "u5", "u6"} {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			_, err := svc.Redeem(ctx, user, tok.Token)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, user)
				return
			}
			if assert.ErrorIs(t, err, ErrTokenAlreadyUsed) {
				conflict++
			}
		}(user)
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, 5, conflict)

	ok, err := svc.IsAuthorized(ctx, winners[0])
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.Redeem(ctx, winners[0], tok.Token)
	assert.ErrorIs(t, err, ErrTokenAlreadyUsed)
}

func TestRedeemUnknownAndCaseInsensitive(t *testing.T) {
	svc, _, _ := newAuth(t)
	ctx := context.Background()

	_, err := svc.Redeem(ctx, "u1", "NOPE1234")
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = svc.Redeem(ctx, "u1", "  ")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	tok, err := svc.IssueToken(ctx, 1)
	require.NoError(t, err)
	redeemed, err := svc.Redeem(ctx, "u1", " "+strings.ToLower(tok.Token)+" ")
	require.NoError(t, err)
	require.NotNil(t, redeemed.OwnerID)
	assert.Equal(t, "u1", *redeemed.OwnerID)
}

func TestTokenExpired(t *testing.T) {
	activated := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	tok := models.AccessToken{Active: true, ActivatedAt: &activated, ExpiresInDays: 3}

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"just activated", activated, false},
		{"two full days", activated.Add(48 * time.Hour), false},
		{"one second short", activated.Add(72*time.Hour - time.Second), false},
		{"three full days", activated.Add(72 * time.Hour), true},
		{"long after", activated.Add(30 * 24 * time.Hour), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TokenExpired(tok, tc.now))
		})
	}

	assert.False(t, TokenExpired(models.AccessToken{ExpiresInDays: 0}, activated.Add(time.Hour)))
}

func TestExpiryIsMonotonic(t *testing.T) {
	svc, store, clock := newAuth(t)
	ctx := context.Background()

	tok, err := svc.IssueToken(ctx, 2)
	require.NoError(t, err)
	_, err = svc.Redeem(ctx, "u1", tok.Token)
	require.NoError(t, err)

	clock.Advance(47 * time.Hour)
	ok, err := svc.IsAuthorized(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	clock.Advance(time.Hour)
	ok, err = svc.IsAuthorized(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	stored, _ := store.Get(tok.Token)
	assert.False(t, stored.Active)

	// Reaping again is harmless and nothing brings the token back.
	require.NoError(t, svc.ReapExpired(ctx, stored))
	for i := 0; i < 3; i++ {
		clock.Advance(time.Hour)
		ok, err = svc.IsAuthorized(ctx, "u1")
		require.NoError(t, err)
		assert.False(t, ok)
	}

	_, err = svc.Redeem(ctx, "u1", tok.Token)
	assert.ErrorIs(t, err, ErrTokenAlreadyUsed)
}

func TestFreshRedemptionReauthorizes(t *testing.T) {
	svc, _, clock := newAuth(t)
	ctx := context.Background()

	first, err := svc.IssueToken(ctx, 1)
	require.NoError(t, err)
	_, err = svc.Redeem(ctx, "u1", first.Token)
	require.NoError(t, err)

	clock.Advance(25 * time.Hour)
	ok, err := svc.IsAuthorized(ctx, "u1")
	require.NoError(t, err)
	require.False(t, ok)

	second, err := svc.IssueToken(ctx, 3)
	require.NoError(t, err)
	_, err = svc.Redeem(ctx, "u1", second.Token)
	require.NoError(t, err)

	ok, err = svc.IsAuthorized(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeactivate(t *testing.T) {
	svc, _, _ := newAuth(t)
	ctx := context.Background()

	tok, err := svc.IssueToken(ctx, 3)
	require.NoError(t, err)
	_, err = svc.Redeem(ctx, "u1", tok.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, "u1"))
	ok, err := svc.IsAuthorized(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, svc.Deactivate(ctx, "u1"), ErrNoActiveToken)
}

func TestListTokensStatuses(t *testing.T) {
	svc, _, clock := newAuth(t)
	ctx := context.Background()

	unused, err := svc.IssueToken(ctx, 3)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	active, err := svc.IssueToken(ctx, 3)
	require.NoError(t, err)
	_, err = svc.Redeem(ctx, "u1", active.Token)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	lapsed, err := svc.IssueToken(ctx, 1)
	require.NoError(t, err)
	_, err = svc.Redeem(ctx, "u2", lapsed.Token)
	require.NoError(t, err)

	clock.Advance(25 * time.Hour)

	views, err := svc.ListTokens(ctx)
	require.NoError(t, err)
	require.Len(t, views, 3)

	byToken := make(map[string]TokenView)
	for _, v := range views {
		byToken[v.Token] = v
	}
	assert.Equal(t, TokenUnused, byToken[unused.Token].Status)
	assert.Equal(t, TokenActive, byToken[active.Token].Status)
	assert.Equal(t, 2, byToken[active.Token].RemainingDays)
	assert.Equal(t, "u1", byToken[active.Token].OwnerID)
	assert.Equal(t, TokenLapsed, byToken[lapsed.Token].Status)
}

func TestIsAdmin(t *testing.T) {
	svc, _, _ := newAuth(t)
	assert.True(t, svc.IsAdmin("admin-1"))
	assert.False(t, svc.IsAdmin("admin-2"))
	assert.False(t, svc.IsAdmin(""))
	assert.Equal(t, []string{"admin-1"}, svc.Admins())
}
