package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caku/internal/apperr"
	"caku/internal/clients/pricewatch"
	"caku/internal/testutil"
)

type stubPrices struct {
	quotes map[string]pricewatch.Quote
	err    error
}

func (s *stubPrices) Lookup(_ context.Context, keyword string) (pricewatch.Quote, error) {
	if s.err != nil {
		return pricewatch.Quote{}, s.err
	}
	q, ok := s.quotes[keyword]
	if !ok {
		return pricewatch.Quote{}, pricewatch.ErrNoListing
	}
	return q, nil
}

func i64(v int64) *int64 { return &v }

func TestWishlistAddRemove(t *testing.T) {
	store := testutil.NewFakeWishlistStore()
	svc := NewWishlistService(store, &stubPrices{}, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", "  ")
	assert.ErrorIs(t, err, ErrEmptyWishlist)

	item, err := svc.Add(ctx, "u1", "iphone 15")
	require.NoError(t, err)

	err = svc.Remove(ctx, "u2", item.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	require.NoError(t, svc.Remove(ctx, "u1", item.ID))
	items, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestWishlistRefreshDetectsDrop(t *testing.T) {
	store := testutil.NewFakeWishlistStore()
	prices := &stubPrices{quotes: map[string]pricewatch.Quote{
		"iphone 15": {Name: "iPhone 15", Price: i64(15_000_000), URL: "https://shop.test/1"},
	}}
	svc := NewWishlistService(store, prices, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", "iphone 15")
	require.NoError(t, err)
	_, err = svc.Add(ctx, "u1", "unobtainium")
	require.NoError(t, err)

	items, drops, err := svc.RefreshUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, drops, "first price is not a drop")
	require.Len(t, items, 2)
	require.NotNil(t, items[0].Price)
	assert.Equal(t, int64(15_000_000), *items[0].Price)
	assert.Equal(t, "https://shop.test/1", *items[0].URL)
	assert.Nil(t, items[1].Price)

	prices.quotes["iphone 15"] = pricewatch.Quote{Price: i64(14_000_000)}
	drops, err = svc.RefreshAll(ctx)
	require.NoError(t, err)
	require.Len(t, drops, 1)
	assert.Equal(t, int64(15_000_000), drops[0].OldPrice)
	assert.Equal(t, int64(14_000_000), drops[0].NewPrice)

	items, err = svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "https://shop.test/1", *items[0].URL, "an empty quote url keeps the old link")
}

func TestWishlistRefreshAllSkipsFailures(t *testing.T) {
	store := testutil.NewFakeWishlistStore()
	svc := NewWishlistService(store, &stubPrices{err: errors.New("quota exceeded")}, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", "kamera")
	require.NoError(t, err)

	drops, err := svc.RefreshAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, drops)
}
