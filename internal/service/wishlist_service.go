package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"caku/internal/apperr"
	"caku/internal/clients/pricewatch"
	"caku/internal/models"
)

type PriceLookup interface {
	Lookup(ctx context.Context, keyword string) (pricewatch.Quote, error)
}

// PriceDrop is reported when a refreshed price is lower than the stored one.
type PriceDrop struct {
	Item     models.WishlistItem
	OldPrice int64
	NewPrice int64
}

type WishlistService struct {
	store  WishlistStore
	prices PriceLookup
	now    func() time.Time
	log    zerolog.Logger
}

func NewWishlistService(store WishlistStore, prices PriceLookup, log zerolog.Logger) *WishlistService {
	return &WishlistService{store: store, prices: prices, now: time.Now, log: log}
}

func (s *WishlistService) Add(ctx context.Context, userID string, name string) (models.WishlistItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.WishlistItem{}, ErrEmptyWishlist
	}
	item, err := s.store.Add(ctx, userID, name)
	if err != nil {
		return models.WishlistItem{}, apperr.Downstream("gagal menyimpan wishlist", err)
	}
	return item, nil
}

func (s *WishlistService) List(ctx context.Context, userID string) ([]models.WishlistItem, error) {
	items, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Downstream("gagal memuat wishlist", err)
	}
	return items, nil
}

func (s *WishlistService) Remove(ctx context.Context, userID string, id int64) error {
	n, err := s.store.Delete(ctx, id, userID)
	if err != nil {
		return apperr.Downstream("gagal menghapus wishlist", err)
	}
	if n == 0 {
		return apperr.NotFound("Item wishlist tidak ditemukan.")
	}
	return nil
}

// Refresh looks the item up again and stores the new quote. A missing
// price keeps the previous one.
func (s *WishlistService) Refresh(ctx context.Context, item models.WishlistItem) (*PriceDrop, error) {
	if s.prices == nil {
		return nil, apperr.Validation("Pencarian harga tidak tersedia.")
	}
	quote, err := s.prices.Lookup(ctx, item.Name)
	if errors.Is(err, pricewatch.ErrNoListing) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Downstream("gagal mengambil harga", err)
	}

	price := quote.Price
	if price == nil {
		price = item.Price
	}
	url := item.URL
	if quote.URL != "" {
		u := quote.URL
		url = &u
	}

	if err := s.store.UpdatePrice(ctx, item.ID, price, url, s.now()); err != nil {
		return nil, apperr.Downstream("gagal menyimpan harga", err)
	}

	var drop *PriceDrop
	if item.Price != nil && quote.Price != nil && *quote.Price < *item.Price {
		drop = &PriceDrop{Item: item, OldPrice: *item.Price, NewPrice: *quote.Price}
	}
	return drop, nil
}

// RefreshUser refreshes every item of one user and returns the fresh list.
func (s *WishlistService) RefreshUser(ctx context.Context, userID string) ([]models.WishlistItem, []PriceDrop, error) {
	items, err := s.List(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	drops := s.refreshEach(ctx, items)
	items, err = s.List(ctx, userID)
	return items, drops, err
}

// RefreshAll walks every stored item. Individual failures are logged and
// skipped.
func (s *WishlistService) RefreshAll(ctx context.Context) ([]PriceDrop, error) {
	items, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, apperr.Downstream("gagal memuat wishlist", err)
	}
	return s.refreshEach(ctx, items), nil
}

func (s *WishlistService) refreshEach(ctx context.Context, items []models.WishlistItem) []PriceDrop {
	var drops []PriceDrop
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		drop, err := s.Refresh(ctx, item)
		if err != nil {
			s.log.Warn().Err(err).Int64("item_id", item.ID).Str("name", item.Name).Msg("wishlist refresh failed")
			continue
		}
		if drop != nil {
			drops = append(drops, *drop)
		}
	}
	return drops
}
