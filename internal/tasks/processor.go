package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"caku/internal/bot"
	"caku/internal/metrics"
	"caku/internal/service"
)

const TypeWishlistRefresh = "wishlist_refresh"

type Notifier interface {
	SendText(ctx context.Context, to string, text string) error
}

type TaskPayload struct {
	Type   string `json:"type"`
	UserID string `json:"user_id,omitempty"`
}

// Values flattens the payload into stream fields.
func (p TaskPayload) Values() map[string]any {
	values := map[string]any{"type": p.Type}
	if p.UserID != "" {
		values["user_id"] = p.UserID
	}
	return values
}

// Enqueue appends a task to the stream.
func Enqueue(ctx context.Context, client *redis.Client, stream string, payload TaskPayload) error {
	return client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: payload.Values(),
	}).Err()
}

type Processor struct {
	wishlist *service.WishlistService
	notifier Notifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewProcessor(wishlist *service.WishlistService, notifier Notifier, m *metrics.Metrics, logger zerolog.Logger) *Processor {
	return &Processor{
		wishlist: wishlist,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	var payload TaskPayload
	if err := decodePayload(msg.Values, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	switch payload.Type {
	case TypeWishlistRefresh:
		return p.RefreshWishlist(ctx, payload.UserID)
	default:
		p.logger.Warn().Str("type", payload.Type).Str("message_id", msg.ID).Msg("unknown task type")
		return nil
	}
}

func decodePayload(values map[string]interface{}, out *TaskPayload) error {
	bytes, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, out)
}

// RefreshWishlist refreshes one user's items, or every item when userID is
// empty, and notifies the owners of price drops.
func (p *Processor) RefreshWishlist(ctx context.Context, userID string) error {
	var (
		drops []service.PriceDrop
		err   error
	)
	if userID != "" {
		_, drops, err = p.wishlist.RefreshUser(ctx, userID)
	} else {
		drops, err = p.wishlist.RefreshAll(ctx)
	}
	if err != nil {
		return fmt.Errorf("refresh wishlist: %w", err)
	}

	p.Notify(ctx, drops)
	p.logger.Info().Str("user_id", userID).Int("drops", len(drops)).Msg("wishlist refreshed")
	return nil
}

// Notify tells each owner about their price drops. Send failures are
// logged; the refresh itself already succeeded.
func (p *Processor) Notify(ctx context.Context, drops []service.PriceDrop) {
	for _, d := range drops {
		p.metrics.PriceDrop()
		if err := p.notifier.SendText(ctx, d.Item.UserID, bot.PriceDropText(d)); err != nil {
			p.logger.Error().Err(err).Str("user_id", d.Item.UserID).Int64("item_id", d.Item.ID).Msg("price drop notify failed")
		}
	}
}
