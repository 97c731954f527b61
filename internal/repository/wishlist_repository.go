package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"caku/internal/models"
)

type WishlistRepository struct {
	pool *pgxpool.Pool
}

func NewWishlistRepository(pool *pgxpool.Pool) *WishlistRepository {
	return &WishlistRepository{pool: pool}
}

func (r *WishlistRepository) Add(ctx context.Context, userID string, name string) (models.WishlistItem, error) {
	const query = `
		INSERT INTO wishlist_items (user_id, name)
		VALUES ($1, $2)
		RETURNING id
	`
	item := models.WishlistItem{UserID: userID, Name: name}
	if err := r.pool.QueryRow(ctx, query, userID, name).Scan(&item.ID); err != nil {
		return models.WishlistItem{}, err
	}
	return item, nil
}

func (r *WishlistRepository) ListByUser(ctx context.Context, userID string) ([]models.WishlistItem, error) {
	const query = `
		SELECT id, user_id, name, price, url, last_checked
		FROM wishlist_items
		WHERE user_id = $1
		ORDER BY id ASC
	`
	return r.list(ctx, query, userID)
}

func (r *WishlistRepository) ListAll(ctx context.Context) ([]models.WishlistItem, error) {
	const query = `
		SELECT id, user_id, name, price, url, last_checked
		FROM wishlist_items
		ORDER BY id ASC
	`
	return r.list(ctx, query)
}

func (r *WishlistRepository) UpdatePrice(ctx context.Context, id int64, price *int64, url *string, checkedAt time.Time) error {
	const query = `
		UPDATE wishlist_items
		SET price = $2, url = $3, last_checked = $4
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, price, url, checkedAt)
	return err
}

func (r *WishlistRepository) Delete(ctx context.Context, id int64, userID string) (int64, error) {
	const query = `DELETE FROM wishlist_items WHERE id = $1 AND user_id = $2`
	cmd, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *WishlistRepository) list(ctx context.Context, query string, args ...any) ([]models.WishlistItem, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.WishlistItem
	for rows.Next() {
		var item models.WishlistItem
		if err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.Name,
			&item.Price,
			&item.URL,
			&item.LastChecked,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
