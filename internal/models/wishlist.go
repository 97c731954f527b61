package models

import "time"

type WishlistItem struct {
	ID          int64
	UserID      string
	Name        string
	Price       *int64
	URL         *string
	LastChecked *time.Time
}
