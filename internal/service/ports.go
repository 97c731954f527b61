package service

import (
	"context"
	"io"
	"time"

	"caku/internal/models"
	"caku/internal/storage"
)

type TokenStore interface {
	Create(ctx context.Context, token models.AccessToken) error
	Activate(ctx context.Context, token string, ownerID string) (models.AccessToken, error)
	FindActiveByOwner(ctx context.Context, ownerID string) (models.AccessToken, error)
	Deactivate(ctx context.Context, token string) error
	DeactivateOwner(ctx context.Context, ownerID string) (int64, error)
	List(ctx context.Context) ([]models.AccessToken, error)
}

type TransactionStore interface {
	Insert(ctx context.Context, tx models.Transaction) (int64, error)
	Update(ctx context.Context, tx models.Transaction) (int64, error)
	Delete(ctx context.Context, id int64, userID string) (int64, error)
	DeleteAll(ctx context.Context, userID string) (int64, error)
	Query(ctx context.Context, userID string, filter models.TransactionFilter) ([]models.Transaction, error)
	Balance(ctx context.Context, userID string, filter models.TransactionFilter) (int64, error)
	CategoryTotals(ctx context.Context, userID string, filter models.TransactionFilter) ([]models.CategoryTotal, error)
}

type SettingsStore interface {
	Get(ctx context.Context, userID string) (models.Settings, error)
	UpsertReminder(ctx context.Context, userID string, reminderTime *string, message string) error
	UpsertTarget(ctx context.Context, userID string, target int64) error
	ListWithReminder(ctx context.Context) ([]models.ReminderSetting, error)
}

type VaultStore interface {
	InsertCredential(ctx context.Context, userID string, pinCipher []byte) error
	GetCredential(ctx context.Context, userID string) (models.VaultCredential, error)
	InsertVideo(ctx context.Context, video models.VaultVideo) error
	ListVideos(ctx context.Context, userID string) ([]models.VaultVideo, error)
}

type WishlistStore interface {
	Add(ctx context.Context, userID string, name string) (models.WishlistItem, error)
	ListByUser(ctx context.Context, userID string) ([]models.WishlistItem, error)
	ListAll(ctx context.Context) ([]models.WishlistItem, error)
	UpdatePrice(ctx context.Context, id int64, price *int64, url *string, checkedAt time.Time) error
	Delete(ctx context.Context, id int64, userID string) (int64, error)
}

// ObjectStore is the remote half of the vault.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignedGet(ctx context.Context, key string) (string, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
}
