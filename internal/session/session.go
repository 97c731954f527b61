// Package session holds transient per-user interaction state: the vault
// login flag, its last activity time and a pending video upload.
package session

import (
	"context"
	"errors"
	"time"

	"caku/internal/models"
)

var ErrNotFound = errors.New("session not found")

type PendingUpload struct {
	Title       string                  `json:"title"`
	Destination models.VaultDestination `json:"destination"`
}

type Session struct {
	UserID             string         `json:"user_id"`
	VaultAuthenticated bool           `json:"vault_authenticated"`
	LastActivity       time.Time      `json:"last_activity"`
	PendingUpload      *PendingUpload `json:"pending_upload,omitempty"`
}

// Expired reports whether the session has been idle longer than timeout.
func (s Session) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastActivity) > timeout
}

// Store is keyed by user id. Implementations must be safe for concurrent
// use by different users.
type Store interface {
	Get(ctx context.Context, userID string) (Session, error)
	Put(ctx context.Context, s Session) error
	Delete(ctx context.Context, userID string) error
}
