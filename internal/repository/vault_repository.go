package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"caku/internal/models"
)

var (
	ErrCredentialNotFound = errors.New("vault credential not found")
	ErrCredentialExists   = errors.New("vault credential already exists")
)

type VaultRepository struct {
	pool *pgxpool.Pool
}

func NewVaultRepository(pool *pgxpool.Pool) *VaultRepository {
	return &VaultRepository{pool: pool}
}

// InsertCredential stores the PIN cipher once; a second write for the same
// user returns ErrCredentialExists and leaves the original row untouched.
func (r *VaultRepository) InsertCredential(ctx context.Context, userID string, pinCipher []byte) error {
	const query = `
		INSERT INTO vault_credentials (user_id, pin_cipher, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO NOTHING
	`
	cmd, err := r.pool.Exec(ctx, query, userID, pinCipher)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCredentialExists
	}
	return nil
}

func (r *VaultRepository) GetCredential(ctx context.Context, userID string) (models.VaultCredential, error) {
	const query = `
		SELECT user_id, pin_cipher, created_at
		FROM vault_credentials WHERE user_id = $1
	`
	var cred models.VaultCredential
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&cred.UserID, &cred.PinCipher, &cred.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.VaultCredential{}, ErrCredentialNotFound
		}
		return models.VaultCredential{}, err
	}
	return cred, nil
}

func (r *VaultRepository) InsertVideo(ctx context.Context, video models.VaultVideo) error {
	const query = `
		INSERT INTO vault_videos (
			id, user_id, title, destination, storage_locator, mime_type, size_bytes, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW()
		)
	`
	_, err := r.pool.Exec(ctx, query,
		video.ID,
		video.UserID,
		video.Title,
		video.Destination,
		video.StorageLocator,
		video.MIMEType,
		video.SizeBytes,
	)
	return err
}

func (r *VaultRepository) ListVideos(ctx context.Context, userID string) ([]models.VaultVideo, error) {
	const query = `
		SELECT id, user_id, title, destination, storage_locator, mime_type, size_bytes, created_at
		FROM vault_videos
		WHERE user_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []models.VaultVideo
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}

func scanVideo(row pgx.Row) (models.VaultVideo, error) {
	var video models.VaultVideo
	if err := row.Scan(
		&video.ID,
		&video.UserID,
		&video.Title,
		&video.Destination,
		&video.StorageLocator,
		&video.MIMEType,
		&video.SizeBytes,
		&video.CreatedAt,
	); err != nil {
		return models.VaultVideo{}, err
	}
	return video, nil
}
