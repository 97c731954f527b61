package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"caku/internal/models"
)

var (
	ErrTokenNotFound  = errors.New("token not found")
	ErrTokenRedeemed  = errors.New("token already redeemed")
	ErrTokenDuplicate = errors.New("token already exists")
)

const uniqueViolation = "23505"

type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

func (r *TokenRepository) Create(ctx context.Context, token models.AccessToken) error {
	const query = `
		INSERT INTO access_tokens (token, active, created_at, expires_in_days)
		VALUES ($1, FALSE, NOW(), $2)
	`
	_, err := r.pool.Exec(ctx, query, token.Token, token.ExpiresInDays)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrTokenDuplicate
	}
	return err
}

// Activate binds an unredeemed token to ownerID. The conditional update
// guarantees a single winner when the same token is redeemed concurrently.
func (r *TokenRepository) Activate(ctx context.Context, token string, ownerID string) (models.AccessToken, error) {
	const query = `
		UPDATE access_tokens
		SET active = TRUE, owner_id = $2, activated_at = NOW()
		WHERE token = $1 AND activated_at IS NULL
		RETURNING token, active, owner_id, created_at, activated_at, expires_in_days
	`

	tok, err := scanToken(r.pool.QueryRow(ctx, query, token, ownerID))
	if err == nil {
		return tok, nil
	}
	if !errors.Is(err, ErrTokenNotFound) {
		return models.AccessToken{}, err
	}

	if _, err := r.Get(ctx, token); err != nil {
		return models.AccessToken{}, err
	}
	return models.AccessToken{}, ErrTokenRedeemed
}

func (r *TokenRepository) Get(ctx context.Context, token string) (models.AccessToken, error) {
	const query = `
		SELECT token, active, owner_id, created_at, activated_at, expires_in_days
		FROM access_tokens WHERE token = $1
	`
	return scanToken(r.pool.QueryRow(ctx, query, token))
}

// FindActiveByOwner returns the most recently activated live token.
func (r *TokenRepository) FindActiveByOwner(ctx context.Context, ownerID string) (models.AccessToken, error) {
	const query = `
		SELECT token, active, owner_id, created_at, activated_at, expires_in_days
		FROM access_tokens
		WHERE owner_id = $1 AND active
		ORDER BY activated_at DESC
		LIMIT 1
	`
	return scanToken(r.pool.QueryRow(ctx, query, ownerID))
}

// Deactivate clears the active flag. It is idempotent: deactivating an
// already inactive token is not an error.
func (r *TokenRepository) Deactivate(ctx context.Context, token string) error {
	const query = `UPDATE access_tokens SET active = FALSE WHERE token = $1 AND active`
	_, err := r.pool.Exec(ctx, query, token)
	return err
}

func (r *TokenRepository) DeactivateOwner(ctx context.Context, ownerID string) (int64, error) {
	const query = `UPDATE access_tokens SET active = FALSE WHERE owner_id = $1 AND active`
	cmd, err := r.pool.Exec(ctx, query, ownerID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *TokenRepository) List(ctx context.Context) ([]models.AccessToken, error) {
	const query = `
		SELECT token, active, owner_id, created_at, activated_at, expires_in_days
		FROM access_tokens
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []models.AccessToken
	for rows.Next() {
		tok, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, rows.Err()
}

func scanToken(row pgx.Row) (models.AccessToken, error) {
	var tok models.AccessToken
	if err := row.Scan(
		&tok.Token,
		&tok.Active,
		&tok.OwnerID,
		&tok.CreatedAt,
		&tok.ActivatedAt,
		&tok.ExpiresInDays,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AccessToken{}, ErrTokenNotFound
		}
		return models.AccessToken{}, err
	}
	return tok, nil
}
