package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"caku/internal/models"
)

const (
	defaultTransactionLimit = 50
	maxTransactionLimit     = 5000
)

type TransactionRepository struct {
	pool *pgxpool.Pool
}

func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

func (r *TransactionRepository) Insert(ctx context.Context, tx models.Transaction) (int64, error) {
	const query = `
		INSERT INTO transactions (user_id, amount, description, category, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))
		RETURNING id
	`

	var createdAt any
	if !tx.CreatedAt.IsZero() {
		createdAt = tx.CreatedAt
	}

	var id int64
	if err := r.pool.QueryRow(ctx, query,
		tx.UserID,
		tx.Amount,
		tx.Description,
		tx.Category,
		createdAt,
	).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// Update rewrites a transaction owned by userID and reports affected rows.
func (r *TransactionRepository) Update(ctx context.Context, tx models.Transaction) (int64, error) {
	const query = `
		UPDATE transactions
		SET amount = $3, description = $4, category = $5
		WHERE id = $1 AND user_id = $2
	`
	cmd, err := r.pool.Exec(ctx, query, tx.ID, tx.UserID, tx.Amount, tx.Description, tx.Category)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// Delete removes a transaction owned by userID and reports affected rows.
func (r *TransactionRepository) Delete(ctx context.Context, id int64, userID string) (int64, error) {
	const query = `DELETE FROM transactions WHERE id = $1 AND user_id = $2`
	cmd, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *TransactionRepository) DeleteAll(ctx context.Context, userID string) (int64, error) {
	const query = `DELETE FROM transactions WHERE user_id = $1`
	cmd, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *TransactionRepository) Query(ctx context.Context, userID string, filter models.TransactionFilter) ([]models.Transaction, error) {
	where, args := transactionWhere(userID, filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT id, user_id, amount, description, category, created_at
		FROM transactions
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d
	`, where, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(
			&tx.ID,
			&tx.UserID,
			&tx.Amount,
			&tx.Description,
			&tx.Category,
			&tx.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}

func (r *TransactionRepository) Balance(ctx context.Context, userID string, filter models.TransactionFilter) (int64, error) {
	where, args := transactionWhere(userID, filter)
	query := `SELECT COALESCE(SUM(amount), 0)::BIGINT FROM transactions WHERE ` + where

	var balance int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&balance); err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *TransactionRepository) CategoryTotals(ctx context.Context, userID string, filter models.TransactionFilter) ([]models.CategoryTotal, error) {
	where, args := transactionWhere(userID, filter)
	query := `
		SELECT category,
		       SUM(amount)::BIGINT,
		       SUM(CASE WHEN amount < 0 THEN amount ELSE 0 END)::BIGINT
		FROM transactions
		WHERE ` + where + `
		GROUP BY category
		ORDER BY ABS(SUM(amount)) DESC
	`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.CategoryTotal, error) {
		var ct models.CategoryTotal
		err := row.Scan(&ct.Category, &ct.Total, &ct.TotalNegative)
		return ct, err
	})
}

func transactionWhere(userID string, filter models.TransactionFilter) (string, []any) {
	parts := []string{"user_id = $1"}
	args := []any{userID}

	if filter.Category != "" {
		args = append(args, filter.Category)
		parts = append(parts, fmt.Sprintf("LOWER(category) = LOWER($%d)", len(args)))
	}
	if filter.Keyword != "" {
		args = append(args, filter.Keyword)
		parts = append(parts, fmt.Sprintf("description ILIKE '%%' || $%d || '%%'", len(args)))
	}
	if filter.Since != nil {
		args = append(args, *filter.Since)
		parts = append(parts, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.Until != nil {
		args = append(args, *filter.Until)
		parts = append(parts, fmt.Sprintf("created_at < $%d", len(args)))
	}

	return strings.Join(parts, " AND "), args
}
