package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"caku/internal/models"
)

var ErrSettingsNotFound = errors.New("settings not found")

type SettingsRepository struct {
	pool *pgxpool.Pool
}

func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

func (r *SettingsRepository) Get(ctx context.Context, userID string) (models.Settings, error) {
	const query = `
		SELECT user_id, reminder_time, reminder_msg, target
		FROM settings WHERE user_id = $1
	`

	var s models.Settings
	if err := r.pool.QueryRow(ctx, query, userID).Scan(
		&s.UserID,
		&s.ReminderTime,
		&s.ReminderMsg,
		&s.Target,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Settings{}, ErrSettingsNotFound
		}
		return models.Settings{}, err
	}
	return s, nil
}

// UpsertReminder stores the reminder time and message. A nil time turns
// the reminder off while keeping the message.
func (r *SettingsRepository) UpsertReminder(ctx context.Context, userID string, reminderTime *string, message string) error {
	const query = `
		INSERT INTO settings (user_id, reminder_time, reminder_msg)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id)
		DO UPDATE SET
			reminder_time = EXCLUDED.reminder_time,
			reminder_msg = EXCLUDED.reminder_msg
	`
	_, err := r.pool.Exec(ctx, query, userID, reminderTime, message)
	return err
}

func (r *SettingsRepository) UpsertTarget(ctx context.Context, userID string, target int64) error {
	const query = `
		INSERT INTO settings (user_id, target)
		VALUES ($1, $2)
		ON CONFLICT (user_id)
		DO UPDATE SET target = EXCLUDED.target
	`
	_, err := r.pool.Exec(ctx, query, userID, target)
	return err
}

func (r *SettingsRepository) ListWithReminder(ctx context.Context) ([]models.ReminderSetting, error) {
	const query = `
		SELECT user_id, reminder_time, COALESCE(reminder_msg, '')
		FROM settings
		WHERE reminder_time IS NOT NULL
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.ReminderSetting
	for rows.Next() {
		var rs models.ReminderSetting
		if err := rows.Scan(&rs.UserID, &rs.ReminderTime, &rs.ReminderMsg); err != nil {
			return nil, err
		}
		result = append(result, rs)
	}
	return result, rows.Err()
}
