package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingsRepository reads the persisted key/value configuration.
type SettingsRepository interface {
	Load(ctx context.Context, keys []string) (map[string]string, error)
}

type settingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository builds repository.
func NewSettingsRepository(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepository{pool: pool}
}

// Load returns the values stored for keys; missing keys are absent from the map.
func (r *settingsRepository) Load(ctx context.Context, keys []string) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value FROM settings WHERE key = ANY($1)`, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make(map[string]string, len(keys))
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		values[key] = value
	}
	return values, rows.Err()
}
