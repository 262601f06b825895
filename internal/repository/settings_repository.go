package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
)

// SettingsRepository stores generation settings overrides as JSON documents
// keyed by name, e.g. the special periods of the active term.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs a SettingsRepository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the stored document for a key. Missing keys yield sql.ErrNoRows.
func (r *SettingsRepository) Get(ctx context.Context, key string) (types.JSONText, error) {
	const query = `SELECT value FROM settings WHERE key = $1`
	var value types.JSONText
	if err := r.db.GetContext(ctx, &value, query, key); err != nil {
		return nil, err
	}
	return value, nil
}

// Set upserts the document for a key.
func (r *SettingsRepository) Set(ctx context.Context, key string, value types.JSONText) error {
	const query = `INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("store setting %s: %w", key, err)
	}
	return nil
}
