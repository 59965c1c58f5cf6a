package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"backlog-manager/internal/model"
)

// SQLiteRepository stores record sets as JSON blobs in a single SQLite table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates the storage table if needed.
func NewSQLiteRepository(ctx context.Context, db *sql.DB) (*SQLiteRepository, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS backlog_storage (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return nil, fmt.Errorf("create storage table: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Load returns the record set stored under key.
func (r *SQLiteRepository) Load(ctx context.Context, key string) ([]model.Game, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM backlog_storage WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []model.Game{}, nil
		}
		return nil, fmt.Errorf("failed to load games: %w", err)
	}
	return decodeGames(key, []byte(value)), nil
}

// Save overwrites the record set stored under key.
func (r *SQLiteRepository) Save(ctx context.Context, key string, games []model.Game) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := encodeGames(games)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO backlog_storage (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := r.db.ExecContext(ctx, query, key, string(data)); err != nil {
		return fmt.Errorf("failed to save games: %w", err)
	}
	return nil
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
