package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"backlog-manager/internal/model"
)

// PostgresRepository stores record sets as JSON text in PostgreSQL.
type PostgresRepository struct {
	pool    *pgxpool.Pool
	onClose func()
}

// NewPostgresRepository creates a new PostgresRepository instance.
// Call Migrate once before first use.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Migrate creates the storage table.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS backlog_storage (
			key VARCHAR(255) PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create backlog_storage table: %w", err)
	}
	return nil
}

// Load returns the record set stored under key.
func (r *PostgresRepository) Load(ctx context.Context, key string) ([]model.Game, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	const query = `SELECT value FROM backlog_storage WHERE key = $1`

	var value string
	err := r.pool.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []model.Game{}, nil
		}
		return nil, fmt.Errorf("failed to load games: %w", err)
	}
	return decodeGames(key, []byte(value)), nil
}

// Save overwrites the record set stored under key.
func (r *PostgresRepository) Save(ctx context.Context, key string, games []model.Game) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := encodeGames(games)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO backlog_storage (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	if _, err := r.pool.Exec(ctx, query, key, string(data)); err != nil {
		return fmt.Errorf("failed to save games: %w", err)
	}
	return nil
}

// Close closes the pool when the repository owns it.
func (r *PostgresRepository) Close() error {
	if r.onClose != nil {
		r.onClose()
	}
	return nil
}
