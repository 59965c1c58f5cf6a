package repository

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"backlog-manager/internal/config"
	"backlog-manager/internal/pkg/db"
)

// Open builds the repository selected by cfg.Driver.
func Open(ctx context.Context, cfg *config.Config) (GameRepository, error) {
	var (
		repo GameRepository
		err  error
	)

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		repo = NewMemoryRepository()
	case config.DriverFile:
		repo, err = NewFileRepository(cfg.Storage.FileDir)
	case config.DriverSQLite:
		repo, err = openSQLite(ctx, cfg.Storage.SQLitePath)
	case config.DriverPostgres:
		repo, err = openPostgres(ctx, &cfg.Database)
	case config.DriverRedis:
		repo, err = openRedis(ctx, &cfg.Redis)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Storage.Driver)
	}
	if err != nil {
		return nil, err
	}

	log.Info().Str("driver", cfg.Storage.Driver).Str("key", cfg.Storage.Key).Msg("Storage ready")
	return repo, nil
}

func openSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	sqlDB, err := db.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	repo, err := NewSQLiteRepository(ctx, sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return repo, nil
}

func openPostgres(ctx context.Context, cfg *config.DatabaseConfig) (*PostgresRepository, error) {
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	repo := NewPostgresRepository(pool.Pool)
	repo.onClose = pool.Close
	if err := repo.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

func openRedis(ctx context.Context, cfg *config.RedisConfig) (*RedisRepository, error) {
	client, err := db.NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewRedisRepository(client), nil
}
