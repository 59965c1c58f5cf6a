package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"backlog-manager/internal/model"
)

// RedisRepository stores each record set as a string value under its key.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository creates a new RedisRepository instance.
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

// Load returns the record set stored under key.
func (r *RedisRepository) Load(ctx context.Context, key string) ([]model.Game, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []model.Game{}, nil
		}
		return nil, fmt.Errorf("failed to load games: %w", err)
	}
	return decodeGames(key, data), nil
}

// Save overwrites the record set stored under key. Keys never expire.
func (r *RedisRepository) Save(ctx context.Context, key string, games []model.Game) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := encodeGames(games)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save games: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
