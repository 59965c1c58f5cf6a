// Package repository provides the persistence adapters for backlog record sets.
// Every backend stores one JSON array of games per key and overwrites it on each save.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"backlog-manager/internal/model"
)

// DefaultKey is the well-known key the record set is stored under.
const DefaultKey = "backlog-manager-games"

// Common errors for repository operations.
var (
	ErrEmptyKey      = errors.New("storage key is required")
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// GameRepository loads and saves whole record sets.
type GameRepository interface {
	// Load returns the record set stored under key in insertion order.
	// A missing key or unreadable contents yield an empty set, not an error.
	Load(ctx context.Context, key string) ([]model.Game, error)

	// Save overwrites the record set stored under key.
	Save(ctx context.Context, key string, games []model.Game) error

	// Close releases the backend's resources.
	Close() error
}

// encodeGames serializes a record set. A nil set is written as an empty array.
func encodeGames(games []model.Game) ([]byte, error) {
	if games == nil {
		games = []model.Game{}
	}
	data, err := json.Marshal(games)
	if err != nil {
		return nil, fmt.Errorf("failed to encode games: %w", err)
	}
	return data, nil
}

// decodeGames parses a stored record set. Malformed data is logged and treated as empty.
func decodeGames(key string, data []byte) []model.Game {
	if len(data) == 0 {
		return []model.Game{}
	}
	var games []model.Game
	if err := json.Unmarshal(data, &games); err != nil {
		log.Warn().
			Err(err).
			Str("key", key).
			Int("bytes", len(data)).
			Msg("Stored games could not be parsed, starting with an empty backlog")
		return []model.Game{}
	}
	if games == nil {
		games = []model.Game{}
	}
	return games
}

func checkKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}
