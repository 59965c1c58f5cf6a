package repository

import (
	"context"
	"sync"

	"backlog-manager/internal/model"
)

// MemoryRepository keeps encoded record sets in process memory.
// Data goes through the same JSON encoding as the durable backends.
type MemoryRepository struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{blobs: make(map[string][]byte)}
}

// Load returns the record set stored under key.
func (r *MemoryRepository) Load(ctx context.Context, key string) ([]model.Game, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	r.mu.RLock()
	data, ok := r.blobs[key]
	r.mu.RUnlock()
	if !ok {
		return []model.Game{}, nil
	}
	return decodeGames(key, data), nil
}

// Save overwrites the record set stored under key.
func (r *MemoryRepository) Save(ctx context.Context, key string, games []model.Game) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := encodeGames(games)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.blobs[key] = data
	r.mu.Unlock()
	return nil
}

// SetRaw stores raw bytes under key, bypassing encoding.
func (r *MemoryRepository) SetRaw(key string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blobs[key] = append([]byte(nil), data...)
}

// Raw returns the bytes stored under key.
func (r *MemoryRepository) Raw(key string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, ok := r.blobs[key]
	return data, ok
}

// Close is a no-op.
func (r *MemoryRepository) Close() error {
	return nil
}
