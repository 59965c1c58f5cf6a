package repository

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"backlog-manager/internal/model"
)

// FileRepository stores each record set as <dir>/<encoded key>.json.
// Keys are base64url encoded so distinct keys never share a file.
type FileRepository struct {
	dir string
}

// NewFileRepository creates the directory if needed and returns a FileRepository.
func NewFileRepository(dir string) (*FileRepository, error) {
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &FileRepository{dir: dir}, nil
}

func (r *FileRepository) path(key string) string {
	return filepath.Join(r.dir, base64.RawURLEncoding.EncodeToString([]byte(key))+".json")
}

// Load reads the record set stored under key.
func (r *FileRepository) Load(ctx context.Context, key string) ([]model.Game, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(r.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Game{}, nil
		}
		return nil, fmt.Errorf("failed to read games: %w", err)
	}
	return decodeGames(key, data), nil
}

// Save writes the record set to a temp file and renames it over the old one.
func (r *FileRepository) Save(ctx context.Context, key string, games []model.Game) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := encodeGames(games)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(r.dir, ".games-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write games: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, r.path(key)); err != nil {
		return fmt.Errorf("failed to replace games file: %w", err)
	}
	return nil
}

// Close is a no-op.
func (r *FileRepository) Close() error {
	return nil
}
