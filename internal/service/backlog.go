// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"backlog-manager/internal/backlog"
	"backlog-manager/internal/model"
	"backlog-manager/internal/pkg/lock"
	"backlog-manager/internal/repository"
)

// Common errors for backlog operations.
var (
	ErrGameNotFound  = errors.New("game not found")
	ErrDuplicateGame = errors.New("game already in backlog")
)

// DuplicateError is returned by Create when the backlog already holds the same
// title on the same platform. Existing is the game that matched.
type DuplicateError struct {
	Existing model.Game
}

func (e *DuplicateError) Error() string {
	if e.Existing.Platform == model.PlatformNone {
		return fmt.Sprintf("%q is already in your backlog", e.Existing.Title)
	}
	return fmt.Sprintf("%q is already in your backlog on %s", e.Existing.Title, e.Existing.Platform)
}

// Is makes errors.Is(err, ErrDuplicateGame) match.
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicateGame
}

// Mutation operation names, used in logs and metrics.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpMove   = "move"
)

// Snapshot is the full record set of one backlog after a load or a committed change.
type Snapshot struct {
	Key   string
	Games []model.Game
}

// MutationObserver is notified once per mutation attempt.
type MutationObserver interface {
	ObserveMutation(op string, err error, elapsed time.Duration)
}

// Option configures a BacklogService.
type Option func(*BacklogService)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *BacklogService) { s.now = now }
}

// WithIDGenerator replaces the id generator.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(s *BacklogService) { s.newID = newID }
}

// WithLockTimeout bounds how long a call waits for another call on the same backlog.
// Zero waits indefinitely.
func WithLockTimeout(d time.Duration) Option {
	return func(s *BacklogService) { s.lockTimeout = d }
}

// WithObserver registers a mutation observer.
func WithObserver(o MutationObserver) Option {
	return func(s *BacklogService) { s.observer = o }
}

// BacklogService owns the in-memory record sets and is the only place they change.
// Each backlog key is loaded from the repository on first access and every
// committed change is written back as a whole set.
type BacklogService struct {
	repo        repository.GameRepository
	locks       *lock.KeyLock
	lockTimeout time.Duration
	now         func() time.Time
	newID       func() (string, error)
	observer    MutationObserver

	mu    sync.RWMutex
	cache map[string][]model.Game

	subMu  sync.RWMutex
	subs   map[int]func(Snapshot)
	nextID int
}

// NewBacklogService creates a new BacklogService instance.
func NewBacklogService(repo repository.GameRepository, opts ...Option) *BacklogService {
	s := &BacklogService{
		repo:  repo,
		locks: lock.NewKeyLock(),
		now:   func() time.Time { return time.Now().UTC() },
		newID: newUUID,
		cache: make(map[string][]model.Game),
		subs:  make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newUUID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Subscribe registers fn to receive a snapshot after every load and committed change.
// Snapshots for one key arrive in commit order. fn must not call back into the
// service for the same key. The returned function unsubscribes.
func (s *BacklogService) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *BacklogService) publish(key string, games []model.Game) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for _, fn := range s.subs {
		fn(Snapshot{Key: key, Games: model.CloneGames(games)})
	}
}

// withKey runs fn holding the lock for key.
func (s *BacklogService) withKey(ctx context.Context, key string, fn func() error) error {
	if key == "" {
		return repository.ErrEmptyKey
	}
	return s.locks.WithLockContext(ctx, key, s.lockTimeout, fn)
}

// loaded returns the cached set for key, loading it first if needed.
// Callers hold the key lock and must not modify the result.
func (s *BacklogService) loaded(ctx context.Context, key string) ([]model.Game, error) {
	s.mu.RLock()
	games, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return games, nil
	}

	games, err := s.repo.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load backlog: %w", err)
	}
	if games == nil {
		games = []model.Game{}
	}

	s.mu.Lock()
	s.cache[key] = games
	s.mu.Unlock()

	log.Debug().Str("key", key).Int("games", len(games)).Msg("Backlog loaded")
	s.publish(key, games)
	return games, nil
}

// read runs fn against the current set for key.
func (s *BacklogService) read(ctx context.Context, key string, fn func([]model.Game) error) error {
	return s.withKey(ctx, key, func() error {
		games, err := s.loaded(ctx, key)
		if err != nil {
			return err
		}
		return fn(games)
	})
}

// mutate applies change to a copy of the set for key. When change reports a
// modification the copy is saved and only then replaces the cached set.
func (s *BacklogService) mutate(ctx context.Context, key, op string, change func([]model.Game) ([]model.Game, bool, error)) (err error) {
	start := time.Now()
	defer func() {
		if s.observer != nil {
			s.observer.ObserveMutation(op, err, time.Since(start))
		}
	}()

	return s.withKey(ctx, key, func() error {
		current, err := s.loaded(ctx, key)
		if err != nil {
			return err
		}

		next, changed, err := change(model.CloneGames(current))
		if err != nil || !changed {
			return err
		}

		if err := s.repo.Save(ctx, key, next); err != nil {
			log.Error().Err(err).Str("key", key).Str("op", op).Msg("Failed to persist backlog")
			return fmt.Errorf("failed to save backlog: %w", err)
		}

		s.mu.Lock()
		s.cache[key] = next
		s.mu.Unlock()

		log.Debug().Str("key", key).Str("op", op).Int("games", len(next)).Msg("Backlog committed")
		s.publish(key, next)
		return nil
	})
}

func indexOf(games []model.Game, id string) int {
	for i := range games {
		if games[i].ID == id {
			return i
		}
	}
	return -1
}

// List returns every game in key's backlog in insertion order.
func (s *BacklogService) List(ctx context.Context, key string) ([]model.Game, error) {
	var out []model.Game
	err := s.read(ctx, key, func(games []model.Game) error {
		out = model.CloneGames(games)
		return nil
	})
	return out, err
}

// Get returns one game by id.
func (s *BacklogService) Get(ctx context.Context, key, id string) (model.Game, error) {
	var out model.Game
	err := s.read(ctx, key, func(games []model.Game) error {
		i := indexOf(games, id)
		if i < 0 {
			return ErrGameNotFound
		}
		out = games[i].Clone()
		return nil
	})
	return out, err
}

// Create adds a game after validating it and checking for duplicates.
// On a duplicate it returns a *DuplicateError and leaves the backlog unchanged.
func (s *BacklogService) Create(ctx context.Context, key string, in model.NewGame) (model.Game, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return model.Game{}, err
	}

	var created model.Game
	err := s.mutate(ctx, key, OpCreate, func(games []model.Game) ([]model.Game, bool, error) {
		if existing, ok := backlog.FindDuplicate(in.Title, in.Platform, games); ok {
			return nil, false, &DuplicateError{Existing: existing}
		}

		id, err := s.newID()
		if err != nil {
			return nil, false, fmt.Errorf("failed to generate id: %w", err)
		}

		g := model.Game{
			ID:        id,
			Title:     in.Title,
			Platform:  in.Platform,
			Status:    in.Status,
			DateAdded: s.now(),
			Notes:     in.Notes,
		}
		if in.Price != nil {
			p := *in.Price
			g.Price = &p
		}
		backlog.EnforceCompletion(&g, g.DateAdded)

		created = g.Clone()
		return append(games, g), true, nil
	})
	if err != nil {
		return model.Game{}, err
	}
	return created, nil
}

// Update changes fields of an existing game. A status change goes through the
// completion-date policy; an unchanged status leaves DateCompleted alone.
func (s *BacklogService) Update(ctx context.Context, key, id string, u model.GameUpdate) (model.Game, error) {
	if err := u.Validate(); err != nil {
		return model.Game{}, err
	}

	var updated model.Game
	err := s.mutate(ctx, key, OpUpdate, func(games []model.Game) ([]model.Game, bool, error) {
		i := indexOf(games, id)
		if i < 0 {
			return nil, false, ErrGameNotFound
		}
		g := &games[i]
		u.ApplyFields(g)
		if u.Status != nil {
			backlog.ApplyStatus(g, *u.Status, s.now())
		}
		updated = g.Clone()
		return games, true, nil
	})
	if err != nil {
		return model.Game{}, err
	}
	return updated, nil
}

// Delete removes a game. Deleting an unknown id is not an error; the result
// reports whether anything was removed.
func (s *BacklogService) Delete(ctx context.Context, key, id string) (bool, error) {
	removed := false
	err := s.mutate(ctx, key, OpDelete, func(games []model.Game) ([]model.Game, bool, error) {
		i := indexOf(games, id)
		if i < 0 {
			return nil, false, nil
		}
		removed = true
		return append(games[:i], games[i+1:]...), true, nil
	})
	return removed, err
}

// MarkComplete sets a game's status to completed.
func (s *BacklogService) MarkComplete(ctx context.Context, key, id string) (model.Game, error) {
	return s.Update(ctx, key, id, model.StatusUpdate(model.StatusCompleted))
}

// StartPlaying sets a game's status to in progress.
func (s *BacklogService) StartPlaying(ctx context.Context, key, id string) (model.Game, error) {
	return s.Update(ctx, key, id, model.StatusUpdate(model.StatusInProgress))
}

// RunAction performs a quick action on a game.
func (s *BacklogService) RunAction(ctx context.Context, key, id string, action backlog.QuickAction) (model.Game, error) {
	target, ok := action.Target()
	if !ok {
		return model.Game{}, fmt.Errorf("unknown action %q", string(action))
	}
	return s.Update(ctx, key, id, model.StatusUpdate(target))
}

// Move handles a card dropped on a board column. It returns the game and whether
// its status changed; drops on the card's own column or outside a column change nothing.
func (s *BacklogService) Move(ctx context.Context, key, id, column string) (model.Game, bool, error) {
	var (
		out   model.Game
		moved bool
	)
	err := s.mutate(ctx, key, OpMove, func(games []model.Game) ([]model.Game, bool, error) {
		i := indexOf(games, id)
		if i < 0 {
			return nil, false, ErrGameNotFound
		}
		g := &games[i]
		next, ok := backlog.Drop(g.Status, column)
		if ok {
			moved = backlog.ApplyStatus(g, next, s.now())
		}
		out = g.Clone()
		return games, moved, nil
	})
	if err != nil {
		return model.Game{}, false, err
	}
	return out, moved, nil
}

// View returns the games matching f in insertion order.
func (s *BacklogService) View(ctx context.Context, key string, f backlog.Filter) ([]model.Game, error) {
	var out []model.Game
	err := s.read(ctx, key, func(games []model.Game) error {
		out = model.CloneGames(f.Apply(games))
		return nil
	})
	return out, err
}

// Stats summarizes the whole backlog, ignoring any filter.
func (s *BacklogService) Stats(ctx context.Context, key string) (model.Stats, error) {
	var out model.Stats
	err := s.read(ctx, key, func(games []model.Game) error {
		out = backlog.CalculateStats(games)
		return nil
	})
	return out, err
}
