package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backlog-manager/internal/backlog"
	"backlog-manager/internal/model"
	"backlog-manager/internal/pkg/lock"
	"backlog-manager/internal/repository"
)

const testKey = repository.DefaultKey

var errDiskFull = errors.New("disk full")

// flakyRepository wraps a MemoryRepository and can be told to fail.
type flakyRepository struct {
	*repository.MemoryRepository
	mu       sync.Mutex
	failSave bool
	failLoad bool
	saves    int
}

func (r *flakyRepository) Load(ctx context.Context, key string) ([]model.Game, error) {
	r.mu.Lock()
	fail := r.failLoad
	r.mu.Unlock()
	if fail {
		return nil, errDiskFull
	}
	return r.MemoryRepository.Load(ctx, key)
}

func (r *flakyRepository) Save(ctx context.Context, key string, games []model.Game) error {
	r.mu.Lock()
	fail := r.failSave
	r.saves++
	r.mu.Unlock()
	if fail {
		return errDiskFull
	}
	return r.MemoryRepository.Save(ctx, key, games)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

func sequentialIDs() func() (string, error) {
	var mu sync.Mutex
	n := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n), nil
	}
}

func newTestService(t *testing.T, opts ...Option) (*BacklogService, *flakyRepository) {
	t.Helper()
	repo := &flakyRepository{MemoryRepository: repository.NewMemoryRepository()}
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	base := []Option{WithClock(clock.Now), WithIDGenerator(sequentialIDs())}
	return NewBacklogService(repo, append(base, opts...)...), repo
}

func mustCreate(t *testing.T, s *BacklogService, in model.NewGame) model.Game {
	t.Helper()
	g, err := s.Create(context.Background(), testKey, in)
	require.NoError(t, err)
	return g
}

func TestBacklogService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns id and dateAdded", func(t *testing.T) {
		s, repo := newTestService(t)
		g := mustCreate(t, s, model.NewGame{Title: "  Hades ", Platform: model.PlatformPC, Price: model.MoneyPtr(24.99)})

		assert.Equal(t, "id-1", g.ID)
		assert.Equal(t, "Hades", g.Title)
		assert.Equal(t, model.StatusNotStarted, g.Status)
		assert.False(t, g.DateAdded.IsZero())
		assert.Nil(t, g.DateCompleted)
		require.NotNil(t, g.Price)
		assert.Equal(t, "24.99", g.Price.String())

		stored, err := repo.MemoryRepository.Load(ctx, testKey)
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, g.ID, stored[0].ID)
	})

	t.Run("completed on create is stamped", func(t *testing.T) {
		s, _ := newTestService(t)
		g := mustCreate(t, s, model.NewGame{Title: "Celeste", Status: model.StatusCompleted})
		require.NotNil(t, g.DateCompleted)
		assert.True(t, g.DateCompleted.Equal(g.DateAdded))
	})

	t.Run("duplicate is rejected and set unchanged", func(t *testing.T) {
		s, repo := newTestService(t)
		first := mustCreate(t, s, model.NewGame{Title: "Hades", Platform: model.PlatformPC})
		savesBefore := repo.saves

		_, err := s.Create(ctx, testKey, model.NewGame{Title: "hades", Platform: model.PlatformPC})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDuplicateGame)

		var dup *DuplicateError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, first.ID, dup.Existing.ID)
		assert.Contains(t, dup.Error(), "Hades")
		assert.Contains(t, dup.Error(), "PC")

		games, err := s.List(ctx, testKey)
		require.NoError(t, err)
		assert.Len(t, games, 1)
		assert.Equal(t, savesBefore, repo.saves)
	})

	t.Run("same title on another platform is allowed", func(t *testing.T) {
		s, _ := newTestService(t)
		mustCreate(t, s, model.NewGame{Title: "Hades", Platform: model.PlatformPC})
		g := mustCreate(t, s, model.NewGame{Title: "Hades", Platform: model.PlatformSwitch})
		assert.Equal(t, model.PlatformSwitch, g.Platform)
	})

	t.Run("validation", func(t *testing.T) {
		s, _ := newTestService(t)
		_, err := s.Create(ctx, testKey, model.NewGame{Title: "   "})
		assert.ErrorIs(t, err, model.ErrEmptyTitle)

		_, err = s.Create(ctx, testKey, model.NewGame{Title: "X", Status: "abandoned"})
		assert.ErrorIs(t, err, model.ErrInvalidStatus)

		neg := model.MoneyFromFloat(-1)
		_, err = s.Create(ctx, testKey, model.NewGame{Title: "X", Price: &neg})
		assert.ErrorIs(t, err, model.ErrNegativePrice)
	})

	t.Run("save failure leaves memory untouched", func(t *testing.T) {
		s, repo := newTestService(t)
		mustCreate(t, s, model.NewGame{Title: "Hades"})

		repo.failSave = true
		_, err := s.Create(ctx, testKey, model.NewGame{Title: "Celeste"})
		assert.ErrorIs(t, err, errDiskFull)

		games, err := s.List(ctx, testKey)
		require.NoError(t, err)
		require.Len(t, games, 1)
		assert.Equal(t, "Hades", games[0].Title)
	})
}

func TestBacklogService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("completion date follows status", func(t *testing.T) {
		s, _ := newTestService(t)
		g := mustCreate(t, s, model.NewGame{Title: "Outer Wilds"})

		done, err := s.MarkComplete(ctx, testKey, g.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCompleted, done.Status)
		require.NotNil(t, done.DateCompleted)

		back, err := s.StartPlaying(ctx, testKey, g.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusInProgress, back.Status)
		assert.Nil(t, back.DateCompleted)
	})

	t.Run("field edit keeps completion date", func(t *testing.T) {
		s, _ := newTestService(t)
		g := mustCreate(t, s, model.NewGame{Title: "Celeste", Status: model.StatusCompleted})

		notes := "B-sides next"
		completed := model.StatusCompleted
		up, err := s.Update(ctx, testKey, g.ID, model.GameUpdate{Notes: &notes, Status: &completed})
		require.NoError(t, err)
		assert.Equal(t, notes, up.Notes)
		require.NotNil(t, up.DateCompleted)
		assert.True(t, up.DateCompleted.Equal(*g.DateCompleted))
	})

	t.Run("unknown id", func(t *testing.T) {
		s, repo := newTestService(t)
		_, err := s.MarkComplete(ctx, testKey, "missing")
		assert.ErrorIs(t, err, ErrGameNotFound)
		assert.Zero(t, repo.saves)
	})

	t.Run("price can be cleared", func(t *testing.T) {
		s, _ := newTestService(t)
		g := mustCreate(t, s, model.NewGame{Title: "Tunic", Price: model.MoneyPtr(29.99)})

		up, err := s.Update(ctx, testKey, g.ID, model.GameUpdate{ClearPrice: true})
		require.NoError(t, err)
		assert.Nil(t, up.Price)
	})

	t.Run("invalid update rejected", func(t *testing.T) {
		s, _ := newTestService(t)
		g := mustCreate(t, s, model.NewGame{Title: "Tunic"})

		blank := " "
		_, err := s.Update(ctx, testKey, g.ID, model.GameUpdate{Title: &blank})
		assert.ErrorIs(t, err, model.ErrEmptyTitle)
	})
}

func TestBacklogService_Delete(t *testing.T) {
	ctx := context.Background()
	s, repo := newTestService(t)
	a := mustCreate(t, s, model.NewGame{Title: "A"})
	b := mustCreate(t, s, model.NewGame{Title: "B"})
	c := mustCreate(t, s, model.NewGame{Title: "C"})

	removed, err := s.Delete(ctx, testKey, b.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	saves := repo.saves
	removed, err = s.Delete(ctx, testKey, b.ID)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, saves, repo.saves)

	games, err := s.List(ctx, testKey)
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, a.ID, games[0].ID)
	assert.Equal(t, c.ID, games[1].ID)
}

func TestBacklogService_Move(t *testing.T) {
	ctx := context.Background()
	s, repo := newTestService(t)
	g := mustCreate(t, s, model.NewGame{Title: "Hollow Knight"})

	moved, ok, err := s.Move(ctx, testKey, g.ID, string(model.StatusCompleted))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.StatusCompleted, moved.Status)
	require.NotNil(t, moved.DateCompleted)

	saves := repo.saves
	same, ok, err := s.Move(ctx, testKey, g.ID, string(model.StatusCompleted))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, same.DateCompleted.Equal(*moved.DateCompleted))

	_, ok, err = s.Move(ctx, testKey, g.ID, "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, saves, repo.saves)

	back, ok, err := s.Move(ctx, testKey, g.ID, string(model.StatusNotStarted))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, back.DateCompleted)

	_, _, err = s.Move(ctx, testKey, "missing", string(model.StatusCompleted))
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestBacklogService_RunAction(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	g := mustCreate(t, s, model.NewGame{Title: "Balatro"})

	up, err := s.RunAction(ctx, testKey, g.ID, backlog.ActionStart)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, up.Status)

	_, err = s.RunAction(ctx, testKey, g.ID, backlog.QuickAction("abandon"))
	assert.Error(t, err)
}

func TestBacklogService_ViewAndStats(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	mustCreate(t, s, model.NewGame{Title: "A", Status: model.StatusCompleted, Price: model.MoneyPtr(10)})
	mustCreate(t, s, model.NewGame{Title: "B", Status: model.StatusInProgress, Price: model.MoneyPtr(20)})
	mustCreate(t, s, model.NewGame{Title: "C"})

	view, err := s.View(ctx, testKey, backlog.Filter{Status: model.StatusInProgress})
	require.NoError(t, err)
	require.Len(t, view, 1)
	assert.Equal(t, "B", view[0].Title)

	stats, err := s.Stats(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.NotStarted)
	assert.Equal(t, 1, stats.InProgress)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, "30.00", stats.TotalSpent.String())
	assert.Equal(t, "20.00", stats.EstimatedRemaining.String())
}

func TestBacklogService_LoadsPersistedSet(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	repo.SetRaw(testKey, []byte(`[{"id":"x","title":"Persisted","status":"in_progress","dateAdded":"2024-01-01T00:00:00Z"}]`))

	s := NewBacklogService(repo)
	games, err := s.List(ctx, testKey)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "Persisted", games[0].Title)
}

func TestBacklogService_LoadFailure(t *testing.T) {
	s, repo := newTestService(t)
	repo.failLoad = true

	_, err := s.List(context.Background(), testKey)
	assert.ErrorIs(t, err, errDiskFull)
}

func TestBacklogService_KeysAreIsolated(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	_, err := s.Create(ctx, "owner:1", model.NewGame{Title: "Hades"})
	require.NoError(t, err)
	_, err = s.Create(ctx, "owner:2", model.NewGame{Title: "Hades"})
	require.NoError(t, err)

	one, err := s.List(ctx, "owner:1")
	require.NoError(t, err)
	assert.Len(t, one, 1)

	_, err = s.List(ctx, "")
	assert.ErrorIs(t, err, repository.ErrEmptyKey)
}

func TestBacklogService_Subscribe(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	var snaps []Snapshot
	unsubscribe := s.Subscribe(func(snap Snapshot) {
		snaps = append(snaps, snap)
	})

	g := mustCreate(t, s, model.NewGame{Title: "Hades"})
	_, err := s.MarkComplete(ctx, testKey, g.ID)
	require.NoError(t, err)
	_, err = s.Create(ctx, testKey, model.NewGame{Title: "Hades"})
	require.ErrorIs(t, err, ErrDuplicateGame)

	// load, create, update; the rejected duplicate publishes nothing
	require.Len(t, snaps, 3)
	assert.Empty(t, snaps[0].Games)
	assert.Len(t, snaps[1].Games, 1)
	assert.Equal(t, model.StatusCompleted, snaps[2].Games[0].Status)
	assert.Equal(t, testKey, snaps[2].Key)

	// Snapshots are copies.
	snaps[2].Games[0].Title = "changed"
	got, err := s.Get(ctx, testKey, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hades", got.Title)

	unsubscribe()
	_, err = s.Delete(ctx, testKey, g.ID)
	require.NoError(t, err)
	assert.Len(t, snaps, 3)
}

type recordingObserver struct {
	mu  sync.Mutex
	ops []string
}

func (o *recordingObserver) ObserveMutation(op string, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	result := "ok"
	if err != nil {
		result = "error"
	}
	o.ops = append(o.ops, op+":"+result)
}

func TestBacklogService_Observer(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	s, _ := newTestService(t, WithObserver(obs))

	g := mustCreate(t, s, model.NewGame{Title: "Hades"})
	_, _ = s.Create(ctx, testKey, model.NewGame{Title: "Hades"})
	_, _, _ = s.Move(ctx, testKey, g.ID, string(model.StatusInProgress))
	_, _ = s.Delete(ctx, testKey, g.ID)

	assert.Equal(t, []string{"create:ok", "create:error", "move:ok", "delete:ok"}, obs.ops)
}

func TestBacklogService_LockTimeout(t *testing.T) {
	s, _ := newTestService(t, WithLockTimeout(20*time.Millisecond))

	s.locks.Lock(testKey)
	defer s.locks.Unlock(testKey)

	_, err := s.List(context.Background(), testKey)
	assert.ErrorIs(t, err, lock.ErrLockTimeout)
}

func TestBacklogService_ConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	s, repo := newTestService(t)

	const n = 25
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := s.Create(ctx, testKey, model.NewGame{Title: fmt.Sprintf("Game %d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	games, err := s.List(ctx, testKey)
	require.NoError(t, err)
	assert.Len(t, games, n)

	stored, err := repo.MemoryRepository.Load(ctx, testKey)
	require.NoError(t, err)
	assert.Len(t, stored, n)
}

func TestBacklogService_DefaultIDs(t *testing.T) {
	s := NewBacklogService(repository.NewMemoryRepository())
	a, err := s.Create(context.Background(), testKey, model.NewGame{Title: "A"})
	require.NoError(t, err)
	b, err := s.Create(context.Background(), testKey, model.NewGame{Title: "B"})
	require.NoError(t, err)

	assert.Len(t, a.ID, 36)
	assert.NotEqual(t, a.ID, b.ID)
	// v7 ids sort by creation time.
	assert.Less(t, a.ID, b.ID)
}
