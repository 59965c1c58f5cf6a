package backlog

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"backlog-manager/internal/model"
)

func genStatus() *rapid.Generator[model.Status] {
	return rapid.SampledFrom(model.Statuses())
}

func genPlatform() *rapid.Generator[model.Platform] {
	return rapid.SampledFrom(append([]model.Platform{model.PlatformNone}, model.Platforms()...))
}

func genGames() *rapid.Generator[[]model.Game] {
	return rapid.Custom(func(t *rapid.T) []model.Game {
		n := rapid.IntRange(0, 25).Draw(t, "n")
		games := make([]model.Game, n)
		for i := range games {
			g := model.Game{
				ID:       fmt.Sprintf("g%d", i),
				Title:    rapid.StringMatching(`[A-Za-z]{1,5}( [A-Za-z]{1,5})?`).Draw(t, "title"),
				Platform: genPlatform().Draw(t, "platform"),
				Status:   genStatus().Draw(t, "status"),
				Notes:    rapid.StringMatching(`[a-z ]{0,10}`).Draw(t, "notes"),
			}
			if rapid.Bool().Draw(t, "priced") {
				cents := rapid.Int64Range(0, 100_000).Draw(t, "cents")
				m := model.NewMoney(decimal.New(cents, -2))
				g.Price = &m
			}
			EnforceCompletion(&g, testNow)
			games[i] = g
		}
		return games
	})
}

// TestFilterPreservesOrderProperty checks that every filter result is an ordered
// subsequence of the input and that every kept game satisfies the filter.
func TestFilterPreservesOrderProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		games := genGames().Draw(t, "games")
		f := Filter{Query: rapid.StringMatching(`[a-z]{0,2}`).Draw(t, "query")}
		if rapid.Bool().Draw(t, "byStatus") {
			f.Status = genStatus().Draw(t, "status")
		}
		f.Platform = genPlatform().Draw(t, "platform")

		got := f.Apply(games)

		// ordered subsequence
		j := 0
		for _, g := range got {
			for j < len(games) && games[j].ID != g.ID {
				j++
			}
			if j == len(games) {
				t.Fatalf("result %v is not an ordered subsequence of input", ids(got))
			}
			j++
		}

		for _, g := range got {
			if f.Status != "" && g.Status != f.Status {
				t.Fatalf("game %s has status %s, filter %s", g.ID, g.Status, f.Status)
			}
			if f.Platform != model.PlatformNone && g.Platform != f.Platform {
				t.Fatalf("game %s has platform %q, filter %q", g.ID, g.Platform, f.Platform)
			}
			q := strings.ToLower(strings.TrimSpace(f.Query))
			if q != "" && !strings.Contains(strings.ToLower(g.Title), q) && !strings.Contains(strings.ToLower(g.Notes), q) {
				t.Fatalf("game %s does not match query %q", g.ID, f.Query)
			}
		}
	})
}

// TestEmptyFilterIsIdentityProperty checks that removing all filters yields the original set.
func TestEmptyFilterIsIdentityProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		games := genGames().Draw(t, "games")
		got := Filter{}.Apply(games)
		if strings.Join(ids(got), ",") != strings.Join(ids(games), ",") {
			t.Fatalf("expected %v, got %v", ids(games), ids(got))
		}
	})
}

// TestStatsProperty checks counts and totals against an independent computation.
func TestStatsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		games := genGames().Draw(t, "games")
		stats := CalculateStats(games)

		if stats.Total != len(games) {
			t.Fatalf("total=%d, want %d", stats.Total, len(games))
		}
		if stats.NotStarted+stats.InProgress+stats.Completed != stats.Total {
			t.Fatalf("status counts %d+%d+%d do not add up to %d",
				stats.NotStarted, stats.InProgress, stats.Completed, stats.Total)
		}

		var spent, remaining int64
		for _, g := range games {
			if g.Price == nil {
				continue
			}
			cents := g.Price.Decimal().Shift(2).IntPart()
			spent += cents
			if g.Status != model.StatusCompleted {
				remaining += cents
			}
		}
		if !stats.TotalSpent.Decimal().Equal(decimal.New(spent, -2)) {
			t.Fatalf("totalSpent=%s, want %d cents", stats.TotalSpent, spent)
		}
		if !stats.EstimatedRemaining.Decimal().Equal(decimal.New(remaining, -2)) {
			t.Fatalf("estimatedRemaining=%s, want %d cents", stats.EstimatedRemaining, remaining)
		}
	})
}

// TestCompletionInvariantProperty checks that any sequence of status changes keeps
// DateCompleted present exactly when the game is completed.
func TestCompletionInvariantProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := model.Game{Status: genStatus().Draw(t, "initial")}
		EnforceCompletion(&g, testNow)

		steps := rapid.IntRange(1, 20).Draw(t, "steps")
		now := testNow
		for i := 0; i < steps; i++ {
			now = now.Add(time.Minute)
			prev := g.Clone()
			next := genStatus().Draw(t, "next")
			ApplyStatus(&g, next, now)

			if (g.Status == model.StatusCompleted) != (g.DateCompleted != nil) {
				t.Fatalf("status=%s dateCompleted=%v", g.Status, g.DateCompleted)
			}
			if prev.Status == next {
				if (prev.DateCompleted == nil) != (g.DateCompleted == nil) ||
					(prev.DateCompleted != nil && !prev.DateCompleted.Equal(*g.DateCompleted)) {
					t.Fatalf("unchanged status must not touch dateCompleted")
				}
			}
		}
	})
}

// TestDropProperty checks the board state machine against the column set.
func TestDropProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		current := genStatus().Draw(t, "current")
		column := rapid.OneOf(
			rapid.Map(genStatus(), func(s model.Status) string { return string(s) }),
			rapid.StringMatching(`[a-z_]{0,12}`),
		).Draw(t, "column")

		next, moved := Drop(current, column)
		valid := model.Status(column).Valid()
		if moved != (valid && model.Status(column) != current) {
			t.Fatalf("Drop(%s, %q) moved=%v", current, column, moved)
		}
		if moved && next != model.Status(column) {
			t.Fatalf("Drop(%s, %q) = %s", current, column, next)
		}
		if !moved && next != current {
			t.Fatalf("no-op drop changed status to %s", next)
		}
	})
}

// TestDuplicateCaseInsensitiveProperty checks that re-casing a stored title still matches
// on the same platform and never matches on a different one.
func TestDuplicateCaseInsensitiveProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		games := genGames().Draw(t, "games")
		if len(games) == 0 {
			t.Skip("empty backlog")
		}
		target := games[rapid.IntRange(0, len(games)-1).Draw(t, "idx")]
		title := strings.ToUpper(target.Title)

		dup, ok := FindDuplicate(title, target.Platform, games)
		if !ok {
			t.Fatalf("expected %q on %q to be found", title, target.Platform)
		}
		if !strings.EqualFold(dup.Title, target.Title) || dup.Platform != target.Platform {
			t.Fatalf("unexpected match %+v for %+v", dup, target)
		}

		other := genPlatform().Draw(t, "other")
		if dup, ok := FindDuplicate(title, other, games); ok && dup.Platform != other {
			t.Fatalf("match across platforms: %q vs %q", dup.Platform, other)
		}
	})
}
