package backlog

import (
	"fmt"
	"strings"

	"backlog-manager/internal/model"
)

// FilterAll is the filter value that matches everything.
const FilterAll = "all"

// Filter narrows a backlog to a view. Zero values match everything.
type Filter struct {
	Status   model.Status
	Platform model.Platform
	Query    string
}

// ParseFilter builds a Filter from raw input. "all" and "" disable a dimension.
func ParseFilter(status, platform, query string) (Filter, error) {
	var f Filter
	if s := strings.TrimSpace(status); s != "" && !strings.EqualFold(s, FilterAll) {
		st, err := model.ParseStatus(s)
		if err != nil {
			return Filter{}, fmt.Errorf("status filter: %w", err)
		}
		f.Status = st
	}
	if p := strings.TrimSpace(platform); p != "" && !strings.EqualFold(p, FilterAll) {
		pl, err := model.ParsePlatform(p)
		if err != nil {
			return Filter{}, fmt.Errorf("platform filter: %w", err)
		}
		f.Platform = pl
	}
	f.Query = query
	return f, nil
}

// IsZero reports whether the filter lets every game through.
func (f Filter) IsZero() bool {
	return f.Status == "" && f.Platform == model.PlatformNone && strings.TrimSpace(f.Query) == ""
}

// Apply returns the games matching f in their original order.
// Status, platform and search are applied in sequence; a game without a platform
// never matches a specific platform, and absent notes never match a query.
func (f Filter) Apply(games []model.Game) []model.Game {
	out := make([]model.Game, 0, len(games))
	query := strings.ToLower(strings.TrimSpace(f.Query))
	for _, g := range games {
		if f.Status != "" && g.Status != f.Status {
			continue
		}
		if f.Platform != model.PlatformNone && g.Platform != f.Platform {
			continue
		}
		if query != "" && !matchesQuery(g, query) {
			continue
		}
		out = append(out, g)
	}
	return out
}

func matchesQuery(g model.Game, query string) bool {
	if strings.Contains(strings.ToLower(g.Title), query) {
		return true
	}
	return g.Notes != "" && strings.Contains(strings.ToLower(g.Notes), query)
}

// GroupByStatus splits games into board columns, preserving order within each column.
func GroupByStatus(games []model.Game) map[model.Status][]model.Game {
	cols := make(map[model.Status][]model.Game, len(Columns()))
	for _, s := range Columns() {
		cols[s] = nil
	}
	for _, g := range games {
		cols[g.Status] = append(cols[g.Status], g)
	}
	return cols
}
