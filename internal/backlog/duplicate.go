// Package backlog implements the pure rules of the game backlog: duplicate detection,
// the status transition policy, the board drop state machine, filtering and stats.
// Nothing here performs I/O; the record store in package service calls into it.
package backlog

import (
	"strings"

	"backlog-manager/internal/model"
)

// FindDuplicate returns the first game with the same title (ignoring case) on the same platform.
// Two games without a platform count as the same platform. The title is trimmed before comparing.
func FindDuplicate(title string, platform model.Platform, games []model.Game) (model.Game, bool) {
	want := strings.ToLower(strings.TrimSpace(title))
	for _, g := range games {
		if strings.ToLower(g.Title) == want && g.Platform == platform {
			return g, true
		}
	}
	return model.Game{}, false
}
