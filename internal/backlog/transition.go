package backlog

import (
	"time"

	"backlog-manager/internal/model"
)

// ApplyStatus moves g to next and keeps DateCompleted consistent with it.
// Returns true if the status changed. An unchanged status leaves every field as is.
func ApplyStatus(g *model.Game, next model.Status, now time.Time) bool {
	if g.Status == next {
		return false
	}
	g.Status = next
	EnforceCompletion(g, now)
	return true
}

// EnforceCompletion stamps DateCompleted on a completed game that lacks one
// and clears it on any other status.
func EnforceCompletion(g *model.Game, now time.Time) {
	switch g.Status {
	case model.StatusCompleted:
		if g.DateCompleted == nil {
			t := now
			g.DateCompleted = &t
		}
	case model.StatusNotStarted, model.StatusInProgress:
		g.DateCompleted = nil
	}
}

// Columns returns the board columns in display order. Column identifiers are status values.
func Columns() []model.Status {
	return model.Statuses()
}

// Drop resolves a card dropped on column. It returns the new status and true when the drop
// is a real move; dropping on the card's own column or outside any column is a no-op.
func Drop(current model.Status, column string) (model.Status, bool) {
	if column == "" {
		return current, false
	}
	next := model.Status(column)
	if !next.Valid() || next == current {
		return current, false
	}
	return next, true
}

// QuickAction is a one-click status change offered on a game card.
type QuickAction string

// Quick actions.
const (
	ActionComplete QuickAction = "complete"
	ActionStart    QuickAction = "start"
)

// QuickActions returns the actions offered for a game in the given status.
func QuickActions(s model.Status) []QuickAction {
	switch s {
	case model.StatusNotStarted:
		return []QuickAction{ActionComplete, ActionStart}
	case model.StatusInProgress:
		return []QuickAction{ActionComplete}
	case model.StatusCompleted:
		return nil
	default:
		return nil
	}
}

// Target returns the status a quick action moves a game to.
func (a QuickAction) Target() (model.Status, bool) {
	switch a {
	case ActionComplete:
		return model.StatusCompleted, true
	case ActionStart:
		return model.StatusInProgress, true
	default:
		return "", false
	}
}

// Label returns the button text of the action.
func (a QuickAction) Label() string {
	switch a {
	case ActionComplete:
		return "Mark Complete"
	case ActionStart:
		return "Start Playing"
	default:
		return string(a)
	}
}
