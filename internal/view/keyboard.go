package view

import (
	tele "gopkg.in/telebot.v3"

	"backlog-manager/internal/backlog"
	"backlog-manager/internal/model"
)

// Callback data prefixes
const (
	CallbackDone   = "g_done:" // g_done:<id>
	CallbackPlay   = "g_play:" // g_play:<id>
	CallbackMove   = "g_move:" // g_move:<id>:<status>
	CallbackDelete = "g_del:"  // g_del:<id>
)

// ActionCallback returns the callback prefix of a quick action.
func ActionCallback(a backlog.QuickAction) string {
	switch a {
	case backlog.ActionComplete:
		return CallbackDone
	case backlog.ActionStart:
		return CallbackPlay
	default:
		return ""
	}
}

// BuildGameKeyboard creates the buttons under a game card: quick actions for
// its status, a move to every other column and delete.
func BuildGameKeyboard(g model.Game) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	var rows []tele.Row

	var actions []tele.Btn
	for _, a := range backlog.QuickActions(g.Status) {
		actions = append(actions, markup.Data(a.Label(), ActionCallback(a)+g.ID))
	}
	if len(actions) > 0 {
		rows = append(rows, markup.Row(actions...))
	}

	var moves []tele.Btn
	for _, col := range backlog.Columns() {
		if col == g.Status {
			continue
		}
		moves = append(moves, markup.Data("➡ "+col.Label(), CallbackMove+g.ID+":"+string(col)))
	}
	rows = append(rows, markup.Row(moves...))

	rows = append(rows, markup.Row(markup.Data("🗑 Delete", CallbackDelete+g.ID)))

	markup.Inline(rows...)
	return markup
}
