// Package view renders games, boards and stats as chat text and inline keyboards.
package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"backlog-manager/internal/backlog"
	"backlog-manager/internal/model"
)

const separator = "━━━━━━━━━━━━━━━\n"

// DateLayout is the display format for dates.
const DateLayout = "Jan 2, 2006"

// FormatCurrency renders an amount as US dollars, e.g. "$1,234.50".
func FormatCurrency(m model.Money) string {
	f := m.Float64()
	if f < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -f)
	}
	return "$" + humanize.FormatFloat("#,###.##", f)
}

// FormatDate renders a date in UTC, e.g. "Mar 9, 2024".
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ShortID returns the last eight characters of an id, enough to address a game in commands.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[len(id)-8:]
}

// StatusEmoji returns the marker used for a status.
func StatusEmoji(s model.Status) string {
	switch s {
	case model.StatusNotStarted:
		return "⏳"
	case model.StatusInProgress:
		return "🎮"
	case model.StatusCompleted:
		return "✅"
	default:
		return "❔"
	}
}

// FormatGame renders the full card of one game.
func FormatGame(g model.Game) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", StatusEmoji(g.Status), g.Title)
	b.WriteString(separator)
	if g.Platform != model.PlatformNone {
		fmt.Fprintf(&b, "🕹 Platform: %s\n", g.Platform)
	}
	fmt.Fprintf(&b, "📌 Status: %s\n", g.Status.Label())
	if g.Price != nil {
		fmt.Fprintf(&b, "💵 Price: %s\n", FormatCurrency(*g.Price))
	}
	fmt.Fprintf(&b, "📅 Added: %s\n", FormatDate(g.DateAdded))
	if g.DateCompleted != nil {
		fmt.Fprintf(&b, "🏁 Completed: %s\n", FormatDate(*g.DateCompleted))
	}
	if g.Notes != "" {
		fmt.Fprintf(&b, "📝 %s\n", g.Notes)
	}
	b.WriteString(separator)
	fmt.Fprintf(&b, "🆔 %s", ShortID(g.ID))
	return b.String()
}

// FormatGameLine renders a game as a single list line.
func FormatGameLine(g model.Game) string {
	line := fmt.Sprintf("%s %s", StatusEmoji(g.Status), g.Title)
	if g.Platform != model.PlatformNone {
		line += fmt.Sprintf(" (%s)", g.Platform)
	}
	if g.Price != nil {
		line += " · " + FormatCurrency(*g.Price)
	}
	return line + " · " + ShortID(g.ID)
}

// FormatGameList renders a filtered view. total is the size of the unfiltered backlog.
func FormatGameList(games []model.Game, f backlog.Filter, total int) string {
	if total == 0 {
		return "📭 Your backlog is empty.\n\nAdd a game with /add Title | Platform"
	}
	if len(games) == 0 {
		return "🔍 No games match " + describeFilter(f) + "."
	}

	var b strings.Builder
	if f.IsZero() {
		fmt.Fprintf(&b, "📚 Your backlog (%d)\n", total)
	} else {
		fmt.Fprintf(&b, "🔍 %d of %d games match %s\n", len(games), total, describeFilter(f))
	}
	b.WriteString(separator)
	for _, g := range games {
		b.WriteString(FormatGameLine(g))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func describeFilter(f backlog.Filter) string {
	var parts []string
	if f.Status != "" {
		parts = append(parts, "status "+f.Status.Label())
	}
	if f.Platform != model.PlatformNone {
		parts = append(parts, "platform "+string(f.Platform))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		parts = append(parts, fmt.Sprintf("%q", q))
	}
	if len(parts) == 0 {
		return "the filter"
	}
	return strings.Join(parts, ", ")
}

// FormatBoard renders the three board columns with their cards.
func FormatBoard(games []model.Game) string {
	groups := backlog.GroupByStatus(games)

	var b strings.Builder
	b.WriteString("🗂 Board\n")
	for _, col := range backlog.Columns() {
		cards := groups[col]
		b.WriteString(separator)
		fmt.Fprintf(&b, "%s %s (%d)\n", StatusEmoji(col), col.Label(), len(cards))
		if len(cards) == 0 {
			b.WriteString("   No games\n")
			continue
		}
		for _, g := range cards {
			fmt.Fprintf(&b, "   • %s", g.Title)
			if g.Platform != model.PlatformNone {
				fmt.Fprintf(&b, " (%s)", g.Platform)
			}
			fmt.Fprintf(&b, " · %s\n", ShortID(g.ID))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatStats renders the summary block.
func FormatStats(st model.Stats) string {
	var b strings.Builder
	b.WriteString("📊 Backlog stats\n")
	b.WriteString(separator)
	fmt.Fprintf(&b, "📚 Total Games: %d\n", st.Total)
	fmt.Fprintf(&b, "⏳ Not Started: %d\n", st.NotStarted)
	fmt.Fprintf(&b, "🎮 In Progress: %d\n", st.InProgress)
	fmt.Fprintf(&b, "✅ Completed: %d\n", st.Completed)
	b.WriteString(separator)
	fmt.Fprintf(&b, "💰 Total Spent: %s\n", FormatCurrency(st.TotalSpent))
	fmt.Fprintf(&b, "🧾 Backlog Value: %s", FormatCurrency(st.EstimatedRemaining))
	return b.String()
}

// FormatDuplicate renders the warning shown when an add is rejected.
func FormatDuplicate(existing model.Game) string {
	where := ""
	if existing.Platform != model.PlatformNone {
		where = " on " + string(existing.Platform)
	}
	return fmt.Sprintf("⚠️ \"%s\"%s is already in your backlog (Status: %s).",
		existing.Title, where, existing.Status.Label())
}
