package backlog

import "backlog-manager/internal/model"

// CalculateStats summarizes the full backlog in one pass.
// Games without a price count towards the totals by status only.
func CalculateStats(games []model.Game) model.Stats {
	stats := model.Stats{Total: len(games)}
	for _, g := range games {
		switch g.Status {
		case model.StatusNotStarted:
			stats.NotStarted++
		case model.StatusInProgress:
			stats.InProgress++
		case model.StatusCompleted:
			stats.Completed++
		}

		if g.Price == nil {
			continue
		}
		stats.TotalSpent = stats.TotalSpent.Add(*g.Price)
		if g.Status != model.StatusCompleted {
			stats.EstimatedRemaining = stats.EstimatedRemaining.Add(*g.Price)
		}
	}
	return stats
}
