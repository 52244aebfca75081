package reports

import (
	"sort"
	"time"

	"github.com/rmax-ai/grcgraph/pkg/graph"
)

// StaleItem is one document past its review date.
type StaleItem struct {
	File        string         `json:"file"`
	Type        graph.NodeType `json:"type"`
	Title       string         `json:"title,omitempty"`
	NextReview  string         `json:"next_review"`
	DaysOverdue int            `json:"days_overdue"`
	Owner       string         `json:"owner,omitempty"`
}

// StaleReport lists overdue documents, most overdue first.
type StaleReport struct {
	GeneratedAt time.Time   `json:"generated_at"`
	Today       string      `json:"today"`
	StaleItems  []StaleItem `json:"stale_items"`
}

// BuildStaleReport collects every policy-like document and risk whose review
// date lies strictly before today. Ties keep snapshot order.
func BuildStaleReport(snap *graph.Snapshot, today, generatedAt time.Time) *StaleReport {
	ref := Day(today)
	items := make([]StaleItem, 0)

	snap.Nodes.Each(func(key string, n *graph.Node) {
		due, ok := ParseDay(n.ReviewDue())
		if !ok {
			return
		}
		overdue := DaysBetween(due, ref)
		if overdue <= 0 {
			return
		}
		items = append(items, StaleItem{
			File:        key,
			Type:        n.Type,
			Title:       n.Title,
			NextReview:  FormatDay(due),
			DaysOverdue: overdue,
			Owner:       n.Owner,
		})
	})

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DaysOverdue > items[j].DaysOverdue
	})

	return &StaleReport{
		GeneratedAt: generatedAt,
		Today:       FormatDay(ref),
		StaleItems:  items,
	}
}

// DaysBetween returns the whole days from a to b, rounded down.
func DaysBetween(a, b time.Time) int {
	// Unix seconds, not Duration, so centuries apart do not saturate.
	const secondsPerDay = 24 * 60 * 60
	d := Day(b).Unix() - Day(a).Unix()
	days := d / secondsPerDay
	if d < 0 && d%secondsPerDay != 0 {
		days--
	}
	return int(days)
}
