package reports

import (
	"context"
	"io"
	"time"

	"github.com/rmax-ai/grcgraph/pkg/graph"
)

type ReportType string

const (
	ReportTypeGraph     ReportType = "graph"
	ReportTypeDashboard ReportType = "dashboard"
	ReportTypeStale     ReportType = "stale"
	ReportTypeSOA       ReportType = "soa"
	ReportTypeCoverage  ReportType = "coverage"
)

type ReportFormat string

const (
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatJSON ReportFormat = "json"
)

// ReportParams carries the snapshot and the explicit dates of one run.
type ReportParams struct {
	Snapshot    *graph.Snapshot
	Today       time.Time // reference calendar day for staleness
	GeneratedAt time.Time
	Framework   string // SOA framework; defaults to iso27001
}

type Generator interface {
	Generate(ctx context.Context, params ReportParams) (io.Reader, error)
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const dayLayout = "2006-01-02"

// ParseDay parses the calendar date at the start of s. It accepts plain
// dates and full timestamps.
func ParseDay(s string) (time.Time, bool) {
	if len(s) < len(dayLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(dayLayout, s[:len(dayLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatDay renders a calendar date as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.Format(dayLayout)
}
