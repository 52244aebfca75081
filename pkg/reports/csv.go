package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// writeCSV renders a header row and records into a reader.
func writeCSV(headers []string, rows [][]string) (io.Reader, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	if err := writer.Write(headers); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf, nil
}

// StaleCSVGenerator exports the stale report for spreadsheets.
type StaleCSVGenerator struct{}

func (g *StaleCSVGenerator) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	if params.Snapshot == nil {
		return nil, fmt.Errorf("report %s: no snapshot", ReportTypeStale)
	}
	report := BuildStaleReport(params.Snapshot, params.Today, params.GeneratedAt)

	rows := make([][]string, 0, len(report.StaleItems))
	for _, item := range report.StaleItems {
		rows = append(rows, []string{
			item.File,
			string(item.Type),
			item.Title,
			item.NextReview,
			strconv.Itoa(item.DaysOverdue),
			item.Owner,
		})
	}
	return writeCSV([]string{"file", "type", "title", "next_review", "days_overdue", "owner"}, rows)
}

// SOACSVGenerator exports the Statement of Applicability for auditors.
// List columns are joined with semicolons.
type SOACSVGenerator struct{}

func (g *SOACSVGenerator) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	if params.Snapshot == nil {
		return nil, fmt.Errorf("report %s: no snapshot", ReportTypeSOA)
	}
	soa := BuildSOA(params.Snapshot, params.Framework, params.GeneratedAt)

	rows := make([][]string, 0, len(soa.Controls))
	for _, c := range soa.Controls {
		rows = append(rows, []string{
			c.ID,
			c.Title,
			c.Category,
			strconv.FormatBool(c.Applicable),
			c.Justification,
			c.ImplementationStatus,
			strings.Join(c.ImplementingPolicies, ";"),
			strings.Join(c.RelatedRisks, ";"),
			strings.Join(c.Evidence, ";"),
		})
	}
	headers := []string{
		"id", "title", "category", "applicable", "justification",
		"implementation_status", "implementing_policies", "related_risks", "evidence",
	}
	return writeCSV(headers, rows)
}

// CoverageCSVGenerator writes one row per framework, sorted by name.
type CoverageCSVGenerator struct{}

func (g *CoverageCSVGenerator) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	if params.Snapshot == nil {
		return nil, fmt.Errorf("report %s: no snapshot", ReportTypeCoverage)
	}
	report := BuildCoverage(params.Snapshot, params.GeneratedAt)

	names := make([]string, 0, len(report.Frameworks))
	for name := range report.Frameworks {
		names = append(names, name)
	}
	sort.Strings(names)

	pct := func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) }
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		c := report.Frameworks[name]
		rows = append(rows, []string{
			name,
			strconv.Itoa(c.TotalControls),
			strconv.Itoa(c.ApplicableControls),
			strconv.Itoa(c.ControlsWithPolicies),
			strconv.Itoa(c.ControlsWithEvidence),
			strconv.Itoa(c.ControlsImplemented),
			strconv.Itoa(c.ControlsPartial),
			pct(c.PolicyCoveragePct),
			pct(c.EvidenceCoveragePct),
			pct(c.ImplementationPct),
		})
	}
	headers := []string{
		"framework", "total_controls", "applicable_controls", "controls_with_policies",
		"controls_with_evidence", "controls_implemented", "controls_partial",
		"policy_coverage_pct", "evidence_coverage_pct", "implementation_pct",
	}
	return writeCSV(headers, rows)
}
