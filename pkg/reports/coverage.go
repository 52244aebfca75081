package reports

import (
	"math"
	"time"

	"github.com/rmax-ai/grcgraph/pkg/graph"
)

// FrameworkCoverage holds the coverage metrics of one framework.
type FrameworkCoverage struct {
	TotalControls        int     `json:"total_controls"`
	ApplicableControls   int     `json:"applicable_controls"`
	ControlsWithPolicies int     `json:"controls_with_policies"`
	ControlsWithEvidence int     `json:"controls_with_evidence"`
	ControlsImplemented  int     `json:"controls_implemented"`
	ControlsPartial      int     `json:"controls_partial"`
	PolicyCoveragePct    float64 `json:"policy_coverage_pct"`
	EvidenceCoveragePct  float64 `json:"evidence_coverage_pct"`
	ImplementationPct    float64 `json:"implementation_pct"`
}

// CoverageReport maps framework names to their coverage.
type CoverageReport struct {
	GeneratedAt time.Time                    `json:"generated_at"`
	Frameworks  map[string]FrameworkCoverage `json:"frameworks"`
}

// BuildCoverage computes coverage for every framework with at least one
// control document. With-counts span all controls; percentages use the
// applicable controls as denominator.
func BuildCoverage(snap *graph.Snapshot, generatedAt time.Time) *CoverageReport {
	report := &CoverageReport{GeneratedAt: generatedAt, Frameworks: make(map[string]FrameworkCoverage)}

	for _, fw := range graph.Frameworks {
		controls := controlNodes(snap, fw)
		if len(controls) == 0 {
			continue
		}
		idx := snap.Index(fw.Name)

		var c FrameworkCoverage
		applicableImplemented := 0
		for _, n := range controls {
			c.TotalControls++
			if n.IsApplicable() {
				c.ApplicableControls++
			}
			if len(idx.ControlsToPolicies[n.ID]) > 0 {
				c.ControlsWithPolicies++
			}
			if len(idx.ControlsToEvidence[n.ID]) > 0 {
				c.ControlsWithEvidence++
			}
			switch n.ImplementationStatus {
			case "implemented":
				c.ControlsImplemented++
				if n.IsApplicable() {
					applicableImplemented++
				}
			case "partial":
				c.ControlsPartial++
			}
		}
		c.PolicyCoveragePct = Percent(c.ControlsWithPolicies, c.ApplicableControls)
		c.EvidenceCoveragePct = Percent(c.ControlsWithEvidence, c.ApplicableControls)
		c.ImplementationPct = Percent(applicableImplemented, c.ApplicableControls)

		report.Frameworks[fw.Name] = c
	}

	return report
}

// Percent returns n/d as a percentage with one decimal, halves rounded up.
// A zero denominator yields 0.
func Percent(n, d int) float64 {
	if d <= 0 {
		return 0
	}
	return math.Floor(float64(n)/float64(d)*1000+0.5) / 10
}
