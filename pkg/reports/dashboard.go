package reports

import (
	"fmt"
	"time"

	"github.com/rmax-ai/grcgraph/pkg/graph"
)

// Totals counts nodes per document type.
type Totals struct {
	Policies   int `json:"policies"`
	Procedures int `json:"procedures"`
	Risks      int `json:"risks"`
	Controls   int `json:"controls"`
	Criteria   int `json:"criteria"`
	Articles   int `json:"articles"`
	Incidents  int `json:"incidents"`
	Evidence   int `json:"evidence"`
	Program    int `json:"program"`
}

// FrameworkSummary is the per-framework block of the dashboard.
type FrameworkSummary struct {
	Controls           int `json:"controls"`
	ReferencedControls int `json:"referenced_controls"`
	ApplicableControls int `json:"applicable_controls"`
}

// DashboardStats aggregates counts and histograms over a snapshot.
type DashboardStats struct {
	GeneratedAt                    time.Time                   `json:"generated_at"`
	Totals                         Totals                      `json:"totals"`
	PoliciesByStatus               map[string]int              `json:"policies_by_status"`
	ControlsByImplementationStatus map[string]int              `json:"controls_by_implementation_status"`
	RisksByTreatment               map[string]int              `json:"risks_by_treatment"`
	RisksByInherentRisk            map[string]int              `json:"risks_by_inherent_risk"`
	EvidenceByStatus               map[string]int              `json:"evidence_by_status"`
	StaleDocuments                 int                         `json:"stale_documents"`
	Frameworks                     map[string]FrameworkSummary `json:"frameworks"`
}

// BuildDashboard computes dashboard statistics. Procedures share the policy
// status histogram; the implementation histogram covers ISO controls only.
func BuildDashboard(snap *graph.Snapshot, today, generatedAt time.Time) *DashboardStats {
	stats := &DashboardStats{
		GeneratedAt:                    generatedAt,
		PoliciesByStatus:               make(map[string]int),
		ControlsByImplementationStatus: make(map[string]int),
		RisksByTreatment:               make(map[string]int),
		RisksByInherentRisk:            make(map[string]int),
		EvidenceByStatus:               make(map[string]int),
		Frameworks:                     make(map[string]FrameworkSummary),
	}
	ref := Day(today)

	snap.Nodes.Each(func(_ string, n *graph.Node) {
		switch n.Type {
		case graph.NodePolicy:
			stats.Totals.Policies++
			increment(stats.PoliciesByStatus, n.Status)
		case graph.NodeProcedure:
			stats.Totals.Procedures++
			increment(stats.PoliciesByStatus, n.Status)
		case graph.NodeProgram:
			stats.Totals.Program++
		case graph.NodeRisk:
			stats.Totals.Risks++
			increment(stats.RisksByTreatment, n.Treatment)
			if n.InherentRisk != nil {
				increment(stats.RisksByInherentRisk, fmt.Sprint(n.InherentRisk))
			}
		case graph.NodeControl:
			stats.Totals.Controls++
			increment(stats.ControlsByImplementationStatus, n.ImplementationStatus)
		case graph.NodeCriterion:
			stats.Totals.Criteria++
		case graph.NodeArticle:
			stats.Totals.Articles++
		case graph.NodeIncident:
			stats.Totals.Incidents++
		case graph.NodeEvidence:
			stats.Totals.Evidence++
			increment(stats.EvidenceByStatus, n.Status)
		}

		if due, ok := ParseDay(n.ReviewDue()); ok && due.Before(ref) {
			stats.StaleDocuments++
		}
	})

	for _, fw := range graph.Frameworks {
		summary := FrameworkSummary{}
		for _, n := range controlNodes(snap, fw) {
			summary.Controls++
			if n.IsApplicable() {
				summary.ApplicableControls++
			}
		}
		idx, indexed := snap.Indexes[fw.Name]
		if indexed {
			summary.ReferencedControls = referencedControls(idx)
		}
		if summary.Controls > 0 || indexed {
			stats.Frameworks[fw.Name] = summary
		}
	}

	return stats
}

func increment(m map[string]int, key string) {
	if key == "" {
		return
	}
	m[key]++
}

func referencedControls(idx *graph.FrameworkIndex) int {
	seen := make(map[string]struct{})
	for _, m := range []map[string][]string{idx.ControlsToPolicies, idx.ControlsToRisks, idx.ControlsToEvidence} {
		for id, refs := range m {
			if len(refs) > 0 {
				seen[id] = struct{}{}
			}
		}
	}
	return len(seen)
}

// controlNodes returns the framework's own control documents in snapshot order.
func controlNodes(snap *graph.Snapshot, fw graph.Framework) []*graph.Node {
	var out []*graph.Node
	snap.Nodes.Each(func(_ string, n *graph.Node) {
		if n.Type == fw.NodeType && n.Framework == fw.Name {
			out = append(out, n)
		}
	})
	return out
}
