package reports

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rmax-ai/grcgraph/pkg/graph"
)

// DefaultSOAFramework uses hierarchical A.<major>.<minor> control numbering.
const DefaultSOAFramework = "iso27001"

// SOAEntry is one control in the Statement of Applicability.
type SOAEntry struct {
	ID                   string   `json:"id"`
	Title                string   `json:"title"`
	Category             string   `json:"category,omitempty"`
	Applicable           bool     `json:"applicable"`
	Justification        string   `json:"justification"`
	ImplementationStatus string   `json:"implementation_status"`
	ImplementingPolicies []string `json:"implementing_policies"`
	RelatedRisks         []string `json:"related_risks"`
	Evidence             []string `json:"evidence"`
}

// SOA is the Statement of Applicability for one framework.
type SOA struct {
	GeneratedAt time.Time  `json:"generated_at"`
	Framework   string     `json:"framework"`
	Controls    []SOAEntry `json:"controls"`
}

// BuildSOA lists the framework's controls in numeric id order, enriched from
// the framework index.
func BuildSOA(snap *graph.Snapshot, framework string, generatedAt time.Time) *SOA {
	if framework == "" {
		framework = DefaultSOAFramework
	}
	soa := &SOA{GeneratedAt: generatedAt, Framework: framework, Controls: make([]SOAEntry, 0)}

	fw, ok := graph.LookupFramework(framework)
	if !ok {
		return soa
	}
	controls := controlNodes(snap, fw)
	SortControls(controls)

	idx := snap.Index(framework)
	for _, n := range controls {
		soa.Controls = append(soa.Controls, SOAEntry{
			ID:                   n.ID,
			Title:                n.Title,
			Category:             n.Category,
			Applicable:           n.IsApplicable(),
			Justification:        n.Justification,
			ImplementationStatus: n.ImplementationStatus,
			ImplementingPolicies: listOrEmpty(idx.ControlsToPolicies[n.ID]),
			RelatedRisks:         listOrEmpty(idx.ControlsToRisks[n.ID]),
			Evidence:             listOrEmpty(idx.ControlsToEvidence[n.ID]),
		})
	}
	return soa
}

// SortControls orders controls by (major, minor) as integers. Ids that do not
// follow A.<major>.<minor> sort after the rest, by id.
func SortControls(nodes []*graph.Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return ControlLess(nodes[i].ID, nodes[j].ID)
	})
}

// ControlLess compares two hierarchical control ids.
func ControlLess(a, b string) bool {
	am, an, aok := parseControlID(a)
	bm, bn, bok := parseControlID(b)
	switch {
	case aok && bok:
		if am != bm {
			return am < bm
		}
		return an < bn
	case aok:
		return true
	case bok:
		return false
	}
	return a < b
}

func parseControlID(id string) (major, minor int, ok bool) {
	parts := strings.Split(strings.TrimPrefix(id, "A."), ".")
	if len(parts) != 2 {
		return 0, 0, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
}

func listOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
