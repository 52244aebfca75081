// Package metrics exposes compliance posture as Prometheus gauges, written as
// a node-exporter textfile next to the computed artifacts.
package metrics

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/rmax-ai/grcgraph/pkg/graph"
	"github.com/rmax-ai/grcgraph/pkg/reports"
)

// TextfileName is the metrics artifact name in the computed directory.
const TextfileName = "grcgraph.prom"

// Registry holds only grcgraph metrics, so the textfile carries no Go
// runtime series.
var Registry = prometheus.NewRegistry()

var (
	// GrcgraphNodes tracks the number of nodes per document type
	GrcgraphNodes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "grcgraph_nodes",
			Help: "Number of graph nodes by document type",
		},
		[]string{"type"},
	)

	// GrcgraphEdges tracks the number of edges per relationship kind
	GrcgraphEdges = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "grcgraph_edges",
			Help: "Number of graph edges by relationship type",
		},
		[]string{"type"},
	)

	GrcgraphStaleDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "grcgraph_stale_documents",
			Help: "Documents whose review date has passed",
		},
	)

	// GrcgraphCoveragePercent tracks coverage per framework and kind
	// (policy, evidence, implementation)
	GrcgraphCoveragePercent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "grcgraph_coverage_percent",
			Help: "Framework coverage percentage",
		},
		[]string{"framework", "kind"},
	)

	GrcgraphPendingReviews = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "grcgraph_pending_reviews",
			Help: "Documents awaiting review after an upstream change",
		},
	)

	GrcgraphLastBuildTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "grcgraph_last_build_timestamp_seconds",
			Help: "Unix time of the last graph build",
		},
	)
)

func init() {
	Registry.MustRegister(GrcgraphNodes)
	Registry.MustRegister(GrcgraphEdges)
	Registry.MustRegister(GrcgraphStaleDocuments)
	Registry.MustRegister(GrcgraphCoveragePercent)
	Registry.MustRegister(GrcgraphPendingReviews)
	Registry.MustRegister(GrcgraphLastBuildTimestamp)
}

// ObserveBuild replaces the graph gauges with the values of one build.
func ObserveBuild(snap *graph.Snapshot, stale *reports.StaleReport, coverage *reports.CoverageReport) {
	GrcgraphNodes.Reset()
	GrcgraphEdges.Reset()
	GrcgraphCoveragePercent.Reset()

	snap.Nodes.Each(func(_ string, n *graph.Node) {
		GrcgraphNodes.WithLabelValues(string(n.Type)).Inc()
	})
	for _, e := range snap.Edges {
		GrcgraphEdges.WithLabelValues(string(e.Type)).Inc()
	}
	if stale != nil {
		GrcgraphStaleDocuments.Set(float64(len(stale.StaleItems)))
	}
	if coverage != nil {
		for name, c := range coverage.Frameworks {
			GrcgraphCoveragePercent.WithLabelValues(name, "policy").Set(c.PolicyCoveragePct)
			GrcgraphCoveragePercent.WithLabelValues(name, "evidence").Set(c.EvidenceCoveragePct)
			GrcgraphCoveragePercent.WithLabelValues(name, "implementation").Set(c.ImplementationPct)
		}
	}
	if !snap.GeneratedAt.IsZero() {
		GrcgraphLastBuildTimestamp.Set(float64(snap.GeneratedAt.Unix()))
	}
}

// ObservePending records the size of the pending-review set.
func ObservePending(n int) {
	GrcgraphPendingReviews.Set(float64(n))
}

// Render encodes every metric in g in the text exposition format.
func Render(g prometheus.Gatherer) ([]byte, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}
	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	return buf.Bytes(), nil
}

// WriteTextfile writes Registry to path atomically, for the node exporter
// textfile collector.
func WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
