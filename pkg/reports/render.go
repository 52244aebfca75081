package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rmax-ai/grcgraph/pkg/blob"
	"github.com/rmax-ai/grcgraph/pkg/graph"
)

// Artifact file names inside the computed directory.
const (
	GraphFile     = "graph.json"
	DashboardFile = "dashboard-stats.json"
	StaleFile     = "stale-report.json"
	SOAFile       = "soa.json"
	CoverageFile  = "framework-coverage.json"
)

// ArtifactFiles lists the artifacts written by every build, in write order.
var ArtifactFiles = []string{GraphFile, DashboardFile, StaleFile, SOAFile, CoverageFile}

// Artifact is one rendered output document.
type Artifact struct {
	Name string
	Data []byte
}

// EncodeJSON renders v with two-space indentation and a trailing newline.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Build computes the value of one report.
func Build(reportType ReportType, params ReportParams) (any, error) {
	if params.Snapshot == nil {
		return nil, fmt.Errorf("report %s: no snapshot", reportType)
	}
	switch reportType {
	case ReportTypeGraph:
		return params.Snapshot, nil
	case ReportTypeDashboard:
		return BuildDashboard(params.Snapshot, params.Today, params.GeneratedAt), nil
	case ReportTypeStale:
		return BuildStaleReport(params.Snapshot, params.Today, params.GeneratedAt), nil
	case ReportTypeSOA:
		return BuildSOA(params.Snapshot, params.Framework, params.GeneratedAt), nil
	case ReportTypeCoverage:
		return BuildCoverage(params.Snapshot, params.GeneratedAt), nil
	default:
		return nil, fmt.Errorf("unknown report type: %s", reportType)
	}
}

// RenderAll renders every artifact in memory. Nothing is returned unless all
// of them rendered.
func RenderAll(params ReportParams) ([]Artifact, error) {
	types := []ReportType{ReportTypeGraph, ReportTypeDashboard, ReportTypeStale, ReportTypeSOA, ReportTypeCoverage}
	out := make([]Artifact, 0, len(types))
	for i, rt := range types {
		v, err := Build(rt, params)
		if err != nil {
			return nil, err
		}
		data, err := EncodeJSON(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", ArtifactFiles[i], err)
		}
		out = append(out, Artifact{Name: ArtifactFiles[i], Data: data})
	}
	return out, nil
}

// ErrNoGraph is returned by LoadSnapshot when graph.json has not been built.
var ErrNoGraph = errors.New("graph not built")

// LoadSnapshot reads graph.json back from the computed directory.
func LoadSnapshot(ctx context.Context, store blob.BlobStore) (*graph.Snapshot, error) {
	data, err := blob.ReadAll(ctx, store, GraphFile)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, ErrNoGraph
		}
		return nil, err
	}
	var snap graph.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", GraphFile, err)
	}
	return graph.Assemble(snap.GeneratedAt, snap.Nodes, snap.Edges, snap.Indexes), nil
}

// ArtifactObjects converts rendered artifacts into blob objects.
func ArtifactObjects(artifacts []Artifact) []blob.Object {
	out := make([]blob.Object, len(artifacts))
	for i, a := range artifacts {
		out[i] = blob.Object{Key: a.Name, Data: a.Data}
	}
	return out
}
