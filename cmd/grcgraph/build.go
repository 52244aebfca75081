package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmax-ai/grcgraph/pkg/blob"
	"github.com/rmax-ai/grcgraph/pkg/graph"
	"github.com/rmax-ai/grcgraph/pkg/metrics"
	"github.com/rmax-ai/grcgraph/pkg/reports"
	"github.com/rmax-ai/grcgraph/pkg/source"
	"github.com/rmax-ai/grcgraph/pkg/store"
)

// rendered is one in-memory build: the snapshot and every artifact.
type rendered struct {
	params    reports.ReportParams
	artifacts []reports.Artifact
}

// render discovers and parses documents, builds the graph and renders all
// reports without writing anything.
func (a *app) render(ctx context.Context) (*rendered, error) {
	src := source.NewFS(a.cfg.Root, source.WithWorkers(a.cfg.Workers), source.WithLogger(a.logger))
	docs, err := src.Documents(ctx)
	if err != nil {
		return nil, err
	}
	snap := graph.Build(docs, graph.WithClock(a.now))
	params := reports.ReportParams{
		Snapshot:    snap,
		Today:       a.cfg.Day,
		GeneratedAt: snap.GeneratedAt,
		Framework:   reports.DefaultSOAFramework,
	}
	artifacts, err := reports.RenderAll(params)
	if err != nil {
		return nil, err
	}
	return &rendered{params: params, artifacts: artifacts}, nil
}

func newBuildCommand(a *app) *cobra.Command {
	var metricsFile string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the graph and write every computed artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBuild(cmd.Context(), resolvePath(metricsFile, a.cfg.Root))
		},
	}
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus gauges to this textfile, relative to the root")
	return cmd
}

func (a *app) runBuild(ctx context.Context, metricsFile string) error {
	r, err := a.render(ctx)
	if err != nil {
		return err
	}

	out, err := a.artifacts(ctx)
	if err != nil {
		return err
	}
	if err := blob.PutAll(ctx, out, reports.ArtifactObjects(r.artifacts)); err != nil {
		return err
	}

	snap := r.params.Snapshot
	stale := reports.BuildStaleReport(snap, r.params.Today, r.params.GeneratedAt)
	a.logger.Info("graph_built", "nodes", snap.Nodes.Len(), "edges", len(snap.Edges), "stale", len(stale.StaleItems))

	be, err := a.openBackend(ctx, out)
	if err != nil {
		return err
	}
	defer be.close()

	if be.builds != nil {
		id, err := be.builds.RecordBuild(ctx, store.BuildRecord{
			GeneratedAt: snap.GeneratedAt,
			Root:        a.cfg.Root,
			Nodes:       snap.Nodes.Len(),
			Edges:       len(snap.Edges),
			Stale:       len(stale.StaleItems),
			Artifacts:   len(r.artifacts),
		})
		if err != nil {
			a.logger.Warn("build_record_failed", "error", err)
		} else {
			a.logger.Debug("build_recorded", "build_id", id)
		}
	}

	if metricsFile != "" {
		metrics.ObserveBuild(snap, stale, reports.BuildCoverage(snap, r.params.GeneratedAt))
		if state, err := be.pending.Load(ctx); err == nil && state != nil {
			metrics.ObservePending(len(state.Pending))
		}
		if err := metrics.WriteTextfile(metricsFile); err != nil {
			return err
		}
		a.logger.Debug("metrics_written", "path", metricsFile)
	}

	fmt.Fprintf(a.stdout, "Built graph: %d nodes, %d edges. Wrote %d files to %s\n",
		snap.Nodes.Len(), len(snap.Edges), len(r.artifacts), a.artifactLocation())
	return nil
}

// artifactLocation names where artifacts are written, for messages.
func (a *app) artifactLocation() string {
	if a.cfg.Artifacts == "s3" {
		if a.cfg.S3Prefix == "" {
			return "s3://" + a.cfg.S3Bucket + "/"
		}
		return "s3://" + a.cfg.S3Bucket + "/" + a.cfg.S3Prefix + "/"
	}
	return a.cfg.ComputedDir
}
