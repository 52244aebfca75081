package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rmax-ai/grcgraph/pkg/propagation"
	"github.com/rmax-ai/grcgraph/pkg/reports"
	"github.com/rmax-ai/grcgraph/pkg/store"
	"github.com/rmax-ai/grcgraph/pkg/store/redis"
)

func newPropagateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "propagate [files...]",
		Short: "Flag downstream documents of changed files for review",
		Long: "Flag downstream documents of the given files, or of the staged files when none are given. " +
			"Warnings never block: the command exits 0 unless the configuration is invalid.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.runPropagate(cmd.Context(), args)
			return nil
		},
	}
}

// changedKeys maps CLI paths to root-relative keys, or asks git for the
// staged files when no paths are given.
func (a *app) changedKeys(ctx context.Context, args []string) propagation.ChangedSet {
	if len(args) == 0 {
		files, err := a.staged(ctx, a.cfg.Root)
		if err != nil {
			a.logger.Debug("git_staged_files_unavailable", "error", err)
			return propagation.NewChangedSet()
		}
		return propagation.NewChangedSet(files...)
	}

	keys := make([]string, 0, len(args))
	for _, arg := range args {
		abs := resolvePath(arg, a.cwd)
		rel, err := filepath.Rel(a.cfg.Root, abs)
		if err != nil {
			rel = arg
		}
		keys = append(keys, filepath.ToSlash(rel))
	}
	return propagation.NewChangedSet(keys...)
}

// gitStagedFiles lists staged paths relative to dir.
func gitStagedFiles(ctx context.Context, dir string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--cached", "--name-only", "--relative")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff failed: %w", err)
	}
	var files []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			files = append(files, line)
		}
	}
	return files, sc.Err()
}

func (a *app) runPropagate(ctx context.Context, args []string) {
	artifacts, err := a.artifacts(ctx)
	if err != nil {
		a.logger.Warn("artifact_store_unavailable", "error", err)
		fmt.Fprintf(a.stdout, "grcgraph propagate: artifact store unavailable (%v). Skipping.\n", err)
		return
	}

	snap, err := reports.LoadSnapshot(ctx, artifacts)
	if err != nil {
		if errors.Is(err, reports.ErrNoGraph) {
			fmt.Fprintf(a.stdout, "grcgraph propagate: %s not found (graph not built yet). Skipping.\n", reports.GraphFile)
		} else {
			a.logger.Debug("graph_unreadable", "error", err)
			fmt.Fprintf(a.stdout, "grcgraph propagate: Could not parse %s. Skipping.\n", reports.GraphFile)
		}
		return
	}

	changed := a.changedKeys(ctx, args)
	if changed.Len() == 0 {
		return
	}

	be, err := a.openBackend(ctx, artifacts)
	if err != nil {
		a.logger.Warn("pending_store_unavailable", "error", err)
		fmt.Fprintf(a.stdout, "grcgraph propagate: pending-review store unavailable (%v). Skipping.\n", err)
		return
	}
	defer be.close()

	tracker := propagation.NewTracker(be.pending, propagation.WithClock(a.now), propagation.WithLogger(a.logger))
	var res propagation.Result
	runTracker := func() error {
		res = tracker.Run(ctx, snap, changed)
		return nil
	}

	if be.leases != nil {
		if err := store.WithLease(ctx, be.leases, propagationLease, propagationLeaseTTL, runTracker); err != nil {
			a.logger.Warn("propagation_lease_failed", "error", err)
			fmt.Fprintf(a.stdout, "grcgraph propagate: another run holds the pending-review store (%v). Skipping.\n", err)
			return
		}
	} else {
		runTracker()
	}

	for _, issue := range res.Issues {
		fmt.Fprintf(a.stderr, "grcgraph propagate: warning: %v\n", issue)
	}
	printWarnings(a.stdout, res, a.pendingLocation())
}

// pendingLocation names where the pending reviews live, for messages.
func (a *app) pendingLocation() string {
	switch a.cfg.PendingBackend {
	case "sqlite":
		return a.cfg.DBPath
	case "redis":
		return "redis key " + redis.DefaultPendingKey
	}
	if a.cfg.Artifacts == "s3" {
		return a.artifactLocation() + propagation.PendingFile
	}
	return filepath.Join(a.cfg.ComputedDir, propagation.PendingFile)
}

// printWarnings writes the review warnings. Styling is dropped when w is not
// a terminal.
func printWarnings(w io.Writer, res propagation.Result, saved string) {
	r := lipgloss.NewRenderer(w)
	heading := r.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	target := r.NewStyle().Bold(true)
	subtle := r.NewStyle().Foreground(lipgloss.Color("241"))

	if len(res.Flagged) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, heading.Render("=== Change Propagation Warnings ==="))
		fmt.Fprintln(w)
		fmt.Fprintln(w, "The following downstream documents may need review:")
		fmt.Fprintln(w)
		for _, warn := range res.Flagged {
			fmt.Fprintf(w, "  %s\n", target.Render(warn.NeedsReview))
			fmt.Fprintf(w, "    %s\n", subtle.Render("triggered by: "+warn.Changed))
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%d document(s) flagged for review.\n", len(res.Flagged))
		if res.Persisted {
			fmt.Fprintf(w, "Pending reviews saved to %s\n", saved)
		}
		fmt.Fprintln(w)
	}

	if res.Resolved > 0 {
		fmt.Fprintf(w, "%d previously pending review(s) resolved (files were updated in this commit).\n", res.Resolved)
		fmt.Fprintln(w)
	}
}
