package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmax-ai/grcgraph/pkg/drift"
)

func newCheckCommand(a *app) *cobra.Command {
	var showDiff bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Fail when the stored artifacts are out of date",
		Long:  "Rebuild in memory and compare with the stored artifacts, ignoring generated_at. Exits 2 on drift.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheck(cmd.Context(), showDiff)
		},
	}
	cmd.Flags().BoolVar(&showDiff, "diff", true, "print a line diff for changed files")
	return cmd
}

func (a *app) runCheck(ctx context.Context, showDiff bool) error {
	r, err := a.render(ctx)
	if err != nil {
		return err
	}
	stored, err := a.artifacts(ctx)
	if err != nil {
		return err
	}
	report, err := drift.Check(ctx, stored, r.artifacts)
	if err != nil {
		return err
	}

	if !report.Drifted() {
		fmt.Fprintf(a.stdout, "All %d artifacts are up to date.\n", len(report.Files))
		return nil
	}

	changed := report.Changed()
	for _, f := range changed {
		fmt.Fprintf(a.stdout, "%s: %s\n", f.Name, f.Status)
		if showDiff && f.Diff != "" {
			fmt.Fprint(a.stdout, f.Diff)
		}
	}
	a.logger.Warn("artifacts_drifted", "files", len(changed))
	return codeError(2, "%d of %d artifacts out of date; run grcgraph build", len(changed), len(report.Files))
}
