package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmax-ai/grcgraph/pkg/catalog"
)

func newControlsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "controls",
		Short: "Manage framework control documents",
	}

	var force bool
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Write a document for every ISO 27001:2022 Annex A control",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runControlsGenerate(cmd.Context(), force)
		},
	}
	generate.Flags().BoolVar(&force, "force", false, "overwrite existing control documents")

	cmd.AddCommand(generate)
	return cmd
}

func (a *app) runControlsGenerate(ctx context.Context, force bool) error {
	res, err := catalog.Generate(ctx, a.repo(), force)
	if err != nil {
		return err
	}
	dir := resolvePath("frameworks/iso27001/controls", a.cfg.Root)
	fmt.Fprintf(a.stdout, "Generated %d control files in %s\n", len(res.Written), dir)
	if len(res.Skipped) > 0 {
		fmt.Fprintf(a.stdout, "Skipped %d existing files (use --force to overwrite)\n", len(res.Skipped))
	}
	return nil
}
