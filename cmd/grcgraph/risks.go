package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rmax-ai/grcgraph/pkg/riskimport"
)

func newRisksCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "risks",
		Short: "Manage risk documents",
	}

	var reviewDate string
	importCmd := &cobra.Command{
		Use:   "import <csv-file>",
		Short: "Convert a risk register CSV export into risks/r-nnn.yml files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRisksImport(cmd.Context(), resolvePath(args[0], a.cwd), reviewDate)
		},
	}
	importCmd.Flags().StringVar(&reviewDate, "review-date", "", "review_date written to every risk (default: one year after the reference date)")

	cmd.AddCommand(importCmd)
	return cmd
}

func (a *app) runRisksImport(ctx context.Context, csvPath, reviewDate string) error {
	if reviewDate == "" {
		reviewDate = a.cfg.Day.AddDate(1, 0, 0).Format(time.DateOnly)
	} else if _, err := time.Parse(time.DateOnly, reviewDate); err != nil {
		return codeError(3, "invalid review-date %q: expected YYYY-MM-DD", reviewDate)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open risk register: %w", err)
	}
	defer f.Close()

	written, err := riskimport.Import(ctx, f, a.repo(), riskimport.Options{ReviewDate: reviewDate, Logger: a.logger})
	if len(written) > 0 || err == nil {
		fmt.Fprintf(a.stdout, "Generated %d YAML files in %s\n", len(written), resolvePath("risks", a.cfg.Root))
	}
	return err
}
