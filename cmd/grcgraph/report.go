package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rmax-ai/grcgraph/pkg/reports"
)

func newReportCommand(a *app) *cobra.Command {
	var format, out, framework string
	cmd := &cobra.Command{
		Use:       "report <graph|dashboard|stale|soa|coverage>",
		Short:     "Render one report to stdout or a file",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"graph", "dashboard", "stale", "soa", "coverage"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runReport(cmd.Context(), reports.ReportType(args[0]), reports.ReportFormat(strings.ToLower(format)), framework, out)
		},
	}
	f := cmd.Flags()
	f.StringVar(&format, "format", "json", "output format: json or csv")
	f.StringVar(&out, "out", "", "write to this file instead of stdout, relative to the root")
	f.StringVar(&framework, "framework", reports.DefaultSOAFramework, "framework of the soa report")
	return cmd
}

func (a *app) runReport(ctx context.Context, reportType reports.ReportType, format reports.ReportFormat, framework, out string) error {
	gen, err := reports.NewReportGenerator(reportType, format)
	if err != nil {
		return codeError(3, "%s", err)
	}
	r, err := a.render(ctx)
	if err != nil {
		return err
	}
	params := r.params
	params.Framework = framework

	body, err := gen.Generate(ctx, params)
	if err != nil {
		return err
	}

	if out == "" {
		_, err = io.Copy(a.stdout, body)
		return err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	path := resolvePath(out, a.cfg.Root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
