package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmax-ai/grcgraph/pkg/evidence"
	"github.com/rmax-ai/grcgraph/pkg/source"
)

func newEvidenceCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evidence",
		Short: "Maintain the evidence registry",
	}

	var sourceName, date string
	update := &cobra.Command{
		Use:   "update",
		Short: "Record a collection run for every registry entry of a source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sourceName == "" || date == "" {
				return codeError(3, "usage: grcgraph evidence update --source <source> --date <YYYY-MM-DD>")
			}
			return a.runEvidenceUpdate(cmd.Context(), sourceName, date)
		},
	}
	update.Flags().StringVar(&sourceName, "source", "", "collector name, as in the registry source field")
	update.Flags().StringVar(&date, "date", "", "collection date YYYY-MM-DD")

	cmd.AddCommand(update)
	return cmd
}

func (a *app) runEvidenceUpdate(ctx context.Context, sourceName, date string) error {
	if _, err := evidence.ParseDate(date); err != nil {
		return codeError(3, "invalid date format: %q. Expected YYYY-MM-DD.", date)
	}
	updates, err := evidence.UpdateSource(ctx, a.repo(), sourceName, date)
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		fmt.Fprintf(a.stdout, "No entries found for source %q.\n", sourceName)
		return nil
	}

	for _, u := range updates {
		nextDue := u.NextDue
		if nextDue == "" {
			nextDue = "null"
		}
		fmt.Fprintf(a.stdout, "  Updated %s: %s\n", u.ID, u.Title)
		fmt.Fprintf(a.stdout, "    path: %s\n", u.Path)
		fmt.Fprintf(a.stdout, "    last_collected: %s\n", u.LastCollected)
		fmt.Fprintf(a.stdout, "    next_due: %s\n", nextDue)
	}
	fmt.Fprintf(a.stdout, "\nUpdated %d entries in %s\n", len(updates), source.RegistryPath)
	a.logger.Info("evidence_registry_updated", "source", sourceName, "date", date, "entries", len(updates))
	return nil
}
