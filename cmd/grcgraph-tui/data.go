package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rmax-ai/grcgraph/pkg/blob"
	"github.com/rmax-ai/grcgraph/pkg/propagation"
	"github.com/rmax-ai/grcgraph/pkg/reports"
)

// snapshot is what one poll of the computed directory yields.
type snapshot struct {
	coverage *reports.CoverageReport
	stale    *reports.StaleReport
	pending  *propagation.State // nil when nothing is pending yet
}

var errNotBuilt = errors.New("no computed artifacts (run grcgraph build)")

func readJSON(ctx context.Context, store blob.BlobStore, key string, v any) error {
	data, err := blob.ReadAll(ctx, store, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return nil
}

// load reads the coverage, stale and pending artifacts.
func load(ctx context.Context, store blob.BlobStore) (*snapshot, error) {
	var s snapshot
	s.coverage = &reports.CoverageReport{}
	if err := readJSON(ctx, store, reports.CoverageFile, s.coverage); err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, errNotBuilt
		}
		return nil, err
	}
	s.stale = &reports.StaleReport{}
	if err := readJSON(ctx, store, reports.StaleFile, s.stale); err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, errNotBuilt
		}
		return nil, err
	}
	pending, err := propagation.NewFileStore(store).Load(ctx)
	if err != nil {
		return nil, err
	}
	s.pending = pending
	return &s, nil
}
