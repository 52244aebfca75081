package propagation

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rmax-ai/grcgraph/pkg/graph"
	"github.com/rmax-ai/grcgraph/pkg/logging"
)

// Warning reports one downstream document flagged in this run.
type Warning struct {
	Changed     string
	NeedsReview string
}

// Result describes one tracker run. It is advisory: callers print it and
// carry on.
type Result struct {
	Flagged   []Warning
	Resolved  int
	Pending   []PendingReview
	Persisted bool
	Skipped   string  // why nothing was done, if so
	Issues    []error // store problems that were degraded to warnings
}

// Tracker reconciles the pending-review store against one set of changes.
type Tracker struct {
	store  Store
	now    func() time.Time
	logger *log.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) {
		if clock != nil {
			t.now = clock
		}
	}
}

// WithLogger sets the tracker logger.
func WithLogger(l *log.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewTracker creates a tracker persisting to store.
func NewTracker(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Run resolves, detects, merges and persists. It never fails: a missing
// snapshot or an empty change set does nothing, and an unreadable store is
// treated as empty.
func (t *Tracker) Run(ctx context.Context, snap *graph.Snapshot, changed ChangedSet) Result {
	var res Result
	if snap == nil {
		res.Skipped = "graph not built yet"
		return res
	}
	if changed.Len() == 0 {
		res.Skipped = "no changed files"
		return res
	}

	now := t.now()
	fresh, warnings := Detect(graph.TriggerMap(snap), changed, now)
	res.Flagged = warnings

	var existing []PendingReview
	state, err := t.store.Load(ctx)
	if err != nil {
		t.logger.Warn("pending_store_unreadable", "error", err)
		res.Issues = append(res.Issues, fmt.Errorf("pending store unreadable, starting empty: %w", err))
	} else if state != nil {
		existing = state.Pending
	}

	remaining := Resolve(existing, changed)
	res.Resolved = len(existing) - len(remaining)
	res.Pending = Merge(fresh, remaining)

	if err := t.store.Save(ctx, &State{LastUpdated: now, Pending: res.Pending}); err != nil {
		t.logger.Warn("pending_store_save_failed", "error", err)
		res.Issues = append(res.Issues, fmt.Errorf("failed to save pending reviews: %w", err))
		return res
	}
	res.Persisted = true

	t.logger.Info("propagation_checked",
		"changed", changed.Len(),
		"flagged", len(res.Flagged),
		"resolved", res.Resolved,
		"pending", len(res.Pending),
	)
	return res
}

// Resolve drops entries whose file itself changed, whatever triggered them.
func Resolve(pending []PendingReview, changed ChangedSet) []PendingReview {
	out := make([]PendingReview, 0, len(pending))
	for _, p := range pending {
		if !changed.Has(p.File) {
			out = append(out, p)
		}
	}
	return out
}

// Detect creates an entry for every downstream target of a changed key that
// did not change itself.
func Detect(triggers map[string][]string, changed ChangedSet, now time.Time) ([]PendingReview, []Warning) {
	var fresh []PendingReview
	var warnings []Warning
	for _, key := range changed.Keys() {
		for _, target := range triggers[key] {
			if changed.Has(target) {
				continue
			}
			fresh = append(fresh, PendingReview{
				File:        target,
				TriggeredBy: key,
				TriggeredAt: now,
				Reason:      Reason,
			})
			warnings = append(warnings, Warning{Changed: key, NeedsReview: target})
		}
	}
	return fresh, warnings
}

// Merge puts fresh entries first and keeps existing ones that do not collide
// on (file, triggered_by).
func Merge(fresh, existing []PendingReview) []PendingReview {
	seen := make(map[pendingKey]struct{}, len(fresh)+len(existing))
	merged := make([]PendingReview, 0, len(fresh)+len(existing))
	for _, list := range [][]PendingReview{fresh, existing} {
		for _, p := range list {
			k := p.key()
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			merged = append(merged, p)
		}
	}
	return merged
}
