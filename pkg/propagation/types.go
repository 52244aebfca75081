// Package propagation flags downstream documents for review when an upstream
// document changes, and keeps the pending-review set across runs.
package propagation

import (
	"context"
	"time"
)

// Reason is recorded on every entry created by the tracker.
const Reason = "Upstream document was modified"

// PendingFile is the pending-review artifact name in the computed directory.
const PendingFile = "pending-reviews.json"

// PendingReview flags one downstream document. Entries are unique by
// (File, TriggeredBy).
type PendingReview struct {
	File        string    `json:"file"`
	TriggeredBy string    `json:"triggered_by"`
	TriggeredAt time.Time `json:"triggered_at"`
	Reason      string    `json:"reason"`
}

func (p PendingReview) key() pendingKey {
	return pendingKey{file: p.File, triggeredBy: p.TriggeredBy}
}

type pendingKey struct {
	file        string
	triggeredBy string
}

// State is the persisted pending-review store.
type State struct {
	LastUpdated time.Time       `json:"last_updated"`
	Pending     []PendingReview `json:"pending"`
}

// Store loads and saves the pending-review state. Load returns a nil state
// when nothing has been saved yet.
type Store interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state *State) error
}

// ChangedSet is an ordered set of changed document keys.
type ChangedSet struct {
	keys []string
	set  map[string]struct{}
}

// NewChangedSet builds a set from keys, dropping blanks and duplicates.
func NewChangedSet(keys ...string) ChangedSet {
	cs := ChangedSet{set: make(map[string]struct{})}
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := cs.set[k]; ok {
			continue
		}
		cs.set[k] = struct{}{}
		cs.keys = append(cs.keys, k)
	}
	return cs
}

// Has reports whether key changed.
func (cs ChangedSet) Has(key string) bool {
	_, ok := cs.set[key]
	return ok
}

// Keys returns the keys in insertion order.
func (cs ChangedSet) Keys() []string {
	return append([]string(nil), cs.keys...)
}

// Len returns the number of keys.
func (cs ChangedSet) Len() int { return len(cs.keys) }
