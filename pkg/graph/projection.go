package graph

import (
	"sync"
	"time"
)

// TriggerMap returns, for every upstream document key, the downstream keys
// that need review when it changes. Both trigger edge types are honored, and
// each node's raw triggers_update_to list is merged in without duplicates.
func TriggerMap(snap *Snapshot) map[string][]string {
	triggers := make(map[string][]string)
	if snap == nil {
		return triggers
	}

	for _, e := range snap.Edges {
		if e.Type == EdgeTriggersUpdate || e.Type == EdgeTriggeredBy {
			pushUnique(triggers, e.From, e.To)
		}
	}

	snap.Nodes.Each(func(key string, n *Node) {
		for _, target := range n.TriggersUpdateTo {
			if target != "" {
				pushUnique(triggers, key, target)
			}
		}
	})

	return triggers
}

// View serves lookups over the current snapshot. The snapshot can be swapped
// while readers are active.
type View struct {
	mu         sync.RWMutex
	snap       *Snapshot
	downstream map[string][]string // upstream key -> downstream keys
	incoming   map[string][]Edge   // target key -> framework edges pointing at it
}

// NewView creates a view over snap. A nil snapshot yields an empty view.
func NewView(snap *Snapshot) *View {
	v := &View{}
	v.Replace(snap)
	return v
}

// Replace swaps the underlying snapshot and rebuilds the adjacency indexes.
func (v *View) Replace(snap *Snapshot) {
	if snap == nil {
		snap = Assemble(time.Time{}, nil, nil, nil)
	}
	incoming := make(map[string][]Edge)
	for _, e := range snap.Edges {
		if e.Type == EdgeTriggersUpdate || e.Type == EdgeTriggeredBy {
			continue
		}
		incoming[e.To] = append(incoming[e.To], e)
	}
	downstream := TriggerMap(snap)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.snap = snap
	v.downstream = downstream
	v.incoming = incoming
}

// Snapshot returns the current snapshot. Callers must treat it as read-only.
func (v *View) Snapshot() *Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snap
}

// Node returns a copy of the node stored under key.
func (v *View) Node(key string) (Node, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	n, ok := v.snap.Nodes.Get(key)
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Downstream returns the documents flagged for review when key changes.
func (v *View) Downstream(key string) []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]string(nil), v.downstream[key]...)
}

// ReferencesTo returns the framework edges whose target is key.
func (v *View) ReferencesTo(key string) []Edge {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]Edge(nil), v.incoming[key]...)
}
