package graph

import (
	"time"
)

// Option configures Build.
type Option func(*builder)

type builder struct {
	now func() time.Time
}

// WithClock overrides the generation timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(b *builder) {
		if clock != nil {
			b.now = clock
		}
	}
}

// Build runs the node builder, edge deriver and indexer over docs, in the
// order given, and assembles the snapshot.
func Build(docs []Document, opts ...Option) *Snapshot {
	b := &builder{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	nodes := NewNodeMap()
	for _, doc := range docs {
		if n, ok := BuildNode(doc.Type, doc.Record); ok {
			nodes.Put(doc.Key, n)
		}
	}

	edges := make([]Edge, 0)
	nodes.Each(func(key string, n *Node) {
		edges = append(edges, DeriveEdges(key, n)...)
	})

	return Assemble(b.now(), nodes, edges, BuildIndexes(nodes))
}

// Assemble bundles the parts into a snapshot without further validation.
func Assemble(generatedAt time.Time, nodes *NodeMap, edges []Edge, indexes map[string]*FrameworkIndex) *Snapshot {
	if nodes == nil {
		nodes = NewNodeMap()
	}
	if edges == nil {
		edges = []Edge{}
	}
	if indexes == nil {
		indexes = map[string]*FrameworkIndex{}
	}
	return &Snapshot{
		GeneratedAt: generatedAt,
		Nodes:       nodes,
		Edges:       edges,
		Indexes:     indexes,
	}
}
