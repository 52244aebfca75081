package redis

import (
	"time"

	"github.com/rmax-ai/grcgraph/pkg/graph"
)

func pendingSnapshot() *graph.Snapshot {
	nodes := graph.NewNodeMap()
	nodes.Put("policies/a.md", &graph.Node{Type: graph.NodePolicy, ID: "POL-A", TriggersUpdateTo: []string{"procedures/b.md"}})
	nodes.Put("procedures/b.md", &graph.Node{Type: graph.NodeProcedure, ID: "PROC-B"})
	return graph.Assemble(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), nodes, nil, nil)
}
