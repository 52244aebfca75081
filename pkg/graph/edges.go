package graph

import (
	"sort"
)

// EdgeTypeFor returns the framework edge type emitted by documents of type t.
func EdgeTypeFor(t NodeType) (EdgeType, bool) {
	switch {
	case t.IsPolicyLike():
		return EdgeImplements, true
	case t == NodeRisk:
		return EdgeMitigatedBy, true
	case t == NodeEvidence:
		return EdgeEvidences, true
	case t == NodeIncident:
		return EdgeRelatedTo, true
	}
	return "", false
}

// DeriveEdges returns the edges declared by one node. Framework entries are
// visited in name order. Targets are not checked for existence.
func DeriveEdges(key string, n *Node) []Edge {
	var edges []Edge

	if kind, ok := EdgeTypeFor(n.Type); ok {
		for _, name := range sortedFrameworkNames(n.Frameworks) {
			fw, known := LookupFramework(name)
			if !known {
				continue
			}
			ids, isList := n.Frameworks[name].ReferencedIDs(fw.Field)
			if !isList {
				continue
			}
			for _, id := range ids {
				edges = append(edges, Edge{From: key, To: ControlPath(id, name), Type: kind})
			}
		}
	}

	for _, target := range n.TriggersUpdateTo {
		if target != "" {
			edges = append(edges, Edge{From: key, To: target, Type: EdgeTriggersUpdate})
		}
	}
	for _, source := range n.TriggeredBy {
		if source != "" {
			edges = append(edges, Edge{From: source, To: key, Type: EdgeTriggeredBy})
		}
	}

	return edges
}

func sortedFrameworkNames(m map[string]FrameworkRefs) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
