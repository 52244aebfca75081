package graph

// BuildIndexes aggregates framework references by control id. Control nodes
// themselves are never consulted. Frameworks without any reference are omitted.
func BuildIndexes(nodes *NodeMap) map[string]*FrameworkIndex {
	indexes := make(map[string]*FrameworkIndex)

	for _, fw := range Frameworks {
		idx := NewFrameworkIndex()

		nodes.Each(func(key string, n *Node) {
			refs, ok := n.Frameworks[fw.Name]
			if !ok {
				return
			}
			ids, ok := refs.ReferencedIDs(fw.Field)
			if !ok {
				return
			}
			for _, id := range ids {
				switch {
				case n.Type.IsPolicyLike():
					pushUnique(idx.ControlsToPolicies, id, key)
				case n.Type == NodeRisk:
					pushUnique(idx.ControlsToRisks, id, key)
				case n.Type == NodeEvidence:
					pushUnique(idx.ControlsToEvidence, id, n.ID)
				}
			}
		})

		if !idx.Empty() {
			indexes[fw.Name] = idx
		}
	}

	return indexes
}

func pushUnique(m map[string][]string, key, value string) {
	for _, v := range m[key] {
		if v == value {
			return
		}
	}
	m[key] = append(m[key], value)
}
