package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NodeMap holds nodes keyed by document key in insertion order.
type NodeMap struct {
	keys  []string
	nodes map[string]*Node
}

// NewNodeMap creates an empty node map.
func NewNodeMap() *NodeMap {
	return &NodeMap{nodes: make(map[string]*Node)}
}

// Put stores a node. Replacing an existing key keeps its original position.
func (m *NodeMap) Put(key string, n *Node) {
	if _, exists := m.nodes[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.nodes[key] = n
}

// Get returns the node stored under key.
func (m *NodeMap) Get(key string) (*Node, bool) {
	if m == nil {
		return nil, false
	}
	n, ok := m.nodes[key]
	return n, ok
}

// Keys returns the document keys in insertion order.
func (m *NodeMap) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of nodes.
func (m *NodeMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Each calls fn for every node in insertion order.
func (m *NodeMap) Each(fn func(key string, n *Node)) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		fn(k, m.nodes[k])
	}
}

// MarshalJSON writes the nodes as an object whose keys follow insertion order.
func (m *NodeMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if m != nil {
		for i, k := range m.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			nb, err := json.Marshal(m.nodes[k])
			if err != nil {
				return nil, fmt.Errorf("failed to marshal node %s: %w", k, err)
			}
			buf.Write(kb)
			buf.WriteByte(':')
			buf.Write(nb)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object and keeps the key order of the document.
func (m *NodeMap) UnmarshalJSON(data []byte) error {
	m.keys = nil
	m.nodes = make(map[string]*Node)

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("nodes: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("nodes: expected string key, got %v", tok)
		}
		var n Node
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("nodes: failed to decode %s: %w", key, err)
		}
		m.Put(key, &n)
	}
	_, err = dec.Token()
	return err
}

type nodeAlias Node

// MarshalJSON always emits frameworks, and emits trigger lists for
// policy-like documents and required_controls for risks even when empty.
func (n Node) MarshalJSON() ([]byte, error) {
	out := struct {
		nodeAlias
		Frameworks       map[string]FrameworkRefs `json:"frameworks"`
		RequiredControls *[]string                `json:"required_controls,omitempty"`
		TriggersUpdateTo *[]string                `json:"triggers_update_to,omitempty"`
		TriggeredBy      *[]string                `json:"triggered_by,omitempty"`
	}{nodeAlias: nodeAlias(n), Frameworks: n.Frameworks}

	if out.Frameworks == nil {
		out.Frameworks = map[string]FrameworkRefs{}
	}
	if n.Type == NodeRisk {
		rc := nonNil(n.RequiredControls)
		out.RequiredControls = &rc
	}
	if n.Type.IsPolicyLike() {
		up := nonNil(n.TriggersUpdateTo)
		by := nonNil(n.TriggeredBy)
		out.TriggersUpdateTo = &up
		out.TriggeredBy = &by
	}
	return json.Marshal(out)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
