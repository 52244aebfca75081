package graph

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"
)

var fixedTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedTime }

func isoRefs(ids ...any) map[string]any {
	return map[string]any{"iso27001": map[string]any{"controls": ids}}
}

func sampleDocuments() []Document {
	no := false
	return []Document{
		{Key: "policies/access-control.md", Type: NodePolicy, Record: &Record{
			ID: "POL-001", Title: "Access Control Policy", Owner: "alice", Status: "approved",
			NextReview:       "2025-01-15",
			Frameworks:       isoRefs("A.5.1", "A.5.15"),
			TriggersUpdateTo: StringList{"procedures/onboarding.md"},
		}},
		{Key: "procedures/onboarding.md", Type: NodeProcedure, Record: &Record{
			ID: "PROC-001", Title: "Onboarding", Status: "draft",
			Frameworks:  isoRefs("A.5.1"),
			TriggeredBy: StringList{"policies/access-control.md"},
		}},
		{Key: "procedures/broken.md", Type: NodeProcedure, Record: nil},
		{Key: "risks/r-001.yml", Type: NodeRisk, Record: &Record{
			ID: "R-001", Title: "Laptop theft", Treatment: "mitigate", InherentRisk: 12,
			Frameworks: isoRefs("A.5.15"),
		}},
		{Key: "frameworks/iso27001/controls/A.5.1.yml", Type: NodeControl, Record: &Record{
			ID: "A.5.1", Title: "Policies for information security", ImplementationStatus: "implemented",
		}},
		{Key: "frameworks/iso27001/controls/A.7.1.yml", Type: NodeControl, Record: &Record{
			ID: "A.7.1", Title: "Physical security perimeters", Applicable: &no,
		}},
		{Key: "incidents/inc-001.yml", Type: NodeIncident, Record: &Record{
			ID: "INC-001", Type: "phishing",
			Frameworks: map[string]any{
				"iso27001": map[string]any{"controls": []any{"A.6.3"}},
				"nist":     map[string]any{"controls": []any{"PR.AT-1"}},
			},
		}},
		{Key: "evidence/EV-001", Type: NodeEvidence, Record: &Record{
			ID: "EV-001", Title: "Access review", Status: "current",
			Frameworks: map[string]any{
				"iso27001": map[string]any{"controls": []any{"A.5.1"}},
				"soc2":     map[string]any{"criteria": []any{"CC6.1"}},
			},
		}},
	}
}

func TestBuildNode_NilRecordSkipped(t *testing.T) {
	if n, ok := BuildNode(NodePolicy, nil); ok || n != nil {
		t.Fatalf("expected nil record to be skipped, got %+v", n)
	}
}

func TestBuildNode_Defaults(t *testing.T) {
	n, ok := BuildNode(NodePolicy, &Record{ID: "POL-9"})
	if !ok {
		t.Fatal("expected node")
	}
	if n.Frameworks == nil || n.TriggersUpdateTo == nil || n.TriggeredBy == nil {
		t.Errorf("expected empty collections, got %+v", n)
	}

	c, _ := BuildNode(NodeCriterion, &Record{ID: "CC6.1"})
	if c.Framework != "soc2" {
		t.Errorf("criterion framework = %q, want soc2", c.Framework)
	}
	if !c.IsApplicable() {
		t.Error("missing applicable flag must be treated as applicable")
	}

	i, _ := BuildNode(NodeIncident, &Record{Type: "outage"})
	if i.IncidentType != "outage" {
		t.Errorf("incident_type = %q", i.IncidentType)
	}
}

func TestBuildNode_IgnoresMalformedFrameworks(t *testing.T) {
	n, _ := BuildNode(NodeRisk, &Record{Frameworks: map[string]any{
		"iso27001": []any{"A.5.1"},
		"soc2":     map[string]any{"criteria": "CC1.1"},
	}})
	if _, ok := n.Frameworks["iso27001"]; ok {
		t.Error("non-mapping framework data should be dropped")
	}
	if edges := DeriveEdges("risks/x.yml", n); len(edges) != 0 {
		t.Errorf("expected no edges for non-list reference field, got %v", edges)
	}
}

func TestDeriveEdges(t *testing.T) {
	snap := Build(sampleDocuments(), WithClock(clock))

	want := []Edge{
		{From: "policies/access-control.md", To: "frameworks/iso27001/controls/A.5.1.yml", Type: EdgeImplements},
		{From: "policies/access-control.md", To: "frameworks/iso27001/controls/A.5.15.yml", Type: EdgeImplements},
		{From: "policies/access-control.md", To: "procedures/onboarding.md", Type: EdgeTriggersUpdate},
		{From: "procedures/onboarding.md", To: "frameworks/iso27001/controls/A.5.1.yml", Type: EdgeImplements},
		{From: "policies/access-control.md", To: "procedures/onboarding.md", Type: EdgeTriggeredBy},
		{From: "risks/r-001.yml", To: "frameworks/iso27001/controls/A.5.15.yml", Type: EdgeMitigatedBy},
		{From: "incidents/inc-001.yml", To: "frameworks/iso27001/controls/A.6.3.yml", Type: EdgeRelatedTo},
		{From: "evidence/EV-001", To: "frameworks/iso27001/controls/A.5.1.yml", Type: EdgeEvidences},
		{From: "evidence/EV-001", To: "frameworks/soc2/criteria/CC6.1.yml", Type: EdgeEvidences},
	}
	if !reflect.DeepEqual(snap.Edges, want) {
		t.Fatalf("edges mismatch\ngot:  %v\nwant: %v", snap.Edges, want)
	}
}

func TestControlPath(t *testing.T) {
	tests := []struct {
		id, fw, want string
	}{
		{"A.5.1", "iso27001", "frameworks/iso27001/controls/A.5.1.yml"},
		{"CC6.1", "soc2", "frameworks/soc2/criteria/CC6.1.yml"},
		{"32", "gdpr", "frameworks/gdpr/articles/32.yml"},
		{"PR.AT-1", "nist", "frameworks/nist/controls/PR.AT-1.yml"},
	}
	for _, tt := range tests {
		if got := ControlPath(tt.id, tt.fw); got != tt.want {
			t.Errorf("ControlPath(%q, %q) = %q, want %q", tt.id, tt.fw, got, tt.want)
		}
	}
}

func TestBuildIndexes(t *testing.T) {
	snap := Build(sampleDocuments(), WithClock(clock))

	iso, ok := snap.Indexes["iso27001"]
	if !ok {
		t.Fatal("expected iso27001 index")
	}
	if got := iso.ControlsToPolicies["A.5.1"]; !reflect.DeepEqual(got, []string{"policies/access-control.md", "procedures/onboarding.md"}) {
		t.Errorf("controls_to_policies[A.5.1] = %v", got)
	}
	if got := iso.ControlsToRisks["A.5.15"]; !reflect.DeepEqual(got, []string{"risks/r-001.yml"}) {
		t.Errorf("controls_to_risks[A.5.15] = %v", got)
	}
	// Evidence is indexed by its id, not its key.
	if got := iso.ControlsToEvidence["A.5.1"]; !reflect.DeepEqual(got, []string{"EV-001"}) {
		t.Errorf("controls_to_evidence[A.5.1] = %v", got)
	}
	// Incidents produce edges but no index entries.
	if _, ok := iso.ControlsToPolicies["A.6.3"]; ok {
		t.Error("incident reference should not be indexed")
	}

	if _, ok := snap.Indexes["soc2"]; !ok {
		t.Error("expected soc2 index from evidence reference")
	}
	if _, ok := snap.Indexes["gdpr"]; ok {
		t.Error("gdpr has no references and must be omitted")
	}
}

func TestBuildIndexes_NoDuplicates(t *testing.T) {
	nodes := NewNodeMap()
	nodes.Put("policies/a.md", &Node{Type: NodePolicy, Frameworks: map[string]FrameworkRefs{
		"iso27001": {"controls": []any{"A.5.1", "A.5.1"}},
	}})
	idx := BuildIndexes(nodes)
	if got := idx["iso27001"].ControlsToPolicies["A.5.1"]; len(got) != 1 {
		t.Errorf("expected one entry, got %v", got)
	}
}

func TestIndexCompleteness(t *testing.T) {
	snap := Build(sampleDocuments(), WithClock(clock))
	snap.Nodes.Each(func(key string, n *Node) {
		for _, fw := range Frameworks {
			ids, ok := n.Frameworks[fw.Name].ReferencedIDs(fw.Field)
			if !ok {
				continue
			}
			idx := snap.Index(fw.Name)
			for _, id := range ids {
				var list []string
				var want string
				switch {
				case n.Type.IsPolicyLike():
					list, want = idx.ControlsToPolicies[id], key
				case n.Type == NodeRisk:
					list, want = idx.ControlsToRisks[id], key
				case n.Type == NodeEvidence:
					list, want = idx.ControlsToEvidence[id], n.ID
				default:
					continue
				}
				found := false
				for _, v := range list {
					if v == want {
						found = true
					}
				}
				if !found {
					t.Errorf("%s: %s/%s missing %s", key, fw.Name, id, want)
				}
			}
		}
	})
}

func TestBuild_Idempotent(t *testing.T) {
	first, err := json.Marshal(Build(sampleDocuments(), WithClock(clock)))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	later := WithClock(func() time.Time { return fixedTime.Add(time.Hour) })
	second, err := json.Marshal(Build(sampleDocuments(), later))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	strip := func(b []byte) map[string]json.RawMessage {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(b, &m); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		delete(m, "generated_at")
		return m
	}
	if !reflect.DeepEqual(strip(first), strip(second)) {
		t.Error("snapshot content differs between runs")
	}
}

func TestSnapshotJSON(t *testing.T) {
	snap := Build(sampleDocuments(), WithClock(clock))
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	if snap.Nodes.Len() != 7 {
		t.Fatalf("expected 7 nodes, got %d", snap.Nodes.Len())
	}
	// Nodes keep source order.
	first := bytes.Index(data, []byte(`"policies/access-control.md":`))
	last := bytes.Index(data, []byte(`"evidence/EV-001":`))
	if first < 0 || last < 0 || first > last {
		t.Errorf("node order not preserved: %s", data)
	}

	var back Snapshot
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(back.Nodes.Keys(), snap.Nodes.Keys()) {
		t.Errorf("keys after round trip = %v", back.Nodes.Keys())
	}
	if !back.GeneratedAt.Equal(fixedTime) {
		t.Errorf("generated_at = %v", back.GeneratedAt)
	}
}

func TestNodeJSON_CollectionsPresent(t *testing.T) {
	tests := []struct {
		node    Node
		present []string
		absent  []string
	}{
		{Node{Type: NodePolicy}, []string{`"frameworks":{}`, `"triggers_update_to":[]`, `"triggered_by":[]`}, []string{"required_controls", "applicable"}},
		{Node{Type: NodeRisk}, []string{`"frameworks":{}`, `"required_controls":[]`}, []string{"triggers_update_to"}},
		{Node{Type: NodeControl, Applicable: new(bool)}, []string{`"applicable":false`}, []string{"triggered_by"}},
	}
	for _, tt := range tests {
		data, err := json.Marshal(tt.node)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		s := string(data)
		for _, p := range tt.present {
			if !strings.Contains(s, p) {
				t.Errorf("%s: expected %s in %s", tt.node.Type, p, s)
			}
		}
		for _, a := range tt.absent {
			if strings.Contains(s, a) {
				t.Errorf("%s: unexpected %s in %s", tt.node.Type, a, s)
			}
		}
	}
}
