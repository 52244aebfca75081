package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/rmax-ai/grcgraph/pkg/graph"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestFrontMatter(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"basic", "---\nid: POL-1\n---\n# Body\n", "id: POL-1", nil},
		{"crlf", "---\r\nid: POL-1\r\n---\r\nbody", "id: POL-1", nil},
		{"fence at eof", "---\nid: POL-1\n---", "id: POL-1", nil},
		{"missing", "# Title\n", "", ErrMissingFrontMatter},
		{"unclosed", "---\nid: POL-1\n", "", ErrMalformedFrontMatter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FrontMatter([]byte(tt.in))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseYAML(t *testing.T) {
	rec, err := ParseYAML([]byte(`
id: R-001
title: Laptop theft
inherent_risk: 12
review_date: 2025-06-15
frameworks:
  iso27001:
    controls: [A.8.1, A.7.9]
required_controls: A.8.1
`))
	if err != nil {
		t.Fatalf("ParseYAML failed: %v", err)
	}
	if rec.ID != "R-001" || rec.ReviewDate != "2025-06-15" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.InherentRisk != 12 {
		t.Errorf("inherent_risk = %#v", rec.InherentRisk)
	}
	if len(rec.RequiredControls) != 0 {
		t.Errorf("scalar required_controls should decode empty, got %v", rec.RequiredControls)
	}
	n, _ := graph.BuildNode(graph.NodeRisk, rec)
	ids, ok := n.Frameworks["iso27001"].ReferencedIDs("controls")
	if !ok || len(ids) != 2 || ids[0] != "A.8.1" {
		t.Errorf("controls = %v", ids)
	}
}

func TestParseYAML_Unparseable(t *testing.T) {
	for _, in := range []string{"", "just a string", "- a\n- b\n", "id: [unclosed"} {
		if _, err := ParseYAML([]byte(in)); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestParseYAML_KeepsRecordOnTypeMismatch(t *testing.T) {
	rec, err := ParseYAML([]byte(`
id: POL-2
title: Shared ownership
owner: [alice, bob]
next_review: 2024-01-01
version: 1.0
frameworks:
  iso27001:
    controls: [A.5.1]
`))
	var typeErr *yaml.TypeError
	if !errors.As(err, &typeErr) {
		t.Fatalf("expected a yaml.TypeError, got %v", err)
	}
	if rec == nil {
		t.Fatal("expected the well-typed fields to be kept")
	}
	if rec.ID != "POL-2" || rec.Title != "Shared ownership" || rec.Owner != "" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.NextReview != "2024-01-01" {
		t.Errorf("next_review = %q", rec.NextReview)
	}
}

func TestFS_Documents_OddFieldKeepsNode(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "policies/shared.md", "---\nid: POL-2\nowner: [alice, bob]\nstatus: {state: draft}\nframeworks:\n  iso27001:\n    controls: [A.5.1]\ntriggers_update_to:\n  - procedures/p.md\n---\n")

	docs, err := NewFS(root).Documents(context.Background())
	if err != nil {
		t.Fatalf("Documents failed: %v", err)
	}
	if len(docs) != 1 || docs[0].Record == nil {
		t.Fatalf("expected the policy to be kept, got %+v", docs)
	}

	snap := graph.Build(docs)
	n, ok := snap.Nodes.Get("policies/shared.md")
	if !ok || n.ID != "POL-2" {
		t.Fatalf("missing node for policies/shared.md: %+v", n)
	}
	refs := snap.Index("iso27001").ControlsToPolicies["A.5.1"]
	if len(refs) != 1 || refs[0] != "policies/shared.md" {
		t.Errorf("controls_to_policies[A.5.1] = %v", refs)
	}
	if got := graph.TriggerMap(snap)["policies/shared.md"]; len(got) != 1 || got[0] != "procedures/p.md" {
		t.Errorf("trigger targets = %v", got)
	}
}

func TestFS_Documents(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "policies/b.md", "---\nid: POL-2\ntitle: B\n---\n")
	writeFile(t, root, "policies/a.md", "---\nid: POL-1\ntitle: A\ntriggers_update_to:\n  - procedures/x.md\n---\nbody\n")
	writeFile(t, root, "policies/notes.md", "no frontmatter here\n")
	writeFile(t, root, "risks/r-001.yml", "id: R-001\n")
	writeFile(t, root, "frameworks/iso27001/controls/A.5.1.yml", "id: A.5.1\napplicable: false\n")
	writeFile(t, root, "incidents/inc-1.yml", "id: INC-1\ntype: phishing\n")
	writeFile(t, root, "program/isms.md", "---\nid: PRG-1\n---\n")
	writeFile(t, root, RegistryPath, "evidence:\n  - id: EV-1\n    title: Access review\n  - not-a-mapping\n  - id: EV-2\n")
	writeFile(t, root, "policies/ignored.txt", "x")

	docs, err := NewFS(root, WithWorkers(2)).Documents(context.Background())
	if err != nil {
		t.Fatalf("Documents failed: %v", err)
	}

	wantKeys := []string{
		"policies/a.md",
		"policies/b.md",
		"policies/notes.md",
		"risks/r-001.yml",
		"frameworks/iso27001/controls/A.5.1.yml",
		"incidents/inc-1.yml",
		"evidence/EV-1",
		"evidence/EV-2",
		"program/isms.md",
	}
	if len(docs) != len(wantKeys) {
		t.Fatalf("got %d documents, want %d: %+v", len(docs), len(wantKeys), docs)
	}
	for i, k := range wantKeys {
		if docs[i].Key != k {
			t.Errorf("docs[%d].Key = %q, want %q", i, docs[i].Key, k)
		}
	}

	if docs[2].Record != nil {
		t.Error("document without frontmatter should have a nil record")
	}
	if docs[0].Record == nil || len(docs[0].Record.TriggersUpdateTo) != 1 {
		t.Errorf("unexpected policy record: %+v", docs[0].Record)
	}
	if docs[4].Type != graph.NodeControl || docs[4].Record.Applicable == nil || *docs[4].Record.Applicable {
		t.Errorf("unexpected control document: %+v", docs[4])
	}
	if docs[6].Type != graph.NodeEvidence {
		t.Errorf("registry entry type = %s", docs[6].Type)
	}
}

func TestFS_EmptyRoot(t *testing.T) {
	docs, err := NewFS(t.TempDir()).Documents(context.Background())
	if err != nil {
		t.Fatalf("Documents failed: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected no documents, got %d", len(docs))
	}
}

func TestFS_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "risks/r-001.yml", "id: R-001\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewFS(root).Documents(ctx); err == nil {
		t.Error("expected error from cancelled context")
	}
}
