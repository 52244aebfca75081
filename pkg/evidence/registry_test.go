package evidence

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rmax-ai/grcgraph/pkg/blob"
	"github.com/rmax-ai/grcgraph/pkg/source"
)

const registryYAML = `# Evidence registry
evidence:
  - id: EV-001
    title: Branch protection settings
    source: github
    frequency: monthly
    path: evidence/automated/github/2025-01-01/branch-protection.json
    last_collected: 2025-01-01
    next_due: 2025-01-31
    status: stale # refreshed by CI
  - id: EV-002
    title: Access review
    source: manual
    frequency: quarterly
    path: evidence/manual/access-review.pdf
    status: current
  - id: EV-003
    title: Dependabot alerts
    source: github
    frequency: on-demand
    path: evidence/automated/github/2025-01-01/dependabot.json
`

type entry struct {
	ID            string  `yaml:"id"`
	Source        string  `yaml:"source"`
	Path          string  `yaml:"path"`
	LastCollected string  `yaml:"last_collected"`
	NextDue       *string `yaml:"next_due"`
	Status        string  `yaml:"status"`
}

func decodeEntries(t *testing.T, data []byte) []entry {
	t.Helper()
	var reg struct {
		Evidence []entry `yaml:"evidence"`
	}
	if err := yaml.Unmarshal(data, &reg); err != nil {
		t.Fatalf("output is not valid yaml: %v\n%s", err, data)
	}
	return reg.Evidence
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"2025-03-01", false},
		{"2024-02-29", false},
		{"2025-3-1", true},
		{"2025-02-30", true},
		{"03/01/2025", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseDate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidDate) {
				t.Errorf("expected ErrInvalidDate, got %v", err)
			}
		})
	}
}

func TestNextDue(t *testing.T) {
	date := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		frequency string
		want      string
		ok        bool
	}{
		{"daily", "2025-02-01", true},
		{"weekly", "2025-02-07", true},
		{"monthly", "2025-03-02", true},
		{"quarterly", "2025-05-01", true},
		{"annually", "2026-01-31", true},
		{"on-demand", "", false},
		{"fortnightly", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.frequency, func(t *testing.T) {
			got, ok := NextDue(date, tt.frequency)
			if got != tt.want || ok != tt.ok {
				t.Errorf("NextDue(%q) = %q, %v; want %q, %v", tt.frequency, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestApply(t *testing.T) {
	reg, err := Parse([]byte(registryYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	updates := reg.Apply("github", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
	if updates[0].Path != "evidence/automated/github/2025-03-01/branch-protection.json" {
		t.Errorf("unexpected path %q", updates[0].Path)
	}
	if updates[0].NextDue != "2025-03-31" || updates[1].NextDue != "" {
		t.Errorf("unexpected next_due values %q, %q", updates[0].NextDue, updates[1].NextDue)
	}

	out, err := reg.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	entries := decodeEntries(t, out)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	ev1 := entries[0]
	if ev1.LastCollected != "2025-03-01" || ev1.Status != "current" || ev1.NextDue == nil || *ev1.NextDue != "2025-03-31" {
		t.Errorf("EV-001 not updated: %+v", ev1)
	}
	if entries[1].Path != "evidence/manual/access-review.pdf" || entries[1].LastCollected != "" {
		t.Errorf("EV-002 should be untouched: %+v", entries[1])
	}
	if entries[2].NextDue != nil {
		t.Errorf("EV-003 next_due should be null, got %q", *entries[2].NextDue)
	}
	if entries[2].LastCollected != "2025-03-01" {
		t.Errorf("EV-003 last_collected should be added, got %q", entries[2].LastCollected)
	}

	text := string(out)
	if !strings.Contains(text, "# Evidence registry") || !strings.Contains(text, "# refreshed by CI") {
		t.Errorf("comments were lost:\n%s", text)
	}
}

func TestParse_Invalid(t *testing.T) {
	for name, in := range map[string]string{
		"empty":        "",
		"list":         "- a\n- b\n",
		"no evidence":  "items: []\n",
		"not sequence": "evidence: {}\n",
		"broken":       "evidence: [\n",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(in)); !errors.Is(err, ErrInvalidRegistry) {
				t.Errorf("expected ErrInvalidRegistry, got %v", err)
			}
		})
	}
}

func TestUpdateSource(t *testing.T) {
	ctx := context.Background()
	repo := blob.NewLocalBlobStore(t.TempDir())
	if err := blob.PutAll(ctx, repo, []blob.Object{{Key: source.RegistryPath, Data: []byte(registryYAML)}}); err != nil {
		t.Fatal(err)
	}

	updates, err := UpdateSource(ctx, repo, "github", "2025-03-01")
	if err != nil {
		t.Fatalf("UpdateSource failed: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
	data, err := blob.ReadAll(ctx, repo, source.RegistryPath)
	if err != nil {
		t.Fatal(err)
	}
	if entries := decodeEntries(t, data); entries[0].Status != "current" {
		t.Errorf("registry was not written: %+v", entries[0])
	}
}

func TestUpdateSource_NoMatchLeavesFile(t *testing.T) {
	ctx := context.Background()
	repo := blob.NewLocalBlobStore(t.TempDir())
	if err := blob.PutAll(ctx, repo, []blob.Object{{Key: source.RegistryPath, Data: []byte(registryYAML)}}); err != nil {
		t.Fatal(err)
	}

	updates, err := UpdateSource(ctx, repo, "jira", "2025-03-01")
	if err != nil {
		t.Fatalf("UpdateSource failed: %v", err)
	}
	if len(updates) != 0 {
		t.Fatalf("expected no updates, got %d", len(updates))
	}
	data, _ := blob.ReadAll(ctx, repo, source.RegistryPath)
	if string(data) != registryYAML {
		t.Error("registry should be byte-identical when nothing matched")
	}
}

func TestUpdateSource_Errors(t *testing.T) {
	ctx := context.Background()
	repo := blob.NewLocalBlobStore(t.TempDir())

	if _, err := UpdateSource(ctx, repo, "github", "2025-03-01"); !errors.Is(err, ErrRegistryNotFound) {
		t.Errorf("expected ErrRegistryNotFound, got %v", err)
	}
	if _, err := UpdateSource(ctx, repo, "github", "tomorrow"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}
}
