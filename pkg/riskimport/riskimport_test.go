package riskimport

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/rmax-ai/grcgraph/pkg/blob"
)

const registerCSV = "\xEF\xBB\xBFRisk Register 2025,,,,,,,,,,,,,,,,,,\n" +
	",,,,,,,,,,,,,,,,,,\n" +
	"Type,Risk #,Asset #,Asset,Asset Owner,Risk Owner,Threat,Vulnerability,Existing Controls,Notes,Impact,Likelihood,Inherent Risk,Treatment,Required Controls,Implementation Notes,Residual Impact,Residual Likelihood,Residual Risk\n" +
	"Asset,R-7,A-1,Laptop,IT & Security Manager,CTO,Theft,\"Left in\ncar\",\"A.5.1 – Policies, A.8.1 User endpoint devices\",,4,3,12,Selection of controls,A.7.9;none,Encrypt disks,2,2,4\n" +
	"Asset,R-12,A-2,CRM,,Head of Sales / EMEA,,,None,,x,,,Risk Accept,,,,,\n" +
	"Summary,,,,,,,,,,,,,,,,,,\n"

func TestNormalizeOwner(t *testing.T) {
	tests := []struct{ in, want string }{
		{"IT & Security Manager", "e.stpierre"},
		{"  CEO/President ", "r.ledoux"},
		{"Leadership - VP Sales", "vp-sales"},
		{"Head of Sales / EMEA", "head-of-sales-emea"},
		{"Ops & Facilities", "ops-facilities"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		if got := NormalizeOwner(tt.in); got != tt.want {
			t.Errorf("NormalizeOwner(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMapTreatment(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Selection of Controls", "mitigate"},
		{"Risk Accept", "accept"},
		{"avoid", "avoid"},
		{"Transfer to insurer", "transfer"},
		{"Share", "transfer"},
		{"", "mitigate"},
		{"something else", "mitigate"},
	}
	for _, tt := range tests {
		if got := MapTreatment(tt.in); got != tt.want {
			t.Errorf("MapTreatment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseControls(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"A.5.1 – Policies, A.8.1 User endpoint devices", []string{"A.5.1", "A.8.1"}},
		{"A.7.9;none; ", []string{"A.7.9"}},
		{"None", []string{}},
		{"", []string{}},
		{"MFA - everywhere, Backups", []string{"MFA", "Backups"}},
	}
	for _, tt := range tests {
		if got := ParseControls(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseControls(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestParseNumber(t *testing.T) {
	if n := ParseNumber(" 12 "); n == nil || *n != 12 {
		t.Errorf("expected 12, got %v", n)
	}
	if n := ParseNumber("2.5"); n == nil || *n != 2.5 {
		t.Errorf("expected 2.5, got %v", n)
	}
	for _, in := range []string{"", "  ", "x", "NaN", "Inf"} {
		if n := ParseNumber(in); n != nil {
			t.Errorf("ParseNumber(%q) = %v, want nil", in, *n)
		}
	}
}

func TestPadID(t *testing.T) {
	tests := map[string]string{"R-7": "R-007", "R-12": "R-012", "R-151": "R-151", "R-1000": "R-1000"}
	for in, want := range tests {
		if got := PadID(in); got != want {
			t.Errorf("PadID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConvert(t *testing.T) {
	records, err := ReadRecords(strings.NewReader(registerCSV))
	if err != nil {
		t.Fatalf("ReadRecords failed: %v", err)
	}
	risks, err := Convert(records, Options{ReviewDate: "2026-06-15"})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if len(risks) != 2 {
		t.Fatalf("expected 2 risks, got %d", len(risks))
	}

	r := risks[0]
	if r.ID != "R-007" || r.Key() != "risks/r-007.yml" {
		t.Errorf("unexpected id/key %s %s", r.ID, r.Key())
	}
	if r.Title != "Laptop - Theft" {
		t.Errorf("title = %q", r.Title)
	}
	if r.Vulnerability == nil || *r.Vulnerability != "Left in car" {
		t.Errorf("vulnerability = %v", r.Vulnerability)
	}
	if r.Owner != "j.ledoux" || r.Treatment != "mitigate" || r.Status != DefaultStatus {
		t.Errorf("unexpected owner/treatment/status %s %s %s", r.Owner, r.Treatment, r.Status)
	}
	if !reflect.DeepEqual(r.Frameworks.ISO27001.Controls, []string{"A.5.1", "A.8.1"}) {
		t.Errorf("existing controls = %v", r.Frameworks.ISO27001.Controls)
	}
	if !reflect.DeepEqual(r.RequiredControls, []string{"A.7.9"}) {
		t.Errorf("required controls = %v", r.RequiredControls)
	}
	if r.InherentRisk == nil || *r.InherentRisk != 12 {
		t.Errorf("inherent risk = %v", r.InherentRisk)
	}

	r2 := risks[1]
	if r2.Title != "CRM" || r2.Threat != nil || r2.Impact != nil || r2.Treatment != "accept" {
		t.Errorf("unexpected second risk %+v", r2)
	}
	if r2.Owner != "head-of-sales-emea" {
		t.Errorf("owner = %q", r2.Owner)
	}
}

func TestConvert_NoHeader(t *testing.T) {
	if _, err := Convert([][]string{{"title"}}, Options{}); err != ErrNoHeader {
		t.Errorf("expected ErrNoHeader, got %v", err)
	}
}

func TestEncode(t *testing.T) {
	records, _ := ReadRecords(strings.NewReader(registerCSV))
	risks, _ := Convert(records, Options{ReviewDate: "2026-06-15"})

	data, err := Encode(risks[1])
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		"id: R-012\n",
		"threat: null\n",
		"impact: null\n",
		"  iso27001:\n    controls: []\n",
		"required_controls: []\n",
		"status: treating\n",
		"review_date: 2026-06-15\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if !strings.HasPrefix(text, "id: R-012\ntitle: CRM\n") {
		t.Errorf("unexpected field order:\n%s", text)
	}

	data, _ = Encode(risks[0])
	if !strings.Contains(string(data), "controls: [A.5.1, A.8.1]\n") {
		t.Errorf("expected flow control list:\n%s", data)
	}

	var decoded map[string]any
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid yaml: %v", err)
	}
	if decoded["asset_owner"] != "IT & Security Manager" || decoded["inherent_risk"] != 12 {
		t.Errorf("unexpected decoded values %v", decoded)
	}
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	repo := blob.NewLocalBlobStore(t.TempDir())

	written, err := Import(ctx, strings.NewReader(registerCSV), repo, Options{ReviewDate: "2026-06-15"})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if !reflect.DeepEqual(written, []string{"risks/r-007.yml", "risks/r-012.yml"}) {
		t.Errorf("written = %v", written)
	}
	keys, err := repo.List(ctx, "risks")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Errorf("expected 2 files, got %v", keys)
	}
}
