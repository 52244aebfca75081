package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rmax-ai/grcgraph/pkg/blob"
	"github.com/rmax-ai/grcgraph/pkg/graph"
	"github.com/rmax-ai/grcgraph/pkg/reports"
)

func newTestServer(t *testing.T) (*Server, blob.BlobStore) {
	t.Helper()
	store := blob.NewLocalBlobStore(t.TempDir())

	yes := true
	docs := []graph.Document{
		{Key: "policies/access-control.md", Type: graph.NodePolicy, Record: &graph.Record{
			ID: "POL-001", Title: "Access Control",
			Frameworks:       map[string]any{"iso27001": map[string]any{"controls": []any{"A.5.15"}}},
			TriggersUpdateTo: graph.StringList{"procedures/onboarding.md"},
		}},
		{Key: "procedures/onboarding.md", Type: graph.NodeProcedure, Record: &graph.Record{ID: "PROC-001"}},
		{Key: "frameworks/iso27001/controls/A.5.15.yml", Type: graph.NodeControl, Record: &graph.Record{
			ID: "A.5.15", Title: "Access control", Applicable: &yes,
		}},
	}
	snap := graph.Build(docs, graph.WithClock(func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }))
	artifacts, err := reports.RenderAll(reports.ReportParams{
		Snapshot:    snap,
		Today:       time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		GeneratedAt: snap.GeneratedAt,
		Framework:   reports.DefaultSOAFramework,
	})
	if err != nil {
		t.Fatalf("RenderAll failed: %v", err)
	}
	if err := blob.PutAll(context.Background(), store, reports.ArtifactObjects(artifacts)); err != nil {
		t.Fatalf("PutAll failed: %v", err)
	}
	return NewServer(store), store
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("Expected content in result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Expected TextContent, got %T", result.Content[0])
	}
	return text.Text
}

func TestMCPServer_ReadSOA(t *testing.T) {
	s, _ := newTestServer(t)

	req := mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: "grcgraph://soa",
		},
	}

	result, err := s.artifactHandler(reports.SOAFile)(context.Background(), req)
	if err != nil {
		t.Fatalf("read soa failed: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("Expected 1 resource content, got %d", len(result))
	}

	content, ok := result[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("Expected TextResourceContents")
	}
	if content.MIMEType != "application/json" || content.URI != "grcgraph://soa" {
		t.Errorf("unexpected content metadata %s %s", content.URI, content.MIMEType)
	}

	var soa reports.SOA
	if err := json.Unmarshal([]byte(content.Text), &soa); err != nil {
		t.Fatalf("Failed to parse result JSON: %v", err)
	}
	if len(soa.Controls) != 1 || soa.Controls[0].ID != "A.5.15" {
		t.Errorf("unexpected SOA %+v", soa.Controls)
	}
}

func TestMCPServer_ReadMissingArtifact(t *testing.T) {
	s, _ := newTestServer(t)
	req := mcp.ReadResourceRequest{Params: mcp.ReadResourceParams{URI: "grcgraph://pending"}}
	_, err := s.artifactHandler("pending-reviews.json")(context.Background(), req)
	if err == nil || !strings.Contains(err.Error(), "not been built") {
		t.Errorf("expected not-built error, got %v", err)
	}
}

func TestMCPServer_ControlReferences(t *testing.T) {
	s, _ := newTestServer(t)

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name: "control_references",
			Arguments: map[string]interface{}{
				"framework":  "iso27001",
				"control_id": "A.5.15",
			},
		},
	}

	result, err := s.handleControlReferences(context.Background(), req)
	if err != nil {
		t.Fatalf("handleControlReferences failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("Expected success, got error: %s", toolText(t, result))
	}

	var refs ControlReferences
	if err := json.Unmarshal([]byte(toolText(t, result)), &refs); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if refs.Document != "frameworks/iso27001/controls/A.5.15.yml" {
		t.Errorf("document = %q", refs.Document)
	}
	if len(refs.Policies) != 1 || refs.Policies[0] != "policies/access-control.md" {
		t.Errorf("policies = %v", refs.Policies)
	}
	if refs.Risks == nil || len(refs.Risks) != 0 {
		t.Errorf("risks should be an empty list, got %#v", refs.Risks)
	}
}

func TestMCPServer_ControlReferencesMissingArgs(t *testing.T) {
	s, _ := newTestServer(t)
	req := mcp.CallToolRequest{Params: mcp.CallToolParams{Name: "control_references", Arguments: map[string]interface{}{}}}
	result, err := s.handleControlReferences(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected a tool error")
	}
}

func TestMCPServer_DownstreamDocuments(t *testing.T) {
	s, _ := newTestServer(t)

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "downstream_documents",
			Arguments: map[string]interface{}{"file": "policies/access-control.md"},
		},
	}
	result, err := s.handleDownstreamDocuments(context.Background(), req)
	if err != nil {
		t.Fatalf("handleDownstreamDocuments failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("Expected success, got error: %s", toolText(t, result))
	}

	var out struct {
		Downstream []string `json:"downstream"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(out.Downstream) != 1 || out.Downstream[0] != "procedures/onboarding.md" {
		t.Errorf("downstream = %v", out.Downstream)
	}
}

func TestMCPServer_NoGraph(t *testing.T) {
	s := NewServer(blob.NewLocalBlobStore(t.TempDir()))
	req := mcp.CallToolRequest{Params: mcp.CallToolParams{Name: "downstream_documents", Arguments: map[string]interface{}{"file": "x"}}}
	result, err := s.handleDownstreamDocuments(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected a tool error without graph.json")
	}
}

func TestMCPServer_Prompt(t *testing.T) {
	s := NewServer(blob.NewLocalBlobStore(t.TempDir()))
	req := mcp.GetPromptRequest{}
	req.Params.Name = "grcgraph-aware"
	result, err := s.handleGetPrompt(context.Background(), req)
	if err != nil {
		t.Fatalf("handleGetPrompt failed: %v", err)
	}
	if len(result.Messages) != 1 {
		t.Errorf("expected one message, got %d", len(result.Messages))
	}

	req.Params.Name = "other"
	if _, err := s.handleGetPrompt(context.Background(), req); err == nil {
		t.Error("expected unknown prompt error")
	}
}
