// Package mcp exposes the computed compliance artifacts to agents over the
// Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rmax-ai/grcgraph/pkg/blob"
	"github.com/rmax-ai/grcgraph/pkg/graph"
	"github.com/rmax-ai/grcgraph/pkg/propagation"
	"github.com/rmax-ai/grcgraph/pkg/reports"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// Server serves the computed directory to MCP clients.
type Server struct {
	mcpServer *server.MCPServer
	artifacts blob.BlobStore
}

type artifactResource struct {
	uri         string
	name        string
	description string
	file        string
}

var artifactResources = []artifactResource{
	{"grcgraph://dashboard", "Compliance Dashboard", "Totals and status histograms across all compliance documents", reports.DashboardFile},
	{"grcgraph://stale", "Stale Documents", "Documents past their review date, most overdue first", reports.StaleFile},
	{"grcgraph://soa", "Statement of Applicability", "ISO 27001 Annex A controls with implementing policies, risks and evidence", reports.SOAFile},
	{"grcgraph://coverage", "Framework Coverage", "Policy, evidence and implementation coverage per framework", reports.CoverageFile},
	{"grcgraph://pending", "Pending Reviews", "Downstream documents flagged after upstream changes", propagation.PendingFile},
}

// NewServer creates a new MCP server reading artifacts from store.
func NewServer(artifacts blob.BlobStore) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"grcgraph",
			Version,
		),
		artifacts: artifacts,
	}
	s.registerResources()
	s.registerTools()
	s.registerPrompts()
	return s
}

// Serve starts the MCP server on stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// --- Resources ---

func (s *Server) registerResources() {
	for _, r := range artifactResources {
		s.mcpServer.AddResource(mcp.NewResource(
			r.uri,
			r.name,
			mcp.WithResourceDescription(r.description),
			mcp.WithMIMEType("application/json"),
		), s.artifactHandler(r.file))
	}
}

// --- Tools ---

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"control_references",
		mcp.WithDescription("List the policies, risks and evidence that reference a framework control."),
		mcp.WithString("framework", mcp.Required(), mcp.Description("Framework name: iso27001, soc2 or gdpr")),
		mcp.WithString("control_id", mcp.Required(), mcp.Description("Control identifier, e.g. 'A.5.15' or 'CC6.1'")),
	), s.handleControlReferences)

	s.mcpServer.AddTool(mcp.NewTool(
		"downstream_documents",
		mcp.WithDescription("List the documents that must be reviewed when the given document changes."),
		mcp.WithString("file", mcp.Required(), mcp.Description("Document key relative to the repository root, e.g. 'policies/access-control.md'")),
	), s.handleDownstreamDocuments)
}

// --- Prompts ---

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(mcp.NewPrompt(
		"grcgraph-aware",
		mcp.WithPromptDescription("Provides context about the compliance graph (documents, frameworks, propagation)"),
	), s.handleGetPrompt)
}

// --- Handlers ---

func (s *Server) artifactHandler(file string) server.ResourceHandlerFunc {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := blob.ReadAll(ctx, s.artifacts, file)
		if err != nil {
			if errors.Is(err, blob.ErrNotFound) {
				return nil, fmt.Errorf("%s has not been built yet; run grcgraph build", file)
			}
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	}
}

// ControlReferences is the control_references tool result.
type ControlReferences struct {
	Framework string   `json:"framework"`
	ControlID string   `json:"control_id"`
	Document  string   `json:"document"`
	Policies  []string `json:"policies"`
	Risks     []string `json:"risks"`
	Evidence  []string `json:"evidence"`
}

func (s *Server) handleControlReferences(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	framework := mcp.ParseString(request, "framework", "")
	controlID := mcp.ParseString(request, "control_id", "")
	if framework == "" || controlID == "" {
		return mcp.NewToolResultError("framework and control_id are required"), nil
	}

	snap, err := reports.LoadSnapshot(ctx, s.artifacts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("graph unavailable: %v", err)), nil
	}

	idx := snap.Index(framework)
	refs := ControlReferences{
		Framework: framework,
		ControlID: controlID,
		Document:  graph.ControlPath(controlID, framework),
		Policies:  nonNil(idx.ControlsToPolicies[controlID]),
		Risks:     nonNil(idx.ControlsToRisks[controlID]),
		Evidence:  nonNil(idx.ControlsToEvidence[controlID]),
	}
	return jsonResult(refs)
}

func (s *Server) handleDownstreamDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file := mcp.ParseString(request, "file", "")
	if file == "" {
		return mcp.NewToolResultError("file is required"), nil
	}

	snap, err := reports.LoadSnapshot(ctx, s.artifacts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("graph unavailable: %v", err)), nil
	}

	downstream := graph.NewView(snap).Downstream(file)
	return jsonResult(map[string]any{
		"file":       file,
		"downstream": nonNil(downstream),
	})
}

func (s *Server) handleGetPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := request.Params.Name
	if name != "grcgraph-aware" {
		return nil, fmt.Errorf("prompt not found: %s", name)
	}

	promptText := `You are working in a compliance-as-code repository indexed by grcgraph.

Concepts:
- Document: a policy, procedure, risk, control, incident, evidence record or program file, keyed by its path.
- Framework: iso27001 (controls), soc2 (criteria) or gdpr (articles). Documents reference framework items by id.
- Statement of Applicability (SOA): every ISO 27001 control with its implementing policies, risks and evidence.
- Propagation: when a document changes, the documents it triggers must be reviewed.

Before editing a document, call 'downstream_documents' to see what else needs review.
To check whether a control is covered, call 'control_references'.
`

	return mcp.NewGetPromptResult(
		"grcgraph-aware",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(promptText)),
		},
	), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
