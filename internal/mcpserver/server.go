// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Lexicon tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/lexicon/internal/apperr"
	"github.com/starford/lexicon/internal/docservice"
	"github.com/starford/lexicon/internal/models"
)

const (
	dictionaryURI = "lexicon://dictionary"
	rulesURI      = "lexicon://substitution-rules"
)

// Server wraps the MCP server with Lexicon tools.
type Server struct {
	mcp *server.MCPServer
	svc *docservice.Service
}

// New creates a new MCP server with all Lexicon tools registered.
func New(svc *docservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Lexicon",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("substitute_text",
		mcp.WithDescription("Apply the active dictionary to free text and return the rewritten text "+
			"with every replacement made. The live document is not changed."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to rewrite")),
	), s.substituteText)

	s.mcp.AddTool(mcp.NewTool("list_replacements",
		mcp.WithDescription("List the distinct terms replaced in the live document during this session."),
	), s.listReplacements)

	s.mcp.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Return the live document after substitution."),
		mcp.WithString("format",
			mcp.Description("Output format"),
			mcp.Enum("html", "markdown"),
		),
	), s.getDocument)

	s.mcp.AddTool(mcp.NewTool("lookup_term",
		mcp.WithDescription("Look up the replacement stored for one term. Matching is case-insensitive."),
		mcp.WithString("term", mcp.Required(), mcp.Description("Term to look up")),
	), s.lookupTerm)

	s.mcp.AddResource(
		mcp.NewResource(dictionaryURI, "Active Dictionary",
			mcp.WithResourceDescription("Term to replacement mapping in dictionary order."),
			mcp.WithMIMEType("application/json"),
		),
		s.readDictionaryResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(rulesURI, "Substitution Rules",
			mcp.WithResourceDescription("How Lexicon matches terms and rewrites text."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRulesResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) substituteText(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, found, err := s.svc.Substitute(text)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if found == nil {
		found = []models.Replacement{}
	}
	return jsonResult(struct {
		Text         string               `json:"text"`
		Replacements []models.Replacement `json:"replacements"`
	}{out, found})
}

func (s *Server) listReplacements(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := s.svc.Replacements(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(recs) == 0 {
		return mcp.NewToolResultText("no replacements recorded"), nil
	}
	return jsonResult(recs)
}

func (s *Server) getDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	switch format := req.GetString("format", "html"); format {
	case "markdown":
		out, err := s.svc.Markdown(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	case "html":
		snap, err := s.svc.Document(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(snap.HTML), nil
	default:
		return mcp.NewToolResultError("format must be html or markdown"), nil
	}
}

func (s *Server) lookupTerm(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	term, err := req.RequireString("term")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entry, err := s.svc.Lookup(term)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("no replacement for " + term), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(entry)
}

func (s *Server) readDictionaryResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := json.MarshalIndent(s.svc.Dictionary(), "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      dictionaryURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}

func (s *Server) readRulesResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      rulesURI,
			MIMEType: "text/markdown",
			Text:     SubstitutionRules,
		},
	}, nil
}
