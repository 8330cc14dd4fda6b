package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/lexicon/internal/dictionary"
	"github.com/starford/lexicon/internal/docservice"
	"github.com/starford/lexicon/internal/dom"
	"github.com/starford/lexicon/internal/eventloop"
	"github.com/starford/lexicon/internal/models"
	"github.com/starford/lexicon/internal/session"
	"github.com/starford/lexicon/internal/testutil"
)

type fetcher struct{ d *dictionary.Dictionary }

func (f fetcher) Fetch(context.Context) (*dictionary.Dictionary, error) { return f.d, nil }

func testServer(t *testing.T) *Server {
	t.Helper()

	loop := eventloop.New()
	t.Cleanup(loop.Close)
	doc := testutil.TestDocument(t, `<html><body><h1>Colour guide</h1><p>grey skies</p></body></html>`,
		dom.WithScheduler(func(fn func()) { loop.Post(fn) }))
	layout := dom.NewStaticLayout(20)
	store := testutil.TestStore(t)

	sess, err := session.Start(context.Background(), session.Deps{
		Doc:     doc,
		Layout:  layout,
		Loop:    loop,
		Storage: store,
		Fetcher: fetcher{dictionary.Of("colour", "color", "grey", "gray")},
		Logger:  testutil.Logger(),
		Options: session.DefaultOptions(),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = sess.Close(context.Background()) })

	return New(docservice.New(loop, doc, layout, sess, store), "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "substitute_text":
		result, err = srv.substituteText(ctx, req)
	case "list_replacements":
		result, err = srv.listReplacements(ctx, req)
	case "get_document":
		result, err = srv.getDocument(ctx, req)
	case "lookup_term":
		result, err = srv.lookupTerm(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestSubstituteText(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "substitute_text", map[string]any{"text": "Grey and colour"})
	var got struct {
		Text         string               `json:"text"`
		Replacements []models.Replacement `json:"replacements"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Text != "Gray and color" || len(got.Replacements) != 2 {
		t.Errorf("substitute_text = %+v", got)
	}

	if r := callTool(t, srv, "substitute_text", map[string]any{}); !r.IsError {
		t.Error("expected error for missing text")
	}
}

func TestListReplacements(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "list_replacements", nil)
	var recs []models.Replacement
	if err := json.Unmarshal([]byte(resultText(r)), &recs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 2 || recs[0].Original != "Colour" || recs[1].Original != "grey" {
		t.Errorf("list_replacements = %+v", recs)
	}
}

func TestGetDocument(t *testing.T) {
	srv := testServer(t)

	html := resultText(callTool(t, srv, "get_document", nil))
	if !strings.Contains(html, "<h1>Color guide</h1>") {
		t.Errorf("html = %q", html)
	}

	markdown := resultText(callTool(t, srv, "get_document", map[string]any{"format": "markdown"}))
	if !strings.HasPrefix(markdown, "# Color guide") || strings.Contains(markdown, "Colour") {
		t.Errorf("markdown = %q", markdown)
	}

	if r := callTool(t, srv, "get_document", map[string]any{"format": "pdf"}); !r.IsError {
		t.Error("expected error for unknown format")
	}
}

func TestLookupTerm(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "lookup_term", map[string]any{"term": "GREY"})
	var entry models.DictionaryEntry
	if err := json.Unmarshal([]byte(resultText(r)), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry.Term != "grey" || entry.Replacement != "gray" {
		t.Errorf("lookup_term = %+v", entry)
	}

	if r := callTool(t, srv, "lookup_term", map[string]any{"term": "blue"}); !r.IsError {
		t.Error("expected error for unknown term")
	}
}

func TestResources(t *testing.T) {
	srv := testServer(t)
	ctx := context.Background()

	contents, err := srv.readDictionaryResource(ctx, mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	if !strings.Contains(text, `"term": "colour"`) {
		t.Errorf("dictionary resource = %q", text)
	}

	contents, err = srv.readRulesResource(ctx, mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if contents[0].(mcp.TextResourceContents).Text != SubstitutionRules {
		t.Error("rules resource mismatch")
	}
}
