package api

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/djivites/startup-intelligence-rag-sample/internal/retrieval"
	"github.com/djivites/startup-intelligence-rag-sample/internal/storage"
)

func newTestMCPDeps(t *testing.T) (MCPDeps, *mockAsker, *storage.Store) {
	t.Helper()
	asker := &mockAsker{}
	store := openTestStore(t)
	return MCPDeps{Query: asker, Store: store}, asker, store
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestMCPTool_Ask(t *testing.T) {
	deps, asker, _ := newTestMCPDeps(t)
	asker.answer.Text = "Answer: Accel led the round"
	handler := mcpAsk(deps)

	req := makeCallToolRequest("ask", map[string]interface{}{
		"question":    "Who led the round?",
		"session_id":  "abc",
		"source_type": "blog",
		"k":           3,
	})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}
	if got := toolText(t, result); got != "Answer: Accel led the round" {
		t.Errorf("text = %q", got)
	}
	if asker.lastReq.SessionID != "abc" || asker.lastReq.TopK != 3 || asker.lastReq.SourceType != "blog" {
		t.Errorf("request = %+v", asker.lastReq)
	}
}

func TestMCPTool_Ask_MissingQuestion(t *testing.T) {
	deps, _, _ := newTestMCPDeps(t)

	result, err := mcpAsk(deps)(context.Background(), makeCallToolRequest("ask", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}
}

func TestMCPTool_Ask_BadSourceType(t *testing.T) {
	deps, _, _ := newTestMCPDeps(t)

	req := makeCallToolRequest("ask", map[string]interface{}{"question": "q", "source_type": "tv"})
	result, _ := mcpAsk(deps)(context.Background(), req)
	if !result.IsError {
		t.Fatal("expected error result for unknown source_type")
	}
}

func TestMCPTool_Ask_EngineError(t *testing.T) {
	deps, asker, _ := newTestMCPDeps(t)
	asker.askErr = errors.New("connection refused")

	req := makeCallToolRequest("ask", map[string]interface{}{"question": "q"})
	result, _ := mcpAsk(deps)(context.Background(), req)
	if !result.IsError {
		t.Fatal("expected error result")
	}
}

func TestMCPTool_Recall_ReturnsChunks(t *testing.T) {
	deps, asker, _ := newTestMCPDeps(t)
	asker.chunks = []retrieval.Chunk{
		{ID: "c1", SourceType: "news", Text: "Startup Name: Zepto", Score: 0.95},
		{ID: "c2", SourceType: "blog", Text: "Investor: Peak XV", Score: 0.8},
	}

	req := makeCallToolRequest("recall", map[string]interface{}{"query": "quick commerce", "limit": 500})
	result, err := mcpRecall(deps)(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	var docs []documentJSON
	if err := json.Unmarshal([]byte(toolText(t, result)), &docs); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if asker.lastK != 50 {
		t.Errorf("limit = %d, want 50", asker.lastK)
	}
}

func TestMCPTool_Recall_EmptyResult(t *testing.T) {
	deps, _, _ := newTestMCPDeps(t)

	req := makeCallToolRequest("recall", map[string]interface{}{"query": "nothing"})
	result, _ := mcpRecall(deps)(context.Background(), req)
	if got := toolText(t, result); got != "[]" {
		t.Errorf("text = %q, want []", got)
	}
}

func TestMCPTool_ProcessedCount(t *testing.T) {
	deps, _, store := newTestMCPDeps(t)
	ctx := context.Background()
	store.SaveURL(ctx, "https://a.example/1", storage.SourceFundingNews, "")
	store.SaveURL(ctx, "https://a.example/2", storage.SourceFundingNews, "")
	store.SaveURL(ctx, "https://b.example/1", storage.SourceBlog, "")

	handler := mcpProcessedCount(deps)

	result, _ := handler(ctx, makeCallToolRequest("processed_count", map[string]interface{}{}))
	if got := toolText(t, result); got != "3" {
		t.Errorf("total = %q, want 3", got)
	}
	result, _ = handler(ctx, makeCallToolRequest("processed_count", map[string]interface{}{"source": "blog"}))
	if got := toolText(t, result); got != "1" {
		t.Errorf("blog = %q, want 1", got)
	}
}

func TestMCPResource_Runs(t *testing.T) {
	deps, _, store := newTestMCPDeps(t)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		if _, err := store.SaveRun(ctx, storage.Run{Feeds: i}); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	contents, err := mcpResourceRuns(deps)(ctx, makeReadResourceRequest("startupintel://runs"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	var runs []runJSON
	if err := json.Unmarshal([]byte(tc.Text), &runs); err != nil {
		t.Fatalf("parsing runs: %v", err)
	}
	if len(runs) != 10 {
		t.Fatalf("runs = %d, want 10", len(runs))
	}
	if runs[0].Feeds != 11 {
		t.Errorf("newest run feeds = %d, want 11", runs[0].Feeds)
	}
}

func TestNewMCPServer_Registers(t *testing.T) {
	deps, _, _ := newTestMCPDeps(t)
	if s := NewMCPServer(deps); s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}
