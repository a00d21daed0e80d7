package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/djivites/startup-intelligence-rag-sample/internal/feed"
	"github.com/djivites/startup-intelligence-rag-sample/internal/query"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Query   Asker
	Store   RecordStore
	Version string
}

// NewMCPServer creates an MCP server exposing question answering, raw
// recall and the processed-URL counters.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"startupintel",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("startupintel answers questions about Indian startup funding news and VC blogs."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Answer a question about startup funding using the indexed facts. Reuse session_id for follow-up questions."),
			mcp.WithString("question", mcp.Description("The question to answer"), mcp.Required()),
			mcp.WithString("session_id", mcp.Description("Conversation id for follow-ups")),
			mcp.WithString("source_type", mcp.Description("Restrict to one corpus: news or blog")),
			mcp.WithNumber("k", mcp.Description("Number of documents to retrieve (default 8)")),
		),
		mcpAsk(deps),
	)

	s.AddTool(
		mcp.NewTool("recall",
			mcp.WithDescription("Return the indexed documents most similar to a query, without generating an answer."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 5)")),
		),
		mcpRecall(deps),
	)

	s.AddTool(
		mcp.NewTool("processed_count",
			mcp.WithDescription("Count processed URLs, optionally for one source tag (funding_news or blog)."),
			mcp.WithString("source", mcp.Description("Source tag")),
		),
		mcpProcessedCount(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"startupintel://runs",
			"Recent Ingest Runs",
			mcp.WithResourceDescription("Last 10 ingest runs with their counters"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRuns(deps),
	)

	return s
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}
		sourceType := req.GetString("source_type", "")
		if sourceType != "" {
			kind, err := feed.ParseKind(sourceType)
			if err != nil {
				return mcpError(err.Error()), nil
			}
			sourceType = string(kind)
		}

		ans, err := deps.Query.Ask(ctx, query.Request{
			Question:   question,
			SessionID:  req.GetString("session_id", ""),
			TopK:       req.GetInt("k", 0),
			SourceType: sourceType,
		})
		if errors.Is(err, query.ErrEmptyQuestion) {
			return mcpError("question is required"), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("answering failed: %v", err)), nil
		}
		return mcpText(ans.Text), nil
	}
}

func mcpRecall(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", 5)
		if limit <= 0 {
			limit = 5
		}
		if limit > query.MaxTopK {
			limit = query.MaxTopK
		}

		chunks, err := deps.Query.Recall(ctx, q, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("recall failed: %v", err)), nil
		}
		if len(chunks) == 0 {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(documentsJSON(chunks))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpProcessedCount(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		source := req.GetString("source", "")
		n, err := deps.Store.CountProcessedURLs(ctx, source)
		if err != nil {
			return mcpError(fmt.Sprintf("count failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("%d", n)), nil
	}
}

func mcpResourceRuns(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		runs, err := deps.Store.RecentRuns(ctx, 10)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent runs: %w", err)
		}

		out := make([]runJSON, len(runs))
		for i, r := range runs {
			out[i] = runFromStorage(r)
		}
		b, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal runs: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
