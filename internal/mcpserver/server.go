// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the knowledge base lookups for LLM integration via
// stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/knowledge"
	"github.com/starford/ansuz/internal/match"
)

// Server wraps the MCP server with knowledge base tools.
type Server struct {
	mcp        *server.MCPServer
	store      *knowledge.Store
	threshold  float64
	maxResults int
}

// New creates a new MCP server with all knowledge tools registered.
func New(store *knowledge.Store, threshold float64, maxResults int) *Server {
	if threshold <= 0 {
		threshold = match.DefaultThreshold
	}
	if maxResults <= 0 {
		maxResults = match.DefaultMaxResults
	}
	s := &Server{store: store, threshold: threshold, maxResults: maxResults}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("ask_question",
		mcp.WithDescription("Fuzzy-search the employee knowledge base and return ranked question/answer matches."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The free-text question to look up")),
	), s.askQuestion)

	s.mcp.AddTool(mcp.NewTool("search_category",
		mcp.WithDescription("Fuzzy-search within a single knowledge base category."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The free-text question to look up")),
		mcp.WithString("category", mcp.Required(), mcp.Description("Category to search in (case-insensitive)")),
	), s.searchCategory)

	s.mcp.AddTool(mcp.NewTool("list_categories",
		mcp.WithDescription("List the distinct categories of the knowledge base."),
	), s.listCategories)

	s.mcp.AddTool(mcp.NewTool("kb_stats",
		mcp.WithDescription("Return knowledge base statistics: question counts, categories, skipped rows, fetch time."),
	), s.kbStats)

	s.mcp.AddTool(mcp.NewTool("refresh_kb",
		mcp.WithDescription("Invalidate the cache and reload the knowledge base from its source."),
	), s.refreshKB)

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

func (s *Server) askQuestion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results := match.Match(question, snap, s.threshold, s.maxResults)
	if len(results) == 0 {
		return mcp.NewToolResultText("no matches found"), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchCategory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	category, err := req.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results := match.ByCategory(question, snap, category, s.threshold, s.maxResults)
	if len(results) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("no matches found in category %q", category)), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listCategories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	categories, err := s.store.Categories(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(categories) == 0 {
		return mcp.NewToolResultText("no categories found"), nil
	}
	return mcp.NewToolResultText(strings.Join(categories, "\n")), nil
}

func (s *Server) kbStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(stats, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) refreshKB(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.store.Invalidate()
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("refreshed: %d entries", len(snap.Entries))), nil
}
