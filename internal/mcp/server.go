// Package mcp exposes the review engine as MCP tools over stdio, so agent
// hosts can trigger reviews and inspect session history.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/varunch/reviewbot/internal/api"
	"github.com/varunch/reviewbot/internal/github"
	"github.com/varunch/reviewbot/internal/store"
)

// Server wraps the review engine and exposes it as MCP tools.
type Server struct {
	store  store.Store
	runner api.Runner
}

// NewServer creates the MCP server wrapper.
func NewServer(s store.Store, runner api.Runner) *Server {
	return &Server{store: s, runner: runner}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("reviewbot", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.reviewPRTool())
	srv.AddTool(s.listSessionsTool())
	srv.AddTool(s.getSessionTool())
	srv.AddTool(s.statsTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// review_pr
func (s *Server) reviewPRTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("review_pr",
		mcp.WithDescription("Run an AI code review over a pull request. Reviews every changed file, validates each finding, and posts comments for the ones that pass. Re-running resumes an interrupted session. Returns the session summary as JSON."),
		mcp.WithString("pr_url", mcp.Required(), mcp.Description("Pull request reference: a full GitHub PR URL or OWNER/REPO#NUMBER")),
	)
	return tool, s.handleReviewPR
}

func (s *Server) handleReviewPR(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prURL, err := request.RequireString("pr_url")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: pr_url"), nil
	}

	repository, prNumber, err := github.ParsePRURL(prURL)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	summary, err := s.runner.ReviewPR(ctx, repository, prNumber)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("review failed: %v", err)), nil
	}

	return marshalResult(summary)
}

// list_review_sessions
func (s *Server) listSessionsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("list_review_sessions",
		mcp.WithDescription("List recent review sessions, newest first. Returns a JSON array with id, repository, pr_number, status, and counters."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of sessions to return (default 20)")),
	)
	return tool, s.handleListSessions
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 20)
	if limit <= 0 {
		limit = 20
	}

	sessions, err := s.store.ListSessions(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list sessions: %v", err)), nil
	}

	return marshalResult(sessions)
}

// get_review_session
func (s *Server) getSessionTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("get_review_session",
		mcp.WithDescription("Get one review session with its per-file outcomes: which files got comments, which were skipped, and why."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	)
	return tool, s.handleGetSession
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: session_id"), nil
	}

	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("session not found: %s", id)), nil
	}

	outcomes, err := s.store.ListOutcomes(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list outcomes: %v", err)), nil
	}

	return marshalResult(map[string]any{
		"session":  sess,
		"outcomes": outcomes,
	})
}

// review_stats
func (s *Server) statsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("review_stats",
		mcp.WithDescription("Aggregate statistics across all review sessions: totals and session counts by status."),
	)
	return tool, s.handleStats
}

func (s *Server) handleStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load stats: %v", err)), nil
	}

	return marshalResult(stats)
}

func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
