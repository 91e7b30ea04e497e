// Package mcpserver exposes the session index as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"cc_session_mgr/internal/logging"
	"cc_session_mgr/internal/session"
)

var mcpLog = logging.ForComponent(logging.CompMCP)

const (
	defaultSearchLimit   = 20
	defaultSessionsLimit = 20
	defaultMaxMessages   = 50
)

// Store is the part of the session index the tools query.
type Store interface {
	ListProjects() []session.Project
	ListSessions(projectID string, limit int) []session.SessionSummary
	GetSession(project, sessionID string) (*session.SessionDetail, bool)
	Stats() *session.Stats
	SearchAll(query string, limit int) []session.SearchResult
	FindProject(query string) (string, bool)
}

// SearchSessionsArgs defines arguments for the search_sessions tool
type SearchSessionsArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// ListSessionsArgs defines arguments for the list_sessions tool
type ListSessionsArgs struct {
	Project string `json:"project,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// GetSessionArgs defines arguments for the get_session tool
type GetSessionArgs struct {
	Project     string `json:"project"`
	SessionID   string `json:"session_id"`
	MaxMessages int    `json:"max_messages,omitempty"`
}

// SessionTranscript is a session detail cut to its first messages
type SessionTranscript struct {
	Project      string           `json:"project"`
	SessionID    string           `json:"session_id"`
	MessageCount int              `json:"message_count"`
	Truncated    bool             `json:"truncated"`
	Messages     []session.Record `json:"messages"`
}

// NewServer builds an MCP server with every tool registered.
func NewServer(store Store, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"cc-session-mgr",
		version,
	)

	searchTool := mcp.NewTool("search_sessions",
		mcp.WithDescription("Search Claude Code transcripts and prompt history for a string. Results are newest first."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Case-insensitive search term, at least 2 characters")),
		mcp.WithNumber("limit",
			mcp.Description("Max results to return (default: 20)")),
	)
	s.AddTool(searchTool, makeSearchSessionsHandler(store))

	listTool := mcp.NewTool("list_sessions",
		mcp.WithDescription("List Claude Code sessions newest first, optionally for one project"),
		mcp.WithString("project",
			mcp.Description("Project directory name or working directory; partial names are matched fuzzily")),
		mcp.WithNumber("limit",
			mcp.Description("Max sessions to return (default: 20)")),
	)
	s.AddTool(listTool, makeListSessionsHandler(store))

	detailTool := mcp.NewTool("get_session",
		mcp.WithDescription("Retrieve the records of one Claude Code session"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project directory name or working directory")),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session UUID")),
		mcp.WithNumber("max_messages",
			mcp.Description("Max records to return from the start of the transcript (default: 50)")),
	)
	s.AddTool(detailTool, makeGetSessionHandler(store))

	statsTool := mcp.NewTool("get_stats",
		mcp.WithDescription("Token usage totals globally, per project and per day"),
	)
	s.AddTool(statsTool, makeGetStatsHandler(store))

	projectsTool := mcp.NewTool("list_projects",
		mcp.WithDescription("List projects with their most recent sessions"),
	)
	s.AddTool(projectsTool, makeListProjectsHandler(store))

	return s
}

// Serve runs the MCP server on stdin/stdout until the client disconnects.
func Serve(store Store, version string) error {
	mcpLog.Info("mcp_serving", slog.String("transport", "stdio"))
	if err := server.ServeStdio(NewServer(store, version)); err != nil {
		return fmt.Errorf("serve stdio: %w", err)
	}
	return nil
}

func decodeArgs(request mcp.CallToolRequest, v any) error {
	argsBytes, err := json.Marshal(request.Params.Arguments)
	if err != nil {
		return err
	}
	return json.Unmarshal(argsBytes, v)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	resultJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(resultJSON)), nil
}

// resolveProject maps a user reference to an encoded project name.
func resolveProject(store Store, ref string) (string, error) {
	name, ok := store.FindProject(ref)
	if !ok {
		return "", fmt.Errorf("project not found: %s", ref)
	}
	return name, nil
}

func makeSearchSessionsHandler(store Store) server.ToolHandlerFunc {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args SearchSessionsArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		limit := args.Limit
		if limit == 0 {
			limit = defaultSearchLimit
		}

		results := store.SearchAll(args.Query, limit)
		mcpLog.Debug("tool_search", slog.String("query", args.Query), slog.Int("results", len(results)))
		return jsonResult(map[string]any{
			"results": results,
			"total":   len(results),
		})
	}
}

func makeListSessionsHandler(store Store) server.ToolHandlerFunc {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args ListSessionsArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		limit := args.Limit
		if limit == 0 {
			limit = defaultSessionsLimit
		}

		project := ""
		if args.Project != "" {
			name, err := resolveProject(store, args.Project)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			project = name
		}

		return jsonResult(map[string]any{
			"sessions": store.ListSessions(project, limit),
		})
	}
}

func makeGetSessionHandler(store Store) server.ToolHandlerFunc {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args GetSessionArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if args.Project == "" || args.SessionID == "" {
			return mcp.NewToolResultError("project and session_id are required"), nil
		}

		project, err := resolveProject(store, args.Project)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		detail, ok := store.GetSession(project, args.SessionID)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("session not found: %s/%s", project, args.SessionID)), nil
		}

		maxMessages := args.MaxMessages
		if maxMessages <= 0 {
			maxMessages = defaultMaxMessages
		}

		out := SessionTranscript{
			Project:      detail.Project,
			SessionID:    detail.SessionID,
			MessageCount: detail.MessageCount,
			Messages:     detail.Messages,
		}
		if len(out.Messages) > maxMessages {
			out.Messages = out.Messages[:maxMessages]
			out.Truncated = true
		}
		return jsonResult(out)
	}
}

func makeGetStatsHandler(store Store) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(store.Stats())
	}
}

func makeListProjectsHandler(store Store) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(map[string]any{
			"projects": store.ListProjects(),
		})
	}
}
