// Package mcpapi exposes board operations as MCP tools over streamable HTTP.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hylla/kanboard/internal/adapters/server/common"
	"github.com/hylla/kanboard/internal/domain"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config names the MCP server and where it is mounted.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler serves the board tools over stateless streamable HTTP.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing the board tools.
// Each request is authorized from its Authorization header.
func NewHandler(cfg Config, boards common.BoardDirectory, auth common.Authorizer) (*Handler, error) {
	if boards == nil {
		return nil, fmt.Errorf("board directory is required")
	}
	if auth == nil {
		return nil, fmt.Errorf("authorizer is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerBoardTools(mcpSrv, boards)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
		mcpserver.WithHTTPContextFunc(authorizeContext(auth)),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP answers one MCP request. A nil handler responds 503.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// authorizeContext attaches the caller to tool contexts. Rejected tokens
// leave the context anonymous so tools report unauthorized.
func authorizeContext(auth common.Authorizer) func(context.Context, *http.Request) context.Context {
	return func(ctx context.Context, r *http.Request) context.Context {
		authed, err := auth.Authorize(ctx, r.Header.Get("Authorization"))
		if err != nil {
			return ctx
		}
		return authed
	}
}

// normalizeConfig fills blank fields and roots the endpoint path.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = common.TrimOr(cfg.ServerName, "kanboard")
	cfg.ServerVersion = common.TrimOr(cfg.ServerVersion, "dev")
	cfg.EndpointPath = common.EndpointPath(cfg.EndpointPath, "/mcp")
	return cfg
}

// boardListResult wraps list output so structured content stays an object.
type boardListResult struct {
	Boards []domain.Board `json:"boards"`
}

// registerBoardTools registers list, create, and add-task tools.
func registerBoardTools(srv *mcpserver.MCPServer, boards common.BoardDirectory) {
	srv.AddTool(
		mcp.NewTool(
			"kanboard.list_boards",
			mcp.WithDescription("List the caller's boards with their columns and tasks."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			list, err := boards.ListBoards(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(boardListResult{Boards: list})
			if err != nil {
				return nil, fmt.Errorf("encode list_boards result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanboard.create_board",
			mcp.WithDescription("Create a board seeded with the default column."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Board name")),
			mcp.WithString("description", mcp.Description("Board description")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			name, err := req.RequireString("name")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			board, err := boards.CreateBoard(ctx, common.CreateBoardRequest{
				Name:        name,
				Description: req.GetString("description", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(board)
			if err != nil {
				return nil, fmt.Errorf("encode create_board result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanboard.add_task_to_column",
			mcp.WithDescription("Append a task to one column of a board and return the updated board."),
			mcp.WithString("board_id", mcp.Required(), mcp.Description("Board identifier")),
			mcp.WithString("column_name", mcp.Description("Column name (defaults to "+domain.DefaultColumnName+")")),
			mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
			mcp.WithString("description", mcp.Required(), mcp.Description("Task description")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			boardID, err := req.RequireString("board_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			title, err := req.RequireString("title")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			description, err := req.RequireString("description")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			board, err := boards.AddTaskToColumn(ctx, common.AddTaskRequest{
				BoardID:    boardID,
				ColumnName: req.GetString("column_name", domain.DefaultColumnName),
				Task:       domain.Task{Title: title, Description: description},
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(board)
			if err != nil {
				return nil, fmt.Errorf("encode add_task_to_column result: %w", err)
			}
			return result, nil
		},
	)
}

// toolResultFromError maps transport errors to prefixed tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrUnauthorized):
		return mcp.NewToolResultError("unauthorized: " + flatten(err))
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + flatten(err))
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + flatten(err))
	case errors.Is(err, common.ErrConflict):
		return mcp.NewToolResultError("conflict: " + flatten(err))
	default:
		return mcp.NewToolResultError("internal_error: " + flatten(err))
	}
}

func flatten(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", ": ")
}
