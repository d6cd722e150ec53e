// Package mcptools provides MCP tool handlers over the workspace's business
// tables, so LLM agents can read and write finance, knowledge and messaging
// data through a stdio MCP server.
//
// Each tool follows the same pattern:
//   - A struct with dependencies (gorm.DB) injected via constructor
//   - Definition() returns the mcp.Tool schema
//   - Handle() processes the request and returns a result
//
// Every tool takes a workspace_id argument and refuses to act on a missing
// or inactive workspace.
package mcptools

import (
	"errors"
	"fmt"

	"github.com/dtj0108/dreamteam/internal/model"
	"github.com/mark3labs/mcp-go/mcp"
	"gorm.io/gorm"
)

var errWorkspaceUnavailable = errors.New("workspace not found or inactive")

// intArg extracts an integer argument, returning defaultVal if the key is
// missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// uintArg extracts a positive integer ID argument, returning 0 if absent.
func uintArg(req mcp.CallToolRequest, key string) uint {
	v, ok := req.GetArguments()[key].(float64)
	if !ok || v < 1 {
		return 0
	}
	return uint(v)
}

// boolArg extracts a boolean argument.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// requireWorkspace validates the workspace_id argument against the database
func requireWorkspace(db *gorm.DB, req mcp.CallToolRequest) (uint, error) {
	id := uintArg(req, "workspace_id")
	if id == 0 {
		return 0, errors.New("'workspace_id' is required")
	}
	var workspace model.Workspace
	if err := db.Where("id = ? AND active = ?", id, true).First(&workspace).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, errWorkspaceUnavailable
		}
		return 0, fmt.Errorf("workspace lookup: %w", err)
	}
	return id, nil
}
