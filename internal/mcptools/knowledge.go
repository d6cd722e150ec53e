package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/dtj0108/dreamteam/internal/model"
	"github.com/mark3labs/mcp-go/mcp"
	"gorm.io/gorm"
)

// ListPagesTool handles the kb_list_pages MCP tool.
type ListPagesTool struct {
	db *gorm.DB
}

// NewListPagesTool creates a ListPagesTool.
func NewListPagesTool(db *gorm.DB) *ListPagesTool {
	return &ListPagesTool{db: db}
}

// Definition returns the MCP tool definition for kb_list_pages.
func (t *ListPagesTool) Definition() mcp.Tool {
	return mcp.NewTool("kb_list_pages",
		mcp.WithDescription("List a workspace's knowledge base pages (titles and tags, not bodies). Use kb_get_page for the full text."),
		mcp.WithNumber("workspace_id", mcp.Required(), mcp.Description("Workspace to query")),
		mcp.WithString("query", mcp.Description("Filter by substring of title or tags")),
		mcp.WithBoolean("pinned", mcp.Description("Only return pinned pages")),
	)
}

// Handle processes the kb_list_pages tool call.
func (t *ListPagesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspaceID, err := requireWorkspace(t.db, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := t.db.WithContext(ctx).Where("workspace_id = ?", workspaceID)
	if q := req.GetString("query", ""); q != "" {
		pattern := "%" + q + "%"
		query = query.Where("title LIKE ? OR tags LIKE ?", pattern, pattern)
	}
	if boolArg(req, "pinned", false) {
		query = query.Where("pinned = ?", true)
	}

	var pages []model.KnowledgePage
	if err := query.Order("updated_at desc").Find(&pages).Error; err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	if len(pages) == 0 {
		return mcp.NewToolResultText("No pages found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d pages:\n\n", len(pages))
	for _, p := range pages {
		fmt.Fprintf(&b, "- [%d] %s", p.ID, p.Title)
		if p.Pinned {
			b.WriteString(" (pinned)")
		}
		if p.Tags != "" {
			fmt.Fprintf(&b, " (tags: %s)", p.Tags)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

// GetPageTool handles the kb_get_page MCP tool.
type GetPageTool struct {
	db *gorm.DB
}

// NewGetPageTool creates a GetPageTool.
func NewGetPageTool(db *gorm.DB) *GetPageTool {
	return &GetPageTool{db: db}
}

// Definition returns the MCP tool definition for kb_get_page.
func (t *GetPageTool) Definition() mcp.Tool {
	return mcp.NewTool("kb_get_page",
		mcp.WithDescription("Fetch the full text of one knowledge base page."),
		mcp.WithNumber("workspace_id", mcp.Required(), mcp.Description("Workspace the page belongs to")),
		mcp.WithNumber("page_id", mcp.Required(), mcp.Description("Page to fetch")),
	)
}

// Handle processes the kb_get_page tool call.
func (t *GetPageTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspaceID, err := requireWorkspace(t.db, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	id := uintArg(req, "page_id")
	if id == 0 {
		return mcp.NewToolResultError("'page_id' is required"), nil
	}

	var page model.KnowledgePage
	if err := t.db.WithContext(ctx).Where("id = ? AND workspace_id = ?", id, workspaceID).
		First(&page).Error; err != nil {
		return mcp.NewToolResultError("page not found in workspace"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", page.Title)
	if page.Tags != "" {
		fmt.Fprintf(&b, "Tags: %s\n\n", page.Tags)
	}
	b.WriteString(page.Body)
	return mcp.NewToolResultText(b.String()), nil
}

// CreatePageTool handles the kb_create_page MCP tool.
type CreatePageTool struct {
	db *gorm.DB
}

// NewCreatePageTool creates a CreatePageTool.
func NewCreatePageTool(db *gorm.DB) *CreatePageTool {
	return &CreatePageTool{db: db}
}

// Definition returns the MCP tool definition for kb_create_page.
func (t *CreatePageTool) Definition() mcp.Tool {
	return mcp.NewTool("kb_create_page",
		mcp.WithDescription("Create a knowledge base page in a workspace. Pinned pages are fed into every agent's system prompt."),
		mcp.WithNumber("workspace_id", mcp.Required(), mcp.Description("Workspace to write to")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Page title")),
		mcp.WithString("body", mcp.Description("Page body (markdown)")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
		mcp.WithBoolean("pinned", mcp.Description("Pin the page into agent context")),
	)
}

// Handle processes the kb_create_page tool call.
func (t *CreatePageTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspaceID, err := requireWorkspace(t.db, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	title := req.GetString("title", "")
	if title == "" {
		return mcp.NewToolResultError("'title' is required"), nil
	}

	page := model.KnowledgePage{
		WorkspaceID: workspaceID,
		Title:       title,
		Body:        req.GetString("body", ""),
		Tags:        req.GetString("tags", ""),
		Pinned:      boolArg(req, "pinned", false),
	}
	if err := t.db.WithContext(ctx).Create(&page).Error; err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("insert failed: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Page %d %q created.", page.ID, page.Title)), nil
}

// UpdatePageTool handles the kb_update_page MCP tool.
type UpdatePageTool struct {
	db *gorm.DB
}

// NewUpdatePageTool creates an UpdatePageTool.
func NewUpdatePageTool(db *gorm.DB) *UpdatePageTool {
	return &UpdatePageTool{db: db}
}

// Definition returns the MCP tool definition for kb_update_page.
func (t *UpdatePageTool) Definition() mcp.Tool {
	return mcp.NewTool("kb_update_page",
		mcp.WithDescription("Update a knowledge base page's title, body, tags or pinned flag."),
		mcp.WithNumber("workspace_id", mcp.Required(), mcp.Description("Workspace the page belongs to")),
		mcp.WithNumber("page_id", mcp.Required(), mcp.Description("Page to update")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("body", mcp.Description("New body")),
		mcp.WithString("tags", mcp.Description("New tags")),
		mcp.WithBoolean("pinned", mcp.Description("New pinned flag")),
	)
}

// Handle processes the kb_update_page tool call.
func (t *UpdatePageTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspaceID, err := requireWorkspace(t.db, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	id := uintArg(req, "page_id")
	if id == 0 {
		return mcp.NewToolResultError("'page_id' is required"), nil
	}

	var page model.KnowledgePage
	if err := t.db.WithContext(ctx).Where("id = ? AND workspace_id = ?", id, workspaceID).
		First(&page).Error; err != nil {
		return mcp.NewToolResultError("page not found in workspace"), nil
	}

	if title := req.GetString("title", ""); title != "" {
		page.Title = title
	}
	if body := req.GetString("body", ""); body != "" {
		page.Body = body
	}
	if tags := req.GetString("tags", ""); tags != "" {
		page.Tags = tags
	}
	if _, ok := req.GetArguments()["pinned"].(bool); ok {
		page.Pinned = boolArg(req, "pinned", page.Pinned)
	}

	if err := t.db.WithContext(ctx).Save(&page).Error; err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("update failed: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Page %d updated.", page.ID)), nil
}

// DeletePageTool handles the kb_delete_page MCP tool.
type DeletePageTool struct {
	db *gorm.DB
}

// NewDeletePageTool creates a DeletePageTool.
func NewDeletePageTool(db *gorm.DB) *DeletePageTool {
	return &DeletePageTool{db: db}
}

// Definition returns the MCP tool definition for kb_delete_page.
func (t *DeletePageTool) Definition() mcp.Tool {
	return mcp.NewTool("kb_delete_page",
		mcp.WithDescription("Delete a knowledge base page from a workspace."),
		mcp.WithNumber("workspace_id", mcp.Required(), mcp.Description("Workspace the page belongs to")),
		mcp.WithNumber("page_id", mcp.Required(), mcp.Description("Page to delete")),
	)
}

// Handle processes the kb_delete_page tool call.
func (t *DeletePageTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspaceID, err := requireWorkspace(t.db, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	id := uintArg(req, "page_id")
	if id == 0 {
		return mcp.NewToolResultError("'page_id' is required"), nil
	}

	result := t.db.WithContext(ctx).Where("id = ? AND workspace_id = ?", id, workspaceID).
		Delete(&model.KnowledgePage{})
	if result.Error != nil {
		return mcp.NewToolResultError(fmt.Sprintf("delete failed: %v", result.Error)), nil
	}
	if result.RowsAffected == 0 {
		return mcp.NewToolResultError("page not found in workspace"), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Page %d deleted.", id)), nil
}
