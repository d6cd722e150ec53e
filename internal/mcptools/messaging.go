package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/dtj0108/dreamteam/internal/model"
	"github.com/mark3labs/mcp-go/mcp"
	"gorm.io/gorm"
)

// ListChannelsTool handles the msg_list_channels MCP tool.
type ListChannelsTool struct {
	db *gorm.DB
}

// NewListChannelsTool creates a ListChannelsTool.
func NewListChannelsTool(db *gorm.DB) *ListChannelsTool {
	return &ListChannelsTool{db: db}
}

// Definition returns the MCP tool definition for msg_list_channels.
func (t *ListChannelsTool) Definition() mcp.Tool {
	return mcp.NewTool("msg_list_channels",
		mcp.WithDescription("List a workspace's messaging channels."),
		mcp.WithNumber("workspace_id", mcp.Required(), mcp.Description("Workspace to query")),
	)
}

// Handle processes the msg_list_channels tool call.
func (t *ListChannelsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspaceID, err := requireWorkspace(t.db, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var channels []model.Channel
	if err := t.db.WithContext(ctx).Where("workspace_id = ?", workspaceID).
		Order("id asc").Find(&channels).Error; err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	if len(channels) == 0 {
		return mcp.NewToolResultText("No channels found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d channels:\n\n", len(channels))
	for _, ch := range channels {
		fmt.Fprintf(&b, "- [%d] #%s", ch.ID, ch.Name)
		if ch.Topic != "" {
			fmt.Fprintf(&b, ": %s", ch.Topic)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

// PostMessageTool handles the msg_post_message MCP tool.
type PostMessageTool struct {
	db *gorm.DB
}

// NewPostMessageTool creates a PostMessageTool.
func NewPostMessageTool(db *gorm.DB) *PostMessageTool {
	return &PostMessageTool{db: db}
}

// Definition returns the MCP tool definition for msg_post_message.
func (t *PostMessageTool) Definition() mcp.Tool {
	return mcp.NewTool("msg_post_message",
		mcp.WithDescription("Post a message to a workspace channel as an agent."),
		mcp.WithNumber("workspace_id", mcp.Required(), mcp.Description("Workspace the channel belongs to")),
		mcp.WithNumber("channel_id", mcp.Required(), mcp.Description("Channel to post to")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Message text")),
		mcp.WithNumber("agent_id", mcp.Description("Posting agent; shown as the sender")),
	)
}

// Handle processes the msg_post_message tool call.
func (t *PostMessageTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspaceID, err := requireWorkspace(t.db, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	channelID := uintArg(req, "channel_id")
	if channelID == 0 {
		return mcp.NewToolResultError("'channel_id' is required"), nil
	}
	content := req.GetString("content", "")
	if content == "" {
		return mcp.NewToolResultError("'content' is required"), nil
	}

	var channel model.Channel
	if err := t.db.WithContext(ctx).Where("id = ? AND workspace_id = ?", channelID, workspaceID).
		First(&channel).Error; err != nil {
		return mcp.NewToolResultError("channel not found in workspace"), nil
	}

	message := model.ChannelMessage{
		ChannelID:  channel.ID,
		SenderID:   uintArg(req, "agent_id"),
		SenderType: "agent",
		Content:    content,
	}
	if err := t.db.WithContext(ctx).Create(&message).Error; err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("insert failed: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Message %d posted to #%s.", message.ID, channel.Name)), nil
}

// ListMessagesTool handles the msg_list_messages MCP tool.
type ListMessagesTool struct {
	db *gorm.DB
}

// NewListMessagesTool creates a ListMessagesTool.
func NewListMessagesTool(db *gorm.DB) *ListMessagesTool {
	return &ListMessagesTool{db: db}
}

// Definition returns the MCP tool definition for msg_list_messages.
func (t *ListMessagesTool) Definition() mcp.Tool {
	return mcp.NewTool("msg_list_messages",
		mcp.WithDescription("Read the most recent messages in a workspace channel."),
		mcp.WithNumber("workspace_id", mcp.Required(), mcp.Description("Workspace the channel belongs to")),
		mcp.WithNumber("channel_id", mcp.Required(), mcp.Description("Channel to read")),
		mcp.WithNumber("limit", mcp.Description("Max messages (default: 20, max: 100)")),
	)
}

// Handle processes the msg_list_messages tool call.
func (t *ListMessagesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspaceID, err := requireWorkspace(t.db, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	channelID := uintArg(req, "channel_id")
	if channelID == 0 {
		return mcp.NewToolResultError("'channel_id' is required"), nil
	}

	var channel model.Channel
	if err := t.db.WithContext(ctx).Where("id = ? AND workspace_id = ?", channelID, workspaceID).
		First(&channel).Error; err != nil {
		return mcp.NewToolResultError("channel not found in workspace"), nil
	}

	limit := intArg(req, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var messages []model.ChannelMessage
	if err := t.db.WithContext(ctx).Where("channel_id = ?", channel.ID).
		Order("id desc").Limit(limit).Find(&messages).Error; err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	if len(messages) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("#%s has no messages.", channel.Name)), nil
	}

	// Oldest first reads naturally.
	var b strings.Builder
	fmt.Fprintf(&b, "Last %d messages in #%s:\n\n", len(messages), channel.Name)
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		fmt.Fprintf(&b, "[%s %s %d] %s\n",
			m.CreatedAt.Format("2006-01-02 15:04"), m.SenderType, m.SenderID, m.Content)
	}
	return mcp.NewToolResultText(b.String()), nil
}
