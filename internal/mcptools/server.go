package mcptools

import (
	"github.com/dtj0108/dreamteam/pkg/config"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Version is set at build time via ldflags.
var Version = "dev"

// registeredTool pairs an MCP definition with its handler so registration
// can go through the allowlist filter.
type registeredTool struct {
	definition mcp.Tool
	handle     server.ToolHandlerFunc
}

// NewServer creates the MCP server with every enabled tool registered.
// The filter comes from DREAMTEAM_ENABLED_TOOLS; disabled tools are not
// advertised at all.
func NewServer(db *gorm.DB, cfg *config.MCPConfig, log *zap.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		"dreamteam",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	filter := NewToolFilter(cfg.EnabledTools)

	listTransactions := NewListTransactionsTool(db)
	createTransaction := NewCreateTransactionTool(db)
	updateTransaction := NewUpdateTransactionTool(db)
	deleteTransaction := NewDeleteTransactionTool(db)
	listAccounts := NewListAccountsTool(db)
	summary := NewSummaryTool(db)

	listPages := NewListPagesTool(db)
	getPage := NewGetPageTool(db)
	createPage := NewCreatePageTool(db)
	updatePage := NewUpdatePageTool(db)
	deletePage := NewDeletePageTool(db)

	listChannels := NewListChannelsTool(db)
	postMessage := NewPostMessageTool(db)
	listMessages := NewListMessagesTool(db)

	tools := []registeredTool{
		{listTransactions.Definition(), listTransactions.Handle},
		{createTransaction.Definition(), createTransaction.Handle},
		{updateTransaction.Definition(), updateTransaction.Handle},
		{deleteTransaction.Definition(), deleteTransaction.Handle},
		{listAccounts.Definition(), listAccounts.Handle},
		{summary.Definition(), summary.Handle},
		{listPages.Definition(), listPages.Handle},
		{getPage.Definition(), getPage.Handle},
		{createPage.Definition(), createPage.Handle},
		{updatePage.Definition(), updatePage.Handle},
		{deletePage.Definition(), deletePage.Handle},
		{listChannels.Definition(), listChannels.Handle},
		{postMessage.Definition(), postMessage.Handle},
		{listMessages.Definition(), listMessages.Handle},
	}

	registered := 0
	for _, t := range tools {
		if !filter.Enabled(t.definition.Name) {
			log.Debug("Tool disabled by allowlist", zap.String("tool", t.definition.Name))
			continue
		}
		s.AddTool(t.definition, t.handle)
		registered++
	}
	log.Info("MCP tools registered", zap.Int("count", registered))

	return s
}
