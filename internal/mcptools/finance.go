package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dtj0108/dreamteam/internal/model"
	"github.com/mark3labs/mcp-go/mcp"
	"gorm.io/gorm"
)

// ListTransactionsTool handles the finance_list_transactions MCP tool.
type ListTransactionsTool struct {
	db *gorm.DB
}

// NewListTransactionsTool creates a ListTransactionsTool.
func NewListTransactionsTool(db *gorm.DB) *ListTransactionsTool {
	return &ListTransactionsTool{db: db}
}

// Definition returns the MCP tool definition for finance_list_transactions.
func (t *ListTransactionsTool) Definition() mcp.Tool {
	return mcp.NewTool("finance_list_transactions",
		mcp.WithDescription("List recent transactions for a workspace, newest first. Supports filtering by account and category."),
		mcp.WithNumber("workspace_id", mcp.Required(), mcp.Description("Workspace to query")),
		mcp.WithNumber("account_id", mcp.Description("Filter by account")),
		mcp.WithNumber("category_id", mcp.Description("Filter by category")),
		mcp.WithNumber("limit", mcp.Description("Max results (default: 20, max: 100)")),
	)
}

// Handle processes the finance_list_transactions tool call.
func (t *ListTransactionsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspaceID, err := requireWorkspace(t.db, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	limit := intArg(req, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := t.db.WithContext(ctx).Where("workspace_id = ?", workspaceID)
	if accountID := uintArg(req, "account_id"); accountID != 0 {
		query = query.Where("account_id = ?", accountID)
	}
	if categoryID := uintArg(req, "category_id"); categoryID != 0 {
		query = query.Where("category_id = ?", categoryID)
	}

	var transactions []model.Transaction
	if err := query.Order("occurred_at desc").Limit(limit).Find(&transactions).Error; err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	if len(transactions) == 0 {
		return mcp.NewToolResultText("No transactions found."), nil
	}

	return jsonResult(transactions)
}

// CreateTransactionTool handles the finance_create_transaction MCP tool.
type CreateTransactionTool struct {
	db *gorm.DB
}

// NewCreateTransactionTool creates a CreateTransactionTool.
func NewCreateTransactionTool(db *gorm.DB) *CreateTransactionTool {
	return &CreateTransactionTool{db: db}
}

// Definition returns the MCP tool definition for finance_create_transaction.
func (t *CreateTransactionTool) Definition() mcp.Tool {
	return mcp.NewTool("finance_create_transaction",
		mcp.WithDescription("Record a money movement on a workspace account. Positive amounts are income, negative amounts are expenses."),
		mcp.WithNumber("workspace_id", mcp.Required(), mcp.Description("Workspace to write to")),
		mcp.WithNumber("account_id", mcp.Required(), mcp.Description("Account the transaction belongs to")),
		mcp.WithNumber("amount", mcp.Required(), mcp.Description("Amount; positive for income, negative for expense")),
		mcp.WithString("description", mcp.Description("Free-form description")),
		mcp.WithNumber("category_id", mcp.Description("Optional category")),
		mcp.WithString("occurred_at", mcp.Description("RFC 3339 timestamp; defaults to now")),
	)
}

// Handle processes the finance_create_transaction tool call.
func (t *CreateTransactionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspaceID, err := requireWorkspace(t.db, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	accountID := uintArg(req, "account_id")
	if accountID == 0 {
		return mcp.NewToolResultError("'account_id' is required"), nil
	}
	amount, ok := req.GetArguments()["amount"].(float64)
	if !ok {
		return mcp.NewToolResultError("'amount' is required"), nil
	}

	var account model.FinanceAccount
	if err := t.db.WithContext(ctx).Where("id = ? AND workspace_id = ?", accountID, workspaceID).
		First(&account).Error; err != nil {
		return mcp.NewToolResultError("account not found in workspace"), nil
	}

	occurredAt := time.Now()
	if raw := req.GetString("occurred_at", ""); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return mcp.NewToolResultError("'occurred_at' must be RFC 3339"), nil
		}
		occurredAt = parsed
	}

	tx := model.Transaction{
		WorkspaceID: workspaceID,
		AccountID:   accountID,
		Amount:      amount,
		Currency:    account.Currency,
		Description: req.GetString("description", ""),
		OccurredAt:  occurredAt,
	}
	if categoryID := uintArg(req, "category_id"); categoryID != 0 {
		tx.CategoryID = &categoryID
	}

	if err := t.db.WithContext(ctx).Create(&tx).Error; err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("insert failed: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Transaction %d created: %.2f %s on account %q.",
		tx.ID, tx.Amount, tx.Currency, account.Name)), nil
}

// UpdateTransactionTool handles the finance_update_transaction MCP tool.
type UpdateTransactionTool struct {
	db *gorm.DB
}

// NewUpdateTransactionTool creates an UpdateTransactionTool.
func NewUpdateTransactionTool(db *gorm.DB) *UpdateTransactionTool {
	return &UpdateTransactionTool{db: db}
}

// Definition returns the MCP tool definition for finance_update_transaction.
func (t *UpdateTransactionTool) Definition() mcp.Tool {
	return mcp.NewTool("finance_update_transaction",
		mcp.WithDescription("Change a transaction's amount, category or description."),
		mcp.WithNumber("workspace_id", mcp.Required(), mcp.Description("Workspace the transaction belongs to")),
		mcp.WithNumber("transaction_id", mcp.Required(), mcp.Description("Transaction to update")),
		mcp.WithNumber("amount", mcp.Description("New amount")),
		mcp.WithNumber("category_id", mcp.Description("New category")),
		mcp.WithString("description", mcp.Description("New description")),
	)
}

// Handle processes the finance_update_transaction tool call.
func (t *UpdateTransactionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspaceID, err := requireWorkspace(t.db, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	id := uintArg(req, "transaction_id")
	if id == 0 {
		return mcp.NewToolResultError("'transaction_id' is required"), nil
	}

	var tx model.Transaction
	if err := t.db.WithContext(ctx).Where("id = ? AND workspace_id = ?", id, workspaceID).
		First(&tx).Error; err != nil {
		return mcp.NewToolResultError("transaction not found in workspace"), nil
	}

	if amount, ok := req.GetArguments()["amount"].(float64); ok {
		tx.Amount = amount
	}
	if categoryID := uintArg(req, "category_id"); categoryID != 0 {
		tx.CategoryID = &categoryID
	}
	if description := req.GetString("description", ""); description != "" {
		tx.Description = description
	}

	if err := t.db.WithContext(ctx).Save(&tx).Error; err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("update failed: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Transaction %d updated.", tx.ID)), nil
}

// DeleteTransactionTool handles the finance_delete_transaction MCP tool.
type DeleteTransactionTool struct {
	db *gorm.DB
}

// NewDeleteTransactionTool creates a DeleteTransactionTool.
func NewDeleteTransactionTool(db *gorm.DB) *DeleteTransactionTool {
	return &DeleteTransactionTool{db: db}
}

// Definition returns the MCP tool definition for finance_delete_transaction.
func (t *DeleteTransactionTool) Definition() mcp.Tool {
	return mcp.NewTool("finance_delete_transaction",
		mcp.WithDescription("Delete a transaction from a workspace."),
		mcp.WithNumber("workspace_id", mcp.Required(), mcp.Description("Workspace the transaction belongs to")),
		mcp.WithNumber("transaction_id", mcp.Required(), mcp.Description("Transaction to delete")),
	)
}

// Handle processes the finance_delete_transaction tool call.
func (t *DeleteTransactionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspaceID, err := requireWorkspace(t.db, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	id := uintArg(req, "transaction_id")
	if id == 0 {
		return mcp.NewToolResultError("'transaction_id' is required"), nil
	}

	result := t.db.WithContext(ctx).Where("id = ? AND workspace_id = ?", id, workspaceID).
		Delete(&model.Transaction{})
	if result.Error != nil {
		return mcp.NewToolResultError(fmt.Sprintf("delete failed: %v", result.Error)), nil
	}
	if result.RowsAffected == 0 {
		return mcp.NewToolResultError("transaction not found in workspace"), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Transaction %d deleted.", id)), nil
}

// ListAccountsTool handles the finance_list_accounts MCP tool.
type ListAccountsTool struct {
	db *gorm.DB
}

// NewListAccountsTool creates a ListAccountsTool.
func NewListAccountsTool(db *gorm.DB) *ListAccountsTool {
	return &ListAccountsTool{db: db}
}

// Definition returns the MCP tool definition for finance_list_accounts.
func (t *ListAccountsTool) Definition() mcp.Tool {
	return mcp.NewTool("finance_list_accounts",
		mcp.WithDescription("List a workspace's finance accounts."),
		mcp.WithNumber("workspace_id", mcp.Required(), mcp.Description("Workspace to query")),
	)
}

// Handle processes the finance_list_accounts tool call.
func (t *ListAccountsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspaceID, err := requireWorkspace(t.db, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var accounts []model.FinanceAccount
	if err := t.db.WithContext(ctx).Where("workspace_id = ?", workspaceID).
		Order("id asc").Find(&accounts).Error; err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	if len(accounts) == 0 {
		return mcp.NewToolResultText("No accounts found."), nil
	}

	return jsonResult(accounts)
}

// SummaryTool handles the finance_summary MCP tool.
type SummaryTool struct {
	db *gorm.DB
}

// NewSummaryTool creates a SummaryTool.
func NewSummaryTool(db *gorm.DB) *SummaryTool {
	return &SummaryTool{db: db}
}

// Definition returns the MCP tool definition for finance_summary.
func (t *SummaryTool) Definition() mcp.Tool {
	return mcp.NewTool("finance_summary",
		mcp.WithDescription("Summarize a workspace's income, expenses and net over an optional time range."),
		mcp.WithNumber("workspace_id", mcp.Required(), mcp.Description("Workspace to summarize")),
		mcp.WithString("from", mcp.Description("RFC 3339 range start (inclusive)")),
		mcp.WithString("to", mcp.Description("RFC 3339 range end (exclusive)")),
	)
}

// Handle processes the finance_summary tool call.
func (t *SummaryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspaceID, err := requireWorkspace(t.db, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := t.db.WithContext(ctx).Model(&model.Transaction{}).Where("workspace_id = ?", workspaceID)
	if raw := req.GetString("from", ""); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return mcp.NewToolResultError("'from' must be RFC 3339"), nil
		}
		query = query.Where("occurred_at >= ?", from)
	}
	if raw := req.GetString("to", ""); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return mcp.NewToolResultError("'to' must be RFC 3339"), nil
		}
		query = query.Where("occurred_at < ?", to)
	}

	var summary struct {
		Income  float64
		Expense float64
		Net     float64
		Count   int64
	}
	if err := query.
		Select("SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END) AS income, SUM(CASE WHEN amount < 0 THEN -amount ELSE 0 END) AS expense, COALESCE(SUM(amount), 0) AS net, COUNT(*) AS count").
		Scan(&summary).Error; err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("aggregation failed: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Transactions: %d\nIncome: %.2f\nExpenses: %.2f\nNet: %.2f",
		summary.Count, summary.Income, summary.Expense, summary.Net)), nil
}

// jsonResult marshals rows into an indented JSON tool result
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
