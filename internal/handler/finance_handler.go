package handler

import (
	"net/http"
	"time"

	"github.com/dtj0108/dreamteam/internal/middleware"
	"github.com/dtj0108/dreamteam/internal/model"
	"github.com/dtj0108/dreamteam/pkg/database"
	"github.com/dtj0108/dreamteam/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AccountRequest is the request body for finance account operations
type AccountRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency,omitempty"`
	Active   *bool  `json:"active,omitempty"`
}

// CategoryRequest is the request body for finance category operations
type CategoryRequest struct {
	Name string `json:"name"`
	Kind string `json:"kind,omitempty"` // income | expense
}

// TransactionRequest is the request body for transaction operations
type TransactionRequest struct {
	AccountID   uint     `json:"account_id"`
	CategoryID  *uint    `json:"category_id,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	Description string   `json:"description,omitempty"`
	OccurredAt  string   `json:"occurred_at,omitempty"` // RFC 3339
}

// ListAccounts returns the workspace's finance accounts
func ListAccounts(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var accounts []model.FinanceAccount
	if result := database.GetDB().Where("workspace_id = ?", workspaceID).
		Order("id asc").Find(&accounts); result.Error != nil {
		log.Error("Failed to list accounts", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list accounts"})
	}

	return c.JSON(http.StatusOK, echo.Map{"accounts": accounts})
}

// CreateAccount adds a finance account to the workspace
func CreateAccount(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var req AccountRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	account := model.FinanceAccount{
		WorkspaceID: workspaceID,
		Name:        req.Name,
		Currency:    req.Currency,
		Active:      true,
	}
	if account.Currency == "" {
		account.Currency = "USD"
	}
	if req.Active != nil {
		account.Active = *req.Active
	}

	if result := database.GetDB().Create(&account); result.Error != nil {
		log.Error("Failed to create account", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create account"})
	}

	log.Info("Finance account created", zap.Uint("account_id", account.ID), zap.String("name", account.Name))
	return c.JSON(http.StatusCreated, account)
}

// UpdateAccount changes an account's name, currency or active flag
func UpdateAccount(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var account model.FinanceAccount
	if err := database.GetDB().Where("id = ? AND workspace_id = ?", c.Param("id"), workspaceID).
		First(&account).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
	}

	var req AccountRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Name != "" {
		account.Name = req.Name
	}
	if req.Currency != "" {
		account.Currency = req.Currency
	}
	if req.Active != nil {
		account.Active = *req.Active
	}

	if result := database.GetDB().Save(&account); result.Error != nil {
		log.Error("Failed to update account", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update account"})
	}

	return c.JSON(http.StatusOK, account)
}

// ListCategories returns the workspace's transaction categories
func ListCategories(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var categories []model.FinanceCategory
	if result := database.GetDB().Where("workspace_id = ?", workspaceID).
		Order("id asc").Find(&categories); result.Error != nil {
		log.Error("Failed to list categories", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list categories"})
	}

	return c.JSON(http.StatusOK, echo.Map{"categories": categories})
}

// CreateCategory adds a transaction category
func CreateCategory(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if req.Kind != "" && req.Kind != "income" && req.Kind != "expense" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "kind must be income or expense"})
	}

	category := model.FinanceCategory{WorkspaceID: workspaceID, Name: req.Name, Kind: req.Kind}
	if category.Kind == "" {
		category.Kind = "expense"
	}

	if result := database.GetDB().Create(&category); result.Error != nil {
		log.Error("Failed to create category", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create category"})
	}

	return c.JSON(http.StatusCreated, category)
}

// ListTransactions returns transactions, optionally filtered by account,
// category and time range
func ListTransactions(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	query := database.GetDB().Where("workspace_id = ?", workspaceID)
	if accountID := c.QueryParam("account_id"); accountID != "" {
		query = query.Where("account_id = ?", accountID)
	}
	if categoryID := c.QueryParam("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if from := c.QueryParam("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from timestamp"})
		}
		query = query.Where("occurred_at >= ?", t)
	}
	if to := c.QueryParam("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to timestamp"})
		}
		query = query.Where("occurred_at < ?", t)
	}

	var transactions []model.Transaction
	if result := query.Order("occurred_at desc").Limit(500).Find(&transactions); result.Error != nil {
		log.Error("Failed to list transactions", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list transactions"})
	}

	return c.JSON(http.StatusOK, echo.Map{"transactions": transactions})
}

// CreateTransaction records a money movement on a workspace account
func CreateTransaction(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var req TransactionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.AccountID == 0 || req.Amount == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "account_id and amount are required"})
	}

	var account model.FinanceAccount
	if err := database.GetDB().Where("id = ? AND workspace_id = ?", req.AccountID, workspaceID).
		First(&account).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
	}

	occurredAt := time.Now()
	if req.OccurredAt != "" {
		t, err := time.Parse(time.RFC3339, req.OccurredAt)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid occurred_at timestamp"})
		}
		occurredAt = t
	}

	tx := model.Transaction{
		WorkspaceID: workspaceID,
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Amount:      *req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		OccurredAt:  occurredAt,
	}
	if tx.Currency == "" {
		tx.Currency = account.Currency
	}

	if result := database.GetDB().Create(&tx); result.Error != nil {
		log.Error("Failed to create transaction", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create transaction"})
	}

	return c.JSON(http.StatusCreated, tx)
}

// UpdateTransaction changes a transaction's amount, category or description
func UpdateTransaction(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var tx model.Transaction
	if err := database.GetDB().Where("id = ? AND workspace_id = ?", c.Param("id"), workspaceID).
		First(&tx).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
	}

	var req TransactionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Amount != nil {
		tx.Amount = *req.Amount
	}
	if req.CategoryID != nil {
		tx.CategoryID = req.CategoryID
	}
	if req.Description != "" {
		tx.Description = req.Description
	}
	if req.OccurredAt != "" {
		t, err := time.Parse(time.RFC3339, req.OccurredAt)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid occurred_at timestamp"})
		}
		tx.OccurredAt = t
	}

	if result := database.GetDB().Save(&tx); result.Error != nil {
		log.Error("Failed to update transaction", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update transaction"})
	}

	return c.JSON(http.StatusOK, tx)
}

// DeleteTransaction removes a transaction
func DeleteTransaction(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	result := database.GetDB().Where("id = ? AND workspace_id = ?", c.Param("id"), workspaceID).
		Delete(&model.Transaction{})
	if result.Error != nil {
		log.Error("Failed to delete transaction", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete transaction"})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "transaction deleted"})
}

// FinanceSummary aggregates income, expenses and net per account over an
// optional time range
func FinanceSummary(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var fromT, toT *time.Time
	if from := c.QueryParam("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from timestamp"})
		}
		fromT = &t
	}
	if to := c.QueryParam("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to timestamp"})
		}
		toT = &t
	}

	scoped := func() *gorm.DB {
		q := database.GetDB().Model(&model.Transaction{}).Where("workspace_id = ?", workspaceID)
		if fromT != nil {
			q = q.Where("occurred_at >= ?", *fromT)
		}
		if toT != nil {
			q = q.Where("occurred_at < ?", *toT)
		}
		return q
	}

	const sums = "SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END) AS income, " +
		"SUM(CASE WHEN amount < 0 THEN -amount ELSE 0 END) AS expense, SUM(amount) AS net"

	type accountRow struct {
		AccountID uint    `json:"account_id"`
		Income    float64 `json:"income"`
		Expense   float64 `json:"expense"`
		Net       float64 `json:"net"`
	}
	var accounts []accountRow
	if err := scoped().Select("account_id, " + sums).
		Group("account_id").Scan(&accounts).Error; err != nil {
		log.Error("Failed to aggregate transactions", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute summary"})
	}

	type categoryRow struct {
		CategoryID *uint   `json:"category_id"`
		Income     float64 `json:"income"`
		Expense    float64 `json:"expense"`
		Net        float64 `json:"net"`
	}
	var categories []categoryRow
	if err := scoped().Select("category_id, " + sums).
		Group("category_id").Scan(&categories).Error; err != nil {
		log.Error("Failed to aggregate transactions by category", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute summary"})
	}

	var income, expense, net float64
	for _, r := range accounts {
		income += r.Income
		expense += r.Expense
		net += r.Net
	}

	return c.JSON(http.StatusOK, echo.Map{
		"income":     income,
		"expense":    expense,
		"net":        net,
		"accounts":   accounts,
		"categories": categories,
	})
}
