package handler

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dtj0108/dreamteam/internal/model"
	"gorm.io/gorm"
)

func seedFinance(t *testing.T, db *gorm.DB, workspaceID uint) (*model.FinanceAccount, *model.FinanceCategory) {
	t.Helper()
	account := model.FinanceAccount{WorkspaceID: workspaceID, Name: "checking", Currency: "USD", Active: true}
	if err := db.Create(&account).Error; err != nil {
		t.Fatal(err)
	}
	category := model.FinanceCategory{WorkspaceID: workspaceID, Name: "office", Kind: "expense"}
	if err := db.Create(&category).Error; err != nil {
		t.Fatal(err)
	}
	return &account, &category
}

func TestCreateTransactionInheritsCurrency(t *testing.T) {
	db := newTestDB(t)
	workspace, user := seedWorkspaceUser(t, db)
	account, _ := seedFinance(t, db, workspace.ID)

	body := `{"account_id":` + jsonUint(account.ID) + `,"amount":-125.5,"description":"stationery"}`
	c, rec := newAuthedContext(t, "POST", "/api/finance/transactions", body, workspace, user, "member")
	if err := CreateTransaction(c); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if rec.Code != 201 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var tx model.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &tx); err != nil {
		t.Fatal(err)
	}
	if tx.Currency != "USD" {
		t.Errorf("currency = %q, want inherited USD", tx.Currency)
	}
	if tx.WorkspaceID != workspace.ID {
		t.Errorf("workspace = %d", tx.WorkspaceID)
	}
}

func TestCreateTransactionForeignAccount(t *testing.T) {
	db := newTestDB(t)
	workspace, user := seedWorkspaceUser(t, db)
	foreign, _ := seedFinance(t, db, workspace.ID+99)

	body := `{"account_id":` + jsonUint(foreign.ID) + `,"amount":10}`
	c, rec := newAuthedContext(t, "POST", "/api/finance/transactions", body, workspace, user, "member")
	if err := CreateTransaction(c); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if rec.Code != 404 {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestFinanceSummaryBreakdown(t *testing.T) {
	db := newTestDB(t)
	workspace, user := seedWorkspaceUser(t, db)
	account, category := seedFinance(t, db, workspace.ID)

	now := time.Now()
	rows := []model.Transaction{
		{WorkspaceID: workspace.ID, AccountID: account.ID, Amount: 1000, OccurredAt: now},
		{WorkspaceID: workspace.ID, AccountID: account.ID, CategoryID: &category.ID, Amount: -300, OccurredAt: now},
		{WorkspaceID: workspace.ID, AccountID: account.ID, CategoryID: &category.ID, Amount: -100, OccurredAt: now},
		// outside the workspace, must not count
		{WorkspaceID: workspace.ID + 99, AccountID: account.ID, Amount: 5000, OccurredAt: now},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatal(err)
		}
	}

	c, rec := newAuthedContext(t, "GET", "/api/finance/summary", "", workspace, user, "member")
	if err := FinanceSummary(c); err != nil {
		t.Fatalf("FinanceSummary: %v", err)
	}
	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Income     float64 `json:"income"`
		Expense    float64 `json:"expense"`
		Net        float64 `json:"net"`
		Accounts   []json.RawMessage `json:"accounts"`
		Categories []struct {
			CategoryID *uint   `json:"category_id"`
			Expense    float64 `json:"expense"`
		} `json:"categories"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Income != 1000 || resp.Expense != 400 || resp.Net != 600 {
		t.Errorf("totals = income %.0f expense %.0f net %.0f", resp.Income, resp.Expense, resp.Net)
	}
	var categorized *float64
	for _, row := range resp.Categories {
		if row.CategoryID != nil && *row.CategoryID == category.ID {
			v := row.Expense
			categorized = &v
		}
	}
	if categorized == nil || *categorized != 400 {
		t.Errorf("category breakdown = %+v", resp.Categories)
	}
}
