package mcptools

import (
	"context"
	"strings"
	"testing"

	"github.com/dtj0108/dreamteam/internal/model"
)

func TestKnowledgePageLifecycle(t *testing.T) {
	db := newTestDB(t)
	workspace := seedWorkspace(t, db)

	create := NewCreatePageTool(db)
	res, err := create.Handle(context.Background(), toolRequest(map[string]any{
		"workspace_id": float64(workspace.ID),
		"title":        "Refund policy",
		"body":         "Refunds within 30 days.",
		"tags":         "policy,support",
		"pinned":       true,
	}))
	if err != nil {
		t.Fatalf("create handle: %v", err)
	}
	if res.IsError {
		t.Fatalf("create returned error: %s", resultText(t, res))
	}

	var page model.KnowledgePage
	if err := db.Where("workspace_id = ?", workspace.ID).First(&page).Error; err != nil {
		t.Fatalf("reload page: %v", err)
	}
	if !page.Pinned {
		t.Error("page should be pinned")
	}

	get := NewGetPageTool(db)
	res, err = get.Handle(context.Background(), toolRequest(map[string]any{
		"workspace_id": float64(workspace.ID),
		"page_id":      float64(page.ID),
	}))
	if err != nil {
		t.Fatalf("get handle: %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "Refund policy") || !strings.Contains(text, "Refunds within 30 days.") {
		t.Errorf("get output incomplete:\n%s", text)
	}

	update := NewUpdatePageTool(db)
	res, err = update.Handle(context.Background(), toolRequest(map[string]any{
		"workspace_id": float64(workspace.ID),
		"page_id":      float64(page.ID),
		"body":         "Refunds within 14 days.",
		"pinned":       false,
	}))
	if err != nil {
		t.Fatalf("update handle: %v", err)
	}
	if res.IsError {
		t.Fatalf("update returned error: %s", resultText(t, res))
	}
	if err := db.First(&page, page.ID).Error; err != nil {
		t.Fatalf("reload page: %v", err)
	}
	if page.Body != "Refunds within 14 days." {
		t.Errorf("body = %q", page.Body)
	}
	if page.Pinned {
		t.Error("page should be unpinned after update")
	}

	del := NewDeletePageTool(db)
	res, err = del.Handle(context.Background(), toolRequest(map[string]any{
		"workspace_id": float64(workspace.ID),
		"page_id":      float64(page.ID),
	}))
	if err != nil {
		t.Fatalf("delete handle: %v", err)
	}
	if res.IsError {
		t.Fatalf("delete returned error: %s", resultText(t, res))
	}

	var count int64
	db.Model(&model.KnowledgePage{}).Where("id = ?", page.ID).Count(&count)
	if count != 0 {
		t.Error("page still present after delete")
	}
}

func TestListPagesQueryFilter(t *testing.T) {
	db := newTestDB(t)
	workspace := seedWorkspace(t, db)

	pages := []model.KnowledgePage{
		{WorkspaceID: workspace.ID, Title: "Onboarding checklist", Tags: "hr"},
		{WorkspaceID: workspace.ID, Title: "Pricing table", Tags: "sales"},
	}
	if err := db.Create(&pages).Error; err != nil {
		t.Fatalf("seed pages: %v", err)
	}

	list := NewListPagesTool(db)
	res, err := list.Handle(context.Background(), toolRequest(map[string]any{
		"workspace_id": float64(workspace.ID),
		"query":        "Pricing",
	}))
	if err != nil {
		t.Fatalf("list handle: %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "Pricing table") {
		t.Error("expected matching page in output")
	}
	if !strings.Contains(text, "(tags: sales)") {
		t.Errorf("tags missing from listing: %q", text)
	}
	if strings.Contains(text, "Onboarding checklist") {
		t.Error("non-matching page leaked into filtered listing")
	}
}
