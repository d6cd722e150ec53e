package mcptools

import (
	"context"
	"strings"
	"testing"

	"github.com/dtj0108/dreamteam/internal/model"
)

func TestPostAndListChannelMessages(t *testing.T) {
	db := newTestDB(t)
	workspace := seedWorkspace(t, db)

	channel := model.Channel{WorkspaceID: workspace.ID, Name: "general", CreatedBy: 1}
	if err := db.Create(&channel).Error; err != nil {
		t.Fatalf("seed channel: %v", err)
	}

	post := NewPostMessageTool(db)
	res, err := post.Handle(context.Background(), toolRequest(map[string]any{
		"workspace_id": float64(workspace.ID),
		"channel_id":   float64(channel.ID),
		"content":      "Weekly report is ready.",
		"agent_id":     float64(3),
	}))
	if err != nil {
		t.Fatalf("post handle: %v", err)
	}
	if res.IsError {
		t.Fatalf("post returned error: %s", resultText(t, res))
	}

	var message model.ChannelMessage
	if err := db.Where("channel_id = ?", channel.ID).First(&message).Error; err != nil {
		t.Fatalf("reload message: %v", err)
	}
	if message.SenderType != "agent" {
		t.Errorf("sender type = %q, want agent", message.SenderType)
	}
	if message.SenderID != 3 {
		t.Errorf("sender id = %d, want 3", message.SenderID)
	}

	list := NewListMessagesTool(db)
	res, err = list.Handle(context.Background(), toolRequest(map[string]any{
		"workspace_id": float64(workspace.ID),
		"channel_id":   float64(channel.ID),
	}))
	if err != nil {
		t.Fatalf("list handle: %v", err)
	}
	if !strings.Contains(resultText(t, res), "Weekly report is ready.") {
		t.Errorf("list output missing message:\n%s", resultText(t, res))
	}
}

func TestPostMessageToForeignChannelFails(t *testing.T) {
	db := newTestDB(t)
	wsA := seedWorkspace(t, db)
	wsB := model.Workspace{Name: "other", OwnerID: 2, Active: true}
	if err := db.Create(&wsB).Error; err != nil {
		t.Fatalf("seed workspace: %v", err)
	}
	channel := model.Channel{WorkspaceID: wsB.ID, Name: "private", CreatedBy: 2}
	if err := db.Create(&channel).Error; err != nil {
		t.Fatalf("seed channel: %v", err)
	}

	post := NewPostMessageTool(db)
	res, err := post.Handle(context.Background(), toolRequest(map[string]any{
		"workspace_id": float64(wsA.ID),
		"channel_id":   float64(channel.ID),
		"content":      "should not land",
	}))
	if err != nil {
		t.Fatalf("post handle: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error posting to a channel in another workspace")
	}
}

func TestListChannels(t *testing.T) {
	db := newTestDB(t)
	workspace := seedWorkspace(t, db)

	channels := []model.Channel{
		{WorkspaceID: workspace.ID, Name: "general", Topic: "Everything"},
		{WorkspaceID: workspace.ID, Name: "finance"},
	}
	if err := db.Create(&channels).Error; err != nil {
		t.Fatalf("seed channels: %v", err)
	}

	list := NewListChannelsTool(db)
	res, err := list.Handle(context.Background(), toolRequest(map[string]any{
		"workspace_id": float64(workspace.ID),
	}))
	if err != nil {
		t.Fatalf("list handle: %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "#general") || !strings.Contains(text, "#finance") {
		t.Errorf("channel listing incomplete:\n%s", text)
	}
}
