package handler

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/dtj0108/dreamteam/internal/model"
	"github.com/dtj0108/dreamteam/internal/prompt"
	"github.com/dtj0108/dreamteam/internal/provider"
	"github.com/dtj0108/dreamteam/pkg/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// stubStream scripts the events a provider would emit.
type stubStream struct {
	events []provider.StreamEvent
	err    error
	gotReq *provider.ChatRequest
}

func (s *stubStream) Name() string              { return "stub" }
func (s *stubStream) Models() []string          { return nil }
func (s *stubStream) SupportsToolCalling() bool { return true }
func (s *stubStream) Healthy(context.Context) error {
	return nil
}
func (s *stubStream) Chat(context.Context, provider.ChatRequest) (*provider.ChatResponse, error) {
	return nil, s.err
}
func (s *stubStream) ChatStream(ctx context.Context, req provider.ChatRequest, out chan<- provider.StreamEvent) error {
	defer close(out)
	s.gotReq = &req
	if s.err != nil {
		return s.err
	}
	for _, ev := range s.events {
		out <- ev
	}
	return nil
}

func initChatTest(t *testing.T, db *gorm.DB, stub *stubStream) {
	t.Helper()
	factory := provider.NewFactory(&config.LLMConfig{
		DefaultProvider: "stub",
		Providers:       map[string]config.ProviderConfig{"stub": {}},
	}, zap.NewNop())
	factory.RegisterConstructor("stub", func(config.ProviderConfig, *zap.Logger) provider.Provider {
		return stub
	})
	InitChatHandler(factory, prompt.NewBuilder(db, zap.NewNop()))
}

func seedChatAgent(t *testing.T, db *gorm.DB, workspaceID uint) *model.Agent {
	t.Helper()
	agent := model.Agent{
		WorkspaceID: workspaceID,
		Name:        "Atlas",
		Provider:    "stub",
		Active:      true,
		IsDefault:   true,
	}
	if err := db.Create(&agent).Error; err != nil {
		t.Fatalf("seed agent: %v", err)
	}
	return &agent
}

// sseEvents parses "event: x\ndata: {...}" blocks from the response body.
func sseEvents(t *testing.T, body string) []struct {
	Name string
	Data map[string]any
} {
	t.Helper()
	var out []struct {
		Name string
		Data map[string]any
	}
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		var ev struct {
			Name string
			Data map[string]any
		}
		for _, line := range strings.Split(block, "\n") {
			if strings.HasPrefix(line, "event: ") {
				ev.Name = strings.TrimPrefix(line, "event: ")
			}
			if strings.HasPrefix(line, "data: ") {
				if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev.Data); err != nil {
					t.Fatalf("bad SSE data %q: %v", line, err)
				}
			}
		}
		out = append(out, ev)
	}
	return out
}

func TestChatStreamsAndPersists(t *testing.T) {
	db := newTestDB(t)
	workspace, user := seedWorkspaceUser(t, db)
	seedChatAgent(t, db, workspace.ID)

	usage := provider.Usage{PromptTokens: 7, CompletionTokens: 5, TotalTokens: 12}
	stub := &stubStream{events: []provider.StreamEvent{
		{Type: provider.StreamThinking, Content: "planning"},
		{Type: provider.StreamToken, Content: "Sure, "},
		{Type: provider.StreamToken, Content: "done."},
		{Type: provider.StreamDone, Content: "Sure, done.", Usage: &usage},
	}}
	initChatTest(t, db, stub)

	c, rec := newAuthedContext(t, "POST", "/api/chat", `{"message":"help me"}`, workspace, user, "admin")
	if err := Chat(c); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	events := sseEvents(t, rec.Body.String())
	if len(events) == 0 || events[0].Name != "session" {
		t.Fatalf("first event = %+v, want session", events)
	}
	var text string
	var sawReasoning, sawDone bool
	for _, ev := range events {
		switch ev.Name {
		case "text":
			text += ev.Data["content"].(string)
		case "reasoning":
			sawReasoning = true
		case "done":
			sawDone = true
			if got := ev.Data["total_tokens"].(float64); got != 12 {
				t.Errorf("total_tokens = %v", got)
			}
		case "error":
			t.Errorf("unexpected error event: %v", ev.Data)
		}
	}
	if text != "Sure, done." {
		t.Errorf("streamed text = %q", text)
	}
	if !sawReasoning || !sawDone {
		t.Errorf("missing events: reasoning=%v done=%v", sawReasoning, sawDone)
	}

	// Both turns persisted, assistant message carries usage.
	var messages []model.Message
	if err := db.Order("id asc").Find(&messages).Error; err != nil {
		t.Fatalf("load messages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(messages))
	}
	if messages[0].Role != "user" || messages[0].Content != "help me" {
		t.Errorf("user message = %+v", messages[0])
	}
	if messages[1].Role != "assistant" || messages[1].Content != "Sure, done." {
		t.Errorf("assistant message = %+v", messages[1])
	}
	if messages[1].CompletionTokens != 5 {
		t.Errorf("completion tokens = %d", messages[1].CompletionTokens)
	}

	// The provider saw system prompt + user message.
	if stub.gotReq == nil {
		t.Fatal("provider never called")
	}
	if stub.gotReq.Messages[0].Role != "system" {
		t.Errorf("first provider message role = %q", stub.gotReq.Messages[0].Role)
	}
	last := stub.gotReq.Messages[len(stub.gotReq.Messages)-1]
	if last.Role != "user" || last.Content != "help me" {
		t.Errorf("last provider message = %+v", last)
	}
}

func TestChatToolEventsForwarded(t *testing.T) {
	db := newTestDB(t)
	workspace, user := seedWorkspaceUser(t, db)
	seedChatAgent(t, db, workspace.ID)

	stub := &stubStream{events: []provider.StreamEvent{
		{Type: provider.StreamToolStart, Tool: "finance_summary", ToolID: "call_1"},
		{Type: provider.StreamToolEnd, Tool: "finance_summary", ToolID: "call_1", Content: "Net: 600"},
		{Type: provider.StreamDone, Content: ""},
	}}
	initChatTest(t, db, stub)

	c, rec := newAuthedContext(t, "POST", "/api/chat", `{"message":"summarize"}`, workspace, user, "member")
	if err := Chat(c); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	var sawStart, sawResult bool
	for _, ev := range sseEvents(t, rec.Body.String()) {
		switch ev.Name {
		case "tool_start":
			sawStart = true
			if ev.Data["tool"] != "finance_summary" {
				t.Errorf("tool_start data = %v", ev.Data)
			}
		case "tool_result":
			sawResult = true
			if ev.Data["content"] != "Net: 600" {
				t.Errorf("tool_result data = %v", ev.Data)
			}
		}
	}
	if !sawStart || !sawResult {
		t.Errorf("tool events missing: start=%v result=%v", sawStart, sawResult)
	}
}

func TestChatReusesConversation(t *testing.T) {
	db := newTestDB(t)
	workspace, user := seedWorkspaceUser(t, db)
	agent := seedChatAgent(t, db, workspace.ID)

	conversation := model.Conversation{Ref: "fixed-ref", WorkspaceID: workspace.ID, AgentID: agent.ID, UserID: user.ID, Title: "earlier"}
	if err := db.Create(&conversation).Error; err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	db.Create(&model.Message{ConversationID: conversation.ID, Role: "user", Content: "first question"})
	db.Create(&model.Message{ConversationID: conversation.ID, Role: "assistant", Content: "first answer"})

	stub := &stubStream{events: []provider.StreamEvent{
		{Type: provider.StreamDone, Content: "ok"},
	}}
	initChatTest(t, db, stub)

	body := `{"message":"follow up","conversation_id":` + jsonUint(conversation.ID) + `}`
	c, rec := newAuthedContext(t, "POST", "/api/chat", body, workspace, user, "member")
	if err := Chat(c); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	events := sseEvents(t, rec.Body.String())
	if events[0].Data["conversation"] != "fixed-ref" {
		t.Errorf("session event = %v", events[0].Data)
	}

	// History was replayed to the provider before the new message.
	var contents []string
	for _, m := range stub.gotReq.Messages {
		contents = append(contents, m.Content)
	}
	joined := strings.Join(contents, "|")
	if !strings.Contains(joined, "first question") || !strings.Contains(joined, "first answer") {
		t.Errorf("history missing from provider request: %v", contents)
	}

	var count int64
	db.Model(&model.Conversation{}).Count(&count)
	if count != 1 {
		t.Errorf("conversations = %d, want 1 (no new conversation)", count)
	}
}

func TestChatErrorsBeforeStreamAreJSON(t *testing.T) {
	db := newTestDB(t)
	workspace, user := seedWorkspaceUser(t, db)
	// No agent in the workspace.
	initChatTest(t, db, &stubStream{})

	c, rec := newAuthedContext(t, "POST", "/api/chat", `{"message":"hello"}`, workspace, user, "member")
	if err := Chat(c); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if rec.Code != 404 {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Errorf("content type = %q, want JSON error", ct)
	}
}

func TestChatEmptyMessageRejected(t *testing.T) {
	db := newTestDB(t)
	workspace, user := seedWorkspaceUser(t, db)
	seedChatAgent(t, db, workspace.ID)
	initChatTest(t, db, &stubStream{})

	c, rec := newAuthedContext(t, "POST", "/api/chat", `{"message":""}`, workspace, user, "member")
	if err := Chat(c); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if rec.Code != 400 {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestChatProviderFailureBecomesErrorEvent(t *testing.T) {
	db := newTestDB(t)
	workspace, user := seedWorkspaceUser(t, db)
	seedChatAgent(t, db, workspace.ID)
	initChatTest(t, db, &stubStream{err: context.DeadlineExceeded})

	c, rec := newAuthedContext(t, "POST", "/api/chat", `{"message":"hello"}`, workspace, user, "member")
	if err := Chat(c); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	// Headers were already sent, so the failure arrives as an SSE event.
	if rec.Code != 200 {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	events := sseEvents(t, rec.Body.String())
	last := events[len(events)-1]
	if last.Name != "error" {
		t.Errorf("last event = %+v, want error", last)
	}
}

func TestChatRejectsForeignAgent(t *testing.T) {
	db := newTestDB(t)
	workspace, user := seedWorkspaceUser(t, db)
	seedChatAgent(t, db, workspace.ID)
	foreign := seedChatAgent(t, db, workspace.ID+99)
	initChatTest(t, db, &stubStream{})

	body := `{"message":"hello","agent_id":` + jsonUint(foreign.ID) + `}`
	c, rec := newAuthedContext(t, "POST", "/api/chat", body, workspace, user, "member")
	if err := Chat(c); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if rec.Code != 404 {
		t.Errorf("status = %d, want 404 for an agent from another workspace", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Errorf("content type = %q, want JSON error", ct)
	}
}

func TestChatPrefersDeploymentDefaultAgent(t *testing.T) {
	db := newTestDB(t)
	workspace, user := seedWorkspaceUser(t, db)
	// Legacy agent that would win without a deployment.
	seedChatAgent(t, db, workspace.ID)

	deployment := model.Deployment{
		Ref:         "dep-ref",
		WorkspaceID: workspace.ID,
		TeamID:      1,
		Status:      model.DeploymentActive,
	}
	if err := db.Create(&deployment).Error; err != nil {
		t.Fatalf("seed deployment: %v", err)
	}
	sidekick := model.Agent{WorkspaceID: workspace.ID, DeploymentID: &deployment.ID, Name: "Sidekick", Provider: "stub", Active: true}
	lead := model.Agent{WorkspaceID: workspace.ID, DeploymentID: &deployment.ID, Name: "Lead", Provider: "stub", Active: true, IsDefault: true}
	for _, a := range []*model.Agent{&sidekick, &lead} {
		if err := db.Create(a).Error; err != nil {
			t.Fatalf("seed deployment agent: %v", err)
		}
	}

	stub := &stubStream{events: []provider.StreamEvent{
		{Type: provider.StreamDone, Content: "ok"},
	}}
	initChatTest(t, db, stub)

	c, rec := newAuthedContext(t, "POST", "/api/chat", `{"message":"hello"}`, workspace, user, "member")
	if err := Chat(c); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	events := sseEvents(t, rec.Body.String())
	if len(events) == 0 || events[0].Name != "session" {
		t.Fatalf("first event = %+v, want session", events)
	}
	if got := events[0].Data["agent_id"].(float64); got != float64(lead.ID) {
		t.Errorf("agent_id = %v, want the deployment's default agent %d", got, lead.ID)
	}
	if events[0].Data["agent"] != "Lead" {
		t.Errorf("agent = %v", events[0].Data["agent"])
	}
}

func TestChatTitleKeepsRunesIntact(t *testing.T) {
	db := newTestDB(t)
	workspace, user := seedWorkspaceUser(t, db)
	seedChatAgent(t, db, workspace.ID)
	initChatTest(t, db, &stubStream{events: []provider.StreamEvent{
		{Type: provider.StreamDone, Content: "ok"},
	}})

	// The 80th byte lands inside the two-byte rune.
	message := strings.Repeat("a", 79) + "é tail"
	body, _ := json.Marshal(map[string]string{"message": message})
	c, _ := newAuthedContext(t, "POST", "/api/chat", string(body), workspace, user, "member")
	if err := Chat(c); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	var conversation model.Conversation
	if err := db.First(&conversation).Error; err != nil {
		t.Fatalf("load conversation: %v", err)
	}
	if !utf8.ValidString(conversation.Title) {
		t.Errorf("title is invalid UTF-8: %q", conversation.Title)
	}
	if len(conversation.Title) > 80 {
		t.Errorf("title is %d bytes", len(conversation.Title))
	}
	if conversation.Title != strings.Repeat("a", 79) {
		t.Errorf("title = %q", conversation.Title)
	}
}

func TestTruncateTitle(t *testing.T) {
	long := strings.Repeat("x", 200)
	cases := []struct {
		in   string
		want string
	}{
		{"short", "short"},
		{long, long[:80]},
		{strings.Repeat("a", 79) + "日本", strings.Repeat("a", 79)},
		{strings.Repeat("あ", 40), strings.Repeat("あ", 26)}, // 3 bytes each
	}
	for _, tc := range cases {
		got := truncateTitle(tc.in)
		if got != tc.want {
			t.Errorf("truncateTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncateTitle(%q) produced invalid UTF-8", tc.in)
		}
	}
}

func jsonUint(v uint) string {
	data, _ := json.Marshal(v)
	return string(data)
}
