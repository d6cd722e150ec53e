package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/dtj0108/dreamteam/internal/middleware"
	"github.com/dtj0108/dreamteam/internal/model"
	"github.com/dtj0108/dreamteam/internal/prompt"
	"github.com/dtj0108/dreamteam/internal/provider"
	"github.com/dtj0108/dreamteam/pkg/database"
	"github.com/dtj0108/dreamteam/pkg/logger"
	"github.com/dtj0108/dreamteam/prometheus"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// chatHistoryLimit bounds how many prior turns are replayed to the provider.
const chatHistoryLimit = 40

// maxTitleBytes caps new-conversation titles derived from the first message.
const maxTitleBytes = 80

var (
	providerFactory *provider.Factory
	promptBuilder   *prompt.Builder
)

// InitChatHandler wires the provider factory and prompt builder used by
// the chat endpoint.
func InitChatHandler(f *provider.Factory, b *prompt.Builder) {
	providerFactory = f
	promptBuilder = b
}

// ChatRequest is the chat endpoint's request body
type ChatRequest struct {
	Message        string `json:"message"`
	AgentID        *uint  `json:"agent_id,omitempty"`
	ConversationID *uint  `json:"conversation_id,omitempty"`
}

// Chat handles POST /api/chat: it resolves the target agent, assembles the
// system prompt, streams tokens from the LLM provider, and re-emits them as
// named SSE events (session, text, reasoning, tool_start, tool_result,
// done, error). Errors before the stream starts return a JSON body; errors
// after are delivered as an `error` event.
func Chat(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse chat request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "message is required"})
	}

	agent, err := resolveAgent(workspaceID, req.AgentID)
	if err != nil {
		log.Warn("No agent available", zap.Error(err))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no agent available"})
	}

	conversation, err := resolveConversation(workspaceID, claims.UserID, agent, req)
	if err != nil {
		log.Error("Failed to resolve conversation", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to resolve conversation"})
	}

	systemPrompt, err := promptBuilder.BuildSystemPrompt(agent)
	if err != nil {
		log.Error("Failed to build system prompt", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to build prompt"})
	}

	p, err := providerFactory.Get(agent.Provider)
	if err != nil {
		log.Error("Provider unavailable", zap.String("provider", agent.Provider), zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": fmt.Sprintf("provider %s unavailable", agent.Provider)})
	}

	messages, err := buildMessages(conversation.ID, systemPrompt, req.Message)
	if err != nil {
		log.Error("Failed to load history", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load history"})
	}

	// Persist the user message before streaming starts.
	userMsg := model.Message{ConversationID: conversation.ID, Role: "user", Content: req.Message}
	if result := database.GetDB().Create(&userMsg); result.Error != nil {
		log.Error("Failed to persist user message", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to persist message"})
	}

	// From here on errors go out as SSE events.
	prometheus.ChatStreamsStarted.Inc()
	start := time.Now()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	writeSSE(c, "session", echo.Map{
		"conversation_id": conversation.ID,
		"conversation":    conversation.Ref,
		"agent_id":        agent.ID,
		"agent":           agent.Name,
	})

	ctx := c.Request().Context()
	events := make(chan provider.StreamEvent, 16)
	errCh := make(chan error, 1)

	go func() {
		if sp, ok := p.(provider.StreamingProvider); ok {
			errCh <- sp.ChatStream(ctx, provider.ChatRequest{Messages: messages, Model: agent.Model}, events)
			return
		}
		// Non-streaming provider: one-shot completion emitted as a single
		// token plus done event.
		defer close(events)
		resp, err := p.Chat(ctx, provider.ChatRequest{Messages: messages, Model: agent.Model})
		if err != nil {
			errCh <- err
			return
		}
		events <- provider.StreamEvent{Type: provider.StreamToken, Content: resp.Content}
		events <- provider.StreamEvent{Type: provider.StreamDone, Content: resp.Content, ToolCalls: resp.ToolCalls, Usage: &resp.Usage}
		errCh <- nil
	}()

	var final *provider.StreamEvent
	for ev := range events {
		switch ev.Type {
		case provider.StreamToken:
			writeSSE(c, "text", echo.Map{"content": ev.Content})
		case provider.StreamThinking:
			writeSSE(c, "reasoning", echo.Map{"content": ev.Content})
		case provider.StreamToolStart:
			writeSSE(c, "tool_start", echo.Map{"tool": ev.Tool, "tool_id": ev.ToolID})
		case provider.StreamToolEnd:
			writeSSE(c, "tool_result", echo.Map{"tool": ev.Tool, "tool_id": ev.ToolID, "content": ev.Content})
		case provider.StreamDone:
			done := ev
			final = &done
		}
	}

	if err := <-errCh; err != nil {
		prometheus.ChatStreamsCompleted.WithLabelValues("error").Inc()
		log.Error("Chat stream failed",
			zap.String("provider", p.Name()),
			zap.Uint("agent_id", agent.ID),
			zap.Error(err))
		writeSSE(c, "error", echo.Map{"error": err.Error()})
		return nil
	}

	if final == nil {
		final = &provider.StreamEvent{Type: provider.StreamDone}
	}

	var usage provider.Usage
	if final.Usage != nil {
		usage = *final.Usage
	}
	prometheus.RecordTokens(p.Name(), usage.PromptTokens, usage.CompletionTokens)

	persistAssistantMessage(log, conversation.ID, final.Content, usage)
	database.GetDB().Model(&model.Conversation{}).Where("id = ?", conversation.ID).
		Update("updated_at", time.Now())

	writeSSE(c, "done", echo.Map{
		"content":           final.Content,
		"prompt_tokens":     usage.PromptTokens,
		"completion_tokens": usage.CompletionTokens,
		"total_tokens":      usage.TotalTokens,
	})

	prometheus.ChatStreamsCompleted.WithLabelValues("ok").Inc()
	prometheus.ChatStreamDuration.Observe(time.Since(start).Seconds())
	return nil
}

// resolveAgent picks the target agent: an explicit agent_id must belong to
// the workspace; otherwise the active deployment's default agent wins, then
// any active agent (the legacy single-agent path).
func resolveAgent(workspaceID uint, agentID *uint) (*model.Agent, error) {
	db := database.GetDB()

	if agentID != nil {
		var agent model.Agent
		if err := db.Where("id = ? AND workspace_id = ? AND active = ?", *agentID, workspaceID, true).
			First(&agent).Error; err != nil {
			return nil, fmt.Errorf("agent %d: %w", *agentID, err)
		}
		return &agent, nil
	}

	var deployment model.Deployment
	err := db.Where("workspace_id = ? AND status = ?", workspaceID, model.DeploymentActive).
		First(&deployment).Error
	if err == nil {
		var agent model.Agent
		if err := db.Where("deployment_id = ? AND is_default = ? AND active = ?", deployment.ID, true, true).
			First(&agent).Error; err == nil {
			return &agent, nil
		}
		if err := db.Where("deployment_id = ? AND active = ?", deployment.ID, true).
			Order("id asc").First(&agent).Error; err == nil {
			return &agent, nil
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var agent model.Agent
	if err := db.Where("workspace_id = ? AND active = ?", workspaceID, true).
		Order("id asc").First(&agent).Error; err != nil {
		return nil, fmt.Errorf("no active agent in workspace %d: %w", workspaceID, err)
	}
	return &agent, nil
}

// resolveConversation loads the requested conversation or starts a new one.
func resolveConversation(workspaceID, userID uint, agent *model.Agent, req ChatRequest) (*model.Conversation, error) {
	db := database.GetDB()

	if req.ConversationID != nil {
		var conversation model.Conversation
		if err := db.Where("id = ? AND workspace_id = ?", *req.ConversationID, workspaceID).
			First(&conversation).Error; err != nil {
			return nil, fmt.Errorf("conversation %d: %w", *req.ConversationID, err)
		}
		return &conversation, nil
	}

	title := truncateTitle(req.Message)
	conversation := model.Conversation{
		Ref:         uuid.New().String(),
		WorkspaceID: workspaceID,
		AgentID:     agent.ID,
		UserID:      userID,
		Title:       title,
	}
	if err := db.Create(&conversation).Error; err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return &conversation, nil
}

// truncateTitle caps the title without splitting a multi-byte rune.
func truncateTitle(s string) string {
	if len(s) <= maxTitleBytes {
		return s
	}
	cut := maxTitleBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// buildMessages assembles the provider message list: system prompt, recent
// history, then the new user message.
func buildMessages(conversationID uint, systemPrompt, userMessage string) ([]provider.Message, error) {
	var history []model.Message
	if err := database.GetDB().Where("conversation_id = ?", conversationID).
		Order("id desc").Limit(chatHistoryLimit).Find(&history).Error; err != nil {
		return nil, err
	}

	messages := make([]provider.Message, 0, len(history)+2)
	messages = append(messages, provider.Message{Role: "system", Content: systemPrompt})
	for i := len(history) - 1; i >= 0; i-- {
		messages = append(messages, provider.Message{Role: history[i].Role, Content: history[i].Content})
	}
	messages = append(messages, provider.Message{Role: "user", Content: userMessage})
	return messages, nil
}

// persistAssistantMessage stores the final assistant message with one
// best-effort retry on failure.
func persistAssistantMessage(log *zap.Logger, conversationID uint, content string, usage provider.Usage) {
	msg := model.Message{
		ConversationID:   conversationID,
		Role:             "assistant",
		Content:          content,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
	}
	if err := database.GetDB().Create(&msg).Error; err != nil {
		log.Warn("Failed to persist assistant message, retrying", zap.Error(err))
		time.Sleep(100 * time.Millisecond)
		msg.ID = 0
		if err := database.GetDB().Create(&msg).Error; err != nil {
			log.Error("Failed to persist assistant message", zap.Error(err))
		}
	}
}

// writeSSE emits one named SSE event and flushes it to the client.
func writeSSE(c echo.Context, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Response(), "event: %s\ndata: %s\n\n", event, data)
	c.Response().Flush()
}
