package handler

import (
	"net/http"
	"strconv"

	"github.com/dtj0108/dreamteam/internal/middleware"
	"github.com/dtj0108/dreamteam/internal/model"
	"github.com/dtj0108/dreamteam/pkg/database"
	"github.com/dtj0108/dreamteam/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const defaultMessagePageSize = 50

// ListConversations returns the workspace's conversations, newest first
func ListConversations(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	query := database.GetDB().Where("workspace_id = ?", workspaceID)
	if agentID := c.QueryParam("agent_id"); agentID != "" {
		query = query.Where("agent_id = ?", agentID)
	}

	var conversations []model.Conversation
	if result := query.Order("updated_at desc").Find(&conversations); result.Error != nil {
		log.Error("Failed to list conversations", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve conversations"})
	}

	return c.JSON(http.StatusOK, conversations)
}

// GetConversation returns one conversation
func GetConversation(c echo.Context) error {
	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var conversation model.Conversation
	if result := database.GetDB().
		Where("id = ? AND workspace_id = ?", c.Param("id"), workspaceID).
		First(&conversation); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "conversation not found"})
	}

	return c.JSON(http.StatusOK, conversation)
}

// ListMessages returns a conversation's messages, oldest first, paginated
// via limit/offset query parameters.
func ListMessages(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var conversation model.Conversation
	if result := database.GetDB().
		Where("id = ? AND workspace_id = ?", c.Param("id"), workspaceID).
		First(&conversation); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "conversation not found"})
	}

	limit := defaultMessagePageSize
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	offset := 0
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v > 0 {
		offset = v
	}

	var messages []model.Message
	if result := database.GetDB().Where("conversation_id = ?", conversation.ID).
		Order("id asc").Limit(limit).Offset(offset).Find(&messages); result.Error != nil {
		log.Error("Failed to list messages", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve messages"})
	}

	return c.JSON(http.StatusOK, messages)
}

// DeleteConversation deletes a conversation and its messages (soft delete)
func DeleteConversation(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var conversation model.Conversation
	if result := database.GetDB().
		Where("id = ? AND workspace_id = ?", c.Param("id"), workspaceID).
		First(&conversation); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "conversation not found"})
	}

	database.GetDB().Where("conversation_id = ?", conversation.ID).Delete(&model.Message{})
	if result := database.GetDB().Delete(&conversation); result.Error != nil {
		log.Error("Failed to delete conversation", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete conversation"})
	}

	log.Info("Conversation deleted", zap.Uint("conversation_id", conversation.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "conversation deleted successfully"})
}
