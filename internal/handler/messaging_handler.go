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

const defaultChannelPageSize = 50

// ChannelRequest is the request body for channel operations
type ChannelRequest struct {
	Name  string `json:"name"`
	Topic string `json:"topic,omitempty"`
}

// PostMessageRequest is the request body for posting to a channel
type PostMessageRequest struct {
	Content string `json:"content"`
}

// ListChannels returns the workspace's messaging channels
func ListChannels(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var channels []model.Channel
	if result := database.GetDB().Where("workspace_id = ?", workspaceID).
		Order("id asc").Find(&channels); result.Error != nil {
		log.Error("Failed to list channels", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list channels"})
	}

	return c.JSON(http.StatusOK, echo.Map{"channels": channels})
}

// CreateChannel adds a messaging channel to the workspace
func CreateChannel(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var req ChannelRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	var existing model.Channel
	if err := database.GetDB().Where("workspace_id = ? AND name = ?", workspaceID, req.Name).
		First(&existing).Error; err == nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "channel already exists"})
	}

	channel := model.Channel{
		WorkspaceID: workspaceID,
		Name:        req.Name,
		Topic:       req.Topic,
		CreatedBy:   claims.UserID,
	}
	if result := database.GetDB().Create(&channel); result.Error != nil {
		log.Error("Failed to create channel", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create channel"})
	}

	log.Info("Channel created", zap.Uint("channel_id", channel.ID), zap.String("name", channel.Name))
	return c.JSON(http.StatusCreated, channel)
}

// findWorkspaceChannel loads a channel and verifies it belongs to the
// caller's workspace
func findWorkspaceChannel(id string, workspaceID uint) (*model.Channel, error) {
	var channel model.Channel
	if err := database.GetDB().Where("id = ? AND workspace_id = ?", id, workspaceID).
		First(&channel).Error; err != nil {
		return nil, err
	}
	return &channel, nil
}

// ListChannelMessages returns a channel's messages, newest page first
func ListChannelMessages(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	channel, err := findWorkspaceChannel(c.Param("id"), workspaceID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "channel not found"})
	}

	limit := defaultChannelPageSize
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if raw := c.QueryParam("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}

	var messages []model.ChannelMessage
	if result := database.GetDB().Where("channel_id = ?", channel.ID).
		Order("id desc").Limit(limit).Offset(offset).Find(&messages); result.Error != nil {
		log.Error("Failed to list channel messages", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list messages"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"channel":  channel,
		"messages": messages,
	})
}

// PostChannelMessage posts a message to a channel as the calling user
func PostChannelMessage(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	channel, err := findWorkspaceChannel(c.Param("id"), workspaceID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "channel not found"})
	}

	var req PostMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "content is required"})
	}

	message := model.ChannelMessage{
		ChannelID:  channel.ID,
		SenderID:   claims.UserID,
		SenderType: "user",
		Content:    req.Content,
	}
	if result := database.GetDB().Create(&message); result.Error != nil {
		log.Error("Failed to post message", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to post message"})
	}

	return c.JSON(http.StatusCreated, message)
}

// DeleteChannel removes a channel and its messages
func DeleteChannel(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}
	if claims.Role != "admin" {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admin role required"})
	}

	channel, err := findWorkspaceChannel(c.Param("id"), workspaceID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "channel not found"})
	}

	db := database.GetDB()
	if err := db.Where("channel_id = ?", channel.ID).Delete(&model.ChannelMessage{}).Error; err != nil {
		log.Error("Failed to delete channel messages", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete channel"})
	}
	if err := db.Delete(channel).Error; err != nil {
		log.Error("Failed to delete channel", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete channel"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "channel deleted"})
}
