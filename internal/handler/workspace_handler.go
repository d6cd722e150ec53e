package handler

import (
	"net/http"
	"strconv"

	"github.com/dtj0108/dreamteam/internal/middleware"
	"github.com/dtj0108/dreamteam/internal/model"
	"github.com/dtj0108/dreamteam/pkg/database"
	"github.com/dtj0108/dreamteam/pkg/jwtutil"
	"github.com/dtj0108/dreamteam/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CreateWorkspace handles workspace creation; the creator becomes an admin
// member and gets the workspace as their default when they have none.
func CreateWorkspace(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, ok := c.Get("user").(*jwtutil.UserClaims)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		Name            string `json:"name"`
		Description     string `json:"description"`
		BusinessContext string `json:"business_context"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse workspace creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	workspace := model.Workspace{
		Name:            req.Name,
		Description:     req.Description,
		BusinessContext: req.BusinessContext,
		OwnerID:         claims.UserID,
		Active:          true,
	}
	if result := database.GetDB().Create(&workspace); result.Error != nil {
		log.Error("Failed to create workspace", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "workspace creation failed"})
	}

	member := model.WorkspaceMember{
		UserID:      claims.UserID,
		WorkspaceID: workspace.ID,
		Role:        "admin",
		Active:      true,
	}
	if result := database.GetDB().Create(&member); result.Error != nil {
		log.Error("Failed to create workspace membership", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "workspace creation failed"})
	}

	// Set as default workspace if the user has none
	database.GetDB().Model(&model.User{}).
		Where("id = ? AND workspace_id IS NULL", claims.UserID).
		Update("workspace_id", workspace.ID)

	log.Info("Workspace created",
		zap.String("name", workspace.Name),
		zap.Uint("id", workspace.ID),
		zap.Uint("owner_id", workspace.OwnerID))

	return c.JSON(http.StatusCreated, echo.Map{
		"message":   "Workspace created successfully",
		"workspace": workspace,
	})
}

// ListWorkspaces returns the workspaces the user is a member of
func ListWorkspaces(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, ok := c.Get("user").(*jwtutil.UserClaims)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var memberships []model.WorkspaceMember
	if result := database.GetDB().Where("user_id = ? AND active = ?", claims.UserID, true).
		Find(&memberships); result.Error != nil {
		log.Error("Failed to list memberships", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve workspaces"})
	}

	ids := make([]uint, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.WorkspaceID)
	}

	var workspaces []model.Workspace
	if len(ids) > 0 {
		if result := database.GetDB().Where("id IN ?", ids).Find(&workspaces); result.Error != nil {
			log.Error("Failed to list workspaces", zap.Error(result.Error))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve workspaces"})
		}
	}

	return c.JSON(http.StatusOK, workspaces)
}

// GetWorkspace returns the current workspace from the token
func GetWorkspace(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var workspace model.Workspace
	if result := database.GetDB().First(&workspace, workspaceID); result.Error != nil {
		log.Error("Workspace not found", zap.Uint("workspace_id", workspaceID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "workspace not found"})
	}

	return c.JSON(http.StatusOK, workspace)
}

// UpdateWorkspace updates workspace fields; admins only
func UpdateWorkspace(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}
	if claims.Role != "admin" {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admin role required"})
	}

	var workspace model.Workspace
	if result := database.GetDB().First(&workspace, workspaceID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "workspace not found"})
	}

	var req struct {
		Name            *string `json:"name"`
		Description     *string `json:"description"`
		BusinessContext *string `json:"business_context"`
		Active          *bool   `json:"active"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse workspace update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Name != nil {
		workspace.Name = *req.Name
	}
	if req.Description != nil {
		workspace.Description = *req.Description
	}
	if req.BusinessContext != nil {
		workspace.BusinessContext = *req.BusinessContext
	}
	if req.Active != nil {
		workspace.Active = *req.Active
	}

	if result := database.GetDB().Save(&workspace); result.Error != nil {
		log.Error("Failed to update workspace", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "workspace update failed"})
	}

	log.Info("Workspace updated", zap.Uint("workspace_id", workspace.ID))
	return c.JSON(http.StatusOK, workspace)
}

// ListMembers returns the workspace's members
func ListMembers(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var members []model.WorkspaceMember
	if result := database.GetDB().Where("workspace_id = ?", workspaceID).Find(&members); result.Error != nil {
		log.Error("Failed to list members", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve members"})
	}

	return c.JSON(http.StatusOK, members)
}

// AddMember adds a user to the workspace; admins only
func AddMember(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}
	if claims.Role != "admin" {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admin role required"})
	}

	var req struct {
		UserID uint   `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id is required"})
	}
	if req.Role == "" {
		req.Role = "member"
	}

	var count int64
	database.GetDB().Model(&model.WorkspaceMember{}).
		Where("user_id = ? AND workspace_id = ?", req.UserID, workspaceID).Count(&count)
	if count > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "user is already a member"})
	}

	member := model.WorkspaceMember{
		UserID:      req.UserID,
		WorkspaceID: workspaceID,
		Role:        req.Role,
		Active:      true,
	}
	if result := database.GetDB().Create(&member); result.Error != nil {
		log.Error("Failed to add member", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to add member"})
	}

	log.Info("Member added",
		zap.Uint("workspace_id", workspaceID),
		zap.Uint("user_id", req.UserID),
		zap.String("role", req.Role))
	return c.JSON(http.StatusCreated, member)
}

// RemoveMember removes a user from the workspace; admins only
func RemoveMember(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}
	if claims.Role != "admin" {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admin role required"})
	}

	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	result := database.GetDB().
		Where("user_id = ? AND workspace_id = ?", uint(userID), workspaceID).
		Delete(&model.WorkspaceMember{})
	if result.Error != nil {
		log.Error("Failed to remove member", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to remove member"})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "member not found"})
	}

	log.Info("Member removed", zap.Uint("workspace_id", workspaceID), zap.Uint64("user_id", userID))
	return c.JSON(http.StatusOK, echo.Map{"message": "member removed successfully"})
}
