package handler

import (
	"net/http"

	"github.com/dtj0108/dreamteam/internal/middleware"
	"github.com/dtj0108/dreamteam/internal/model"
	"github.com/dtj0108/dreamteam/pkg/database"
	"github.com/dtj0108/dreamteam/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PageRequest is the request body for knowledge page operations
type PageRequest struct {
	Title      string `json:"title"`
	Body       string `json:"body,omitempty"`
	Tags       string `json:"tags,omitempty"`
	CategoryID *uint  `json:"category_id,omitempty"`
	Pinned     *bool  `json:"pinned,omitempty"`
}

// ListKnowledgeCategories returns the workspace's knowledge categories
func ListKnowledgeCategories(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var categories []model.KnowledgeCategory
	if result := database.GetDB().Where("workspace_id = ?", workspaceID).
		Order("id asc").Find(&categories); result.Error != nil {
		log.Error("Failed to list knowledge categories", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list categories"})
	}

	return c.JSON(http.StatusOK, echo.Map{"categories": categories})
}

// CreateKnowledgeCategory adds a knowledge category
func CreateKnowledgeCategory(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	category := model.KnowledgeCategory{WorkspaceID: workspaceID, Name: req.Name}
	if result := database.GetDB().Create(&category); result.Error != nil {
		log.Error("Failed to create knowledge category", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create category"})
	}

	return c.JSON(http.StatusCreated, category)
}

// ListPages returns knowledge pages, optionally filtered by category or
// pinned flag
func ListPages(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	query := database.GetDB().Where("workspace_id = ?", workspaceID)
	if categoryID := c.QueryParam("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if c.QueryParam("pinned") == "true" {
		query = query.Where("pinned = ?", true)
	}

	var pages []model.KnowledgePage
	if result := query.Order("updated_at desc").Find(&pages); result.Error != nil {
		log.Error("Failed to list pages", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list pages"})
	}

	return c.JSON(http.StatusOK, echo.Map{"pages": pages})
}

// GetPage returns one knowledge page
func GetPage(c echo.Context) error {
	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var page model.KnowledgePage
	if err := database.GetDB().Where("id = ? AND workspace_id = ?", c.Param("id"), workspaceID).
		First(&page).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "page not found"})
	}

	return c.JSON(http.StatusOK, page)
}

// CreatePage adds a knowledge page
func CreatePage(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var req PageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}

	page := model.KnowledgePage{
		WorkspaceID: workspaceID,
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Body:        req.Body,
		Tags:        req.Tags,
	}
	if req.Pinned != nil {
		page.Pinned = *req.Pinned
	}

	if result := database.GetDB().Create(&page); result.Error != nil {
		log.Error("Failed to create page", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create page"})
	}

	log.Info("Knowledge page created", zap.Uint("page_id", page.ID), zap.String("title", page.Title))
	return c.JSON(http.StatusCreated, page)
}

// UpdatePage changes a page's title, body, tags, category or pinned flag
func UpdatePage(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var page model.KnowledgePage
	if err := database.GetDB().Where("id = ? AND workspace_id = ?", c.Param("id"), workspaceID).
		First(&page).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "page not found"})
	}

	var req PageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Title != "" {
		page.Title = req.Title
	}
	if req.Body != "" {
		page.Body = req.Body
	}
	if req.Tags != "" {
		page.Tags = req.Tags
	}
	if req.CategoryID != nil {
		page.CategoryID = req.CategoryID
	}
	if req.Pinned != nil {
		page.Pinned = *req.Pinned
	}

	if result := database.GetDB().Save(&page); result.Error != nil {
		log.Error("Failed to update page", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update page"})
	}

	return c.JSON(http.StatusOK, page)
}

// DeletePage removes a knowledge page
func DeletePage(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	result := database.GetDB().Where("id = ? AND workspace_id = ?", c.Param("id"), workspaceID).
		Delete(&model.KnowledgePage{})
	if result.Error != nil {
		log.Error("Failed to delete page", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete page"})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "page not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "page deleted"})
}
