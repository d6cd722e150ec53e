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
)

const minScheduleInterval = 60

// ScheduleRequest is the request body for creating or updating a schedule
type ScheduleRequest struct {
	Name            string `json:"name"`
	AgentID         uint   `json:"agent_id"`
	Prompt          string `json:"prompt"`
	IntervalSeconds int    `json:"interval_seconds"`
	Active          *bool  `json:"active,omitempty"`
}

// ListSchedules returns every schedule in the workspace
func ListSchedules(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var schedules []model.Schedule
	if result := database.GetDB().Where("workspace_id = ?", workspaceID).
		Order("id asc").Find(&schedules); result.Error != nil {
		log.Error("Failed to list schedules", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list schedules"})
	}

	return c.JSON(http.StatusOK, echo.Map{"schedules": schedules})
}

// CreateSchedule registers a new recurring agent run
func CreateSchedule(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var req ScheduleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" || req.Prompt == "" || req.AgentID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, agent_id and prompt are required"})
	}
	if req.IntervalSeconds < minScheduleInterval {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "interval_seconds must be at least 60"})
	}

	// The agent must belong to the same workspace.
	var agent model.Agent
	if err := database.GetDB().Where("id = ? AND workspace_id = ?", req.AgentID, workspaceID).
		First(&agent).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
	}

	schedule := model.Schedule{
		WorkspaceID:     workspaceID,
		AgentID:         req.AgentID,
		Name:            req.Name,
		Prompt:          req.Prompt,
		IntervalSeconds: req.IntervalSeconds,
		Active:          true,
		NextRunAt:       time.Now().Add(time.Duration(req.IntervalSeconds) * time.Second),
	}
	if req.Active != nil {
		schedule.Active = *req.Active
	}

	if result := database.GetDB().Create(&schedule); result.Error != nil {
		log.Error("Failed to create schedule", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create schedule"})
	}

	log.Info("Schedule created",
		zap.Uint("schedule_id", schedule.ID),
		zap.Uint("agent_id", schedule.AgentID),
		zap.Int("interval_seconds", schedule.IntervalSeconds))

	return c.JSON(http.StatusCreated, schedule)
}

// UpdateSchedule changes a schedule's prompt, interval or active flag
func UpdateSchedule(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var schedule model.Schedule
	if err := database.GetDB().Where("id = ? AND workspace_id = ?", c.Param("id"), workspaceID).
		First(&schedule).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "schedule not found"})
	}

	var req ScheduleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Name != "" {
		schedule.Name = req.Name
	}
	if req.Prompt != "" {
		schedule.Prompt = req.Prompt
	}
	if req.IntervalSeconds > 0 {
		if req.IntervalSeconds < minScheduleInterval {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "interval_seconds must be at least 60"})
		}
		schedule.IntervalSeconds = req.IntervalSeconds
		schedule.NextRunAt = time.Now().Add(time.Duration(req.IntervalSeconds) * time.Second)
	}
	if req.Active != nil {
		schedule.Active = *req.Active
	}

	if result := database.GetDB().Save(&schedule); result.Error != nil {
		log.Error("Failed to update schedule", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update schedule"})
	}

	return c.JSON(http.StatusOK, schedule)
}

// DeleteSchedule removes a schedule
func DeleteSchedule(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	result := database.GetDB().Where("id = ? AND workspace_id = ?", c.Param("id"), workspaceID).
		Delete(&model.Schedule{})
	if result.Error != nil {
		log.Error("Failed to delete schedule", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete schedule"})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "schedule not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "schedule deleted"})
}
