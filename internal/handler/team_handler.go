package handler

import (
	"net/http"

	"github.com/dtj0108/dreamteam/internal/deploy"
	"github.com/dtj0108/dreamteam/internal/model"
	"github.com/dtj0108/dreamteam/pkg/database"
	"github.com/dtj0108/dreamteam/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TeamAgentRequest defines a template agent in team requests
type TeamAgentRequest struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Persona     string `json:"persona"`
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	Tools       string `json:"tools"`
	Rules       string `json:"rules"`
	Skills      string `json:"skills"`
	CanDelegate bool   `json:"can_delegate"`
	IsDefault   bool   `json:"is_default"`
}

// ListTeams returns all team templates
func ListTeams(c echo.Context) error {
	log := logger.FromEcho(c)

	query := database.GetDB()
	if c.QueryParam("active") == "true" {
		query = query.Where("active = ?", true)
	}

	var teams []model.Team
	if result := query.Find(&teams); result.Error != nil {
		log.Error("Failed to list teams", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve teams"})
	}
	return c.JSON(http.StatusOK, teams)
}

// GetTeam returns one team with its template agents
func GetTeam(c echo.Context) error {
	log := logger.FromEcho(c)

	var team model.Team
	if result := database.GetDB().First(&team, c.Param("id")); result.Error != nil {
		log.Warn("Team not found", zap.String("team_id", c.Param("id")))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "team not found"})
	}

	var agents []model.TeamAgent
	database.GetDB().Where("team_id = ?", team.ID).Order("id asc").Find(&agents)

	return c.JSON(http.StatusOK, echo.Map{
		"team":   team,
		"agents": agents,
	})
}

// CreateTeam creates a team template with its agents
func CreateTeam(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		Name        string             `json:"name"`
		Description string             `json:"description"`
		Agents      []TeamAgentRequest `json:"agents"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	var count int64
	database.GetDB().Model(&model.Team{}).Where("name = ?", req.Name).Count(&count)
	if count > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "team with this name already exists"})
	}

	team := model.Team{Name: req.Name, Description: req.Description, Active: true}
	if result := database.GetDB().Create(&team); result.Error != nil {
		log.Error("Failed to create team", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create team"})
	}

	for _, a := range req.Agents {
		agent := model.TeamAgent{
			TeamID:      team.ID,
			Name:        a.Name,
			Role:        a.Role,
			Persona:     a.Persona,
			Provider:    a.Provider,
			Model:       a.Model,
			Tools:       a.Tools,
			Rules:       a.Rules,
			Skills:      a.Skills,
			CanDelegate: a.CanDelegate,
			IsDefault:   a.IsDefault,
		}
		if result := database.GetDB().Create(&agent); result.Error != nil {
			log.Error("Failed to create team agent", zap.String("name", a.Name), zap.Error(result.Error))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create team agent"})
		}
	}

	log.Info("Team created", zap.Uint("team_id", team.ID), zap.String("name", team.Name),
		zap.Int("agents", len(req.Agents)))
	return c.JSON(http.StatusCreated, team)
}

// UpdateTeam updates a team template's fields
func UpdateTeam(c echo.Context) error {
	log := logger.FromEcho(c)

	var team model.Team
	if result := database.GetDB().First(&team, c.Param("id")); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "team not found"})
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Active      *bool   `json:"active"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	if req.Name != nil {
		team.Name = *req.Name
	}
	if req.Description != nil {
		team.Description = *req.Description
	}
	if req.Active != nil {
		team.Active = *req.Active
	}

	if result := database.GetDB().Save(&team); result.Error != nil {
		log.Error("Failed to update team", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update team"})
	}

	log.Info("Team updated", zap.Uint("team_id", team.ID))
	return c.JSON(http.StatusOK, team)
}

// DeleteTeam deletes a team template and its agents (soft delete)
func DeleteTeam(c echo.Context) error {
	log := logger.FromEcho(c)

	var team model.Team
	if result := database.GetDB().First(&team, c.Param("id")); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "team not found"})
	}

	database.GetDB().Where("team_id = ?", team.ID).Delete(&model.TeamAgent{})
	if result := database.GetDB().Delete(&team); result.Error != nil {
		log.Error("Failed to delete team", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete team"})
	}

	log.Info("Team deleted", zap.Uint("team_id", team.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "team deleted successfully"})
}

// ImportTeam creates a team template from an uploaded YAML definition
func ImportTeam(c echo.Context) error {
	log := logger.FromEcho(c)

	tpl, err := deploy.ParseTemplate(c.Request().Body)
	if err != nil {
		log.Warn("Invalid team template", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	team, err := deploy.ImportTemplate(database.GetDB(), tpl)
	if err != nil {
		log.Error("Failed to import team template", zap.Error(err))
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}

	log.Info("Team imported", zap.Uint("team_id", team.ID), zap.String("name", team.Name))
	return c.JSON(http.StatusCreated, team)
}
