package handler

import (
	"errors"
	"net/http"

	"github.com/dtj0108/dreamteam/internal/deploy"
	"github.com/dtj0108/dreamteam/internal/middleware"
	"github.com/dtj0108/dreamteam/internal/model"
	"github.com/dtj0108/dreamteam/pkg/database"
	"github.com/dtj0108/dreamteam/pkg/logger"
	"github.com/dtj0108/dreamteam/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var deployer *deploy.Deployer

// InitDeploymentHandler wires the deployer used by the deployment endpoints.
func InitDeploymentHandler(d *deploy.Deployer) {
	deployer = d
}

// ListDeployments returns the workspace's deployment history
func ListDeployments(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var deployments []model.Deployment
	if result := database.GetDB().Where("workspace_id = ?", workspaceID).
		Order("created_at desc").Find(&deployments); result.Error != nil {
		log.Error("Failed to list deployments", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve deployments"})
	}

	return c.JSON(http.StatusOK, deployments)
}

// DeployTeam clones a team template into the workspace and activates it
func DeployTeam(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}
	if claims.Role != "admin" {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admin role required"})
	}

	var req struct {
		TeamID uint `json:"team_id"`
	}
	if err := c.Bind(&req); err != nil || req.TeamID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "team_id is required"})
	}

	deployment, err := deployer.Deploy(req.TeamID, workspaceID, claims.UserID)
	if err != nil {
		prometheus.RecordDeployment(model.DeploymentFailed)
		if errors.Is(err, deploy.ErrTeamEmpty) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "team has no agents"})
		}
		log.Error("Deployment failed",
			zap.Uint("team_id", req.TeamID),
			zap.Uint("workspace_id", workspaceID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "deployment failed"})
	}

	prometheus.RecordDeployment(deployment.Status)
	log.Info("Team deployed",
		zap.String("ref", deployment.Ref),
		zap.Uint("team_id", req.TeamID),
		zap.Int("agents", deployment.AgentCount))
	return c.JSON(http.StatusCreated, deployment)
}

// RollbackDeployment reverts the workspace to its previous deployment
func RollbackDeployment(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}
	if claims.Role != "admin" {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admin role required"})
	}

	restored, err := deployer.Rollback(workspaceID)
	if err != nil {
		if errors.Is(err, deploy.ErrNoActiveDeployment) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no active deployment"})
		}
		log.Error("Rollback failed", zap.Uint("workspace_id", workspaceID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rollback failed"})
	}

	prometheus.RecordDeployment(model.DeploymentRolledBack)
	if restored == nil {
		return c.JSON(http.StatusOK, echo.Map{"message": "deployment rolled back, no previous deployment to restore"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":  "deployment rolled back",
		"restored": restored,
	})
}
