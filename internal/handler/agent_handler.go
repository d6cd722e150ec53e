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

// AgentRequest defines the structure for agent creation/update requests
type AgentRequest struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Persona     string `json:"persona"`
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	Tools       string `json:"tools"`
	CanDelegate bool   `json:"can_delegate"`
	IsDefault   bool   `json:"is_default"`
	Active      *bool  `json:"active"`
}

// findWorkspaceAgent loads an agent by path param and verifies it belongs
// to the caller's workspace.
func findWorkspaceAgent(c echo.Context, workspaceID uint) (*model.Agent, error) {
	var agent model.Agent
	result := database.GetDB().
		Where("id = ? AND workspace_id = ?", c.Param("id"), workspaceID).
		First(&agent)
	if result.Error != nil {
		return nil, result.Error
	}
	return &agent, nil
}

// ListAgents handles retrieving the workspace's agents
func ListAgents(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	query := database.GetDB().Where("workspace_id = ?", workspaceID)
	if c.QueryParam("active") == "true" {
		query = query.Where("active = ?", true)
	}

	var agents []model.Agent
	if result := query.Find(&agents); result.Error != nil {
		log.Error("Failed to list agents", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve agents"})
	}

	return c.JSON(http.StatusOK, agents)
}

// GetAgent handles retrieving a single agent by ID
func GetAgent(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	agent, err := findWorkspaceAgent(c, workspaceID)
	if err != nil {
		log.Warn("Agent not found", zap.String("agent_id", c.Param("id")))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
	}

	return c.JSON(http.StatusOK, agent)
}

// CreateAgent handles creating a new agent in the workspace
func CreateAgent(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	var req AgentRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	agent := model.Agent{
		WorkspaceID: workspaceID,
		Name:        req.Name,
		Role:        req.Role,
		Persona:     req.Persona,
		Provider:    req.Provider,
		Model:       req.Model,
		Tools:       req.Tools,
		CanDelegate: req.CanDelegate,
		IsDefault:   req.IsDefault,
		Active:      true,
	}
	if agent.Provider == "" {
		agent.Provider = "openai"
	}

	if result := database.GetDB().Create(&agent); result.Error != nil {
		log.Error("Failed to create agent", zap.String("name", req.Name), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create agent"})
	}

	log.Info("Agent created",
		zap.Uint("agent_id", agent.ID),
		zap.String("name", agent.Name),
		zap.String("provider", agent.Provider))
	return c.JSON(http.StatusCreated, agent)
}

// UpdateAgent handles updating an existing agent
func UpdateAgent(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	agent, err := findWorkspaceAgent(c, workspaceID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
	}

	var req AgentRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	if req.Name != "" {
		agent.Name = req.Name
	}
	agent.Role = req.Role
	agent.Persona = req.Persona
	if req.Provider != "" {
		agent.Provider = req.Provider
	}
	agent.Model = req.Model
	agent.Tools = req.Tools
	agent.CanDelegate = req.CanDelegate
	agent.IsDefault = req.IsDefault
	if req.Active != nil {
		agent.Active = *req.Active
	}

	if result := database.GetDB().Save(agent); result.Error != nil {
		log.Error("Failed to update agent", zap.Uint("agent_id", agent.ID), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update agent"})
	}

	log.Info("Agent updated", zap.Uint("agent_id", agent.ID), zap.String("name", agent.Name))
	return c.JSON(http.StatusOK, agent)
}

// DeleteAgent handles deleting an agent (soft delete)
func DeleteAgent(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}

	result := database.GetDB().
		Where("id = ? AND workspace_id = ?", c.Param("id"), workspaceID).
		Delete(&model.Agent{})
	if result.Error != nil {
		log.Error("Failed to delete agent", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete agent"})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
	}

	log.Info("Agent deleted", zap.String("agent_id", c.Param("id")))
	return c.JSON(http.StatusOK, echo.Map{"message": "agent deleted successfully"})
}

// ListAgentRules returns an agent's rules in prompt order
func ListAgentRules(c echo.Context) error {
	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}
	agent, err := findWorkspaceAgent(c, workspaceID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
	}

	var rules []model.AgentRule
	if result := database.GetDB().Where("agent_id = ?", agent.ID).
		Order("position asc, id asc").Find(&rules); result.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve rules"})
	}
	return c.JSON(http.StatusOK, rules)
}

// CreateAgentRule appends a rule to an agent
func CreateAgentRule(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}
	agent, err := findWorkspaceAgent(c, workspaceID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
	}

	var req struct {
		Content  string `json:"content"`
		Position int    `json:"position"`
	}
	if err := c.Bind(&req); err != nil || req.Content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "content is required"})
	}

	rule := model.AgentRule{AgentID: agent.ID, Content: req.Content, Position: req.Position}
	if result := database.GetDB().Create(&rule); result.Error != nil {
		log.Error("Failed to create rule", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create rule"})
	}

	log.Info("Agent rule created", zap.Uint("agent_id", agent.ID), zap.Uint("rule_id", rule.ID))
	return c.JSON(http.StatusCreated, rule)
}

// DeleteAgentRule removes a rule from an agent
func DeleteAgentRule(c echo.Context) error {
	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}
	agent, err := findWorkspaceAgent(c, workspaceID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
	}

	result := database.GetDB().
		Where("id = ? AND agent_id = ?", c.Param("rule_id"), agent.ID).
		Delete(&model.AgentRule{})
	if result.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete rule"})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "rule not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "rule deleted successfully"})
}

// ListAgentSkills returns an agent's skills
func ListAgentSkills(c echo.Context) error {
	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}
	agent, err := findWorkspaceAgent(c, workspaceID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
	}

	var skills []model.AgentSkill
	if result := database.GetDB().Where("agent_id = ?", agent.ID).Find(&skills); result.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve skills"})
	}
	return c.JSON(http.StatusOK, skills)
}

// CreateAgentSkill adds a skill to an agent
func CreateAgentSkill(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}
	agent, err := findWorkspaceAgent(c, workspaceID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	skill := model.AgentSkill{AgentID: agent.ID, Name: req.Name, Description: req.Description}
	if result := database.GetDB().Create(&skill); result.Error != nil {
		log.Error("Failed to create skill", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create skill"})
	}

	return c.JSON(http.StatusCreated, skill)
}

// DeleteAgentSkill removes a skill from an agent
func DeleteAgentSkill(c echo.Context) error {
	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}
	agent, err := findWorkspaceAgent(c, workspaceID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
	}

	result := database.GetDB().
		Where("id = ? AND agent_id = ?", c.Param("skill_id"), agent.ID).
		Delete(&model.AgentSkill{})
	if result.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete skill"})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "skill not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "skill deleted successfully"})
}

// ListAgentMemories returns an agent's memories
func ListAgentMemories(c echo.Context) error {
	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}
	agent, err := findWorkspaceAgent(c, workspaceID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
	}

	var memories []model.AgentMemory
	if result := database.GetDB().Where("agent_id = ?", agent.ID).Find(&memories); result.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve memories"})
	}
	return c.JSON(http.StatusOK, memories)
}

// CreateAgentMemory adds a memory to an agent
func CreateAgentMemory(c echo.Context) error {
	log := logger.FromEcho(c)

	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}
	agent, err := findWorkspaceAgent(c, workspaceID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.Bind(&req); err != nil || req.Content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "content is required"})
	}

	memory := model.AgentMemory{AgentID: agent.ID, Content: req.Content}
	if result := database.GetDB().Create(&memory); result.Error != nil {
		log.Error("Failed to create memory", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create memory"})
	}

	return c.JSON(http.StatusCreated, memory)
}

// DeleteAgentMemory removes a memory from an agent
func DeleteAgentMemory(c echo.Context) error {
	_, workspaceID, err := middleware.WorkspaceClaims(c)
	if err != nil {
		return err
	}
	agent, err := findWorkspaceAgent(c, workspaceID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
	}

	result := database.GetDB().
		Where("id = ? AND agent_id = ?", c.Param("memory_id"), agent.ID).
		Delete(&model.AgentMemory{})
	if result.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete memory"})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "memory not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "memory deleted successfully"})
}
