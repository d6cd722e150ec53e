package deploy

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dtj0108/dreamteam/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNoActiveDeployment is returned by Rollback when the workspace has
	// no active deployment.
	ErrNoActiveDeployment = errors.New("no active deployment")
	// ErrTeamEmpty is returned by Deploy when the team has no template agents.
	ErrTeamEmpty = errors.New("team has no agents")
)

// Deployer clones team templates into workspaces with staged activation.
// A deployment starts in "staging" while agents are cloned, then flips to
// "active" in the same transaction that supersedes the previous deployment.
type Deployer struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewDeployer(db *gorm.DB, logger *zap.Logger) *Deployer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deployer{db: db, logger: logger}
}

// Deploy snapshots the team's template agents into the workspace and
// activates the result. On clone failure the deployment row is kept with
// status "failed" and any partially cloned agents are removed.
func (d *Deployer) Deploy(teamID, workspaceID, deployedBy uint) (*model.Deployment, error) {
	var team model.Team
	if err := d.db.First(&team, teamID).Error; err != nil {
		return nil, fmt.Errorf("load team: %w", err)
	}

	var templates []model.TeamAgent
	if err := d.db.Where("team_id = ?", teamID).Order("id asc").Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("load team agents: %w", err)
	}
	if len(templates) == 0 {
		return nil, ErrTeamEmpty
	}

	deployment := &model.Deployment{
		Ref:         uuid.New().String(),
		WorkspaceID: workspaceID,
		TeamID:      team.ID,
		TeamName:    team.Name,
		Status:      model.DeploymentStaging,
		DeployedBy:  deployedBy,
	}
	if err := d.db.Create(deployment).Error; err != nil {
		return nil, fmt.Errorf("create deployment: %w", err)
	}

	if err := d.clone(deployment, templates); err != nil {
		d.markFailed(deployment)
		return nil, fmt.Errorf("clone team %q: %w", team.Name, err)
	}

	if err := d.activate(deployment); err != nil {
		d.markFailed(deployment)
		return nil, fmt.Errorf("activate deployment: %w", err)
	}

	d.logger.Info("team deployed",
		zap.String("ref", deployment.Ref),
		zap.String("team", team.Name),
		zap.Uint("workspace_id", workspaceID),
		zap.Int("agents", deployment.AgentCount),
	)
	return deployment, nil
}

// clone copies every template agent into the workspace, splitting the
// template's rule and skill blocks into their own rows.
func (d *Deployer) clone(deployment *model.Deployment, templates []model.TeamAgent) error {
	err := d.db.Transaction(func(tx *gorm.DB) error {
		for _, t := range templates {
			agent := model.Agent{
				WorkspaceID:  deployment.WorkspaceID,
				DeploymentID: &deployment.ID,
				Name:         t.Name,
				Role:         t.Role,
				Persona:      t.Persona,
				Provider:     t.Provider,
				Model:        t.Model,
				Tools:        t.Tools,
				CanDelegate:  t.CanDelegate,
				IsDefault:    t.IsDefault,
				Active:       false, // stays inactive until activation
			}
			if err := tx.Create(&agent).Error; err != nil {
				return fmt.Errorf("clone agent %q: %w", t.Name, err)
			}

			for i, line := range splitBlock(t.Rules) {
				rule := model.AgentRule{AgentID: agent.ID, Content: line, Position: i}
				if err := tx.Create(&rule).Error; err != nil {
					return fmt.Errorf("clone rule for %q: %w", t.Name, err)
				}
			}

			for _, line := range splitBlock(t.Skills) {
				name, desc := splitSkill(line)
				skill := model.AgentSkill{AgentID: agent.ID, Name: name, Description: desc}
				if err := tx.Create(&skill).Error; err != nil {
					return fmt.Errorf("clone skill for %q: %w", t.Name, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	deployment.AgentCount = len(templates)
	return d.db.Model(deployment).Update("agent_count", deployment.AgentCount).Error
}

// activate supersedes the previous active deployment (if any), deactivates
// its agents, and switches the new deployment's agents on. All in one
// transaction so a workspace never observes two active deployments.
func (d *Deployer) activate(deployment *model.Deployment) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		var previous model.Deployment
		err := tx.Where("workspace_id = ? AND status = ?", deployment.WorkspaceID, model.DeploymentActive).
			First(&previous).Error
		if err == nil {
			if err := tx.Model(&previous).Update("status", model.DeploymentSuperseded).Error; err != nil {
				return fmt.Errorf("supersede deployment %s: %w", previous.Ref, err)
			}
			if err := tx.Model(&model.Agent{}).
				Where("deployment_id = ?", previous.ID).
				Update("active", false).Error; err != nil {
				return fmt.Errorf("deactivate agents of %s: %w", previous.Ref, err)
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("find active deployment: %w", err)
		}

		now := time.Now()
		if err := tx.Model(deployment).Updates(map[string]interface{}{
			"status":       model.DeploymentActive,
			"activated_at": now,
		}).Error; err != nil {
			return fmt.Errorf("mark active: %w", err)
		}
		deployment.Status = model.DeploymentActive
		deployment.ActivatedAt = &now

		if err := tx.Model(&model.Agent{}).
			Where("deployment_id = ?", deployment.ID).
			Update("active", true).Error; err != nil {
			return fmt.Errorf("activate agents: %w", err)
		}
		return nil
	})
}

// Rollback deactivates the workspace's active deployment and reactivates
// the most recently superseded one, if any.
func (d *Deployer) Rollback(workspaceID uint) (*model.Deployment, error) {
	var restored *model.Deployment

	err := d.db.Transaction(func(tx *gorm.DB) error {
		var current model.Deployment
		if err := tx.Where("workspace_id = ? AND status = ?", workspaceID, model.DeploymentActive).
			First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoActiveDeployment
			}
			return fmt.Errorf("find active deployment: %w", err)
		}

		if err := tx.Model(&current).Update("status", model.DeploymentRolledBack).Error; err != nil {
			return fmt.Errorf("mark rolled back: %w", err)
		}
		if err := tx.Model(&model.Agent{}).
			Where("deployment_id = ?", current.ID).
			Update("active", false).Error; err != nil {
			return fmt.Errorf("deactivate agents: %w", err)
		}

		var previous model.Deployment
		err := tx.Where("workspace_id = ? AND status = ?", workspaceID, model.DeploymentSuperseded).
			Order("updated_at desc").First(&previous).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil // nothing to restore, workspace is left without a deployment
		}
		if err != nil {
			return fmt.Errorf("find previous deployment: %w", err)
		}

		if err := tx.Model(&previous).Update("status", model.DeploymentActive).Error; err != nil {
			return fmt.Errorf("restore deployment %s: %w", previous.Ref, err)
		}
		if err := tx.Model(&model.Agent{}).
			Where("deployment_id = ?", previous.ID).
			Update("active", true).Error; err != nil {
			return fmt.Errorf("reactivate agents of %s: %w", previous.Ref, err)
		}
		previous.Status = model.DeploymentActive
		restored = &previous
		return nil
	})
	if err != nil {
		return nil, err
	}

	if restored != nil {
		d.logger.Info("deployment rolled back",
			zap.Uint("workspace_id", workspaceID),
			zap.String("restored_ref", restored.Ref),
		)
	} else {
		d.logger.Info("deployment rolled back, no previous deployment to restore",
			zap.Uint("workspace_id", workspaceID),
		)
	}
	return restored, nil
}

// markFailed flags the deployment and removes any partially cloned agents.
// Best effort: a failure here only leaves inactive rows behind.
func (d *Deployer) markFailed(deployment *model.Deployment) {
	if err := d.db.Model(deployment).Update("status", model.DeploymentFailed).Error; err != nil {
		d.logger.Error("failed to mark deployment failed", zap.String("ref", deployment.Ref), zap.Error(err))
	}
	var agentIDs []uint
	if err := d.db.Model(&model.Agent{}).Where("deployment_id = ?", deployment.ID).
		Pluck("id", &agentIDs).Error; err == nil && len(agentIDs) > 0 {
		d.db.Where("agent_id IN ?", agentIDs).Delete(&model.AgentRule{})
		d.db.Where("agent_id IN ?", agentIDs).Delete(&model.AgentSkill{})
		d.db.Where("deployment_id = ?", deployment.ID).Delete(&model.Agent{})
	}
}

// splitBlock splits a newline-separated template block into trimmed,
// non-empty lines.
func splitBlock(block string) []string {
	var out []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// splitSkill parses "name: description" lines; lines without a colon are
// a bare skill name.
func splitSkill(line string) (string, string) {
	if idx := strings.Index(line, ":"); idx > 0 {
		return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:])
	}
	return line, ""
}
