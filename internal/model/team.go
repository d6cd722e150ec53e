package model

import (
	"time"

	"gorm.io/gorm"
)

// Team is a reusable agent-team template. Templates are global: deploying
// one clones its agents into a workspace.
type Team struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Name        string         `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Description string         `json:"description" gorm:"type:text"`
	Active      bool           `json:"active" gorm:"default:true"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// TeamAgent is a template agent belonging to a team. Rules and skills are
// stored as newline-separated blocks; they are split into AgentRule and
// AgentSkill rows when the team is deployed.
type TeamAgent struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	TeamID      uint           `json:"team_id" gorm:"index;not null"`
	Name        string         `json:"name" gorm:"type:varchar(100);not null"`
	Role        string         `json:"role" gorm:"type:varchar(100)"`
	Persona     string         `json:"persona" gorm:"type:text"`
	Provider    string         `json:"provider" gorm:"type:varchar(50);default:'openai'"`
	Model       string         `json:"model" gorm:"type:varchar(100)"`
	Tools       string         `json:"tools" gorm:"type:text"`
	Rules       string         `json:"rules" gorm:"type:text"`
	Skills      string         `json:"skills" gorm:"type:text"`
	CanDelegate bool           `json:"can_delegate" gorm:"default:false"`
	IsDefault   bool           `json:"is_default" gorm:"default:false"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// Deployment lifecycle statuses
const (
	DeploymentStaging    = "staging"
	DeploymentActive     = "active"
	DeploymentSuperseded = "superseded"
	DeploymentRolledBack = "rolled_back"
	DeploymentFailed     = "failed"
)

// Deployment is a snapshot of a team template cloned into a workspace.
// At most one deployment per workspace is active at a time.
type Deployment struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Ref         string         `json:"ref" gorm:"type:varchar(36);uniqueIndex;not null"`
	WorkspaceID uint           `json:"workspace_id" gorm:"index;not null"`
	TeamID      uint           `json:"team_id" gorm:"index;not null"`
	TeamName    string         `json:"team_name" gorm:"type:varchar(100)"`
	Status      string         `json:"status" gorm:"type:varchar(20);index;default:'staging'"`
	AgentCount  int            `json:"agent_count" gorm:"default:0"`
	DeployedBy  uint           `json:"deployed_by"`
	ActivatedAt *time.Time     `json:"activated_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}
