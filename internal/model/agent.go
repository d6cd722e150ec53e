package model

import (
	"time"

	"gorm.io/gorm"
)

// Agent is a configured assistant living in a workspace. Agents cloned
// from a team template carry the DeploymentID of the deployment that
// created them; legacy single agents have a nil DeploymentID.
type Agent struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	WorkspaceID  uint           `json:"workspace_id" gorm:"index;not null"`
	DeploymentID *uint          `json:"deployment_id,omitempty" gorm:"index"`
	Name         string         `json:"name" gorm:"type:varchar(100);not null"`
	Role         string         `json:"role" gorm:"type:varchar(100)"`
	Persona      string         `json:"persona" gorm:"type:text"`
	Provider     string         `json:"provider" gorm:"type:varchar(50);default:'openai'"`
	Model        string         `json:"model" gorm:"type:varchar(100)"`
	Tools        string         `json:"tools" gorm:"type:text;comment:'Comma-separated tool names this agent may call'"`
	CanDelegate  bool           `json:"can_delegate" gorm:"default:false"`
	IsDefault    bool           `json:"is_default" gorm:"default:false"`
	Active       bool           `json:"active" gorm:"default:true"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// AgentRule is a behavioral rule appended to the agent's system prompt
type AgentRule struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	AgentID   uint           `json:"agent_id" gorm:"index;not null"`
	Content   string         `json:"content" gorm:"type:text;not null"`
	Position  int            `json:"position" gorm:"default:0"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// AgentSkill describes a capability the agent advertises in its prompt
type AgentSkill struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	AgentID     uint           `json:"agent_id" gorm:"index;not null"`
	Name        string         `json:"name" gorm:"type:varchar(100);not null"`
	Description string         `json:"description" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// AgentMemory is a persisted fact the agent recalls in every conversation
type AgentMemory struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	AgentID   uint           `json:"agent_id" gorm:"index;not null"`
	Content   string         `json:"content" gorm:"type:text;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
