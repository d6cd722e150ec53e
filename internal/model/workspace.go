package model

import (
	"time"

	"gorm.io/gorm"
)

// Workspace represents the tenant boundary. Every business row carries
// a workspace_id and every API request is scoped to one workspace.
type Workspace struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	Name            string         `json:"name" gorm:"type:varchar(100);uniqueIndex"`
	Description     string         `json:"description" gorm:"type:text"`
	OwnerID         uint           `json:"owner_id" gorm:"index;not null"`
	Active          bool           `json:"active" gorm:"default:true"`
	BusinessContext string         `json:"business_context" gorm:"type:text;comment:'Free-form business description fed into agent prompts'"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
}

// WorkspaceMember maps users to workspaces with a role
type WorkspaceMember struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	UserID      uint           `json:"user_id" gorm:"index:idx_member_user_workspace,unique;not null"`
	WorkspaceID uint           `json:"workspace_id" gorm:"index:idx_member_user_workspace,unique;not null"`
	Role        string         `json:"role" gorm:"type:varchar(20);default:'member'"` // admin | member
	Active      bool           `json:"active" gorm:"default:true"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}
