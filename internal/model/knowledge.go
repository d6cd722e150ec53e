package model

import (
	"time"

	"gorm.io/gorm"
)

// KnowledgeCategory groups knowledge base pages
type KnowledgeCategory struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	WorkspaceID uint           `json:"workspace_id" gorm:"index;not null"`
	Name        string         `json:"name" gorm:"type:varchar(100);not null"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// KnowledgePage is a knowledge base article. Pinned pages are injected
// into agent system prompts as business context.
type KnowledgePage struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	WorkspaceID uint           `json:"workspace_id" gorm:"index;not null"`
	CategoryID  *uint          `json:"category_id,omitempty" gorm:"index"`
	Title       string         `json:"title" gorm:"type:varchar(255);not null"`
	Body        string         `json:"body" gorm:"type:text"`
	Tags        string         `json:"tags" gorm:"type:varchar(255)"`
	Pinned      bool           `json:"pinned" gorm:"default:false"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}
