package model

import (
	"time"

	"gorm.io/gorm"
)

// Conversation is a chat thread between a user and an agent
type Conversation struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Ref         string         `json:"ref" gorm:"type:varchar(36);uniqueIndex;not null"`
	WorkspaceID uint           `json:"workspace_id" gorm:"index;not null"`
	AgentID     uint           `json:"agent_id" gorm:"index;not null"`
	UserID      uint           `json:"user_id" gorm:"index"`
	Title       string         `json:"title" gorm:"type:varchar(255)"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// Message is a single conversation turn
type Message struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	ConversationID   uint           `json:"conversation_id" gorm:"index;not null"`
	Role             string         `json:"role" gorm:"type:varchar(20);not null"` // user | assistant | tool
	Content          string         `json:"content" gorm:"type:text"`
	PromptTokens     int            `json:"prompt_tokens" gorm:"default:0"`
	CompletionTokens int            `json:"completion_tokens" gorm:"default:0"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`
}
