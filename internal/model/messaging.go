package model

import (
	"time"

	"gorm.io/gorm"
)

// Channel is a team messaging channel within a workspace
type Channel struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	WorkspaceID uint           `json:"workspace_id" gorm:"index;not null"`
	Name        string         `json:"name" gorm:"type:varchar(100);not null"`
	Topic       string         `json:"topic" gorm:"type:varchar(255)"`
	CreatedBy   uint           `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// ChannelMessage is a message posted to a channel by a user or an agent
type ChannelMessage struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	ChannelID  uint           `json:"channel_id" gorm:"index;not null"`
	SenderID   uint           `json:"sender_id" gorm:"index"`
	SenderType string         `json:"sender_type" gorm:"type:varchar(10);default:'user'"` // user | agent
	Content    string         `json:"content" gorm:"type:text;not null"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}
