package model

import (
	"time"

	"gorm.io/gorm"
)

// Schedule runs a stored prompt against an agent at a fixed interval
type Schedule struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	WorkspaceID     uint           `json:"workspace_id" gorm:"index;not null"`
	AgentID         uint           `json:"agent_id" gorm:"index;not null"`
	Name            string         `json:"name" gorm:"type:varchar(100);not null"`
	Prompt          string         `json:"prompt" gorm:"type:text;not null"`
	IntervalSeconds int            `json:"interval_seconds" gorm:"not null"`
	Active          bool           `json:"active" gorm:"default:true"`
	NextRunAt       time.Time      `json:"next_run_at" gorm:"index"`
	LastRunAt       *time.Time     `json:"last_run_at,omitempty"`
	LastError       string         `json:"last_error,omitempty" gorm:"type:text"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
}
