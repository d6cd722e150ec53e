package model

import (
	"time"

	"gorm.io/gorm"
)

// FinanceAccount is a money account tracked per workspace
type FinanceAccount struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	WorkspaceID uint           `json:"workspace_id" gorm:"index;not null"`
	Name        string         `json:"name" gorm:"type:varchar(100);not null"`
	Currency    string         `json:"currency" gorm:"type:varchar(3);default:'USD'"`
	Active      bool           `json:"active" gorm:"default:true"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// FinanceCategory groups transactions for reporting
type FinanceCategory struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	WorkspaceID uint           `json:"workspace_id" gorm:"index;not null"`
	Name        string         `json:"name" gorm:"type:varchar(100);not null"`
	Kind        string         `json:"kind" gorm:"type:varchar(10);default:'expense'"` // income | expense
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// Transaction is a single money movement
type Transaction struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	WorkspaceID uint           `json:"workspace_id" gorm:"index;not null"`
	AccountID   uint           `json:"account_id" gorm:"index;not null"`
	CategoryID  *uint          `json:"category_id,omitempty" gorm:"index"`
	Amount      float64        `json:"amount" gorm:"not null"`
	Currency    string         `json:"currency" gorm:"type:varchar(3);default:'USD'"`
	Description string         `json:"description" gorm:"type:text"`
	OccurredAt  time.Time      `json:"occurred_at" gorm:"index"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}
