package models

import (
	"time"

	"github.com/google/uuid"
)

// Request is a demand document: a customer order or a stock replenishment.
type Request struct {
	ID          uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	IsCompleted bool          `gorm:"column:is_completed;not null;default:false"`
	Notes       *string       `gorm:"column:notes"`
	Items       []RequestItem `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}
