package models

import (
	"time"

	"github.com/google/uuid"
)

// Supplier is the counterparty on deliveries.
type Supplier struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string    `gorm:"column:name;not null"`
	ContactPerson string    `gorm:"column:contact_person;not null"`
	Phone         string    `gorm:"column:phone;not null"`
	Notes         *string   `gorm:"column:notes"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
