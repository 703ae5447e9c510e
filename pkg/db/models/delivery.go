package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Delivery is a supplier receipt document. TotalAmount is derived from the
// items and recomputed on every item mutation, never edited directly.
type Delivery struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SupplierID   uuid.UUID       `gorm:"column:supplier_id;type:uuid;not null"`
	Supplier     *Supplier       `gorm:"foreignKey:SupplierID;constraint:OnDelete:RESTRICT"`
	DeliveryDate time.Time       `gorm:"column:delivery_date;not null"`
	TotalAmount  decimal.Decimal `gorm:"column:total_amount;type:decimal(12,2);not null;default:0"`
	Notes        *string         `gorm:"column:notes"`
	Items        []DeliveryItem  `gorm:"foreignKey:DeliveryID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
