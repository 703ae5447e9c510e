package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeliveryItem is one received product line. Received units point back at it
// through ProductUnit.DeliveryItemID.
type DeliveryItem struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DeliveryID       uuid.UUID       `gorm:"column:delivery_id;type:uuid;not null"`
	ProductID        uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Product          *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT"`
	QuantityReceived int             `gorm:"column:quantity_received;not null"`
	PricePerUnit     decimal.Decimal `gorm:"column:price_per_unit;type:decimal(10,2);not null"`
	RequestItemID    *uuid.UUID      `gorm:"column:request_item_id;type:uuid"`
	RequestItem      *RequestItem    `gorm:"foreignKey:RequestItemID;constraint:OnDelete:SET NULL"`
	Notes            *string         `gorm:"column:notes"`
	ReceivedUnits    []ProductUnit   `gorm:"foreignKey:DeliveryItemID"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
