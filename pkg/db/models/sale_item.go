package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleItem binds exactly one unit to a sale at its actual price.
type SaleItem struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SaleID        uuid.UUID       `gorm:"column:sale_id;type:uuid;not null"`
	ProductUnitID uuid.UUID       `gorm:"column:product_unit_id;type:uuid;not null"`
	ProductUnit   *ProductUnit    `gorm:"foreignKey:ProductUnitID;constraint:OnDelete:RESTRICT"`
	ActualPrice   decimal.Decimal `gorm:"column:actual_price;type:decimal(10,2);not null"`
	Cancelled     bool            `gorm:"column:cancelled;not null;default:false"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
