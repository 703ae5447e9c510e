package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestItem is one requested product line. Customer-order lines
// pre-materialize their units in status in_request.
type RequestItem struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RequestID        uuid.UUID       `gorm:"column:request_id;type:uuid;not null"`
	ProductID        uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Product          *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT"`
	QuantityOrdered  int             `gorm:"column:quantity_ordered;not null"`
	PricePerUnit     decimal.Decimal `gorm:"column:price_per_unit;type:decimal(10,2);not null"`
	IsCustomerOrder  bool            `gorm:"column:is_customer_order;not null;default:false"`
	CustomerID       *uuid.UUID      `gorm:"column:customer_id;type:uuid"`
	Customer         *Customer       `gorm:"foreignKey:CustomerID;constraint:OnDelete:SET NULL"`
	SupplierID       *uuid.UUID      `gorm:"column:supplier_id;type:uuid"`
	Supplier         *Supplier       `gorm:"foreignKey:SupplierID;constraint:OnDelete:SET NULL"`
	QuantityReceived int             `gorm:"column:quantity_received;not null;default:0"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
