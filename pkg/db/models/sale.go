package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vosmiarka/warehouse-backend/pkg/enums"
)

// Sale is a disposal document. TotalAmount is derived from the non-cancelled
// items and recomputed by the sales service.
type Sale struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID    *uuid.UUID      `gorm:"column:customer_id;type:uuid"`
	Customer      *Customer       `gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT"`
	SaleType      enums.SaleType  `gorm:"column:sale_type;type:text;not null;default:'regular'"`
	RequestItemID *uuid.UUID      `gorm:"column:request_item_id;type:uuid"`
	RequestItem   *RequestItem    `gorm:"foreignKey:RequestItemID;constraint:OnDelete:SET NULL"`
	TotalAmount   decimal.Decimal `gorm:"column:total_amount;type:decimal(12,2);not null;default:0"`
	Notes         *string         `gorm:"column:notes"`
	Items         []SaleItem      `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
