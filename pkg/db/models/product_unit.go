package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vosmiarka/warehouse-backend/pkg/enums"
)

// ProductUnit is one physical inventory item and the single source of truth
// for its lifecycle state. Units are never deleted, only transitioned.
type ProductUnit struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SerialNumber   string           `gorm:"column:serial_number;not null;uniqueIndex:ux_product_units_serial"`
	ProductID      uuid.UUID        `gorm:"column:product_id;type:uuid;not null"`
	Product        *Product         `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT"`
	RequestItemID  *uuid.UUID       `gorm:"column:request_item_id;type:uuid"`
	RequestItem    *RequestItem     `gorm:"foreignKey:RequestItemID;constraint:OnDelete:SET NULL"`
	DeliveryItemID *uuid.UUID       `gorm:"column:delivery_item_id;type:uuid"`
	DeliveryItem   *DeliveryItem    `gorm:"foreignKey:DeliveryItemID;constraint:OnDelete:SET NULL"`
	Status         enums.UnitStatus `gorm:"column:status;type:text;not null;default:'in_request'"`
	SoldAt         *time.Time       `gorm:"column:sold_at"`
	SalePrice      *decimal.Decimal `gorm:"column:sale_price;type:decimal(10,2)"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
