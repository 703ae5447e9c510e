package models

import (
	"time"

	"github.com/google/uuid"
)

// SaleCancellation reverses a sale. At most one may exist per sale, enforced
// by the unique index on sale_id.
type SaleCancellation struct {
	ID            uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SaleID        uuid.UUID     `gorm:"column:sale_id;type:uuid;not null;uniqueIndex:ux_sale_cancellations_sale"`
	Sale          *Sale         `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	Reason        string        `gorm:"column:reason;not null"`
	RestoredUnits []ProductUnit `gorm:"many2many:sale_cancellation_units"`
	CreatedAt     time.Time     `gorm:"column:created_at;autoCreateTime"`
}
