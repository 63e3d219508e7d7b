package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLineItem is one line of an order snapshot. CategoryID is nullable:
// uncategorized lines fall back to the base commission config.
type OrderLineItem struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	CategoryID     *uuid.UUID `gorm:"column:category_id;type:uuid"`
	Qty            int        `gorm:"column:qty;not null"`
	UnitPriceCents int        `gorm:"column:unit_price_cents;not null"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// SubtotalCents is the undiscounted line total.
func (i OrderLineItem) SubtotalCents() int {
	return i.Qty * i.UnitPriceCents
}
