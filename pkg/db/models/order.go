package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Mnabil10/fasket-backend/pkg/enums"
)

// Order is the read-only snapshot of an order owned by the main application.
// Settlement never mutates orders; it only consumes delivered ones.
type Order struct {
	ID                   uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ProviderID           *uuid.UUID          `gorm:"column:provider_id;type:uuid"`
	Status               enums.OrderStatus   `gorm:"column:status;type:order_status_enum;not null"`
	SubtotalCents        int                 `gorm:"column:subtotal_cents;not null"`
	ShippingFeeCents     int                 `gorm:"column:shipping_fee_cents;not null;default:0"`
	ServiceFeeCents      int                 `gorm:"column:service_fee_cents;not null;default:0"`
	DiscountCents        int                 `gorm:"column:discount_cents;not null;default:0"`
	LoyaltyDiscountCents int                 `gorm:"column:loyalty_discount_cents;not null;default:0"`
	TotalCents           int                 `gorm:"column:total_cents;not null"`
	PaymentMethod        enums.PaymentMethod `gorm:"column:payment_method;type:payment_method_enum;not null"`
	DeliveredAt          *time.Time          `gorm:"column:delivered_at"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	LineItems []OrderLineItem `gorm:"foreignKey:OrderID"`
}
