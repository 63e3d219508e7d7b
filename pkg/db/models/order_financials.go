package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Mnabil10/fasket-backend/pkg/enums"
)

// OrderFinancials is the immutable settlement snapshot for one delivered order.
// The unique order_id constraint is the idempotency guard for concurrent
// settlement attempts. Only released_at is ever updated after insert.
type OrderFinancials struct {
	ID                          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID                     uuid.UUID      `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_order_financials_order_id"`
	ProviderID                  uuid.UUID      `gorm:"column:provider_id;type:uuid;not null;index"`
	Currency                    enums.Currency `gorm:"column:currency;not null"`
	SubtotalCents               int            `gorm:"column:subtotal_cents;not null"`
	DeliveryFeeCents            int            `gorm:"column:delivery_fee_cents;not null;default:0"`
	ServiceFeeCents             int            `gorm:"column:service_fee_cents;not null;default:0"`
	DiscountCents               int            `gorm:"column:discount_cents;not null;default:0"`
	GatewayFeeCents             int            `gorm:"column:gateway_fee_cents;not null;default:0"`
	CommissionCents             int            `gorm:"column:commission_cents;not null;default:0"`
	CommissionEligibleBaseCents int            `gorm:"column:commission_eligible_base_cents;not null;default:0"`
	VendorNetCents              int            `gorm:"column:vendor_net_cents;not null;default:0"`
	PlatformRevenueCents        int            `gorm:"column:platform_revenue_cents;not null;default:0"`
	HoldUntil                   *time.Time     `gorm:"column:hold_until"`
	ReleasedAt                  *time.Time     `gorm:"column:released_at"`
	SettledAt                   time.Time      `gorm:"column:settled_at;not null"`
	Metadata                    json.RawMessage `gorm:"column:metadata;type:jsonb"`
	CreatedAt                   time.Time      `gorm:"column:created_at;autoCreateTime"`
}

// TableName keeps the plural-irregular table name explicit.
func (OrderFinancials) TableName() string {
	return "order_financials"
}
