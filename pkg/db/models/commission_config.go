package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Mnabil10/fasket-backend/pkg/enums"
)

// CommissionConfig is a commission rule at one scope. At most one row exists
// per (scope, provider_id, category_id) tuple; narrower scopes override wider
// ones at resolution time.
type CommissionConfig struct {
	ID                   uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Scope                enums.CommissionScope `gorm:"column:scope;type:commission_scope_enum;not null;uniqueIndex:idx_commission_scope_tuple"`
	ProviderID           *uuid.UUID            `gorm:"column:provider_id;type:uuid;uniqueIndex:idx_commission_scope_tuple"`
	CategoryID           *uuid.UUID            `gorm:"column:category_id;type:uuid;uniqueIndex:idx_commission_scope_tuple"`
	Mode                 enums.CommissionMode  `gorm:"column:mode;type:commission_mode_enum;not null;default:'hybrid'"`
	CommissionRateBps    *int                  `gorm:"column:commission_rate_bps"`
	MinCommissionCents   int                   `gorm:"column:min_commission_cents;not null;default:0"`
	MaxCommissionCents   *int                  `gorm:"column:max_commission_cents"`
	DeliveryFeeRecipient enums.FeeRecipient    `gorm:"column:delivery_fee_recipient;type:fee_recipient_enum;not null;default:'platform'"`
	GatewayFeeRecipient  enums.FeeRecipient    `gorm:"column:gateway_fee_recipient;type:fee_recipient_enum;not null;default:'platform'"`
	DiscountRule         enums.DiscountRule    `gorm:"column:discount_rule;type:discount_rule_enum;not null;default:'after_discount'"`
	GatewayFeeRateBps    int                   `gorm:"column:gateway_fee_rate_bps;not null;default:0"`
	GatewayFeeFlatCents  int                   `gorm:"column:gateway_fee_flat_cents;not null;default:0"`
	PayoutHoldDays       int                   `gorm:"column:payout_hold_days;not null;default:0"`
	MinimumPayoutCents   int                   `gorm:"column:minimum_payout_cents;not null;default:0"`
	CreatedAt            time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// RateOrFallback returns the configured commission rate, or fallback when the
// rule leaves the rate unset.
func (c CommissionConfig) RateOrFallback(fallbackBps int) int {
	if c.CommissionRateBps != nil {
		return *c.CommissionRateBps
	}
	return fallbackBps
}
