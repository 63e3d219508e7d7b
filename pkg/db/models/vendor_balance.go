package models

import (
	"time"

	"github.com/google/uuid"
)

// VendorBalance is the running balance per provider. available_cents and
// pending_cents are only ever changed by atomic SQL increments, never
// overwritten, and must never go negative.
type VendorBalance struct {
	ID                      uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProviderID              uuid.UUID  `gorm:"column:provider_id;type:uuid;not null;uniqueIndex:idx_vendor_balances_provider_id"`
	AvailableCents          int        `gorm:"column:available_cents;not null;default:0"`
	PendingCents            int        `gorm:"column:pending_cents;not null;default:0"`
	LifetimeSalesCents      int        `gorm:"column:lifetime_sales_cents;not null;default:0"`
	LifetimeCommissionCents int        `gorm:"column:lifetime_commission_cents;not null;default:0"`
	LifetimeEarningsCents   int        `gorm:"column:lifetime_earnings_cents;not null;default:0"`
	LastSettlementAt        *time.Time `gorm:"column:last_settlement_at"`
	LastPayoutAt            *time.Time `gorm:"column:last_payout_at"`
	CreatedAt               time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
