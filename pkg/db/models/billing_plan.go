package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Mnabil10/fasket-backend/pkg/enums"
)

// BillingPlan captures the local metadata for a subscription plan. The
// commission rate here is the fallback when a commission config leaves its
// rate unset.
type BillingPlan struct {
	ID                string          `gorm:"column:id;primaryKey"`
	Name              string          `gorm:"column:name;not null"`
	IsDefault         bool            `gorm:"column:is_default;not null;default:false"`
	CommissionRateBps int             `gorm:"column:commission_rate_bps;not null;default:0"`
	PriceAmount       decimal.Decimal `gorm:"column:price_amount;type:numeric(12,2);not null"`
	Currency          enums.Currency  `gorm:"column:currency;not null"`
	Features          pq.StringArray  `gorm:"column:features;type:text[];default:ARRAY[]::text[]"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
