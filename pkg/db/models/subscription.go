package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Mnabil10/fasket-backend/pkg/enums"
)

// Subscription links a provider to a billing plan. Settlement only consumes the
// active plan's fallback commission rate and currency.
type Subscription struct {
	ID                 uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProviderID         uuid.UUID                `gorm:"column:provider_id;type:uuid;not null;index"`
	PlanID             string                   `gorm:"column:plan_id;not null"`
	Status             enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'active'"`
	CurrentPeriodStart *time.Time               `gorm:"column:current_period_start"`
	CurrentPeriodEnd   time.Time                `gorm:"column:current_period_end;not null"`
	CanceledAt         *time.Time               `gorm:"column:canceled_at"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`

	Plan *BillingPlan `gorm:"foreignKey:PlanID"`
}
