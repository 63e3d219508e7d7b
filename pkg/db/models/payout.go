package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Mnabil10/fasket-backend/pkg/enums"
)

// Payout is a vendor payout request. amount_cents + fee_cents are debited from
// the vendor balance at creation; a failed payout refunds them exactly once.
type Payout struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProviderID    uuid.UUID          `gorm:"column:provider_id;type:uuid;not null;index"`
	AmountCents   int                `gorm:"column:amount_cents;not null"`
	FeeCents      int                `gorm:"column:fee_cents;not null;default:0"`
	Currency      enums.Currency     `gorm:"column:currency;not null"`
	Status        enums.PayoutStatus `gorm:"column:status;type:payout_status_enum;not null;default:'pending'"`
	ReferenceID   *string            `gorm:"column:reference_id"`
	FailureReason *string            `gorm:"column:failure_reason"`
	ProcessedAt   *time.Time         `gorm:"column:processed_at"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
