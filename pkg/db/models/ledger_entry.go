package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Mnabil10/fasket-backend/pkg/enums"
)

// LedgerEntry records an immutable signed balance movement for a provider.
// Rows are append-only; the sum of entries reconciles to balance deltas.
type LedgerEntry struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProviderID  uuid.UUID             `gorm:"column:provider_id;type:uuid;not null;index"`
	OrderID     *uuid.UUID            `gorm:"column:order_id;type:uuid"`
	PayoutID    *uuid.UUID            `gorm:"column:payout_id;type:uuid"`
	Type        enums.LedgerEntryType `gorm:"column:type;type:ledger_entry_type_enum;not null"`
	AmountCents int                   `gorm:"column:amount_cents;not null"`
	Currency    enums.Currency        `gorm:"column:currency;not null"`
	Metadata    json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}

// TableName maps the model onto the transaction_ledger table.
func (LedgerEntry) TableName() string {
	return "transaction_ledger"
}
