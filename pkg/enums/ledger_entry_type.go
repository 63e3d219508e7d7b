package enums

import "fmt"

// LedgerEntryType maps to the ledger_entry_type_enum enum in Postgres.
type LedgerEntryType string

const (
	LedgerEntryTypeOrderSettlement LedgerEntryType = "order_settlement"
	LedgerEntryTypeHoldRelease     LedgerEntryType = "hold_release"
	LedgerEntryTypePayout          LedgerEntryType = "payout"
	LedgerEntryTypePayoutFee       LedgerEntryType = "payout_fee"
	LedgerEntryTypePayoutReversal  LedgerEntryType = "payout_reversal"
)

var validLedgerEntryTypes = []LedgerEntryType{
	LedgerEntryTypeOrderSettlement,
	LedgerEntryTypeHoldRelease,
	LedgerEntryTypePayout,
	LedgerEntryTypePayoutFee,
	LedgerEntryTypePayoutReversal,
}

// IsValid reports whether the value matches the canonical ledger entry enum.
func (t LedgerEntryType) IsValid() bool {
	for _, candidate := range validLedgerEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLedgerEntryType converts raw input into LedgerEntryType.
func ParseLedgerEntryType(value string) (LedgerEntryType, error) {
	for _, candidate := range validLedgerEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry type %q", value)
}
