package enums

import "fmt"

// PayoutStatus tracks a payout through its lifecycle. Paid is terminal;
// failed payouts refund the reserved balance exactly once.
type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusPaid       PayoutStatus = "paid"
	PayoutStatusFailed     PayoutStatus = "failed"
)

var validPayoutStatuses = []PayoutStatus{
	PayoutStatusPending,
	PayoutStatusProcessing,
	PayoutStatusPaid,
	PayoutStatusFailed,
}

// String implements fmt.Stringer.
func (s PayoutStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known payout status.
func (s PayoutStatus) IsValid() bool {
	for _, candidate := range validPayoutStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed from the status.
func (s PayoutStatus) IsTerminal() bool {
	return s == PayoutStatusPaid || s == PayoutStatusFailed
}

// ParsePayoutStatus converts raw input into PayoutStatus.
func ParsePayoutStatus(value string) (PayoutStatus, error) {
	for _, candidate := range validPayoutStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout status %q", value)
}
