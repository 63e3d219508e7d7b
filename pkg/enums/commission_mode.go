package enums

import "fmt"

// CommissionMode selects how a commission rule charges the vendor.
// Hybrid rules take a per-order rate on top of the subscription; subscription-only
// rules charge nothing per order.
type CommissionMode string

const (
	CommissionModeHybrid           CommissionMode = "hybrid"
	CommissionModeSubscriptionOnly CommissionMode = "subscription_only"
)

var validCommissionModes = []CommissionMode{
	CommissionModeHybrid,
	CommissionModeSubscriptionOnly,
}

// IsValid reports whether the value is a known commission mode.
func (m CommissionMode) IsValid() bool {
	for _, candidate := range validCommissionModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseCommissionMode converts raw input into CommissionMode.
func ParseCommissionMode(value string) (CommissionMode, error) {
	for _, candidate := range validCommissionModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission mode %q", value)
}
