package enums

import "fmt"

// FeeRecipient names which party keeps a pass-through fee.
type FeeRecipient string

const (
	FeeRecipientPlatform FeeRecipient = "platform"
	FeeRecipientVendor   FeeRecipient = "vendor"
)

var validFeeRecipients = []FeeRecipient{
	FeeRecipientPlatform,
	FeeRecipientVendor,
}

// IsValid reports whether the value is a known fee recipient.
func (r FeeRecipient) IsValid() bool {
	for _, candidate := range validFeeRecipients {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseFeeRecipient converts raw input into FeeRecipient.
func ParseFeeRecipient(value string) (FeeRecipient, error) {
	for _, candidate := range validFeeRecipients {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fee recipient %q", value)
}
