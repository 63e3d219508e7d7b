package enums

import "fmt"

// DiscountRule controls whether commission is computed before or after
// order-level discounts are allocated to line items.
type DiscountRule string

const (
	DiscountRuleBeforeDiscount DiscountRule = "before_discount"
	DiscountRuleAfterDiscount  DiscountRule = "after_discount"
)

var validDiscountRules = []DiscountRule{
	DiscountRuleBeforeDiscount,
	DiscountRuleAfterDiscount,
}

// IsValid reports whether the value is a known discount rule.
func (r DiscountRule) IsValid() bool {
	for _, candidate := range validDiscountRules {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseDiscountRule converts raw input into DiscountRule.
func ParseDiscountRule(value string) (DiscountRule, error) {
	for _, candidate := range validDiscountRules {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount rule %q", value)
}
