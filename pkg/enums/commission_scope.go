package enums

import "fmt"

// CommissionScope maps to the commission_scope_enum enum in Postgres.
type CommissionScope string

const (
	CommissionScopePlatform         CommissionScope = "platform"
	CommissionScopeProvider         CommissionScope = "provider"
	CommissionScopeCategory         CommissionScope = "category"
	CommissionScopeProviderCategory CommissionScope = "provider_category"
)

var validCommissionScopes = []CommissionScope{
	CommissionScopePlatform,
	CommissionScopeProvider,
	CommissionScopeCategory,
	CommissionScopeProviderCategory,
}

// String implements fmt.Stringer.
func (s CommissionScope) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical scope enum.
func (s CommissionScope) IsValid() bool {
	for _, candidate := range validCommissionScopes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCommissionScope converts raw input into CommissionScope.
func ParseCommissionScope(value string) (CommissionScope, error) {
	for _, candidate := range validCommissionScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission scope %q", value)
}
