package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/Mnabil10/fasket-backend/internal/commission"
	"github.com/Mnabil10/fasket-backend/pkg/db/models"
	"github.com/Mnabil10/fasket-backend/pkg/enums"
)

// Financials is the computed money breakdown for one delivered order. All
// values are integer cents; nothing here touches floating point.
type Financials struct {
	SubtotalCents               int
	DeliveryFeeCents            int
	ServiceFeeCents             int
	DiscountCents               int
	GatewayFeeCents             int
	CommissionCents             int
	CommissionEligibleBaseCents int
	VendorNetCents              int
	PlatformRevenueCents        int
}

var tenThousand = decimal.NewFromInt(10000)

// bpsOf applies a basis-point rate to an amount with half-up rounding.
func bpsOf(amountCents, rateBps int) int {
	if amountCents == 0 || rateBps == 0 {
		return 0
	}
	return int(decimal.NewFromInt(int64(amountCents)).
		Mul(decimal.NewFromInt(int64(rateBps))).
		DivRound(tenThousand, 0).
		IntPart())
}

// CalculateOrderFinancials computes commission, fees, vendor net and platform
// revenue for one order. Deterministic and side-effect free: same snapshot,
// line items, fallback rate and configs always produce the same breakdown.
//
// fallbackRateBps is the provider's plan-level commission rate, used whenever
// the effective config leaves its own rate unset.
func CalculateOrderFinancials(
	order *models.Order,
	items []models.OrderLineItem,
	fallbackRateBps int,
	resolved *commission.ResolvedConfigs,
) Financials {
	base := resolved.Base
	totalDiscount := order.DiscountCents + order.LoyaltyDiscountCents

	lineDiscounts := allocateDiscounts(items, totalDiscount, base.DiscountRule)
	gatewayFee := gatewayFeeCents(order, base)

	eligibleBase := 0
	commissionCents := 0
	for i, item := range items {
		effective := base
		if item.CategoryID != nil {
			if override, ok := resolved.CategoryOverrides[*item.CategoryID]; ok {
				effective = override
			}
		}
		rate := effective.RateOrFallback(fallbackRateBps)
		if effective.Mode == enums.CommissionModeSubscriptionOnly || rate <= 0 {
			continue
		}
		lineBase := item.SubtotalCents() - lineDiscounts[i]
		if lineBase < 0 {
			// stacked promo and loyalty discounts can exceed a line's subtotal
			lineBase = 0
		}
		eligibleBase += lineBase
		commissionCents += bpsOf(lineBase, rate)
	}

	if eligibleBase == 0 {
		commissionCents = 0
	} else {
		if commissionCents < base.MinCommissionCents {
			commissionCents = base.MinCommissionCents
		}
		if base.MaxCommissionCents != nil && commissionCents > *base.MaxCommissionCents {
			commissionCents = *base.MaxCommissionCents
		}
		// commission can never exceed the base it was computed from
		if commissionCents > eligibleBase {
			commissionCents = eligibleBase
		}
	}

	vendorNet := order.SubtotalCents - totalDiscount - commissionCents
	platformRevenue := commissionCents + order.ServiceFeeCents
	if base.DeliveryFeeRecipient == enums.FeeRecipientVendor {
		vendorNet += order.ShippingFeeCents
	} else {
		platformRevenue += order.ShippingFeeCents
	}
	if base.GatewayFeeRecipient == enums.FeeRecipientVendor {
		vendorNet -= gatewayFee
	} else {
		platformRevenue += gatewayFee
	}
	if vendorNet < 0 {
		vendorNet = 0
	}

	return Financials{
		SubtotalCents:               order.SubtotalCents,
		DeliveryFeeCents:            order.ShippingFeeCents,
		ServiceFeeCents:             order.ServiceFeeCents,
		DiscountCents:               totalDiscount,
		GatewayFeeCents:             gatewayFee,
		CommissionCents:             commissionCents,
		CommissionEligibleBaseCents: eligibleBase,
		VendorNetCents:              vendorNet,
		PlatformRevenueCents:        platformRevenue,
	}
}

// allocateDiscounts distributes the order discount across line items
// proportionally to their subtotal. Every line except the last is floored;
// the last line absorbs the exact remainder, so the allocations always sum to
// the full discount with no penny drift. Under BEFORE_DISCOUNT every line gets
// zero: commission is taken on the undiscounted subtotal.
func allocateDiscounts(items []models.OrderLineItem, totalDiscount int, rule enums.DiscountRule) []int {
	allocations := make([]int, len(items))
	if rule != enums.DiscountRuleAfterDiscount || totalDiscount == 0 || len(items) == 0 {
		return allocations
	}

	totalSubtotal := 0
	for _, item := range items {
		totalSubtotal += item.SubtotalCents()
	}
	if totalSubtotal == 0 {
		allocations[len(allocations)-1] = totalDiscount
		return allocations
	}

	allocated := 0
	for i, item := range items {
		if i == len(items)-1 {
			allocations[i] = totalDiscount - allocated
			break
		}
		share := item.SubtotalCents() * totalDiscount / totalSubtotal
		allocations[i] = share
		allocated += share
	}
	return allocations
}

// gatewayFeeCents is an order-level fee charged only on card payments, always
// taken from the base config; category overrides do not apply to it.
func gatewayFeeCents(order *models.Order, base models.CommissionConfig) int {
	if order.PaymentMethod != enums.PaymentMethodCard {
		return 0
	}
	return bpsOf(order.TotalCents, base.GatewayFeeRateBps) + base.GatewayFeeFlatCents
}
