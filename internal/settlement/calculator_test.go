package settlement

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mnabil10/fasket-backend/internal/commission"
	"github.com/Mnabil10/fasket-backend/pkg/db/models"
	"github.com/Mnabil10/fasket-backend/pkg/enums"
)

func intPtr(v int) *int { return &v }

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }

func baseConfig(rateBps int) models.CommissionConfig {
	cfg := commission.DefaultConfig()
	cfg.CommissionRateBps = intPtr(rateBps)
	return cfg
}

func resolvedWith(base models.CommissionConfig) *commission.ResolvedConfigs {
	return &commission.ResolvedConfigs{
		Base:              base,
		CategoryOverrides: map[uuid.UUID]models.CommissionConfig{},
	}
}

func line(qty, unitPriceCents int, categoryID *uuid.UUID) models.OrderLineItem {
	return models.OrderLineItem{
		ID:             uuid.New(),
		CategoryID:     categoryID,
		Qty:            qty,
		UnitPriceCents: unitPriceCents,
	}
}

func TestCalculate_BaseRateWithDiscount(t *testing.T) {
	order := &models.Order{
		SubtotalCents:    10000,
		ShippingFeeCents: 1000,
		DiscountCents:    1000,
		TotalCents:       10000,
		PaymentMethod:    enums.PaymentMethodCOD,
	}
	items := []models.OrderLineItem{line(1, 10000, nil)}

	fin := CalculateOrderFinancials(order, items, 0, resolvedWith(baseConfig(200)))

	assert.Equal(t, 180, fin.CommissionCents)
	assert.Equal(t, 9000, fin.CommissionEligibleBaseCents)
	assert.Equal(t, 8820, fin.VendorNetCents)
	assert.Equal(t, 1180, fin.PlatformRevenueCents)
	assert.Zero(t, fin.GatewayFeeCents)
}

func TestCalculate_SubscriptionOnlyModeYieldsZeroCommission(t *testing.T) {
	cfg := baseConfig(200)
	cfg.Mode = enums.CommissionModeSubscriptionOnly

	order := &models.Order{SubtotalCents: 10000, TotalCents: 10000, PaymentMethod: enums.PaymentMethodCOD}
	items := []models.OrderLineItem{line(1, 10000, nil)}

	fin := CalculateOrderFinancials(order, items, 500, resolvedWith(cfg))

	assert.Zero(t, fin.CommissionCents)
	assert.Zero(t, fin.CommissionEligibleBaseCents)
	assert.Equal(t, 10000, fin.VendorNetCents)
}

func TestCalculate_CategoryOverrideRate(t *testing.T) {
	categoryID := uuid.New()
	override := baseConfig(500)
	override.Scope = enums.CommissionScopeCategory
	override.CategoryID = uuidPtr(categoryID)

	resolved := resolvedWith(baseConfig(200))
	resolved.CategoryOverrides[categoryID] = override

	order := &models.Order{SubtotalCents: 20000, TotalCents: 20000, PaymentMethod: enums.PaymentMethodCOD}
	items := []models.OrderLineItem{
		line(1, 10000, nil),
		line(1, 10000, uuidPtr(categoryID)),
	}

	fin := CalculateOrderFinancials(order, items, 0, resolved)

	// 200bps on the plain line + 500bps on the overridden line
	assert.Equal(t, 200+500, fin.CommissionCents)
	assert.Equal(t, 20000, fin.CommissionEligibleBaseCents)
}

func TestCalculate_MinMaxClamp(t *testing.T) {
	cfg := baseConfig(1200)
	cfg.MinCommissionCents = 300
	cfg.MaxCommissionCents = intPtr(700)

	order := &models.Order{SubtotalCents: 10000, TotalCents: 10000, PaymentMethod: enums.PaymentMethodCOD}
	items := []models.OrderLineItem{line(1, 10000, nil)}

	fin := CalculateOrderFinancials(order, items, 0, resolvedWith(cfg))
	assert.Equal(t, 700, fin.CommissionCents)

	low := baseConfig(1)
	low.MinCommissionCents = 300
	fin = CalculateOrderFinancials(order, items, 0, resolvedWith(low))
	assert.Equal(t, 300, fin.CommissionCents)
}

func TestCalculate_CommissionCappedAtEligibleBase(t *testing.T) {
	cfg := baseConfig(100)
	cfg.MinCommissionCents = 5000

	order := &models.Order{SubtotalCents: 100, TotalCents: 100, PaymentMethod: enums.PaymentMethodCOD}
	items := []models.OrderLineItem{line(1, 100, nil)}

	fin := CalculateOrderFinancials(order, items, 0, resolvedWith(cfg))
	assert.Equal(t, 100, fin.CommissionCents)
}

func TestCalculate_DiscountExceedsSubtotal(t *testing.T) {
	order := &models.Order{
		SubtotalCents:        1000,
		DiscountCents:        900,
		LoyaltyDiscountCents: 600,
		TotalCents:           0,
		PaymentMethod:        enums.PaymentMethodCOD,
	}
	items := []models.OrderLineItem{line(1, 1000, nil)}

	fin := CalculateOrderFinancials(order, items, 0, resolvedWith(baseConfig(200)))

	assert.Zero(t, fin.CommissionCents)
	assert.Zero(t, fin.CommissionEligibleBaseCents)
	assert.Zero(t, fin.VendorNetCents)

	// multi-line: every allocation can exceed its line when discounts stack
	multi := &models.Order{
		SubtotalCents: 1100,
		DiscountCents: 1200,
		TotalCents:    0,
		PaymentMethod: enums.PaymentMethodCOD,
	}
	fin = CalculateOrderFinancials(multi, []models.OrderLineItem{
		line(1, 1000, nil),
		line(1, 100, nil),
	}, 0, resolvedWith(baseConfig(200)))

	assert.Zero(t, fin.CommissionCents)
	assert.Zero(t, fin.CommissionEligibleBaseCents)
	assert.GreaterOrEqual(t, fin.VendorNetCents, 0)
}

func TestCalculate_CardGatewayFeeAndVendorRecipients(t *testing.T) {
	cfg := baseConfig(200)
	cfg.GatewayFeeRateBps = 300
	cfg.DeliveryFeeRecipient = enums.FeeRecipientVendor
	cfg.GatewayFeeRecipient = enums.FeeRecipientVendor

	order := &models.Order{
		SubtotalCents:    10000,
		ShippingFeeCents: 1000,
		TotalCents:       11000,
		PaymentMethod:    enums.PaymentMethodCard,
	}
	items := []models.OrderLineItem{line(1, 10000, nil)}

	fin := CalculateOrderFinancials(order, items, 0, resolvedWith(cfg))

	assert.Equal(t, 330, fin.GatewayFeeCents)
	assert.Equal(t, 200, fin.CommissionCents)
	assert.Equal(t, 10470, fin.VendorNetCents)
	assert.Equal(t, 200, fin.PlatformRevenueCents)
}

func TestCalculate_GatewayFeeZeroOnCOD(t *testing.T) {
	cfg := baseConfig(200)
	cfg.GatewayFeeRateBps = 300
	cfg.GatewayFeeFlatCents = 50

	order := &models.Order{SubtotalCents: 10000, TotalCents: 10000, PaymentMethod: enums.PaymentMethodCOD}
	items := []models.OrderLineItem{line(1, 10000, nil)}

	fin := CalculateOrderFinancials(order, items, 0, resolvedWith(cfg))
	assert.Zero(t, fin.GatewayFeeCents)
}

func TestCalculate_RateFallsBackToPlanRate(t *testing.T) {
	cfg := commission.DefaultConfig() // no own rate

	order := &models.Order{SubtotalCents: 10000, TotalCents: 10000, PaymentMethod: enums.PaymentMethodCOD}
	items := []models.OrderLineItem{line(1, 10000, nil)}

	fin := CalculateOrderFinancials(order, items, 250, resolvedWith(cfg))
	assert.Equal(t, 250, fin.CommissionCents)

	// no config rate and no plan rate means the line is simply not eligible
	fin = CalculateOrderFinancials(order, items, 0, resolvedWith(cfg))
	assert.Zero(t, fin.CommissionCents)
	assert.Equal(t, 10000, fin.VendorNetCents)
}

func TestCalculate_BeforeDiscountRule(t *testing.T) {
	cfg := baseConfig(200)
	cfg.DiscountRule = enums.DiscountRuleBeforeDiscount

	order := &models.Order{
		SubtotalCents: 10000,
		DiscountCents: 1000,
		TotalCents:    9000,
		PaymentMethod: enums.PaymentMethodCOD,
	}
	items := []models.OrderLineItem{line(1, 10000, nil)}

	fin := CalculateOrderFinancials(order, items, 0, resolvedWith(cfg))

	// commission computed on the undiscounted subtotal
	assert.Equal(t, 200, fin.CommissionCents)
	assert.Equal(t, 10000, fin.CommissionEligibleBaseCents)
	// but the vendor still loses the discount
	assert.Equal(t, 10000-1000-200, fin.VendorNetCents)
}

func TestAllocateDiscounts_ConservesTotal(t *testing.T) {
	items := []models.OrderLineItem{
		line(1, 3333, nil),
		line(2, 1111, nil),
		line(3, 777, nil),
	}

	allocations := allocateDiscounts(items, 1000, enums.DiscountRuleAfterDiscount)
	sum := 0
	for _, a := range allocations {
		sum += a
	}
	assert.Equal(t, 1000, sum)

	// last line absorbs the remainder, earlier lines are floored shares
	assert.Equal(t, 1000-allocations[0]-allocations[1], allocations[2])
}

func TestAllocateDiscounts_RandomizedConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		count := 1 + rng.Intn(6)
		items := make([]models.OrderLineItem, 0, count)
		subtotal := 0
		for j := 0; j < count; j++ {
			item := line(1+rng.Intn(5), 1+rng.Intn(5000), nil)
			subtotal += item.SubtotalCents()
			items = append(items, item)
		}
		discount := rng.Intn(subtotal + 1)

		allocations := allocateDiscounts(items, discount, enums.DiscountRuleAfterDiscount)
		sum := 0
		for _, a := range allocations {
			sum += a
		}
		require.Equal(t, discount, sum)
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	categoryID := uuid.New()
	override := baseConfig(450)
	override.CategoryID = uuidPtr(categoryID)

	resolved := resolvedWith(baseConfig(200))
	resolved.CategoryOverrides[categoryID] = override

	order := &models.Order{
		SubtotalCents:        12345,
		ShippingFeeCents:     700,
		ServiceFeeCents:      150,
		DiscountCents:        500,
		LoyaltyDiscountCents: 250,
		TotalCents:           12445,
		PaymentMethod:        enums.PaymentMethodCard,
	}
	items := []models.OrderLineItem{
		line(3, 1115, uuidPtr(categoryID)),
		line(2, 4500, nil),
	}

	first := CalculateOrderFinancials(order, items, 300, resolved)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, CalculateOrderFinancials(order, items, 300, resolved))
	}
}

func TestCalculate_CommissionBoundsProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		cfg := baseConfig(rng.Intn(1500))
		cfg.MinCommissionCents = rng.Intn(500)
		if rng.Intn(2) == 0 {
			cfg.MaxCommissionCents = intPtr(cfg.MinCommissionCents + rng.Intn(2000))
		}

		count := 1 + rng.Intn(4)
		items := make([]models.OrderLineItem, 0, count)
		subtotal := 0
		for j := 0; j < count; j++ {
			item := line(1+rng.Intn(3), 1+rng.Intn(4000), nil)
			subtotal += item.SubtotalCents()
			items = append(items, item)
		}
		order := &models.Order{
			SubtotalCents:        subtotal,
			DiscountCents:        rng.Intn(subtotal + 1),
			LoyaltyDiscountCents: rng.Intn(subtotal/2 + 1),
			TotalCents:           subtotal,
			PaymentMethod:        enums.PaymentMethodCOD,
		}

		fin := CalculateOrderFinancials(order, items, rng.Intn(800), resolvedWith(cfg))

		require.GreaterOrEqual(t, fin.CommissionCents, 0)
		require.LessOrEqual(t, fin.CommissionCents, fin.CommissionEligibleBaseCents)
		if fin.CommissionEligibleBaseCents == 0 {
			require.Zero(t, fin.CommissionCents)
		}
	}
}

func TestCalculate_AccountingIdentityUnderPlatformDefaults(t *testing.T) {
	order := &models.Order{
		SubtotalCents:        10000,
		ShippingFeeCents:     1200,
		ServiceFeeCents:      300,
		DiscountCents:        600,
		LoyaltyDiscountCents: 150,
		TotalCents:           10750,
		PaymentMethod:        enums.PaymentMethodCOD,
	}
	items := []models.OrderLineItem{line(2, 2500, nil), line(1, 5000, nil)}

	fin := CalculateOrderFinancials(order, items, 0, resolvedWith(baseConfig(200)))

	totalDiscount := order.DiscountCents + order.LoyaltyDiscountCents
	assert.Equal(t, order.SubtotalCents-totalDiscount, fin.VendorNetCents+fin.CommissionCents)
}
