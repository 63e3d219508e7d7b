package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Mnabil10/fasket-backend/internal/balances"
	"github.com/Mnabil10/fasket-backend/internal/commission"
	"github.com/Mnabil10/fasket-backend/internal/ledger"
	"github.com/Mnabil10/fasket-backend/internal/orders"
	"github.com/Mnabil10/fasket-backend/internal/subscriptions"
	"github.com/Mnabil10/fasket-backend/pkg/db/models"
	"github.com/Mnabil10/fasket-backend/pkg/enums"
	pkgerrors "github.com/Mnabil10/fasket-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

var settlementDDL = []string{
	`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  provider_id TEXT,
  status TEXT NOT NULL,
  subtotal_cents INTEGER NOT NULL,
  shipping_fee_cents INTEGER NOT NULL DEFAULT 0,
  service_fee_cents INTEGER NOT NULL DEFAULT 0,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  loyalty_discount_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  payment_method TEXT NOT NULL,
  delivered_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  category_id TEXT,
  qty INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS commission_configs (
  id TEXT PRIMARY KEY,
  scope TEXT NOT NULL,
  provider_id TEXT,
  category_id TEXT,
  mode TEXT NOT NULL DEFAULT 'hybrid',
  commission_rate_bps INTEGER,
  min_commission_cents INTEGER NOT NULL DEFAULT 0,
  max_commission_cents INTEGER,
  delivery_fee_recipient TEXT NOT NULL DEFAULT 'platform',
  gateway_fee_recipient TEXT NOT NULL DEFAULT 'platform',
  discount_rule TEXT NOT NULL DEFAULT 'after_discount',
  gateway_fee_rate_bps INTEGER NOT NULL DEFAULT 0,
  gateway_fee_flat_cents INTEGER NOT NULL DEFAULT 0,
  payout_hold_days INTEGER NOT NULL DEFAULT 0,
  minimum_payout_cents INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS billing_plans (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  is_default INTEGER NOT NULL DEFAULT 0,
  commission_rate_bps INTEGER NOT NULL DEFAULT 0,
  price_amount NUMERIC NOT NULL,
  currency TEXT NOT NULL,
  features TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
  id TEXT PRIMARY KEY,
  provider_id TEXT NOT NULL,
  plan_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  current_period_start DATETIME,
  current_period_end DATETIME NOT NULL,
  canceled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS order_financials (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  provider_id TEXT NOT NULL,
  currency TEXT NOT NULL,
  subtotal_cents INTEGER NOT NULL,
  delivery_fee_cents INTEGER NOT NULL DEFAULT 0,
  service_fee_cents INTEGER NOT NULL DEFAULT 0,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  gateway_fee_cents INTEGER NOT NULL DEFAULT 0,
  commission_cents INTEGER NOT NULL DEFAULT 0,
  commission_eligible_base_cents INTEGER NOT NULL DEFAULT 0,
  vendor_net_cents INTEGER NOT NULL DEFAULT 0,
  platform_revenue_cents INTEGER NOT NULL DEFAULT 0,
  hold_until DATETIME,
  released_at DATETIME,
  settled_at DATETIME NOT NULL,
  metadata TEXT,
  created_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS vendor_balances (
  id TEXT PRIMARY KEY,
  provider_id TEXT NOT NULL UNIQUE,
  available_cents INTEGER NOT NULL DEFAULT 0,
  pending_cents INTEGER NOT NULL DEFAULT 0,
  lifetime_sales_cents INTEGER NOT NULL DEFAULT 0,
  lifetime_commission_cents INTEGER NOT NULL DEFAULT 0,
  lifetime_earnings_cents INTEGER NOT NULL DEFAULT 0,
  last_settlement_at DATETIME,
  last_payout_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS transaction_ledger (
  id TEXT PRIMARY KEY,
  provider_id TEXT NOT NULL,
  order_id TEXT,
  payout_id TEXT,
  type TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL,
  metadata TEXT,
  created_at DATETIME
);`,
}

func setupSettlementTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	for _, ddl := range settlementDDL {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	return newTestServiceWithRepo(t, db, NewRepository(db))
}

func newTestServiceWithRepo(t *testing.T, db *gorm.DB, repo Repository) Service {
	t.Helper()

	commissionRepo := commission.NewRepository(db)
	resolver, err := commission.NewResolver(commissionRepo)
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:          repo,
		Orders:        orders.NewRepository(db),
		Subscriptions: subscriptions.NewRepository(db),
		Resolver:      resolver,
		Balances:      balances.NewRepository(db),
		Ledger:        ledger.NewRepository(db),
		Tx:            gormTxRunner{db: db},
	})
	require.NoError(t, err)
	return svc
}

func seedDeliveredOrder(t *testing.T, db *gorm.DB, providerID uuid.UUID) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:               uuid.New(),
		ProviderID:       &providerID,
		Status:           enums.OrderStatusDelivered,
		SubtotalCents:    10000,
		ShippingFeeCents: 1000,
		DiscountCents:    1000,
		TotalCents:       10000,
		PaymentMethod:    enums.PaymentMethodCOD,
	}
	require.NoError(t, db.Create(order).Error)
	require.NoError(t, db.Create(&models.OrderLineItem{
		ID:             uuid.New(),
		OrderID:        order.ID,
		Qty:            1,
		UnitPriceCents: 10000,
	}).Error)
	return order
}

func seedPlatformConfig(t *testing.T, db *gorm.DB, mutate func(*models.CommissionConfig)) {
	t.Helper()

	rate := 200
	cfg := &models.CommissionConfig{
		ID:                   uuid.New(),
		Scope:                enums.CommissionScopePlatform,
		Mode:                 enums.CommissionModeHybrid,
		CommissionRateBps:    &rate,
		DeliveryFeeRecipient: enums.FeeRecipientPlatform,
		GatewayFeeRecipient:  enums.FeeRecipientPlatform,
		DiscountRule:         enums.DiscountRuleAfterDiscount,
	}
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, db.Create(cfg).Error)
}

func TestSettleOrder_EndToEnd(t *testing.T) {
	db := setupSettlementTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	providerID := uuid.New()
	seedPlatformConfig(t, db, nil)
	order := seedDeliveredOrder(t, db, providerID)

	fin, err := svc.SettleOrder(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, fin)

	assert.Equal(t, 180, fin.CommissionCents)
	assert.Equal(t, 8820, fin.VendorNetCents)
	assert.Equal(t, 1180, fin.PlatformRevenueCents)
	assert.Equal(t, enums.CurrencyEGP, fin.Currency)
	assert.Nil(t, fin.HoldUntil)

	balance, err := balances.NewRepository(db).Find(ctx, providerID)
	require.NoError(t, err)
	require.NotNil(t, balance)
	assert.Equal(t, 8820, balance.AvailableCents)
	assert.Zero(t, balance.PendingCents)
	assert.Equal(t, 10000, balance.LifetimeSalesCents)
	assert.Equal(t, 180, balance.LifetimeCommissionCents)
	assert.Equal(t, 8820, balance.LifetimeEarningsCents)
	assert.NotNil(t, balance.LastSettlementAt)

	var entries []models.LedgerEntry
	require.NoError(t, db.Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, enums.LedgerEntryTypeOrderSettlement, entries[0].Type)
	assert.Equal(t, 8820, entries[0].AmountCents)
	require.NotNil(t, entries[0].OrderID)
	assert.Equal(t, order.ID, *entries[0].OrderID)
}

func TestSettleOrder_Idempotent(t *testing.T) {
	db := setupSettlementTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	providerID := uuid.New()
	seedPlatformConfig(t, db, nil)
	order := seedDeliveredOrder(t, db, providerID)

	first, err := svc.SettleOrder(ctx, order.ID)
	require.NoError(t, err)
	second, err := svc.SettleOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var finCount, ledgerCount int64
	require.NoError(t, db.Model(&models.OrderFinancials{}).Count(&finCount).Error)
	require.NoError(t, db.Model(&models.LedgerEntry{}).Count(&ledgerCount).Error)
	assert.EqualValues(t, 1, finCount)
	assert.EqualValues(t, 1, ledgerCount)

	balance, err := balances.NewRepository(db).Find(ctx, providerID)
	require.NoError(t, err)
	assert.Equal(t, 8820, balance.AvailableCents)
}

// racingFinancialsRepo hides existing rows from the first pre-read, simulating
// a concurrent settlement that commits between the read and the insert.
type racingFinancialsRepo struct {
	Repository
	missedReads int
}

func (r *racingFinancialsRepo) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.OrderFinancials, error) {
	if r.missedReads > 0 {
		r.missedReads--
		return nil, nil
	}
	return r.Repository.FindByOrderID(ctx, orderID)
}

func TestSettleOrder_ConcurrentRaceReturnsWinner(t *testing.T) {
	db := setupSettlementTestDB(t)
	ctx := context.Background()

	providerID := uuid.New()
	seedPlatformConfig(t, db, nil)
	order := seedDeliveredOrder(t, db, providerID)

	winner, err := newTestService(t, db).SettleOrder(ctx, order.ID)
	require.NoError(t, err)

	// the loser's pre-read misses the winner's row and the insert collides on
	// the order_id unique constraint
	racing := &racingFinancialsRepo{Repository: NewRepository(db), missedReads: 1}
	loser := newTestServiceWithRepo(t, db, racing)

	fin, err := loser.SettleOrder(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, fin)
	assert.Equal(t, winner.ID, fin.ID)
	assert.Zero(t, racing.missedReads)

	var finCount, ledgerCount int64
	require.NoError(t, db.Model(&models.OrderFinancials{}).Count(&finCount).Error)
	require.NoError(t, db.Model(&models.LedgerEntry{}).Count(&ledgerCount).Error)
	assert.EqualValues(t, 1, finCount)
	assert.EqualValues(t, 1, ledgerCount)

	balance, err := balances.NewRepository(db).Find(ctx, providerID)
	require.NoError(t, err)
	assert.Equal(t, 8820, balance.AvailableCents)
}

func TestSettleOrder_Preconditions(t *testing.T) {
	db := setupSettlementTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	_, err := svc.SettleOrder(ctx, uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	pending := seedDeliveredOrder(t, db, uuid.New())
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", pending.ID).
		Update("status", enums.OrderStatusPending).Error)
	_, err = svc.SettleOrder(ctx, pending.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	noProvider := seedDeliveredOrder(t, db, uuid.New())
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", noProvider.ID).
		Update("provider_id", nil).Error)
	fin, err := svc.SettleOrder(ctx, noProvider.ID)
	require.NoError(t, err)
	assert.Nil(t, fin)
}

func TestSettleOrder_PlanFallbackRateAndCurrency(t *testing.T) {
	db := setupSettlementTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	providerID := uuid.New()
	seedPlatformConfig(t, db, func(cfg *models.CommissionConfig) {
		cfg.CommissionRateBps = nil
	})

	require.NoError(t, db.Exec(
		`INSERT INTO billing_plans (id, name, commission_rate_bps, price_amount, currency) VALUES (?, ?, ?, ?, ?)`,
		"plan_pro", "Pro", 300, 199, string(enums.CurrencySAR),
	).Error)
	require.NoError(t, db.Create(&models.Subscription{
		ID:               uuid.New(),
		ProviderID:       providerID,
		PlanID:           "plan_pro",
		Status:           enums.SubscriptionStatusActive,
		CurrentPeriodEnd: time.Now().Add(24 * time.Hour),
	}).Error)

	order := seedDeliveredOrder(t, db, providerID)

	fin, err := svc.SettleOrder(ctx, order.ID)
	require.NoError(t, err)
	// 300bps of the 9000 discounted base via the plan fallback
	assert.Equal(t, 270, fin.CommissionCents)
	assert.Equal(t, enums.CurrencySAR, fin.Currency)
}

func TestSettleOrder_HoldThenRelease(t *testing.T) {
	db := setupSettlementTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	providerID := uuid.New()
	seedPlatformConfig(t, db, func(cfg *models.CommissionConfig) {
		cfg.PayoutHoldDays = 7
	})
	order := seedDeliveredOrder(t, db, providerID)

	fin, err := svc.SettleOrder(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, fin.HoldUntil)

	balanceRepo := balances.NewRepository(db)
	balance, err := balanceRepo.Find(ctx, providerID)
	require.NoError(t, err)
	assert.Zero(t, balance.AvailableCents)
	assert.Equal(t, 8820, balance.PendingCents)

	// nothing matured yet
	result, err := svc.ReleaseMaturedHolds(ctx, providerID)
	require.NoError(t, err)
	assert.Zero(t, result.Count)

	require.NoError(t, db.Model(&models.OrderFinancials{}).
		Where("order_id = ?", order.ID).
		Update("hold_until", time.Now().Add(-time.Hour)).Error)

	result, err = svc.ReleaseMaturedHolds(ctx, providerID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, 8820, result.ReleasedCents)

	balance, err = balanceRepo.Find(ctx, providerID)
	require.NoError(t, err)
	assert.Equal(t, 8820, balance.AvailableCents)
	assert.Zero(t, balance.PendingCents)

	var released models.OrderFinancials
	require.NoError(t, db.Where("order_id = ?", order.ID).First(&released).Error)
	assert.NotNil(t, released.ReleasedAt)

	var holdEntries []models.LedgerEntry
	require.NoError(t, db.Where("type = ?", enums.LedgerEntryTypeHoldRelease).Find(&holdEntries).Error)
	require.Len(t, holdEntries, 1)
	assert.Equal(t, 8820, holdEntries[0].AmountCents)

	// re-entrant: a second pass finds nothing
	result, err = svc.ReleaseMaturedHolds(ctx, providerID)
	require.NoError(t, err)
	assert.Zero(t, result.Count)
	assert.Zero(t, result.ReleasedCents)
}

func TestReleaseAllMaturedHolds(t *testing.T) {
	db := setupSettlementTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	seedPlatformConfig(t, db, func(cfg *models.CommissionConfig) {
		cfg.PayoutHoldDays = 3
	})

	providerA := uuid.New()
	providerB := uuid.New()
	orderA := seedDeliveredOrder(t, db, providerA)
	orderB := seedDeliveredOrder(t, db, providerB)

	_, err := svc.SettleOrder(ctx, orderA.ID)
	require.NoError(t, err)
	_, err = svc.SettleOrder(ctx, orderB.ID)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.OrderFinancials{}).
		Where("released_at IS NULL").
		Update("hold_until", time.Now().Add(-time.Minute)).Error)

	result, err := svc.ReleaseAllMaturedHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, 2*8820, result.ReleasedCents)
}
