package payouts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Mnabil10/fasket-backend/internal/alerts"
	"github.com/Mnabil10/fasket-backend/internal/balances"
	"github.com/Mnabil10/fasket-backend/internal/commission"
	"github.com/Mnabil10/fasket-backend/internal/ledger"
	"github.com/Mnabil10/fasket-backend/internal/settlement"
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

type stubHoldReleaser struct {
	calls int
}

func (s *stubHoldReleaser) ReleaseMaturedHolds(ctx context.Context, providerID uuid.UUID) (settlement.ReleaseResult, error) {
	s.calls++
	return settlement.ReleaseResult{}, nil
}

type recordingAlerts struct {
	events []alerts.PayoutFailureEvent
}

func (r *recordingAlerts) PayoutFailed(ctx context.Context, event alerts.PayoutFailureEvent) error {
	r.events = append(r.events, event)
	return nil
}

var payoutsDDL = []string{
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
	`CREATE TABLE IF NOT EXISTS payouts (
  id TEXT PRIMARY KEY,
  provider_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  fee_cents INTEGER NOT NULL DEFAULT 0,
  currency TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  reference_id TEXT,
  failure_reason TEXT,
  processed_at DATETIME,
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
}

type payoutsFixture struct {
	db      *gorm.DB
	svc     Service
	holds   *stubHoldReleaser
	alerts  *recordingAlerts
	balRepo balances.Repository
}

func setupPayoutsFixture(t *testing.T) *payoutsFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	for _, ddl := range payoutsDDL {
		require.NoError(t, db.Exec(ddl).Error)
	}

	resolver, err := commission.NewResolver(commission.NewRepository(db))
	require.NoError(t, err)

	holds := &stubHoldReleaser{}
	recorder := &recordingAlerts{}
	svc, err := NewService(ServiceParams{
		Repo:          NewRepository(db),
		Balances:      balances.NewRepository(db),
		Ledger:        ledger.NewRepository(db),
		Resolver:      resolver,
		Subscriptions: subscriptions.NewRepository(db),
		Holds:         holds,
		Alerts:        recorder,
		Tx:            gormTxRunner{db: db},
	})
	require.NoError(t, err)

	return &payoutsFixture{
		db:      db,
		svc:     svc,
		holds:   holds,
		alerts:  recorder,
		balRepo: balances.NewRepository(db),
	}
}

func seedBalance(t *testing.T, db *gorm.DB, providerID uuid.UUID, availableCents int) {
	t.Helper()
	require.NoError(t, db.Create(&models.VendorBalance{
		ID:             uuid.New(),
		ProviderID:     providerID,
		AvailableCents: availableCents,
	}).Error)
}

func availableCents(t *testing.T, f *payoutsFixture, providerID uuid.UUID) int {
	t.Helper()
	balance, err := f.balRepo.Find(context.Background(), providerID)
	require.NoError(t, err)
	require.NotNil(t, balance)
	return balance.AvailableCents
}

func TestCreatePayout_DebitsAndWritesLedger(t *testing.T) {
	f := setupPayoutsFixture(t)
	ctx := context.Background()
	providerID := uuid.New()
	seedBalance(t, f.db, providerID, 10000)

	payout, err := f.svc.CreatePayout(ctx, CreatePayoutInput{
		ProviderID:  providerID,
		AmountCents: 5000,
		FeeCents:    1000,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusPending, payout.Status)
	assert.Equal(t, 1, f.holds.calls)

	assert.Equal(t, 4000, availableCents(t, f, providerID))

	var entries []models.LedgerEntry
	require.NoError(t, f.db.Order("amount_cents ASC").Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.Equal(t, enums.LedgerEntryTypePayout, entries[0].Type)
	assert.Equal(t, -5000, entries[0].AmountCents)
	assert.Equal(t, enums.LedgerEntryTypePayoutFee, entries[1].Type)
	assert.Equal(t, -1000, entries[1].AmountCents)
}

func TestCreatePayout_CurrencyFollowsPlan(t *testing.T) {
	f := setupPayoutsFixture(t)
	ctx := context.Background()
	providerID := uuid.New()
	seedBalance(t, f.db, providerID, 10000)

	require.NoError(t, f.db.Exec(
		`INSERT INTO billing_plans (id, name, commission_rate_bps, price_amount, currency) VALUES (?, ?, ?, ?, ?)`,
		"plan_pro", "Pro", 300, 199, string(enums.CurrencySAR),
	).Error)
	require.NoError(t, f.db.Create(&models.Subscription{
		ID:               uuid.New(),
		ProviderID:       providerID,
		PlanID:           "plan_pro",
		Status:           enums.SubscriptionStatusActive,
		CurrentPeriodEnd: time.Now().Add(24 * time.Hour),
	}).Error)

	payout, err := f.svc.CreatePayout(ctx, CreatePayoutInput{ProviderID: providerID, AmountCents: 5000, FeeCents: 500})
	require.NoError(t, err)
	assert.Equal(t, enums.CurrencySAR, payout.Currency)

	// the refund entry offsets in the same currency
	_, err = f.svc.UpdatePayoutStatus(ctx, UpdatePayoutStatusInput{
		PayoutID: payout.ID,
		Status:   enums.PayoutStatusFailed,
	})
	require.NoError(t, err)

	var entries []models.LedgerEntry
	require.NoError(t, f.db.Find(&entries).Error)
	require.Len(t, entries, 3)
	for _, entry := range entries {
		assert.Equal(t, enums.CurrencySAR, entry.Currency)
	}

	// no active plan: the configured default applies
	plain := uuid.New()
	seedBalance(t, f.db, plain, 3000)
	fallback, err := f.svc.CreatePayout(ctx, CreatePayoutInput{ProviderID: plain, AmountCents: 1000})
	require.NoError(t, err)
	assert.Equal(t, enums.CurrencyEGP, fallback.Currency)
}

func TestCreatePayout_Validation(t *testing.T) {
	f := setupPayoutsFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePayout(ctx, CreatePayoutInput{ProviderID: uuid.New(), AmountCents: 0})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.CreatePayout(ctx, CreatePayoutInput{ProviderID: uuid.New(), AmountCents: 100, FeeCents: -1})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestCreatePayout_MinimumNotMet(t *testing.T) {
	f := setupPayoutsFixture(t)
	ctx := context.Background()
	providerID := uuid.New()
	seedBalance(t, f.db, providerID, 10000)

	require.NoError(t, f.db.Create(&models.CommissionConfig{
		ID:                   uuid.New(),
		Scope:                enums.CommissionScopePlatform,
		Mode:                 enums.CommissionModeHybrid,
		DeliveryFeeRecipient: enums.FeeRecipientPlatform,
		GatewayFeeRecipient:  enums.FeeRecipientPlatform,
		DiscountRule:         enums.DiscountRuleAfterDiscount,
		MinimumPayoutCents:   2000,
	}).Error)

	_, err := f.svc.CreatePayout(ctx, CreatePayoutInput{ProviderID: providerID, AmountCents: 1500})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodePayoutMinimum))
	assert.Equal(t, 10000, availableCents(t, f, providerID))
}

func TestCreatePayout_InsufficientBalance(t *testing.T) {
	f := setupPayoutsFixture(t)
	ctx := context.Background()
	providerID := uuid.New()
	seedBalance(t, f.db, providerID, 4000)

	_, err := f.svc.CreatePayout(ctx, CreatePayoutInput{ProviderID: providerID, AmountCents: 3500, FeeCents: 1000})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientBalance))

	// rolled back: no payout, no ledger rows, untouched balance
	var payoutCount, ledgerCount int64
	require.NoError(t, f.db.Model(&models.Payout{}).Count(&payoutCount).Error)
	require.NoError(t, f.db.Model(&models.LedgerEntry{}).Count(&ledgerCount).Error)
	assert.Zero(t, payoutCount)
	assert.Zero(t, ledgerCount)
	assert.Equal(t, 4000, availableCents(t, f, providerID))

	// unknown provider behaves the same as an empty balance
	_, err = f.svc.CreatePayout(ctx, CreatePayoutInput{ProviderID: uuid.New(), AmountCents: 100})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientBalance))
}

func TestUpdatePayoutStatus_FailedRefundsOnce(t *testing.T) {
	f := setupPayoutsFixture(t)
	ctx := context.Background()
	providerID := uuid.New()
	seedBalance(t, f.db, providerID, 10000)

	payout, err := f.svc.CreatePayout(ctx, CreatePayoutInput{ProviderID: providerID, AmountCents: 5000, FeeCents: 1000})
	require.NoError(t, err)
	require.Equal(t, 4000, availableCents(t, f, providerID))

	reason := "bank rejected transfer"
	updated, err := f.svc.UpdatePayoutStatus(ctx, UpdatePayoutStatusInput{
		PayoutID:      payout.ID,
		Status:        enums.PayoutStatusFailed,
		FailureReason: &reason,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusFailed, updated.Status)
	require.NotNil(t, updated.FailureReason)
	assert.Equal(t, reason, *updated.FailureReason)

	assert.Equal(t, 10000, availableCents(t, f, providerID))

	var reversals []models.LedgerEntry
	require.NoError(t, f.db.Where("type = ?", enums.LedgerEntryTypePayoutReversal).Find(&reversals).Error)
	require.Len(t, reversals, 1)
	assert.Equal(t, 6000, reversals[0].AmountCents)

	require.Len(t, f.alerts.events, 1)
	assert.Equal(t, payout.ID, f.alerts.events[0].PayoutID)
	assert.Equal(t, reason, f.alerts.events[0].Reason)

	// a second failure attempt must not refund again
	_, err = f.svc.UpdatePayoutStatus(ctx, UpdatePayoutStatusInput{
		PayoutID: payout.ID,
		Status:   enums.PayoutStatusFailed,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, 10000, availableCents(t, f, providerID))
	assert.Len(t, f.alerts.events, 1)
}

func TestUpdatePayoutStatus_PaidIsTerminal(t *testing.T) {
	f := setupPayoutsFixture(t)
	ctx := context.Background()
	providerID := uuid.New()
	seedBalance(t, f.db, providerID, 10000)

	payout, err := f.svc.CreatePayout(ctx, CreatePayoutInput{ProviderID: providerID, AmountCents: 5000})
	require.NoError(t, err)

	ref := "bank-tx-99"
	updated, err := f.svc.UpdatePayoutStatus(ctx, UpdatePayoutStatusInput{
		PayoutID:    payout.ID,
		Status:      enums.PayoutStatusPaid,
		ReferenceID: &ref,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusPaid, updated.Status)
	assert.NotNil(t, updated.ProcessedAt)

	// no balance change on PAID: still the post-creation value
	assert.Equal(t, 5000, availableCents(t, f, providerID))

	balance, err := f.balRepo.Find(ctx, providerID)
	require.NoError(t, err)
	assert.NotNil(t, balance.LastPayoutAt)

	_, err = f.svc.UpdatePayoutStatus(ctx, UpdatePayoutStatusInput{
		PayoutID: payout.ID,
		Status:   enums.PayoutStatusFailed,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, 5000, availableCents(t, f, providerID))
}

func TestUpdatePayoutStatus_Progress(t *testing.T) {
	f := setupPayoutsFixture(t)
	ctx := context.Background()
	providerID := uuid.New()
	seedBalance(t, f.db, providerID, 10000)

	payout, err := f.svc.CreatePayout(ctx, CreatePayoutInput{ProviderID: providerID, AmountCents: 5000})
	require.NoError(t, err)

	ref := "batch-17"
	updated, err := f.svc.UpdatePayoutStatus(ctx, UpdatePayoutStatusInput{
		PayoutID:    payout.ID,
		Status:      enums.PayoutStatusProcessing,
		ReferenceID: &ref,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusProcessing, updated.Status)
	require.NotNil(t, updated.ReferenceID)
	assert.Equal(t, ref, *updated.ReferenceID)
	assert.Equal(t, 5000, availableCents(t, f, providerID))

	_, err = f.svc.UpdatePayoutStatus(ctx, UpdatePayoutStatusInput{PayoutID: uuid.New(), Status: enums.PayoutStatusPaid})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestRunScheduledPayouts(t *testing.T) {
	f := setupPayoutsFixture(t)
	ctx := context.Background()

	require.NoError(t, f.db.Create(&models.CommissionConfig{
		ID:                   uuid.New(),
		Scope:                enums.CommissionScopePlatform,
		Mode:                 enums.CommissionModeHybrid,
		DeliveryFeeRecipient: enums.FeeRecipientPlatform,
		GatewayFeeRecipient:  enums.FeeRecipientPlatform,
		DiscountRule:         enums.DiscountRuleAfterDiscount,
		MinimumPayoutCents:   2000,
	}).Error)

	richProvider := uuid.New()
	poorProvider := uuid.New()
	seedBalance(t, f.db, richProvider, 8000)
	seedBalance(t, f.db, poorProvider, 500)

	results, err := f.svc.RunScheduledPayouts(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byProvider := map[uuid.UUID]ScheduledPayoutResult{}
	for _, r := range results {
		byProvider[r.ProviderID] = r
	}

	require.NotNil(t, byProvider[richProvider].PayoutID)
	assert.Empty(t, byProvider[richProvider].Skipped)
	assert.Zero(t, availableCents(t, f, richProvider))

	assert.Nil(t, byProvider[poorProvider].PayoutID)
	assert.Equal(t, string(pkgerrors.CodePayoutMinimum), byProvider[poorProvider].Skipped)
	assert.Equal(t, 500, availableCents(t, f, poorProvider))
}
