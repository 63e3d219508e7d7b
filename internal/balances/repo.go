package balances

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Mnabil10/fasket-backend/pkg/db/models"
)

// Repository owns vendor balance rows. Every mutation is an atomic SQL
// increment or a guarded decrement; balances are never read-modify-written in
// application code, so concurrent settlements and payouts cannot lose updates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, providerID uuid.UUID) (*models.VendorBalance, error)
	ListWithAvailable(ctx context.Context) ([]models.VendorBalance, error)
	ApplySettlement(ctx context.Context, input SettlementDelta) error
	ReleaseHold(ctx context.Context, providerID uuid.UUID, amountCents int) (bool, error)
	DebitAvailable(ctx context.Context, providerID uuid.UUID, amountCents int) (bool, error)
	CreditAvailable(ctx context.Context, providerID uuid.UUID, amountCents int) error
	StampLastPayout(ctx context.Context, providerID uuid.UUID, at time.Time) error
}

// SettlementDelta carries the per-order increments applied to a balance when
// an order settles. Held earnings land in pending, unheld in available.
type SettlementDelta struct {
	ProviderID      uuid.UUID
	VendorNetCents  int
	SubtotalCents   int
	CommissionCents int
	Held            bool
	SettledAt       time.Time
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a vendor balance repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Find(ctx context.Context, providerID uuid.UUID) (*models.VendorBalance, error) {
	var balance models.VendorBalance
	if err := r.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		First(&balance).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &balance, nil
}

func (r *repository) ListWithAvailable(ctx context.Context) ([]models.VendorBalance, error) {
	var rows []models.VendorBalance
	if err := r.db.WithContext(ctx).
		Where("available_cents > 0").
		Order("provider_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ApplySettlement lazily creates the balance row on first settlement and
// otherwise increments it in place via ON CONFLICT.
func (r *repository) ApplySettlement(ctx context.Context, input SettlementDelta) error {
	availableDelta := input.VendorNetCents
	pendingDelta := 0
	if input.Held {
		availableDelta = 0
		pendingDelta = input.VendorNetCents
	}

	settledAt := input.SettledAt
	row := &models.VendorBalance{
		ID:                      uuid.New(),
		ProviderID:              input.ProviderID,
		AvailableCents:          availableDelta,
		PendingCents:            pendingDelta,
		LifetimeSalesCents:      input.SubtotalCents,
		LifetimeCommissionCents: input.CommissionCents,
		LifetimeEarningsCents:   input.VendorNetCents,
		LastSettlementAt:        &settledAt,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"available_cents":           gorm.Expr("available_cents + ?", availableDelta),
			"pending_cents":             gorm.Expr("pending_cents + ?", pendingDelta),
			"lifetime_sales_cents":      gorm.Expr("lifetime_sales_cents + ?", input.SubtotalCents),
			"lifetime_commission_cents": gorm.Expr("lifetime_commission_cents + ?", input.CommissionCents),
			"lifetime_earnings_cents":   gorm.Expr("lifetime_earnings_cents + ?", input.VendorNetCents),
			"last_settlement_at":        settledAt,
			"updated_at":                time.Now().UTC(),
		}),
	}).Create(row).Error
}

// ReleaseHold moves matured cents from pending to available. Returns false
// when the pending balance no longer covers the amount.
func (r *repository) ReleaseHold(ctx context.Context, providerID uuid.UUID, amountCents int) (bool, error) {
	if amountCents <= 0 {
		return true, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.VendorBalance{}).
		Where("provider_id = ? AND pending_cents >= ?", providerID, amountCents).
		Updates(map[string]any{
			"pending_cents":   gorm.Expr("pending_cents - ?", amountCents),
			"available_cents": gorm.Expr("available_cents + ?", amountCents),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DebitAvailable reserves funds for a payout. The available_cents guard in the
// WHERE clause is what keeps the balance from ever going negative under
// concurrent debits.
func (r *repository) DebitAvailable(ctx context.Context, providerID uuid.UUID, amountCents int) (bool, error) {
	if amountCents <= 0 {
		return false, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.VendorBalance{}).
		Where("provider_id = ? AND available_cents >= ?", providerID, amountCents).
		Update("available_cents", gorm.Expr("available_cents - ?", amountCents))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) CreditAvailable(ctx context.Context, providerID uuid.UUID, amountCents int) error {
	if amountCents <= 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.VendorBalance{}).
		Where("provider_id = ?", providerID).
		Update("available_cents", gorm.Expr("available_cents + ?", amountCents)).Error
}

func (r *repository) StampLastPayout(ctx context.Context, providerID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.VendorBalance{}).
		Where("provider_id = ?", providerID).
		Update("last_payout_at", at).Error
}
