package subscriptions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Mnabil10/fasket-backend/pkg/db/models"
	"github.com/Mnabil10/fasket-backend/pkg/enums"
)

// Repository reads provider subscriptions. Settlement only consumes the active
// plan's fallback commission rate and currency; plan CRUD lives elsewhere.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveForProvider(ctx context.Context, providerID uuid.UUID) (*models.Subscription, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a read-only subscription repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindActiveForProvider(ctx context.Context, providerID uuid.UUID) (*models.Subscription, error) {
	statuses := []enums.SubscriptionStatus{
		enums.SubscriptionStatusTrialing,
		enums.SubscriptionStatusActive,
	}

	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("provider_id = ? AND status IN (?)", providerID, statuses).
		Order("created_at DESC").
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// PlanFallback extracts the plan-level fallback rate and currency from a
// subscription, tolerating a missing plan row.
func PlanFallback(sub *models.Subscription) (rateBps int, currency enums.Currency) {
	if sub == nil || sub.Plan == nil {
		return 0, ""
	}
	return sub.Plan.CommissionRateBps, sub.Plan.Currency
}
