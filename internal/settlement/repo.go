package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Mnabil10/fasket-backend/pkg/db/models"
)

// Repository owns the order_financials table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateFinancials(ctx context.Context, financials *models.OrderFinancials) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.OrderFinancials, error)
	ListMaturedHolds(ctx context.Context, providerID uuid.UUID, asOf time.Time) ([]models.OrderFinancials, error)
	ListProvidersWithMaturedHolds(ctx context.Context, asOf time.Time) ([]uuid.UUID, error)
	MarkReleased(ctx context.Context, ids []uuid.UUID, releasedAt time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a settlement repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateFinancials(ctx context.Context, financials *models.OrderFinancials) error {
	if financials.ID == uuid.Nil {
		financials.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(financials).Error
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.OrderFinancials, error) {
	var financials models.OrderFinancials
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&financials).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &financials, nil
}

func (r *repository) ListMaturedHolds(ctx context.Context, providerID uuid.UUID, asOf time.Time) ([]models.OrderFinancials, error) {
	var rows []models.OrderFinancials
	if err := r.db.WithContext(ctx).
		Where("provider_id = ? AND released_at IS NULL AND hold_until IS NOT NULL AND hold_until <= ?", providerID, asOf).
		Order("hold_until ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListProvidersWithMaturedHolds(ctx context.Context, asOf time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.OrderFinancials{}).
		Where("released_at IS NULL AND hold_until IS NOT NULL AND hold_until <= ?", asOf).
		Distinct("provider_id").
		Pluck("provider_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) MarkReleased(ctx context.Context, ids []uuid.UUID, releasedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.OrderFinancials{}).
		Where("id IN (?) AND released_at IS NULL", ids).
		Update("released_at", releasedAt).Error
}
