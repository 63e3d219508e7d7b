package commission

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Mnabil10/fasket-backend/pkg/db/models"
	"github.com/Mnabil10/fasket-backend/pkg/enums"
)

// Repository handles commission config persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, config *models.CommissionConfig) error
	FindPlatformConfig(ctx context.Context) (*models.CommissionConfig, error)
	FindProviderConfig(ctx context.Context, providerID uuid.UUID) (*models.CommissionConfig, error)
	ListCategoryConfigs(ctx context.Context, categoryIDs []uuid.UUID) ([]models.CommissionConfig, error)
	ListProviderCategoryConfigs(ctx context.Context, providerID uuid.UUID, categoryIDs []uuid.UUID) ([]models.CommissionConfig, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a commission repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, config *models.CommissionConfig) error {
	return r.db.WithContext(ctx).Create(config).Error
}

func (r *repository) FindPlatformConfig(ctx context.Context) (*models.CommissionConfig, error) {
	var config models.CommissionConfig
	if err := r.db.WithContext(ctx).
		Where("scope = ?", enums.CommissionScopePlatform).
		First(&config).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

func (r *repository) FindProviderConfig(ctx context.Context, providerID uuid.UUID) (*models.CommissionConfig, error) {
	var config models.CommissionConfig
	if err := r.db.WithContext(ctx).
		Where("scope = ? AND provider_id = ?", enums.CommissionScopeProvider, providerID).
		First(&config).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

func (r *repository) ListCategoryConfigs(ctx context.Context, categoryIDs []uuid.UUID) ([]models.CommissionConfig, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	var configs []models.CommissionConfig
	if err := r.db.WithContext(ctx).
		Where("scope = ? AND category_id IN (?)", enums.CommissionScopeCategory, categoryIDs).
		Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *repository) ListProviderCategoryConfigs(ctx context.Context, providerID uuid.UUID, categoryIDs []uuid.UUID) ([]models.CommissionConfig, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	var configs []models.CommissionConfig
	if err := r.db.WithContext(ctx).
		Where("scope = ? AND provider_id = ? AND category_id IN (?)", enums.CommissionScopeProviderCategory, providerID, categoryIDs).
		Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}
