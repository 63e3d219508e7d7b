package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Mnabil10/fasket-backend/pkg/db/models"
	"github.com/Mnabil10/fasket-backend/pkg/pagination"
)

// Repository appends and reads transaction ledger rows. The ledger is
// append-only; there are deliberately no update or delete methods.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, entry *models.LedgerEntry) error
	ListByProvider(ctx context.Context, params ListQuery) ([]models.LedgerEntry, *pagination.Cursor, error)
	ListCreatedAfter(ctx context.Context, after time.Time, limit int) ([]models.LedgerEntry, error)
	SumByProvider(ctx context.Context, providerID uuid.UUID) (int, error)
}

// ListQuery configures provider statement queries.
type ListQuery struct {
	ProviderID uuid.UUID
	From       *time.Time
	To         *time.Time
	Limit      int
	Cursor     *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Append(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByProvider(ctx context.Context, params ListQuery) ([]models.LedgerEntry, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("provider_id = ?", params.ProviderID)
	if params.From != nil {
		query = query.Where("created_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("created_at < ?", *params.To)
	}
	if params.Cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID,
		)
	}

	var entries []models.LedgerEntry
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(limit + 1).
		Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return entries, next, nil
}

func (r *repository) ListCreatedAfter(ctx context.Context, after time.Time, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 500
	}
	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("created_at > ?", after).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// SumByProvider totals the signed entries for a provider; used to reconcile
// the ledger against the balance row.
func (r *repository) SumByProvider(ctx context.Context, providerID uuid.UUID) (int, error) {
	var sum *int
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("provider_id = ?", providerID).
		Select("SUM(amount_cents)").
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}
