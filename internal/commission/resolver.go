package commission

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Mnabil10/fasket-backend/pkg/db/models"
	"github.com/Mnabil10/fasket-backend/pkg/enums"
)

// ResolvedConfigs is the outcome of a config lookup for one order: the base
// rule for the provider plus any category-level overrides keyed by category id.
// A category with no override falls back to Base at calculation time.
type ResolvedConfigs struct {
	Base              models.CommissionConfig
	CategoryOverrides map[uuid.UUID]models.CommissionConfig
}

// Resolver picks the commission rules that apply to a provider/category set.
type Resolver interface {
	ResolveConfigs(ctx context.Context, providerID uuid.UUID, categoryIDs []uuid.UUID) (*ResolvedConfigs, error)
}

type resolver struct {
	repo Repository
}

// NewResolver builds a read-only commission config resolver.
func NewResolver(repo Repository) (Resolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("commission repository required")
	}
	return &resolver{repo: repo}, nil
}

// DefaultConfig is the synthetic rule used when no config row exists at all:
// hybrid mode with no own rate (the plan fallback applies), commission taken
// on the discounted base, all fees kept by the platform, no hold.
func DefaultConfig() models.CommissionConfig {
	return models.CommissionConfig{
		Scope:                enums.CommissionScopePlatform,
		Mode:                 enums.CommissionModeHybrid,
		DeliveryFeeRecipient: enums.FeeRecipientPlatform,
		GatewayFeeRecipient:  enums.FeeRecipientPlatform,
		DiscountRule:         enums.DiscountRuleAfterDiscount,
	}
}

// ResolveConfigs returns the base config for the provider and per-category
// overrides. Precedence: PROVIDER over PLATFORM over the synthetic default for
// the base; PROVIDER_CATEGORY over CATEGORY for overrides.
func (r *resolver) ResolveConfigs(ctx context.Context, providerID uuid.UUID, categoryIDs []uuid.UUID) (*ResolvedConfigs, error) {
	base, err := r.resolveBase(ctx, providerID)
	if err != nil {
		return nil, err
	}

	distinct := dedupeCategoryIDs(categoryIDs)
	overrides := make(map[uuid.UUID]models.CommissionConfig, len(distinct))

	providerOverrides, err := r.repo.ListProviderCategoryConfigs(ctx, providerID, distinct)
	if err != nil {
		return nil, fmt.Errorf("listing provider category configs: %w", err)
	}
	categoryConfigs, err := r.repo.ListCategoryConfigs(ctx, distinct)
	if err != nil {
		return nil, fmt.Errorf("listing category configs: %w", err)
	}

	for _, config := range categoryConfigs {
		if config.CategoryID == nil {
			continue
		}
		overrides[*config.CategoryID] = config
	}
	// provider-scoped overrides win over plain category rows
	for _, config := range providerOverrides {
		if config.CategoryID == nil {
			continue
		}
		overrides[*config.CategoryID] = config
	}

	return &ResolvedConfigs{
		Base:              base,
		CategoryOverrides: overrides,
	}, nil
}

func (r *resolver) resolveBase(ctx context.Context, providerID uuid.UUID) (models.CommissionConfig, error) {
	if providerID != uuid.Nil {
		providerConfig, err := r.repo.FindProviderConfig(ctx, providerID)
		if err != nil {
			return models.CommissionConfig{}, fmt.Errorf("finding provider config: %w", err)
		}
		if providerConfig != nil {
			return *providerConfig, nil
		}
	}

	platformConfig, err := r.repo.FindPlatformConfig(ctx)
	if err != nil {
		return models.CommissionConfig{}, fmt.Errorf("finding platform config: %w", err)
	}
	if platformConfig != nil {
		return *platformConfig, nil
	}

	return DefaultConfig(), nil
}

func dedupeCategoryIDs(categoryIDs []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(categoryIDs))
	distinct := make([]uuid.UUID, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		distinct = append(distinct, id)
	}
	return distinct
}
