package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Mnabil10/fasket-backend/api/responses"
	"github.com/Mnabil10/fasket-backend/internal/commission"
	"github.com/Mnabil10/fasket-backend/pkg/db/models"
	"github.com/Mnabil10/fasket-backend/pkg/enums"
	pkgerrors "github.com/Mnabil10/fasket-backend/pkg/errors"
	"github.com/Mnabil10/fasket-backend/pkg/logger"
	"github.com/Mnabil10/fasket-backend/pkg/types"
)

type createCommissionConfigRequest struct {
	Scope                string             `json:"scope"`
	ProviderID           types.NullableUUID `json:"providerId"`
	CategoryID           types.NullableUUID `json:"categoryId"`
	Mode                 string             `json:"mode"`
	CommissionRateBps    *int               `json:"commissionRateBps"`
	MinCommissionCents   int                `json:"minCommissionCents"`
	MaxCommissionCents   *int               `json:"maxCommissionCents"`
	DeliveryFeeRecipient string             `json:"deliveryFeeRecipient"`
	GatewayFeeRecipient  string             `json:"gatewayFeeRecipient"`
	DiscountRule         string             `json:"discountRule"`
	GatewayFeeRateBps    int                `json:"gatewayFeeRateBps"`
	GatewayFeeFlatCents  int                `json:"gatewayFeeFlatCents"`
	PayoutHoldDays       int                `json:"payoutHoldDays"`
	MinimumPayoutCents   int                `json:"minimumPayoutCents"`
}

// CreateCommissionConfig inserts a commission rule at one scope. The unique
// scope tuple index rejects duplicate rules.
func CreateCommissionConfig(repo commission.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req createCommissionConfigRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid config request body"))
			return
		}

		config, err := configFromRequest(req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := repo.Create(ctx, config); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "creating commission config"))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"id": config.ID.String()})
	}
}

func configFromRequest(req createCommissionConfigRequest) (*models.CommissionConfig, error) {
	scope, err := enums.ParseCommissionScope(req.Scope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid scope")
	}
	mode, err := enums.ParseCommissionMode(req.Mode)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid mode")
	}
	deliveryRecipient, err := enums.ParseFeeRecipient(req.DeliveryFeeRecipient)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery fee recipient")
	}
	gatewayRecipient, err := enums.ParseFeeRecipient(req.GatewayFeeRecipient)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid gateway fee recipient")
	}
	rule, err := enums.ParseDiscountRule(req.DiscountRule)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount rule")
	}

	if req.CommissionRateBps != nil && (*req.CommissionRateBps < 0 || *req.CommissionRateBps > 10000) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission rate must be between 0 and 10000 bps")
	}

	needsProvider := scope == enums.CommissionScopeProvider || scope == enums.CommissionScopeProviderCategory
	if needsProvider && req.ProviderID.Value == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider id required for provider scopes")
	}
	needsCategory := scope == enums.CommissionScopeCategory || scope == enums.CommissionScopeProviderCategory
	if needsCategory && req.CategoryID.Value == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id required for category scopes")
	}

	return &models.CommissionConfig{
		Scope:                scope,
		ProviderID:           req.ProviderID.Value,
		CategoryID:           req.CategoryID.Value,
		Mode:                 mode,
		CommissionRateBps:    req.CommissionRateBps,
		MinCommissionCents:   req.MinCommissionCents,
		MaxCommissionCents:   req.MaxCommissionCents,
		DeliveryFeeRecipient: deliveryRecipient,
		GatewayFeeRecipient:  gatewayRecipient,
		DiscountRule:         rule,
		GatewayFeeRateBps:    req.GatewayFeeRateBps,
		GatewayFeeFlatCents:  req.GatewayFeeFlatCents,
		PayoutHoldDays:       req.PayoutHoldDays,
		MinimumPayoutCents:   req.MinimumPayoutCents,
	}, nil
}
