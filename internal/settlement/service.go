package settlement

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Mnabil10/fasket-backend/internal/balances"
	"github.com/Mnabil10/fasket-backend/internal/commission"
	"github.com/Mnabil10/fasket-backend/internal/ledger"
	"github.com/Mnabil10/fasket-backend/internal/orders"
	"github.com/Mnabil10/fasket-backend/internal/subscriptions"
	"github.com/Mnabil10/fasket-backend/pkg/db"
	"github.com/Mnabil10/fasket-backend/pkg/db/models"
	"github.com/Mnabil10/fasket-backend/pkg/enums"
	pkgerrors "github.com/Mnabil10/fasket-backend/pkg/errors"
	"github.com/Mnabil10/fasket-backend/pkg/logger"
	"github.com/Mnabil10/fasket-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service settles delivered orders: it computes the financial breakdown once
// per order and applies it to the financials, balance and ledger tables in a
// single transaction.
type Service interface {
	SettleOrder(ctx context.Context, orderID uuid.UUID) (*models.OrderFinancials, error)
	ReleaseMaturedHolds(ctx context.Context, providerID uuid.UUID) (ReleaseResult, error)
	ReleaseAllMaturedHolds(ctx context.Context) (ReleaseResult, error)
}

// ServiceParams groups dependencies for the settlement service.
type ServiceParams struct {
	Repo            Repository
	Orders          orders.Repository
	Subscriptions   subscriptions.Repository
	Resolver        commission.Resolver
	Balances        balances.Repository
	Ledger          ledger.Repository
	Tx              txRunner
	Logger          *logger.Logger
	Metrics         *metrics.SettlementMetrics
	DefaultCurrency enums.Currency
}

type service struct {
	repo            Repository
	orders          orders.Repository
	subscriptions   subscriptions.Repository
	resolver        commission.Resolver
	balances        balances.Repository
	ledger          ledger.Repository
	tx              txRunner
	logg            *logger.Logger
	metrics         *metrics.SettlementMetrics
	defaultCurrency enums.Currency
}

// NewService builds the settlement service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement repository required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscriptions repository required")
	}
	if params.Resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "commission resolver required")
	}
	if params.Balances == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "balances repository required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	currency := params.DefaultCurrency
	if currency == "" {
		currency = enums.CurrencyEGP
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.New(logger.Options{ServiceName: "settlement", Output: io.Discard})
	}
	return &service{
		repo:            params.Repo,
		orders:          params.Orders,
		subscriptions:   params.Subscriptions,
		resolver:        params.Resolver,
		balances:        params.Balances,
		ledger:          params.Ledger,
		tx:              params.Tx,
		logg:            logg,
		metrics:         params.Metrics,
		defaultCurrency: currency,
	}, nil
}

// settlementAudit is persisted as financials metadata and mirrored onto the
// ORDER_SETTLEMENT ledger entry.
type settlementAudit struct {
	FallbackRateBps int                 `json:"fallback_rate_bps"`
	DiscountRule    enums.DiscountRule  `json:"discount_rule"`
	DeliveryFeeTo   enums.FeeRecipient  `json:"delivery_fee_to"`
	GatewayFeeTo    enums.FeeRecipient  `json:"gateway_fee_to"`
	GatewayFeeCents int                 `json:"gateway_fee_cents"`
	HoldDays        int                 `json:"hold_days"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
}

// SettleOrder computes and records financials for a delivered order, exactly
// once. A second call, sequential or concurrent, returns the existing row
// without touching the balance or ledger again.
func (s *service) SettleOrder(ctx context.Context, orderID uuid.UUID) (*models.OrderFinancials, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	existing, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading existing financials")
	}
	if existing != nil {
		return existing, nil
	}

	order, err := s.orders.FindOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Status != enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is not delivered")
	}
	if order.ProviderID == nil {
		// nothing to settle: marketplace-owned order with no vendor
		return nil, nil
	}
	providerID := *order.ProviderID
	ctx = s.logg.WithProviderID(ctx, providerID.String())

	sub, err := s.subscriptions.FindActiveForProvider(ctx, providerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading subscription")
	}
	fallbackRate, currency := subscriptions.PlanFallback(sub)
	if currency == "" {
		currency = s.defaultCurrency
	}

	resolved, err := s.resolver.ResolveConfigs(ctx, providerID, categoryIDs(order.LineItems))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolving commission configs")
	}

	fin := CalculateOrderFinancials(order, order.LineItems, fallbackRate, resolved)

	now := time.Now().UTC()
	var holdUntil *time.Time
	if resolved.Base.PayoutHoldDays > 0 {
		h := now.Add(time.Duration(resolved.Base.PayoutHoldDays) * 24 * time.Hour)
		holdUntil = &h
	}

	metadata, err := json.Marshal(settlementAudit{
		FallbackRateBps: fallbackRate,
		DiscountRule:    resolved.Base.DiscountRule,
		DeliveryFeeTo:   resolved.Base.DeliveryFeeRecipient,
		GatewayFeeTo:    resolved.Base.GatewayFeeRecipient,
		GatewayFeeCents: fin.GatewayFeeCents,
		HoldDays:        resolved.Base.PayoutHoldDays,
		PaymentMethod:   order.PaymentMethod,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding settlement metadata")
	}

	financials := &models.OrderFinancials{
		ID:                          uuid.New(),
		OrderID:                     orderID,
		ProviderID:                  providerID,
		Currency:                    currency,
		SubtotalCents:               fin.SubtotalCents,
		DeliveryFeeCents:            fin.DeliveryFeeCents,
		ServiceFeeCents:             fin.ServiceFeeCents,
		DiscountCents:               fin.DiscountCents,
		GatewayFeeCents:             fin.GatewayFeeCents,
		CommissionCents:             fin.CommissionCents,
		CommissionEligibleBaseCents: fin.CommissionEligibleBaseCents,
		VendorNetCents:              fin.VendorNetCents,
		PlatformRevenueCents:        fin.PlatformRevenueCents,
		HoldUntil:                   holdUntil,
		SettledAt:                   now,
		Metadata:                    metadata,
	}

	lostRace := false
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateFinancials(ctx, financials); err != nil {
			if db.IsUniqueViolation(err, "idx_order_financials_order_id") {
				// concurrent settlement won; no balance or ledger writes here
				lostRace = true
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "inserting order financials")
		}

		if err := s.balances.WithTx(tx).ApplySettlement(ctx, balances.SettlementDelta{
			ProviderID:      providerID,
			VendorNetCents:  fin.VendorNetCents,
			SubtotalCents:   fin.SubtotalCents,
			CommissionCents: fin.CommissionCents,
			Held:            holdUntil != nil,
			SettledAt:       now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "applying balance settlement")
		}

		return s.ledger.WithTx(tx).Append(ctx, &models.LedgerEntry{
			ProviderID:  providerID,
			OrderID:     &orderID,
			Type:        enums.LedgerEntryTypeOrderSettlement,
			AmountCents: fin.VendorNetCents,
			Currency:    currency,
			Metadata:    metadata,
		})
	})
	if err != nil {
		return nil, err
	}

	if lostRace {
		winner, err := s.repo.FindByOrderID(ctx, orderID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "re-reading financials after settlement race")
		}
		return winner, nil
	}

	s.metrics.RecordSettlement(fin.VendorNetCents)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"vendor_net_cents": fin.VendorNetCents,
		"commission_cents": fin.CommissionCents,
		"held":             holdUntil != nil,
	}), "order settled")

	return financials, nil
}

func categoryIDs(items []models.OrderLineItem) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if item.CategoryID != nil {
			ids = append(ids, *item.CategoryID)
		}
	}
	return ids
}
