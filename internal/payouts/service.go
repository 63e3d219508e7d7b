package payouts

import (
	"context"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/multierr"
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
	"github.com/Mnabil10/fasket-backend/pkg/logger"
	"github.com/Mnabil10/fasket-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// holdReleaser is the slice of the settlement service payouts need: maturing
// holds right before a payout so the freshest available balance is used.
type holdReleaser interface {
	ReleaseMaturedHolds(ctx context.Context, providerID uuid.UUID) (settlement.ReleaseResult, error)
}

// Service governs the payout lifecycle: request and debit, state transitions,
// refund on failure, and the scheduled batch sweep.
type Service interface {
	CreatePayout(ctx context.Context, input CreatePayoutInput) (*models.Payout, error)
	UpdatePayoutStatus(ctx context.Context, input UpdatePayoutStatusInput) (*models.Payout, error)
	RunScheduledPayouts(ctx context.Context) ([]ScheduledPayoutResult, error)
}

// CreatePayoutInput is a payout request. Funds are reserved immediately at
// creation, not when the payout is confirmed.
type CreatePayoutInput struct {
	ProviderID  uuid.UUID `validate:"required"`
	AmountCents int       `validate:"required,gt=0"`
	FeeCents    int       `validate:"gte=0"`
	ReferenceID *string
}

// UpdatePayoutStatusInput moves a payout through its state machine.
type UpdatePayoutStatusInput struct {
	PayoutID      uuid.UUID
	Status        enums.PayoutStatus
	ReferenceID   *string
	FailureReason *string
}

// ScheduledPayoutResult reports one provider's outcome from the batch sweep.
type ScheduledPayoutResult struct {
	ProviderID uuid.UUID  `json:"provider_id"`
	PayoutID   *uuid.UUID `json:"payout_id,omitempty"`
	Skipped    string     `json:"skipped,omitempty"`
}

// ServiceParams groups dependencies for the payouts service.
type ServiceParams struct {
	Repo            Repository
	Balances        balances.Repository
	Ledger          ledger.Repository
	Resolver        commission.Resolver
	Subscriptions   subscriptions.Repository
	Holds           holdReleaser
	Alerts          alerts.Service
	Tx              txRunner
	Logger          *logger.Logger
	Metrics         *metrics.SettlementMetrics
	DefaultCurrency enums.Currency
}

type service struct {
	repo            Repository
	balances        balances.Repository
	ledger          ledger.Repository
	resolver        commission.Resolver
	subscriptions   subscriptions.Repository
	holds           holdReleaser
	alerts          alerts.Service
	tx              txRunner
	logg            *logger.Logger
	metrics         *metrics.SettlementMetrics
	validate        *validator.Validate
	defaultCurrency enums.Currency
}

// NewService builds the payouts service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payouts repository required")
	}
	if params.Balances == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "balances repository required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ledger repository required")
	}
	if params.Resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "commission resolver required")
	}
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "subscriptions repository required")
	}
	if params.Holds == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "hold releaser required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.New(logger.Options{ServiceName: "payouts", Output: io.Discard})
	}
	alertsSvc := params.Alerts
	if alertsSvc == nil {
		alertsSvc = alerts.NewService(nil, logg)
	}
	currency := params.DefaultCurrency
	if currency == "" {
		currency = enums.CurrencyEGP
	}
	return &service{
		repo:            params.Repo,
		balances:        params.Balances,
		ledger:          params.Ledger,
		resolver:        params.Resolver,
		subscriptions:   params.Subscriptions,
		holds:           params.Holds,
		alerts:          alertsSvc,
		tx:              params.Tx,
		logg:            logg,
		metrics:         params.Metrics,
		validate:        validator.New(),
		defaultCurrency: currency,
	}, nil
}

// CreatePayout reserves amount+fee from the provider's available balance and
// opens a PENDING payout. No partial payouts: the debit either covers the full
// request or the request fails.
func (s *service) CreatePayout(ctx context.Context, input CreatePayoutInput) (*models.Payout, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payout request")
	}
	ctx = s.logg.WithProviderID(ctx, input.ProviderID.String())

	// mature holds first so funds that became withdrawable count
	if _, err := s.holds.ReleaseMaturedHolds(ctx, input.ProviderID); err != nil {
		return nil, err
	}

	resolved, err := s.resolver.ResolveConfigs(ctx, input.ProviderID, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving payout config")
	}
	// the minimum applies to the requested amount, not amount net of fee
	if input.AmountCents < resolved.Base.MinimumPayoutCents {
		return nil, pkgerrors.New(pkgerrors.CodePayoutMinimum, "payout amount below configured minimum").
			WithDetails(map[string]int{
				"amount_cents":  input.AmountCents,
				"minimum_cents": resolved.Base.MinimumPayoutCents,
			})
	}

	currency, err := s.payoutCurrency(ctx, input.ProviderID)
	if err != nil {
		return nil, err
	}

	payout := &models.Payout{
		ID:          uuid.New(),
		ProviderID:  input.ProviderID,
		AmountCents: input.AmountCents,
		FeeCents:    input.FeeCents,
		Currency:    currency,
		Status:      enums.PayoutStatusPending,
		ReferenceID: input.ReferenceID,
	}

	total := input.AmountCents + input.FeeCents
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.balances.WithTx(tx).DebitAvailable(ctx, input.ProviderID, total)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debiting available balance")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "available balance below payout amount plus fee")
		}

		if err := s.repo.WithTx(tx).Create(ctx, payout); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating payout")
		}

		ledgerRepo := s.ledger.WithTx(tx)
		if err := ledgerRepo.Append(ctx, &models.LedgerEntry{
			ProviderID:  input.ProviderID,
			PayoutID:    &payout.ID,
			Type:        enums.LedgerEntryTypePayout,
			AmountCents: -input.AmountCents,
			Currency:    payout.Currency,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "writing payout ledger entry")
		}
		if input.FeeCents > 0 {
			if err := ledgerRepo.Append(ctx, &models.LedgerEntry{
				ProviderID:  input.ProviderID,
				PayoutID:    &payout.ID,
				Type:        enums.LedgerEntryTypePayoutFee,
				AmountCents: -input.FeeCents,
				Currency:    payout.Currency,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "writing payout fee ledger entry")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPayoutCreated()
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"payout_id":    payout.ID.String(),
		"amount_cents": input.AmountCents,
		"fee_cents":    input.FeeCents,
	}), "payout created")
	return payout, nil
}

// payoutCurrency follows the same derivation as settlement: the provider's
// active plan currency, falling back to the configured default. Payout and
// reversal ledger entries then match the settlement entries they offset.
func (s *service) payoutCurrency(ctx context.Context, providerID uuid.UUID) (enums.Currency, error) {
	sub, err := s.subscriptions.FindActiveForProvider(ctx, providerID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading subscription")
	}
	_, currency := subscriptions.PlanFallback(sub)
	if currency == "" {
		currency = s.defaultCurrency
	}
	return currency, nil
}

// UpdatePayoutStatus applies one transition of the payout state machine.
// PAID is terminal; FAILED refunds amount+fee exactly once and emits an admin
// alert. The repository's status guard ensures a concurrent transition loses
// cleanly instead of refunding twice.
func (s *service) UpdatePayoutStatus(ctx context.Context, input UpdatePayoutStatusInput) (*models.Payout, error) {
	if input.PayoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payout status")
	}
	ctx = s.logg.WithPayoutID(ctx, input.PayoutID.String())

	payout, err := s.repo.FindByID(ctx, input.PayoutID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading payout")
	}
	if payout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
	}
	if payout.Status == enums.PayoutStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payout already paid")
	}
	if payout.Status == enums.PayoutStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payout already failed")
	}

	switch input.Status {
	case enums.PayoutStatusPaid:
		err = s.markPaid(ctx, payout, input)
	case enums.PayoutStatusFailed:
		err = s.markFailed(ctx, payout, input)
	default:
		err = s.markProgress(ctx, payout, input)
	}
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByID(ctx, input.PayoutID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "re-loading payout")
	}
	return updated, nil
}

func (s *service) markPaid(ctx context.Context, payout *models.Payout, input UpdatePayoutStatusInput) error {
	now := time.Now().UTC()
	updates := map[string]any{
		"status":       enums.PayoutStatusPaid,
		"processed_at": now,
	}
	if input.ReferenceID != nil {
		updates["reference_id"] = *input.ReferenceID
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).TransitionStatus(ctx, payout.ID, payout.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking payout paid")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payout status changed concurrently")
		}
		// balance already debited at creation; only the payout stamp moves
		return s.balances.WithTx(tx).StampLastPayout(ctx, payout.ProviderID, now)
	})
}

func (s *service) markFailed(ctx context.Context, payout *models.Payout, input UpdatePayoutStatusInput) error {
	refund := payout.AmountCents + payout.FeeCents
	updates := map[string]any{
		"status": enums.PayoutStatusFailed,
	}
	if input.FailureReason != nil {
		updates["failure_reason"] = *input.FailureReason
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).TransitionStatus(ctx, payout.ID, payout.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking payout failed")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payout status changed concurrently")
		}

		if err := s.balances.WithTx(tx).CreditAvailable(ctx, payout.ProviderID, refund); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refunding payout")
		}

		return s.ledger.WithTx(tx).Append(ctx, &models.LedgerEntry{
			ProviderID:  payout.ProviderID,
			PayoutID:    &payout.ID,
			Type:        enums.LedgerEntryTypePayoutReversal,
			AmountCents: refund,
			Currency:    payout.Currency,
		})
	})
	if err != nil {
		return err
	}

	s.metrics.RecordPayoutFailed()

	reason := ""
	if input.FailureReason != nil {
		reason = *input.FailureReason
	}
	if alertErr := s.alerts.PayoutFailed(ctx, alerts.PayoutFailureEvent{
		PayoutID:    payout.ID,
		ProviderID:  payout.ProviderID,
		AmountCents: payout.AmountCents,
		Currency:    payout.Currency,
		Reason:      reason,
	}); alertErr != nil {
		// the refund is committed; a lost alert is not worth failing the call
		s.logg.Error(ctx, "emitting payout failure alert", alertErr)
	}
	return nil
}

func (s *service) markProgress(ctx context.Context, payout *models.Payout, input UpdatePayoutStatusInput) error {
	updates := map[string]any{
		"status": input.Status,
	}
	if input.ReferenceID != nil {
		updates["reference_id"] = *input.ReferenceID
	}

	ok, err := s.repo.TransitionStatus(ctx, payout.ID, payout.Status, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating payout status")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payout status changed concurrently")
	}
	return nil
}

// RunScheduledPayouts sweeps every provider with withdrawable funds into a
// payout request. One provider failing, for any reason, never aborts the rest
// of the batch.
func (s *service) RunScheduledPayouts(ctx context.Context) ([]ScheduledPayoutResult, error) {
	rows, err := s.balances.ListWithAvailable(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing balances for scheduled payouts")
	}

	results := make([]ScheduledPayoutResult, 0, len(rows))
	var errs error
	for _, row := range rows {
		payout, err := s.CreatePayout(ctx, CreatePayoutInput{
			ProviderID:  row.ProviderID,
			AmountCents: row.AvailableCents,
		})
		if err != nil {
			results = append(results, ScheduledPayoutResult{
				ProviderID: row.ProviderID,
				Skipped:    skipReason(err),
			})
			if !isExpectedSkip(err) {
				errs = multierr.Append(errs, err)
			}
			continue
		}
		results = append(results, ScheduledPayoutResult{
			ProviderID: row.ProviderID,
			PayoutID:   &payout.ID,
		})
	}
	if errs != nil {
		s.logg.Error(ctx, "scheduled payout sweep finished with failures", errs)
	}
	return results, errs
}

func skipReason(err error) string {
	if appErr := pkgerrors.As(err); appErr != nil {
		return string(appErr.Code())
	}
	return err.Error()
}

// isExpectedSkip separates business outcomes (below minimum, race on balance)
// from real faults worth surfacing to the job runner.
func isExpectedSkip(err error) bool {
	return pkgerrors.HasCode(err, pkgerrors.CodePayoutMinimum) ||
		pkgerrors.HasCode(err, pkgerrors.CodeInsufficientBalance) ||
		pkgerrors.HasCode(err, pkgerrors.CodeValidation)
}
