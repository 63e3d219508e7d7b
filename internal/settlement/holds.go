package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Mnabil10/fasket-backend/pkg/db/models"
	"github.com/Mnabil10/fasket-backend/pkg/enums"
	pkgerrors "github.com/Mnabil10/fasket-backend/pkg/errors"
)

// ReleaseResult summarizes one hold release pass.
type ReleaseResult struct {
	ReleasedCents int
	Count         int
}

// ReleaseMaturedHolds moves every matured hold for the provider from pending
// to available in one transaction, stamping released_at and writing one
// HOLD_RELEASE ledger entry per settlement so each order stays individually
// auditable. Re-entrant: nothing matured means a zero result, not an error.
func (s *service) ReleaseMaturedHolds(ctx context.Context, providerID uuid.UUID) (ReleaseResult, error) {
	if providerID == uuid.Nil {
		return ReleaseResult{}, pkgerrors.New(pkgerrors.CodeValidation, "provider id required")
	}
	ctx = s.logg.WithProviderID(ctx, providerID.String())
	now := time.Now().UTC()

	var result ReleaseResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		matured, err := repo.ListMaturedHolds(ctx, providerID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing matured holds")
		}
		if len(matured) == 0 {
			return nil
		}

		total := 0
		ids := make([]uuid.UUID, 0, len(matured))
		for _, row := range matured {
			total += row.VendorNetCents
			ids = append(ids, row.ID)
		}

		ok, err := s.balances.WithTx(tx).ReleaseHold(ctx, providerID, total)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "moving pending to available")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "pending balance below matured hold total")
		}

		if err := repo.MarkReleased(ctx, ids, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stamping released holds")
		}

		ledgerRepo := s.ledger.WithTx(tx)
		for _, row := range matured {
			orderID := row.OrderID
			if err := ledgerRepo.Append(ctx, &models.LedgerEntry{
				ProviderID:  providerID,
				OrderID:     &orderID,
				Type:        enums.LedgerEntryTypeHoldRelease,
				AmountCents: row.VendorNetCents,
				Currency:    row.Currency,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing hold release ledger entry")
			}
		}

		result = ReleaseResult{ReleasedCents: total, Count: len(matured)}
		return nil
	})
	if err != nil {
		return ReleaseResult{}, err
	}

	if result.Count > 0 {
		s.metrics.RecordHoldRelease(result.Count)
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"released_cents": result.ReleasedCents,
			"count":          result.Count,
		}), "matured holds released")
	}
	return result, nil
}

// ReleaseAllMaturedHolds runs the per-provider release for every provider that
// currently has matured holds. Used by the scheduled job; one provider's
// failure does not stop the sweep.
func (s *service) ReleaseAllMaturedHolds(ctx context.Context) (ReleaseResult, error) {
	providerIDs, err := s.repo.ListProvidersWithMaturedHolds(ctx, time.Now().UTC())
	if err != nil {
		return ReleaseResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing providers with matured holds")
	}

	var total ReleaseResult
	var firstErr error
	for _, providerID := range providerIDs {
		result, err := s.ReleaseMaturedHolds(ctx, providerID)
		if err != nil {
			s.logg.Error(s.logg.WithProviderID(ctx, providerID.String()), "releasing matured holds failed", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		total.ReleasedCents += result.ReleasedCents
		total.Count += result.Count
	}
	return total, firstErr
}
