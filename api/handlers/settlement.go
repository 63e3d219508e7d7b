package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Mnabil10/fasket-backend/api/responses"
	"github.com/Mnabil10/fasket-backend/internal/settlement"
	pkgerrors "github.com/Mnabil10/fasket-backend/pkg/errors"
	"github.com/Mnabil10/fasket-backend/pkg/logger"
)

// SettleOrder settles one delivered order. Safe to retry: a second call for
// the same order returns the stored snapshot.
func SettleOrder(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		financials, err := svc.SettleOrder(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if financials == nil {
			// Order exists but is not settleable (no provider attached).
			responses.WriteSuccessStatus(w, http.StatusNoContent, nil)
			return
		}
		responses.WriteSuccess(w, toOrderFinancialsResponse(financials))
	}
}

// ReleaseHolds releases every matured hold for one provider.
func ReleaseHolds(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		providerID, err := uuid.Parse(chi.URLParam(r, "providerID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid provider id"))
			return
		}

		result, err := svc.ReleaseMaturedHolds(ctx, providerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{
			"releasedCents": result.ReleasedCents,
			"count":         result.Count,
		})
	}
}
