package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Mnabil10/fasket-backend/api/responses"
	"github.com/Mnabil10/fasket-backend/internal/payouts"
	"github.com/Mnabil10/fasket-backend/pkg/enums"
	pkgerrors "github.com/Mnabil10/fasket-backend/pkg/errors"
	"github.com/Mnabil10/fasket-backend/pkg/logger"
)

type createPayoutRequest struct {
	ProviderID  uuid.UUID `json:"providerId"`
	AmountCents int       `json:"amountCents"`
	FeeCents    int       `json:"feeCents"`
	ReferenceID *string   `json:"referenceId"`
}

func CreatePayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req createPayoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payout request body"))
			return
		}

		payout, err := svc.CreatePayout(ctx, payouts.CreatePayoutInput{
			ProviderID:  req.ProviderID,
			AmountCents: req.AmountCents,
			FeeCents:    req.FeeCents,
			ReferenceID: req.ReferenceID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toPayoutResponse(payout))
	}
}

type updatePayoutStatusRequest struct {
	Status        string  `json:"status"`
	ReferenceID   *string `json:"referenceId"`
	FailureReason *string `json:"failureReason"`
}

func UpdatePayoutStatus(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		payoutID, err := uuid.Parse(chi.URLParam(r, "payoutID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid payout id"))
			return
		}

		var req updatePayoutStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status request body"))
			return
		}
		status, err := enums.ParsePayoutStatus(req.Status)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payout status"))
			return
		}

		payout, err := svc.UpdatePayoutStatus(ctx, payouts.UpdatePayoutStatusInput{
			PayoutID:      payoutID,
			Status:        status,
			ReferenceID:   req.ReferenceID,
			FailureReason: req.FailureReason,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPayoutResponse(payout))
	}
}
