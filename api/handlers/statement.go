package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Mnabil10/fasket-backend/api/responses"
	"github.com/Mnabil10/fasket-backend/internal/balances"
	"github.com/Mnabil10/fasket-backend/internal/ledger"
	pkgerrors "github.com/Mnabil10/fasket-backend/pkg/errors"
	"github.com/Mnabil10/fasket-backend/pkg/logger"
)

// Statement returns one page of a provider's ledger statement.
func Statement(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		providerID, err := uuid.Parse(chi.URLParam(r, "providerID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid provider id"))
			return
		}

		query, err := statementQuery(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Statement(ctx, ledger.StatementParams{
			ProviderID: providerID,
			Query:      query,
			Cursor:     r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"items":  toLedgerEntryResponses(result.Items),
			"cursor": result.Cursor,
		})
	}
}

// StatementCSV streams the full statement for a window as a CSV download.
func StatementCSV(repo ledger.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		providerID, err := uuid.Parse(chi.URLParam(r, "providerID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid provider id"))
			return
		}

		query, err := statementQuery(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="statement.csv"`)
		if err := ledger.ExportCSV(ctx, repo, w, providerID, query.From, query.To); err != nil {
			// Headers may already be written; log instead of re-encoding.
			logg.Error(ctx, "statement csv export failed", err)
		}
	}
}

// Balance returns the provider's current balance snapshot.
func Balance(repo balances.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		providerID, err := uuid.Parse(chi.URLParam(r, "providerID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid provider id"))
			return
		}

		balance, err := repo.Find(ctx, providerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading balance"))
			return
		}
		if balance == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no balance for provider"))
			return
		}
		responses.WriteSuccess(w, toBalanceResponse(balance))
	}
}

func statementQuery(r *http.Request) (ledger.ListQuery, error) {
	query := ledger.ListQuery{}
	params := r.URL.Query()

	if raw := params.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return query, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from timestamp")
		}
		query.From = &from
	}
	if raw := params.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return query, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid to timestamp")
		}
		query.To = &to
	}
	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return query, pkgerrors.New(pkgerrors.CodeValidation, "invalid limit")
		}
		query.Limit = limit
	}
	return query, nil
}
