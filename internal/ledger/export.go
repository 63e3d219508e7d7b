package ledger

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Mnabil10/fasket-backend/pkg/db/models"
	pkgerrors "github.com/Mnabil10/fasket-backend/pkg/errors"
)

var csvHeader = []string{"date", "type", "orderId", "payoutId", "amountCents", "currency"}

// ExportCSV streams a provider's full statement for the given window as
// RFC4180 CSV. Pages through the ledger so arbitrarily large statements never
// load into memory at once.
func ExportCSV(ctx context.Context, repo Repository, w io.Writer, providerID uuid.UUID, from, to *time.Time) error {
	if providerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "provider id required")
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing csv header")
	}

	query := ListQuery{ProviderID: providerID, From: from, To: to, Limit: 100}
	for {
		rows, next, err := repo.ListByProvider(ctx, query)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing ledger entries for export")
		}
		for _, entry := range rows {
			if err := writer.Write(csvRecord(entry)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing csv record")
			}
		}
		if next == nil {
			break
		}
		query.Cursor = next
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "flushing csv output")
	}
	return nil
}

func csvRecord(entry models.LedgerEntry) []string {
	orderID := ""
	if entry.OrderID != nil {
		orderID = entry.OrderID.String()
	}
	payoutID := ""
	if entry.PayoutID != nil {
		payoutID = entry.PayoutID.String()
	}
	return []string{
		entry.CreatedAt.UTC().Format(time.RFC3339),
		string(entry.Type),
		orderID,
		payoutID,
		strconv.Itoa(entry.AmountCents),
		string(entry.Currency),
	}
}
