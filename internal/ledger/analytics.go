package ledger

import (
	"context"
	"errors"
	"io"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Mnabil10/fasket-backend/pkg/db/models"
	pkgerrors "github.com/Mnabil10/fasket-backend/pkg/errors"
	"github.com/Mnabil10/fasket-backend/pkg/logger"
)

const analyticsCursorName = "ledger-analytics"

type analyticsSink interface {
	LedgerTable() string
	InsertRows(ctx context.Context, table string, rows []any) error
}

type cursorStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CursorKey(name string) string
}

// Exporter ships new ledger entries to the analytics warehouse. The cursor
// tracks the created_at of the last exported row so repeated runs only ship
// the tail.
type Exporter struct {
	repo      Repository
	sink      analyticsSink
	cursors   cursorStore
	logg      *logger.Logger
	batchSize int
}

// ExporterParams carries analytics exporter dependencies.
type ExporterParams struct {
	Repo      Repository
	Sink      analyticsSink
	Cursors   cursorStore
	Logger    *logger.Logger
	BatchSize int
}

// NewExporter wires the analytics exporter.
func NewExporter(params ExporterParams) (*Exporter, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ledger repository required")
	}
	if params.Sink == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "analytics sink required")
	}
	if params.Cursors == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cursor store required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.New(logger.Options{ServiceName: "ledger-exporter", Output: io.Discard})
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = 500
	}
	return &Exporter{
		repo:      params.Repo,
		sink:      params.Sink,
		cursors:   params.Cursors,
		logg:      logg,
		batchSize: batch,
	}, nil
}

type ledgerRow struct {
	ID          string    `bigquery:"id"`
	ProviderID  string    `bigquery:"provider_id"`
	OrderID     string    `bigquery:"order_id"`
	PayoutID    string    `bigquery:"payout_id"`
	Type        string    `bigquery:"type"`
	AmountCents int       `bigquery:"amount_cents"`
	Currency    string    `bigquery:"currency"`
	CreatedAt   time.Time `bigquery:"created_at"`
}

// Export ships every ledger entry created after the stored cursor and
// advances the cursor past the last shipped row. Returns the number of rows
// exported.
func (e *Exporter) Export(ctx context.Context) (int, error) {
	cursor, err := e.loadCursor(ctx)
	if err != nil {
		return 0, err
	}

	exported := 0
	for {
		entries, err := e.repo.ListCreatedAfter(ctx, cursor, e.batchSize)
		if err != nil {
			return exported, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing ledger entries for analytics")
		}
		if len(entries) == 0 {
			break
		}

		rows := make([]any, 0, len(entries))
		for _, entry := range entries {
			rows = append(rows, toLedgerRow(entry))
		}
		if err := e.sink.InsertRows(ctx, e.sink.LedgerTable(), rows); err != nil {
			return exported, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inserting ledger rows")
		}

		cursor = entries[len(entries)-1].CreatedAt
		if err := e.saveCursor(ctx, cursor); err != nil {
			return exported, err
		}
		exported += len(entries)

		if len(entries) < e.batchSize {
			break
		}
	}

	if exported > 0 {
		e.logg.Info(e.logg.WithField(ctx, "count", exported), "exported ledger entries to analytics")
	}
	return exported, nil
}

func (e *Exporter) loadCursor(ctx context.Context) (time.Time, error) {
	raw, err := e.cursors.Get(ctx, e.cursors.CursorKey(analyticsCursorName))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading analytics cursor")
	}
	cursor, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		// A corrupt cursor restarts the export from the beginning; inserts
		// into the warehouse are idempotent per row id downstream.
		e.logg.Warn(e.logg.WithField(ctx, "cursor", raw), "analytics cursor unreadable, restarting export")
		return time.Time{}, nil
	}
	return cursor, nil
}

func (e *Exporter) saveCursor(ctx context.Context, cursor time.Time) error {
	value := cursor.UTC().Format(time.RFC3339Nano)
	if err := e.cursors.Set(ctx, e.cursors.CursorKey(analyticsCursorName), value, 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving analytics cursor")
	}
	return nil
}

func toLedgerRow(entry models.LedgerEntry) ledgerRow {
	row := ledgerRow{
		ID:          entry.ID.String(),
		ProviderID:  entry.ProviderID.String(),
		Type:        string(entry.Type),
		AmountCents: entry.AmountCents,
		Currency:    string(entry.Currency),
		CreatedAt:   entry.CreatedAt,
	}
	if entry.OrderID != nil {
		row.OrderID = entry.OrderID.String()
	}
	if entry.PayoutID != nil {
		row.PayoutID = entry.PayoutID.String()
	}
	return row
}
