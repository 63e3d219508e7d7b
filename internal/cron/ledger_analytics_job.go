package cron

import (
	"context"
	"fmt"

	"github.com/Mnabil10/fasket-backend/pkg/logger"
)

type ledgerExporter interface {
	Export(ctx context.Context) (int, error)
}

// LedgerAnalyticsJobParams configure the analytics export job.
type LedgerAnalyticsJobParams struct {
	Logger   *logger.Logger
	Exporter ledgerExporter
}

// NewLedgerAnalyticsJob builds the cron job that ships new ledger entries to
// the analytics warehouse.
func NewLedgerAnalyticsJob(params LedgerAnalyticsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Exporter == nil {
		return nil, fmt.Errorf("ledger exporter required")
	}
	return &ledgerAnalyticsJob{logg: params.Logger, exporter: params.Exporter}, nil
}

type ledgerAnalyticsJob struct {
	logg     *logger.Logger
	exporter ledgerExporter
}

func (j *ledgerAnalyticsJob) Name() string { return "ledger-analytics" }

func (j *ledgerAnalyticsJob) Run(ctx context.Context) error {
	count, err := j.exporter.Export(ctx)
	logCtx := j.logg.WithField(ctx, "count", count)
	if err != nil {
		return fmt.Errorf("ledger analytics export: %w", err)
	}
	j.logg.Info(logCtx, "ledger analytics export complete")
	return nil
}
