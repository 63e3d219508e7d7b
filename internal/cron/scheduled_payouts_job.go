package cron

import (
	"context"
	"fmt"

	"github.com/Mnabil10/fasket-backend/internal/payouts"
	"github.com/Mnabil10/fasket-backend/pkg/logger"
)

type payoutSweeper interface {
	RunScheduledPayouts(ctx context.Context) ([]payouts.ScheduledPayoutResult, error)
}

// ScheduledPayoutsJobParams configure the payout sweep job.
type ScheduledPayoutsJobParams struct {
	Logger  *logger.Logger
	Payouts payoutSweeper
}

// NewScheduledPayoutsJob builds the cron job that sweeps withdrawable
// balances into pending payouts.
func NewScheduledPayoutsJob(params ScheduledPayoutsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payouts == nil {
		return nil, fmt.Errorf("payouts service required")
	}
	return &scheduledPayoutsJob{logg: params.Logger, payouts: params.Payouts}, nil
}

type scheduledPayoutsJob struct {
	logg    *logger.Logger
	payouts payoutSweeper
}

func (j *scheduledPayoutsJob) Name() string { return "scheduled-payouts" }

func (j *scheduledPayoutsJob) Run(ctx context.Context) error {
	results, err := j.payouts.RunScheduledPayouts(ctx)
	created, skipped := 0, 0
	for _, result := range results {
		if result.PayoutID != nil {
			created++
			continue
		}
		skipped++
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"created": created,
		"skipped": skipped,
	})
	if err != nil {
		return fmt.Errorf("scheduled payout sweep: %w", err)
	}
	j.logg.Info(logCtx, "scheduled payout sweep complete")
	return nil
}
