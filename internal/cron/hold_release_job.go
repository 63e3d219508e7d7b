package cron

import (
	"context"
	"fmt"

	"github.com/Mnabil10/fasket-backend/internal/settlement"
	"github.com/Mnabil10/fasket-backend/pkg/logger"
)

type holdReleaser interface {
	ReleaseAllMaturedHolds(ctx context.Context) (settlement.ReleaseResult, error)
}

// HoldReleaseJobParams configure the matured-hold release job.
type HoldReleaseJobParams struct {
	Logger     *logger.Logger
	Settlement holdReleaser
}

// NewHoldReleaseJob builds the cron job that moves matured pending funds to
// the withdrawable balance.
func NewHoldReleaseJob(params HoldReleaseJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Settlement == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	return &holdReleaseJob{logg: params.Logger, settlement: params.Settlement}, nil
}

type holdReleaseJob struct {
	logg       *logger.Logger
	settlement holdReleaser
}

func (j *holdReleaseJob) Name() string { return "hold-release" }

func (j *holdReleaseJob) Run(ctx context.Context) error {
	result, err := j.settlement.ReleaseAllMaturedHolds(ctx)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"released_cents": result.ReleasedCents,
		"count":          result.Count,
	})
	if err != nil {
		return fmt.Errorf("release matured holds: %w", err)
	}
	j.logg.Info(logCtx, "hold release loop complete")
	return nil
}
