package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/farmyapp/farmyapp-backend/pkg/logger"
)

const (
	defaultPayoutGrace = time.Hour
	defaultPayoutBatch = 100
)

type payoutReconciler interface {
	Reconcile(ctx context.Context, now time.Time, grace time.Duration, limit int) (int, error)
}

// PayoutReconcileJobParams configure the stuck-withdrawal sweep.
type PayoutReconcileJobParams struct {
	Logger  *logger.Logger
	Payouts payoutReconciler
	Grace   time.Duration
	Batch   int
}

// NewPayoutReconcileJob fails withdrawals stuck in pending past the grace
// period and refunds the wallets they debited.
func NewPayoutReconcileJob(params PayoutReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payouts == nil {
		return nil, fmt.Errorf("payouts service required")
	}
	grace := params.Grace
	if grace <= 0 {
		grace = defaultPayoutGrace
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultPayoutBatch
	}
	return &payoutReconcileJob{
		logg:  params.Logger,
		svc:   params.Payouts,
		grace: grace,
		batch: batch,
		now:   time.Now,
	}, nil
}

type payoutReconcileJob struct {
	logg  *logger.Logger
	svc   payoutReconciler
	grace time.Duration
	batch int
	now   func() time.Time
}

func (j *payoutReconcileJob) Name() string { return "payout-reconcile" }

func (j *payoutReconcileJob) Run(ctx context.Context) error {
	swept, err := j.svc.Reconcile(ctx, j.now().UTC(), j.grace, j.batch)
	if err != nil {
		return fmt.Errorf("payout reconcile sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"swept":       swept,
		"grace_hours": j.grace.Hours(),
	})
	j.logg.Info(logCtx, "payout reconcile sweep complete")
	return nil
}
