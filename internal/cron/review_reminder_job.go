package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/farmyapp/farmyapp-backend/pkg/logger"
)

const defaultReminderBatch = 200

type reminderDeliverer interface {
	DeliverDue(ctx context.Context, now time.Time, limit int) (int, error)
}

// ReviewReminderJobParams configure the review reminder sweep.
type ReviewReminderJobParams struct {
	Logger        *logger.Logger
	Notifications reminderDeliverer
	Batch         int
}

// NewReviewReminderJob delivers scheduled review reminders that have come
// due since the last sweep.
func NewReviewReminderJob(params ReviewReminderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultReminderBatch
	}
	return &reviewReminderJob{
		logg:  params.Logger,
		svc:   params.Notifications,
		batch: batch,
		now:   time.Now,
	}, nil
}

type reviewReminderJob struct {
	logg  *logger.Logger
	svc   reminderDeliverer
	batch int
	now   func() time.Time
}

func (j *reviewReminderJob) Name() string { return "review-reminder" }

func (j *reviewReminderJob) Run(ctx context.Context) error {
	delivered, err := j.svc.DeliverDue(ctx, j.now().UTC(), j.batch)
	if err != nil {
		return fmt.Errorf("review reminder sweep: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "delivered", delivered)
	j.logg.Info(logCtx, "review reminder sweep complete")
	return nil
}
