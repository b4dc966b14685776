package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmyapp/farmyapp-backend/pkg/db/models"
	"github.com/farmyapp/farmyapp-backend/pkg/enums"
	"github.com/farmyapp/farmyapp-backend/pkg/pagination"
)

// Repository exposes persistence helpers for notifications and their
// durable scheduled counterparts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error)
	MarkRead(ctx context.Context, partyType enums.PartyType, partyID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error)
	MarkAllRead(ctx context.Context, partyType enums.PartyType, partyID uuid.UUID, now time.Time) (int64, error)

	CreateScheduled(ctx context.Context, scheduled *models.ScheduledNotification) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.ScheduledNotification, error)
	// MarkScheduledSent flips a pending row to sent; returns false when the
	// row was already sent or canceled by a concurrent worker.
	MarkScheduledSent(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	CancelScheduledByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listNotificationsParams struct {
	PartyType  enums.PartyType
	PartyID    uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

type notificationMarkResult struct {
	Updated bool
	Found   bool
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repositoryImpl) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("party_type = ? AND party_id = ?", params.PartyType, params.PartyID)
	if params.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&notifications).Error; err != nil {
		return nil, nil, err
	}

	if len(notifications) > normalized {
		notifications = notifications[:normalized]
		// The cursor marks the last row handed out; the next page filters
		// strictly past it.
		last := notifications[normalized-1]
		return notifications, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return notifications, nil, nil
}

func (r *repositoryImpl) MarkRead(ctx context.Context, partyType enums.PartyType, partyID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND party_type = ? AND party_id = ? AND read_at IS NULL", notificationID, partyType, partyID).
		UpdateColumn("read_at", now)
	if result.Error != nil {
		return notificationMarkResult{}, result.Error
	}

	mark := notificationMarkResult{Updated: result.RowsAffected > 0}
	if result.RowsAffected > 0 {
		mark.Found = true
		return mark, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND party_type = ? AND party_id = ?", notificationID, partyType, partyID).
		Count(&count).Error; err != nil {
		return notificationMarkResult{}, err
	}
	mark.Found = count > 0
	return mark, nil
}

func (r *repositoryImpl) MarkAllRead(ctx context.Context, partyType enums.PartyType, partyID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("party_type = ? AND party_id = ? AND read_at IS NULL", partyType, partyID).
		UpdateColumn("read_at", now)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repositoryImpl) CreateScheduled(ctx context.Context, scheduled *models.ScheduledNotification) error {
	return r.db.WithContext(ctx).Create(scheduled).Error
}

func (r *repositoryImpl) ListDue(ctx context.Context, now time.Time, limit int) ([]models.ScheduledNotification, error) {
	var due []models.ScheduledNotification
	query := r.db.WithContext(ctx).
		Where("status = ? AND due_at <= ?", enums.ScheduledNotificationStatusPending, now).
		Order("due_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&due).Error; err != nil {
		return nil, err
	}
	return due, nil
}

func (r *repositoryImpl) MarkScheduledSent(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ScheduledNotification{}).
		Where("id = ? AND status = ?", id, enums.ScheduledNotificationStatusPending).
		UpdateColumns(map[string]any{
			"status":  enums.ScheduledNotificationStatusSent,
			"sent_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) CancelScheduledByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ScheduledNotification{}).
		Where("order_id = ? AND status = ?", orderID, enums.ScheduledNotificationStatusPending).
		UpdateColumn("status", enums.ScheduledNotificationStatusCanceled)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
