package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/farmyapp/farmyapp-backend/pkg/enums"
)

// ScheduledNotification is a durable deferred notification. The cron worker
// sweeps due pending rows and delivers them; cancellation flips the status
// before the due time so the sweep skips the row.
type ScheduledNotification struct {
	ID        uuid.UUID                         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PartyType enums.PartyType                   `gorm:"column:party_type;type:text;not null"`
	PartyID   uuid.UUID                         `gorm:"column:party_id;type:uuid;not null"`
	Type      enums.NotificationType            `gorm:"column:type;type:text;not null"`
	Title     string                            `gorm:"column:title;type:text;not null"`
	Message   string                            `gorm:"column:message;type:text;not null"`
	Link      *string                           `gorm:"column:link;type:text"`
	OrderID   *uuid.UUID                        `gorm:"column:order_id;type:uuid;index:ix_scheduled_notifications_order"`
	Status    enums.ScheduledNotificationStatus `gorm:"column:status;type:text;not null;default:'pending';index:ix_scheduled_notifications_due,priority:1"`
	DueAt     time.Time                         `gorm:"column:due_at;not null;index:ix_scheduled_notifications_due,priority:2"`
	SentAt    *time.Time                        `gorm:"column:sent_at"`
	CreatedAt time.Time                         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time                         `gorm:"column:updated_at;autoUpdateTime"`
}
