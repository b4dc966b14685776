package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/farmyapp/farmyapp-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to parties.
type Notification struct {
	ID        uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PartyType enums.PartyType        `gorm:"column:party_type;type:text;not null;index:ix_notifications_party"`
	PartyID   uuid.UUID              `gorm:"column:party_id;type:uuid;not null;index:ix_notifications_party"`
	Type      enums.NotificationType `gorm:"type:text;not null"`
	Title     string                 `gorm:"type:text;not null"`
	Message   string                 `gorm:"type:text;not null"`
	Link      *string                `gorm:"type:text"`
	ReadAt    *time.Time             `gorm:"type:timestamptz"`
	CreatedAt time.Time              `gorm:"type:timestamptz;default:now()"`
}
