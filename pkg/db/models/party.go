package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/farmyapp/farmyapp-backend/pkg/enums"
)

// Party is any account that can hold a wallet: buyers, farms, stores,
// companies and logistics providers share one type-discriminated table.
type Party struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Type          enums.PartyType `gorm:"column:type;type:text;not null"`
	Name          string          `gorm:"column:name;type:text;not null"`
	Email         string          `gorm:"column:email;type:text;not null"`
	Roles         pq.StringArray  `gorm:"column:roles;type:text[]"`
	RecipientCode *string         `gorm:"column:recipient_code;type:text"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

