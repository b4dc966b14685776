package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Vehicle is a bookable transport unit owned by a logistics party.
type Vehicle struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID    uuid.UUID       `gorm:"column:owner_id;type:uuid;not null"`
	Name       string          `gorm:"column:name;type:text;not null"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(14,2);not null"`
	RegNumber  string          `gorm:"column:reg_number;type:text;not null"`
	Capacity   int             `gorm:"column:capacity;not null;default:0"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
