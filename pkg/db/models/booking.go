package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmyapp/farmyapp-backend/pkg/enums"
)

// Booking is a vehicle hire placed by a buyer against a logistics party.
type Booking struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID     uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index:ix_bookings_buyer"`
	LogisticsID uuid.UUID           `gorm:"column:logistics_id;type:uuid;not null;index:ix_bookings_logistics"`
	VehicleID   uuid.UUID           `gorm:"column:vehicle_id;type:uuid;not null"`
	Status      enums.BookingStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Pickup      string              `gorm:"column:pickup;type:text;not null"`
	Destination string              `gorm:"column:destination;type:text;not null"`
	Amount      decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null"`
	PaymentRef  *string             `gorm:"column:payment_ref;type:text"`
	PaidAt      *time.Time          `gorm:"column:paid_at"`
	CompletedAt *time.Time          `gorm:"column:completed_at"`
	CanceledAt  *time.Time          `gorm:"column:canceled_at"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
