package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmyapp/farmyapp-backend/pkg/enums"
)

// Order is a single-seller order produced from a checked-out cart.
type Order struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID        uuid.UUID            `gorm:"column:buyer_id;type:uuid;not null;index:ix_orders_buyer"`
	SellerType     enums.PartyType      `gorm:"column:seller_type;type:text;not null"`
	SellerID       uuid.UUID            `gorm:"column:seller_id;type:uuid;not null;index:ix_orders_seller"`
	Status         enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentMethod  enums.PaymentMethod  `gorm:"column:payment_method;type:text;not null"`
	DeliveryOption enums.DeliveryOption `gorm:"column:delivery_option;type:text;not null"`
	Address        *string              `gorm:"column:address;type:text"`
	PickupLocation *string              `gorm:"column:pickup_location;type:text"`
	VehicleID      *uuid.UUID           `gorm:"column:vehicle_id;type:uuid"`
	LogisticsID    *uuid.UUID           `gorm:"column:logistics_id;type:uuid"`
	LogisticsFee   decimal.Decimal      `gorm:"column:logistics_fee;type:numeric(14,2);not null;default:0"`
	Total          decimal.Decimal      `gorm:"column:total;type:numeric(14,2);not null"`
	PaymentRef     *string              `gorm:"column:payment_ref;type:text"`
	TellerURL      *string              `gorm:"column:teller_url;type:text"`
	PaidAt         *time.Time           `gorm:"column:paid_at"`
	DeliveredAt    *time.Time           `gorm:"column:delivered_at"`
	CanceledAt     *time.Time           `gorm:"column:canceled_at"`
	Items          []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
