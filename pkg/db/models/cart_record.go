package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmyapp/farmyapp-backend/pkg/enums"
)

// CartRecord is a buyer's open cart. A buyer holds at most one active cart
// and every item in it belongs to the same seller.
type CartRecord struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID        uuid.UUID             `gorm:"column:buyer_id;type:uuid;not null;uniqueIndex:ux_cart_records_buyer"`
	SellerType     *enums.PartyType      `gorm:"column:seller_type;type:text"`
	SellerID       *uuid.UUID            `gorm:"column:seller_id;type:uuid"`
	DeliveryOption *enums.DeliveryOption `gorm:"column:delivery_option;type:text"`
	Address        *string               `gorm:"column:address;type:text"`
	PickupLocation *string               `gorm:"column:pickup_location;type:text"`
	VehicleID      *uuid.UUID            `gorm:"column:vehicle_id;type:uuid"`
	VehicleFee     decimal.Decimal       `gorm:"column:vehicle_fee;type:numeric(14,2);not null;default:0"`
	Total          decimal.Decimal       `gorm:"column:total;type:numeric(14,2);not null;default:0"`
	Items          []CartItem            `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
