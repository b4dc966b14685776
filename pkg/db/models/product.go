package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmyapp/farmyapp-backend/pkg/enums"
)

// Product is a sellable item owned by a farm, store or company.
// Commission is the per-unit platform fee used by the company payout model;
// farm/store payouts use a flat percentage instead.
type Product struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerType   enums.PartyType `gorm:"column:seller_type;type:text;not null"`
	SellerID     uuid.UUID       `gorm:"column:seller_id;type:uuid;not null"`
	Name         string          `gorm:"column:name;type:text;not null"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null"`
	Commission   decimal.Decimal `gorm:"column:commission;type:numeric(14,2);not null;default:0"`
	AvailableQty int             `gorm:"column:available_qty;not null;default:0"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
