package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmyapp/farmyapp-backend/pkg/enums"
)

// Transaction is a ledger entry against a party's wallet. Escrowed credits
// are written with status temporary and later finalized or canceled by the
// order they reference; withdrawals track payout state instead.
type Transaction struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PartyType enums.PartyType         `gorm:"column:party_type;type:text;not null;index:ix_transactions_party"`
	PartyID   uuid.UUID               `gorm:"column:party_id;type:uuid;not null;index:ix_transactions_party"`
	Type      enums.TransactionType   `gorm:"column:type;type:text;not null"`
	Status    enums.TransactionStatus `gorm:"column:status;type:text;not null"`
	Amount    decimal.Decimal         `gorm:"column:amount;type:numeric(14,2);not null"`
	OrderID   *uuid.UUID              `gorm:"column:order_id;type:uuid;index:ix_transactions_order"`
	BookingID *uuid.UUID              `gorm:"column:booking_id;type:uuid"`
	Reference *string                 `gorm:"column:reference;type:text"`
	Narration string                  `gorm:"column:narration;type:text;not null;default:''"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
