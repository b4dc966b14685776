package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmyapp/farmyapp-backend/pkg/enums"
)

// Wallet holds a party's escrowed (temporary) and withdrawable (final)
// balances. Rows are created lazily with zero balances on first locked load;
// both balances stay non-negative.
type Wallet struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PartyType        enums.PartyType `gorm:"column:party_type;type:text;not null;uniqueIndex:ux_wallets_party,priority:1"`
	PartyID          uuid.UUID       `gorm:"column:party_id;type:uuid;not null;uniqueIndex:ux_wallets_party,priority:2"`
	TemporaryBalance decimal.Decimal `gorm:"column:temporary_balance;type:numeric(14,2);not null;default:0"`
	FinalBalance     decimal.Decimal `gorm:"column:final_balance;type:numeric(14,2);not null;default:0"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
