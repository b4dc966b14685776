package orders

import (
	"github.com/shopspring/decimal"

	"github.com/farmyapp/farmyapp-backend/pkg/db/models"
	"github.com/farmyapp/farmyapp-backend/pkg/enums"
)

// sellerShareRate is the fraction of a paid amount passed through to
// flat-rate sellers and carriers; the remaining 3% is the platform fee.
var sellerShareRate = decimal.RequireFromString("0.97")

// GoodsTotal is the portion of the order total owed for products, i.e. the
// total minus any hired-vehicle fee.
func GoodsTotal(order *models.Order) decimal.Decimal {
	return order.Total.Sub(order.LogisticsFee)
}

// SellerProceeds returns the amount escrowed for the seller when the order
// is paid. Company sellers carry a per-unit commission on each product
// line; every other seller pays the flat platform percentage.
func SellerProceeds(order *models.Order) decimal.Decimal {
	goods := GoodsTotal(order)
	if order.SellerType == enums.PartyTypeCompany {
		fees := decimal.Zero
		for _, item := range order.Items {
			fees = fees.Add(item.Commission.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		proceeds := goods.Sub(fees)
		if proceeds.IsNegative() {
			return decimal.Zero
		}
		return proceeds.Round(2)
	}
	return goods.Mul(sellerShareRate).Round(2)
}

// LogisticsProceeds returns the amount escrowed for the carrier when the
// order hired a vehicle for delivery.
func LogisticsProceeds(order *models.Order) decimal.Decimal {
	if order.LogisticsID == nil || !order.LogisticsFee.IsPositive() {
		return decimal.Zero
	}
	return order.LogisticsFee.Mul(sellerShareRate).Round(2)
}

// PlatformFee is the part of the order total kept by the marketplace.
func PlatformFee(order *models.Order) decimal.Decimal {
	return order.Total.Sub(SellerProceeds(order)).Sub(LogisticsProceeds(order))
}
