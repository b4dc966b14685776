package orders

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmyapp/farmyapp-backend/pkg/db/models"
	"github.com/farmyapp/farmyapp-backend/pkg/enums"
)

func TestSellerProceedsFlatRate(t *testing.T) {
	order := &models.Order{
		SellerType: enums.PartyTypeFarm,
		Total:      decimal.RequireFromString("1000.00"),
	}

	proceeds := SellerProceeds(order)
	if !proceeds.Equal(decimal.RequireFromString("970.00")) {
		t.Fatalf("proceeds = %s, want 970.00", proceeds)
	}
	fee := PlatformFee(order)
	if !fee.Equal(decimal.RequireFromString("30.00")) {
		t.Fatalf("platform fee = %s, want 30.00", fee)
	}
	if !proceeds.Add(fee).Equal(order.Total) {
		t.Fatalf("proceeds + fee = %s, want %s", proceeds.Add(fee), order.Total)
	}
}

func TestSellerProceedsCompanyPerUnit(t *testing.T) {
	order := &models.Order{
		SellerType: enums.PartyTypeCompany,
		Total:      decimal.RequireFromString("500.00"),
		Items: []models.OrderItem{
			{Quantity: 3, Commission: decimal.RequireFromString("2.50")},
			{Quantity: 1, Commission: decimal.RequireFromString("5.00")},
		},
	}

	// 3 * 2.50 + 1 * 5.00 = 12.50 in per-unit fees.
	proceeds := SellerProceeds(order)
	if !proceeds.Equal(decimal.RequireFromString("487.50")) {
		t.Fatalf("proceeds = %s, want 487.50", proceeds)
	}
	if !PlatformFee(order).Equal(decimal.RequireFromString("12.50")) {
		t.Fatalf("platform fee = %s, want 12.50", PlatformFee(order))
	}
}

func TestSellerProceedsCompanyFeesExceedTotal(t *testing.T) {
	order := &models.Order{
		SellerType: enums.PartyTypeCompany,
		Total:      decimal.RequireFromString("10.00"),
		Items: []models.OrderItem{
			{Quantity: 100, Commission: decimal.RequireFromString("1.00")},
		},
	}

	if !SellerProceeds(order).IsZero() {
		t.Fatalf("proceeds = %s, want 0", SellerProceeds(order))
	}
}

func TestProceedsSplitWithHiredVehicle(t *testing.T) {
	carrierID := uuid.New()
	order := &models.Order{
		SellerType:   enums.PartyTypeFarm,
		Total:        decimal.RequireFromString("1300.00"),
		LogisticsID:  &carrierID,
		LogisticsFee: decimal.RequireFromString("300.00"),
	}

	// Seller keeps 97% of the goods portion, the carrier 97% of the fee.
	if got := SellerProceeds(order); !got.Equal(decimal.RequireFromString("970.00")) {
		t.Fatalf("seller proceeds = %s, want 970.00", got)
	}
	if got := LogisticsProceeds(order); !got.Equal(decimal.RequireFromString("291.00")) {
		t.Fatalf("carrier proceeds = %s, want 291.00", got)
	}
	if got := PlatformFee(order); !got.Equal(decimal.RequireFromString("39.00")) {
		t.Fatalf("platform fee = %s, want 39.00", got)
	}
}

func TestLogisticsProceedsWithoutCarrier(t *testing.T) {
	order := &models.Order{
		SellerType: enums.PartyTypeFarm,
		Total:      decimal.RequireFromString("100.00"),
	}
	if !LogisticsProceeds(order).IsZero() {
		t.Fatalf("carrier proceeds = %s, want 0", LogisticsProceeds(order))
	}
}

func TestSellerProceedsRounding(t *testing.T) {
	order := &models.Order{
		SellerType: enums.PartyTypeStore,
		Total:      decimal.RequireFromString("33.33"),
	}

	// 33.33 * 0.97 = 32.3301, rounded to cents.
	if !SellerProceeds(order).Equal(decimal.RequireFromString("32.33")) {
		t.Fatalf("proceeds = %s, want 32.33", SellerProceeds(order))
	}
}
