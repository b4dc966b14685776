package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farmyapp/farmyapp-backend/pkg/db/models"
	"github.com/farmyapp/farmyapp-backend/pkg/enums"
	pkgerrors "github.com/farmyapp/farmyapp-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type vehicleLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Vehicle, error)
}

// Service exposes cart operations. Every item mutation recomputes the cart
// total inside one transaction so the stored total never drifts from the
// lines.
type Service interface {
	GetOrCreate(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error)
	AddItem(ctx context.Context, buyerID uuid.UUID, input AddItemInput) (*models.CartRecord, error)
	EditQuantity(ctx context.Context, buyerID, productID uuid.UUID, quantity int) (*models.CartRecord, error)
	RemoveItem(ctx context.Context, buyerID, productID uuid.UUID) (*models.CartRecord, error)
	SetNegotiatedPrice(ctx context.Context, seller SellerRef, buyerID, productID uuid.UUID, price decimal.Decimal) (*models.CartRecord, error)
	ChooseDelivery(ctx context.Context, buyerID uuid.UUID, input DeliveryInput) (*models.CartRecord, error)
	// Clear removes the cart lines after checkout. Runs on the caller's
	// transaction when tx is non-nil.
	Clear(ctx context.Context, tx *gorm.DB, buyerID uuid.UUID) error
}

// AddItemInput captures a cart line addition.
type AddItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// SellerRef identifies the seller acting on a negotiated price.
type SellerRef struct {
	Type enums.PartyType
	ID   uuid.UUID
}

// DeliveryInput captures the buyer's fulfilment choice. Exactly one of
// Address or PickupLocation applies, matching the chosen option; a hired
// vehicle only rides along with delivery.
type DeliveryInput struct {
	Option         enums.DeliveryOption
	Address        string
	PickupLocation string
	VehicleID      *uuid.UUID
}

type service struct {
	repo     Repository
	tx       txRunner
	products productLoader
	vehicles vehicleLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, tx txRunner, products productLoader, vehicles vehicleLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if vehicles == nil {
		return nil, fmt.Errorf("vehicle loader required")
	}
	return &service{repo: repo, tx: tx, products: products, vehicles: vehicles}, nil
}

func (s *service) GetOrCreate(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	record, err := s.repo.FindByBuyer(ctx, buyerID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	record = &models.CartRecord{BuyerID: buyerID, Total: decimal.Zero}
	if createErr := s.repo.Create(ctx, record); createErr != nil {
		if existing, getErr := s.repo.FindByBuyer(ctx, buyerID); getErr == nil {
			return existing, nil
		}
		return nil, createErr
	}
	return record, nil
}

func (s *service) AddItem(ctx context.Context, buyerID uuid.UUID, input AddItemInput) (*models.CartRecord, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	if product.AvailableQty < input.Quantity {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "quantity exceeds available stock")
	}

	var out *models.CartRecord
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := s.getOrCreateTx(ctx, repo, buyerID)
		if err != nil {
			return err
		}

		if record.SellerID != nil && (*record.SellerID != product.SellerID || *record.SellerType != product.SellerType) {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart already holds items from another seller")
		}
		if record.SellerID == nil {
			record.SellerType = &product.SellerType
			record.SellerID = &product.SellerID
		}

		merged := false
		for i := range record.Items {
			if record.Items[i].ProductID == product.ID {
				item := &record.Items[i]
				item.Quantity += input.Quantity
				if product.AvailableQty < item.Quantity {
					return pkgerrors.New(pkgerrors.CodeStateConflict, "quantity exceeds available stock")
				}
				item.LineSubtotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
				if err := repo.SaveItem(ctx, item); err != nil {
					return err
				}
				merged = true
				break
			}
		}
		if !merged {
			item := models.CartItem{
				CartID:       record.ID,
				ProductID:    product.ID,
				Quantity:     input.Quantity,
				UnitPrice:    product.UnitPrice,
				LineSubtotal: product.UnitPrice.Mul(decimal.NewFromInt(int64(input.Quantity))),
			}
			if err := repo.CreateItem(ctx, &item); err != nil {
				return err
			}
			record.Items = append(record.Items, item)
		}

		out, err = s.persistTotals(ctx, repo, record)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) EditQuantity(ctx context.Context, buyerID, productID uuid.UUID, quantity int) (*models.CartRecord, error) {
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, buyerID, productID)
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	if product.AvailableQty < quantity {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "quantity exceeds available stock")
	}

	var out *models.CartRecord
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, item, err := s.findLine(ctx, repo, buyerID, productID)
		if err != nil {
			return err
		}

		item.Quantity = quantity
		item.LineSubtotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
		if err := repo.SaveItem(ctx, item); err != nil {
			return err
		}

		out, err = s.persistTotals(ctx, repo, record)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) RemoveItem(ctx context.Context, buyerID, productID uuid.UUID) (*models.CartRecord, error) {
	var out *models.CartRecord
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, item, err := s.findLine(ctx, repo, buyerID, productID)
		if err != nil {
			return err
		}

		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return err
		}
		kept := record.Items[:0]
		for _, line := range record.Items {
			if line.ID != item.ID {
				kept = append(kept, line)
			}
		}
		record.Items = kept

		out, err = s.persistTotals(ctx, repo, record)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetNegotiatedPrice lets the owning seller discount a line for this buyer.
func (s *service) SetNegotiatedPrice(ctx context.Context, seller SellerRef, buyerID, productID uuid.UUID, price decimal.Decimal) (*models.CartRecord, error) {
	if price.IsNegative() || price.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "negotiated price must be positive")
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	if product.SellerType != seller.Type || product.SellerID != seller.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the product's seller can negotiate its price")
	}

	var out *models.CartRecord
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, item, err := s.findLine(ctx, repo, buyerID, productID)
		if err != nil {
			return err
		}

		item.UnitPrice = price
		item.Negotiated = true
		item.LineSubtotal = price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		if err := repo.SaveItem(ctx, item); err != nil {
			return err
		}

		out, err = s.persistTotals(ctx, repo, record)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) ChooseDelivery(ctx context.Context, buyerID uuid.UUID, input DeliveryInput) (*models.CartRecord, error) {
	if !input.Option.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid delivery option %q", input.Option))
	}
	address := strings.TrimSpace(input.Address)
	pickup := strings.TrimSpace(input.PickupLocation)
	switch input.Option {
	case enums.DeliveryOptionDelivery:
		if address == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required")
		}
		pickup = ""
	case enums.DeliveryOptionPickup:
		if pickup == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup location is required")
		}
		address = ""
	}

	// Pickup excludes a hired vehicle and vice versa.
	var vehicleID *uuid.UUID
	vehicleFee := decimal.Zero
	if input.Option == enums.DeliveryOptionDelivery && input.VehicleID != nil {
		vehicle, err := s.vehicles.GetByID(ctx, *input.VehicleID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
			}
			return nil, err
		}
		vehicleID = &vehicle.ID
		vehicleFee = vehicle.Price
	}

	record, err := s.GetOrCreate(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	record.DeliveryOption = &input.Option
	if address != "" {
		record.Address = &address
	} else {
		record.Address = nil
	}
	if pickup != "" {
		record.PickupLocation = &pickup
	} else {
		record.PickupLocation = nil
	}
	record.VehicleID = vehicleID
	record.VehicleFee = vehicleFee

	return s.persistTotals(ctx, s.repo, record)
}

func (s *service) Clear(ctx context.Context, tx *gorm.DB, buyerID uuid.UUID) error {
	if buyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	repo := s.repo.WithTx(tx)
	record, err := repo.FindByBuyer(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if err := repo.DeleteItemsByCart(ctx, record.ID); err != nil {
		return err
	}
	record.Items = nil
	record.SellerType = nil
	record.SellerID = nil
	record.VehicleID = nil
	record.VehicleFee = decimal.Zero
	record.Total = decimal.Zero
	return repo.Save(ctx, record)
}

func (s *service) getOrCreateTx(ctx context.Context, repo Repository, buyerID uuid.UUID) (*models.CartRecord, error) {
	record, err := repo.FindByBuyer(ctx, buyerID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	record = &models.CartRecord{BuyerID: buyerID, Total: decimal.Zero}
	if err := repo.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *service) findLine(ctx context.Context, repo Repository, buyerID, productID uuid.UUID) (*models.CartRecord, *models.CartItem, error) {
	if buyerID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if productID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	record, err := repo.FindByBuyer(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, nil, err
	}
	for i := range record.Items {
		if record.Items[i].ProductID == productID {
			return record, &record.Items[i], nil
		}
	}
	return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
}

// persistTotals recomputes the cart total from its lines plus any hired
// vehicle fee and clears the seller binding when the last line is gone.
func (s *service) persistTotals(ctx context.Context, repo Repository, record *models.CartRecord) (*models.CartRecord, error) {
	total := decimal.Zero
	for _, item := range record.Items {
		total = total.Add(item.LineSubtotal)
	}
	if record.VehicleID != nil {
		total = total.Add(record.VehicleFee)
	}
	record.Total = total
	if len(record.Items) == 0 {
		record.SellerType = nil
		record.SellerID = nil
	}
	if err := repo.Save(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}
