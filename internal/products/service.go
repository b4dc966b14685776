package products

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

// Service defines catalog operations for seller products.
type Service interface {
	Create(ctx context.Context, input CreateProductInput) (*models.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListBySeller(ctx context.Context, sellerType enums.PartyType, sellerID uuid.UUID) ([]models.Product, error)
}

type service struct {
	repo Repository
}

// CreateProductInput captures a new catalog entry.
type CreateProductInput struct {
	SellerType   enums.PartyType
	SellerID     uuid.UUID
	Name         string
	UnitPrice    decimal.Decimal
	Commission   decimal.Decimal
	AvailableQty int
}

// NewService wires a products service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if !input.SellerType.IsSeller() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("party type %q cannot sell", input.SellerType))
	}
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.UnitPrice.IsNegative() || input.UnitPrice.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be positive")
	}
	if input.Commission.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission must not be negative")
	}
	if input.AvailableQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "available quantity must not be negative")
	}

	product := &models.Product{
		SellerType:   input.SellerType,
		SellerID:     input.SellerID,
		Name:         strings.TrimSpace(input.Name),
		UnitPrice:    input.UnitPrice,
		Commission:   input.Commission,
		AvailableQty: input.AvailableQty,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	return product, nil
}

func (s *service) ListBySeller(ctx context.Context, sellerType enums.PartyType, sellerID uuid.UUID) ([]models.Product, error) {
	if !sellerType.IsSeller() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("party type %q cannot sell", sellerType))
	}
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	return s.repo.ListBySeller(ctx, sellerType, sellerID)
}
