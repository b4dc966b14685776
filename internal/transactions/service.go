package transactions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farmyapp/farmyapp-backend/pkg/db/models"
	"github.com/farmyapp/farmyapp-backend/pkg/enums"
	pkgerrors "github.com/farmyapp/farmyapp-backend/pkg/errors"
	"github.com/farmyapp/farmyapp-backend/pkg/pagination"
)

// Service defines operations that record and query ledger entries.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Record(ctx context.Context, input RecordTransactionInput) (*models.Transaction, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListForParty(ctx context.Context, input ListTransactionsInput) (*TransactionPage, error)
	ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.Transaction, error)
	FinalizeForOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	CancelForOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	FinalizeForBooking(ctx context.Context, bookingID uuid.UUID) (int64, error)
	CancelForBooking(ctx context.Context, bookingID uuid.UUID) (int64, error)
}

type service struct {
	repo Repository
}

// RecordTransactionInput captures the immutable data a ledger entry requires.
type RecordTransactionInput struct {
	PartyType enums.PartyType
	PartyID   uuid.UUID
	Type      enums.TransactionType
	Status    enums.TransactionStatus
	Amount    decimal.Decimal
	OrderID   *uuid.UUID
	BookingID *uuid.UUID
	Reference *string
	Narration string
}

// ListTransactionsInput scopes a ledger page to one party.
type ListTransactionsInput struct {
	PartyType enums.PartyType
	PartyID   uuid.UUID
	Limit     int
	Cursor    string
}

// TransactionPage is one page of ledger entries plus the next cursor.
type TransactionPage struct {
	Transactions []models.Transaction
	NextCursor   string
}

// NewService wires a transactions service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) Record(ctx context.Context, input RecordTransactionInput) (*models.Transaction, error) {
	if !input.PartyType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid party type %q", input.PartyType))
	}
	if input.PartyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction type %q", input.Type))
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction status %q", input.Status))
	}
	if input.Amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}

	txn := &models.Transaction{
		PartyType: input.PartyType,
		PartyID:   input.PartyID,
		Type:      input.Type,
		Status:    input.Status,
		Amount:    input.Amount,
		OrderID:   input.OrderID,
		BookingID: input.BookingID,
		Reference: input.Reference,
		Narration: input.Narration,
	}
	if err := s.repo.Create(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	txn, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, err
	}
	return txn, nil
}

func (s *service) ListForParty(ctx context.Context, input ListTransactionsInput) (*TransactionPage, error) {
	if !input.PartyType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid party type %q", input.PartyType))
	}
	if input.PartyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id is required")
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	txns, next, err := s.repo.ListByParty(ctx, ListByPartyParams{
		PartyType: input.PartyType,
		PartyID:   input.PartyID,
		Limit:     input.Limit,
		Cursor:    cursor,
	})
	if err != nil {
		return nil, err
	}

	page := &TransactionPage{Transactions: txns}
	if next != nil {
		page.NextCursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

func (s *service) ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.Transaction, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	return s.repo.ListByOrderID(ctx, orderID)
}

// FinalizeForOrder flips the order's temporary entries to final. Re-running
// it is safe: already-final rows no longer match and are left alone.
func (s *service) FinalizeForOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	if orderID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	return s.repo.UpdateStatusByOrder(ctx, orderID, enums.TransactionStatusTemporary, enums.TransactionStatusFinal)
}

// CancelForOrder voids the order's temporary entries: status flips to
// canceled and the amount is zeroed, leaving the row for audit.
func (s *service) CancelForOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	if orderID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	return s.repo.CancelByOrder(ctx, orderID, enums.TransactionStatusTemporary)
}

// FinalizeForBooking flips the booking's temporary entries to final.
func (s *service) FinalizeForBooking(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	if bookingID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "booking id is required")
	}
	return s.repo.UpdateStatusByBooking(ctx, bookingID, enums.TransactionStatusTemporary, enums.TransactionStatusFinal)
}

// CancelForBooking voids the booking's temporary entries the way
// CancelForOrder does an order's.
func (s *service) CancelForBooking(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	if bookingID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "booking id is required")
	}
	return s.repo.CancelByBooking(ctx, bookingID, enums.TransactionStatusTemporary)
}
