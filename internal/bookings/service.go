package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farmyapp/farmyapp-backend/internal/notifications"
	"github.com/farmyapp/farmyapp-backend/internal/transactions"
	"github.com/farmyapp/farmyapp-backend/internal/wallet"
	"github.com/farmyapp/farmyapp-backend/pkg/db/models"
	"github.com/farmyapp/farmyapp-backend/pkg/enums"
	pkgerrors "github.com/farmyapp/farmyapp-backend/pkg/errors"
	"github.com/farmyapp/farmyapp-backend/pkg/logger"
	"github.com/farmyapp/farmyapp-backend/pkg/pagination"
	"github.com/farmyapp/farmyapp-backend/pkg/paystack"
)

// carrierShareRate is the fraction of a booking amount escrowed for the
// logistics party; the remaining 3% is the platform fee.
var carrierShareRate = decimal.RequireFromString("0.97")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type partyLoader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Party, error)
	Resolve(ctx context.Context, partyType enums.PartyType, id uuid.UUID) (*models.Party, error)
}

type paymentGateway interface {
	InitializeTransaction(ctx context.Context, email string, amount decimal.Decimal) (*paystack.InitializeResult, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.VerifyResult, error)
}

// Actor identifies the authenticated party driving a booking operation.
type Actor struct {
	Type enums.PartyType
	ID   uuid.UUID
}

// Service exposes vehicle registration plus booking checkout and
// lifecycle settlement.
type Service interface {
	RegisterVehicle(ctx context.Context, actor Actor, input RegisterVehicleInput) (*models.Vehicle, error)
	ListVehicles(ctx context.Context, ownerID uuid.UUID) ([]models.Vehicle, error)
	GetVehicle(ctx context.Context, id uuid.UUID) (*models.Vehicle, error)

	Book(ctx context.Context, input BookInput) (*BookResult, error)
	ConfirmCardPayment(ctx context.Context, reference string) (*models.Booking, error)
	UpdateStatus(ctx context.Context, actor Actor, bookingID uuid.UUID, target enums.BookingStatus) (*models.Booking, error)
	Get(ctx context.Context, actor Actor, bookingID uuid.UUID) (*models.Booking, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*BookingPage, error)
	ListForLogistics(ctx context.Context, actor Actor, params pagination.Params) (*BookingPage, error)
}

// RegisterVehicleInput captures a new bookable vehicle.
type RegisterVehicleInput struct {
	Name      string
	Price     decimal.Decimal
	RegNumber string
	Capacity  int
}

// BookInput captures a vehicle-hire request.
type BookInput struct {
	BuyerID       uuid.UUID
	VehicleID     uuid.UUID
	Pickup        string
	Destination   string
	PaymentMethod enums.PaymentMethod
}

// BookResult carries the created booking plus the hosted payment URL for
// card payments.
type BookResult struct {
	Booking    *models.Booking
	PaymentURL string
}

// BookingPage is one page of bookings plus the next cursor.
type BookingPage struct {
	Bookings   []models.Booking
	NextCursor string
}

type service struct {
	repo     Repository
	vehicles VehicleRepository
	tx       txRunner
	wallets  wallet.Service
	ledger   transactions.Service
	parties  partyLoader
	gateway  paymentGateway
	notifier notifications.Service
	logg     *logger.Logger
}

// NewService builds a bookings service backed by the provided stack.
func NewService(
	repo Repository,
	vehicles VehicleRepository,
	tx txRunner,
	wallets wallet.Service,
	ledger transactions.Service,
	parties partyLoader,
	gateway paymentGateway,
	notifier notifications.Service,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bookings repository required")
	}
	if vehicles == nil {
		return nil, fmt.Errorf("vehicle repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if parties == nil {
		return nil, fmt.Errorf("party service required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	return &service{
		repo:     repo,
		vehicles: vehicles,
		tx:       tx,
		wallets:  wallets,
		ledger:   ledger,
		parties:  parties,
		gateway:  gateway,
		notifier: notifier,
		logg:     logg,
	}, nil
}

func (s *service) RegisterVehicle(ctx context.Context, actor Actor, input RegisterVehicleInput) (*models.Vehicle, error) {
	if actor.Type != enums.PartyTypeLogistics {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only logistics parties can register vehicles")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle name is required")
	}
	if strings.TrimSpace(input.RegNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "registration number is required")
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.Capacity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "capacity must be positive")
	}

	if _, err := s.parties.Resolve(ctx, enums.PartyTypeLogistics, actor.ID); err != nil {
		return nil, err
	}

	vehicle := &models.Vehicle{
		OwnerID:   actor.ID,
		Name:      strings.TrimSpace(input.Name),
		Price:     input.Price,
		RegNumber: strings.TrimSpace(input.RegNumber),
		Capacity:  input.Capacity,
	}
	if err := s.vehicles.Create(ctx, vehicle); err != nil {
		return nil, err
	}
	return vehicle, nil
}

func (s *service) ListVehicles(ctx context.Context, ownerID uuid.UUID) ([]models.Vehicle, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	return s.vehicles.ListByOwner(ctx, ownerID)
}

func (s *service) GetVehicle(ctx context.Context, id uuid.UUID) (*models.Vehicle, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle id is required")
	}
	vehicle, err := s.vehicles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
		}
		return nil, err
	}
	return vehicle, nil
}

func (s *service) Book(ctx context.Context, input BookInput) (*BookResult, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if input.VehicleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle id is required")
	}
	if strings.TrimSpace(input.Pickup) == "" || strings.TrimSpace(input.Destination) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup and destination are required")
	}
	if input.PaymentMethod != enums.PaymentMethodWallet && input.PaymentMethod != enums.PaymentMethodCard {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bookings are paid by wallet or card")
	}

	vehicle, err := s.GetVehicle(ctx, input.VehicleID)
	if err != nil {
		return nil, err
	}

	var paymentRef *string
	var paymentURL string
	if input.PaymentMethod == enums.PaymentMethodCard {
		if s.gateway == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway unavailable")
		}
		buyer, err := s.parties.Get(ctx, input.BuyerID)
		if err != nil {
			return nil, err
		}
		session, err := s.gateway.InitializeTransaction(ctx, buyer.Email, vehicle.Price)
		if err != nil {
			return nil, err
		}
		paymentRef = &session.Reference
		paymentURL = session.AuthorizationURL
	}

	booking := &models.Booking{
		BuyerID:     input.BuyerID,
		LogisticsID: vehicle.OwnerID,
		VehicleID:   vehicle.ID,
		Status:      enums.BookingStatusPending,
		Pickup:      strings.TrimSpace(input.Pickup),
		Destination: strings.TrimSpace(input.Destination),
		Amount:      vehicle.Price,
		PaymentRef:  paymentRef,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, booking); err != nil {
			return err
		}
		if input.PaymentMethod == enums.PaymentMethodWallet {
			return s.settlePayment(ctx, tx, booking, true)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.fanOut(ctx, notifications.NotifyInput{
		PartyType: enums.PartyTypeLogistics,
		PartyID:   booking.LogisticsID,
		Type:      enums.NotificationTypeBooking,
		Title:     "New booking",
		Message:   fmt.Sprintf("Vehicle %s was booked from %s to %s.", vehicle.Name, booking.Pickup, booking.Destination),
	})

	return &BookResult{Booking: booking, PaymentURL: paymentURL}, nil
}

func (s *service) ConfirmCardPayment(ctx context.Context, reference string) (*models.Booking, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway unavailable")
	}

	verification, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}
	if verification.Status != "success" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payment not settled: %s", verification.Status))
	}

	booking, err := s.repo.GetByPaymentRef(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found for reference")
		}
		return nil, err
	}
	if !verification.Amount.Equal(booking.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "settled amount does not match booking amount")
	}

	var out *models.Booking
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := s.repo.WithTx(tx).GetByIDForUpdate(ctx, booking.ID)
		if err != nil {
			return err
		}
		if locked.Status != enums.BookingStatusPending {
			out = locked
			return nil
		}
		if err := s.settlePayment(ctx, tx, locked, false); err != nil {
			return err
		}
		out = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.fanOut(ctx, notifications.NotifyInput{
		PartyType: enums.PartyTypeBuyer,
		PartyID:   out.BuyerID,
		Type:      enums.NotificationTypeBooking,
		Title:     "Payment confirmed",
		Message:   fmt.Sprintf("Your payment for booking %s was confirmed.", out.ID),
	})
	return out, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor Actor, bookingID uuid.UUID, target enums.BookingStatus) (*models.Booking, error) {
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id is required")
	}
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid booking status %q", target))
	}
	if target == enums.BookingStatusPending || target == enums.BookingStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment states are set through payment confirmation")
	}

	var out *models.Booking
	var absorbed bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		booking, err := s.repo.WithTx(tx).GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
			}
			return err
		}

		if err := authorizeBookingTransition(actor, booking, target); err != nil {
			return err
		}
		// Re-applying a terminal state is an idempotent no-op; the wallets
		// already settled.
		if booking.Status == target && booking.Status.IsTerminal() {
			out = booking
			absorbed = true
			return nil
		}
		if !booking.Status.CanTransitionTo(target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move booking from %s to %s", booking.Status, target))
		}

		switch target {
		case enums.BookingStatusCompleted:
			if err := s.settleCompletion(ctx, tx, booking); err != nil {
				return err
			}
		case enums.BookingStatusCancelled:
			if err := s.settleCancellation(ctx, tx, booking); err != nil {
				return err
			}
		default:
			booking.Status = target
			if err := s.repo.WithTx(tx).Save(ctx, booking); err != nil {
				return err
			}
		}
		out = booking
		return nil
	})
	if err != nil {
		return nil, err
	}
	if absorbed {
		return out, nil
	}

	s.fanOut(ctx, notifications.NotifyInput{
		PartyType: enums.PartyTypeBuyer,
		PartyID:   out.BuyerID,
		Type:      enums.NotificationTypeBooking,
		Title:     "Booking update",
		Message:   fmt.Sprintf("Booking %s is now %s.", out.ID, out.Status),
	})
	// Completion releases the carrier's escrow, so the carrier hears too.
	if out.Status == enums.BookingStatusCompleted {
		s.fanOut(ctx, notifications.NotifyInput{
			PartyType: enums.PartyTypeLogistics,
			PartyID:   out.LogisticsID,
			Type:      enums.NotificationTypeBooking,
			Title:     "Booking completed",
			Message:   fmt.Sprintf("The fare for booking %s was released to your wallet.", out.ID),
		})
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, actor Actor, bookingID uuid.UUID) (*models.Booking, error) {
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id is required")
	}
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, err
	}
	if !isBookingParticipant(actor, booking) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "booking belongs to another party")
	}
	return booking, nil
}

func (s *service) ListForBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*BookingPage, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	bookings, next, err := s.repo.ListByBuyer(ctx, buyerID, params)
	if err != nil {
		return nil, err
	}
	return bookingPage(bookings, next), nil
}

func (s *service) ListForLogistics(ctx context.Context, actor Actor, params pagination.Params) (*BookingPage, error) {
	if actor.Type != enums.PartyTypeLogistics {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only logistics parties have a bookings ledger")
	}
	bookings, next, err := s.repo.ListByLogistics(ctx, actor.ID, params)
	if err != nil {
		return nil, err
	}
	return bookingPage(bookings, next), nil
}

// CarrierProceeds returns the amount escrowed for the logistics party when
// a booking is paid.
func CarrierProceeds(booking *models.Booking) decimal.Decimal {
	return booking.Amount.Mul(carrierShareRate).Round(2)
}

func (s *service) settlePayment(ctx context.Context, tx *gorm.DB, booking *models.Booking, debitBuyerWallet bool) error {
	wallets := s.wallets.WithTx(tx)
	ledger := s.ledger.WithTx(tx)

	buyerRef := wallet.PartyRef{Type: enums.PartyTypeBuyer, ID: booking.BuyerID}
	carrierRef := wallet.PartyRef{Type: enums.PartyTypeLogistics, ID: booking.LogisticsID}
	proceeds := CarrierProceeds(booking)

	refs := []wallet.PartyRef{carrierRef}
	if debitBuyerWallet {
		refs = append(refs, buyerRef)
	}
	wallet.SortRefs(refs)

	for _, ref := range refs {
		switch ref {
		case buyerRef:
			if err := wallets.DebitFinal(ctx, buyerRef, booking.Amount); err != nil {
				return err
			}
		case carrierRef:
			if err := wallets.CreditTemporary(ctx, carrierRef, proceeds); err != nil {
				return err
			}
		}
	}

	if debitBuyerWallet {
		if _, err := ledger.Record(ctx, transactions.RecordTransactionInput{
			PartyType: enums.PartyTypeBuyer,
			PartyID:   booking.BuyerID,
			Type:      enums.TransactionTypeDebit,
			Status:    enums.TransactionStatusFinal,
			Amount:    booking.Amount,
			BookingID: &booking.ID,
			Narration: "booking payment",
		}); err != nil {
			return err
		}
	}

	if _, err := ledger.Record(ctx, transactions.RecordTransactionInput{
		PartyType: enums.PartyTypeLogistics,
		PartyID:   booking.LogisticsID,
		Type:      enums.TransactionTypeCredit,
		Status:    enums.TransactionStatusTemporary,
		Amount:    proceeds,
		BookingID: &booking.ID,
		Reference: booking.PaymentRef,
		Narration: "booking proceeds held until completion",
	}); err != nil {
		return err
	}

	now := time.Now().UTC()
	booking.Status = enums.BookingStatusPaid
	booking.PaidAt = &now
	return s.repo.WithTx(tx).Save(ctx, booking)
}

func (s *service) settleCompletion(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	if booking.PaidAt == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "booking was never paid")
	}

	proceeds := CarrierProceeds(booking)
	changed, err := s.ledger.WithTx(tx).FinalizeForBooking(ctx, booking.ID)
	if err != nil {
		return err
	}
	if changed > 0 {
		carrierRef := wallet.PartyRef{Type: enums.PartyTypeLogistics, ID: booking.LogisticsID}
		if err := s.wallets.WithTx(tx).FinalizeTemporary(ctx, carrierRef, proceeds); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	booking.Status = enums.BookingStatusCompleted
	booking.CompletedAt = &now
	return s.repo.WithTx(tx).Save(ctx, booking)
}

func (s *service) settleCancellation(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	wallets := s.wallets.WithTx(tx)
	ledger := s.ledger.WithTx(tx)

	changed, err := ledger.CancelForBooking(ctx, booking.ID)
	if err != nil {
		return err
	}
	if changed > 0 && booking.PaidAt != nil {
		proceeds := CarrierProceeds(booking)
		carrierRef := wallet.PartyRef{Type: enums.PartyTypeLogistics, ID: booking.LogisticsID}
		buyerRef := wallet.PartyRef{Type: enums.PartyTypeBuyer, ID: booking.BuyerID}

		refs := []wallet.PartyRef{carrierRef}
		// Wallet-paid bookings carry no gateway reference; only those are
		// refunded into the wallet.
		refundBuyer := booking.PaymentRef == nil
		if refundBuyer {
			refs = append(refs, buyerRef)
		}
		wallet.SortRefs(refs)

		for _, ref := range refs {
			switch ref {
			case carrierRef:
				if err := wallets.CancelTemporary(ctx, carrierRef, proceeds); err != nil {
					return err
				}
			case buyerRef:
				if err := wallets.CreditFinal(ctx, buyerRef, booking.Amount); err != nil {
					return err
				}
			}
		}

		if refundBuyer {
			if _, err := ledger.Record(ctx, transactions.RecordTransactionInput{
				PartyType: enums.PartyTypeBuyer,
				PartyID:   booking.BuyerID,
				Type:      enums.TransactionTypeCredit,
				Status:    enums.TransactionStatusFinal,
				Amount:    booking.Amount,
				BookingID: &booking.ID,
				Narration: "booking cancellation refund",
			}); err != nil {
				return err
			}
		}
	}

	now := time.Now().UTC()
	booking.Status = enums.BookingStatusCancelled
	booking.CanceledAt = &now
	return s.repo.WithTx(tx).Save(ctx, booking)
}

func authorizeBookingTransition(actor Actor, booking *models.Booking, target enums.BookingStatus) error {
	isBuyer := actor.Type == enums.PartyTypeBuyer && actor.ID == booking.BuyerID
	isCarrier := actor.Type == enums.PartyTypeLogistics && actor.ID == booking.LogisticsID

	switch target {
	case enums.BookingStatusInTransit:
		if !isCarrier {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the carrier can start transit")
		}
	case enums.BookingStatusCompleted:
		// Completion releases the carrier's escrow, so only the paying
		// hirer can assert it.
		if !isBuyer {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the hirer can complete a booking")
		}
	case enums.BookingStatusCancelled:
		if !isBuyer {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the hirer can cancel a booking")
		}
	}
	return nil
}

func isBookingParticipant(actor Actor, booking *models.Booking) bool {
	if actor.Type == enums.PartyTypeBuyer && actor.ID == booking.BuyerID {
		return true
	}
	return actor.Type == enums.PartyTypeLogistics && actor.ID == booking.LogisticsID
}

func (s *service) fanOut(ctx context.Context, input notifications.NotifyInput) {
	if _, err := s.notifier.Notify(ctx, input); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "party_id", input.PartyID.String()), "notification fan-out failed")
	}
}

func bookingPage(bookings []models.Booking, next *pagination.Cursor) *BookingPage {
	page := &BookingPage{Bookings: bookings}
	if next != nil {
		page.NextCursor = pagination.EncodeCursor(*next)
	}
	return page
}
