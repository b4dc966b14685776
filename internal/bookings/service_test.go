package bookings

import (
	"context"
	"fmt"
	"testing"
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
	"github.com/farmyapp/farmyapp-backend/pkg/pagination"
	"github.com/farmyapp/farmyapp-backend/pkg/paystack"
)

type fakeBookingRepo struct {
	bookings map[uuid.UUID]*models.Booking
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: make(map[uuid.UUID]*models.Booking)}
}

func (f *fakeBookingRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	clone := *booking
	f.bookings[booking.ID] = &clone
	return nil
}

func (f *fakeBookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	booking, ok := f.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *booking
	return &clone, nil
}

func (f *fakeBookingRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeBookingRepo) GetByPaymentRef(ctx context.Context, reference string) (*models.Booking, error) {
	for _, booking := range f.bookings {
		if booking.PaymentRef != nil && *booking.PaymentRef == reference {
			clone := *booking
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBookingRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Booking, *pagination.Cursor, error) {
	var out []models.Booking
	for _, booking := range f.bookings {
		if booking.BuyerID == buyerID {
			out = append(out, *booking)
		}
	}
	return out, nil, nil
}

func (f *fakeBookingRepo) ListByLogistics(ctx context.Context, logisticsID uuid.UUID, params pagination.Params) ([]models.Booking, *pagination.Cursor, error) {
	var out []models.Booking
	for _, booking := range f.bookings {
		if booking.LogisticsID == logisticsID {
			out = append(out, *booking)
		}
	}
	return out, nil, nil
}

func (f *fakeBookingRepo) Save(ctx context.Context, booking *models.Booking) error {
	clone := *booking
	f.bookings[booking.ID] = &clone
	return nil
}

type fakeVehicleRepo struct {
	vehicles map[uuid.UUID]*models.Vehicle
}

func (f *fakeVehicleRepo) WithTx(tx *gorm.DB) VehicleRepository { return f }

func (f *fakeVehicleRepo) Create(ctx context.Context, vehicle *models.Vehicle) error {
	if vehicle.ID == uuid.Nil {
		vehicle.ID = uuid.New()
	}
	f.vehicles[vehicle.ID] = vehicle
	return nil
}

func (f *fakeVehicleRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Vehicle, error) {
	vehicle, ok := f.vehicles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return vehicle, nil
}

func (f *fakeVehicleRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Vehicle, error) {
	var out []models.Vehicle
	for _, vehicle := range f.vehicles {
		if vehicle.OwnerID == ownerID {
			out = append(out, *vehicle)
		}
	}
	return out, nil
}

func (f *fakeVehicleRepo) Save(ctx context.Context, vehicle *models.Vehicle) error {
	f.vehicles[vehicle.ID] = vehicle
	return nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeWallets struct {
	final     map[string]decimal.Decimal
	temporary map[string]decimal.Decimal
}

func newFakeWallets() *fakeWallets {
	return &fakeWallets{
		final:     make(map[string]decimal.Decimal),
		temporary: make(map[string]decimal.Decimal),
	}
}

func walletKey(ref wallet.PartyRef) string {
	return fmt.Sprintf("%s/%s", ref.Type, ref.ID)
}

func (f *fakeWallets) WithTx(tx *gorm.DB) wallet.Service { return f }

func (f *fakeWallets) Ensure(ctx context.Context, ref wallet.PartyRef) (*models.Wallet, error) {
	return f.Get(ctx, ref)
}

func (f *fakeWallets) Get(ctx context.Context, ref wallet.PartyRef) (*models.Wallet, error) {
	return &models.Wallet{
		PartyType:        ref.Type,
		PartyID:          ref.ID,
		FinalBalance:     f.final[walletKey(ref)],
		TemporaryBalance: f.temporary[walletKey(ref)],
	}, nil
}

func (f *fakeWallets) CreditTemporary(ctx context.Context, ref wallet.PartyRef, amount decimal.Decimal) error {
	f.temporary[walletKey(ref)] = f.temporary[walletKey(ref)].Add(amount)
	return nil
}

func (f *fakeWallets) FinalizeTemporary(ctx context.Context, ref wallet.PartyRef, amount decimal.Decimal) error {
	key := walletKey(ref)
	if f.temporary[key].LessThan(amount) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "temporary balance too low")
	}
	f.temporary[key] = f.temporary[key].Sub(amount)
	f.final[key] = f.final[key].Add(amount)
	return nil
}

func (f *fakeWallets) CancelTemporary(ctx context.Context, ref wallet.PartyRef, amount decimal.Decimal) error {
	key := walletKey(ref)
	if f.temporary[key].LessThan(amount) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "temporary balance too low")
	}
	f.temporary[key] = f.temporary[key].Sub(amount)
	return nil
}

func (f *fakeWallets) CreditFinal(ctx context.Context, ref wallet.PartyRef, amount decimal.Decimal) error {
	f.final[walletKey(ref)] = f.final[walletKey(ref)].Add(amount)
	return nil
}

func (f *fakeWallets) DebitFinal(ctx context.Context, ref wallet.PartyRef, amount decimal.Decimal) error {
	key := walletKey(ref)
	if f.final[key].LessThan(amount) {
		return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient balance")
	}
	f.final[key] = f.final[key].Sub(amount)
	return nil
}

type fakeLedger struct {
	entries []models.Transaction
}

func (f *fakeLedger) WithTx(tx *gorm.DB) transactions.Service { return f }

func (f *fakeLedger) Record(ctx context.Context, input transactions.RecordTransactionInput) (*models.Transaction, error) {
	txn := models.Transaction{
		ID:        uuid.New(),
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
	f.entries = append(f.entries, txn)
	return &txn, nil
}

func (f *fakeLedger) Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLedger) ListForParty(ctx context.Context, input transactions.ListTransactionsInput) (*transactions.TransactionPage, error) {
	return &transactions.TransactionPage{}, nil
}

func (f *fakeLedger) ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.Transaction, error) {
	return nil, nil
}

func (f *fakeLedger) FinalizeForOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeLedger) CancelForOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeLedger) FinalizeForBooking(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	return f.flip(bookingID, enums.TransactionStatusTemporary, enums.TransactionStatusFinal), nil
}

func (f *fakeLedger) CancelForBooking(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	return f.flip(bookingID, enums.TransactionStatusTemporary, enums.TransactionStatusCanceled), nil
}

func (f *fakeLedger) flip(bookingID uuid.UUID, from, to enums.TransactionStatus) int64 {
	var changed int64
	for i := range f.entries {
		if f.entries[i].BookingID != nil && *f.entries[i].BookingID == bookingID && f.entries[i].Status == from {
			f.entries[i].Status = to
			if to == enums.TransactionStatusCanceled {
				f.entries[i].Amount = decimal.Zero
			}
			changed++
		}
	}
	return changed
}

type fakeParties struct{}

func (fakeParties) Get(ctx context.Context, id uuid.UUID) (*models.Party, error) {
	return &models.Party{ID: id, Email: "buyer@example.com"}, nil
}

func (fakeParties) Resolve(ctx context.Context, partyType enums.PartyType, id uuid.UUID) (*models.Party, error) {
	return &models.Party{ID: id, Type: partyType}, nil
}

type fakeGateway struct {
	initRef      string
	verifyStatus string
	verifyAmount decimal.Decimal
}

func (f *fakeGateway) InitializeTransaction(ctx context.Context, email string, amount decimal.Decimal) (*paystack.InitializeResult, error) {
	return &paystack.InitializeResult{
		AuthorizationURL: "https://checkout.test/" + f.initRef,
		AccessCode:       "ac_" + f.initRef,
		Reference:        f.initRef,
	}, nil
}

func (f *fakeGateway) VerifyTransaction(ctx context.Context, reference string) (*paystack.VerifyResult, error) {
	return &paystack.VerifyResult{
		Status:    f.verifyStatus,
		Reference: reference,
		Amount:    f.verifyAmount,
	}, nil
}

type fakeNotifier struct {
	sent []notifications.NotifyInput
}

func (f *fakeNotifier) Notify(ctx context.Context, input notifications.NotifyInput) (*models.Notification, error) {
	f.sent = append(f.sent, input)
	return &models.Notification{}, nil
}

func (f *fakeNotifier) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{}, nil
}

func (f *fakeNotifier) MarkRead(ctx context.Context, partyType enums.PartyType, partyID, notificationID uuid.UUID) error {
	return nil
}

func (f *fakeNotifier) MarkAllRead(ctx context.Context, partyType enums.PartyType, partyID uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeNotifier) Schedule(ctx context.Context, tx *gorm.DB, input notifications.ScheduleInput) (*models.ScheduledNotification, error) {
	return &models.ScheduledNotification{}, nil
}

func (f *fakeNotifier) CancelScheduledForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeNotifier) DeliverDue(ctx context.Context, now time.Time, limit int) (int, error) {
	return 0, nil
}

type harness struct {
	svc      Service
	repo     *fakeBookingRepo
	vehicles *fakeVehicleRepo
	wallets  *fakeWallets
	ledger   *fakeLedger
	gateway  *fakeGateway
	notifier *fakeNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		repo:     newFakeBookingRepo(),
		vehicles: &fakeVehicleRepo{vehicles: make(map[uuid.UUID]*models.Vehicle)},
		wallets:  newFakeWallets(),
		ledger:   &fakeLedger{},
		gateway:  &fakeGateway{initRef: "bk_ref", verifyStatus: "success"},
		notifier: &fakeNotifier{},
	}

	svc, err := NewService(
		h.repo,
		h.vehicles,
		fakeTxRunner{},
		h.wallets,
		h.ledger,
		fakeParties{},
		h.gateway,
		h.notifier,
		nil,
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	h.svc = svc
	return h
}

func (h *harness) addVehicle(t *testing.T, ownerID uuid.UUID, price string) *models.Vehicle {
	t.Helper()
	vehicle := &models.Vehicle{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      "Box Truck",
		Price:     decimal.RequireFromString(price),
		RegNumber: "LAG-123-XY",
		Capacity:  2,
	}
	h.vehicles.vehicles[vehicle.ID] = vehicle
	return vehicle
}

func TestRegisterVehicleRequiresLogistics(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.RegisterVehicle(context.Background(), Actor{Type: enums.PartyTypeBuyer, ID: uuid.New()}, RegisterVehicleInput{
		Name:      "Van",
		Price:     decimal.RequireFromString("100.00"),
		RegNumber: "ABC-1",
		Capacity:  1,
	})
	if err == nil {
		t.Fatal("expected buyers to be rejected")
	}
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("error = %v, want FORBIDDEN", err)
	}

	vehicle, err := h.svc.RegisterVehicle(context.Background(), Actor{Type: enums.PartyTypeLogistics, ID: uuid.New()}, RegisterVehicleInput{
		Name:      "Van",
		Price:     decimal.RequireFromString("100.00"),
		RegNumber: "ABC-1",
		Capacity:  1,
	})
	if err != nil {
		t.Fatalf("RegisterVehicle: %v", err)
	}
	if vehicle.ID == uuid.Nil {
		t.Fatal("expected a persisted vehicle id")
	}
}

func TestBookWalletPaymentEscrow(t *testing.T) {
	h := newHarness(t)
	buyerID := uuid.New()
	carrierID := uuid.New()
	vehicle := h.addVehicle(t, carrierID, "200.00")

	buyerRef := wallet.PartyRef{Type: enums.PartyTypeBuyer, ID: buyerID}
	carrierRef := wallet.PartyRef{Type: enums.PartyTypeLogistics, ID: carrierID}
	h.wallets.final[walletKey(buyerRef)] = decimal.RequireFromString("500.00")

	result, err := h.svc.Book(context.Background(), BookInput{
		BuyerID:       buyerID,
		VehicleID:     vehicle.ID,
		Pickup:        "Ikeja",
		Destination:   "Epe",
		PaymentMethod: enums.PaymentMethodWallet,
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	booking := result.Booking
	if booking.Status != enums.BookingStatusPaid {
		t.Fatalf("status = %s, want paid", booking.Status)
	}
	if !booking.Amount.Equal(vehicle.Price) {
		t.Fatalf("amount = %s, want vehicle price %s", booking.Amount, vehicle.Price)
	}

	if got := h.wallets.final[walletKey(buyerRef)]; !got.Equal(decimal.RequireFromString("300.00")) {
		t.Fatalf("buyer balance = %s, want 300.00", got)
	}
	if got := h.wallets.temporary[walletKey(carrierRef)]; !got.Equal(decimal.RequireFromString("194.00")) {
		t.Fatalf("carrier escrow = %s, want 194.00", got)
	}
}

func TestBookCardReturnsPaymentURL(t *testing.T) {
	h := newHarness(t)
	buyerID := uuid.New()
	carrierID := uuid.New()
	vehicle := h.addVehicle(t, carrierID, "150.00")

	result, err := h.svc.Book(context.Background(), BookInput{
		BuyerID:       buyerID,
		VehicleID:     vehicle.ID,
		Pickup:        "Ikeja",
		Destination:   "Epe",
		PaymentMethod: enums.PaymentMethodCard,
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if result.PaymentURL == "" {
		t.Fatal("expected a hosted payment URL")
	}
	if result.Booking.Status != enums.BookingStatusPending {
		t.Fatalf("status = %s, want pending", result.Booking.Status)
	}

	h.gateway.verifyAmount = decimal.RequireFromString("150.00")
	booking, err := h.svc.ConfirmCardPayment(context.Background(), "bk_ref")
	if err != nil {
		t.Fatalf("ConfirmCardPayment: %v", err)
	}
	if booking.Status != enums.BookingStatusPaid {
		t.Fatalf("status = %s, want paid", booking.Status)
	}

	carrierRef := wallet.PartyRef{Type: enums.PartyTypeLogistics, ID: carrierID}
	if got := h.wallets.temporary[walletKey(carrierRef)]; !got.Equal(decimal.RequireFromString("145.50")) {
		t.Fatalf("carrier escrow = %s, want 145.50", got)
	}

	// Verification retries must not double the escrow.
	if _, err := h.svc.ConfirmCardPayment(context.Background(), "bk_ref"); err != nil {
		t.Fatalf("retry ConfirmCardPayment: %v", err)
	}
	if got := h.wallets.temporary[walletKey(carrierRef)]; !got.Equal(decimal.RequireFromString("145.50")) {
		t.Fatalf("carrier escrow after retry = %s, want 145.50", got)
	}
}

func TestCompletionFinalizesEscrow(t *testing.T) {
	h := newHarness(t)
	buyerID := uuid.New()
	carrierID := uuid.New()
	vehicle := h.addVehicle(t, carrierID, "100.00")

	buyerRef := wallet.PartyRef{Type: enums.PartyTypeBuyer, ID: buyerID}
	carrierRef := wallet.PartyRef{Type: enums.PartyTypeLogistics, ID: carrierID}
	h.wallets.final[walletKey(buyerRef)] = decimal.RequireFromString("100.00")

	result, err := h.svc.Book(context.Background(), BookInput{
		BuyerID:       buyerID,
		VehicleID:     vehicle.ID,
		Pickup:        "Ikeja",
		Destination:   "Epe",
		PaymentMethod: enums.PaymentMethodWallet,
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	carrier := Actor{Type: enums.PartyTypeLogistics, ID: carrierID}
	if _, err := h.svc.UpdateStatus(context.Background(), carrier, result.Booking.ID, enums.BookingStatusInTransit); err != nil {
		t.Fatalf("in_transit: %v", err)
	}

	buyer := Actor{Type: enums.PartyTypeBuyer, ID: buyerID}
	booking, err := h.svc.UpdateStatus(context.Background(), buyer, result.Booking.ID, enums.BookingStatusCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if booking.Status != enums.BookingStatusCompleted {
		t.Fatalf("status = %s, want completed", booking.Status)
	}
	if booking.CompletedAt == nil {
		t.Fatal("expected CompletedAt to be set")
	}

	if !h.wallets.temporary[walletKey(carrierRef)].IsZero() {
		t.Fatal("carrier escrow must be released on completion")
	}
	if got := h.wallets.final[walletKey(carrierRef)]; !got.Equal(decimal.RequireFromString("97.00")) {
		t.Fatalf("carrier balance = %s, want 97.00", got)
	}

	var carrierNotified bool
	for _, input := range h.notifier.sent {
		if input.PartyType == enums.PartyTypeLogistics && input.PartyID == carrierID && input.Type == enums.NotificationTypeBooking {
			carrierNotified = true
		}
	}
	if !carrierNotified {
		t.Fatal("carrier must be notified when the fare is released")
	}
}

func TestCancellationRefundsWalletBuyer(t *testing.T) {
	h := newHarness(t)
	buyerID := uuid.New()
	carrierID := uuid.New()
	vehicle := h.addVehicle(t, carrierID, "100.00")

	buyerRef := wallet.PartyRef{Type: enums.PartyTypeBuyer, ID: buyerID}
	carrierRef := wallet.PartyRef{Type: enums.PartyTypeLogistics, ID: carrierID}
	h.wallets.final[walletKey(buyerRef)] = decimal.RequireFromString("100.00")

	result, err := h.svc.Book(context.Background(), BookInput{
		BuyerID:       buyerID,
		VehicleID:     vehicle.ID,
		Pickup:        "Ikeja",
		Destination:   "Epe",
		PaymentMethod: enums.PaymentMethodWallet,
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	buyer := Actor{Type: enums.PartyTypeBuyer, ID: buyerID}
	booking, err := h.svc.UpdateStatus(context.Background(), buyer, result.Booking.ID, enums.BookingStatusCancelled)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if booking.Status != enums.BookingStatusCancelled {
		t.Fatalf("status = %s, want cancelled", booking.Status)
	}

	if got := h.wallets.final[walletKey(buyerRef)]; !got.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("buyer balance = %s, want full refund of 100.00", got)
	}
	if !h.wallets.temporary[walletKey(carrierRef)].IsZero() {
		t.Fatal("carrier escrow must be voided on cancellation")
	}

	// Terminal states absorb further transitions.
	if _, err := h.svc.UpdateStatus(context.Background(), buyer, result.Booking.ID, enums.BookingStatusCompleted); err == nil {
		t.Fatal("cancelled bookings must not complete")
	}
}

func TestInTransitRequiresCarrier(t *testing.T) {
	h := newHarness(t)
	buyerID := uuid.New()
	carrierID := uuid.New()
	vehicle := h.addVehicle(t, carrierID, "100.00")

	buyerRef := wallet.PartyRef{Type: enums.PartyTypeBuyer, ID: buyerID}
	h.wallets.final[walletKey(buyerRef)] = decimal.RequireFromString("100.00")

	result, err := h.svc.Book(context.Background(), BookInput{
		BuyerID:       buyerID,
		VehicleID:     vehicle.ID,
		Pickup:        "Ikeja",
		Destination:   "Epe",
		PaymentMethod: enums.PaymentMethodWallet,
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	buyer := Actor{Type: enums.PartyTypeBuyer, ID: buyerID}
	if _, err := h.svc.UpdateStatus(context.Background(), buyer, result.Booking.ID, enums.BookingStatusInTransit); err == nil {
		t.Fatal("buyers must not start transit")
	}
}

func TestCompletionRequiresHirer(t *testing.T) {
	h := newHarness(t)
	buyerID := uuid.New()
	carrierID := uuid.New()
	vehicle := h.addVehicle(t, carrierID, "100.00")

	buyerRef := wallet.PartyRef{Type: enums.PartyTypeBuyer, ID: buyerID}
	carrierRef := wallet.PartyRef{Type: enums.PartyTypeLogistics, ID: carrierID}
	h.wallets.final[walletKey(buyerRef)] = decimal.RequireFromString("100.00")

	result, err := h.svc.Book(context.Background(), BookInput{
		BuyerID:       buyerID,
		VehicleID:     vehicle.ID,
		Pickup:        "Ikeja",
		Destination:   "Epe",
		PaymentMethod: enums.PaymentMethodWallet,
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	// The carrier must not be able to release their own escrow by
	// completing or cancelling the booking.
	carrier := Actor{Type: enums.PartyTypeLogistics, ID: carrierID}
	if _, err := h.svc.UpdateStatus(context.Background(), carrier, result.Booking.ID, enums.BookingStatusCompleted); err == nil {
		t.Fatal("carrier must not complete a booking")
	}
	if _, err := h.svc.UpdateStatus(context.Background(), carrier, result.Booking.ID, enums.BookingStatusCancelled); err == nil {
		t.Fatal("carrier must not cancel a booking")
	}
	if !h.wallets.final[walletKey(carrierRef)].IsZero() {
		t.Fatalf("carrier balance = %s, want untouched 0", h.wallets.final[walletKey(carrierRef)])
	}
	if got := h.wallets.temporary[walletKey(carrierRef)]; !got.Equal(decimal.RequireFromString("97.00")) {
		t.Fatalf("carrier escrow = %s, want 97.00 still held", got)
	}
}
