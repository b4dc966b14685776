package orders

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
	"github.com/farmyapp/farmyapp-backend/internal/products"
	"github.com/farmyapp/farmyapp-backend/internal/transactions"
	"github.com/farmyapp/farmyapp-backend/internal/wallet"
	"github.com/farmyapp/farmyapp-backend/pkg/db/models"
	"github.com/farmyapp/farmyapp-backend/pkg/enums"
	pkgerrors "github.com/farmyapp/farmyapp-backend/pkg/errors"
	"github.com/farmyapp/farmyapp-backend/pkg/logger"
	"github.com/farmyapp/farmyapp-backend/pkg/pagination"
	"github.com/farmyapp/farmyapp-backend/pkg/paystack"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartOps interface {
	GetOrCreate(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error)
	Clear(ctx context.Context, tx *gorm.DB, buyerID uuid.UUID) error
}

type partyLoader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Party, error)
}

type vehicleLoader interface {
	GetVehicle(ctx context.Context, id uuid.UUID) (*models.Vehicle, error)
}

type paymentGateway interface {
	InitializeTransaction(ctx context.Context, email string, amount decimal.Decimal) (*paystack.InitializeResult, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.VerifyResult, error)
}

// Actor identifies the authenticated party driving an order operation.
type Actor struct {
	Type enums.PartyType
	ID   uuid.UUID
}

// Service exposes order checkout and lifecycle settlement.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
	ConfirmCardPayment(ctx context.Context, reference string) (*models.Order, error)
	MarkPaid(ctx context.Context, actor Actor, orderID uuid.UUID, tellerURL *string) (*models.Order, error)
	UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, target enums.OrderStatus) (*models.Order, error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderPage, error)
	ListForSeller(ctx context.Context, actor Actor, params pagination.Params) (*OrderPage, error)
}

// CheckoutInput captures a cart checkout request. TellerURL is the uploaded
// proof-of-transfer image for bank checkouts.
type CheckoutInput struct {
	BuyerID       uuid.UUID
	PaymentMethod enums.PaymentMethod
	TellerURL     *string
}

// CheckoutResult carries the created order plus the hosted payment URL for
// card checkouts.
type CheckoutResult struct {
	Order      *models.Order
	PaymentURL string
}

// OrderPage is one page of orders plus the next cursor.
type OrderPage struct {
	Orders     []models.Order
	NextCursor string
}

type service struct {
	repo        Repository
	tx          txRunner
	cart        cartOps
	wallets     wallet.Service
	ledger      transactions.Service
	products    products.Repository
	parties     partyLoader
	vehicles    vehicleLoader
	gateway     paymentGateway
	notifier    notifications.Service
	logg        *logger.Logger
	reviewDelay time.Duration
}

// NewService builds an orders service backed by the provided stack.
func NewService(
	repo Repository,
	tx txRunner,
	cart cartOps,
	wallets wallet.Service,
	ledger transactions.Service,
	productsRepo products.Repository,
	parties partyLoader,
	vehicles vehicleLoader,
	gateway paymentGateway,
	notifier notifications.Service,
	logg *logger.Logger,
	reviewDelay time.Duration,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if cart == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if parties == nil {
		return nil, fmt.Errorf("party service required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	if reviewDelay <= 0 {
		reviewDelay = 24 * time.Hour
	}
	return &service{
		repo:        repo,
		tx:          tx,
		cart:        cart,
		wallets:     wallets,
		ledger:      ledger,
		products:    productsRepo,
		parties:     parties,
		vehicles:    vehicles,
		gateway:     gateway,
		notifier:    notifier,
		logg:        logg,
		reviewDelay: reviewDelay,
	}, nil
}

func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}
	if input.TellerURL != nil && input.PaymentMethod != enums.PaymentMethodBank {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "teller proof only applies to bank-transfer checkouts")
	}

	record, err := s.cart.GetOrCreate(ctx, input.BuyerID)
	if err != nil {
		return nil, err
	}
	if len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	}
	if record.SellerType == nil || record.SellerID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart has no seller")
	}
	if record.DeliveryOption == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "delivery option not chosen")
	}
	if record.Total.IsNegative() || record.Total.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart total must be positive")
	}

	// A hired vehicle was priced into the cart total; resolve its carrier
	// so the delivery fee can be escrowed alongside the seller's share.
	var logisticsID *uuid.UUID
	if record.VehicleID != nil {
		if s.vehicles == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "vehicle registry unavailable")
		}
		vehicle, err := s.vehicles.GetVehicle(ctx, *record.VehicleID)
		if err != nil {
			return nil, err
		}
		logisticsID = &vehicle.OwnerID
	}

	// Card checkouts open the hosted payment session before any rows are
	// written so a gateway failure leaves nothing behind.
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
		session, err := s.gateway.InitializeTransaction(ctx, buyer.Email, record.Total)
		if err != nil {
			return nil, err
		}
		paymentRef = &session.Reference
		paymentURL = session.AuthorizationURL
	}

	order := &models.Order{
		BuyerID:        input.BuyerID,
		SellerType:     *record.SellerType,
		SellerID:       *record.SellerID,
		Status:         enums.OrderStatusPending,
		PaymentMethod:  input.PaymentMethod,
		DeliveryOption: *record.DeliveryOption,
		Address:        record.Address,
		PickupLocation: record.PickupLocation,
		VehicleID:      record.VehicleID,
		LogisticsID:    logisticsID,
		LogisticsFee:   record.VehicleFee,
		Total:          record.Total,
		PaymentRef:     paymentRef,
		TellerURL:      input.TellerURL,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		productRepo := s.products.WithTx(tx)

		for _, line := range record.Items {
			product, err := productRepo.GetByIDForUpdate(ctx, line.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeStateConflict, "cart product no longer exists")
				}
				return err
			}
			if product.AvailableQty < line.Quantity {
				return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("insufficient stock for %s", product.Name))
			}
			product.AvailableQty -= line.Quantity
			if err := productRepo.Save(ctx, product); err != nil {
				return err
			}
			order.Items = append(order.Items, models.OrderItem{
				ProductID:    product.ID,
				Name:         product.Name,
				Quantity:     line.Quantity,
				UnitPrice:    line.UnitPrice,
				Commission:   product.Commission,
				LineSubtotal: line.LineSubtotal,
			})
		}

		if err := repo.Create(ctx, order); err != nil {
			return err
		}

		if input.PaymentMethod == enums.PaymentMethodWallet {
			if err := s.settlePayment(ctx, tx, order, true); err != nil {
				return err
			}
		}

		return s.cart.Clear(ctx, tx, input.BuyerID)
	})
	if err != nil {
		return nil, err
	}

	s.fanOut(ctx, notifications.NotifyInput{
		PartyType: order.SellerType,
		PartyID:   order.SellerID,
		Type:      enums.NotificationTypeOrder,
		Title:     "New order received",
		Message:   fmt.Sprintf("Order %s was placed for %s.", order.ID, order.Total.StringFixed(2)),
	})
	if order.LogisticsID != nil {
		s.fanOut(ctx, notifications.NotifyInput{
			PartyType: enums.PartyTypeLogistics,
			PartyID:   *order.LogisticsID,
			Type:      enums.NotificationTypeOrder,
			Title:     "New delivery booked",
			Message:   fmt.Sprintf("Your vehicle was hired for order %s.", order.ID),
		})
	}

	return &CheckoutResult{Order: order, PaymentURL: paymentURL}, nil
}

// ConfirmCardPayment verifies the hosted checkout session and escrows the
// seller's share once the gateway reports success.
func (s *service) ConfirmCardPayment(ctx context.Context, reference string) (*models.Order, error) {
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

	order, err := s.repo.GetByPaymentRef(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found for reference")
		}
		return nil, err
	}
	if !verification.Amount.Equal(order.Total) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "settled amount does not match order total")
	}

	var out *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := s.repo.WithTx(tx).GetByIDForUpdate(ctx, order.ID)
		if err != nil {
			return err
		}
		if locked.Status != enums.OrderStatusPending {
			// Verification retries land here; the first one already paid.
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
		Type:      enums.NotificationTypeOrder,
		Title:     "Payment confirmed",
		Message:   fmt.Sprintf("Your payment for order %s was confirmed.", out.ID),
	})
	return out, nil
}

// MarkPaid lets the seller of a bank-transfer order confirm receipt and
// start the escrow. A teller URL passed here replaces the proof stored at
// checkout.
func (s *service) MarkPaid(ctx context.Context, actor Actor, orderID uuid.UUID, tellerURL *string) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	var out *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).GetByIDForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}
		if order.SellerType != actor.Type || order.SellerID != actor.ID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can confirm payment")
		}
		if order.PaymentMethod != enums.PaymentMethodBank {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not a bank-transfer order")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is already %s", order.Status))
		}
		if tellerURL != nil {
			order.TellerURL = tellerURL
		}
		if err := s.settlePayment(ctx, tx, order, false); err != nil {
			return err
		}
		out = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.fanOut(ctx, notifications.NotifyInput{
		PartyType: enums.PartyTypeBuyer,
		PartyID:   out.BuyerID,
		Type:      enums.NotificationTypeOrder,
		Title:     "Payment confirmed",
		Message:   fmt.Sprintf("The seller confirmed payment for order %s.", out.ID),
	})
	return out, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, target enums.OrderStatus) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", target))
	}
	if target == enums.OrderStatusPending || target == enums.OrderStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment states are set through payment confirmation")
	}

	var out *models.Order
	var absorbed bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).GetByIDForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}

		if err := s.authorizeTransition(ctx, actor, order, target); err != nil {
			return err
		}
		// Re-applying a terminal state is an idempotent no-op: the wallets
		// already settled, so the caller just gets the current row back.
		if order.Status == target && order.Status.IsTerminal() {
			out = order
			absorbed = true
			return nil
		}
		if !order.Status.CanTransitionTo(target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move order from %s to %s", order.Status, target))
		}

		switch target {
		case enums.OrderStatusDelivered:
			if err := s.settleDelivery(ctx, tx, order); err != nil {
				return err
			}
		case enums.OrderStatusCanceled:
			if err := s.settleCancellation(ctx, tx, order); err != nil {
				return err
			}
		default:
			order.Status = target
			if err := s.repo.WithTx(tx).Save(ctx, order); err != nil {
				return err
			}
		}
		out = order
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
		Type:      enums.NotificationTypeOrder,
		Title:     "Order update",
		Message:   fmt.Sprintf("Order %s is now %s.", out.ID, out.Status),
	})
	// Delivery releases the escrow, so every party whose funds moved
	// hears about it.
	if out.Status == enums.OrderStatusDelivered {
		s.fanOut(ctx, notifications.NotifyInput{
			PartyType: out.SellerType,
			PartyID:   out.SellerID,
			Type:      enums.NotificationTypeOrder,
			Title:     "Order delivered",
			Message:   fmt.Sprintf("Proceeds for order %s were released to your wallet.", out.ID),
		})
		if out.LogisticsID != nil {
			s.fanOut(ctx, notifications.NotifyInput{
				PartyType: enums.PartyTypeLogistics,
				PartyID:   *out.LogisticsID,
				Type:      enums.NotificationTypeOrder,
				Title:     "Order delivered",
				Message:   fmt.Sprintf("The delivery fee for order %s was released to your wallet.", out.ID),
			})
		}
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	if !s.isParticipant(ctx, actor, order) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another party")
	}
	return order, nil
}

func (s *service) ListForBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderPage, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	orders, next, err := s.repo.ListByBuyer(ctx, buyerID, params)
	if err != nil {
		return nil, err
	}
	return pageResult(orders, next), nil
}

func (s *service) ListForSeller(ctx context.Context, actor Actor, params pagination.Params) (*OrderPage, error) {
	if !actor.Type.IsSeller() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only sellers have a sales ledger")
	}
	orders, next, err := s.repo.ListBySeller(ctx, actor.Type, actor.ID, params)
	if err != nil {
		return nil, err
	}
	return pageResult(orders, next), nil
}

// settlePayment records the buyer's payment and escrows the seller share.
// When debitBuyerWallet is set, the buyer pays from their wallet balance;
// card and bank payments move money outside the wallet system.
func (s *service) settlePayment(ctx context.Context, tx *gorm.DB, order *models.Order, debitBuyerWallet bool) error {
	wallets := s.wallets.WithTx(tx)
	ledger := s.ledger.WithTx(tx)

	buyerRef := wallet.PartyRef{Type: enums.PartyTypeBuyer, ID: order.BuyerID}
	sellerRef := wallet.PartyRef{Type: order.SellerType, ID: order.SellerID}
	proceeds := SellerProceeds(order)
	carrierShare := LogisticsProceeds(order)

	// Wallet rows are locked in sorted owner order to keep concurrent
	// settlements deadlock-free.
	refs := []wallet.PartyRef{sellerRef}
	var logisticsRef wallet.PartyRef
	if carrierShare.IsPositive() {
		logisticsRef = wallet.PartyRef{Type: enums.PartyTypeLogistics, ID: *order.LogisticsID}
		refs = append(refs, logisticsRef)
	}
	if debitBuyerWallet {
		refs = append(refs, buyerRef)
	}
	wallet.SortRefs(refs)

	for _, ref := range refs {
		switch ref {
		case buyerRef:
			if err := wallets.DebitFinal(ctx, buyerRef, order.Total); err != nil {
				return err
			}
		case sellerRef:
			if err := wallets.CreditTemporary(ctx, sellerRef, proceeds); err != nil {
				return err
			}
		case logisticsRef:
			if err := wallets.CreditTemporary(ctx, logisticsRef, carrierShare); err != nil {
				return err
			}
		}
	}

	if debitBuyerWallet {
		if _, err := ledger.Record(ctx, transactions.RecordTransactionInput{
			PartyType: enums.PartyTypeBuyer,
			PartyID:   order.BuyerID,
			Type:      enums.TransactionTypeDebit,
			Status:    enums.TransactionStatusFinal,
			Amount:    order.Total,
			OrderID:   &order.ID,
			Narration: "order payment",
		}); err != nil {
			return err
		}
	}

	if _, err := ledger.Record(ctx, transactions.RecordTransactionInput{
		PartyType: order.SellerType,
		PartyID:   order.SellerID,
		Type:      enums.TransactionTypeCredit,
		Status:    enums.TransactionStatusTemporary,
		Amount:    proceeds,
		OrderID:   &order.ID,
		Reference: order.PaymentRef,
		Narration: "order proceeds held until delivery",
	}); err != nil {
		return err
	}

	if carrierShare.IsPositive() {
		if _, err := ledger.Record(ctx, transactions.RecordTransactionInput{
			PartyType: enums.PartyTypeLogistics,
			PartyID:   *order.LogisticsID,
			Type:      enums.TransactionTypeCredit,
			Status:    enums.TransactionStatusTemporary,
			Amount:    carrierShare,
			OrderID:   &order.ID,
			Reference: order.PaymentRef,
			Narration: "delivery fee held until delivery",
		}); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	order.Status = enums.OrderStatusPaid
	order.PaidAt = &now
	return s.repo.WithTx(tx).Save(ctx, order)
}

// settleDelivery finalizes the escrow and schedules the review reminder.
func (s *service) settleDelivery(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if order.PaidAt == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order was never paid")
	}

	proceeds := SellerProceeds(order)
	changed, err := s.ledger.WithTx(tx).FinalizeForOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	// A rerun after a crash finds the entries already final; the wallet
	// move must only happen for the run that flipped them.
	if changed > 0 {
		wallets := s.wallets.WithTx(tx)
		sellerRef := wallet.PartyRef{Type: order.SellerType, ID: order.SellerID}
		carrierShare := LogisticsProceeds(order)

		refs := []wallet.PartyRef{sellerRef}
		var logisticsRef wallet.PartyRef
		if carrierShare.IsPositive() {
			logisticsRef = wallet.PartyRef{Type: enums.PartyTypeLogistics, ID: *order.LogisticsID}
			refs = append(refs, logisticsRef)
		}
		wallet.SortRefs(refs)

		for _, ref := range refs {
			switch ref {
			case sellerRef:
				if err := wallets.FinalizeTemporary(ctx, sellerRef, proceeds); err != nil {
					return err
				}
			case logisticsRef:
				if err := wallets.FinalizeTemporary(ctx, logisticsRef, carrierShare); err != nil {
					return err
				}
			}
		}
	}

	now := time.Now().UTC()
	order.Status = enums.OrderStatusDelivered
	order.DeliveredAt = &now
	if err := s.repo.WithTx(tx).Save(ctx, order); err != nil {
		return err
	}

	_, err = s.notifier.Schedule(ctx, tx, notifications.ScheduleInput{
		PartyType: enums.PartyTypeBuyer,
		PartyID:   order.BuyerID,
		Type:      enums.NotificationTypeReview,
		Title:     "How was your order?",
		Message:   fmt.Sprintf("Leave a review for order %s.", order.ID),
		OrderID:   &order.ID,
		DueAt:     now.Add(s.reviewDelay),
	})
	return err
}

// settleCancellation voids the escrow and refunds wallet-paid buyers.
func (s *service) settleCancellation(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	wallets := s.wallets.WithTx(tx)
	ledger := s.ledger.WithTx(tx)

	changed, err := ledger.CancelForOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	if changed > 0 && order.PaidAt != nil {
		proceeds := SellerProceeds(order)
		carrierShare := LogisticsProceeds(order)
		sellerRef := wallet.PartyRef{Type: order.SellerType, ID: order.SellerID}
		buyerRef := wallet.PartyRef{Type: enums.PartyTypeBuyer, ID: order.BuyerID}

		refs := []wallet.PartyRef{sellerRef}
		var logisticsRef wallet.PartyRef
		if carrierShare.IsPositive() {
			logisticsRef = wallet.PartyRef{Type: enums.PartyTypeLogistics, ID: *order.LogisticsID}
			refs = append(refs, logisticsRef)
		}
		refundBuyer := order.PaymentMethod == enums.PaymentMethodWallet
		if refundBuyer {
			refs = append(refs, buyerRef)
		}
		wallet.SortRefs(refs)

		for _, ref := range refs {
			switch ref {
			case sellerRef:
				if err := wallets.CancelTemporary(ctx, sellerRef, proceeds); err != nil {
					return err
				}
			case logisticsRef:
				if err := wallets.CancelTemporary(ctx, logisticsRef, carrierShare); err != nil {
					return err
				}
			case buyerRef:
				if err := wallets.CreditFinal(ctx, buyerRef, order.Total); err != nil {
					return err
				}
			}
		}

		if refundBuyer {
			if _, err := ledger.Record(ctx, transactions.RecordTransactionInput{
				PartyType: enums.PartyTypeBuyer,
				PartyID:   order.BuyerID,
				Type:      enums.TransactionTypeCredit,
				Status:    enums.TransactionStatusFinal,
				Amount:    order.Total,
				OrderID:   &order.ID,
				Narration: "order cancellation refund",
			}); err != nil {
				return err
			}
		}
	}

	if _, err := s.notifier.CancelScheduledForOrder(ctx, tx, order.ID); err != nil {
		return err
	}

	now := time.Now().UTC()
	order.Status = enums.OrderStatusCanceled
	order.CanceledAt = &now
	return s.repo.WithTx(tx).Save(ctx, order)
}

func (s *service) authorizeTransition(ctx context.Context, actor Actor, order *models.Order, target enums.OrderStatus) error {
	isBuyer := actor.Type == enums.PartyTypeBuyer && actor.ID == order.BuyerID
	isSeller := actor.Type == order.SellerType && actor.ID == order.SellerID
	isCarrier := false
	if order.VehicleID != nil && actor.Type == enums.PartyTypeLogistics && s.vehicles != nil {
		if vehicle, err := s.vehicles.GetVehicle(ctx, *order.VehicleID); err == nil {
			isCarrier = vehicle.OwnerID == actor.ID
		}
	}

	switch target {
	case enums.OrderStatusPacked:
		if !isSeller {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can pack an order")
		}
	case enums.OrderStatusInTransit:
		// With a vehicle attached the carrier drives the shipment; without
		// one the seller ships it themselves.
		if order.VehicleID != nil {
			if !isCarrier {
				return pkgerrors.New(pkgerrors.CodeForbidden, "only the assigned carrier can start transit")
			}
		} else if !isSeller {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can start transit")
		}
	case enums.OrderStatusDelivered:
		// Delivery confirmation releases the escrow, so only the paying
		// buyer can assert it.
		if !isBuyer {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can confirm delivery")
		}
	case enums.OrderStatusCanceled:
		if !isBuyer {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can cancel an order")
		}
	}
	return nil
}

func (s *service) isParticipant(ctx context.Context, actor Actor, order *models.Order) bool {
	if actor.Type == enums.PartyTypeBuyer && actor.ID == order.BuyerID {
		return true
	}
	if actor.Type == order.SellerType && actor.ID == order.SellerID {
		return true
	}
	if order.VehicleID != nil && actor.Type == enums.PartyTypeLogistics && s.vehicles != nil {
		if vehicle, err := s.vehicles.GetVehicle(ctx, *order.VehicleID); err == nil {
			return vehicle.OwnerID == actor.ID
		}
	}
	return false
}

func (s *service) fanOut(ctx context.Context, input notifications.NotifyInput) {
	if _, err := s.notifier.Notify(ctx, input); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "party_id", input.PartyID.String()), "notification fan-out failed")
	}
}

func pageResult(orders []models.Order, next *pagination.Cursor) *OrderPage {
	page := &OrderPage{Orders: orders}
	if next != nil {
		page.NextCursor = pagination.EncodeCursor(*next)
	}
	return page
}

