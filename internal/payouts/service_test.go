package payouts

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farmyapp/farmyapp-backend/internal/transactions"
	"github.com/farmyapp/farmyapp-backend/internal/wallet"
	"github.com/farmyapp/farmyapp-backend/pkg/db/models"
	"github.com/farmyapp/farmyapp-backend/pkg/enums"
	pkgerrors "github.com/farmyapp/farmyapp-backend/pkg/errors"
	"github.com/farmyapp/farmyapp-backend/pkg/pagination"
	"github.com/farmyapp/farmyapp-backend/pkg/paystack"
)

type fakeLedgerRepo struct {
	entries map[uuid.UUID]*models.Transaction
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{entries: make(map[uuid.UUID]*models.Transaction)}
}

func (f *fakeLedgerRepo) WithTx(tx *gorm.DB) transactions.Repository { return f }

func (f *fakeLedgerRepo) Create(ctx context.Context, txn *models.Transaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	clone := *txn
	f.entries[txn.ID] = &clone
	return nil
}

func (f *fakeLedgerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	entry, ok := f.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *entry
	return &clone, nil
}

func (f *fakeLedgerRepo) ListByParty(ctx context.Context, params transactions.ListByPartyParams) ([]models.Transaction, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (f *fakeLedgerRepo) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.Transaction, error) {
	return nil, nil
}

func (f *fakeLedgerRepo) UpdateStatusByOrder(ctx context.Context, orderID uuid.UUID, fromStatus, toStatus enums.TransactionStatus) (int64, error) {
	return 0, nil
}

func (f *fakeLedgerRepo) UpdateStatusByBooking(ctx context.Context, bookingID uuid.UUID, fromStatus, toStatus enums.TransactionStatus) (int64, error) {
	return 0, nil
}

func (f *fakeLedgerRepo) CancelByOrder(ctx context.Context, orderID uuid.UUID, fromStatus enums.TransactionStatus) (int64, error) {
	return 0, nil
}

func (f *fakeLedgerRepo) CancelByBooking(ctx context.Context, bookingID uuid.UUID, fromStatus enums.TransactionStatus) (int64, error) {
	return 0, nil
}

func (f *fakeLedgerRepo) UpdateStatus(ctx context.Context, id uuid.UUID, fromStatus, toStatus enums.TransactionStatus) (bool, error) {
	entry, ok := f.entries[id]
	if !ok || entry.Status != fromStatus {
		return false, nil
	}
	entry.Status = toStatus
	return true, nil
}

func (f *fakeLedgerRepo) SetReference(ctx context.Context, id uuid.UUID, reference string) error {
	if entry, ok := f.entries[id]; ok {
		entry.Reference = &reference
	}
	return nil
}

func (f *fakeLedgerRepo) ListStuckPending(ctx context.Context, before time.Time, limit int) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, entry := range f.entries {
		if entry.Type == enums.TransactionTypeWithdrawal && entry.Status == enums.TransactionStatusPending && entry.UpdatedAt.Before(before) {
			out = append(out, *entry)
		}
	}
	return out, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeWallets struct {
	final map[string]decimal.Decimal
}

func walletKey(ref wallet.PartyRef) string {
	return fmt.Sprintf("%s/%s", ref.Type, ref.ID)
}

func (f *fakeWallets) WithTx(tx *gorm.DB) wallet.Service { return f }

func (f *fakeWallets) Ensure(ctx context.Context, ref wallet.PartyRef) (*models.Wallet, error) {
	return f.Get(ctx, ref)
}

func (f *fakeWallets) Get(ctx context.Context, ref wallet.PartyRef) (*models.Wallet, error) {
	return &models.Wallet{PartyType: ref.Type, PartyID: ref.ID, FinalBalance: f.final[walletKey(ref)]}, nil
}

func (f *fakeWallets) CreditTemporary(ctx context.Context, ref wallet.PartyRef, amount decimal.Decimal) error {
	return nil
}

func (f *fakeWallets) FinalizeTemporary(ctx context.Context, ref wallet.PartyRef, amount decimal.Decimal) error {
	return nil
}

func (f *fakeWallets) CancelTemporary(ctx context.Context, ref wallet.PartyRef, amount decimal.Decimal) error {
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

type fakeParties struct {
	recipientCode *string
}

func (f *fakeParties) Resolve(ctx context.Context, partyType enums.PartyType, id uuid.UUID) (*models.Party, error) {
	return &models.Party{ID: id, Type: partyType, RecipientCode: f.recipientCode}, nil
}

type fakeTransfers struct {
	fail  bool
	calls int
}

func (f *fakeTransfers) InitiateTransfer(ctx context.Context, recipientCode string, amount decimal.Decimal, reason string) (*paystack.TransferResult, error) {
	f.calls++
	if f.fail {
		return nil, pkgerrors.New(pkgerrors.CodePayoutFailed, "transfer rejected")
	}
	return &paystack.TransferResult{TransferCode: "TRF_test", Status: "success"}, nil
}

type harness struct {
	svc       Service
	ledger    *fakeLedgerRepo
	wallets   *fakeWallets
	transfers *fakeTransfers
}

func newHarness(t *testing.T, recipientCode *string) *harness {
	t.Helper()

	h := &harness{
		ledger:    newFakeLedgerRepo(),
		wallets:   &fakeWallets{final: make(map[string]decimal.Decimal)},
		transfers: &fakeTransfers{},
	}
	ledgerSvc, err := transactions.NewService(h.ledger)
	if err != nil {
		t.Fatalf("transactions.NewService: %v", err)
	}
	svc, err := NewService(
		h.ledger,
		ledgerSvc,
		fakeTxRunner{},
		h.wallets,
		&fakeParties{recipientCode: recipientCode},
		h.transfers,
		nil,
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	h.svc = svc
	return h
}

func strPtr(s string) *string { return &s }

func TestWithdrawHappyPath(t *testing.T) {
	h := newHarness(t, strPtr("RCP_abc"))
	actor := Actor{Type: enums.PartyTypeFarm, ID: uuid.New()}
	ref := wallet.PartyRef{Type: actor.Type, ID: actor.ID}
	h.wallets.final[walletKey(ref)] = decimal.RequireFromString("500.00")

	entry, err := h.svc.Withdraw(context.Background(), actor, decimal.RequireFromString("200.00"))
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if entry.Status != enums.TransactionStatusCompleted {
		t.Fatalf("status = %s, want completed", entry.Status)
	}
	if entry.Reference == nil || *entry.Reference != "TRF_test" {
		t.Fatal("expected the transfer code on the entry")
	}
	if got := h.wallets.final[walletKey(ref)]; !got.Equal(decimal.RequireFromString("300.00")) {
		t.Fatalf("balance = %s, want 300.00", got)
	}
	stored := h.ledger.entries[entry.ID]
	if stored.Status != enums.TransactionStatusCompleted {
		t.Fatalf("stored status = %s, want completed", stored.Status)
	}
}

func TestWithdrawRequiresRecipientCode(t *testing.T) {
	h := newHarness(t, nil)
	actor := Actor{Type: enums.PartyTypeFarm, ID: uuid.New()}

	_, err := h.svc.Withdraw(context.Background(), actor, decimal.RequireFromString("50.00"))
	if err == nil {
		t.Fatal("expected missing recipient code to be rejected")
	}
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("error = %v, want STATE_CONFLICT", err)
	}
	if h.transfers.calls != 0 {
		t.Fatal("no transfer should be attempted without a recipient code")
	}
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	h := newHarness(t, strPtr("RCP_abc"))
	actor := Actor{Type: enums.PartyTypeFarm, ID: uuid.New()}
	ref := wallet.PartyRef{Type: actor.Type, ID: actor.ID}
	h.wallets.final[walletKey(ref)] = decimal.RequireFromString("10.00")

	_, err := h.svc.Withdraw(context.Background(), actor, decimal.RequireFromString("50.00"))
	if err == nil {
		t.Fatal("expected insufficient funds error")
	}
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeInsufficientFunds {
		t.Fatalf("error = %v, want INSUFFICIENT_FUNDS", err)
	}
	if len(h.ledger.entries) != 0 {
		t.Fatal("no ledger entry should survive a failed debit")
	}
}

func TestWithdrawTransferFailureRefunds(t *testing.T) {
	h := newHarness(t, strPtr("RCP_abc"))
	h.transfers.fail = true
	actor := Actor{Type: enums.PartyTypeFarm, ID: uuid.New()}
	ref := wallet.PartyRef{Type: actor.Type, ID: actor.ID}
	h.wallets.final[walletKey(ref)] = decimal.RequireFromString("500.00")

	_, err := h.svc.Withdraw(context.Background(), actor, decimal.RequireFromString("200.00"))
	if err == nil {
		t.Fatal("expected the transfer failure to surface")
	}
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodePayoutFailed {
		t.Fatalf("error = %v, want PAYOUT_FAILED", err)
	}

	if got := h.wallets.final[walletKey(ref)]; !got.Equal(decimal.RequireFromString("500.00")) {
		t.Fatalf("balance = %s, want the debit refunded", got)
	}
	for _, entry := range h.ledger.entries {
		if entry.Status != enums.TransactionStatusFailed {
			t.Fatalf("entry status = %s, want failed", entry.Status)
		}
	}
}

func TestReconcileSweepsStuckWithdrawals(t *testing.T) {
	h := newHarness(t, strPtr("RCP_abc"))
	now := time.Now().UTC()
	partyID := uuid.New()
	ref := wallet.PartyRef{Type: enums.PartyTypeStore, ID: partyID}

	stale := &models.Transaction{
		ID:        uuid.New(),
		PartyType: enums.PartyTypeStore,
		PartyID:   partyID,
		Type:      enums.TransactionTypeWithdrawal,
		Status:    enums.TransactionStatusPending,
		Amount:    decimal.RequireFromString("75.00"),
		UpdatedAt: now.Add(-2 * time.Hour),
	}
	fresh := &models.Transaction{
		ID:        uuid.New(),
		PartyType: enums.PartyTypeStore,
		PartyID:   partyID,
		Type:      enums.TransactionTypeWithdrawal,
		Status:    enums.TransactionStatusPending,
		Amount:    decimal.RequireFromString("20.00"),
		UpdatedAt: now.Add(-5 * time.Minute),
	}
	h.ledger.entries[stale.ID] = stale
	h.ledger.entries[fresh.ID] = fresh

	swept, err := h.svc.Reconcile(context.Background(), now, time.Hour, 100)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if swept != 1 {
		t.Fatalf("swept = %d, want 1", swept)
	}

	if h.ledger.entries[stale.ID].Status != enums.TransactionStatusFailed {
		t.Fatalf("stale status = %s, want failed", h.ledger.entries[stale.ID].Status)
	}
	if h.ledger.entries[fresh.ID].Status != enums.TransactionStatusPending {
		t.Fatalf("fresh status = %s, want still pending", h.ledger.entries[fresh.ID].Status)
	}
	if got := h.wallets.final[walletKey(ref)]; !got.Equal(decimal.RequireFromString("75.00")) {
		t.Fatalf("refund = %s, want 75.00", got)
	}
}
