package payouts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farmyapp/farmyapp-backend/internal/transactions"
	"github.com/farmyapp/farmyapp-backend/internal/wallet"
	"github.com/farmyapp/farmyapp-backend/pkg/db/models"
	"github.com/farmyapp/farmyapp-backend/pkg/enums"
	pkgerrors "github.com/farmyapp/farmyapp-backend/pkg/errors"
	"github.com/farmyapp/farmyapp-backend/pkg/logger"
	"github.com/farmyapp/farmyapp-backend/pkg/paystack"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type partyLoader interface {
	Resolve(ctx context.Context, partyType enums.PartyType, id uuid.UUID) (*models.Party, error)
}

type transferGateway interface {
	InitiateTransfer(ctx context.Context, recipientCode string, amount decimal.Decimal, reason string) (*paystack.TransferResult, error)
}

// Actor identifies the authenticated party requesting a payout.
type Actor struct {
	Type enums.PartyType
	ID   uuid.UUID
}

// Service moves final wallet balance out to a party's bank account.
type Service interface {
	Withdraw(ctx context.Context, actor Actor, amount decimal.Decimal) (*models.Transaction, error)
	// Reconcile sweeps withdrawal entries stuck in pending past the grace
	// period, fails them and refunds the wallet. Returns how many entries
	// were swept.
	Reconcile(ctx context.Context, now time.Time, grace time.Duration, limit int) (int, error)
}

type service struct {
	ledgerRepo transactions.Repository
	ledger     transactions.Service
	tx         txRunner
	wallets    wallet.Service
	parties    partyLoader
	gateway    transferGateway
	logg       *logger.Logger
}

// NewService builds a payouts service backed by the provided stack.
func NewService(
	ledgerRepo transactions.Repository,
	ledger transactions.Service,
	tx txRunner,
	wallets wallet.Service,
	parties partyLoader,
	gateway transferGateway,
	logg *logger.Logger,
) (Service, error) {
	if ledgerRepo == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if parties == nil {
		return nil, fmt.Errorf("party service required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("transfer gateway required")
	}
	return &service{
		ledgerRepo: ledgerRepo,
		ledger:     ledger,
		tx:         tx,
		wallets:    wallets,
		parties:    parties,
		gateway:    gateway,
		logg:       logg,
	}, nil
}

func (s *service) Withdraw(ctx context.Context, actor Actor, amount decimal.Decimal) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	party, err := s.parties.Resolve(ctx, actor.Type, actor.ID)
	if err != nil {
		return nil, err
	}
	if party.RecipientCode == nil || *party.RecipientCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no payout account on file")
	}

	ref := wallet.PartyRef{Type: actor.Type, ID: actor.ID}

	// The debit and the pending ledger entry commit before the transfer is
	// attempted, so a crash mid-transfer leaves a pending row the
	// reconciler can pick up instead of money in limbo.
	var entry *models.Transaction
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.wallets.WithTx(tx).DebitFinal(ctx, ref, amount); err != nil {
			return err
		}
		entry, err = s.ledger.WithTx(tx).Record(ctx, transactions.RecordTransactionInput{
			PartyType: actor.Type,
			PartyID:   actor.ID,
			Type:      enums.TransactionTypeWithdrawal,
			Status:    enums.TransactionStatusPending,
			Amount:    amount,
			Narration: "wallet withdrawal",
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	transfer, transferErr := s.gateway.InitiateTransfer(ctx, *party.RecipientCode, amount, "wallet withdrawal")
	if transferErr != nil {
		if failErr := s.failWithdrawal(ctx, entry, ref, amount); failErr != nil {
			// The reconciler sweeps the pending row later.
			if s.logg != nil {
				s.logg.Error(ctx, "failed to roll back withdrawal", failErr)
			}
		}
		return nil, transferErr
	}

	if err := s.ledgerRepo.SetReference(ctx, entry.ID, transfer.TransferCode); err != nil {
		return nil, err
	}
	if _, err := s.ledgerRepo.UpdateStatus(ctx, entry.ID, enums.TransactionStatusPending, enums.TransactionStatusCompleted); err != nil {
		return nil, err
	}

	entry.Status = enums.TransactionStatusCompleted
	entry.Reference = &transfer.TransferCode
	return entry, nil
}

func (s *service) Reconcile(ctx context.Context, now time.Time, grace time.Duration, limit int) (int, error) {
	cutoff := now.Add(-grace)
	stuck, err := s.ledgerRepo.ListStuckPending(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	swept := 0
	for i := range stuck {
		entry := stuck[i]
		ref := wallet.PartyRef{Type: entry.PartyType, ID: entry.PartyID}
		if err := s.failWithdrawal(ctx, &entry, ref, entry.Amount); err != nil {
			return swept, err
		}
		swept++
	}
	return swept, nil
}

// failWithdrawal marks the pending entry failed and refunds the wallet in
// one transaction. Only the caller that wins the status flip refunds.
func (s *service) failWithdrawal(ctx context.Context, entry *models.Transaction, ref wallet.PartyRef, amount decimal.Decimal) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ledgerRepo := s.ledgerRepo.WithTx(tx)
		flipped, err := ledgerRepo.UpdateStatus(ctx, entry.ID, enums.TransactionStatusPending, enums.TransactionStatusFailed)
		if err != nil {
			return err
		}
		if !flipped {
			return nil
		}
		entry.Status = enums.TransactionStatusFailed
		return s.wallets.WithTx(tx).CreditFinal(ctx, ref, amount)
	})
}
