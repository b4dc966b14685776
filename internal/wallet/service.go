package wallet

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farmyapp/farmyapp-backend/pkg/db/models"
	"github.com/farmyapp/farmyapp-backend/pkg/enums"
	pkgerrors "github.com/farmyapp/farmyapp-backend/pkg/errors"
)

// PartyRef identifies a wallet owner.
type PartyRef struct {
	Type enums.PartyType
	ID   uuid.UUID
}

func (p PartyRef) validate() error {
	if !p.Type.IsValid() {
		return fmt.Errorf("invalid party type %q", p.Type)
	}
	if p.ID == uuid.Nil {
		return fmt.Errorf("party id is required")
	}
	return nil
}

// SortRefs orders wallet owners by (type, id). Multi-wallet transactions
// must acquire row locks in this order so concurrent settlements cannot
// deadlock against each other.
func SortRefs(refs []PartyRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Type != refs[j].Type {
			return refs[i].Type < refs[j].Type
		}
		return refs[i].ID.String() < refs[j].ID.String()
	})
}

// Service defines wallet balance operations. Mutating methods take a row
// lock on the wallet, so they are meant to run inside a transaction via
// WithTx.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Ensure(ctx context.Context, ref PartyRef) (*models.Wallet, error)
	Get(ctx context.Context, ref PartyRef) (*models.Wallet, error)
	CreditTemporary(ctx context.Context, ref PartyRef, amount decimal.Decimal) error
	FinalizeTemporary(ctx context.Context, ref PartyRef, amount decimal.Decimal) error
	CancelTemporary(ctx context.Context, ref PartyRef, amount decimal.Decimal) error
	CreditFinal(ctx context.Context, ref PartyRef, amount decimal.Decimal) error
	DebitFinal(ctx context.Context, ref PartyRef, amount decimal.Decimal) error
}

type service struct {
	repo Repository
}

// NewService wires a wallet service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

// Ensure returns the party's wallet, creating an empty one when missing.
func (s *service) Ensure(ctx context.Context, ref PartyRef) (*models.Wallet, error) {
	if err := ref.validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet owner")
	}
	wallet, err := s.repo.GetByParty(ctx, ref.Type, ref.ID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	wallet = &models.Wallet{
		PartyType:        ref.Type,
		PartyID:          ref.ID,
		TemporaryBalance: decimal.Zero,
		FinalBalance:     decimal.Zero,
	}
	if createErr := s.repo.Create(ctx, wallet); createErr != nil {
		// A concurrent request may have created it first.
		if existing, getErr := s.repo.GetByParty(ctx, ref.Type, ref.ID); getErr == nil {
			return existing, nil
		}
		return nil, createErr
	}
	return wallet, nil
}

func (s *service) Get(ctx context.Context, ref PartyRef) (*models.Wallet, error) {
	if err := ref.validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet owner")
	}
	wallet, err := s.repo.GetByParty(ctx, ref.Type, ref.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
		}
		return nil, err
	}
	return wallet, nil
}

// CreditTemporary adds escrowed funds awaiting settlement.
func (s *service) CreditTemporary(ctx context.Context, ref PartyRef, amount decimal.Decimal) error {
	return s.mutate(ctx, ref, amount, func(w *models.Wallet, amt decimal.Decimal) error {
		w.TemporaryBalance = w.TemporaryBalance.Add(amt)
		return nil
	})
}

// FinalizeTemporary moves escrowed funds into the spendable balance.
func (s *service) FinalizeTemporary(ctx context.Context, ref PartyRef, amount decimal.Decimal) error {
	return s.mutate(ctx, ref, amount, func(w *models.Wallet, amt decimal.Decimal) error {
		if w.TemporaryBalance.LessThan(amt) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "escrow balance below settlement amount")
		}
		w.TemporaryBalance = w.TemporaryBalance.Sub(amt)
		w.FinalBalance = w.FinalBalance.Add(amt)
		return nil
	})
}

// CancelTemporary discards escrowed funds without paying them out.
func (s *service) CancelTemporary(ctx context.Context, ref PartyRef, amount decimal.Decimal) error {
	return s.mutate(ctx, ref, amount, func(w *models.Wallet, amt decimal.Decimal) error {
		if w.TemporaryBalance.LessThan(amt) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "escrow balance below cancellation amount")
		}
		w.TemporaryBalance = w.TemporaryBalance.Sub(amt)
		return nil
	})
}

// CreditFinal adds spendable funds directly, bypassing escrow.
func (s *service) CreditFinal(ctx context.Context, ref PartyRef, amount decimal.Decimal) error {
	return s.mutate(ctx, ref, amount, func(w *models.Wallet, amt decimal.Decimal) error {
		w.FinalBalance = w.FinalBalance.Add(amt)
		return nil
	})
}

// DebitFinal removes spendable funds, rejecting overdrafts.
func (s *service) DebitFinal(ctx context.Context, ref PartyRef, amount decimal.Decimal) error {
	return s.mutate(ctx, ref, amount, func(w *models.Wallet, amt decimal.Decimal) error {
		if w.FinalBalance.LessThan(amt) {
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance below debit amount")
		}
		w.FinalBalance = w.FinalBalance.Sub(amt)
		return nil
	})
}

func (s *service) mutate(ctx context.Context, ref PartyRef, amount decimal.Decimal, apply func(*models.Wallet, decimal.Decimal) error) error {
	if err := ref.validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet owner")
	}
	if amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	if amount.IsZero() {
		return nil
	}

	wallet, err := s.repo.GetByPartyForUpdate(ctx, ref.Type, ref.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		// First mutation for this party: materialize the empty wallet, then
		// take the row lock. A concurrent settlement may have created it
		// between the miss and the insert.
		fresh := &models.Wallet{
			PartyType:        ref.Type,
			PartyID:          ref.ID,
			TemporaryBalance: decimal.Zero,
			FinalBalance:     decimal.Zero,
		}
		if createErr := s.repo.Create(ctx, fresh); createErr != nil {
			if _, getErr := s.repo.GetByParty(ctx, ref.Type, ref.ID); getErr != nil {
				return createErr
			}
		}
		wallet, err = s.repo.GetByPartyForUpdate(ctx, ref.Type, ref.ID)
		if err != nil {
			return err
		}
	}
	if err := apply(wallet, amount); err != nil {
		return err
	}
	return s.repo.Save(ctx, wallet)
}
