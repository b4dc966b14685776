package party

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmyapp/farmyapp-backend/pkg/db/models"
	"github.com/farmyapp/farmyapp-backend/pkg/enums"
	pkgerrors "github.com/farmyapp/farmyapp-backend/pkg/errors"
)

// Service resolves marketplace parties and validates their roles.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Party, error)
	// Resolve returns the party only when it exists under the claimed type.
	Resolve(ctx context.Context, partyType enums.PartyType, id uuid.UUID) (*models.Party, error)
	// ResolveSeller is Resolve restricted to party types that can sell goods.
	ResolveSeller(ctx context.Context, partyType enums.PartyType, id uuid.UUID) (*models.Party, error)
	SetRecipientCode(ctx context.Context, id uuid.UUID, code string) error
}

type service struct {
	repo Repository
}

// NewService wires a party service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("party repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Party, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id is required")
	}
	party, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "party not found")
		}
		return nil, err
	}
	return party, nil
}

func (s *service) Resolve(ctx context.Context, partyType enums.PartyType, id uuid.UUID) (*models.Party, error) {
	if !partyType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid party type %q", partyType))
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id is required")
	}
	party, err := s.repo.GetByTypeAndID(ctx, partyType, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s not found", partyType))
		}
		return nil, err
	}
	return party, nil
}

func (s *service) ResolveSeller(ctx context.Context, partyType enums.PartyType, id uuid.UUID) (*models.Party, error) {
	if !partyType.IsSeller() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("party type %q cannot sell", partyType))
	}
	return s.Resolve(ctx, partyType, id)
}

func (s *service) SetRecipientCode(ctx context.Context, id uuid.UUID, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient code is required")
	}
	party, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	party.RecipientCode = &code
	return s.repo.Save(ctx, party)
}
