package party

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmyapp/farmyapp-backend/pkg/db/models"
	"github.com/farmyapp/farmyapp-backend/pkg/enums"
)

// Repository manages persistence for marketplace parties.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, party *models.Party) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Party, error)
	GetByTypeAndID(ctx context.Context, partyType enums.PartyType, id uuid.UUID) (*models.Party, error)
	Save(ctx context.Context, party *models.Party) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a party repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, party *models.Party) error {
	return r.db.WithContext(ctx).Create(party).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Party, error) {
	var party models.Party
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&party).Error; err != nil {
		return nil, err
	}
	return &party, nil
}

func (r *repository) GetByTypeAndID(ctx context.Context, partyType enums.PartyType, id uuid.UUID) (*models.Party, error) {
	var party models.Party
	if err := r.db.WithContext(ctx).
		Where("type = ? AND id = ?", partyType, id).
		First(&party).Error; err != nil {
		return nil, err
	}
	return &party, nil
}

func (r *repository) Save(ctx context.Context, party *models.Party) error {
	return r.db.WithContext(ctx).Save(party).Error
}
