package transactions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farmyapp/farmyapp-backend/pkg/db/models"
	"github.com/farmyapp/farmyapp-backend/pkg/enums"
	"github.com/farmyapp/farmyapp-backend/pkg/pagination"
)

// Repository manages persistence for wallet ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListByParty(ctx context.Context, params ListByPartyParams) ([]models.Transaction, *pagination.Cursor, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.Transaction, error)
	// UpdateStatusByOrder flips every order entry currently in fromStatus
	// into toStatus and reports how many rows changed.
	UpdateStatusByOrder(ctx context.Context, orderID uuid.UUID, fromStatus, toStatus enums.TransactionStatus) (int64, error)
	// UpdateStatusByBooking is UpdateStatusByOrder scoped to a booking's
	// entries instead of an order's.
	UpdateStatusByBooking(ctx context.Context, bookingID uuid.UUID, fromStatus, toStatus enums.TransactionStatus) (int64, error)
	// CancelByOrder voids the order's entries currently in fromStatus:
	// status flips to canceled and the amount is zeroed, keeping the row
	// for audit.
	CancelByOrder(ctx context.Context, orderID uuid.UUID, fromStatus enums.TransactionStatus) (int64, error)
	// CancelByBooking is CancelByOrder scoped to a booking's entries.
	CancelByBooking(ctx context.Context, bookingID uuid.UUID, fromStatus enums.TransactionStatus) (int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, fromStatus, toStatus enums.TransactionStatus) (bool, error)
	SetReference(ctx context.Context, id uuid.UUID, reference string) error
	ListStuckPending(ctx context.Context, before time.Time, limit int) ([]models.Transaction, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a transactions repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

// ListByPartyParams scopes a ledger page query to one party.
type ListByPartyParams struct {
	PartyType enums.PartyType
	PartyID   uuid.UUID
	Limit     int
	Cursor    *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repositoryImpl) ListByParty(ctx context.Context, params ListByPartyParams) ([]models.Transaction, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("party_type = ? AND party_id = ?", params.PartyType, params.PartyID)
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var txns []models.Transaction
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&txns).Error; err != nil {
		return nil, nil, err
	}

	if len(txns) > normalized {
		txns = txns[:normalized]
		// The cursor marks the last row handed out; the next page filters
		// strictly past it.
		last := txns[normalized-1]
		return txns, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return txns, nil, nil
}

func (r *repositoryImpl) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.Transaction, error) {
	var txns []models.Transaction
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repositoryImpl) UpdateStatusByOrder(ctx context.Context, orderID uuid.UUID, fromStatus, toStatus enums.TransactionStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("order_id = ? AND status = ?", orderID, fromStatus).
		UpdateColumn("status", toStatus)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repositoryImpl) UpdateStatusByBooking(ctx context.Context, bookingID uuid.UUID, fromStatus, toStatus enums.TransactionStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("booking_id = ? AND status = ?", bookingID, fromStatus).
		UpdateColumn("status", toStatus)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repositoryImpl) CancelByOrder(ctx context.Context, orderID uuid.UUID, fromStatus enums.TransactionStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("order_id = ? AND status = ?", orderID, fromStatus).
		UpdateColumns(map[string]any{
			"status": enums.TransactionStatusCanceled,
			"amount": decimal.Zero,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repositoryImpl) CancelByBooking(ctx context.Context, bookingID uuid.UUID, fromStatus enums.TransactionStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("booking_id = ? AND status = ?", bookingID, fromStatus).
		UpdateColumns(map[string]any{
			"status": enums.TransactionStatusCanceled,
			"amount": decimal.Zero,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, fromStatus, toStatus enums.TransactionStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, fromStatus).
		UpdateColumn("status", toStatus)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) SetReference(ctx context.Context, id uuid.UUID, reference string) error {
	return r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		UpdateColumn("reference", reference).Error
}

func (r *repositoryImpl) ListStuckPending(ctx context.Context, before time.Time, limit int) ([]models.Transaction, error) {
	var txns []models.Transaction
	query := r.db.WithContext(ctx).
		Where("type = ? AND status = ?", enums.TransactionTypeWithdrawal, enums.TransactionStatusPending).
		Where("updated_at < ?", before).
		Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
