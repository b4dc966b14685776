package transactions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/farmyapp/farmyapp-backend/pkg/db/models"
	"github.com/farmyapp/farmyapp-backend/pkg/enums"
)

func setupTransactionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS transactions (
  id TEXT PRIMARY KEY,
  party_type TEXT NOT NULL,
  party_id TEXT NOT NULL,
  type TEXT NOT NULL,
  status TEXT NOT NULL,
  amount TEXT NOT NULL,
  order_id TEXT,
  booking_id TEXT,
  reference TEXT,
  narration TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func createTransaction(t *testing.T, db *gorm.DB, partyID uuid.UUID, orderID *uuid.UUID, status enums.TransactionStatus, amount int64, created time.Time) *models.Transaction {
	t.Helper()

	txn := &models.Transaction{
		ID:        uuid.New(),
		PartyType: enums.PartyTypeFarm,
		PartyID:   partyID,
		Type:      enums.TransactionTypeCredit,
		Status:    status,
		Amount:    decimal.NewFromInt(amount),
		OrderID:   orderID,
		CreatedAt: created,
		UpdatedAt: created,
	}
	require.NoError(t, db.Create(txn).Error)
	return txn
}

func TestRepository_ListByPartyPaginates(t *testing.T) {
	db := setupTransactionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	partyID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		createTransaction(t, db, partyID, nil, enums.TransactionStatusFinal, int64(100+i), base.Add(time.Duration(i)*time.Minute))
	}

	first, cursor, err := repo.ListByParty(ctx, ListByPartyParams{
		PartyType: enums.PartyTypeFarm,
		PartyID:   partyID,
		Limit:     3,
	})
	require.NoError(t, err)
	require.Len(t, first, 3)
	require.NotNil(t, cursor)
	// Newest first.
	assert.True(t, first[0].CreatedAt.After(first[2].CreatedAt))

	second, nextCursor, err := repo.ListByParty(ctx, ListByPartyParams{
		PartyType: enums.PartyTypeFarm,
		PartyID:   partyID,
		Limit:     3,
		Cursor:    cursor,
	})
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Nil(t, nextCursor)

	seen := map[uuid.UUID]bool{}
	for _, txn := range append(first, second...) {
		assert.False(t, seen[txn.ID], "duplicate row across pages")
		seen[txn.ID] = true
	}
}

func TestRepository_UpdateStatusByOrderIsIdempotent(t *testing.T) {
	db := setupTransactionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	partyID := uuid.New()
	orderID := uuid.New()
	now := time.Now().UTC()
	createTransaction(t, db, partyID, &orderID, enums.TransactionStatusTemporary, 970, now)
	// An unrelated order must be untouched.
	otherOrder := uuid.New()
	createTransaction(t, db, partyID, &otherOrder, enums.TransactionStatusTemporary, 300, now)

	changed, err := repo.UpdateStatusByOrder(ctx, orderID, enums.TransactionStatusTemporary, enums.TransactionStatusFinal)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	again, err := repo.UpdateStatusByOrder(ctx, orderID, enums.TransactionStatusTemporary, enums.TransactionStatusFinal)
	require.NoError(t, err)
	assert.Zero(t, again)

	txns, err := repo.ListByOrderID(ctx, otherOrder)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, enums.TransactionStatusTemporary, txns[0].Status)
}

func TestRepository_CancelByOrderZeroesAmount(t *testing.T) {
	db := setupTransactionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	partyID := uuid.New()
	orderID := uuid.New()
	now := time.Now().UTC()
	txn := createTransaction(t, db, partyID, &orderID, enums.TransactionStatusTemporary, 970, now)

	changed, err := repo.CancelByOrder(ctx, orderID, enums.TransactionStatusTemporary)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	// The row survives for audit with its amount neutralized.
	got, err := repo.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusCanceled, got.Status)
	assert.True(t, got.Amount.IsZero(), "canceled entry amount = %s, want 0", got.Amount)

	// A second cancel no longer matches.
	again, err := repo.CancelByOrder(ctx, orderID, enums.TransactionStatusTemporary)
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestRepository_UpdateStatusGuardsFromStatus(t *testing.T) {
	db := setupTransactionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	txn := &models.Transaction{
		ID:        uuid.New(),
		PartyType: enums.PartyTypeStore,
		PartyID:   uuid.New(),
		Type:      enums.TransactionTypeWithdrawal,
		Status:    enums.TransactionStatusPending,
		Amount:    decimal.NewFromInt(500),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.Create(txn).Error)

	ok, err := repo.UpdateStatus(ctx, txn.ID, enums.TransactionStatusPending, enums.TransactionStatusCompleted)
	require.NoError(t, err)
	assert.True(t, ok)

	// A second transition from pending must not match anymore.
	ok, err = repo.UpdateStatus(ctx, txn.ID, enums.TransactionStatusPending, enums.TransactionStatusFailed)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusCompleted, got.Status)
}

func TestRepository_ListStuckPending(t *testing.T) {
	db := setupTransactionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	stale := &models.Transaction{
		ID:        uuid.New(),
		PartyType: enums.PartyTypeCompany,
		PartyID:   uuid.New(),
		Type:      enums.TransactionTypeWithdrawal,
		Status:    enums.TransactionStatusPending,
		Amount:    decimal.NewFromInt(100),
		CreatedAt: now.Add(-3 * time.Hour),
		UpdatedAt: now.Add(-3 * time.Hour),
	}
	fresh := &models.Transaction{
		ID:        uuid.New(),
		PartyType: enums.PartyTypeCompany,
		PartyID:   uuid.New(),
		Type:      enums.TransactionTypeWithdrawal,
		Status:    enums.TransactionStatusPending,
		Amount:    decimal.NewFromInt(200),
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, db.Create(stale).Error)
	require.NoError(t, db.Create(fresh).Error)

	stuck, err := repo.ListStuckPending(ctx, now.Add(-time.Hour), 10)
	require.NoError(t, err)

	ids := map[uuid.UUID]bool{}
	for _, txn := range stuck {
		ids[txn.ID] = true
	}
	assert.True(t, ids[stale.ID])
	assert.False(t, ids[fresh.ID])
}
