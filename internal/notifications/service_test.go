package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmyapp/farmyapp-backend/pkg/db/models"
	"github.com/farmyapp/farmyapp-backend/pkg/enums"
	pkgerrors "github.com/farmyapp/farmyapp-backend/pkg/errors"
	"github.com/farmyapp/farmyapp-backend/pkg/pagination"
)

type fakeRepo struct {
	notifications []models.Notification
	scheduled     []models.ScheduledNotification

	createErr      error
	markSentErr    map[uuid.UUID]error
	createCalls    int
	markSentCalls  int
	canceledOrders []uuid.UUID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{markSentErr: map[uuid.UUID]error{}}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepo) Create(ctx context.Context, notification *models.Notification) error {
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	f.notifications = append(f.notifications, *notification)
	return nil
}

func (f *fakeRepo) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	var out []models.Notification
	for _, n := range f.notifications {
		if n.PartyType != params.PartyType || n.PartyID != params.PartyID {
			continue
		}
		if params.UnreadOnly && n.ReadAt != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil, nil
}

func (f *fakeRepo) MarkRead(ctx context.Context, partyType enums.PartyType, partyID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	for i, n := range f.notifications {
		if n.ID != notificationID || n.PartyType != partyType || n.PartyID != partyID {
			continue
		}
		if n.ReadAt != nil {
			return notificationMarkResult{Found: true}, nil
		}
		f.notifications[i].ReadAt = &now
		return notificationMarkResult{Found: true, Updated: true}, nil
	}
	return notificationMarkResult{}, nil
}

func (f *fakeRepo) MarkAllRead(ctx context.Context, partyType enums.PartyType, partyID uuid.UUID, now time.Time) (int64, error) {
	var count int64
	for i, n := range f.notifications {
		if n.PartyType == partyType && n.PartyID == partyID && n.ReadAt == nil {
			f.notifications[i].ReadAt = &now
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) CreateScheduled(ctx context.Context, scheduled *models.ScheduledNotification) error {
	if scheduled.ID == uuid.Nil {
		scheduled.ID = uuid.New()
	}
	f.scheduled = append(f.scheduled, *scheduled)
	return nil
}

func (f *fakeRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]models.ScheduledNotification, error) {
	var due []models.ScheduledNotification
	for _, s := range f.scheduled {
		if s.Status == enums.ScheduledNotificationStatusPending && !s.DueAt.After(now) {
			due = append(due, s)
		}
		if limit > 0 && len(due) == limit {
			break
		}
	}
	return due, nil
}

func (f *fakeRepo) MarkScheduledSent(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	f.markSentCalls++
	if err := f.markSentErr[id]; err != nil {
		return false, err
	}
	for i, s := range f.scheduled {
		if s.ID != id {
			continue
		}
		if s.Status != enums.ScheduledNotificationStatusPending {
			return false, nil
		}
		f.scheduled[i].Status = enums.ScheduledNotificationStatusSent
		f.scheduled[i].SentAt = &now
		return true, nil
	}
	return false, nil
}

func (f *fakeRepo) CancelScheduledByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	f.canceledOrders = append(f.canceledOrders, orderID)
	var count int64
	for i, s := range f.scheduled {
		if s.OrderID != nil && *s.OrderID == orderID && s.Status == enums.ScheduledNotificationStatusPending {
			f.scheduled[i].Status = enums.ScheduledNotificationStatusCanceled
			count++
		}
	}
	return count, nil
}

func newTestService(t *testing.T) (Service, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, repo
}

func TestNotifyValidatesInput(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	cases := []NotifyInput{
		{PartyType: "ghost", PartyID: uuid.New(), Type: enums.NotificationTypeOrder, Title: "x"},
		{PartyType: enums.PartyTypeBuyer, PartyID: uuid.Nil, Type: enums.NotificationTypeOrder, Title: "x"},
		{PartyType: enums.PartyTypeBuyer, PartyID: uuid.New(), Type: "carrier-pigeon", Title: "x"},
		{PartyType: enums.PartyTypeBuyer, PartyID: uuid.New(), Type: enums.NotificationTypeOrder, Title: "   "},
	}
	for _, input := range cases {
		if _, err := svc.Notify(ctx, input); err == nil {
			t.Fatalf("expected validation error for %+v", input)
		}
	}
	if repo.createCalls != 0 {
		t.Fatalf("expected no create calls, got %d", repo.createCalls)
	}
}

func TestNotifyPersistsNotification(t *testing.T) {
	svc, repo := newTestService(t)
	buyerID := uuid.New()

	created, err := svc.Notify(context.Background(), NotifyInput{
		PartyType: enums.PartyTypeBuyer,
		PartyID:   buyerID,
		Type:      enums.NotificationTypeOrder,
		Title:     "Order shipped",
		Message:   "Your order is on the way",
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatal("expected notification id to be assigned")
	}
	if len(repo.notifications) != 1 {
		t.Fatalf("expected 1 stored notification, got %d", len(repo.notifications))
	}
}

func TestMarkReadUnknownNotification(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.MarkRead(context.Background(), enums.PartyTypeBuyer, uuid.New(), uuid.New())
	if err == nil {
		t.Fatal("expected not found error")
	}
	if perr := pkgerrors.As(err); perr == nil || perr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestMarkAllReadOnlyTouchesOwner(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	other := uuid.New()

	for _, target := range []uuid.UUID{owner, owner, other} {
		if _, err := svc.Notify(ctx, NotifyInput{
			PartyType: enums.PartyTypeBuyer,
			PartyID:   target,
			Type:      enums.NotificationTypeWallet,
			Title:     "Wallet credited",
		}); err != nil {
			t.Fatalf("Notify: %v", err)
		}
	}

	updated, err := svc.MarkAllRead(ctx, enums.PartyTypeBuyer, owner)
	if err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 updated, got %d", updated)
	}
	for _, n := range repo.notifications {
		if n.PartyID == other && n.ReadAt != nil {
			t.Fatal("other party's notification should stay unread")
		}
	}
}

func TestScheduleRequiresDueTime(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Schedule(context.Background(), nil, ScheduleInput{
		PartyType: enums.PartyTypeBuyer,
		PartyID:   uuid.New(),
		Type:      enums.NotificationTypeReview,
		Title:     "How was your order?",
	})
	if err == nil {
		t.Fatal("expected validation error for missing due time")
	}
}

func TestDeliverDueSkipsFutureAndNonPending(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()
	orderID := uuid.New()

	if _, err := svc.Schedule(ctx, nil, ScheduleInput{
		PartyType: enums.PartyTypeBuyer,
		PartyID:   uuid.New(),
		Type:      enums.NotificationTypeReview,
		Title:     "How was your order?",
		OrderID:   &orderID,
		DueAt:     now.Add(-time.Minute),
	}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if _, err := svc.Schedule(ctx, nil, ScheduleInput{
		PartyType: enums.PartyTypeBuyer,
		PartyID:   uuid.New(),
		Type:      enums.NotificationTypeReview,
		Title:     "How was your order?",
		DueAt:     now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	delivered, err := svc.DeliverDue(ctx, now, 10)
	if err != nil {
		t.Fatalf("DeliverDue: %v", err)
	}
	if delivered != 1 {
		t.Fatalf("expected 1 delivered, got %d", delivered)
	}
	if len(repo.notifications) != 1 {
		t.Fatalf("expected 1 fan-out notification, got %d", len(repo.notifications))
	}
	if repo.scheduled[0].Status != enums.ScheduledNotificationStatusSent {
		t.Fatalf("expected sent status, got %s", repo.scheduled[0].Status)
	}

	// A second sweep finds nothing pending.
	delivered, err = svc.DeliverDue(ctx, now, 10)
	if err != nil {
		t.Fatalf("DeliverDue: %v", err)
	}
	if delivered != 0 {
		t.Fatalf("expected 0 delivered on retry, got %d", delivered)
	}
}

func TestDeliverDueContinuesPastFailures(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	bad, err := svc.Schedule(ctx, nil, ScheduleInput{
		PartyType: enums.PartyTypeBuyer,
		PartyID:   uuid.New(),
		Type:      enums.NotificationTypeReview,
		Title:     "How was your order?",
		DueAt:     now.Add(-2 * time.Minute),
	})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if _, err := svc.Schedule(ctx, nil, ScheduleInput{
		PartyType: enums.PartyTypeBuyer,
		PartyID:   uuid.New(),
		Type:      enums.NotificationTypeReview,
		Title:     "How was your order?",
		DueAt:     now.Add(-time.Minute),
	}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	repo.markSentErr[bad.ID] = errors.New("row lock timeout")

	delivered, err := svc.DeliverDue(ctx, now, 10)
	if err == nil {
		t.Fatal("expected aggregated error from failed row")
	}
	if delivered != 1 {
		t.Fatalf("expected the healthy row delivered, got %d", delivered)
	}
}

func TestCancelScheduledForOrder(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()
	orderID := uuid.New()

	if _, err := svc.Schedule(ctx, nil, ScheduleInput{
		PartyType: enums.PartyTypeBuyer,
		PartyID:   uuid.New(),
		Type:      enums.NotificationTypeReview,
		Title:     "How was your order?",
		OrderID:   &orderID,
		DueAt:     now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	canceled, err := svc.CancelScheduledForOrder(ctx, nil, orderID)
	if err != nil {
		t.Fatalf("CancelScheduledForOrder: %v", err)
	}
	if canceled != 1 {
		t.Fatalf("expected 1 canceled, got %d", canceled)
	}
	if len(repo.canceledOrders) != 1 || repo.canceledOrders[0] != orderID {
		t.Fatalf("canceled orders = %v, want [%s]", repo.canceledOrders, orderID)
	}
	if got := repo.scheduled[0].Status; got != enums.ScheduledNotificationStatusCanceled {
		t.Fatalf("scheduled status = %s, want canceled", got)
	}

	delivered, err := svc.DeliverDue(ctx, now.Add(2*time.Hour), 10)
	if err != nil {
		t.Fatalf("DeliverDue: %v", err)
	}
	if delivered != 0 {
		t.Fatalf("canceled reminder must not deliver, got %d", delivered)
	}
}
