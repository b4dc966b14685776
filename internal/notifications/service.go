package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/farmyapp/farmyapp-backend/pkg/db/models"
	"github.com/farmyapp/farmyapp-backend/pkg/enums"
	pkgerrors "github.com/farmyapp/farmyapp-backend/pkg/errors"
	"github.com/farmyapp/farmyapp-backend/pkg/pagination"
)

// Service defines notification fan-out, list/read operations and the
// durable deferred-delivery surface used for review reminders.
type Service interface {
	Notify(ctx context.Context, input NotifyInput) (*models.Notification, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, partyType enums.PartyType, partyID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, partyType enums.PartyType, partyID uuid.UUID) (int64, error)

	// Schedule persists a deferred notification; it joins the caller's
	// transaction when tx is non-nil.
	Schedule(ctx context.Context, tx *gorm.DB, input ScheduleInput) (*models.ScheduledNotification, error)
	CancelScheduledForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (int64, error)
	// DeliverDue fans out every scheduled notification that has come due
	// and reports how many were delivered.
	DeliverDue(ctx context.Context, now time.Time, limit int) (int, error)
}

type service struct {
	repo Repository
}

// NotifyInput captures an immediate in-app notification.
type NotifyInput struct {
	PartyType enums.PartyType
	PartyID   uuid.UUID
	Type      enums.NotificationType
	Title     string
	Message   string
	Link      *string
}

// ScheduleInput captures a deferred notification and the order it tracks.
type ScheduleInput struct {
	PartyType enums.PartyType
	PartyID   uuid.UUID
	Type      enums.NotificationType
	Title     string
	Message   string
	Link      *string
	OrderID   *uuid.UUID
	DueAt     time.Time
}

// ListParams configures pagination for notifications.
type ListParams struct {
	PartyType  enums.PartyType
	PartyID    uuid.UUID
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService wires notifications dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Notify(ctx context.Context, input NotifyInput) (*models.Notification, error) {
	if err := validateTarget(input.PartyType, input.PartyID); err != nil {
		return nil, err
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid notification type %q", input.Type))
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}

	notification := &models.Notification{
		PartyType: input.PartyType,
		PartyID:   input.PartyID,
		Type:      input.Type,
		Title:     input.Title,
		Message:   input.Message,
		Link:      input.Link,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}
	return notification, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if err := validateTarget(params.PartyType, params.PartyID); err != nil {
		return nil, err
	}

	query := listNotificationsParams{
		PartyType:  params.PartyType,
		PartyID:    params.PartyID,
		Limit:      params.Limit,
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &ListResult{
		Items:  rows,
		Cursor: cursor,
	}, nil
}

func (s *service) MarkRead(ctx context.Context, partyType enums.PartyType, partyID, notificationID uuid.UUID) error {
	if err := validateTarget(partyType, partyID); err != nil {
		return err
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, partyType, partyID, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, partyType enums.PartyType, partyID uuid.UUID) (int64, error) {
	if err := validateTarget(partyType, partyID); err != nil {
		return 0, err
	}

	count, err := s.repo.MarkAllRead(ctx, partyType, partyID, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) Schedule(ctx context.Context, tx *gorm.DB, input ScheduleInput) (*models.ScheduledNotification, error) {
	if err := validateTarget(input.PartyType, input.PartyID); err != nil {
		return nil, err
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid notification type %q", input.Type))
	}
	if input.DueAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "due time is required")
	}

	scheduled := &models.ScheduledNotification{
		PartyType: input.PartyType,
		PartyID:   input.PartyID,
		Type:      input.Type,
		Title:     input.Title,
		Message:   input.Message,
		Link:      input.Link,
		OrderID:   input.OrderID,
		Status:    enums.ScheduledNotificationStatusPending,
		DueAt:     input.DueAt.UTC(),
	}
	if err := s.repo.WithTx(tx).CreateScheduled(ctx, scheduled); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "schedule notification")
	}
	return scheduled, nil
}

func (s *service) CancelScheduledForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (int64, error) {
	if orderID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	count, err := s.repo.WithTx(tx).CancelScheduledByOrder(ctx, orderID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel scheduled notifications")
	}
	return count, nil
}

func (s *service) DeliverDue(ctx context.Context, now time.Time, limit int) (int, error) {
	due, err := s.repo.ListDue(ctx, now, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due notifications")
	}

	delivered := 0
	var errs []error
	for _, scheduled := range due {
		// The sent flip guards against another worker delivering the same
		// row; only the winner fans out. A failed row is skipped so one bad
		// entry cannot stall the rest of the batch.
		won, err := s.repo.MarkScheduledSent(ctx, scheduled.ID, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("mark scheduled %s sent: %w", scheduled.ID, err))
			continue
		}
		if !won {
			continue
		}
		if _, err := s.Notify(ctx, NotifyInput{
			PartyType: scheduled.PartyType,
			PartyID:   scheduled.PartyID,
			Type:      scheduled.Type,
			Title:     scheduled.Title,
			Message:   scheduled.Message,
			Link:      scheduled.Link,
		}); err != nil {
			errs = append(errs, fmt.Errorf("deliver scheduled %s: %w", scheduled.ID, err))
			continue
		}
		delivered++
	}
	return delivered, multierr.Combine(errs...)
}

func validateTarget(partyType enums.PartyType, partyID uuid.UUID) error {
	if !partyType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid party type %q", partyType))
	}
	if partyID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "party id required")
	}
	return nil
}
