package enums

import "fmt"

// ScheduledNotificationStatus tracks delivery of a deferred notification.
type ScheduledNotificationStatus string

const (
	ScheduledNotificationStatusPending  ScheduledNotificationStatus = "pending"
	ScheduledNotificationStatusSent     ScheduledNotificationStatus = "sent"
	ScheduledNotificationStatusCanceled ScheduledNotificationStatus = "canceled"
)

var validScheduledNotificationStatuses = []ScheduledNotificationStatus{
	ScheduledNotificationStatusPending,
	ScheduledNotificationStatusSent,
	ScheduledNotificationStatusCanceled,
}

// String implements fmt.Stringer.
func (s ScheduledNotificationStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ScheduledNotificationStatus.
func (s ScheduledNotificationStatus) IsValid() bool {
	for _, candidate := range validScheduledNotificationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseScheduledNotificationStatus converts raw input into a ScheduledNotificationStatus.
func ParseScheduledNotificationStatus(value string) (ScheduledNotificationStatus, error) {
	for _, candidate := range validScheduledNotificationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid scheduled notification status %q", value)
}
