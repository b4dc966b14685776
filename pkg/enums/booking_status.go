package enums

import "fmt"

// BookingStatus tracks the lifecycle of a vehicle-hire booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusPaid      BookingStatus = "paid"
	BookingStatusInTransit BookingStatus = "in_transit"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

var validBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusPaid,
	BookingStatusInTransit,
	BookingStatusCompleted,
	BookingStatusCancelled,
}

// String implements fmt.Stringer.
func (s BookingStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known BookingStatus.
func (s BookingStatus) IsValid() bool {
	for _, candidate := range validBookingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status absorbs further transitions.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// ParseBookingStatus converts raw input into a BookingStatus.
func ParseBookingStatus(value string) (BookingStatus, error) {
	for _, candidate := range validBookingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid booking status %q", value)
}

var bookingStatusRank = map[BookingStatus]int{
	BookingStatusPending:   0,
	BookingStatusPaid:      1,
	BookingStatusInTransit: 2,
	BookingStatusCompleted: 3,
}

// CanTransitionTo reports whether the machine permits moving from s to target.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if target == BookingStatusCancelled {
		return true
	}
	from, ok := bookingStatusRank[s]
	if !ok {
		return false
	}
	to, ok := bookingStatusRank[target]
	if !ok {
		return false
	}
	return to > from
}
