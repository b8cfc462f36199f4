package domain

import "delivery-dispatch/internal/apperr"

// Status is the delivery lifecycle state.
type Status string

// Delivery lifecycle states.
const (
	StatusAssigned  Status = "assigned"
	StatusPickedUp  Status = "picked-up"
	StatusInTransit Status = "in-transit"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	switch s {
	case StatusAssigned, StatusPickedUp, StatusInTransit, StatusDelivered, StatusCancelled:
		return s, nil
	default:
		return "", apperr.ErrInvalid
	}
}

// Terminal reports whether no further transitions are accepted from s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// successor is the single forward transition per non-terminal state.
var successor = map[Status]Status{
	StatusAssigned:  StatusPickedUp,
	StatusPickedUp:  StatusInTransit,
	StatusInTransit: StatusDelivered,
}

// CanTransitionTo reports whether next is a valid transition from s.
// Forward transitions must follow the successor chain; cancellation is
// allowed from any non-terminal state.
func (s Status) CanTransitionTo(next Status) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	return successor[s] == next
}
