package apperr

import "errors"

// ErrInvalid is returned when the input fails domain validation.
var ErrInvalid = errors.New("invalid input")

// ErrConflict indicates a state conflict, e.g. a rejected status transition (HTTP 409).
var ErrConflict = errors.New("conflict")

// ErrNotFound indicates that the requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrNoCapacity indicates that no driver is currently available for assignment.
var ErrNoCapacity = errors.New("no available driver")

// ErrUnavailable indicates a collaborator (locator, orders, broker) could not be reached.
var ErrUnavailable = errors.New("dependency unavailable")
