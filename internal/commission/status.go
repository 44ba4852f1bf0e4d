package commission

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a payout is moved out of order.
var ErrInvalidTransition = errors.New("commission: invalid payout status transition")

// Status is the lifecycle of a payout record.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAvailable Status = "AVAILABLE"
	StatusPaid      Status = "PAID"
)

// CanTransition reports whether s may move to next.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusAvailable
	case StatusAvailable:
		return next == StatusPaid
	}
	return false
}

// Transition validates a status change.
func Transition(from, to Status) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
