package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOrder is wrapped by every *ValidationError.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrCloseUnpriced means a manual close could not obtain a price.
	ErrCloseUnpriced = errors.New("close trade: no price available")
)

// ValidationError describes the first rejected field of an order request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid order: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidOrder }
