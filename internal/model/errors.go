package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOrderFinal        = errors.New("order is in a final status")
	ErrOrderInvoiced     = errors.New("order has an invoice number and cannot be deleted")
	ErrDuplicateSKU      = errors.New("duplicate sku")
)

// ValidationError reports a rejected input; order state is unchanged.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
