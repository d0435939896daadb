package orders

import (
	"errors"
	"fmt"
	"strings"

	"storefront/internal/models"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderNotPayable    = errors.New("order is not payable in its current status")
	ErrCodeSpaceExhausted = errors.New("could not generate a unique order code")
	// ErrDuplicateCode is returned by Repository.Insert when another order
	// already holds the generated uuid.
	ErrDuplicateCode = errors.New("order code already taken")
	// ErrStatusConflict is returned by a Repository when the guarded status
	// no longer matches the stored document.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// ValidationError reports malformed caller input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ProductNotFoundError lists every requested product id the catalog could not
// resolve.
type ProductNotFoundError struct {
	IDs []string
}

func (e *ProductNotFoundError) Error() string {
	return "products not found: " + strings.Join(e.IDs, ", ")
}

type InvalidTransitionError struct {
	From models.OrderStatus
	To   models.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition: cannot transition from %s to %s", e.From, e.To)
}

// ConfigurationError marks a fault in deployment configuration. It is never
// the caller's fault and is not recoverable per request.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return "configuration error: " + e.Key
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Reason)
}
