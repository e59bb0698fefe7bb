package errors

import (
	"fmt"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
)

// ErrNotFound is returned when a resource is not found
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnauthorized is returned when authentication fails
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConflict is returned when there's a conflict (e.g., idempotency)
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "conflict"
}

// ErrValidation is returned when validation fails
type ErrValidation struct {
	Message string
	Fields  map[string]string
}

func (e *ErrValidation) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "validation failed"
}

// ErrInvalidStateTransition is returned when an invalid state transition is attempted
type ErrInvalidStateTransition struct {
	From domain.SplitStatus
	To   domain.SplitStatus
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// ErrInvalidOnHoldTransition is returned for an illegal on-hold triage change
type ErrInvalidOnHoldTransition struct {
	From domain.OnHoldStatus
	To   domain.OnHoldStatus
}

func (e *ErrInvalidOnHoldTransition) Error() string {
	return fmt.Sprintf("invalid on-hold transition from %s to %s", e.From, e.To)
}

// ErrSplitMissing is returned when an order has no split rows. Anything keyed
// off the split's store or line items (ERP push, delivery task) must stop.
type ErrSplitMissing struct {
	OrderReferenceID string
}

func (e *ErrSplitMissing) Error() string {
	return fmt.Sprintf("split data missing for order %s", e.OrderReferenceID)
}

// ErrNoInventory is returned when no store has enough primary stock for a reassignment
type ErrNoInventory struct {
	SKU      string
	Quantity int
}

func (e *ErrNoInventory) Error() string {
	return "No inventory in stores"
}

// ErrBackupWarehouse is returned when the backup warehouse is not uniquely defined
type ErrBackupWarehouse struct {
	Count int
}

func (e *ErrBackupWarehouse) Error() string {
	if e.Count == 0 {
		return "no active backup warehouse configured"
	}
	return fmt.Sprintf("expected exactly one active backup warehouse, found %d", e.Count)
}

// ErrSyncInProgress is returned when another run holds the lease for a scope
type ErrSyncInProgress struct {
	Scope string
}

func (e *ErrSyncInProgress) Error() string {
	return fmt.Sprintf("sync already running: %s", e.Scope)
}

// ErrExternal wraps a non-2xx or malformed response from an external system
type ErrExternal struct {
	System string
	Status int
	Body   string
}

func (e *ErrExternal) Error() string {
	return fmt.Sprintf("%s API error: status %d, body: %s", e.System, e.Status, e.Body)
}
