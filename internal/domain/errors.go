package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness conflict on insert.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidState indicates an operation attempted from a state that forbids it.
	ErrInvalidState = errors.New("invalid state")
	// ErrCartNotModifiable is returned when mutating a cart that is not active.
	ErrCartNotModifiable = errors.New("cart is not modifiable")
	// ErrCartEmpty is returned when checkout is attempted on a cart without items.
	ErrCartEmpty = errors.New("cart is empty")
	// ErrProductUnavailable is returned when adding an inactive product to a cart.
	ErrProductUnavailable = errors.New("product unavailable")
	// ErrOwnershipMismatch indicates an entity does not belong to the requesting identity.
	ErrOwnershipMismatch = errors.New("ownership mismatch")
	// ErrBadInput marks caller mistakes that map to a 400 at the HTTP boundary.
	ErrBadInput = errors.New("bad input")
)

// InsufficientStockError reports a reservation attempt that exceeded availability.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// InvalidTransitionError reports an order operation attempted from a status that forbids it.
type InvalidTransitionError struct {
	OrderID string
	From    OrderStatus
	To      OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for order %s: %s -> %s", e.OrderID, e.From, e.To)
}

// ItemIssue describes one per-item problem found during cart validation.
type ItemIssue struct {
	ItemID    string `json:"itemId"`
	ProductID string `json:"productId"`
	Reason    string `json:"reason"`
	Requested int    `json:"requested,omitempty"`
	Available int    `json:"available,omitempty"`
}

// ValidationFailedError aggregates the blocking issues found when a cart is
// re-validated at checkout. Validate itself reports issues as data, not errors.
type ValidationFailedError struct {
	Issues []ItemIssue
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("cart validation failed with %d issue(s)", len(e.Issues))
}
