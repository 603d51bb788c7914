package cart

import (
	"context"
	"time"

	"craftkart/internal/domain"
	"github.com/jackc/pgx/v5"
)

type CreateCartInput struct {
	CustomerID        *string
	SessionID         *string
	DeviceFingerprint *string
	Currency          string
	ExpiresAt         time.Time
}

// AddItemInput carries a new line; quantities for an existing
// product+custom-length variant are summed, not replaced.
type AddItemInput struct {
	ProductID           string
	Quantity            int
	UnitPriceCents      int64
	CustomLengthMM      *int
	CalculatedUnitCents *int64
	IsGift              bool
	GiftMessage         string
	DiscountCents       int64
}

type Repository interface {
	Create(ctx context.Context, in CreateCartInput) (*domain.Cart, error)
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	GetActiveByCustomer(ctx context.Context, customerID string) (*domain.Cart, error)
	// GetActiveByGuest returns the ACTIVE cart for an exact
	// (session id, device fingerprint) pair.
	GetActiveByGuest(ctx context.Context, sessionID, deviceFingerprint string) (*domain.Cart, error)
	// GetActiveGuestCarts returns every ACTIVE guest cart matching either the
	// session id or the device fingerprint, deduplicated by cart id.
	GetActiveGuestCarts(ctx context.Context, sessionID, deviceFingerprint string) ([]domain.Cart, error)
	AddItem(ctx context.Context, cartID string, in AddItemInput) error
	SetItemQuantity(ctx context.Context, cartID, itemID string, quantity int) error
	RemoveItem(ctx context.Context, cartID, itemID string) error
	ClearItems(ctx context.Context, cartID string) error
	SetDiscount(ctx context.Context, cartID, code string, discountCents int64) error
	RefreshItemPrice(ctx context.Context, itemID string, unitPriceCents int64, calculatedUnitCents *int64) error
	UpdateTotals(ctx context.Context, cartID string, discountCents, taxCents, shippingCents, totalCents int64) error
	SetStatus(ctx context.Context, cartID string, status domain.CartStatus) error
	SetStatusTx(ctx context.Context, tx pgx.Tx, cartID string, status domain.CartStatus) error

	// Sweep operations, driven by an external scheduler.
	MarkAbandoned(ctx context.Context, inactiveSince time.Time) ([]string, error)
	MarkExpired(ctx context.Context, now time.Time) ([]string, error)
	PurgeTerminal(ctx context.Context, before time.Time) (int64, error)
}
