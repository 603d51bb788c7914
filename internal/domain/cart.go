package domain

import "time"

// CartStatus is the lifecycle state of a cart.
type CartStatus string

const (
	CartActive     CartStatus = "ACTIVE"
	CartCheckedOut CartStatus = "CHECKED_OUT"
	CartAbandoned  CartStatus = "ABANDONED"
	CartExpired    CartStatus = "EXPIRED"
)

// Modifiable reports whether cart mutations are allowed in this status.
func (s CartStatus) Modifiable() bool {
	return s == CartActive
}

// Cart is keyed by either a customer id (authenticated) or a
// (session id, device fingerprint) pair (guest), never both.
type Cart struct {
	ID                string     `json:"id"`
	CustomerID        *string    `json:"customerId,omitempty"`
	SessionID         *string    `json:"-"`
	DeviceFingerprint *string    `json:"-"`
	Status            CartStatus `json:"status"`
	Currency          string     `json:"currency"`
	DiscountCode      string     `json:"discountCode,omitempty"`
	DiscountCents     int64      `json:"discountCents"`
	TaxCents          int64      `json:"taxCents"`
	ShippingCents     int64      `json:"shippingCents"`
	TotalCents        int64      `json:"totalCents"`
	ExpiresAt         time.Time  `json:"expiresAt"`
	LastActivityAt    time.Time  `json:"lastActivityAt"`
	CreatedAt         time.Time  `json:"createdAt"`
	Items             []CartItem `json:"items,omitempty"`
}

// SubtotalCents sums the effective line totals of all items.
func (c Cart) SubtotalCents() int64 {
	var sum int64
	for _, it := range c.Items {
		sum += it.LineTotalCents()
	}
	return sum
}

// ItemFor returns the item matching a product and custom-length variant, if present.
func (c *Cart) ItemFor(productID string, customLengthMM *int) *CartItem {
	for i := range c.Items {
		it := &c.Items[i]
		if it.ProductID != productID {
			continue
		}
		if (it.CustomLengthMM == nil) != (customLengthMM == nil) {
			continue
		}
		if it.CustomLengthMM != nil && *it.CustomLengthMM != *customLengthMM {
			continue
		}
		return it
	}
	return nil
}

// CartItem is owned by exactly one cart. Unit price is captured at the moment
// the item is added and only changes when validation reconciles a price drift.
type CartItem struct {
	ID                  string    `json:"id"`
	CartID              string    `json:"cartId"`
	ProductID           string    `json:"productId"`
	Quantity            int       `json:"quantity"`
	UnitPriceCents      int64     `json:"unitPriceCents"`
	CustomLengthMM      *int      `json:"customLengthMm,omitempty"`
	CalculatedUnitCents *int64    `json:"calculatedUnitPriceCents,omitempty"`
	IsGift              bool      `json:"isGift,omitempty"`
	GiftMessage         string    `json:"giftMessage,omitempty"`
	DiscountCents       int64     `json:"discountCents,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

// EffectiveUnitCents is the per-unit price actually charged: the calculated
// price for dimension-priced items, the captured unit price otherwise.
func (i CartItem) EffectiveUnitCents() int64 {
	if i.CalculatedUnitCents != nil {
		return *i.CalculatedUnitCents
	}
	return i.UnitPriceCents
}

// LineTotalCents is quantity times the effective unit price, less the item discount.
func (i CartItem) LineTotalCents() int64 {
	return i.EffectiveUnitCents()*int64(i.Quantity) - i.DiscountCents
}

// ValidationResult aggregates every problem found while validating a cart.
// Warnings do not block checkout; errors do. HasChanges reports whether
// validation reconciled stored prices against the current catalog.
type ValidationResult struct {
	Valid      bool        `json:"valid"`
	Errors     []ItemIssue `json:"errors"`
	Warnings   []ItemIssue `json:"warnings"`
	HasChanges bool        `json:"hasChanges"`
}
