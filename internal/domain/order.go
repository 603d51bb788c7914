package domain

import "time"

// OrderStatus is the workflow state of an order.
type OrderStatus string

const (
	OrderRaised    OrderStatus = "ORDER_RAISED"
	OrderPaid      OrderStatus = "PAYMENT_DONE"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// Terminal reports whether no further transitions are allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// Cancellable reports whether cancel is allowed from this status.
func (s OrderStatus) Cancellable() bool {
	return s == OrderRaised || s == OrderPaid
}

// OrderAddress is a value-object snapshot of an address at checkout time,
// deliberately not a live reference to the customer's address book.
type OrderAddress struct {
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	StreetName string `json:"streetName"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// Order is an immutable snapshot created at checkout; only status, payment and
// tracking fields change afterward, and every change appends a history entry.
type Order struct {
	ID              string               `json:"id"`
	OrderNumber     string               `json:"orderNumber"`
	CustomerID      string               `json:"customerId"`
	Status          OrderStatus          `json:"status"`
	Currency        string               `json:"currency"`
	SubtotalCents   int64                `json:"subtotalCents"`
	DiscountCents   int64                `json:"discountCents"`
	TaxCents        int64                `json:"taxCents"`
	ShippingCents   int64                `json:"shippingCents"`
	TotalCents      int64                `json:"totalCents"`
	PaymentMethod   string               `json:"paymentMethod"`
	PaymentTxnID    string               `json:"paymentTransactionId,omitempty"`
	BillingAddress  OrderAddress         `json:"billingAddress"`
	ShippingAddress OrderAddress         `json:"shippingAddress"`
	DeliveredAt     *time.Time           `json:"deliveredAt,omitempty"`
	CancelledAt     *time.Time           `json:"cancelledAt,omitempty"`
	CancelReason    string               `json:"cancelReason,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
	Items           []OrderItem          `json:"items,omitempty"`
	StatusHistory   []OrderStatusHistory `json:"statusHistory,omitempty"`
}

// TotalsConsistent verifies the order totals identity.
func (o Order) TotalsConsistent() bool {
	return o.TotalCents == o.SubtotalCents-o.DiscountCents+o.TaxCents+o.ShippingCents
}

// OrderItem is a point-in-time copy of the product; it must survive later
// product mutation or deletion.
type OrderItem struct {
	ID             string `json:"id"`
	OrderID        string `json:"orderId"`
	ProductID      string `json:"productId"`
	ProductName    string `json:"productName"`
	ProductBrand   string `json:"productBrand,omitempty"`
	SKU            string `json:"sku"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	TaxRateBP      int    `json:"taxRateBp"`
	CustomLengthMM *int   `json:"customLengthMm,omitempty"`
	IsGift         bool   `json:"isGift,omitempty"`
	GiftMessage    string `json:"giftMessage,omitempty"`
	LineTotalCents int64  `json:"lineTotalCents"`
}

// OrderStatusHistory rows are append-only.
type OrderStatusHistory struct {
	ID              string      `json:"id"`
	OrderID         string      `json:"orderId"`
	Status          OrderStatus `json:"status"`
	PreviousStatus  OrderStatus `json:"previousStatus,omitempty"`
	Notes           string      `json:"notes,omitempty"`
	ChangedBy       string      `json:"changedBy,omitempty"`
	SystemGenerated bool        `json:"systemGenerated"`
	CreatedAt       time.Time   `json:"createdAt"`
}
