// Package checkout turns an ACTIVE cart into an immutable order: it
// re-validates the cart, reserves stock per item, snapshots the lines and
// addresses, and persists everything in a single transaction so a mid-loop
// stock failure leaves no order and no net reservation behind.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"craftkart/internal/domain"
	"craftkart/internal/pricing"
	"github.com/jackc/pgx/v5"
)

type cartValidator interface {
	ValidateCart(ctx context.Context, cart *domain.Cart) (*domain.ValidationResult, error)
}

type cartRepo interface {
	GetActiveByCustomer(ctx context.Context, customerID string) (*domain.Cart, error)
	SetStatusTx(ctx context.Context, tx pgx.Tx, cartID string, status domain.CartStatus) error
}

type addressRepo interface {
	GetAddress(ctx context.Context, id string) (*domain.Address, error)
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type stockLedger interface {
	ReserveTx(ctx context.Context, tx pgx.Tx, productID string, qty int) error
}

type orderRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, o *domain.Order) error
}

type txRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

type Service struct {
	carts     cartRepo
	validator cartValidator
	addresses addressRepo
	products  productRepo
	stock     stockLedger
	orders    orderRepo
	tx        txRunner
	numbers   *NumberGenerator
	logger    *log.Logger
}

func New(carts cartRepo, validator cartValidator, addresses addressRepo, products productRepo, stock stockLedger, orders orderRepo, tx txRunner, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		carts:     carts,
		validator: validator,
		addresses: addresses,
		products:  products,
		stock:     stock,
		orders:    orders,
		tx:        tx,
		numbers:   NewNumberGenerator(),
		logger:    logger,
	}
}

// Input is one checkout request.
type Input struct {
	BillingAddressID  string `json:"billingAddressId"`
	ShippingAddressID string `json:"shippingAddressId"`
	PaymentMethod     string `json:"paymentMethod"`
	ShippingMethod    string `json:"shippingMethod,omitempty"`
}

// Checkout converts the customer's ACTIVE cart into an order.
func (s *Service) Checkout(ctx context.Context, customerID string, in Input) (*domain.Order, error) {
	if strings.TrimSpace(in.PaymentMethod) == "" {
		return nil, fmt.Errorf("%w: paymentMethod required", domain.ErrBadInput)
	}

	cart, err := s.carts.GetActiveByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, domain.ErrCartEmpty
	}

	res, err := s.validator.ValidateCart(ctx, cart)
	if err != nil {
		return nil, err
	}
	if !res.Valid {
		return nil, &domain.ValidationFailedError{Issues: res.Errors}
	}

	billing, err := s.ownedAddress(ctx, in.BillingAddressID, customerID)
	if err != nil {
		return nil, err
	}
	shipping, err := s.ownedAddress(ctx, in.ShippingAddressID, customerID)
	if err != nil {
		return nil, err
	}

	order, err := s.buildOrder(ctx, customerID, cart, billing, shipping, in)
	if err != nil {
		return nil, err
	}

	// Reservations, the order row and the cart transition share one atomic
	// unit: a reserve failure on item N rolls back items 1..N-1 with it.
	err = s.tx.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		for _, item := range order.Items {
			if err := s.stock.ReserveTx(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		if err := s.orders.CreateTx(ctx, tx, order); err != nil {
			return err
		}
		return s.carts.SetStatusTx(ctx, tx, cart.ID, domain.CartCheckedOut)
	})
	if err != nil {
		s.logger.Printf("checkout: cart=%s customer=%s failed: %v", cart.ID, customerID, err)
		return nil, err
	}

	s.logger.Printf("checkout: cart=%s -> order=%s number=%s total=%d", cart.ID, order.ID, order.OrderNumber, order.TotalCents)
	return order, nil
}

func (s *Service) ownedAddress(ctx context.Context, addressID, customerID string) (*domain.Address, error) {
	if strings.TrimSpace(addressID) == "" {
		return nil, fmt.Errorf("%w: address id required", domain.ErrBadInput)
	}
	addr, err := s.addresses.GetAddress(ctx, addressID)
	if err != nil {
		return nil, err
	}
	if addr.CustomerID != customerID {
		return nil, domain.ErrOwnershipMismatch
	}
	return addr, nil
}

// buildOrder snapshots cart lines into order items and fixes the totals. The
// subtotal and discount are carried from the validated cart so the price the
// shopper saw is the price charged; tax, shipping and fee need the real
// address, method and payment inputs that only exist at checkout.
func (s *Service) buildOrder(ctx context.Context, customerID string, cart *domain.Cart, billing, shipping *domain.Address, in Input) (*domain.Order, error) {
	items := make([]domain.OrderItem, 0, len(cart.Items))
	for _, ci := range cart.Items {
		product, err := s.products.GetByID(ctx, ci.ProductID)
		if err != nil {
			return nil, err
		}
		items = append(items, domain.OrderItem{
			ProductID:      ci.ProductID,
			ProductName:    product.Name,
			ProductBrand:   product.Brand,
			SKU:            product.SKU,
			Quantity:       ci.Quantity,
			UnitPriceCents: ci.EffectiveUnitCents(),
			TaxRateBP:      product.TaxRateBP,
			CustomLengthMM: ci.CustomLengthMM,
			IsGift:         ci.IsGift,
			GiftMessage:    ci.GiftMessage,
			LineTotalCents: ci.LineTotalCents(),
		})
	}

	var subtotal int64
	for _, it := range items {
		subtotal += it.LineTotalCents
	}

	discount := cart.DiscountCents
	b := pricing.Calculate(pricing.Input{
		SubtotalCents:  subtotal,
		ShippingState:  shipping.State,
		ShippingMethod: in.ShippingMethod,
		PaymentMethod:  in.PaymentMethod,
	})
	// The payment-method fee is billed under shipping & handling.
	shippingCents := b.ShippingCents + b.FeeCents

	order := &domain.Order{
		OrderNumber:     s.numbers.Next(),
		CustomerID:      customerID,
		Status:          domain.OrderRaised,
		Currency:        cart.Currency,
		SubtotalCents:   subtotal,
		DiscountCents:   discount,
		TaxCents:        b.TaxCents,
		ShippingCents:   shippingCents,
		TotalCents:      subtotal - discount + b.TaxCents + shippingCents,
		PaymentMethod:   in.PaymentMethod,
		BillingAddress:  billing.Snapshot(),
		ShippingAddress: shipping.Snapshot(),
		Items:           items,
		StatusHistory: []domain.OrderStatusHistory{{
			Status:          domain.OrderRaised,
			Notes:           "order placed",
			ChangedBy:       customerID,
			SystemGenerated: true,
		}},
	}
	if !order.TotalsConsistent() {
		return nil, errors.New("order totals inconsistent")
	}
	return order, nil
}
