package cart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"craftkart/internal/domain"
	"craftkart/internal/pricing"
	cartrepo "craftkart/internal/repository/cart"
)

// Identity is the key a cart is bound to: an authenticated customer or a
// guest (session id, device fingerprint) pair.
type Identity struct {
	CustomerID        string
	SessionID         string
	DeviceFingerprint string
}

// Authenticated reports whether the identity belongs to a logged-in customer.
func (id Identity) Authenticated() bool {
	return id.CustomerID != ""
}

type cartRepo interface {
	Create(ctx context.Context, in cartrepo.CreateCartInput) (*domain.Cart, error)
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	GetActiveByCustomer(ctx context.Context, customerID string) (*domain.Cart, error)
	GetActiveByGuest(ctx context.Context, sessionID, deviceFingerprint string) (*domain.Cart, error)
	GetActiveGuestCarts(ctx context.Context, sessionID, deviceFingerprint string) ([]domain.Cart, error)
	AddItem(ctx context.Context, cartID string, in cartrepo.AddItemInput) error
	SetItemQuantity(ctx context.Context, cartID, itemID string, quantity int) error
	RemoveItem(ctx context.Context, cartID, itemID string) error
	ClearItems(ctx context.Context, cartID string) error
	SetDiscount(ctx context.Context, cartID, code string, discountCents int64) error
	RefreshItemPrice(ctx context.Context, itemID string, unitPriceCents int64, calculatedUnitCents *int64) error
	UpdateTotals(ctx context.Context, cartID string, discountCents, taxCents, shippingCents, totalCents int64) error
	SetStatus(ctx context.Context, cartID string, status domain.CartStatus) error
	MarkAbandoned(ctx context.Context, inactiveSince time.Time) ([]string, error)
	MarkExpired(ctx context.Context, now time.Time) ([]string, error)
	PurgeTerminal(ctx context.Context, before time.Time) (int64, error)
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type Service struct {
	repo     cartRepo
	products productRepo
	logger   *log.Logger

	cartTTL      time.Duration
	abandonAfter time.Duration
	purgeAfter   time.Duration
}

// Options tune cart lifecycle windows.
type Options struct {
	CartTTL      time.Duration
	AbandonAfter time.Duration
	PurgeAfter   time.Duration
}

func New(repo cartrepo.Repository, products productRepo, logger *log.Logger, opts Options) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if opts.CartTTL == 0 {
		opts.CartTTL = 30 * 24 * time.Hour
	}
	if opts.AbandonAfter == 0 {
		opts.AbandonAfter = 72 * time.Hour
	}
	if opts.PurgeAfter == 0 {
		opts.PurgeAfter = 180 * 24 * time.Hour
	}
	return &Service{
		repo:         repo,
		products:     products,
		logger:       logger,
		cartTTL:      opts.CartTTL,
		abandonAfter: opts.AbandonAfter,
		purgeAfter:   opts.PurgeAfter,
	}
}

// GetOrCreate returns the identity's ACTIVE cart, creating one if absent.
func (s *Service) GetOrCreate(ctx context.Context, id Identity) (*domain.Cart, error) {
	cart, err := s.getActive(ctx, id)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	in := cartrepo.CreateCartInput{
		Currency:  "INR",
		ExpiresAt: time.Now().UTC().Add(s.cartTTL),
	}
	if id.Authenticated() {
		in.CustomerID = &id.CustomerID
	} else {
		if id.SessionID == "" && id.DeviceFingerprint == "" {
			return nil, domain.ErrNotFound
		}
		in.SessionID = strPtrOrNil(id.SessionID)
		in.DeviceFingerprint = strPtrOrNil(id.DeviceFingerprint)
	}
	return s.repo.Create(ctx, in)
}

func (s *Service) getActive(ctx context.Context, id Identity) (*domain.Cart, error) {
	if id.Authenticated() {
		return s.repo.GetActiveByCustomer(ctx, id.CustomerID)
	}
	return s.repo.GetActiveByGuest(ctx, id.SessionID, id.DeviceFingerprint)
}

// AddItemInput carries one add-to-cart request.
type AddItemInput struct {
	ProductID      string `json:"productId"`
	Quantity       int    `json:"quantity"`
	CustomLengthMM *int   `json:"customLengthMm,omitempty"`
	IsGift         bool   `json:"isGift,omitempty"`
	GiftMessage    string `json:"giftMessage,omitempty"`
}

// AddItem appends a line to the identity's cart, summing quantities when the
// same product+length variant is already present. The unit price is captured
// from the catalog at this moment.
func (s *Service) AddItem(ctx context.Context, id Identity, in AddItemInput) (*domain.Cart, error) {
	if strings.TrimSpace(in.ProductID) == "" {
		return nil, fmt.Errorf("%w: productId required", domain.ErrBadInput)
	}
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", domain.ErrBadInput)
	}

	cart, err := s.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cart.Status.Modifiable() {
		return nil, domain.ErrCartNotModifiable
	}

	product, err := s.products.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, domain.ErrProductUnavailable
	}

	if err := s.repo.AddItem(ctx, cart.ID, cartrepo.AddItemInput{
		ProductID:           product.ID,
		Quantity:            in.Quantity,
		UnitPriceCents:      product.PriceCents,
		CustomLengthMM:      in.CustomLengthMM,
		CalculatedUnitCents: calculatedUnitCents(product, in.CustomLengthMM),
		IsGift:              in.IsGift,
		GiftMessage:         in.GiftMessage,
	}); err != nil {
		return nil, err
	}
	return s.reprice(ctx, cart.ID)
}

// UpdateQuantity sets an item's quantity directly; zero or negative removes it.
func (s *Service) UpdateQuantity(ctx context.Context, id Identity, itemID string, quantity int) (*domain.Cart, error) {
	cart, err := s.modifiable(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetItemQuantity(ctx, cart.ID, itemID, quantity); err != nil {
		return nil, err
	}
	return s.reprice(ctx, cart.ID)
}

// RemoveItem deletes a single line from the cart.
func (s *Service) RemoveItem(ctx context.Context, id Identity, itemID string) (*domain.Cart, error) {
	cart, err := s.modifiable(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RemoveItem(ctx, cart.ID, itemID); err != nil {
		return nil, err
	}
	return s.reprice(ctx, cart.ID)
}

// Clear empties the cart without changing its status.
func (s *Service) Clear(ctx context.Context, id Identity) (*domain.Cart, error) {
	cart, err := s.modifiable(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ClearItems(ctx, cart.ID); err != nil {
		return nil, err
	}
	return s.reprice(ctx, cart.ID)
}

// ApplyDiscount sets the cart's discount code. Unknown codes are accepted and
// yield a zero discount; a bad code must never block the shopper.
func (s *Service) ApplyDiscount(ctx context.Context, id Identity, code string) (*domain.Cart, error) {
	cart, err := s.modifiable(ctx, id)
	if err != nil {
		return nil, err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, fmt.Errorf("%w: code required", domain.ErrBadInput)
	}
	if _, ok := pricing.LookupDiscount(code); !ok {
		s.logger.Printf("cart service: unknown discount code=%s cart=%s, applying zero discount", code, cart.ID)
	}
	if err := s.repo.SetDiscount(ctx, cart.ID, code, pricing.DiscountAmountCents(code, cart.SubtotalCents())); err != nil {
		return nil, err
	}
	return s.reprice(ctx, cart.ID)
}

// RemoveDiscount clears the discount code and amount.
func (s *Service) RemoveDiscount(ctx context.Context, id Identity) (*domain.Cart, error) {
	cart, err := s.modifiable(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetDiscount(ctx, cart.ID, "", 0); err != nil {
		return nil, err
	}
	return s.reprice(ctx, cart.ID)
}

// Totals returns the display breakdown for the identity's cart.
func (s *Service) Totals(ctx context.Context, id Identity) (*domain.Cart, pricing.Breakdown, error) {
	cart, err := s.getActive(ctx, id)
	if err != nil {
		return nil, pricing.Breakdown{}, err
	}
	return cart, s.breakdown(cart), nil
}

// Validate checks every item against the current catalog and aggregates all
// problems instead of failing on the first. Insufficient stock and vanished
// products are errors; a price drift is a warning, and the stored price is
// reconciled to the current catalog price as a side effect, so the totals a
// later checkout carries over are the ones the shopper last saw.
func (s *Service) Validate(ctx context.Context, id Identity) (*domain.ValidationResult, error) {
	cart, err := s.getActive(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := s.validateCart(ctx, cart)
	if err != nil {
		return nil, err
	}
	if res.HasChanges {
		if _, err := s.reprice(ctx, cart.ID); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// ValidateCart is Validate for an already-loaded cart; checkout uses it to
// re-validate immediately before reserving stock.
func (s *Service) ValidateCart(ctx context.Context, cart *domain.Cart) (*domain.ValidationResult, error) {
	return s.validateCart(ctx, cart)
}

func (s *Service) validateCart(ctx context.Context, cart *domain.Cart) (*domain.ValidationResult, error) {
	res := &domain.ValidationResult{Valid: true, Errors: []domain.ItemIssue{}, Warnings: []domain.ItemIssue{}}
	for i := range cart.Items {
		item := &cart.Items[i]
		product, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				res.Errors = append(res.Errors, domain.ItemIssue{
					ItemID: item.ID, ProductID: item.ProductID, Reason: "product no longer exists",
				})
				continue
			}
			return nil, err
		}
		if !product.IsActive {
			res.Errors = append(res.Errors, domain.ItemIssue{
				ItemID: item.ID, ProductID: item.ProductID, Reason: "product is no longer available",
			})
			continue
		}
		if available := product.Available(); item.Quantity > available {
			res.Errors = append(res.Errors, domain.ItemIssue{
				ItemID: item.ID, ProductID: item.ProductID, Reason: "insufficient stock",
				Requested: item.Quantity, Available: available,
			})
		}
		if product.PriceCents != item.UnitPriceCents {
			res.Warnings = append(res.Warnings, domain.ItemIssue{
				ItemID: item.ID, ProductID: item.ProductID, Reason: "price has changed since the item was added",
			})
			calc := calculatedUnitCents(product, item.CustomLengthMM)
			if err := s.repo.RefreshItemPrice(ctx, item.ID, product.PriceCents, calc); err != nil {
				return nil, err
			}
			item.UnitPriceCents = product.PriceCents
			item.CalculatedUnitCents = calc
			res.HasChanges = true
		}
	}
	res.Valid = len(res.Errors) == 0
	return res, nil
}

func (s *Service) modifiable(ctx context.Context, id Identity) (*domain.Cart, error) {
	cart, err := s.getActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cart.Status.Modifiable() {
		return nil, domain.ErrCartNotModifiable
	}
	return cart, nil
}

// reprice reloads the cart and refreshes its cached derived totals.
func (s *Service) reprice(ctx context.Context, cartID string) (*domain.Cart, error) {
	cart, err := s.repo.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	b := s.breakdown(cart)
	if err := s.repo.UpdateTotals(ctx, cart.ID, b.DiscountCents, b.TaxCents, b.ShippingCents, b.TotalCents); err != nil {
		return nil, err
	}
	cart.DiscountCents = b.DiscountCents
	cart.TaxCents = b.TaxCents
	cart.ShippingCents = b.ShippingCents
	cart.TotalCents = b.TotalCents
	return cart, nil
}

// breakdown prices a cart for display. No shipping address or payment method
// is known at cart stage, so the default tax region and standard shipping
// apply; checkout recomputes with real inputs.
func (s *Service) breakdown(cart *domain.Cart) pricing.Breakdown {
	return pricing.Calculate(pricing.Input{
		SubtotalCents: cart.SubtotalCents(),
		DiscountCode:  cart.DiscountCode,
	})
}

// calculatedUnitCents derives the effective unit price for dimension-priced
// products: the base amount plus the per-metre price applied to the cut length.
func calculatedUnitCents(p *domain.Product, customLengthMM *int) *int64 {
	if customLengthMM == nil {
		return nil
	}
	calc := p.BaseAmountCents + (p.PriceCents*int64(*customLengthMM)+500)/1000
	return &calc
}

func strPtrOrNil(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
