package cart

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"craftkart/internal/domain"
	cartrepo "craftkart/internal/repository/cart"
	"github.com/jackc/pgx/v5"
)

type stubCartRepo struct {
	carts     map[string]*domain.Cart
	nextID    int
	refreshed map[string]int64
	statuses  map[string]domain.CartStatus

	abandoned []string
	expired   []string
	purged    int64
}

func newStubCartRepo() *stubCartRepo {
	return &stubCartRepo{
		carts:     map[string]*domain.Cart{},
		refreshed: map[string]int64{},
		statuses:  map[string]domain.CartStatus{},
	}
}

func (s *stubCartRepo) put(c *domain.Cart) *domain.Cart {
	s.carts[c.ID] = c
	return c
}

func (s *stubCartRepo) Create(_ context.Context, in cartrepo.CreateCartInput) (*domain.Cart, error) {
	s.nextID++
	c := &domain.Cart{
		ID:                fmt.Sprintf("cart-%d", s.nextID),
		CustomerID:        in.CustomerID,
		SessionID:         in.SessionID,
		DeviceFingerprint: in.DeviceFingerprint,
		Status:            domain.CartActive,
		Currency:          in.Currency,
		ExpiresAt:         in.ExpiresAt,
	}
	return s.put(c), nil
}

func (s *stubCartRepo) GetByID(_ context.Context, id string) (*domain.Cart, error) {
	if c, ok := s.carts[id]; ok {
		return c, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubCartRepo) GetActiveByCustomer(_ context.Context, customerID string) (*domain.Cart, error) {
	for _, c := range s.carts {
		if c.Status == domain.CartActive && c.CustomerID != nil && *c.CustomerID == customerID {
			return c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubCartRepo) GetActiveByGuest(_ context.Context, sessionID, deviceFingerprint string) (*domain.Cart, error) {
	for _, c := range s.carts {
		if c.Status != domain.CartActive || c.CustomerID != nil {
			continue
		}
		if strEq(c.SessionID, sessionID) && strEq(c.DeviceFingerprint, deviceFingerprint) {
			return c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubCartRepo) GetActiveGuestCarts(_ context.Context, sessionID, deviceFingerprint string) ([]domain.Cart, error) {
	var out []domain.Cart
	for _, c := range s.carts {
		if c.Status != domain.CartActive || c.CustomerID != nil {
			continue
		}
		if (sessionID != "" && strEq(c.SessionID, sessionID)) ||
			(deviceFingerprint != "" && strEq(c.DeviceFingerprint, deviceFingerprint)) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *stubCartRepo) AddItem(_ context.Context, cartID string, in cartrepo.AddItemInput) error {
	c, ok := s.carts[cartID]
	if !ok {
		return domain.ErrNotFound
	}
	if existing := c.ItemFor(in.ProductID, in.CustomLengthMM); existing != nil {
		existing.Quantity += in.Quantity
		return nil
	}
	c.Items = append(c.Items, domain.CartItem{
		ID:                  fmt.Sprintf("item-%d", len(c.Items)+1),
		CartID:              cartID,
		ProductID:           in.ProductID,
		Quantity:            in.Quantity,
		UnitPriceCents:      in.UnitPriceCents,
		CustomLengthMM:      in.CustomLengthMM,
		CalculatedUnitCents: in.CalculatedUnitCents,
		IsGift:              in.IsGift,
		GiftMessage:         in.GiftMessage,
		DiscountCents:       in.DiscountCents,
	})
	return nil
}

func (s *stubCartRepo) SetItemQuantity(_ context.Context, cartID, itemID string, quantity int) error {
	c := s.carts[cartID]
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			if quantity <= 0 {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
			} else {
				c.Items[i].Quantity = quantity
			}
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *stubCartRepo) RemoveItem(ctx context.Context, cartID, itemID string) error {
	return s.SetItemQuantity(ctx, cartID, itemID, 0)
}

func (s *stubCartRepo) ClearItems(_ context.Context, cartID string) error {
	s.carts[cartID].Items = nil
	return nil
}

func (s *stubCartRepo) SetDiscount(_ context.Context, cartID, code string, discountCents int64) error {
	c := s.carts[cartID]
	c.DiscountCode = code
	c.DiscountCents = discountCents
	return nil
}

func (s *stubCartRepo) RefreshItemPrice(_ context.Context, itemID string, unitPriceCents int64, calculatedUnitCents *int64) error {
	s.refreshed[itemID] = unitPriceCents
	for _, c := range s.carts {
		for i := range c.Items {
			if c.Items[i].ID == itemID {
				c.Items[i].UnitPriceCents = unitPriceCents
				c.Items[i].CalculatedUnitCents = calculatedUnitCents
			}
		}
	}
	return nil
}

func (s *stubCartRepo) UpdateTotals(_ context.Context, cartID string, discountCents, taxCents, shippingCents, totalCents int64) error {
	c := s.carts[cartID]
	c.DiscountCents = discountCents
	c.TaxCents = taxCents
	c.ShippingCents = shippingCents
	c.TotalCents = totalCents
	return nil
}

func (s *stubCartRepo) SetStatus(_ context.Context, cartID string, status domain.CartStatus) error {
	s.statuses[cartID] = status
	if c, ok := s.carts[cartID]; ok {
		c.Status = status
	}
	return nil
}

func (s *stubCartRepo) SetStatusTx(ctx context.Context, _ pgx.Tx, cartID string, status domain.CartStatus) error {
	return s.SetStatus(ctx, cartID, status)
}

func (s *stubCartRepo) MarkAbandoned(_ context.Context, _ time.Time) ([]string, error) {
	return s.abandoned, nil
}

func (s *stubCartRepo) MarkExpired(_ context.Context, _ time.Time) ([]string, error) {
	return s.expired, nil
}

func (s *stubCartRepo) PurgeTerminal(_ context.Context, _ time.Time) (int64, error) {
	return s.purged, nil
}

func strEq(p *string, v string) bool {
	if p == nil {
		return v == ""
	}
	return *p == v
}

type stubProductRepo struct {
	products map[string]*domain.Product
}

func (s *stubProductRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	if p, ok := s.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func newService(repo *stubCartRepo, products map[string]*domain.Product) *Service {
	return New(repo, &stubProductRepo{products: products}, nil, Options{})
}

func customerIdentity(id string) Identity {
	return Identity{CustomerID: id}
}

func TestAddItem_CapturesPriceAndMergesVariants(t *testing.T) {
	repo := newStubCartRepo()
	svc := newService(repo, map[string]*domain.Product{
		"p1": {ID: "p1", PriceCents: 1000, IsActive: true, StockQuantity: 10},
	})

	cart, err := svc.AddItem(context.Background(), customerIdentity("cust-1"), AddItemInput{ProductID: "p1", Quantity: 2})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 2 {
		t.Fatalf("expected one item with quantity 2, got %+v", cart.Items)
	}
	if cart.Items[0].UnitPriceCents != 1000 {
		t.Fatalf("expected captured price 1000, got %d", cart.Items[0].UnitPriceCents)
	}

	cart, err = svc.AddItem(context.Background(), customerIdentity("cust-1"), AddItemInput{ProductID: "p1", Quantity: 3})
	if err != nil {
		t.Fatalf("add item again: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %+v", cart.Items)
	}
}

func TestAddItem_CustomLengthIsASeparateVariant(t *testing.T) {
	repo := newStubCartRepo()
	svc := newService(repo, map[string]*domain.Product{
		"rope": {ID: "rope", PriceCents: 4500, BaseAmountCents: 2000, IsActive: true, StockQuantity: 100},
	})

	mm := 2500
	cart, err := svc.AddItem(context.Background(), customerIdentity("cust-1"), AddItemInput{ProductID: "rope", Quantity: 1, CustomLengthMM: &mm})
	if err != nil {
		t.Fatalf("add custom length: %v", err)
	}
	if _, err = svc.AddItem(context.Background(), customerIdentity("cust-1"), AddItemInput{ProductID: "rope", Quantity: 1}); err != nil {
		t.Fatalf("add plain: %v", err)
	}

	cart, err = svc.GetOrCreate(context.Background(), customerIdentity("cust-1"))
	if err != nil {
		t.Fatalf("reload cart: %v", err)
	}
	if len(cart.Items) != 2 {
		t.Fatalf("expected 2 distinct variants, got %d", len(cart.Items))
	}
	item := cart.ItemFor("rope", &mm)
	if item == nil || item.CalculatedUnitCents == nil {
		t.Fatalf("expected calculated price on custom-length item")
	}
	// 2000 + 4500 * 2.5m, rounded half-up
	if got := *item.CalculatedUnitCents; got != 13250 {
		t.Fatalf("expected calculated unit 13250, got %d", got)
	}
}

func TestAddItem_InactiveProduct(t *testing.T) {
	repo := newStubCartRepo()
	svc := newService(repo, map[string]*domain.Product{
		"p1": {ID: "p1", PriceCents: 1000, IsActive: false},
	})

	_, err := svc.AddItem(context.Background(), customerIdentity("cust-1"), AddItemInput{ProductID: "p1", Quantity: 1})
	if !errors.Is(err, domain.ErrProductUnavailable) {
		t.Fatalf("expected ErrProductUnavailable, got %v", err)
	}
}

func TestUpdateQuantity_ZeroRemovesItem(t *testing.T) {
	repo := newStubCartRepo()
	svc := newService(repo, map[string]*domain.Product{
		"p1": {ID: "p1", PriceCents: 1000, IsActive: true, StockQuantity: 10},
	})

	if _, err := svc.AddItem(context.Background(), customerIdentity("cust-1"), AddItemInput{ProductID: "p1", Quantity: 2}); err != nil {
		t.Fatalf("add item: %v", err)
	}
	cart, _ := svc.GetOrCreate(context.Background(), customerIdentity("cust-1"))

	cart, err := svc.UpdateQuantity(context.Background(), customerIdentity("cust-1"), cart.Items[0].ID, 0)
	if err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %d items", len(cart.Items))
	}
}

func TestAddItem_NotModifiableAfterCheckout(t *testing.T) {
	repo := newStubCartRepo()
	svc := newService(repo, map[string]*domain.Product{
		"p1": {ID: "p1", PriceCents: 1000, IsActive: true, StockQuantity: 10},
	})

	cid := "cust-1"
	repo.put(&domain.Cart{ID: "cart-x", CustomerID: &cid, Status: domain.CartActive})
	if err := repo.SetStatus(context.Background(), "cart-x", domain.CartCheckedOut); err != nil {
		t.Fatal(err)
	}
	// The checked-out cart is no longer ACTIVE, so a fresh cart is created.
	cart, err := svc.AddItem(context.Background(), customerIdentity(cid), AddItemInput{ProductID: "p1", Quantity: 1})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if cart.ID == "cart-x" {
		t.Fatalf("expected a new cart, got the checked-out one")
	}
}

func TestApplyDiscount_UnknownCodeYieldsZero(t *testing.T) {
	repo := newStubCartRepo()
	svc := newService(repo, map[string]*domain.Product{
		"p1": {ID: "p1", PriceCents: 10000, IsActive: true, StockQuantity: 10},
	})

	if _, err := svc.AddItem(context.Background(), customerIdentity("cust-1"), AddItemInput{ProductID: "p1", Quantity: 1}); err != nil {
		t.Fatalf("add item: %v", err)
	}
	cart, err := svc.ApplyDiscount(context.Background(), customerIdentity("cust-1"), "NOSUCHCODE")
	if err != nil {
		t.Fatalf("unknown code must not fail: %v", err)
	}
	if cart.DiscountCents != 0 {
		t.Fatalf("expected zero discount, got %d", cart.DiscountCents)
	}
	if cart.DiscountCode != "NOSUCHCODE" {
		t.Fatalf("expected code stored, got %q", cart.DiscountCode)
	}
}

func TestApplyDiscount_PercentCode(t *testing.T) {
	repo := newStubCartRepo()
	svc := newService(repo, map[string]*domain.Product{
		"p1": {ID: "p1", PriceCents: 10000, IsActive: true, StockQuantity: 10},
	})

	if _, err := svc.AddItem(context.Background(), customerIdentity("cust-1"), AddItemInput{ProductID: "p1", Quantity: 1}); err != nil {
		t.Fatalf("add item: %v", err)
	}
	cart, err := svc.ApplyDiscount(context.Background(), customerIdentity("cust-1"), "save10")
	if err != nil {
		t.Fatalf("apply discount: %v", err)
	}
	if cart.DiscountCents != 1000 {
		t.Fatalf("expected 10%% of 10000, got %d", cart.DiscountCents)
	}
}

func TestValidate_PriceDriftIsAWarningAndReconciles(t *testing.T) {
	repo := newStubCartRepo()
	products := map[string]*domain.Product{
		"p1": {ID: "p1", PriceCents: 1000, IsActive: true, StockQuantity: 10},
	}
	svc := newService(repo, products)

	if _, err := svc.AddItem(context.Background(), customerIdentity("cust-1"), AddItemInput{ProductID: "p1", Quantity: 1}); err != nil {
		t.Fatalf("add item: %v", err)
	}
	products["p1"].PriceCents = 1200

	res, err := svc.Validate(context.Background(), customerIdentity("cust-1"))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !res.Valid {
		t.Fatalf("price drift must not block: %+v", res.Errors)
	}
	if len(res.Warnings) != 1 || !res.HasChanges {
		t.Fatalf("expected one warning with hasChanges, got %+v", res)
	}
	cart, _ := svc.GetOrCreate(context.Background(), customerIdentity("cust-1"))
	if cart.Items[0].UnitPriceCents != 1200 {
		t.Fatalf("expected stored price reconciled to 1200, got %d", cart.Items[0].UnitPriceCents)
	}
	if len(repo.refreshed) != 1 {
		t.Fatalf("expected one persisted price refresh, got %d", len(repo.refreshed))
	}
}

func TestValidate_AggregatesAllIssues(t *testing.T) {
	repo := newStubCartRepo()
	products := map[string]*domain.Product{
		"ok":    {ID: "ok", PriceCents: 1000, IsActive: true, StockQuantity: 10},
		"low":   {ID: "low", PriceCents: 1000, IsActive: true, StockQuantity: 1},
		"dead":  {ID: "dead", PriceCents: 1000, IsActive: false, StockQuantity: 10},
		"gone1": {ID: "gone1", PriceCents: 1000, IsActive: true, StockQuantity: 10},
	}
	svc := newService(repo, products)

	id := customerIdentity("cust-1")
	for _, pid := range []string{"ok", "low", "gone1"} {
		if _, err := svc.AddItem(context.Background(), id, AddItemInput{ProductID: pid, Quantity: 3}); err != nil {
			t.Fatalf("add %s: %v", pid, err)
		}
	}
	// dead is added while active, then deactivated; gone1 vanishes entirely.
	products["dead"].IsActive = true
	if _, err := svc.AddItem(context.Background(), id, AddItemInput{ProductID: "dead", Quantity: 1}); err != nil {
		t.Fatalf("add dead: %v", err)
	}
	products["dead"].IsActive = false
	delete(products, "gone1")

	res, err := svc.Validate(context.Background(), id)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if res.Valid {
		t.Fatalf("expected invalid result")
	}
	if len(res.Errors) != 3 {
		t.Fatalf("expected 3 aggregated errors (stock, inactive, missing), got %+v", res.Errors)
	}
	for _, issue := range res.Errors {
		if issue.ProductID == "low" && issue.Available != 1 {
			t.Fatalf("expected available=1 on stock issue, got %+v", issue)
		}
	}
}

func TestSweep_ReportsCounts(t *testing.T) {
	repo := newStubCartRepo()
	repo.abandoned = []string{"c1", "c2"}
	repo.expired = []string{"c3"}
	repo.purged = 7
	svc := newService(repo, nil)

	report, err := svc.Sweep(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(report.Abandoned) != 2 || len(report.Expired) != 1 || report.Purged != 7 {
		t.Fatalf("unexpected report: %+v", report)
	}
}
