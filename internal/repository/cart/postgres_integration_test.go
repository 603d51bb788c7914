package cart

import (
	"context"
	"os"
	"testing"
	"time"

	"craftkart/internal/domain"
	"craftkart/internal/migrate"
	productrepo "craftkart/internal/repository/product"
	"github.com/jackc/pgx/v5/pgxpool"
)

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		t.Skipf("db not reachable: %v", err)
	}
	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return pool
}

func seedProduct(ctx context.Context, t *testing.T, pool *pgxpool.Pool, sku string) *domain.Product {
	t.Helper()
	p, err := productrepo.NewPostgres(pool, nil).Upsert(ctx, domain.Product{
		SKU: sku, Name: "Cart Test Product", Currency: "INR",
		PriceCents: 1000, TaxRateBP: 1800, IsActive: true, StockQuantity: 100,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func guestCart(ctx context.Context, t *testing.T, repo Repository, sessionID string) *domain.Cart {
	t.Helper()
	c, err := repo.Create(ctx, CreateCartInput{
		SessionID: &sessionID,
		Currency:  "INR",
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	t.Cleanup(func() {
		_ = repo.SetStatus(context.Background(), c.ID, domain.CartCheckedOut)
	})
	return c
}

func TestCartRepo_AddItemSumsVariantQuantities(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	repo := NewPostgres(pool, nil)
	p := seedProduct(ctx, t, pool, "SKU-CART-SUM")
	c := guestCart(ctx, t, repo, "it-sess-sum")

	mm := 1500
	for i := 0; i < 2; i++ {
		if err := repo.AddItem(ctx, c.ID, AddItemInput{ProductID: p.ID, Quantity: 2, UnitPriceCents: 1000}); err != nil {
			t.Fatalf("add plain: %v", err)
		}
	}
	calc := int64(3500)
	if err := repo.AddItem(ctx, c.ID, AddItemInput{ProductID: p.ID, Quantity: 1, UnitPriceCents: 1000, CustomLengthMM: &mm, CalculatedUnitCents: &calc}); err != nil {
		t.Fatalf("add custom length: %v", err)
	}

	got, err := repo.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(got.Items) != 2 {
		t.Fatalf("expected 2 variant lines, got %d", len(got.Items))
	}
	plain := got.ItemFor(p.ID, nil)
	if plain == nil || plain.Quantity != 4 {
		t.Fatalf("expected summed quantity 4, got %+v", plain)
	}
	custom := got.ItemFor(p.ID, &mm)
	if custom == nil || custom.CalculatedUnitCents == nil || *custom.CalculatedUnitCents != 3500 {
		t.Fatalf("expected separate custom-length line, got %+v", custom)
	}
}

func TestCartRepo_SingleActiveGuestCart(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	repo := NewPostgres(pool, nil)
	guestCart(ctx, t, repo, "it-sess-unique")

	sess := "it-sess-unique"
	if _, err := repo.Create(ctx, CreateCartInput{
		SessionID: &sess,
		Currency:  "INR",
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	}); err == nil {
		t.Fatalf("expected second ACTIVE cart for the same guest identity to be rejected")
	}
}

func TestCartRepo_GuestIdentityWithOneHeader(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	repo := NewPostgres(pool, nil)

	// Session-only guest: the stored fingerprint is NULL and the lookup still
	// has to find the row instead of minting a duplicate cart.
	c := guestCart(ctx, t, repo, "it-sess-solo")
	got, err := repo.GetActiveByGuest(ctx, "it-sess-solo", "")
	if err != nil {
		t.Fatalf("lookup session-only guest: %v", err)
	}
	if got.ID != c.ID {
		t.Fatalf("expected cart %s, got %s", c.ID, got.ID)
	}

	sess := "it-sess-solo"
	if _, err := repo.Create(ctx, CreateCartInput{
		SessionID: &sess,
		Currency:  "INR",
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	}); err == nil {
		t.Fatalf("expected second ACTIVE cart for session-only guest to be rejected")
	}

	// Fingerprint-only guest, same deal from the other side.
	fp := "it-fp-solo"
	fpCart, err := repo.Create(ctx, CreateCartInput{
		DeviceFingerprint: &fp,
		Currency:          "INR",
		ExpiresAt:         time.Now().UTC().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create fingerprint-only cart: %v", err)
	}
	t.Cleanup(func() {
		_ = repo.SetStatus(context.Background(), fpCart.ID, domain.CartCheckedOut)
	})

	got, err = repo.GetActiveByGuest(ctx, "", fp)
	if err != nil {
		t.Fatalf("lookup fingerprint-only guest: %v", err)
	}
	if got.ID != fpCart.ID {
		t.Fatalf("expected cart %s, got %s", fpCart.ID, got.ID)
	}
}

func TestCartRepo_SetItemQuantityZeroRemoves(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	repo := NewPostgres(pool, nil)
	p := seedProduct(ctx, t, pool, "SKU-CART-ZERO")
	c := guestCart(ctx, t, repo, "it-sess-zero")

	if err := repo.AddItem(ctx, c.ID, AddItemInput{ProductID: p.ID, Quantity: 2, UnitPriceCents: 1000}); err != nil {
		t.Fatalf("add item: %v", err)
	}
	got, _ := repo.GetByID(ctx, c.ID)
	if err := repo.SetItemQuantity(ctx, c.ID, got.Items[0].ID, 0); err != nil {
		t.Fatalf("set quantity zero: %v", err)
	}

	got, err := repo.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(got.Items) != 0 {
		t.Fatalf("expected item removed, got %+v", got.Items)
	}
}

func TestCartRepo_SweepLifecycle(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	repo := NewPostgres(pool, nil)
	stale := guestCart(ctx, t, repo, "it-sess-sweep")

	if _, err := pool.Exec(ctx, `
UPDATE carts SET last_activity_at = now() - interval '100 hours' WHERE id = $1
`, stale.ID); err != nil {
		t.Fatalf("age cart: %v", err)
	}

	abandoned, err := repo.MarkAbandoned(ctx, time.Now().Add(-72*time.Hour))
	if err != nil {
		t.Fatalf("mark abandoned: %v", err)
	}
	found := false
	for _, id := range abandoned {
		if id == stale.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected cart %s in abandoned set %v", stale.ID, abandoned)
	}

	got, err := repo.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != domain.CartAbandoned {
		t.Fatalf("expected ABANDONED, got %s", got.Status)
	}
}
