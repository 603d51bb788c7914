package order

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"craftkart/internal/db"
	"craftkart/internal/domain"
	"craftkart/internal/migrate"
	"github.com/jackc/pgx/v5"
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

func seedCustomer(ctx context.Context, t *testing.T, pool *pgxpool.Pool, email string) string {
	t.Helper()
	var id string
	err := pool.QueryRow(ctx, `
INSERT INTO customers (email, password_hash)
VALUES ($1, 'x')
ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash
RETURNING id::text
`, email).Scan(&id)
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return id
}

func createOrder(ctx context.Context, t *testing.T, pool *pgxpool.Pool, repo Repository, customerID, number string) *domain.Order {
	t.Helper()
	// Order numbers are unique; clear leftovers from earlier runs.
	if _, err := pool.Exec(ctx, `DELETE FROM orders WHERE order_number = $1`, number); err != nil {
		t.Fatalf("cleanup order: %v", err)
	}
	o := &domain.Order{
		OrderNumber:   number,
		CustomerID:    customerID,
		Status:        domain.OrderRaised,
		Currency:      "INR",
		SubtotalCents: 2000,
		TaxCents:      360,
		ShippingCents: 4900,
		TotalCents:    7260,
		PaymentMethod: "card",
		BillingAddress: domain.OrderAddress{
			StreetName: "1 Main St", City: "Mumbai", State: "MH", PostalCode: "400001", Country: "IN",
		},
		ShippingAddress: domain.OrderAddress{
			StreetName: "1 Main St", City: "Mumbai", State: "MH", PostalCode: "400001", Country: "IN",
		},
		Items: []domain.OrderItem{
			{ProductID: "", ProductName: "Snapshot Product", SKU: "SKU-SNAP", Quantity: 2, UnitPriceCents: 1000, TaxRateBP: 1800, LineTotalCents: 2000},
		},
		StatusHistory: []domain.OrderStatusHistory{
			{Status: domain.OrderRaised, Notes: "order placed", SystemGenerated: true},
		},
	}
	// Order items reference the product only by a snapshot; a synthetic id is
	// fine because there is no foreign key.
	var pid string
	if err := pool.QueryRow(ctx, `SELECT gen_random_uuid()::text`).Scan(&pid); err != nil {
		t.Fatalf("generate product id: %v", err)
	}
	o.Items[0].ProductID = pid

	if err := db.InTx(ctx, pool, func(ctx context.Context, tx pgx.Tx) error {
		return repo.CreateTx(ctx, tx, o)
	}); err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func TestOrderRepo_CreateAndLoad(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	repo := NewPostgres(pool, nil)
	custID := seedCustomer(ctx, t, pool, "order-create@test.local")
	created := createOrder(ctx, t, pool, repo, custID, "ORD-9000000001")

	got, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.OrderNumber != "ORD-9000000001" || got.Status != domain.OrderRaised {
		t.Fatalf("unexpected order: %+v", got)
	}
	if len(got.Items) != 1 || got.Items[0].ProductName != "Snapshot Product" {
		t.Fatalf("expected snapshot item, got %+v", got.Items)
	}
	if len(got.StatusHistory) != 1 {
		t.Fatalf("expected initial history row, got %+v", got.StatusHistory)
	}
	if !got.TotalsConsistent() {
		t.Fatalf("totals identity broken: %+v", got)
	}
}

func TestOrderRepo_GuardedTransitions(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	repo := NewPostgres(pool, nil)
	custID := seedCustomer(ctx, t, pool, "order-guard@test.local")
	o := createOrder(ctx, t, pool, repo, custID, "ORD-9000000002")

	// Deliver straight from ORDER_RAISED must refuse.
	err := db.InTx(ctx, pool, func(ctx context.Context, tx pgx.Tx) error {
		return repo.MarkDeliveredTx(ctx, tx, o.ID, time.Now().UTC())
	})
	var transErr *domain.InvalidTransitionError
	if !errors.As(err, &transErr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}

	if err := db.InTx(ctx, pool, func(ctx context.Context, tx pgx.Tx) error {
		return repo.MarkPaidTx(ctx, tx, o.ID, "txn-1")
	}); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	// Paying twice refuses at the SQL guard, regardless of caller checks.
	err = db.InTx(ctx, pool, func(ctx context.Context, tx pgx.Tx) error {
		return repo.MarkPaidTx(ctx, tx, o.ID, "txn-2")
	})
	if !errors.As(err, &transErr) {
		t.Fatalf("expected InvalidTransitionError on double pay, got %v", err)
	}

	if err := db.InTx(ctx, pool, func(ctx context.Context, tx pgx.Tx) error {
		return repo.MarkDeliveredTx(ctx, tx, o.ID, time.Now().UTC())
	}); err != nil {
		t.Fatalf("mark delivered: %v", err)
	}

	// Delivered is terminal: cancel refuses.
	err = db.InTx(ctx, pool, func(ctx context.Context, tx pgx.Tx) error {
		return repo.MarkCancelledTx(ctx, tx, o.ID, "too late", time.Now().UTC())
	})
	if !errors.As(err, &transErr) {
		t.Fatalf("expected InvalidTransitionError cancelling delivered order, got %v", err)
	}

	got, err := repo.GetByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != domain.OrderDelivered || got.PaymentTxnID != "txn-1" {
		t.Fatalf("unexpected final state: %+v", got)
	}
}
