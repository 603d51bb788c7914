package order

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"craftkart/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderColumns = `id::text, order_number, customer_id::text, status, currency, subtotal_cents, discount_cents, tax_cents, shipping_cents, total_cents, payment_method, payment_txn_id, billing_address, shipping_address, delivered_at, cancelled_at, cancel_reason, created_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) CreateTx(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	const q = `
INSERT INTO orders (order_number, customer_id, status, currency, subtotal_cents, discount_cents, tax_cents, shipping_cents, total_cents, payment_method, billing_address, shipping_address)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id::text, created_at
`
	if err := tx.QueryRow(ctx, q,
		o.OrderNumber, o.CustomerID, o.Status, o.Currency,
		o.SubtotalCents, o.DiscountCents, o.TaxCents, o.ShippingCents, o.TotalCents,
		o.PaymentMethod, o.BillingAddress, o.ShippingAddress,
	).Scan(&o.ID, &o.CreatedAt); err != nil {
		return err
	}

	const itemQ = `
INSERT INTO order_items (order_id, product_id, product_name, product_brand, sku, quantity, unit_price_cents, tax_rate_bp, custom_length_mm, is_gift, gift_message, line_total_cents)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id::text
`
	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		if err := tx.QueryRow(ctx, itemQ,
			o.ID, it.ProductID, it.ProductName, it.ProductBrand, it.SKU,
			it.Quantity, it.UnitPriceCents, it.TaxRateBP, it.CustomLengthMM,
			it.IsGift, it.GiftMessage, it.LineTotalCents,
		).Scan(&it.ID); err != nil {
			return err
		}
	}

	for i := range o.StatusHistory {
		o.StatusHistory[i].OrderID = o.ID
		if err := r.AppendHistoryTx(ctx, tx, o.StatusHistory[i]); err != nil {
			return err
		}
	}

	r.logger.Printf("order repo: created order=%s number=%s items=%d total=%d", o.ID, o.OrderNumber, len(o.Items), o.TotalCents)
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	const q = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`
	o, err := scanOrder(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadItems(ctx, o); err != nil {
		return nil, err
	}
	if err := r.loadHistory(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	const q = `
SELECT ` + orderColumns + `
FROM orders
WHERE customer_id = $1
ORDER BY created_at DESC
`
	rows, err := r.pool.Query(ctx, q, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (r *postgresRepo) MarkPaidTx(ctx context.Context, tx pgx.Tx, orderID, transactionID string) error {
	return guardedUpdate(ctx, tx, orderID, domain.OrderRaised, domain.OrderPaid, `
UPDATE orders
SET status = $1,
    payment_txn_id = $2
WHERE id = $3 AND status = $4
`, domain.OrderPaid, transactionID, orderID, domain.OrderRaised)
}

func (r *postgresRepo) MarkDeliveredTx(ctx context.Context, tx pgx.Tx, orderID string, at time.Time) error {
	return guardedUpdate(ctx, tx, orderID, domain.OrderPaid, domain.OrderDelivered, `
UPDATE orders
SET status = $1,
    delivered_at = $2
WHERE id = $3 AND status = $4
`, domain.OrderDelivered, at, orderID, domain.OrderPaid)
}

func (r *postgresRepo) MarkCancelledTx(ctx context.Context, tx pgx.Tx, orderID, reason string, at time.Time) error {
	cmd, err := tx.Exec(ctx, `
UPDATE orders
SET status = $1,
    cancel_reason = $2,
    cancelled_at = $3
WHERE id = $4 AND status IN ($5, $6)
`, domain.OrderCancelled, reason, at, orderID, domain.OrderRaised, domain.OrderPaid)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return &domain.InvalidTransitionError{OrderID: orderID, To: domain.OrderCancelled}
	}
	return nil
}

func (r *postgresRepo) AppendHistoryTx(ctx context.Context, tx pgx.Tx, h domain.OrderStatusHistory) error {
	const q = `
INSERT INTO order_status_history (order_id, status, previous_status, notes, changed_by, system_generated)
VALUES ($1, $2, $3, $4, $5, $6)
`
	_, err := tx.Exec(ctx, q, h.OrderID, h.Status, h.PreviousStatus, h.Notes, h.ChangedBy, h.SystemGenerated)
	return err
}

func guardedUpdate(ctx context.Context, tx pgx.Tx, orderID string, from, to domain.OrderStatus, q string, args ...any) error {
	cmd, err := tx.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return &domain.InvalidTransitionError{OrderID: orderID, From: from, To: to}
	}
	return nil
}

func (r *postgresRepo) loadItems(ctx context.Context, o *domain.Order) error {
	const q = `
SELECT id::text, order_id::text, product_id::text, product_name, product_brand, sku, quantity, unit_price_cents, tax_rate_bp, custom_length_mm, is_gift, gift_message, line_total_cents
FROM order_items
WHERE order_id = $1
ORDER BY created_at ASC, id ASC
`
	rows, err := r.pool.Query(ctx, q, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.ProductBrand, &it.SKU,
			&it.Quantity, &it.UnitPriceCents, &it.TaxRateBP, &it.CustomLengthMM,
			&it.IsGift, &it.GiftMessage, &it.LineTotalCents,
		); err != nil {
			return err
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

func (r *postgresRepo) loadHistory(ctx context.Context, o *domain.Order) error {
	const q = `
SELECT id::text, order_id::text, status, previous_status, notes, changed_by, system_generated, created_at
FROM order_status_history
WHERE order_id = $1
ORDER BY created_at ASC, id ASC
`
	rows, err := r.pool.Query(ctx, q, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var h domain.OrderStatusHistory
		if err := rows.Scan(&h.ID, &h.OrderID, &h.Status, &h.PreviousStatus, &h.Notes, &h.ChangedBy, &h.SystemGenerated, &h.CreatedAt); err != nil {
			return err
		}
		o.StatusHistory = append(o.StatusHistory, h)
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.Status, &o.Currency,
		&o.SubtotalCents, &o.DiscountCents, &o.TaxCents, &o.ShippingCents, &o.TotalCents,
		&o.PaymentMethod, &o.PaymentTxnID, &o.BillingAddress, &o.ShippingAddress,
		&o.DeliveredAt, &o.CancelledAt, &o.CancelReason, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
