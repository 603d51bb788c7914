package cart

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"craftkart/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const cartColumns = `id::text, customer_id::text, session_id, device_fingerprint, status, currency, discount_code, discount_cents, tax_cents, shipping_cents, total_cents, expires_at, last_activity_at, created_at`

const itemColumns = `id::text, cart_id::text, product_id::text, quantity, unit_price_cents, custom_length_mm, calculated_unit_cents, is_gift, gift_message, discount_cents, created_at`

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

func (r *postgresRepo) Create(ctx context.Context, in CreateCartInput) (*domain.Cart, error) {
	const q = `
INSERT INTO carts (customer_id, session_id, device_fingerprint, currency, expires_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + cartColumns + `
`
	cart, err := scanCart(r.pool.QueryRow(ctx, q, in.CustomerID, in.SessionID, in.DeviceFingerprint, in.Currency, in.ExpiresAt))
	if err != nil {
		r.logger.Printf("cart repo: create error=%v", err)
		return nil, err
	}
	return cart, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Cart, error) {
	const q = `
SELECT ` + cartColumns + `
FROM carts
WHERE id = $1
`
	return r.fetchCart(ctx, q, id)
}

func (r *postgresRepo) GetActiveByCustomer(ctx context.Context, customerID string) (*domain.Cart, error) {
	const q = `
SELECT ` + cartColumns + `
FROM carts
WHERE customer_id = $1 AND status = 'ACTIVE'
`
	return r.fetchCart(ctx, q, customerID)
}

func (r *postgresRepo) GetActiveByGuest(ctx context.Context, sessionID, deviceFingerprint string) (*domain.Cart, error) {
	// A guest may present only one half of the identity pair; the missing half
	// is stored as NULL, so plain equality would never match it.
	const q = `
SELECT ` + cartColumns + `
FROM carts
WHERE customer_id IS NULL
  AND status = 'ACTIVE'
  AND session_id IS NOT DISTINCT FROM $1
  AND device_fingerprint IS NOT DISTINCT FROM $2
`
	return r.fetchCart(ctx, q, nilIfEmpty(sessionID), nilIfEmpty(deviceFingerprint))
}

func (r *postgresRepo) GetActiveGuestCarts(ctx context.Context, sessionID, deviceFingerprint string) ([]domain.Cart, error) {
	const q = `
SELECT ` + cartColumns + `
FROM carts
WHERE customer_id IS NULL
  AND status = 'ACTIVE'
  AND (session_id = $1 OR device_fingerprint = $2)
ORDER BY created_at ASC
`
	// NULL params keep their branch from matching anything.
	rows, err := r.pool.Query(ctx, q, nilIfEmpty(sessionID), nilIfEmpty(deviceFingerprint))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var carts []domain.Cart
	for rows.Next() {
		cart, err := scanCart(rows)
		if err != nil {
			return nil, err
		}
		carts = append(carts, *cart)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range carts {
		if err := r.loadItems(ctx, &carts[i]); err != nil {
			return nil, err
		}
	}
	return carts, nil
}

func (r *postgresRepo) AddItem(ctx context.Context, cartID string, in AddItemInput) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// The conflict target matches the cart_items_variant unique index; adding
	// the same product+length variant twice sums quantities.
	const q = `
INSERT INTO cart_items (cart_id, product_id, quantity, unit_price_cents, custom_length_mm, calculated_unit_cents, is_gift, gift_message, discount_cents)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (cart_id, product_id, COALESCE(custom_length_mm, -1)) DO UPDATE SET
    quantity = cart_items.quantity + EXCLUDED.quantity
`
	if _, err := tx.Exec(ctx, q,
		cartID, in.ProductID, in.Quantity, in.UnitPriceCents,
		in.CustomLengthMM, in.CalculatedUnitCents, in.IsGift, in.GiftMessage, in.DiscountCents,
	); err != nil {
		return err
	}
	if err := touch(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) SetItemQuantity(ctx context.Context, cartID, itemID string, quantity int) error {
	if quantity <= 0 {
		return r.RemoveItem(ctx, cartID, itemID)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
UPDATE cart_items
SET quantity = $1
WHERE id = $2 AND cart_id = $3
`, quantity, itemID, cartID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	if err := touch(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) RemoveItem(ctx context.Context, cartID, itemID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
DELETE FROM cart_items
WHERE id = $1 AND cart_id = $2
`, itemID, cartID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	if err := touch(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) ClearItems(ctx context.Context, cartID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return err
	}
	if err := touch(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) SetDiscount(ctx context.Context, cartID, code string, discountCents int64) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE carts
SET discount_code = $1,
    discount_cents = $2,
    last_activity_at = now()
WHERE id = $3
`, code, discountCents, cartID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) RefreshItemPrice(ctx context.Context, itemID string, unitPriceCents int64, calculatedUnitCents *int64) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE cart_items
SET unit_price_cents = $1,
    calculated_unit_cents = $2
WHERE id = $3
`, unitPriceCents, calculatedUnitCents, itemID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) UpdateTotals(ctx context.Context, cartID string, discountCents, taxCents, shippingCents, totalCents int64) error {
	_, err := r.pool.Exec(ctx, `
UPDATE carts
SET discount_cents = $1,
    tax_cents = $2,
    shipping_cents = $3,
    total_cents = $4
WHERE id = $5
`, discountCents, taxCents, shippingCents, totalCents, cartID)
	return err
}

func (r *postgresRepo) SetStatus(ctx context.Context, cartID string, status domain.CartStatus) error {
	return setStatus(ctx, r.pool, cartID, status)
}

func (r *postgresRepo) SetStatusTx(ctx context.Context, tx pgx.Tx, cartID string, status domain.CartStatus) error {
	return setStatus(ctx, tx, cartID, status)
}

func (r *postgresRepo) MarkAbandoned(ctx context.Context, inactiveSince time.Time) ([]string, error) {
	return r.markStale(ctx, `
UPDATE carts
SET status = 'ABANDONED'
WHERE status = 'ACTIVE' AND last_activity_at < $1
RETURNING id::text
`, inactiveSince)
}

func (r *postgresRepo) MarkExpired(ctx context.Context, now time.Time) ([]string, error) {
	return r.markStale(ctx, `
UPDATE carts
SET status = 'EXPIRED'
WHERE status IN ('ACTIVE', 'ABANDONED') AND expires_at < $1
RETURNING id::text
`, now)
}

func (r *postgresRepo) PurgeTerminal(ctx context.Context, before time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `
DELETE FROM carts
WHERE status IN ('CHECKED_OUT', 'ABANDONED', 'EXPIRED') AND last_activity_at < $1
`, before)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *postgresRepo) markStale(ctx context.Context, q string, cutoff time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, q, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// executor is satisfied by both *pgxpool.Pool and pgx.Tx.
type executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func setStatus(ctx context.Context, ex executor, cartID string, status domain.CartStatus) error {
	cmd, err := ex.Exec(ctx, `
UPDATE carts
SET status = $1,
    last_activity_at = now()
WHERE id = $2
`, status, cartID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) fetchCart(ctx context.Context, q string, args ...any) (*domain.Cart, error) {
	cart, err := scanCart(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadItems(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (r *postgresRepo) loadItems(ctx context.Context, cart *domain.Cart) error {
	// Insertion order matters: checkout reserves stock in this order, so a
	// partial-stock failure is deterministic.
	const q = `
SELECT ` + itemColumns + `
FROM cart_items
WHERE cart_id = $1
ORDER BY created_at ASC, id ASC
`
	rows, err := r.pool.Query(ctx, q, cart.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.UnitPriceCents,
			&item.CustomLengthMM, &item.CalculatedUnitCents, &item.IsGift, &item.GiftMessage,
			&item.DiscountCents, &item.CreatedAt,
		); err != nil {
			return err
		}
		cart.Items = append(cart.Items, item)
	}
	return rows.Err()
}

func scanCart(row pgx.Row) (*domain.Cart, error) {
	var cart domain.Cart
	err := row.Scan(
		&cart.ID, &cart.CustomerID, &cart.SessionID, &cart.DeviceFingerprint,
		&cart.Status, &cart.Currency, &cart.DiscountCode, &cart.DiscountCents,
		&cart.TaxCents, &cart.ShippingCents, &cart.TotalCents,
		&cart.ExpiresAt, &cart.LastActivityAt, &cart.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func touch(ctx context.Context, tx pgx.Tx, cartID string) error {
	_, err := tx.Exec(ctx, `UPDATE carts SET last_activity_at = now() WHERE id = $1`, cartID)
	return err
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
