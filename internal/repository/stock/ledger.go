// Package stock is the ledger of per-product inventory counters. Every
// mutating operation locks the product row so concurrent checkouts cannot
// both reserve the last unit.
package stock

import (
	"context"
	"errors"
	"io"
	"log"

	"craftkart/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so every operation
// can run either standalone or inside a caller's transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Ledger struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func New(pool *pgxpool.Pool, logger *log.Logger) *Ledger {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Ledger{pool: pool, logger: logger}
}

// CanReserve is a read-only availability check. It takes no lock; callers
// needing a guarantee must go through Reserve.
func (l *Ledger) CanReserve(ctx context.Context, productID string, qty int) (bool, error) {
	var available int
	err := l.pool.QueryRow(ctx, `
SELECT stock_quantity - reserved_quantity
FROM products
WHERE id = $1
`, productID).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domain.ErrNotFound
		}
		return false, err
	}
	return available >= qty, nil
}

// Reserve places a soft hold on qty units in its own transaction.
func (l *Ledger) Reserve(ctx context.Context, productID string, qty int) error {
	return l.inOwnTx(ctx, func(tx pgx.Tx) error {
		return l.ReserveTx(ctx, tx, productID, qty)
	})
}

// ReserveTx places a soft hold on qty units inside the caller's transaction,
// so a failed multi-item checkout rolls back all of its reservations at once.
func (l *Ledger) ReserveTx(ctx context.Context, tx pgx.Tx, productID string, qty int) error {
	return l.reserve(ctx, tx, productID, qty)
}

func (l *Ledger) reserve(ctx context.Context, q querier, productID string, qty int) error {
	stockQty, reserved, err := lockRow(ctx, q, productID)
	if err != nil {
		return err
	}
	if available := stockQty - reserved; available < qty {
		return &domain.InsufficientStockError{ProductID: productID, Requested: qty, Available: available}
	}
	_, err = q.Exec(ctx, `
UPDATE products
SET reserved_quantity = reserved_quantity + $2
WHERE id = $1
`, productID, qty)
	return err
}

// Release returns qty reserved units to availability. It never fails on an
// accounting mismatch: releasing more than is reserved clamps to zero and
// logs the inconsistency, so a cancellation is never blocked.
func (l *Ledger) Release(ctx context.Context, productID string, qty int) error {
	return l.inOwnTx(ctx, func(tx pgx.Tx) error {
		return l.ReleaseTx(ctx, tx, productID, qty)
	})
}

// ReleaseTx is Release inside the caller's transaction.
func (l *Ledger) ReleaseTx(ctx context.Context, tx pgx.Tx, productID string, qty int) error {
	return l.release(ctx, tx, productID, qty)
}

func (l *Ledger) release(ctx context.Context, q querier, productID string, qty int) error {
	_, reserved, err := lockRow(ctx, q, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			l.logger.Printf("stock ledger: release product=%s qty=%d product missing, skipping", productID, qty)
			return nil
		}
		return err
	}
	if qty > reserved {
		l.logger.Printf("stock ledger: release inconsistency product=%s qty=%d reserved=%d, clamping to zero", productID, qty, reserved)
	}
	_, err = q.Exec(ctx, `
UPDATE products
SET reserved_quantity = GREATEST(reserved_quantity - $2, 0)
WHERE id = $1
`, productID, qty)
	return err
}

// Fulfill converts a reservation into a permanent stock decrement.
func (l *Ledger) Fulfill(ctx context.Context, productID string, qty int) error {
	return l.inOwnTx(ctx, func(tx pgx.Tx) error {
		return l.FulfillTx(ctx, tx, productID, qty)
	})
}

// FulfillTx is Fulfill inside the caller's transaction.
func (l *Ledger) FulfillTx(ctx context.Context, tx pgx.Tx, productID string, qty int) error {
	_, reserved, err := lockRow(ctx, tx, productID)
	if err != nil {
		return err
	}
	if qty > reserved {
		return domain.ErrInvalidState
	}
	_, err = tx.Exec(ctx, `
UPDATE products
SET stock_quantity = stock_quantity - $2,
    reserved_quantity = reserved_quantity - $2
WHERE id = $1
`, productID, qty)
	return err
}

func (l *Ledger) inOwnTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func lockRow(ctx context.Context, q querier, productID string) (stockQty, reserved int, err error) {
	err = q.QueryRow(ctx, `
SELECT stock_quantity, reserved_quantity
FROM products
WHERE id = $1
FOR UPDATE
`, productID).Scan(&stockQty, &reserved)
	if errors.Is(err, pgx.ErrNoRows) {
		err = domain.ErrNotFound
	}
	return stockQty, reserved, err
}
