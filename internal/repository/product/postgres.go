package product

import (
	"context"
	"errors"
	"io"
	"log"

	"craftkart/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const productColumns = `id::text, sku, name, brand, description, price_cents, base_amount_cents, currency, tax_rate_bp, is_active, stock_quantity, reserved_quantity, min_stock_level, max_stock_level, created_at`

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

func (r *postgresRepo) List(ctx context.Context) ([]domain.Product, error) {
	const q = `
SELECT ` + productColumns + `
FROM products
WHERE is_active
ORDER BY created_at DESC
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		r.logger.Printf("product repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("product repo: list rows error=%v", err)
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	const q = `
SELECT ` + productColumns + `
FROM products
WHERE id = $1
`
	return r.getOne(ctx, q, id)
}

func (r *postgresRepo) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	const q = `
SELECT ` + productColumns + `
FROM products
WHERE sku = $1
`
	return r.getOne(ctx, q, sku)
}

func (r *postgresRepo) getOne(ctx context.Context, q, arg string) (*domain.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, q, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("product repo: get arg=%s error=%v", arg, err)
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (sku, name, brand, description, price_cents, base_amount_cents, currency, tax_rate_bp, is_active, stock_quantity, reserved_quantity, min_stock_level, max_stock_level)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11, $12)
ON CONFLICT (sku) DO UPDATE SET
    name = EXCLUDED.name,
    brand = EXCLUDED.brand,
    description = EXCLUDED.description,
    price_cents = EXCLUDED.price_cents,
    base_amount_cents = EXCLUDED.base_amount_cents,
    currency = EXCLUDED.currency,
    tax_rate_bp = EXCLUDED.tax_rate_bp,
    is_active = EXCLUDED.is_active,
    stock_quantity = EXCLUDED.stock_quantity,
    min_stock_level = EXCLUDED.min_stock_level,
    max_stock_level = EXCLUDED.max_stock_level
RETURNING ` + productColumns + `
`
	res, err := scanProductRow(r.pool.QueryRow(ctx, q,
		p.SKU, p.Name, p.Brand, p.Description, p.PriceCents, p.BaseAmountCents,
		p.Currency, p.TaxRateBP, p.IsActive, p.StockQuantity, p.MinStockLevel, p.MaxStockLevel,
	))
	if err != nil {
		r.logger.Printf("product repo: upsert sku=%s error=%v", p.SKU, err)
		return nil, err
	}
	r.logger.Printf("product repo: upserted sku=%s id=%s", res.SKU, res.ID)
	return res, nil
}

func (r *postgresRepo) AdjustPrice(ctx context.Context, id string, priceCents int64) error {
	const q = `
UPDATE products
SET price_cents = $2
WHERE id = $1
`
	tag, err := r.pool.Exec(ctx, q, id, priceCents)
	if err != nil {
		r.logger.Printf("product repo: adjust price id=%s error=%v", id, err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID, &p.SKU, &p.Name, &p.Brand, &p.Description,
		&p.PriceCents, &p.BaseAmountCents, &p.Currency, &p.TaxRateBP, &p.IsActive,
		&p.StockQuantity, &p.ReservedQty, &p.MinStockLevel, &p.MaxStockLevel, &p.CreatedAt,
	)
	return p, err
}

func scanProductRow(row pgx.Row) (*domain.Product, error) {
	p, err := scanProduct(row)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
