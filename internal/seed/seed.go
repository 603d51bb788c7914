package seed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type productSeed struct {
	SKU             string
	Name            string
	Brand           string
	Description     string
	PriceCents      int64
	BaseAmountCents int64
	TaxRateBP       int
	Stock           int
	MinStock        int
	MaxStock        int
}

// Apply inserts demo catalog data for manual testing. It is idempotent via
// ON CONFLICT on the SKU.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	products := []productSeed{
		{
			SKU:         "SKU-OAK-FRAME",
			Name:        "Oak Photo Frame",
			Brand:       "CraftKart",
			Description: "Hand-finished oak frame, 20x25cm",
			PriceCents:  249900,
			TaxRateBP:   1800,
			Stock:       40,
			MinStock:    5,
			MaxStock:    100,
		},
		{
			SKU:         "SKU-BRASS-LAMP",
			Name:        "Brass Table Lamp",
			Brand:       "CraftKart",
			Description: "Spun brass lamp with cloth cord",
			PriceCents:  899900,
			TaxRateBP:   1800,
			Stock:       12,
			MinStock:    2,
			MaxStock:    30,
		},
		{
			// Sold by the metre: price_cents is per metre, base_amount_cents
			// covers the cut.
			SKU:             "SKU-JUTE-ROPE",
			Name:            "Jute Rope (per metre)",
			Brand:           "CraftKart",
			Description:     "12mm braided jute rope, cut to length",
			PriceCents:      4500,
			BaseAmountCents: 2000,
			TaxRateBP:       500,
			Stock:           500,
			MinStock:        50,
			MaxStock:        2000,
		},
	}

	for _, p := range products {
		if err := upsertProduct(ctx, pool, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.SKU, err)
		}
	}
	return nil
}

func upsertProduct(ctx context.Context, pool *pgxpool.Pool, p productSeed) error {
	const q = `
INSERT INTO products (sku, name, brand, description, price_cents, base_amount_cents, currency, tax_rate_bp, is_active, stock_quantity, reserved_quantity, min_stock_level, max_stock_level)
VALUES ($1, $2, $3, $4, $5, $6, 'INR', $7, TRUE, $8, 0, $9, $10)
ON CONFLICT (sku) DO UPDATE SET
    name = EXCLUDED.name,
    brand = EXCLUDED.brand,
    description = EXCLUDED.description,
    price_cents = EXCLUDED.price_cents,
    base_amount_cents = EXCLUDED.base_amount_cents,
    tax_rate_bp = EXCLUDED.tax_rate_bp,
    is_active = TRUE
`
	_, err := pool.Exec(ctx, q,
		p.SKU, p.Name, p.Brand, p.Description, p.PriceCents, p.BaseAmountCents,
		p.TaxRateBP, p.Stock, p.MinStock, p.MaxStock,
	)
	return err
}
