package customer

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

func (r *postgresRepo) Create(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const q = `
INSERT INTO customers (email, password_hash, first_name, last_name, phone)
VALUES ($1, $2, $3, $4, $5)
RETURNING id::text, created_at
`
	out := c
	if err := tx.QueryRow(ctx, q, c.Email, c.PasswordHash, c.FirstName, c.LastName, c.Phone).Scan(&out.ID, &out.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}

	out.Addresses = nil
	for _, a := range c.Addresses {
		a.CustomerID = out.ID
		saved, err := insertAddress(ctx, tx, a)
		if err != nil {
			return nil, err
		}
		out.Addresses = append(out.Addresses, *saved)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Printf("customer repo: created id=%s email=%s addresses=%d", out.ID, out.Email, len(out.Addresses))
	return &out, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	const q = `
SELECT id::text, email, password_hash, first_name, last_name, phone, created_at
FROM customers
WHERE id = $1
`
	return r.fetch(ctx, q, id)
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	const q = `
SELECT id::text, email, password_hash, first_name, last_name, phone, created_at
FROM customers
WHERE email = $1
`
	return r.fetch(ctx, q, email)
}

func (r *postgresRepo) AddAddress(ctx context.Context, a domain.Address) (*domain.Address, error) {
	return insertAddress(ctx, r.pool, a)
}

func (r *postgresRepo) GetAddress(ctx context.Context, id string) (*domain.Address, error) {
	const q = `
SELECT id::text, customer_id::text, first_name, last_name, street_name, city, state, postal_code, country
FROM addresses
WHERE id = $1
`
	var a domain.Address
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&a.ID, &a.CustomerID, &a.FirstName, &a.LastName,
		&a.StreetName, &a.City, &a.State, &a.PostalCode, &a.Country,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertAddress(ctx context.Context, q rowQuerier, a domain.Address) (*domain.Address, error) {
	const insQ = `
INSERT INTO addresses (customer_id, first_name, last_name, street_name, city, state, postal_code, country)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id::text
`
	out := a
	if err := q.QueryRow(ctx, insQ,
		a.CustomerID, a.FirstName, a.LastName, a.StreetName, a.City, a.State, a.PostalCode, a.Country,
	).Scan(&out.ID); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) fetch(ctx context.Context, q, arg string) (*domain.Customer, error) {
	var c domain.Customer
	err := r.pool.QueryRow(ctx, q, arg).Scan(&c.ID, &c.Email, &c.PasswordHash, &c.FirstName, &c.LastName, &c.Phone, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	const addrQ = `
SELECT id::text, customer_id::text, first_name, last_name, street_name, city, state, postal_code, country
FROM addresses
WHERE customer_id = $1
ORDER BY created_at ASC
`
	rows, err := r.pool.Query(ctx, addrQ, c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a domain.Address
		if err := rows.Scan(&a.ID, &a.CustomerID, &a.FirstName, &a.LastName, &a.StreetName, &a.City, &a.State, &a.PostalCode, &a.Country); err != nil {
			return nil, err
		}
		c.Addresses = append(c.Addresses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &c, nil
}
