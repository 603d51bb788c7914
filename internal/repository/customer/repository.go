package customer

import (
	"context"

	"craftkart/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, c domain.Customer) (*domain.Customer, error)
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	AddAddress(ctx context.Context, a domain.Address) (*domain.Address, error)
	GetAddress(ctx context.Context, id string) (*domain.Address, error)
}
