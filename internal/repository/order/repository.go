package order

import (
	"context"
	"time"

	"craftkart/internal/domain"
	"github.com/jackc/pgx/v5"
)

type Repository interface {
	// CreateTx persists an order with its items and first history entry inside
	// the caller's transaction, filling generated ids on the passed order.
	CreateTx(ctx context.Context, tx pgx.Tx, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)

	// Status transitions are guarded updates: they succeed only when the order
	// is currently in the expected status, so a concurrent double transition
	// loses cleanly.
	MarkPaidTx(ctx context.Context, tx pgx.Tx, orderID, transactionID string) error
	MarkDeliveredTx(ctx context.Context, tx pgx.Tx, orderID string, at time.Time) error
	MarkCancelledTx(ctx context.Context, tx pgx.Tx, orderID, reason string, at time.Time) error
	AppendHistoryTx(ctx context.Context, tx pgx.Tx, h domain.OrderStatusHistory) error
}
