// Package order drives the order status workflow:
// ORDER_RAISED -> PAYMENT_DONE -> DELIVERED, with CANCELLED reachable from the
// two non-terminal states. Transitions are deliberately not idempotent: a
// repeated deliver or payment fails instead of silently succeeding, so
// workflow bugs surface immediately.
package order

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"craftkart/internal/domain"
	"github.com/jackc/pgx/v5"
)

type orderRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	MarkPaidTx(ctx context.Context, tx pgx.Tx, orderID, transactionID string) error
	MarkDeliveredTx(ctx context.Context, tx pgx.Tx, orderID string, at time.Time) error
	MarkCancelledTx(ctx context.Context, tx pgx.Tx, orderID, reason string, at time.Time) error
	AppendHistoryTx(ctx context.Context, tx pgx.Tx, h domain.OrderStatusHistory) error
}

type stockLedger interface {
	ReleaseTx(ctx context.Context, tx pgx.Tx, productID string, qty int) error
	FulfillTx(ctx context.Context, tx pgx.Tx, productID string, qty int) error
}

type txRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

type Service struct {
	repo   orderRepo
	stock  stockLedger
	tx     txRunner
	logger *log.Logger
	now    func() time.Time
}

func New(repo orderRepo, stock stockLedger, tx txRunner, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, stock: stock, tx: tx, logger: logger, now: time.Now}
}

// Get returns an order owned by the customer; orders belonging to anyone else
// are reported as not found.
func (s *Service) Get(ctx context.Context, customerID, orderID string) (*domain.Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, customerID string) ([]domain.Order, error) {
	return s.repo.ListByCustomer(ctx, customerID)
}

// ProcessPayment moves ORDER_RAISED to PAYMENT_DONE and records the gateway
// transaction id.
func (s *Service) ProcessPayment(ctx context.Context, orderID, transactionID, changedBy string) (*domain.Order, error) {
	if strings.TrimSpace(transactionID) == "" {
		return nil, fmt.Errorf("%w: transactionId required", domain.ErrBadInput)
	}
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != domain.OrderRaised {
		return nil, &domain.InvalidTransitionError{OrderID: orderID, From: o.Status, To: domain.OrderPaid}
	}

	err = s.tx.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.repo.MarkPaidTx(ctx, tx, orderID, transactionID); err != nil {
			return err
		}
		return s.repo.AppendHistoryTx(ctx, tx, domain.OrderStatusHistory{
			OrderID:        orderID,
			Status:         domain.OrderPaid,
			PreviousStatus: domain.OrderRaised,
			Notes:          "payment captured, transaction " + transactionID,
			ChangedBy:      changedBy,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Printf("order service: order=%s paid txn=%s", orderID, transactionID)
	return s.repo.GetByID(ctx, orderID)
}

// Deliver moves PAYMENT_DONE to DELIVERED and stamps the delivery time.
func (s *Service) Deliver(ctx context.Context, orderID, changedBy string) (*domain.Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != domain.OrderPaid {
		return nil, &domain.InvalidTransitionError{OrderID: orderID, From: o.Status, To: domain.OrderDelivered}
	}

	// Delivery consumes the reservation: on-hand stock drops with it.
	err = s.tx.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		for _, item := range o.Items {
			if err := s.stock.FulfillTx(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		if err := s.repo.MarkDeliveredTx(ctx, tx, orderID, s.now().UTC()); err != nil {
			return err
		}
		return s.repo.AppendHistoryTx(ctx, tx, domain.OrderStatusHistory{
			OrderID:         orderID,
			Status:          domain.OrderDelivered,
			PreviousStatus:  domain.OrderPaid,
			Notes:           "order delivered",
			ChangedBy:       changedBy,
			SystemGenerated: changedBy == "",
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Printf("order service: order=%s delivered", orderID)
	return s.repo.GetByID(ctx, orderID)
}

// Cancel moves a non-terminal order to CANCELLED, releasing every item's
// reservation in the same transaction as the status change.
func (s *Service) Cancel(ctx context.Context, orderID, reason, changedBy string) (*domain.Order, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: cancellation reason required", domain.ErrBadInput)
	}
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.Cancellable() {
		return nil, &domain.InvalidTransitionError{OrderID: orderID, From: o.Status, To: domain.OrderCancelled}
	}

	err = s.tx.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		for _, item := range o.Items {
			if err := s.stock.ReleaseTx(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		if err := s.repo.MarkCancelledTx(ctx, tx, orderID, reason, s.now().UTC()); err != nil {
			return err
		}
		return s.repo.AppendHistoryTx(ctx, tx, domain.OrderStatusHistory{
			OrderID:        orderID,
			Status:         domain.OrderCancelled,
			PreviousStatus: o.Status,
			Notes:          reason,
			ChangedBy:      changedBy,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Printf("order service: order=%s cancelled reason=%q", orderID, reason)
	return s.repo.GetByID(ctx, orderID)
}
