package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"craftkart/internal/config"
	"craftkart/internal/db"
	"craftkart/internal/httpserver"
	"craftkart/internal/payment"
	cartrepo "craftkart/internal/repository/cart"
	customerrepo "craftkart/internal/repository/customer"
	orderrepo "craftkart/internal/repository/order"
	productrepo "craftkart/internal/repository/product"
	stockrepo "craftkart/internal/repository/stock"
	tokenrepo "craftkart/internal/repository/token"
	cartsvc "craftkart/internal/service/cart"
	checkoutsvc "craftkart/internal/service/checkout"
	customersvc "craftkart/internal/service/customer"
	ordersvc "craftkart/internal/service/order"
	"craftkart/internal/service/session"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	txRunner := db.NewTxRunner(dbpool)

	productRepo := productrepo.NewPostgres(dbpool, logger)
	stockLedger := stockrepo.New(dbpool, logger)
	cartRepo := cartrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	customerRepo := customerrepo.NewPostgres(dbpool, logger)
	tokenRepo := tokenrepo.NewPostgres(dbpool)

	cartService := cartsvc.New(cartRepo, productRepo, logger, cartsvc.Options{
		CartTTL:      cfg.CartExpireAfter,
		AbandonAfter: cfg.CartAbandonAfter,
		PurgeAfter:   cfg.CartPurgeAfter,
	})
	checkoutService := checkoutsvc.New(cartRepo, cartService, customerRepo, productRepo, stockLedger, orderRepo, txRunner, logger)
	orderService := ordersvc.New(orderRepo, stockLedger, txRunner, logger)
	customerService := customersvc.New(customerRepo, tokenRepo, cartService, logger)
	sessions := session.NewManager(24 * time.Hour)
	gateway := payment.NewLocalGateway(cfg.PaymentSecret)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		CartSvc:     cartService,
		CheckoutSvc: checkoutService,
		OrderSvc:    orderService,
		CustomerSvc: customerService,
		Sessions:    sessions,
		Gateway:     gateway,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
}
