// The sweeper runs one cart lifecycle pass and exits; scheduling belongs to
// cron or the platform's job runner.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"craftkart/internal/config"
	"craftkart/internal/db"
	cartrepo "craftkart/internal/repository/cart"
	productrepo "craftkart/internal/repository/product"
	cartsvc "craftkart/internal/service/cart"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[sweeper] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	svc := cartsvc.New(cartrepo.NewPostgres(pool, logger), productrepo.NewPostgres(pool, logger), logger, cartsvc.Options{
		CartTTL:      cfg.CartExpireAfter,
		AbandonAfter: cfg.CartAbandonAfter,
		PurgeAfter:   cfg.CartPurgeAfter,
	})

	report, err := svc.Sweep(ctx, time.Now().UTC())
	if err != nil {
		logger.Fatalf("sweep: %v", err)
	}
	logger.Printf("sweep done abandoned=%d expired=%d purged=%d", len(report.Abandoned), len(report.Expired), report.Purged)
}
