package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/config"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/infra"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/lock"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/repository/postgres"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/service"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/shopify"
)

func main() {
	recoverOnly := flag.Bool("recover", false, "Only mark stale running syncs as failed")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Sync.Timeout)
	defer cancel()

	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := infra.NewRedis(ctx, cfg.Redis.URL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to redis: %v\n", err)
		os.Exit(1)
	}
	defer rdb.Close()

	repos := postgres.NewRepositories(db, logger)
	syncer := service.NewStorefrontSyncService(
		cfg.Sync,
		repos,
		shopify.NewClient(cfg.Shopify, logger),
		lock.NewRedisLocker(rdb, cfg.Sync.LeaseTTL, logger),
		service.NewNotificationLogService(repos.NotificationLog, logger),
		logger,
	)

	if *recoverOnly {
		n, err := syncer.RecoverStale(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Stale recovery failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Recovered %d stale sync run(s)\n", n)
		return
	}

	status, err := syncer.Run(ctx)
	if status != nil {
		fmt.Printf("Sync %s: %s\n", status.ID, status.OverallStatus)
		fmt.Printf("  price:     %s (processed %d, skipped %d)\n",
			status.SyncTypes.PriceSync.Status, status.SyncTypes.PriceSync.Processed, status.SyncTypes.PriceSync.Skipped)
		fmt.Printf("  inventory: %s (processed %d, skipped %d)\n",
			status.SyncTypes.InventorySync.Status, status.SyncTypes.InventorySync.Processed, status.SyncTypes.InventorySync.Skipped)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Storefront sync failed: %v\n", err)
		os.Exit(1)
	}
}
