package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/config"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/erp"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/infra"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/lock"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/repository/postgres"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/service"
)

func main() {
	full := flag.Bool("full", false, "Sweep every outlet page by page instead of the incremental sync")
	outlet := flag.Int("outlet", 0, "Restrict the incremental sync to one ERP outlet id")
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
	notifications := service.NewNotificationLogService(repos.NotificationLog, logger)
	syncer := service.NewErpSyncService(
		cfg.ERP,
		repos,
		erp.NewClient(cfg.ERP, logger),
		lock.NewRedisLocker(rdb, cfg.Sync.LeaseTTL, logger),
		service.NewHybridStockService(repos, logger),
		notifications,
		logger,
	)

	var result interface{}
	exitCode := 0
	if *full {
		res, err := syncer.SyncFull(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Full sweep failed: %v\n", err)
			os.Exit(1)
		}
		result = res
		if !res.Success {
			exitCode = 2
		}
	} else {
		res, err := syncer.SyncIncremental(ctx, *outlet)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Incremental sync failed: %v\n", err)
			os.Exit(1)
		}
		result = res
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
