package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/api"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/config"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/delivery"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/erp"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/infra"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/lock"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/notify"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/repository/postgres"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/scheduler"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/service"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/shopify"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.Environment == "production" {
		logger, _ = zap.NewProduction()
	} else {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	logger.Info("Starting order split server",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
	)

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	repos := postgres.NewRepositories(db, logger)

	rdb, err := infra.NewRedis(rootCtx, cfg.Redis.URL)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	clients := service.Clients{
		ERP:        erp.NewClient(cfg.ERP, logger),
		Storefront: shopify.NewClient(cfg.Shopify, logger),
		Locker:     lock.NewRedisLocker(rdb, cfg.Sync.LeaseTTL, logger),
		Queue:      worker.NewDispatcher(rdb, logger),
	}
	if cfg.Delivery.RiderBaseURL != "" {
		clients.Rider = delivery.NewRiderClient(cfg.Delivery.RiderBaseURL, cfg.Delivery.RiderAccessToken, logger)
	} else {
		logger.Warn("Rider API not configured; deliveries will not be dispatched")
	}
	if cfg.Delivery.GeocodeBaseURL != "" {
		clients.Geocoder = delivery.NewGeocoder(cfg.Delivery.GeocodeBaseURL, cfg.Delivery.GeocodeAPIKey, logger)
	}

	svc := service.NewServices(cfg, repos, clients, logger)

	// Customer notification workers
	var emailSender, smsSender worker.Sender
	if cfg.Email.SendGridAPIKey != "" {
		emailSender = notify.NewEmailSender(cfg.Email, logger)
	}
	if cfg.SMS.BaseURL != "" {
		smsSender = notify.NewSMSSender(cfg.SMS, logger)
	}
	waitWorkers := worker.NewPool(rdb, emailSender, smsSender, logger).Start(rootCtx, cfg.WorkerPoolSize)

	// Scheduled syncs
	var sched *scheduler.Scheduler
	if cfg.Sync.Enabled {
		sched, err = scheduler.New(cfg.Sync, svc.ErpSync, svc.Storefront, logger)
		if err != nil {
			logger.Fatal("Failed to configure scheduler", zap.Error(err))
		}
		sched.Start()
		logger.Info("Sync scheduler started", zap.Int("jobs", len(sched.Entries())))
	} else {
		logger.Warn("Scheduled syncs disabled (SYNC_ENABLED=false)")
	}

	router := api.NewRouter(cfg, repos, svc, logger)

	// Sync endpoints run synchronously, so the write timeout follows the sync timeout
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Sync.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started successfully", zap.String("address", srv.Addr))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if sched != nil {
		select {
		case <-sched.Stop().Done():
		case <-ctx.Done():
			logger.Warn("Scheduled jobs still running at shutdown")
		}
	}
	stop()
	waitWorkers()

	logger.Info("Server exited")
}
