package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/config"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/repository/postgres"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/find-order/main.go <order_number>")
		fmt.Println("Example: go run cmd/find-order/main.go \"#1001\"")
		os.Exit(1)
	}
	orderNumber := strings.TrimPrefix(strings.TrimSpace(os.Args[1]), "#")

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	repos := postgres.NewRepositories(db, logger)
	ctx := context.Background()

	fmt.Printf("🔍 Searching for order #%s\n\n", orderNumber)

	order, err := repos.Order.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		fmt.Printf("❌ Order not found: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Found order!\n\n")
	fmt.Printf("Order Reference (UUID): %s\n", order.ID)
	fmt.Printf("Shopify Order ID: %d\n", order.ShopifyOrderID)
	fmt.Printf("Customer: %s <%s> %s\n", order.CustomerName, order.CustomerEmail, order.CustomerPhone)
	fmt.Printf("Total: %s (%s)\n", order.TotalPrice.StringFixed(2), order.FinancialStatus)
	if order.StoreCode != "" {
		fmt.Printf("Selected store: %s\n", order.StoreCode)
	}

	splits, err := repos.OrderSplit.ListByOrder(ctx, order.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list splits: %v\n", err)
		os.Exit(1)
	}
	if len(splits) == 0 {
		fmt.Printf("\n⚠️  Order has no splits yet\n")
		return
	}

	now := time.Now()
	for _, s := range splits {
		fmt.Printf("\n── Split %s (%s, outlet %d) ──\n", s.SplitID, s.StoreName, s.ErpStoreID)
		fmt.Printf("Status: %s", s.OrderStatus.Label())
		if s.OnHoldStatus != nil {
			fmt.Printf(" [%s]", *s.OnHoldStatus)
		}
		if s.ReAssignStatus {
			fmt.Printf(" (reassigned)")
		}
		fmt.Println()
		for _, li := range s.LineItems {
			fmt.Printf("  - %s x%d @ %s\n", li.ItemReferenceCode, li.Quantity, li.Price.StringFixed(2))
		}
		for _, group := range domain.BuildTimeline(s.TimeStamp, now) {
			fmt.Printf("  %s\n", group.Day)
			for _, entry := range group.Entries {
				fmt.Printf("    %s  %s\n", entry.At.Format("15:04"), entry.Label)
			}
		}
	}

	fmt.Printf("\nTo inspect via API:\n")
	fmt.Printf("curl -H \"Authorization: Bearer YOUR_API_KEY\" http://localhost:8080/v1/orders/%s/splits\n", order.ID)
}
