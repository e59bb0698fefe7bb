package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/repository"
)

// ShopifyOrderPayload is the subset of the orders/create and orders/updated
// webhook body the mirror keeps.
type ShopifyOrderPayload struct {
	ID              int64           `json:"id" validate:"required"`
	Name            string          `json:"name"`
	OrderNumber     int64           `json:"order_number"`
	Email           string          `json:"email"`
	Phone           string          `json:"phone"`
	FinancialStatus string          `json:"financial_status"`
	SubtotalPrice   decimal.Decimal `json:"subtotal_price"`
	TotalDiscounts  decimal.Decimal `json:"total_discounts"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	ShippingLines   []struct {
		Price decimal.Decimal `json:"price"`
	} `json:"shipping_lines"`
	Customer *struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
	} `json:"customer"`
	ShippingAddress *struct {
		FirstName string   `json:"first_name"`
		LastName  string   `json:"last_name"`
		Address1  string   `json:"address1"`
		Address2  string   `json:"address2"`
		City      string   `json:"city"`
		Province  string   `json:"province"`
		Zip       string   `json:"zip"`
		Country   string   `json:"country"`
		Phone     string   `json:"phone"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"shipping_address"`
	LineItems []struct {
		ID            int64           `json:"id"`
		ProductID     int64           `json:"product_id"`
		VariantID     int64           `json:"variant_id"`
		SKU           string          `json:"sku"`
		Title         string          `json:"title"`
		Quantity      int             `json:"quantity"`
		Price         decimal.Decimal `json:"price"`
		TotalDiscount decimal.Decimal `json:"total_discount"`
	} `json:"line_items" validate:"min=1"`
	NoteAttributes []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"note_attributes"`
}

// IngestResult reports what an order webhook changed.
type IngestResult struct {
	Order   *domain.Order
	Splits  []*domain.OrderSplit
	Created bool
}

// OrderIngestService mirrors storefront orders and splits new ones.
type OrderIngestService struct {
	repos         *repository.Repositories
	engine        *SplitEngine
	notifications *NotificationLogService
	logger        *zap.Logger
}

// NewOrderIngestService creates a new order ingestion service
func NewOrderIngestService(repos *repository.Repositories, engine *SplitEngine, notifications *NotificationLogService, logger *zap.Logger) *OrderIngestService {
	return &OrderIngestService{
		repos:         repos,
		engine:        engine,
		notifications: notifications,
		logger:        logger,
	}
}

// Ingest upserts the order mirror and makes sure the order has its splits.
// A split failure is returned alongside the mirrored order.
func (s *OrderIngestService) Ingest(ctx context.Context, p *ShopifyOrderPayload) (*IngestResult, error) {
	if err := validateRequest(p); err != nil {
		return nil, err
	}
	order := s.toOrder(ctx, p)

	created, err := s.repos.Order.Upsert(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("upsert order %s: %w", order.OrderNumber, err)
	}
	result := &IngestResult{Order: order, Created: created}

	splits, err := s.engine.SplitOrder(ctx, order)
	if err != nil {
		s.logger.Error("Order ingest: split failed",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err),
		)
		s.notifications.Error(ctx, fmt.Sprintf("Order #%s could not be split", order.OrderNumber), err)
		return result, err
	}
	result.Splits = splits

	if created {
		s.logger.Info("Order ingested",
			zap.String("order_number", order.OrderNumber),
			zap.Int("splits", len(splits)),
		)
	}
	return result, nil
}

func (s *OrderIngestService) toOrder(ctx context.Context, p *ShopifyOrderPayload) *domain.Order {
	number := strings.TrimPrefix(strings.TrimSpace(p.Name), "#")
	if number == "" {
		number = fmt.Sprint(p.OrderNumber)
	}

	order := &domain.Order{
		ShopifyOrderID:  p.ID,
		OrderNumber:     number,
		CustomerEmail:   p.Email,
		CustomerPhone:   p.Phone,
		FinancialStatus: p.FinancialStatus,
		SubtotalPrice:   p.SubtotalPrice,
		TotalDiscounts:  p.TotalDiscounts,
		TotalPrice:      p.TotalPrice,
		ShippingPrice:   decimal.Zero,
		NoteAttributes:  make(map[string]string, len(p.NoteAttributes)),
	}
	for _, sl := range p.ShippingLines {
		order.ShippingPrice = order.ShippingPrice.Add(sl.Price)
	}
	if c := p.Customer; c != nil {
		order.CustomerName = strings.TrimSpace(c.FirstName + " " + c.LastName)
		order.CustomerEmail = firstNonEmpty(order.CustomerEmail, c.Email)
		order.CustomerPhone = firstNonEmpty(order.CustomerPhone, c.Phone)
	}
	if a := p.ShippingAddress; a != nil {
		order.ShippingAddress = domain.Address{
			Name:      strings.TrimSpace(a.FirstName + " " + a.LastName),
			Address1:  a.Address1,
			Address2:  a.Address2,
			City:      a.City,
			Province:  a.Province,
			Zip:       a.Zip,
			Country:   a.Country,
			Phone:     a.Phone,
			Latitude:  a.Latitude,
			Longitude: a.Longitude,
		}
		order.CustomerName = firstNonEmpty(order.CustomerName, order.ShippingAddress.Name)
		order.CustomerPhone = firstNonEmpty(order.CustomerPhone, a.Phone)
	}
	for _, na := range p.NoteAttributes {
		order.NoteAttributes[na.Name] = na.Value
	}
	if code, ok := order.NoteAttributes["storeCode"]; ok {
		order.StoreCode = strings.TrimSpace(code)
	}

	variantIDs := make([]int64, 0, len(p.LineItems))
	for _, li := range p.LineItems {
		variantIDs = append(variantIDs, li.VariantID)
	}
	byVariant := make(map[int64]*domain.StorefrontVariant)
	if variants, err := s.repos.StorefrontVariant.ListByVariantIDs(ctx, variantIDs); err != nil {
		s.logger.Warn("Order ingest: variant lookup failed, tax tags unavailable", zap.Error(err))
	} else {
		for _, v := range variants {
			byVariant[v.VariantID] = v
		}
	}

	for _, li := range p.LineItems {
		line := domain.OrderLineItem{
			LineItemID: li.ID,
			ProductID:  li.ProductID,
			VariantID:  li.VariantID,
			SKU:        li.SKU,
			Title:      li.Title,
			Quantity:   li.Quantity,
			Price:      li.Price,
			Discount:   li.TotalDiscount,
		}
		if v, ok := byVariant[li.VariantID]; ok {
			line.Tags = v.Tags
			line.ErpItemID = v.ErpItemID
			if line.SKU == "" {
				line.SKU = v.SKU
			}
		}
		order.LineItems = append(order.LineItems, line)
	}
	return order
}
