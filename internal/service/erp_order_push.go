package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/erp"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/repository"
	apperrors "github.com/global-partner-dev/kagati-shopify-app-sub001/pkg/errors"
)

const (
	erpOrderDateLayout = "2006-01-02 15:04:05"
	erpChannelOnline   = "online"
	erpStatusCancelled = "Cancelled"
	erpStatusConfirmed = "Confirmed"
)

// ErpOrderPushService mirrors storefront splits into ERP sales orders.
type ErpOrderPushService struct {
	repos  *repository.Repositories
	client ERPClient
	logger *zap.Logger
	now    func() time.Time
}

// NewErpOrderPushService creates a new ERP order push service
func NewErpOrderPushService(repos *repository.Repositories, client ERPClient, logger *zap.Logger) *ErpOrderPushService {
	return &ErpOrderPushService{
		repos:  repos,
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// PushOrder pushes every split of an order. An order without splits is a
// data-integrity error.
func (s *ErpOrderPushService) PushOrder(ctx context.Context, orderReferenceID uuid.UUID) ([]*erp.SalesOrderResponse, error) {
	splits, err := s.repos.OrderSplit.ListByOrder(ctx, orderReferenceID)
	if err != nil {
		return nil, err
	}
	if len(splits) == 0 {
		return nil, &apperrors.ErrSplitMissing{OrderReferenceID: orderReferenceID.String()}
	}
	order, err := s.repos.Order.GetByID(ctx, orderReferenceID)
	if err != nil {
		return nil, err
	}

	out := make([]*erp.SalesOrderResponse, 0, len(splits))
	for _, split := range splits {
		resp, err := s.PushSplit(ctx, order, split)
		if err != nil {
			return out, err
		}
		out = append(out, resp)
	}
	return out, nil
}

// PushSplit pushes one split as an ERP sales order and stores the ERP order id
// on the split.
func (s *ErpOrderPushService) PushSplit(ctx context.Context, order *domain.Order, split *domain.OrderSplit) (*erp.SalesOrderResponse, error) {
	if split == nil || len(split.LineItems) == 0 {
		return nil, &apperrors.ErrSplitMissing{OrderReferenceID: order.ID.String()}
	}
	so := BuildSalesOrder(order, split, s.now())

	resp, err := s.client.PushSalesOrder(ctx, so)
	if err != nil {
		s.logger.Error("ERP push: sales order rejected",
			zap.String("split_id", split.SplitID),
			zap.Int("outlet_id", split.ErpStoreID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("push sales order %s: %w", split.SplitID, err)
	}
	if resp.OrderID != "" {
		id := resp.OrderID
		split.ErpOrderID = &id
		if err := s.repos.OrderSplit.Update(ctx, split); err != nil {
			s.logger.Warn("ERP push: failed to store ERP order id", zap.String("split_id", split.SplitID), zap.Error(err))
		}
	}
	return resp, nil
}

func erpOrderStatus(status domain.SplitStatus) string {
	if status == domain.SplitStatusCancel {
		return erpStatusCancelled
	}
	return erpStatusConfirmed
}

// BuildSalesOrder computes line and order totals for the ERP. Prices are tax
// inclusive; tax is back-calculated from the line's tax category.
func BuildSalesOrder(order *domain.Order, split *domain.OrderSplit, at time.Time) *erp.SalesOrder {
	so := &erp.SalesOrder{
		OutletID:          split.ErpStoreID,
		OnlineReferenceNo: split.SplitID,
		OrderDate:         at.Format(erpOrderDateLayout),
		Channel:           erpChannelOnline,
		Status:            erpOrderStatus(split.OrderStatus),
		CustomerName:      order.CustomerName,
		CustomerMobile:    order.CustomerPhone,
		CustomerEmail:     order.CustomerEmail,
		TotalDiscount:     decimal.Zero,
		TotalTaxAmount:    decimal.Zero,
		TotalAmount:       decimal.Zero,
	}
	for _, li := range split.LineItems {
		category, _ := domain.TaxCategoryFromTags(li.Tags)
		qty := decimal.NewFromInt(int64(li.Quantity))
		amount := li.Price.Mul(qty).Sub(li.Discount)
		if amount.IsNegative() {
			amount = decimal.Zero
		}
		tax := domain.InclusiveTax(amount, category)

		so.OrderItems = append(so.OrderItems, erp.SalesOrderItem{
			ItemID:         li.ErpItemID,
			ItemReference:  li.ItemReferenceCode,
			Quantity:       li.Quantity,
			SalePrice:      li.Price,
			DiscountAmount: li.Discount,
			TaxPercentage:  category.Rate(),
			TaxAmount:      tax,
			ItemAmount:     amount,
		})
		so.TotalQuantity += li.Quantity
		so.TotalDiscount = so.TotalDiscount.Add(li.Discount)
		so.TotalTaxAmount = so.TotalTaxAmount.Add(tax)
		so.TotalAmount = so.TotalAmount.Add(amount)
	}
	return so
}
