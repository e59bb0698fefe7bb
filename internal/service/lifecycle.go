package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/delivery"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/notify"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/repository"
	apperrors "github.com/global-partner-dev/kagati-shopify-app-sub001/pkg/errors"
)

// OnHoldRequest puts a split on hold.
type OnHoldRequest struct {
	Comment      string              `json:"comment" validate:"required"`
	OnHoldStatus domain.OnHoldStatus `json:"onHoldStatus" validate:"required,oneof=open pending closed"`
}

// LifecycleController drives splits through their status table and fires
// the side effects of each status.
type LifecycleController struct {
	repos         *repository.Repositories
	queue         NotificationQueue
	rider         RiderDispatcher
	geocoder      Geocoder
	erpPush       *ErpOrderPushService
	notifications *NotificationLogService
	logger        *zap.Logger
	now           func() time.Time
}

// NewLifecycleController creates a new split lifecycle controller. rider and
// geocoder may be nil when no delivery partner is configured.
func NewLifecycleController(
	repos *repository.Repositories,
	queue NotificationQueue,
	rider RiderDispatcher,
	geocoder Geocoder,
	erpPush *ErpOrderPushService,
	notifications *NotificationLogService,
	logger *zap.Logger,
) *LifecycleController {
	return &LifecycleController{
		repos:         repos,
		queue:         queue,
		rider:         rider,
		geocoder:      geocoder,
		erpPush:       erpPush,
		notifications: notifications,
		logger:        logger,
		now:           time.Now,
	}
}

func (c *LifecycleController) Confirm(ctx context.Context, id uuid.UUID) (*domain.OrderSplit, error) {
	return c.transition(ctx, id, domain.SplitStatusConfirm, domain.PolicyStandard, nil)
}

func (c *LifecycleController) ReadyForPickup(ctx context.Context, id uuid.UUID) (*domain.OrderSplit, error) {
	return c.transition(ctx, id, domain.SplitStatusReadyForPickup, domain.PolicyStandard, nil)
}

func (c *LifecycleController) OutForDelivery(ctx context.Context, id uuid.UUID) (*domain.OrderSplit, error) {
	return c.transition(ctx, id, domain.SplitStatusOutForDelivery, domain.PolicyStandard, nil)
}

func (c *LifecycleController) Delivered(ctx context.Context, id uuid.UUID) (*domain.OrderSplit, error) {
	return c.transition(ctx, id, domain.SplitStatusDelivered, domain.PolicyStandard, nil)
}

func (c *LifecycleController) Cancel(ctx context.Context, id uuid.UUID) (*domain.OrderSplit, error) {
	return c.transition(ctx, id, domain.SplitStatusCancel, domain.PolicyStandard, nil)
}

// Resume returns an on-hold split to confirm.
func (c *LifecycleController) Resume(ctx context.Context, id uuid.UUID) (*domain.OrderSplit, error) {
	split, err := c.repos.OrderSplit.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if split.OrderStatus != domain.SplitStatusOnHold {
		return nil, &apperrors.ErrInvalidStateTransition{From: split.OrderStatus, To: domain.SplitStatusConfirm}
	}
	return c.transition(ctx, id, domain.SplitStatusConfirm, domain.PolicyStandard, nil)
}

// OnHold requires a comment and an initial triage status.
func (c *LifecycleController) OnHold(ctx context.Context, id uuid.UUID, req OnHoldRequest) (*domain.OrderSplit, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return c.transition(ctx, id, domain.SplitStatusOnHold, domain.PolicyStandard, func(s *domain.OrderSplit) {
		comment := strings.TrimSpace(req.Comment)
		status := req.OnHoldStatus
		s.OnHoldComment = &comment
		s.OnHoldStatus = &status
	})
}

// UpdateOnHoldStatus moves the triage sub-state of an on-hold split.
func (c *LifecycleController) UpdateOnHoldStatus(ctx context.Context, id uuid.UUID, to domain.OnHoldStatus) (*domain.OrderSplit, error) {
	if !to.IsValid() {
		return nil, &apperrors.ErrValidation{
			Message: "invalid on-hold status",
			Fields:  map[string]string{"onHoldStatus": string(to)},
		}
	}
	split, err := c.repos.OrderSplit.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if split.OrderStatus != domain.SplitStatusOnHold {
		return nil, &apperrors.ErrValidation{Message: fmt.Sprintf("split %s is not on hold", split.SplitID)}
	}
	from := domain.OnHoldStatusOpen
	if split.OnHoldStatus != nil {
		from = *split.OnHoldStatus
	}
	if !from.CanTransitionTo(to) {
		return nil, &apperrors.ErrInvalidOnHoldTransition{From: from, To: to}
	}
	split.OnHoldStatus = &to
	if err := c.repos.OrderSplit.Update(ctx, split); err != nil {
		return nil, err
	}
	c.logger.Info("On-hold status updated",
		zap.String("split_id", split.SplitID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return split, nil
}

// AdminSetStatus applies the admin correction table, which additionally lets
// a cancelled split move back to any status. Every override is logged.
func (c *LifecycleController) AdminSetStatus(ctx context.Context, id uuid.UUID, to domain.SplitStatus) (*domain.OrderSplit, error) {
	if !to.IsValid() {
		return nil, &apperrors.ErrValidation{
			Message: "invalid status",
			Fields:  map[string]string{"status": string(to)},
		}
	}
	if to == domain.SplitStatusOnHold {
		return nil, &apperrors.ErrValidation{Message: "use the on-hold action, it requires a comment"}
	}
	before, err := c.repos.OrderSplit.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := before.OrderStatus

	split, err := c.transition(ctx, id, to, domain.PolicyAdmin, nil)
	if err != nil {
		return nil, err
	}
	c.notifications.Info(ctx,
		fmt.Sprintf("Admin override on %s", split.SplitID),
		fmt.Sprintf("**From:** %s\n\n**To:** %s", from.Label(), to.Label()))
	return split, nil
}

// Timeline returns the split's status history grouped by day.
func (c *LifecycleController) Timeline(ctx context.Context, id uuid.UUID) ([]domain.TimelineGroup, error) {
	split, err := c.repos.OrderSplit.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.BuildTimeline(split.TimeStamp, c.now()), nil
}

func (c *LifecycleController) transition(
	ctx context.Context,
	id uuid.UUID,
	to domain.SplitStatus,
	policy domain.TransitionPolicy,
	mutate func(*domain.OrderSplit),
) (*domain.OrderSplit, error) {
	split, err := c.repos.OrderSplit.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := split.OrderStatus
	if !from.CanTransitionUnder(policy, to) {
		c.logger.Warn("Rejected split transition",
			zap.String("split_id", split.SplitID),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Stringer("policy", policy),
		)
		return nil, &apperrors.ErrInvalidStateTransition{From: from, To: to}
	}

	if mutate != nil {
		mutate(split)
	}
	if to != domain.SplitStatusOnHold {
		split.OnHoldStatus = nil
	}
	split.OrderStatus = to
	split.RecordTimestamp(to, c.now())

	if err := c.repos.OrderSplit.Update(ctx, split); err != nil {
		c.logger.Error("Failed to update split status", zap.String("split_id", split.SplitID), zap.Error(err))
		return nil, err
	}
	c.logger.Info("Split status changed",
		zap.String("split_id", split.SplitID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)

	order, err := c.repos.Order.GetByID(ctx, split.OrderReferenceID)
	if err != nil {
		c.logger.Warn("Split side effects skipped: order not found",
			zap.String("split_id", split.SplitID),
			zap.Error(err),
		)
		return split, nil
	}

	if to.IsActiveDelivery() {
		c.dispatchRider(ctx, order, split)
	}
	if to == domain.SplitStatusCancel && c.erpPush != nil {
		if _, err := c.erpPush.PushSplit(ctx, order, split); err != nil {
			c.notifications.Error(ctx, fmt.Sprintf("ERP push failed for cancelled split %s", split.SplitID), err)
		}
	}
	if to.NotifiesCustomer() {
		c.enqueueNotification(ctx, order, split)
	}
	return split, nil
}

// dispatchRider books a delivery task once per split. Failures are stored in
// tplMessage and never undo the status change.
func (c *LifecycleController) dispatchRider(ctx context.Context, order *domain.Order, split *domain.OrderSplit) {
	if c.rider == nil || split.TplTaskID != nil {
		return
	}

	setMessage := func(msg string) {
		split.TplMessage = &msg
		if err := c.repos.OrderSplit.Update(ctx, split); err != nil {
			c.logger.Error("Failed to store delivery result", zap.String("split_id", split.SplitID), zap.Error(err))
		}
	}

	store, err := c.repos.Store.GetByCode(ctx, split.StoreCode)
	if err != nil {
		c.logger.Warn("Rider dispatch: store lookup failed", zap.String("split_id", split.SplitID), zap.Error(err))
		setMessage("store not found for delivery pickup")
		return
	}

	drop := order.ShippingAddress
	if !drop.HasCoordinates() && c.geocoder != nil {
		lat, lng, err := c.geocoder.Geocode(ctx, formatAddress(drop))
		if err != nil {
			c.logger.Warn("Rider dispatch: geocoding failed", zap.String("split_id", split.SplitID), zap.Error(err))
		} else {
			drop.Latitude, drop.Longitude = &lat, &lng
			if err := c.repos.Order.UpdateShippingCoordinates(ctx, order.ID, lat, lng); err != nil {
				c.logger.Warn("Rider dispatch: failed to persist coordinates", zap.Error(err))
			}
		}
	}

	req := &delivery.TaskRequest{
		PickupDetails: delivery.Point{
			Name:          store.StoreName,
			ContactNumber: store.Phone,
			Address:       store.Address,
			Latitude:      store.Latitude,
			Longitude:     store.Longitude,
		},
		DropDetails: delivery.Point{
			Name:          firstNonEmpty(drop.Name, order.CustomerName),
			ContactNumber: firstNonEmpty(drop.Phone, order.CustomerPhone),
			Address:       formatAddress(drop),
			City:          drop.City,
			Latitude:      drop.Latitude,
			Longitude:     drop.Longitude,
		},
		OrderDetails: delivery.OrderDetails{
			OrderID:     split.SplitID,
			OrderAmount: splitTotals(split).total,
			PaymentType: paymentType(order.FinancialStatus),
			ItemCount:   totalQuantity(split),
		},
	}

	svc, err := c.rider.GetServiceability(ctx, req)
	if err != nil {
		c.logger.Warn("Rider dispatch: serviceability check failed", zap.String("split_id", split.SplitID), zap.Error(err))
		setMessage(err.Error())
		return
	}
	if !svc.Serviceable {
		setMessage(firstNonEmpty(svc.Message, "location not serviceable"))
		return
	}

	task, err := c.rider.CreateTask(ctx, req)
	if err != nil {
		c.logger.Warn("Rider dispatch: task creation failed", zap.String("split_id", split.SplitID), zap.Error(err))
		setMessage(err.Error())
		return
	}
	split.TplTaskID = &task.TaskID
	split.RiderName = &task.RiderName
	split.RiderContact = &task.RiderContact
	setMessage(firstNonEmpty(task.Message, "rider assigned"))
}

func (c *LifecycleController) enqueueNotification(ctx context.Context, order *domain.Order, split *domain.OrderSplit) {
	if c.queue == nil {
		return
	}
	n := BuildCustomerNotification(order, split)
	if err := c.queue.EnqueueNotification(ctx, n); err != nil {
		c.logger.Error("Failed to enqueue customer notification",
			zap.String("split_id", split.SplitID),
			zap.String("status", string(split.OrderStatus)),
			zap.Error(err),
		)
		c.notifications.Error(ctx, fmt.Sprintf("Customer notification not queued for %s", split.SplitID), err)
	}
}

// BuildCustomerNotification computes the template payload of a split.
func BuildCustomerNotification(order *domain.Order, split *domain.OrderSplit) *notify.CustomerNotification {
	totals := splitTotals(split)
	n := &notify.CustomerNotification{
		Status:       split.OrderStatus,
		SplitID:      split.SplitID,
		OrderNumber:  order.OrderNumber,
		CustomerName: order.CustomerName,
		Email:        order.CustomerEmail,
		Phone:        firstNonEmpty(order.CustomerPhone, order.ShippingAddress.Phone),
		StoreName:    split.StoreName,
		Subtotal:     totals.subtotal,
		Discount:     totals.discount,
		Tax:          totals.tax,
		Total:        totals.total,
	}
	if split.OnHoldComment != nil && split.OrderStatus == domain.SplitStatusOnHold {
		n.Comment = *split.OnHoldComment
	}
	for _, li := range split.LineItems {
		n.Items = append(n.Items, notify.Item{
			Title:    li.Title,
			SKU:      li.ItemReferenceCode,
			Quantity: li.Quantity,
			Price:    li.Price,
			Total:    li.Price.Mul(decimal.NewFromInt(int64(li.Quantity))).Sub(li.Discount),
		})
	}
	return n
}

type totals struct {
	subtotal decimal.Decimal
	discount decimal.Decimal
	tax      decimal.Decimal
	total    decimal.Decimal
}

func splitTotals(split *domain.OrderSplit) totals {
	t := totals{subtotal: decimal.Zero, discount: decimal.Zero, tax: decimal.Zero}
	for _, li := range split.LineItems {
		line := li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
		t.subtotal = t.subtotal.Add(line)
		t.discount = t.discount.Add(li.Discount)
		category, _ := domain.TaxCategoryFromTags(li.Tags)
		t.tax = t.tax.Add(domain.InclusiveTax(line.Sub(li.Discount), category))
	}
	t.total = t.subtotal.Sub(t.discount)
	return t
}

func totalQuantity(split *domain.OrderSplit) int {
	n := 0
	for _, li := range split.LineItems {
		n += li.Quantity
	}
	return n
}

func paymentType(financialStatus string) string {
	if strings.EqualFold(financialStatus, "paid") {
		return "prepaid"
	}
	return "cod"
}

func formatAddress(a domain.Address) string {
	parts := make([]string, 0, 6)
	for _, p := range []string{a.Address1, a.Address2, a.City, a.Province, a.Zip, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
