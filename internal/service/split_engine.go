package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/repository"
	apperrors "github.com/global-partner-dev/kagati-shopify-app-sub001/pkg/errors"
)

// OutletNoteAttribute is the order note attribute carrying the preferred outlet.
const OutletNoteAttribute = "_outletId"

// Assignment moves a quantity of one SKU to a target store.
type Assignment struct {
	SKU       string `json:"sku" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
	StoreCode string `json:"storeCode" validate:"required"`
}

// ReassignRequest is a manual per-item reassignment of one split.
type ReassignRequest struct {
	Assignments []Assignment `json:"assignments" validate:"required,min=1,dive"`
}

// SplitEngine creates splits for new orders and reassigns their line items.
type SplitEngine struct {
	repos         *repository.Repositories
	notifications *NotificationLogService
	logger        *zap.Logger
	now           func() time.Time
}

// NewSplitEngine creates a new split engine
func NewSplitEngine(repos *repository.Repositories, notifications *NotificationLogService, logger *zap.Logger) *SplitEngine {
	return &SplitEngine{
		repos:         repos,
		notifications: notifications,
		logger:        logger,
		now:           time.Now,
	}
}

// SplitOrder assigns every line of a new order to its preferred store as a
// single "new" split. Orders that already have splits are returned as is.
func (e *SplitEngine) SplitOrder(ctx context.Context, order *domain.Order) ([]*domain.OrderSplit, error) {
	existing, err := e.repos.OrderSplit.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	store, err := e.resolvePreferredStore(ctx, order)
	if err != nil {
		return nil, err
	}

	lines := make([]domain.SplitLineItem, 0, len(order.LineItems))
	for _, li := range order.LineItems {
		if li.Quantity <= 0 {
			continue
		}
		lines = append(lines, domain.SplitLineItem{
			LineItemID:        li.LineItemID,
			ProductID:         li.ProductID,
			VariantID:         li.VariantID,
			ItemReferenceCode: li.SKU,
			Title:             li.Title,
			Quantity:          li.Quantity,
			Price:             li.Price,
			Discount:          li.Discount,
			OutletID:          store.ErpStoreID,
			ErpItemID:         li.ErpItemID,
			Tags:              li.Tags,
		})
	}
	if len(lines) == 0 {
		return nil, &apperrors.ErrValidation{Message: "order has no line items to split"}
	}

	split := e.newSplit(order, store, lines, false)
	if err := e.repos.OrderSplit.Create(ctx, split); err != nil {
		e.logger.Error("Failed to create order split", zap.String("order_number", order.OrderNumber), zap.Error(err))
		return nil, err
	}
	e.logger.Info("Order split created",
		zap.String("split_id", split.SplitID),
		zap.Int("lines", len(lines)),
	)
	return []*domain.OrderSplit{split}, nil
}

func (e *SplitEngine) newSplit(order *domain.Order, store *domain.Store, lines []domain.SplitLineItem, reassigned bool) *domain.OrderSplit {
	split := &domain.OrderSplit{
		OrderReferenceID: order.ID,
		OrderNumber:      order.OrderNumber,
		SplitID:          domain.SplitIDFor(order.OrderNumber, store.StoreCode),
		StoreCode:        store.StoreCode,
		StoreName:        store.StoreName,
		ErpStoreID:       store.ErpStoreID,
		LineItems:        lines,
		OrderStatus:      domain.SplitStatusNew,
		ReAssignStatus:   reassigned,
	}
	split.RecordTimestamp(domain.SplitStatusNew, e.now())
	return split
}

// resolvePreferredStore reads the _outletId note attribute first, then the
// explicit store selection.
func (e *SplitEngine) resolvePreferredStore(ctx context.Context, order *domain.Order) (*domain.Store, error) {
	if raw := strings.TrimSpace(order.NoteAttributes[OutletNoteAttribute]); raw != "" {
		outletID, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &apperrors.ErrValidation{
				Message: "invalid outlet note attribute",
				Fields:  map[string]string{OutletNoteAttribute: raw},
			}
		}
		store, err := e.repos.Store.GetByErpStoreID(ctx, outletID)
		if err != nil {
			return nil, fmt.Errorf("store not found for outlet %d: %w", outletID, err)
		}
		return store, nil
	}
	if code := strings.TrimSpace(order.StoreCode); code != "" {
		store, err := e.repos.Store.GetByCode(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("store not found for code %s: %w", code, err)
		}
		return store, nil
	}
	return nil, &apperrors.ErrValidation{Message: "order carries no preferred store"}
}

// GetSplit loads one split.
func (e *SplitEngine) GetSplit(ctx context.Context, id uuid.UUID) (*domain.OrderSplit, error) {
	return e.repos.OrderSplit.GetByID(ctx, id)
}

// ListSplits returns the splits of an order, failing with ErrSplitMissing
// when there are none.
func (e *SplitEngine) ListSplits(ctx context.Context, orderReferenceID uuid.UUID) ([]*domain.OrderSplit, error) {
	splits, err := e.repos.OrderSplit.ListByOrder(ctx, orderReferenceID)
	if err != nil {
		return nil, err
	}
	if len(splits) == 0 {
		return nil, &apperrors.ErrSplitMissing{OrderReferenceID: orderReferenceID.String()}
	}
	return splits, nil
}

// Candidates lists outlets whose primary stock covers quantity of sku,
// excluding the split's own store. An empty result is ErrNoInventory.
func (e *SplitEngine) Candidates(ctx context.Context, splitID uuid.UUID, sku string, productID int64, quantity int) ([]*domain.HybridStockRecord, error) {
	if strings.TrimSpace(sku) == "" || quantity <= 0 {
		return nil, &apperrors.ErrValidation{
			Message: "sku and a positive quantity are required",
			Fields:  map[string]string{"sku": sku, "quantity": strconv.Itoa(quantity)},
		}
	}
	split, err := e.repos.OrderSplit.GetByID(ctx, splitID)
	if err != nil {
		return nil, err
	}

	records, err := e.repos.HybridStock.FindCandidates(ctx, sku, productID, quantity)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.HybridStockRecord, 0, len(records))
	for _, r := range records {
		if r.OutletID == split.ErpStoreID {
			continue
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, &apperrors.ErrNoInventory{SKU: sku, Quantity: quantity}
	}
	return out, nil
}

func reassignable(s *domain.OrderSplit) error {
	switch s.OrderStatus {
	case domain.SplitStatusNew, domain.SplitStatusConfirm, domain.SplitStatusOnHold:
		return nil
	default:
		return &apperrors.ErrValidation{
			Message: fmt.Sprintf("split %s cannot be reassigned in status %s", s.SplitID, s.OrderStatus),
		}
	}
}

// Reassign moves quantities of the split's line items to other stores. Items
// going to the same store land in one split; a store that already holds a
// split of this order receives the items in that split. The original split is
// deleted when nothing remains on it.
func (e *SplitEngine) Reassign(ctx context.Context, splitID uuid.UUID, req ReassignRequest) ([]*domain.OrderSplit, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	original, err := e.repos.OrderSplit.GetByID(ctx, splitID)
	if err != nil {
		return nil, err
	}
	if err := reassignable(original); err != nil {
		return nil, err
	}
	order, err := e.repos.Order.GetByID(ctx, original.OrderReferenceID)
	if err != nil {
		return nil, err
	}
	siblings, err := e.repos.OrderSplit.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	// requested quantity per SKU may not exceed what the split holds
	held := original.QuantityBySKU()
	requested := make(map[string]int)
	for _, a := range req.Assignments {
		requested[a.SKU] += a.Quantity
	}
	for sku, qty := range requested {
		if qty > held[sku] {
			return nil, &apperrors.ErrValidation{
				Message: "reassigned quantity exceeds the split's quantity",
				Fields:  map[string]string{sku: fmt.Sprintf("requested %d, split holds %d", qty, held[sku])},
			}
		}
	}

	byStore := make(map[string][]Assignment)
	var storeCodes []string
	for _, a := range req.Assignments {
		if _, ok := byStore[a.StoreCode]; !ok {
			storeCodes = append(storeCodes, a.StoreCode)
		}
		byStore[a.StoreCode] = append(byStore[a.StoreCode], a)
	}
	sort.Strings(storeCodes)

	existingByStore := make(map[string]*domain.OrderSplit)
	for _, s := range siblings {
		if s.ID != original.ID {
			existingByStore[s.StoreCode] = s
		}
	}

	var (
		creates []*domain.OrderSplit
		updates []*domain.OrderSplit
		deletes []uuid.UUID
	)
	for _, code := range storeCodes {
		if code == original.StoreCode {
			return nil, &apperrors.ErrValidation{
				Message: "target store must differ from the split's store",
				Fields:  map[string]string{"storeCode": code},
			}
		}
		store, err := e.repos.Store.GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if !store.IsActive() {
			return nil, &apperrors.ErrValidation{Message: fmt.Sprintf("store %s is inactive", code)}
		}

		// stock is checked against the total of each SKU sent to this store
		totals := make(map[string]int)
		var skus []string
		for _, a := range byStore[code] {
			if _, ok := totals[a.SKU]; !ok {
				skus = append(skus, a.SKU)
			}
			totals[a.SKU] += a.Quantity
		}
		var moved []domain.SplitLineItem
		for _, sku := range skus {
			a := Assignment{SKU: sku, Quantity: totals[sku], StoreCode: code}
			if err := e.checkStock(ctx, a, store); err != nil {
				return nil, err
			}
			moved = append(moved, takeQuantity(original, a.SKU, a.Quantity, store.ErpStoreID)...)
		}

		if target, ok := existingByStore[code]; ok {
			if err := reassignable(target); err != nil {
				return nil, err
			}
			target.LineItems = mergeLines(target.LineItems, moved)
			target.ReAssignStatus = true
			target.SplitID = domain.SplitIDFor(target.OrderNumber, target.StoreCode)
			updates = append(updates, target)
			continue
		}
		created := e.newSplit(order, store, mergeLines(nil, moved), true)
		created.ID = uuid.New()
		creates = append(creates, created)
		existingByStore[code] = created
	}

	original.ReAssignStatus = true
	original.SplitID = domain.SplitIDFor(original.OrderNumber, original.StoreCode)
	if len(original.LineItems) == 0 {
		deletes = append(deletes, original.ID)
	} else {
		updates = append(updates, original)
	}

	final := finalSplits(siblings, original, creates, deletes)
	if err := CheckPartition(order, final); err != nil {
		return nil, err
	}

	if err := e.repos.OrderSplit.ApplyReassignment(ctx, creates, updates, deletes); err != nil {
		e.logger.Error("Failed to apply reassignment", zap.String("split_id", original.SplitID), zap.Error(err))
		return nil, err
	}

	rows := make([][]string, 0, len(req.Assignments))
	for _, a := range req.Assignments {
		rows = append(rows, []string{a.SKU, strconv.Itoa(a.Quantity), a.StoreCode})
	}
	e.notifications.Info(ctx,
		fmt.Sprintf("Order #%s reassigned from %s", order.OrderNumber, original.StoreCode),
		markdownTable([]string{"SKU", "Quantity", "Store"}, rows))
	e.logger.Info("Split reassigned",
		zap.String("split_id", original.SplitID),
		zap.Int("created", len(creates)),
		zap.Int("updated", len(updates)),
		zap.Int("deleted", len(deletes)),
	)

	return e.repos.OrderSplit.ListByOrder(ctx, order.ID)
}

func (e *SplitEngine) checkStock(ctx context.Context, a Assignment, store *domain.Store) error {
	records, err := e.repos.HybridStock.GetBySKUAndOutlets(ctx, a.SKU, []int{store.ErpStoreID})
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.PrimaryStock >= a.Quantity {
			return nil
		}
	}
	return &apperrors.ErrNoInventory{SKU: a.SKU, Quantity: a.Quantity}
}

// takeQuantity removes qty of sku from the split's lines and returns the
// removed parts rebound to outletID. Lines that reach zero are dropped.
func takeQuantity(split *domain.OrderSplit, sku string, qty int, outletID int) []domain.SplitLineItem {
	var moved []domain.SplitLineItem
	kept := split.LineItems[:0]
	for _, li := range split.LineItems {
		if qty > 0 && li.ItemReferenceCode == sku {
			n := li.Quantity
			if n > qty {
				n = qty
			}
			part := li
			part.Quantity = n
			part.OutletID = outletID
			moved = append(moved, part)
			li.Quantity -= n
			qty -= n
		}
		if li.Quantity > 0 {
			kept = append(kept, li)
		}
	}
	split.LineItems = kept
	return moved
}

// mergeLines adds moved lines into dst, summing quantities of the same order line.
func mergeLines(dst, moved []domain.SplitLineItem) []domain.SplitLineItem {
	for _, m := range moved {
		merged := false
		for i := range dst {
			if dst[i].LineItemID == m.LineItemID && dst[i].ItemReferenceCode == m.ItemReferenceCode {
				dst[i].Quantity += m.Quantity
				dst[i].OutletID = m.OutletID
				merged = true
				break
			}
		}
		if !merged {
			dst = append(dst, m)
		}
	}
	return dst
}

func finalSplits(siblings []*domain.OrderSplit, original *domain.OrderSplit, creates []*domain.OrderSplit, deletes []uuid.UUID) []*domain.OrderSplit {
	deleted := make(map[uuid.UUID]struct{}, len(deletes))
	for _, id := range deletes {
		deleted[id] = struct{}{}
	}
	var out []*domain.OrderSplit
	for _, s := range siblings {
		if _, gone := deleted[s.ID]; gone {
			continue
		}
		if s.ID == original.ID {
			out = append(out, original)
			continue
		}
		out = append(out, s)
	}
	return append(out, creates...)
}

// CheckPartition verifies that, per SKU, the splits of an order never hold
// more than the order itself.
func CheckPartition(order *domain.Order, splits []*domain.OrderSplit) error {
	ordered := make(map[string]int)
	for _, li := range order.LineItems {
		ordered[li.SKU] += li.Quantity
	}
	assigned := make(map[string]int)
	for _, s := range splits {
		for sku, qty := range s.QuantityBySKU() {
			assigned[sku] += qty
		}
	}
	for sku, qty := range assigned {
		if qty > ordered[sku] {
			return fmt.Errorf("partition violated for order %s: sku %s assigned %d of %d",
				order.OrderNumber, sku, qty, ordered[sku])
		}
	}
	return nil
}

// ReassignToBackup rebinds the whole split to the single active backup
// warehouse. No stock check gates this path; the notification entry records
// the backup's primary stock per line instead.
func (e *SplitEngine) ReassignToBackup(ctx context.Context, splitID uuid.UUID) (*domain.OrderSplit, error) {
	split, err := e.repos.OrderSplit.GetByID(ctx, splitID)
	if err != nil {
		return nil, err
	}
	if err := reassignable(split); err != nil {
		return nil, err
	}
	backups, err := e.repos.Store.ListActiveBackupWarehouses(ctx)
	if err != nil {
		return nil, err
	}
	if len(backups) != 1 {
		return nil, &apperrors.ErrBackupWarehouse{Count: len(backups)}
	}
	backup := backups[0]
	if split.StoreCode == backup.StoreCode {
		return nil, &apperrors.ErrValidation{Message: "split is already assigned to the backup warehouse"}
	}

	siblings, err := e.repos.OrderSplit.ListByOrder(ctx, split.OrderReferenceID)
	if err != nil {
		return nil, err
	}
	from := split.StoreCode
	for i := range split.LineItems {
		split.LineItems[i].OutletID = backup.ErpStoreID
	}

	result := split
	var updates []*domain.OrderSplit
	var deletes []uuid.UUID
	var existing *domain.OrderSplit
	for _, s := range siblings {
		if s.ID != split.ID && s.StoreCode == backup.StoreCode {
			existing = s
		}
	}
	if existing != nil {
		if err := reassignable(existing); err != nil {
			return nil, err
		}
		existing.LineItems = mergeLines(existing.LineItems, split.LineItems)
		existing.ReAssignStatus = true
		updates = append(updates, existing)
		deletes = append(deletes, split.ID)
		result = existing
	} else {
		split.StoreCode = backup.StoreCode
		split.StoreName = backup.StoreName
		split.ErpStoreID = backup.ErpStoreID
		split.SplitID = domain.SplitIDFor(split.OrderNumber, backup.StoreCode)
		split.ReAssignStatus = true
		updates = append(updates, split)
	}

	if err := e.repos.OrderSplit.ApplyReassignment(ctx, nil, updates, deletes); err != nil {
		e.logger.Error("Failed to reassign split to backup", zap.String("split_id", split.SplitID), zap.Error(err))
		return nil, err
	}

	rows := make([][]string, 0, len(result.LineItems))
	for _, li := range result.LineItems {
		stock := "unknown"
		if recs, err := e.repos.HybridStock.GetBySKUAndOutlets(ctx, li.ItemReferenceCode, []int{backup.ErpStoreID}); err == nil && len(recs) > 0 {
			stock = strconv.Itoa(recs[0].PrimaryStock)
		}
		rows = append(rows, []string{li.ItemReferenceCode, strconv.Itoa(li.Quantity), stock})
	}
	e.notifications.Info(ctx,
		fmt.Sprintf("Order #%s moved from %s to backup %s", result.OrderNumber, from, backup.StoreCode),
		markdownTable([]string{"SKU", "Quantity", "Backup stock"}, rows))
	e.logger.Info("Split reassigned to backup warehouse",
		zap.String("split_id", result.SplitID),
		zap.String("from", from),
	)
	return result, nil
}
