package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/repository"
)

// HybridStockService maintains the hybrid stock read model from the ERP mirror.
type HybridStockService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewHybridStockService creates a new hybrid stock service
func NewHybridStockService(repos *repository.Repositories, logger *zap.Logger) *HybridStockService {
	return &HybridStockService{
		repos:  repos,
		logger: logger,
	}
}

// RecomputeForItems rebuilds the hybrid rows of every variant linked to one of
// the given ERP items. It returns the number of rows written.
func (s *HybridStockService) RecomputeForItems(ctx context.Context, itemIDs []int64) (int, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	variants, err := s.repos.StorefrontVariant.ListByErpItemIDs(ctx, itemIDs)
	if err != nil {
		return 0, err
	}
	return s.recompute(ctx, variants, itemIDs)
}

// RecomputeAll rebuilds the hybrid rows of every linked variant.
func (s *HybridStockService) RecomputeAll(ctx context.Context) (int, error) {
	variants, err := s.repos.StorefrontVariant.ListLinked(ctx)
	if err != nil {
		return 0, err
	}
	seen := make(map[int64]struct{})
	var itemIDs []int64
	for _, v := range variants {
		if _, ok := seen[v.ErpItemID]; ok {
			continue
		}
		seen[v.ErpItemID] = struct{}{}
		itemIDs = append(itemIDs, v.ErpItemID)
	}
	return s.recompute(ctx, variants, itemIDs)
}

func (s *HybridStockService) recompute(ctx context.Context, variants []*domain.StorefrontVariant, itemIDs []int64) (int, error) {
	if len(variants) == 0 {
		return 0, nil
	}
	items, err := s.repos.ErpItem.ListByItemIDs(ctx, itemIDs)
	if err != nil {
		return 0, err
	}
	stores, err := s.repos.Store.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	stock := make(map[domain.ErpItemKey]int, len(items))
	for _, it := range items {
		stock[it.Key()] = it.Stock
	}

	records := BuildHybridStock(variants, stores, stock)
	if err := s.repos.HybridStock.UpsertBatch(ctx, records); err != nil {
		s.logger.Error("Hybrid stock: failed to write records", zap.Int("count", len(records)), zap.Error(err))
		return 0, err
	}
	s.logger.Debug("Hybrid stock recomputed", zap.Int("variants", len(variants)), zap.Int("records", len(records)))
	return len(records), nil
}

// List serves the inventory page.
func (s *HybridStockService) List(ctx context.Context, f repository.HybridStockFilter) ([]*domain.HybridStockRecord, int, error) {
	return s.repos.HybridStock.List(ctx, f)
}

// BuildHybridStock derives one record per (SKU, store) where the ERP mirror
// holds a row for the store's outlet. Primary is the outlet's own stock,
// backup is the stock at the store's selected backup warehouse, and the
// published hybrid figure is the primary. Negative ERP stock counts as 0.
func BuildHybridStock(variants []*domain.StorefrontVariant, stores []*domain.Store, stock map[domain.ErpItemKey]int) []*domain.HybridStockRecord {
	type key struct {
		sku    string
		outlet int
	}
	seen := make(map[key]struct{})
	var out []*domain.HybridStockRecord

	for _, v := range variants {
		if v.SKU == "" || v.ErpItemID == 0 {
			continue
		}
		for _, st := range stores {
			k := key{sku: v.SKU, outlet: st.ErpStoreID}
			if _, dup := seen[k]; dup {
				continue
			}
			primary, ok := stock[domain.ErpItemKey{ItemID: v.ErpItemID, OutletID: st.ErpStoreID}]
			if !ok {
				continue
			}
			backup := 0
			if st.SelectBackupWarehouse != nil {
				backup = stock[domain.ErpItemKey{ItemID: v.ErpItemID, OutletID: *st.SelectBackupWarehouse}]
			}
			primary, backup = nonNegative(primary), nonNegative(backup)

			seen[k] = struct{}{}
			out = append(out, &domain.HybridStockRecord{
				SKU:          v.SKU,
				OutletID:     st.ErpStoreID,
				ProductID:    v.ProductID,
				VariantID:    v.VariantID,
				PrimaryStock: primary,
				BackUpStock:  backup,
				HybridStock:  primary,
			})
		}
	}
	return out
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
