package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// VariantPriceUpdate is one variant price push
type VariantPriceUpdate struct {
	ProductID int64
	VariantID int64
	Price     decimal.Decimal
}

// BulkPriceResult reports which variants were updated. Failed maps variant id to the error message.
type BulkPriceResult struct {
	Updated []int64
	Failed  map[int64]string
}

type bulkUpdatePayload struct {
	ProductVariants []struct {
		ID string `json:"id"`
	} `json:"productVariants"`
	UserErrors []UserError `json:"userErrors"`
}

// BulkUpdatePrices pushes prices for many variants in a single request. The
// storefront groups variant updates per product, so the document carries one
// aliased productVariantsBulkUpdate per product.
func (c *Client) BulkUpdatePrices(ctx context.Context, updates []VariantPriceUpdate) (*BulkPriceResult, error) {
	result := &BulkPriceResult{Failed: make(map[int64]string)}
	if len(updates) == 0 {
		return result, nil
	}

	byProduct := make(map[int64][]VariantPriceUpdate)
	var productIDs []int64
	for _, u := range updates {
		if _, ok := byProduct[u.ProductID]; !ok {
			productIDs = append(productIDs, u.ProductID)
		}
		byProduct[u.ProductID] = append(byProduct[u.ProductID], u)
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

	var (
		params []string
		fields []string
		vars   = make(map[string]interface{}, len(productIDs)*2)
	)
	for i, pid := range productIDs {
		alias := fmt.Sprintf("p%d", i)
		pVar, vVar := fmt.Sprintf("pid%d", i), fmt.Sprintf("variants%d", i)
		params = append(params, fmt.Sprintf("$%s: ID!, $%s: [ProductVariantsBulkInput!]!", pVar, vVar))
		fields = append(fields, fmt.Sprintf(productVariantsBulkUpdateField, alias, pVar, vVar))

		inputs := make([]ProductVariantsBulkInput, 0, len(byProduct[pid]))
		for _, u := range byProduct[pid] {
			price := u.Price.StringFixed(2)
			inputs = append(inputs, ProductVariantsBulkInput{
				ID:             GID(GIDProductVariant, u.VariantID),
				Price:          price,
				CompareAtPrice: &price,
			})
		}
		vars[pVar] = GID(GIDProduct, pid)
		vars[vVar] = inputs
	}
	doc := fmt.Sprintf("mutation bulkUpdatePrices(%s) {%s\n}", strings.Join(params, ", "), strings.Join(fields, ""))

	resp, err := c.Execute(ctx, doc, vars)
	if err != nil {
		return nil, fmt.Errorf("productVariantsBulkUpdate failed: %w", err)
	}

	var data map[string]bulkUpdatePayload
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse productVariantsBulkUpdate response: %w", err)
	}

	for i, pid := range productIDs {
		payload, ok := data[fmt.Sprintf("p%d", i)]
		switch {
		case !ok:
			for _, u := range byProduct[pid] {
				result.Failed[u.VariantID] = "missing mutation result"
			}
		case len(payload.UserErrors) > 0:
			msg := joinUserErrors(payload.UserErrors)
			c.logger.Warn("Variant price update rejected", zap.Int64("product_id", pid), zap.String("errors", msg))
			for _, u := range byProduct[pid] {
				result.Failed[u.VariantID] = msg
			}
		default:
			for _, u := range byProduct[pid] {
				result.Updated = append(result.Updated, u.VariantID)
			}
		}
	}
	return result, nil
}

// OnHandQuantity is one absolute on-hand quantity to set
type OnHandQuantity struct {
	InventoryItemID int64
	LocationID      int64
	Quantity        int
}

// SetOnHandQuantities sets absolute on-hand quantities with reason "correction".
func (c *Client) SetOnHandQuantities(ctx context.Context, quantities []OnHandQuantity) error {
	if len(quantities) == 0 {
		return nil
	}
	input := InventorySetOnHandQuantitiesInput{
		Reason:        InventoryReasonCorrection,
		SetQuantities: make([]InventorySetQuantityInput, 0, len(quantities)),
	}
	for _, q := range quantities {
		input.SetQuantities = append(input.SetQuantities, InventorySetQuantityInput{
			InventoryItemID: GID(GIDInventoryItem, q.InventoryItemID),
			LocationID:      GID(GIDLocation, q.LocationID),
			Quantity:        q.Quantity,
		})
	}

	resp, err := c.Execute(ctx, InventorySetOnHandQuantitiesMutation, map[string]interface{}{"input": input})
	if err != nil {
		return fmt.Errorf("inventorySetOnHandQuantities failed: %w", err)
	}

	var data struct {
		InventorySetOnHandQuantities struct {
			UserErrors []UserError `json:"userErrors"`
		} `json:"inventorySetOnHandQuantities"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return fmt.Errorf("failed to parse inventorySetOnHandQuantities response: %w", err)
	}
	if errs := data.InventorySetOnHandQuantities.UserErrors; len(errs) > 0 {
		return fmt.Errorf("inventorySetOnHandQuantities user errors: %s", joinUserErrors(errs))
	}
	return nil
}

// InventoryItemLocationIDs returns the location ids an inventory item is stocked at.
func (c *Client) InventoryItemLocationIDs(ctx context.Context, inventoryItemID int64) ([]int64, error) {
	resp, err := c.Execute(ctx, InventoryItemLocationsQuery, map[string]interface{}{
		"id": GID(GIDInventoryItem, inventoryItemID),
	})
	if err != nil {
		return nil, err
	}

	var data struct {
		InventoryItem *struct {
			InventoryLevels struct {
				Edges []struct {
					Node struct {
						Location struct {
							ID string `json:"id"`
						} `json:"location"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"inventoryLevels"`
		} `json:"inventoryItem"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse inventory item response: %w", err)
	}
	if data.InventoryItem == nil {
		return nil, fmt.Errorf("inventory item %d not found", inventoryItemID)
	}

	var ids []int64
	for _, e := range data.InventoryItem.InventoryLevels.Edges {
		id, err := ParseGID(e.Node.Location.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
