package shopify

// productVariantsBulkUpdateField is aliased once per product in a bulk price document
const productVariantsBulkUpdateField = `
  %s: productVariantsBulkUpdate(productId: $%s, variants: $%s) {
    productVariants {
      id
      price
    }
    userErrors {
      field
      message
    }
  }`

// InventorySetOnHandQuantitiesMutation sets absolute on-hand quantities
const InventorySetOnHandQuantitiesMutation = `
mutation inventorySetOnHandQuantities($input: InventorySetOnHandQuantitiesInput!) {
  inventorySetOnHandQuantities(input: $input) {
    inventoryAdjustmentGroup {
      reason
      changes {
        name
        delta
      }
    }
    userErrors {
      field
      message
      code
    }
  }
}
`

// InventoryReasonCorrection is the adjustment reason used for ERP reconciliation
const InventoryReasonCorrection = "correction"

// ProductVariantsBulkInput is one variant in productVariantsBulkUpdate
type ProductVariantsBulkInput struct {
	ID             string  `json:"id"`
	Price          string  `json:"price"`
	CompareAtPrice *string `json:"compareAtPrice,omitempty"`
}

// InventorySetOnHandQuantitiesInput is the input of inventorySetOnHandQuantities
type InventorySetOnHandQuantitiesInput struct {
	Reason        string                      `json:"reason"`
	SetQuantities []InventorySetQuantityInput `json:"setQuantities"`
}

type InventorySetQuantityInput struct {
	InventoryItemID string `json:"inventoryItemId"`
	LocationID      string `json:"locationId"`
	Quantity        int    `json:"quantity"`
}
