package notify

import (
	"github.com/shopspring/decimal"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
)

// CustomerNotification is the email/SMS payload for a split status change
type CustomerNotification struct {
	Status       domain.SplitStatus `json:"status"`
	SplitID      string             `json:"split_id"`
	OrderNumber  string             `json:"order_number"`
	CustomerName string             `json:"customer_name"`
	Email        string             `json:"email"`
	Phone        string             `json:"phone"`
	StoreName    string             `json:"store_name"`
	Comment      string             `json:"comment,omitempty"`
	Items        []Item             `json:"items"`
	Subtotal     decimal.Decimal    `json:"subtotal"`
	Discount     decimal.Decimal    `json:"discount"`
	Tax          decimal.Decimal    `json:"tax"`
	Total        decimal.Decimal    `json:"total"`
}

type Item struct {
	Title    string          `json:"title"`
	SKU      string          `json:"sku"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Total    decimal.Decimal `json:"total"`
}

// TemplateKey maps a split status to its template key, or "" when the status
// sends nothing.
func TemplateKey(status domain.SplitStatus) string {
	switch status {
	case domain.SplitStatusOnHold:
		return "on_hold"
	case domain.SplitStatusDelivered:
		return "delivered"
	case domain.SplitStatusCancel:
		return "canceled"
	default:
		return ""
	}
}

// templateData flattens the notification into dynamic template variables.
func (n *CustomerNotification) templateData() map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(n.Items))
	for _, it := range n.Items {
		items = append(items, map[string]interface{}{
			"title":    it.Title,
			"sku":      it.SKU,
			"quantity": it.Quantity,
			"price":    it.Price.StringFixed(2),
			"total":    it.Total.StringFixed(2),
		})
	}
	return map[string]interface{}{
		"customer_name": n.CustomerName,
		"order_number":  n.OrderNumber,
		"split_id":      n.SplitID,
		"store_name":    n.StoreName,
		"status":        string(n.Status),
		"status_label":  n.Status.Label(),
		"comment":       n.Comment,
		"line_items":    items,
		"subtotal":      n.Subtotal.StringFixed(2),
		"discount":      n.Discount.StringFixed(2),
		"tax":           n.Tax.StringFixed(2),
		"total":         n.Total.StringFixed(2),
	}
}
