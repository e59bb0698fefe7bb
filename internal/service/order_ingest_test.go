package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
	apperrors "github.com/global-partner-dev/kagati-shopify-app-sub001/pkg/errors"
)

const orderCreatePayload = `{
	"id": 5550001,
	"name": "#1001",
	"order_number": 1001,
	"email": "",
	"financial_status": "pending",
	"subtotal_price": "620.00",
	"total_discounts": "0.00",
	"total_price": "660.00",
	"shipping_lines": [{"price": "40.00"}],
	"customer": {"first_name": "Asha", "last_name": "Rao", "email": "asha@example.com", "phone": "9800000000"},
	"shipping_address": {
		"first_name": "Asha", "last_name": "Rao", "address1": "12 CMH Road",
		"city": "Bengaluru", "zip": "560038", "country": "India", "phone": "9800000001"
	},
	"line_items": [
		{"id": 11, "product_id": 100, "variant_id": 101, "sku": "A", "title": "Atta 5kg", "quantity": 2, "price": "250.00", "total_discount": "0.00"},
		{"id": 12, "product_id": 200, "variant_id": 201, "sku": "", "title": "Basmati 1kg", "quantity": 1, "price": "120.00", "total_discount": "0.00"}
	],
	"note_attributes": [{"name": "_outletId", "value": "1"}]
}`

func newIngestFixture(t *testing.T) (*testEnv, *OrderIngestService) {
	t.Helper()
	env := newTestEnv()
	env.stores.add(&domain.Store{ErpStoreID: 1, StoreCode: "S1", StoreName: "Indiranagar"})
	env.variants.rows = []*domain.StorefrontVariant{
		{ProductID: 100, VariantID: 101, SKU: "A", ErpItemID: 42, OutletID: 1, Tags: []string{"tax_5"}},
		{ProductID: 200, VariantID: 201, SKU: "B", ErpItemID: 43, OutletID: 1, Tags: []string{"tax_12"}},
	}
	notifications := env.notificationLog()
	engine := NewSplitEngine(env.repos, notifications, env.logger)
	return env, NewOrderIngestService(env.repos, engine, notifications, env.logger)
}

func decodePayload(t *testing.T, raw string) *ShopifyOrderPayload {
	t.Helper()
	var p ShopifyOrderPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	return &p
}

func TestIngest_NewOrderIsMirroredAndSplit(t *testing.T) {
	env, svc := newIngestFixture(t)

	result, err := svc.Ingest(context.Background(), decodePayload(t, orderCreatePayload))
	require.NoError(t, err)
	assert.True(t, result.Created)

	order := result.Order
	assert.Equal(t, "1001", order.OrderNumber)
	assert.Equal(t, "Asha Rao", order.CustomerName)
	assert.Equal(t, "asha@example.com", order.CustomerEmail)
	assert.Equal(t, "9800000000", order.CustomerPhone)
	assert.True(t, order.ShippingPrice.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, "1", order.NoteAttributes[OutletNoteAttribute])

	require.Len(t, order.LineItems, 2)
	assert.Equal(t, int64(42), order.LineItems[0].ErpItemID)
	assert.Equal(t, []string{"tax_5"}, order.LineItems[0].Tags)
	assert.Equal(t, "B", order.LineItems[1].SKU, "missing sku is filled from the variant mirror")

	require.Len(t, result.Splits, 1)
	split := result.Splits[0]
	assert.Equal(t, "1001-S1", split.SplitID)
	assert.Equal(t, map[string]int{"A": 2, "B": 1}, split.QuantityBySKU())
	assert.Equal(t, int64(43), split.LineItems[1].ErpItemID)
	assert.Len(t, env.splits.rows, 1)
}

func TestIngest_UpdatedOrderKeepsItsSplits(t *testing.T) {
	env, svc := newIngestFixture(t)
	ctx := context.Background()

	first, err := svc.Ingest(ctx, decodePayload(t, orderCreatePayload))
	require.NoError(t, err)

	second, err := svc.Ingest(ctx, decodePayload(t, orderCreatePayload))
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Order.ID, second.Order.ID)
	require.Len(t, second.Splits, 1)
	assert.Equal(t, first.Splits[0].ID, second.Splits[0].ID)
	assert.Len(t, env.splits.rows, 1)
	assert.Len(t, env.orders.rows, 1)
}

func TestIngest_RejectsPayloadWithoutLines(t *testing.T) {
	env, svc := newIngestFixture(t)

	_, err := svc.Ingest(context.Background(), &ShopifyOrderPayload{ID: 1, Name: "#1"})
	var verr *apperrors.ErrValidation
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, env.orders.rows)
}

func TestIngest_SplitFailureKeepsMirrorAndLogs(t *testing.T) {
	env, svc := newIngestFixture(t)
	p := decodePayload(t, orderCreatePayload)
	p.ID = 5550002
	p.Name = "#1002"
	p.NoteAttributes[0].Value = "77"

	result, err := svc.Ingest(context.Background(), p)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "1002", result.Order.OrderNumber)
	assert.Len(t, env.orders.rows, 1)
	assert.Empty(t, env.splits.rows)

	errs := env.notifications.ofType(domain.LogTypeError)
	require.Len(t, errs, 1)
	assert.Equal(t, "Order #1002 could not be split", errs[0].NotificationInfo)
}

func TestIngest_StoreCodeNoteAttribute(t *testing.T) {
	env, svc := newIngestFixture(t)
	env.stores.add(&domain.Store{ErpStoreID: 2, StoreCode: "S2"})
	p := decodePayload(t, orderCreatePayload)
	p.NoteAttributes[0].Name = "storeCode"
	p.NoteAttributes[0].Value = " S2 "

	result, err := svc.Ingest(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "S2", result.Order.StoreCode)
	assert.Equal(t, "1001-S2", result.Splits[0].SplitID)
}
