package shopify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturedRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

func newTestClient(t *testing.T, respond func(req capturedRequest) string) (*Client, *[]capturedRequest) {
	t.Helper()
	var seen []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token", r.Header.Get("X-Shopify-Access-Token"))
		var req capturedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		seen = append(seen, req)
		_, _ = w.Write([]byte(respond(req)))
	}))
	t.Cleanup(srv.Close)
	return NewClientWithEndpoint(srv.URL, "token", zap.NewNop()), &seen
}

func TestGID(t *testing.T) {
	assert.Equal(t, "gid://shopify/ProductVariant/55", GID(GIDProductVariant, 55))

	id, err := ParseGID("gid://shopify/Location/777")
	require.NoError(t, err)
	assert.Equal(t, int64(777), id)

	id, err = ParseGID("123")
	require.NoError(t, err)
	assert.Equal(t, int64(123), id)

	_, err = ParseGID("gid://shopify/Location/abc")
	assert.Error(t, err)
}

func TestBulkUpdatePrices_GroupsByProductInOneRequest(t *testing.T) {
	client, seen := newTestClient(t, func(req capturedRequest) string {
		return `{"data":{
			"p0":{"productVariants":[{"id":"gid://shopify/ProductVariant/11"},{"id":"gid://shopify/ProductVariant/12"}],"userErrors":[]},
			"p1":{"productVariants":[],"userErrors":[{"field":["variants","0","price"],"message":"Price is invalid"}]}
		}}`
	})

	res, err := client.BulkUpdatePrices(context.Background(), []VariantPriceUpdate{
		{ProductID: 1, VariantID: 11, Price: decimal.RequireFromString("10.5")},
		{ProductID: 2, VariantID: 21, Price: decimal.NewFromInt(-1)},
		{ProductID: 1, VariantID: 12, Price: decimal.NewFromInt(20)},
	})
	require.NoError(t, err)
	require.Len(t, *seen, 1)

	req := (*seen)[0]
	assert.Contains(t, req.Query, "p0: productVariantsBulkUpdate")
	assert.Contains(t, req.Query, "p1: productVariantsBulkUpdate")
	assert.Equal(t, "gid://shopify/Product/1", req.Variables["pid0"])
	variants := req.Variables["variants0"].([]interface{})
	require.Len(t, variants, 2)
	assert.Equal(t, "10.50", variants[0].(map[string]interface{})["price"])

	assert.ElementsMatch(t, []int64{11, 12}, res.Updated)
	assert.Equal(t, "variants.0.price: Price is invalid", res.Failed[21])
}

func TestBulkUpdatePrices_Empty(t *testing.T) {
	client, seen := newTestClient(t, func(capturedRequest) string { return `{"data":{}}` })
	res, err := client.BulkUpdatePrices(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Updated)
	assert.Empty(t, *seen)
}

func TestSetOnHandQuantities_UsesCorrectionReason(t *testing.T) {
	client, seen := newTestClient(t, func(capturedRequest) string {
		return `{"data":{"inventorySetOnHandQuantities":{"userErrors":[]}}}`
	})

	err := client.SetOnHandQuantities(context.Background(), []OnHandQuantity{
		{InventoryItemID: 5, LocationID: 9, Quantity: 7},
	})
	require.NoError(t, err)
	require.Len(t, *seen, 1)

	input := (*seen)[0].Variables["input"].(map[string]interface{})
	assert.Equal(t, "correction", input["reason"])
	qty := input["setQuantities"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "gid://shopify/InventoryItem/5", qty["inventoryItemId"])
	assert.Equal(t, "gid://shopify/Location/9", qty["locationId"])
	assert.Equal(t, float64(7), qty["quantity"])
}

func TestSetOnHandQuantities_UserErrors(t *testing.T) {
	client, _ := newTestClient(t, func(capturedRequest) string {
		return `{"data":{"inventorySetOnHandQuantities":{"userErrors":[{"field":["input"],"message":"Location not found"}]}}}`
	})
	err := client.SetOnHandQuantities(context.Background(), []OnHandQuantity{{InventoryItemID: 1, LocationID: 2, Quantity: 3}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Location not found")
}

func TestInventoryItemLocationIDs(t *testing.T) {
	client, _ := newTestClient(t, func(req capturedRequest) string {
		assert.Equal(t, "gid://shopify/InventoryItem/5", req.Variables["id"])
		return `{"data":{"inventoryItem":{"id":"gid://shopify/InventoryItem/5","inventoryLevels":{"edges":[
			{"node":{"location":{"id":"gid://shopify/Location/100"}}},
			{"node":{"location":{"id":"gid://shopify/Location/200"}}}
		]}}}}`
	})

	ids, err := client.InventoryItemLocationIDs(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 200}, ids)
}

func TestExecute_GraphQLErrors(t *testing.T) {
	client, _ := newTestClient(t, func(capturedRequest) string {
		return `{"errors":[{"message":"Throttled"}]}`
	})
	_, err := client.Execute(context.Background(), "{ shop { id } }", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Throttled")
}
