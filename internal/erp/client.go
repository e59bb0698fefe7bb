package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/config"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/infra"
	apperrors "github.com/global-partner-dev/kagati-shopify-app-sub001/pkg/errors"
)

const itemFields = "itemId,itemName,mrp,outletId,stock,itemTimeStamp"

// Client calls the ERP/POS item and sales-order APIs with X-Auth-Token
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
	breaker    *infra.CircuitBreaker
	logger     *zap.Logger
}

// NewClient creates an ERP HTTP client guarded by a circuit breaker
func NewClient(cfg config.ERPConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		authToken:  cfg.AuthToken,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    infra.NewCircuitBreaker(infra.DefaultCBConfig("erp")),
		logger:     logger,
	}
}

// Item is one ERP stock row as returned by GET /items
type Item struct {
	ItemID        int64           `json:"itemId"`
	ItemName      string          `json:"itemName"`
	MRP           decimal.Decimal `json:"mrp"`
	OutletID      int             `json:"outletId"`
	Stock         decimal.Decimal `json:"stock"`
	ItemTimeStamp Timestamp       `json:"itemTimeStamp"`
}

// ItemsPage is one page of GET /items
type ItemsPage struct {
	Items      []Item `json:"items"`
	TotalPages int    `json:"total_pages"`
}

// Timestamp is the ERP row watermark. The ERP sends it either as a
// numeric string ("20240101000000") or as a number.
type Timestamp int64

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*t = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid itemTimeStamp %q: %w", s, err)
	}
	*t = Timestamp(n)
	return nil
}

// QueryItems fetches one page of items matching filter. Pages start at 1.
func (c *Client) QueryItems(ctx context.Context, filter *Filter, page, limit int) (*ItemsPage, error) {
	u, err := url.Parse(c.baseURL + "/items")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	if filter != nil {
		q.Set("q", filter.String())
	}
	q.Set("fields", itemFields)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()

	var out ItemsPage
	if err := c.do(ctx, http.MethodGet, u.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SalesOrder is the body of POST /salesOrders
type SalesOrder struct {
	OutletID          int              `json:"outletId"`
	OnlineReferenceNo string           `json:"onlineReferenceNo"`
	OrderDate         string           `json:"orderDate"` // 2006-01-02 15:04:05
	Channel           string           `json:"channel"`
	Status            string           `json:"status"`
	CustomerName      string           `json:"customerName"`
	CustomerMobile    string           `json:"customerMobile"`
	CustomerEmail     string           `json:"customerEmail"`
	TotalQuantity     int              `json:"totalQuantity"`
	TotalDiscount     decimal.Decimal  `json:"totalDiscount"`
	TotalTaxAmount    decimal.Decimal  `json:"totalTaxAmount"`
	TotalAmount       decimal.Decimal  `json:"totalAmount"`
	OrderItems        []SalesOrderItem `json:"orderItems"`
}

type SalesOrderItem struct {
	ItemID         int64           `json:"itemId"`
	ItemReference  string          `json:"itemReferenceCode"`
	Quantity       int             `json:"quantity"`
	SalePrice      decimal.Decimal `json:"salePrice"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TaxPercentage  decimal.Decimal `json:"taxPercentage"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	ItemAmount     decimal.Decimal `json:"itemAmount"`
}

// SalesOrderResponse is the ERP acknowledgement
type SalesOrderResponse struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// PushSalesOrder posts a sales order to the ERP.
func (c *Client) PushSalesOrder(ctx context.Context, order *SalesOrder) (*SalesOrderResponse, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sales order: %w", err)
	}
	var out SalesOrderResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/salesOrders", body, &out); err != nil {
		return nil, err
	}
	c.logger.Info("ERP sales order pushed",
		zap.Int("outlet_id", order.OutletID),
		zap.String("reference", order.OnlineReferenceNo),
		zap.String("erp_order_id", out.OrderID),
	)
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, body []byte, out interface{}) error {
	if c.baseURL == "" || c.authToken == "" {
		return fmt.Errorf("erp client not configured: base URL and auth token required")
	}
	return c.breaker.Execute(func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("X-Auth-Token", c.authToken)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn("ERP request failed", zap.String("method", method), zap.Error(err))
			return fmt.Errorf("failed to execute request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &apperrors.ErrExternal{System: "erp", Status: resp.StatusCode, Body: string(respBody)}
		}
		if out == nil || len(respBody) == 0 {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return &apperrors.ErrExternal{System: "erp", Status: resp.StatusCode, Body: fmt.Sprintf("malformed JSON: %v", err)}
		}
		return nil
	})
}
