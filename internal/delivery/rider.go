package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/infra"
	apperrors "github.com/global-partner-dev/kagati-shopify-app-sub001/pkg/errors"
)

// RiderClient calls the third-party rider dispatch API (header access-token)
type RiderClient struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	breaker     *infra.CircuitBreaker
	logger      *zap.Logger
}

func NewRiderClient(baseURL, accessToken string, logger *zap.Logger) *RiderClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RiderClient{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		breaker:     infra.NewCircuitBreaker(infra.DefaultCBConfig("rider")),
		logger:      logger,
	}
}

// Point is a pickup or drop location
type Point struct {
	Name          string   `json:"name"`
	ContactNumber string   `json:"contact_number"`
	Address       string   `json:"address"`
	City          string   `json:"city,omitempty"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
}

// OrderDetails describes the parcel
type OrderDetails struct {
	OrderID     string          `json:"order_id"`
	OrderAmount decimal.Decimal `json:"order_amount"`
	PaymentType string          `json:"payment_type"` // prepaid | cod
	ItemCount   int             `json:"item_count"`
}

// TaskRequest is the body of createTask and getServiceability
type TaskRequest struct {
	PickupDetails Point        `json:"pickup_details"`
	DropDetails   Point        `json:"drop_details"`
	OrderDetails  OrderDetails `json:"order_details"`
}

// Task is the dispatch result stored on the split
type Task struct {
	TaskID       string
	RiderName    string
	RiderContact string
	Message      string
}

// Serviceability is the result of getServiceability
type Serviceability struct {
	Serviceable bool
	Message     string
}

type riderEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// GetServiceability checks whether the vendor can serve the pickup/drop pair.
func (c *RiderClient) GetServiceability(ctx context.Context, req *TaskRequest) (*Serviceability, error) {
	var env riderEnvelope
	if err := c.post(ctx, "/getServiceability", req, &env); err != nil {
		return nil, err
	}
	var data struct {
		Serviceable bool   `json:"serviceable"`
		Reason      string `json:"reason"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, &apperrors.ErrExternal{System: "rider", Status: http.StatusOK, Body: fmt.Sprintf("malformed JSON: %v", err)}
		}
	}
	msg := env.Message
	if data.Reason != "" {
		msg = data.Reason
	}
	return &Serviceability{Serviceable: env.Status && data.Serviceable, Message: msg}, nil
}

// CreateTask books a rider.
func (c *RiderClient) CreateTask(ctx context.Context, req *TaskRequest) (*Task, error) {
	var env riderEnvelope
	if err := c.post(ctx, "/createTask", req, &env); err != nil {
		return nil, err
	}
	if !env.Status {
		return nil, fmt.Errorf("rider task rejected: %s", env.Message)
	}
	var data struct {
		TaskID       string `json:"task_id"`
		RiderName    string `json:"rider_name"`
		RiderContact string `json:"rider_contact"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, &apperrors.ErrExternal{System: "rider", Status: http.StatusOK, Body: fmt.Sprintf("malformed JSON: %v", err)}
	}
	c.logger.Info("Rider task created", zap.String("order_id", req.OrderDetails.OrderID), zap.String("task_id", data.TaskID))
	return &Task{
		TaskID:       data.TaskID,
		RiderName:    data.RiderName,
		RiderContact: data.RiderContact,
		Message:      env.Message,
	}, nil
}

func (c *RiderClient) post(ctx context.Context, path string, in, out interface{}) error {
	if c.baseURL == "" || c.accessToken == "" {
		return fmt.Errorf("rider client not configured")
	}
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("access-token", c.accessToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn("Rider API request failed", zap.String("path", path), zap.Error(err))
			return err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &apperrors.ErrExternal{System: "rider", Status: resp.StatusCode, Body: string(respBody)}
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return &apperrors.ErrExternal{System: "rider", Status: resp.StatusCode, Body: fmt.Sprintf("malformed JSON: %v", err)}
		}
		return nil
	})
}
