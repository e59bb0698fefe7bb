package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/pkg/errors"
)

type orderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOrderRepository creates a new order mirror repository
func NewOrderRepository(db *sql.DB, logger *zap.Logger) *orderRepository {
	return &orderRepository{
		db:     db,
		logger: logger,
	}
}

const orderColumns = `id, shopify_order_id, order_number, customer_name, customer_email, customer_phone,
	shipping_address, line_items, note_attributes, store_code, subtotal_price, total_discounts,
	shipping_price, total_price, financial_status, created_at, updated_at`

func (r *orderRepository) Upsert(ctx context.Context, order *domain.Order) (bool, error) {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (shopify_order_id) DO UPDATE SET
			customer_name = EXCLUDED.customer_name,
			customer_email = EXCLUDED.customer_email,
			customer_phone = EXCLUDED.customer_phone,
			shipping_address = EXCLUDED.shipping_address,
			line_items = EXCLUDED.line_items,
			note_attributes = EXCLUDED.note_attributes,
			subtotal_price = EXCLUDED.subtotal_price,
			total_discounts = EXCLUDED.total_discounts,
			shipping_price = EXCLUDED.shipping_price,
			total_price = EXCLUDED.total_price,
			financial_status = EXCLUDED.financial_status,
			updated_at = EXCLUDED.updated_at
		RETURNING id, (xmax = 0) AS inserted
	`

	now := time.Now()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	shippingJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return false, err
	}
	lineItemsJSON, err := json.Marshal(order.LineItems)
	if err != nil {
		return false, err
	}
	notesJSON, err := json.Marshal(order.NoteAttributes)
	if err != nil {
		return false, err
	}

	var inserted bool
	err = r.db.QueryRowContext(ctx, query,
		order.ID,
		order.ShopifyOrderID,
		order.OrderNumber,
		nullString(order.CustomerName),
		nullString(order.CustomerEmail),
		nullString(order.CustomerPhone),
		shippingJSON,
		lineItemsJSON,
		notesJSON,
		nullString(order.StoreCode),
		order.SubtotalPrice,
		order.TotalDiscounts,
		order.ShippingPrice,
		order.TotalPrice,
		nullString(order.FinancialStatus),
		order.CreatedAt,
		order.UpdatedAt,
	).Scan(&order.ID, &inserted)
	if err != nil {
		r.logger.Error("Failed to upsert order", zap.Int64("shopify_order_id", order.ShopifyOrderID), zap.Error(err))
		return false, err
	}
	return inserted, nil
}

func (r *orderRepository) get(ctx context.Context, where string, arg interface{}, id string) (*domain.Order, error) {
	var o domain.Order
	var name, email, phone, storeCode, financial sql.NullString
	var shippingJSON, lineItemsJSON, notesJSON []byte

	err := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where, arg).Scan(
		&o.ID,
		&o.ShopifyOrderID,
		&o.OrderNumber,
		&name,
		&email,
		&phone,
		&shippingJSON,
		&lineItemsJSON,
		&notesJSON,
		&storeCode,
		&o.SubtotalPrice,
		&o.TotalDiscounts,
		&o.ShippingPrice,
		&o.TotalPrice,
		&financial,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id}
	}
	if err != nil {
		r.logger.Error("Failed to get order", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	o.CustomerName = name.String
	o.CustomerEmail = email.String
	o.CustomerPhone = phone.String
	o.StoreCode = storeCode.String
	o.FinancialStatus = financial.String

	if len(shippingJSON) > 0 {
		if err := json.Unmarshal(shippingJSON, &o.ShippingAddress); err != nil {
			return nil, err
		}
	}
	if len(lineItemsJSON) > 0 {
		if err := json.Unmarshal(lineItemsJSON, &o.LineItems); err != nil {
			return nil, err
		}
	}
	if len(notesJSON) > 0 {
		if err := json.Unmarshal(notesJSON, &o.NoteAttributes); err != nil {
			return nil, err
		}
	}
	return &o, nil
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.get(ctx, "id = $1", id, id.String())
}

func (r *orderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return r.get(ctx, "order_number = $1 ORDER BY created_at DESC LIMIT 1", orderNumber, orderNumber)
}

func (r *orderRepository) UpdateShippingCoordinates(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	query := `
		UPDATE orders
		SET shipping_address = shipping_address || jsonb_build_object('latitude', $2::float8, 'longitude', $3::float8),
			updated_at = $4
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, lat, lng, time.Now())
	if err != nil {
		r.logger.Error("Failed to update order coordinates", zap.String("order_id", id.String()), zap.Error(err))
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	return nil
}
