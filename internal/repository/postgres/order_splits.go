package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/pkg/errors"
)

type orderSplitRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOrderSplitRepository creates a new order split repository
func NewOrderSplitRepository(db *sql.DB, logger *zap.Logger) *orderSplitRepository {
	return &orderSplitRepository{
		db:     db,
		logger: logger,
	}
}

const splitColumns = `id, order_reference_id, order_number, split_id, store_code, store_name, erp_store_id,
	line_items, order_status, on_hold_status, on_hold_comment, re_assign_status, time_stamp,
	tpl_message, tpl_task_id, rider_name, rider_contact, erp_order_id, created_at, updated_at`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func splitArgs(s *domain.OrderSplit) ([]interface{}, error) {
	lineItemsJSON, err := json.Marshal(s.LineItems)
	if err != nil {
		return nil, err
	}
	stamps := s.TimeStamp
	if stamps == nil {
		stamps = map[domain.SplitStatus]time.Time{}
	}
	stampsJSON, err := json.Marshal(stamps)
	if err != nil {
		return nil, err
	}
	return []interface{}{
		s.ID,
		s.OrderReferenceID,
		s.OrderNumber,
		s.SplitID,
		s.StoreCode,
		s.StoreName,
		s.ErpStoreID,
		lineItemsJSON,
		s.OrderStatus,
		s.OnHoldStatus,
		s.OnHoldComment,
		s.ReAssignStatus,
		stampsJSON,
		s.TplMessage,
		s.TplTaskID,
		s.RiderName,
		s.RiderContact,
		s.ErpOrderID,
		s.CreatedAt,
		s.UpdatedAt,
	}, nil
}

func (r *orderSplitRepository) create(ctx context.Context, ex execer, s *domain.OrderSplit) error {
	now := time.Now()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	args, err := splitArgs(s)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO order_splits (`+splitColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`, args...)
	if err != nil {
		r.logger.Error("Failed to create order split", zap.String("split_id", s.SplitID), zap.Error(err))
		return err
	}
	return nil
}

func (r *orderSplitRepository) update(ctx context.Context, ex execer, s *domain.OrderSplit) error {
	s.UpdatedAt = time.Now()
	args, err := splitArgs(s)
	if err != nil {
		return err
	}
	// created_at is immutable
	args = append(args[:18], s.UpdatedAt)
	result, err := ex.ExecContext(ctx, `
		UPDATE order_splits SET
			order_reference_id = $2, order_number = $3, split_id = $4, store_code = $5, store_name = $6,
			erp_store_id = $7, line_items = $8, order_status = $9, on_hold_status = $10, on_hold_comment = $11,
			re_assign_status = $12, time_stamp = $13, tpl_message = $14, tpl_task_id = $15, rider_name = $16,
			rider_contact = $17, erp_order_id = $18, updated_at = $19
		WHERE id = $1
	`, args...)
	if err != nil {
		r.logger.Error("Failed to update order split", zap.String("split_id", s.SplitID), zap.Error(err))
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return &errors.ErrNotFound{Resource: "order_split", ID: s.ID.String()}
	}
	return nil
}

func (r *orderSplitRepository) Create(ctx context.Context, s *domain.OrderSplit) error {
	return r.create(ctx, r.db, s)
}

func (r *orderSplitRepository) Update(ctx context.Context, s *domain.OrderSplit) error {
	return r.update(ctx, r.db, s)
}

func scanSplit(row rowScanner) (*domain.OrderSplit, error) {
	var s domain.OrderSplit
	var lineItemsJSON, stampsJSON []byte
	var onHoldStatus, onHoldComment, tplMessage, tplTaskID, riderName, riderContact, erpOrderID sql.NullString

	if err := row.Scan(
		&s.ID,
		&s.OrderReferenceID,
		&s.OrderNumber,
		&s.SplitID,
		&s.StoreCode,
		&s.StoreName,
		&s.ErpStoreID,
		&lineItemsJSON,
		&s.OrderStatus,
		&onHoldStatus,
		&onHoldComment,
		&s.ReAssignStatus,
		&stampsJSON,
		&tplMessage,
		&tplTaskID,
		&riderName,
		&riderContact,
		&erpOrderID,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(lineItemsJSON, &s.LineItems); err != nil {
		return nil, fmt.Errorf("decode split line items: %w", err)
	}
	if len(stampsJSON) > 0 {
		if err := json.Unmarshal(stampsJSON, &s.TimeStamp); err != nil {
			return nil, fmt.Errorf("decode split timestamps: %w", err)
		}
	}
	if onHoldStatus.Valid {
		st := domain.OnHoldStatus(onHoldStatus.String)
		s.OnHoldStatus = &st
	}
	s.OnHoldComment = nullableString(onHoldComment)
	s.TplMessage = nullableString(tplMessage)
	s.TplTaskID = nullableString(tplTaskID)
	s.RiderName = nullableString(riderName)
	s.RiderContact = nullableString(riderContact)
	s.ErpOrderID = nullableString(erpOrderID)
	return &s, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func (r *orderSplitRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.OrderSplit, error) {
	s, err := scanSplit(r.db.QueryRowContext(ctx, `SELECT `+splitColumns+` FROM order_splits WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order_split", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get order split", zap.String("id", id.String()), zap.Error(err))
		return nil, err
	}
	return s, nil
}

func (r *orderSplitRepository) ListByOrder(ctx context.Context, orderReferenceID uuid.UUID) ([]*domain.OrderSplit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+splitColumns+` FROM order_splits WHERE order_reference_id = $1 ORDER BY created_at ASC`,
		orderReferenceID)
	if err != nil {
		r.logger.Error("Failed to list order splits", zap.String("order_reference_id", orderReferenceID.String()), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var out []*domain.OrderSplit
	for rows.Next() {
		s, err := scanSplit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *orderSplitRepository) ApplyReassignment(ctx context.Context, creates, updates []*domain.OrderSplit, deletes []uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, id := range deletes {
		if _, err := tx.ExecContext(ctx, `DELETE FROM order_splits WHERE id = $1`, id); err != nil {
			r.logger.Error("Failed to delete emptied split", zap.String("id", id.String()), zap.Error(err))
			return err
		}
	}
	for _, s := range updates {
		if err := r.update(ctx, tx, s); err != nil {
			return err
		}
	}
	for _, s := range creates {
		if err := r.create(ctx, tx, s); err != nil {
			return err
		}
	}
	return tx.Commit()
}
