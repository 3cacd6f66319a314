package repository

import (
	"context"
	"fmt"
	"time"

	"storefront_payments/internal/domain/payment/model"

	"github.com/jmoiron/sqlx"
)

// DriftRepository 巡检用的批量只读查询，走 sqlx 而不是 gorm
type DriftRepository interface {
	OrdersSince(ctx context.Context, since time.Time, statuses []string) ([]model.OrderSnapshot, error)
	PaymentsSince(ctx context.Context, since time.Time) ([]model.PaymentSnapshot, error)
	// OrdersByExternalIDs 不限时间和状态，用于补齐窗口外或已关闭的订单
	OrdersByExternalIDs(ctx context.Context, externalIDs []string) ([]model.OrderSnapshot, error)
}

type driftRepository struct {
	db *sqlx.DB
}

func NewDriftRepository(db *sqlx.DB) DriftRepository {
	return &driftRepository{db: db}
}

const ordersSinceQuery = `SELECT id, client_external_id, COALESCE(xendit_invoice_id, '') AS xendit_invoice_id, status, created_at
FROM orders WHERE created_at >= ? AND status IN (?) ORDER BY created_at`

const ordersByExternalIDsQuery = `SELECT id, client_external_id, COALESCE(xendit_invoice_id, '') AS xendit_invoice_id, status, created_at
FROM orders WHERE client_external_id IN (?)`

// IN 列表分批，避免单条语句参数过多
const externalIDBatch = 500

const paymentsSinceQuery = `SELECT id, COALESCE(external_id, '') AS external_id, COALESCE(xendit_id, '') AS xendit_id, COALESCE(status, '') AS status, created_at
FROM payments WHERE created_at >= ? ORDER BY created_at`

func (r *driftRepository) OrdersSince(ctx context.Context, since time.Time, statuses []string) ([]model.OrderSnapshot, error) {
	query, args, err := sqlx.In(ordersSinceQuery, since, statuses)
	if err != nil {
		return nil, fmt.Errorf("build orders query: %w", err)
	}

	var orders []model.OrderSnapshot
	if err := r.db.SelectContext(ctx, &orders, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	return orders, nil
}

func (r *driftRepository) PaymentsSince(ctx context.Context, since time.Time) ([]model.PaymentSnapshot, error) {
	var payments []model.PaymentSnapshot
	if err := r.db.SelectContext(ctx, &payments, r.db.Rebind(paymentsSinceQuery), since); err != nil {
		return nil, fmt.Errorf("select payments: %w", err)
	}
	return payments, nil
}

func (r *driftRepository) OrdersByExternalIDs(ctx context.Context, externalIDs []string) ([]model.OrderSnapshot, error) {
	var orders []model.OrderSnapshot
	for start := 0; start < len(externalIDs); start += externalIDBatch {
		end := start + externalIDBatch
		if end > len(externalIDs) {
			end = len(externalIDs)
		}
		query, args, err := sqlx.In(ordersByExternalIDsQuery, externalIDs[start:end])
		if err != nil {
			return nil, fmt.Errorf("build orders query: %w", err)
		}

		var batch []model.OrderSnapshot
		if err := r.db.SelectContext(ctx, &batch, r.db.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("select orders by external id: %w", err)
		}
		orders = append(orders, batch...)
	}
	return orders, nil
}
