package repository

import (
	"context"
	"errors"

	"storefront_payments/internal/domain/payment/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderRepository orders 表只读访问
type OrderRepository interface {
	// FindByIdentifier 按 xendit_invoice_id / client_external_id (以及 UUID 形式的 id) 查询，不存在返回 nil, nil
	FindByIdentifier(ctx context.Context, identifier string) (*model.Order, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) FindByIdentifier(ctx context.Context, identifier string) (*model.Order, error) {
	var order model.Order
	q := r.db.WithContext(ctx).Where("xendit_invoice_id = ?", identifier).Or("client_external_id = ?", identifier)
	if _, err := uuid.Parse(identifier); err == nil {
		q = q.Or("id = ?", identifier)
	}

	err := q.Order("created_at DESC").First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}
