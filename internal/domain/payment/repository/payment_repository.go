package repository

import (
	"context"
	"errors"

	"storefront_payments/internal/domain/payment/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentRepository payments 表只读访问
type PaymentRepository interface {
	// FindByIdentifier 按 xendit_id / external_id (以及 UUID 形式的 id) 查询，不存在返回 nil, nil
	FindByIdentifier(ctx context.Context, identifier string) (*model.Payment, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) FindByIdentifier(ctx context.Context, identifier string) (*model.Payment, error) {
	var payment model.Payment
	q := r.db.WithContext(ctx).Where("xendit_id = ?", identifier).Or("external_id = ?", identifier)
	// id 列是 uuid 类型，非 UUID 字符串直接比较会报错
	if _, err := uuid.Parse(identifier); err == nil {
		q = q.Or("id = ?", identifier)
	}

	err := q.Order("created_at DESC").First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
