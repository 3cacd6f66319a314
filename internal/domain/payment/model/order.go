package model

import (
	"errors"
	"time"

	baseModel "storefront_payments/pkg/model"

	"github.com/shopspring/decimal"
)

// Order 订单模型，交易聚合根
type Order struct {
	baseModel.BaseModel
	ClientExternalID string          `gorm:"column:client_external_id;uniqueIndex;not null" json:"client_external_id"`
	XenditInvoiceID  *string         `gorm:"column:xendit_invoice_id;index" json:"xendit_invoice_id,omitempty"`
	XenditInvoiceURL *string         `gorm:"column:xendit_invoice_url" json:"xendit_invoice_url,omitempty"`
	OrderType        string          `gorm:"default:'purchase'" json:"order_type"` // purchase, rental
	ProductID        string          `json:"product_id"`
	Status           string          `gorm:"default:'pending';index" json:"status"`
	Amount           decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency         string          `gorm:"default:'IDR'" json:"currency"`
	PaymentMethod    string          `json:"payment_method"`
	PaymentChannel   string          `json:"payment_channel"`
	Description      string          `json:"description"`
	CustomerName     string          `json:"customer_name"`
	CustomerEmail    string          `json:"customer_email"`
	CustomerPhone    string          `json:"customer_phone"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	ExpiresAt        *time.Time      `json:"expires_at,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
	OrderStatusExpired   = "expired"
	OrderStatusRefunded  = "refunded"

	OrderTypePurchase = "purchase"
	OrderTypeRental   = "rental"
)

var ErrInvalidTransition = errors.New("invalid order status transition")

// 允许的状态流转，终态不在表中
var orderTransitions = map[string][]string{
	OrderStatusPending:   {OrderStatusPaid, OrderStatusCancelled, OrderStatusExpired},
	OrderStatusPaid:      {OrderStatusCompleted, OrderStatusRefunded},
	OrderStatusCompleted: {OrderStatusRefunded},
}

// CanTransition 判断 from -> to 是否合法，相同状态视为合法
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition 推进订单状态。
// 返回 false, nil 表示状态未变化 (重复回调)，首次进入 paid 时记录 paid_at。
func (o *Order) Transition(to string, at time.Time) (bool, error) {
	if !CanTransition(o.Status, to) {
		return false, ErrInvalidTransition
	}
	if o.Status == to {
		return false, nil
	}
	o.Status = to
	if to == OrderStatusPaid && o.PaidAt == nil {
		paidAt := at
		o.PaidAt = &paidAt
	}
	return true, nil
}
