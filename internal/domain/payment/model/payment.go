package model

import (
	"time"

	baseModel "storefront_payments/pkg/model"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Payment 支付记录，订单的网关侧投影
type Payment struct {
	baseModel.BaseModel
	ExternalID    string            `gorm:"column:external_id;uniqueIndex;not null" json:"external_id"`
	XenditID      string            `gorm:"column:xendit_id;index" json:"xendit_id"`
	OrderID       *string           `gorm:"type:uuid;index" json:"order_id,omitempty"`
	PaymentMethod string            `json:"payment_method"`
	Status        string            `json:"status"` // 网关状态词表: ACTIVE, PENDING, PAID, SETTLED ...
	Amount        decimal.Decimal   `gorm:"type:decimal(15,2)" json:"amount"`
	Currency      string            `gorm:"default:'IDR'" json:"currency"`
	Description   string            `json:"description"`
	PaymentData   datatypes.JSONMap `gorm:"type:jsonb" json:"payment_data"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}

// 视为已支付的网关状态
var paidStatuses = map[string]bool{
	"PAID":      true,
	"COMPLETED": true,
	"SUCCEEDED": true,
	"SETTLED":   true,
	"CAPTURED":  true,
}

// IsPaidStatus 网关状态是否表示已收款
func IsPaidStatus(status string) bool {
	return paidStatuses[status]
}

// PaidStatuses 返回已支付状态列表 (用于 SQL IN 条件)
func PaidStatuses() []string {
	return []string{"PAID", "COMPLETED", "SUCCEEDED", "SETTLED", "CAPTURED"}
}
