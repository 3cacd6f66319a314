package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProviderEvent 网关回调解析后的统一事件
type ProviderEvent struct {
	ProviderID    string // 网关交易 id (invoice id / payment request id)
	ExternalID    string // 对应 orders.client_external_id
	Status        string // 网关状态，已大写
	Amount        decimal.Decimal
	Currency      string
	PaymentMethod string
	Description   string
	PaidAt        *time.Time
	Expiry        *time.Time
	CheckoutURL   string
	Method        MethodDetails
	Source        string
}

// OrderStatusFromProvider 把网关状态映射为订单状态，第二个返回值为 false 表示忽略该事件
func OrderStatusFromProvider(status string) (string, bool) {
	switch strings.ToUpper(status) {
	case "PAID", "SETTLED", "SUCCEEDED", "CAPTURED", "COMPLETED":
		return OrderStatusPaid, true
	case "EXPIRED":
		return OrderStatusExpired, true
	case "FAILED", "VOIDED", "CANCELED", "CANCELLED":
		return OrderStatusCancelled, true
	case "REFUNDED":
		return OrderStatusRefunded, true
	default:
		return "", false
	}
}
